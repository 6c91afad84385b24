package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"wgq/internal/models"
)

// MemPeerStore — хранилище в памяти для режима без БД (database.driver="")
// и для тестов. Интерфейс тот же, что у PeerStore.
type MemPeerStore struct {
	mu     sync.RWMutex
	nextID uint
	peers  map[uint]models.Peer
}

func NewMemPeerStore() *MemPeerStore {
	return &MemPeerStore{peers: make(map[uint]models.Peer)}
}

func (m *MemPeerStore) Insert(_ context.Context, p *models.Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.peers[p.ID] = *p
	return nil
}

func (m *MemPeerStore) ListAll(_ context.Context) ([]models.Peer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	// новые сверху, как у gorm-стора
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemPeerStore) GetByID(_ context.Context, id uint) (*models.Peer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.peers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemPeerStore) Update(_ context.Context, p *models.Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.peers[p.ID]; !ok {
		return ErrNotFound
	}
	m.peers[p.ID] = *p
	return nil
}

func (m *MemPeerStore) Delete(_ context.Context, p *models.Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.peers[p.ID]; !ok {
		return ErrNotFound
	}
	delete(m.peers, p.ID)
	return nil
}
