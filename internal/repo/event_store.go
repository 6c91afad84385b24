package repo

import (
	"context"
	"encoding/json"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"wgq/internal/logs"
	"wgq/internal/models"
)

// EventStore — журнал lifecycle-событий пиров. Запись best-effort:
// сбой журнала не должен ронять основную операцию.
type EventStore struct{ db *gorm.DB }

func NewEventStore(db *gorm.DB) *EventStore { return &EventStore{db: db} }

func (s *EventStore) Record(ctx context.Context, peerID uint, kind string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logs.Logger.Warnf("event payload marshal: %v", err)
		raw = []byte(`{}`)
	}
	ev := models.PeerEvent{PeerID: peerID, Kind: kind, Payload: datatypes.JSON(raw)}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		logs.Logger.Warnf("event record failed: peer=%d kind=%s: %v", peerID, kind, err)
	}
}

// Recent — последние события, новые сверху.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]models.PeerEvent, error) {
	var evs []models.PeerEvent
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&evs).Error
	return evs, err
}

// MemEventStore — кольцевой журнал для режима без БД.
type MemEventStore struct {
	mu     sync.Mutex
	nextID uint
	events []models.PeerEvent
	cap    int
}

func NewMemEventStore() *MemEventStore { return &MemEventStore{cap: 256} }

func (m *MemEventStore) Record(_ context.Context, peerID uint, kind string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(`{}`)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.events = append(m.events, models.PeerEvent{ID: m.nextID, PeerID: peerID, Kind: kind, Payload: datatypes.JSON(raw)})
	if len(m.events) > m.cap {
		m.events = m.events[len(m.events)-m.cap:]
	}
}

func (m *MemEventStore) Recent(_ context.Context, limit int) ([]models.PeerEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PeerEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}
