package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"wgq/internal/models"
)

var ErrNotFound = errors.New("peer not found")

// PeerStore — персистентное хранилище пиров поверх gorm.
type PeerStore struct{ db *gorm.DB }

func NewPeerStore(db *gorm.DB) *PeerStore { return &PeerStore{db: db} }

func (s *PeerStore) Insert(ctx context.Context, p *models.Peer) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// ListAll — все пиры, новые сверху.
func (s *PeerStore) ListAll(ctx context.Context) ([]models.Peer, error) {
	var peers []models.Peer
	err := s.db.WithContext(ctx).Order("created_at desc, id desc").Find(&peers).Error
	return peers, err
}

func (s *PeerStore) GetByID(ctx context.Context, id uint) (*models.Peer, error) {
	var p models.Peer
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PeerStore) Update(ctx context.Context, p *models.Peer) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *PeerStore) Delete(ctx context.Context, p *models.Peer) error {
	return s.db.WithContext(ctx).Delete(p).Error
}
