package models

import (
	"time"

	"gorm.io/datatypes"
)

// Peer — клиентская identity WireGuard: ключи, адрес и метаданные жизненного цикла.
// PrivateKey/PresharedKey живут только здесь: из ключей демона они не восстановимы.
type Peer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name         string `gorm:"size:100" json:"name"`
	PublicKey    string `gorm:"uniqueIndex;size:64;not null" json:"public_key"`
	PrivateKey   string `gorm:"size:64" json:"-"`
	PresharedKey string `gorm:"size:64" json:"-"`
	IPAddress    string `gorm:"uniqueIndex;size:20;not null" json:"ip_address"` // "10.10.0.X/32"

	LastUsedAt *time.Time `json:"last_used,omitempty"`
	UsageCount int        `gorm:"default:0" json:"usage_count"`
	// Намеренное состояние; живой интерфейс может временно расходиться.
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Рендерится один раз при создании и больше не пересчитывается.
	ConfigText string `gorm:"type:text" json:"-"`

	// Кэш телеметрии демона. Используется только как fallback,
	// когда живой интерфейс недоступен; источником истины не является.
	LastHandshakeAt *time.Time `json:"last_handshake,omitempty"`
	TotalRx         int64      `gorm:"default:0" json:"-"`
	TotalTx         int64      `gorm:"default:0" json:"-"`
}

// Виды событий журнала.
const (
	EventCreated    = "created"
	EventDeleted    = "deleted"
	EventToggled    = "toggled"
	EventSyncFailed = "live_sync_failed"
)

// PeerEvent — журнал lifecycle-событий пира, включая сбои best-effort
// синхронизации с живым интерфейсом.
type PeerEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	PeerID    uint           `gorm:"index" json:"peer_id"`
	Kind      string         `gorm:"size:32;index" json:"kind"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
}
