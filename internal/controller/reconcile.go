package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"wgq/config"
	"wgq/internal/format"
	"wgq/internal/ipam"
	"wgq/internal/logs"
	"wgq/internal/models"
	"wgq/internal/wg"
)

// ErrServerNotConfigured — не задан (или битый) публичный ключ сервера;
// создание пиров отклоняется до генерации ключей и аллокации.
var ErrServerNotConfigured = errors.New("server public key not configured")

// Интерфейсы по месту использования.
type PeerStore interface {
	Insert(ctx context.Context, p *models.Peer) error
	ListAll(ctx context.Context) ([]models.Peer, error)
	GetByID(ctx context.Context, id uint) (*models.Peer, error)
	Update(ctx context.Context, p *models.Peer) error
	Delete(ctx context.Context, p *models.Peer) error
}

type Events interface {
	Record(ctx context.Context, peerID uint, kind string, payload map[string]any)
}

// KeySource — генерация ключевого материала внешним инструментом.
type KeySource interface {
	GenerateKeyPair(ctx context.Context) (priv, pub string, err error)
	GeneratePresharedKey(ctx context.Context) string
}

// LiveInterface — команды к живому интерфейсу. Все вызовы best-effort.
type LiveInterface interface {
	AddPeer(ctx context.Context, publicKey, address, presharedKey string) error
	RemovePeer(ctx context.Context, publicKey string) error
	SaveRunning(ctx context.Context) error
}

type StatsReader interface {
	ReadStats(ctx context.Context) wg.StatsSnapshot
}

// Reconciler сводит записи стора с живым состоянием демона и ведёт
// жизненный цикл пиров. Запись в сторе — источник истины о намерении
// (is_active); живой интерфейс — best-effort цель без двухфазного коммита.
type Reconciler struct {
	Peers  PeerStore
	Events Events
	Keys   KeySource
	Live   LiveInterface
	Stats  StatsReader
	Cfg    *config.Config

	// Сериализует allocate+persist: две конкурентные регистрации
	// не должны получить один адрес.
	allocMu sync.Mutex
}

func NewReconciler(ps PeerStore, ev Events, tool *wg.Tool, cfg *config.Config) *Reconciler {
	return &Reconciler{Peers: ps, Events: ev, Keys: tool, Live: tool, Stats: tool, Cfg: cfg}
}

type CreateInput struct {
	Name            string
	UsePresharedKey bool
}

// Create: проверка конфигурации → ключи → адрес → рендер → persist →
// best-effort установка на интерфейс. До Insert ничего не персистится,
// так что сбой на любом шаге не оставляет полузаписи.
func (r *Reconciler) Create(ctx context.Context, in CreateInput) (*models.Peer, error) {
	wgc := r.Cfg.WireGuard
	if strings.TrimSpace(wgc.ServerPublicKey) == "" {
		return nil, ErrServerNotConfigured
	}
	if _, err := wgtypes.ParseKey(wgc.ServerPublicKey); err != nil {
		return nil, ErrServerNotConfigured
	}

	priv, pub, err := r.Keys.GenerateKeyPair(ctx)
	if err != nil {
		return nil, err
	}
	psk := ""
	if in.UsePresharedKey {
		psk = r.Keys.GeneratePresharedKey(ctx)
	}

	r.allocMu.Lock()
	defer r.allocMu.Unlock()

	existing, err := r.Peers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(existing))
	for _, p := range existing {
		addrs = append(addrs, p.IPAddress)
	}
	addr, err := ipam.NextAddress(addrs, wgc.Subnet, wgc.StartHost)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Peer-" + time.Now().Format("20060102-150405")
	}

	p := &models.Peer{
		Name:         name,
		PublicKey:    pub,
		PrivateKey:   priv,
		PresharedKey: psk,
		IPAddress:    addr,
		IsActive:     true,
		ConfigText: wg.Render(wg.ClientConf{
			PrivateKey:   priv,
			Address:      addr,
			DNS:          wgc.DNS,
			ServerPublic: wgc.ServerPublicKey,
			AllowedIPs:   wgc.AllowedIPs,
			Endpoint:     wgc.Endpoint,
			PresharedKey: psk,
		}),
	}
	if err := r.Peers.Insert(ctx, p); err != nil {
		return nil, err
	}

	r.installLive(ctx, p)
	r.Events.Record(ctx, p.ID, models.EventCreated, map[string]any{
		"name": p.Name, "ip": p.IPAddress,
	})
	return p, nil
}

// Delete: сперва best-effort снятие с интерфейса, затем запись удаляется
// безусловно — сбой живого удаления не причина держать запись.
func (r *Reconciler) Delete(ctx context.Context, id uint) error {
	p, err := r.Peers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	r.removeLive(ctx, p)
	if err := r.Peers.Delete(ctx, p); err != nil {
		return err
	}
	r.Events.Record(ctx, p.ID, models.EventDeleted, map[string]any{
		"name": p.Name, "ip": p.IPAddress,
	})
	return nil
}

// Toggle переключает намеренное состояние. is_active отражает намерение;
// фактическое состояние интерфейса может временно отличаться.
func (r *Reconciler) Toggle(ctx context.Context, id uint) (bool, error) {
	p, err := r.Peers.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if p.IsActive {
		r.removeLive(ctx, p)
		p.IsActive = false
	} else {
		r.installLive(ctx, p)
		p.IsActive = true
	}
	if err := r.Peers.Update(ctx, p); err != nil {
		return false, err
	}
	r.Events.Record(ctx, p.ID, models.EventToggled, map[string]any{"active": p.IsActive})
	return p.IsActive, nil
}

// Get отдаёт пира для выдачи конфига/QR и инкрементит счётчик использований.
func (r *Reconciler) Get(ctx context.Context, id uint) (*models.Peer, wg.PeerStats, error) {
	p, err := r.Peers.GetByID(ctx, id)
	if err != nil {
		return nil, wg.PeerStats{}, err
	}
	now := time.Now().UTC()
	p.LastUsedAt = &now
	p.UsageCount++
	if err := r.Peers.Update(ctx, p); err != nil {
		return nil, wg.PeerStats{}, err
	}
	snap := r.Stats.ReadStats(ctx)
	return p, snap.Peers[p.PublicKey], nil
}

// EnrichedPeer — запись стора, слитая с живой телеметрией.
type EnrichedPeer struct {
	models.Peer
	Connected     bool
	LastHandshake *time.Time
	HandshakeAgo  string
	RxBytes       int64
	TxBytes       int64
	RxFormatted   string
	TxFormatted   string
	TotalTransfer string
}

// List — merge view: для каждого пира живые значения (если есть) имеют
// приоритет над кэшем, кэш оппортунистически обновляется. Подключённость
// берётся только из живого чтения: нет живой записи — не подключён.
func (r *Reconciler) List(ctx context.Context) ([]EnrichedPeer, error) {
	peers, err := r.Peers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	snap := r.Stats.ReadStats(ctx)
	out := make([]EnrichedPeer, 0, len(peers))
	for i := range peers {
		out = append(out, r.enrich(ctx, &peers[i], snap))
	}
	return out, nil
}

func (r *Reconciler) enrich(ctx context.Context, p *models.Peer, snap wg.StatsSnapshot) EnrichedPeer {
	e := EnrichedPeer{Peer: *p}
	if st, ok := snap.Peers[p.PublicKey]; ok {
		e.Connected = st.Connected
		e.RxBytes, e.TxBytes = st.RxBytes, st.TxBytes
		if st.LastHandshake != nil {
			e.LastHandshake = st.LastHandshake
			r.refreshCache(ctx, p, st)
			e.Peer = *p
		}
	} else {
		// демон про пира не знает: fallback на кэш, счётчики нулевые
		e.LastHandshake = p.LastHandshakeAt
	}
	e.HandshakeAgo = format.TimeAgo(e.LastHandshake)
	e.RxFormatted = format.Bytes(e.RxBytes)
	e.TxFormatted = format.Bytes(e.TxBytes)
	e.TotalTransfer = format.Bytes(e.RxBytes + e.TxBytes)
	return e
}

// refreshCache обновляет снапшот телеметрии в сторе. Тоже best-effort.
func (r *Reconciler) refreshCache(ctx context.Context, p *models.Peer, st wg.PeerStats) {
	if p.LastHandshakeAt != nil && !st.LastHandshake.After(*p.LastHandshakeAt) &&
		p.TotalRx == st.RxBytes && p.TotalTx == st.TxBytes {
		return
	}
	p.LastHandshakeAt = st.LastHandshake
	p.TotalRx, p.TotalTx = st.RxBytes, st.TxBytes
	if err := r.Peers.Update(ctx, p); err != nil {
		logs.Logger.Debugf("telemetry cache refresh failed: peer=%d: %v", p.ID, err)
	}
}

// installLive: сбой установки логируется и глотается — пир остаётся
// is_active, повтор произойдёт на следующем toggle или после рестарта.
func (r *Reconciler) installLive(ctx context.Context, p *models.Peer) {
	if err := r.Live.AddPeer(ctx, p.PublicKey, p.IPAddress, p.PresharedKey); err != nil {
		logs.Logger.Warnf("live install failed: peer=%d ip=%s: %v", p.ID, p.IPAddress, err)
		r.Events.Record(ctx, p.ID, models.EventSyncFailed, map[string]any{
			"op": "install", "error": err.Error(),
		})
		return
	}
	if err := r.Live.SaveRunning(ctx); err != nil {
		logs.Logger.Warnf("wg save failed: %v", err)
	}
}

func (r *Reconciler) removeLive(ctx context.Context, p *models.Peer) {
	if err := r.Live.RemovePeer(ctx, p.PublicKey); err != nil {
		logs.Logger.Warnf("live remove failed: peer=%d: %v", p.ID, err)
		r.Events.Record(ctx, p.ID, models.EventSyncFailed, map[string]any{
			"op": "remove", "error": err.Error(),
		})
		return
	}
	if err := r.Live.SaveRunning(ctx); err != nil {
		logs.Logger.Warnf("wg save failed: %v", err)
	}
}
