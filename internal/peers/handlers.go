package peers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"wgq/internal/controller"
	"wgq/internal/format"
	"wgq/internal/ipam"
	"wgq/internal/models"
	"wgq/internal/qr"
	"wgq/internal/repo"
	"wgq/internal/wg"
)

// EventsReader — чтение журнала для API.
type EventsReader interface {
	Recent(ctx context.Context, limit int) ([]models.PeerEvent, error)
}

type Handler struct {
	rec    *controller.Reconciler
	events EventsReader
}

func NewHandler(rec *controller.Reconciler, events EventsReader) *Handler {
	return &Handler{rec: rec, events: events}
}

// peerView — общая JSON-форма пира в списке/статистике.
type peerView struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	IPAddress       string     `json:"ip_address"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUsed        *time.Time `json:"last_used"`
	UsageCount      int        `json:"usage_count"`
	IsActive        bool       `json:"is_active"`
	IsConnected     bool       `json:"is_connected"`
	LastHandshake   *time.Time `json:"last_handshake"`
	LastHandshakeGo string     `json:"last_handshake_ago"`
	RxBytes         int64      `json:"rx_bytes"`
	TxBytes         int64      `json:"tx_bytes"`
	RxFormatted     string     `json:"rx_formatted"`
	TxFormatted     string     `json:"tx_formatted"`
	TotalTransfer   string     `json:"total_transfer"`
}

func toView(e controller.EnrichedPeer) peerView {
	return peerView{
		ID:              e.ID,
		Name:            e.Name,
		IPAddress:       e.IPAddress,
		CreatedAt:       e.CreatedAt,
		LastUsed:        e.LastUsedAt,
		UsageCount:      e.UsageCount,
		IsActive:        e.IsActive,
		IsConnected:     e.Connected,
		LastHandshake:   e.LastHandshake,
		LastHandshakeGo: e.HandshakeAgo,
		RxBytes:         e.RxBytes,
		TxBytes:         e.TxBytes,
		RxFormatted:     e.RxFormatted,
		TxFormatted:     e.TxFormatted,
		TotalTransfer:   e.TotalTransfer,
	}
}

func peerID(r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

// writeDomainError мапит доменные ошибки на problem+json.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrServerNotConfigured):
		models.WriteProblem(w, http.StatusBadRequest, "Server Not Configured",
			"set wireguard.server_public_key before creating peers", nil)
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Peer Not Found", err.Error(), nil)
	case errors.Is(err, ipam.ErrPoolExhausted):
		models.WriteProblem(w, http.StatusInternalServerError, "Pool Exhausted",
			"ip address pool exhausted", nil)
	case errors.Is(err, wg.ErrToolMissing):
		models.WriteProblem(w, http.StatusInternalServerError, "WireGuard Tools Missing",
			err.Error(), nil)
	default:
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			err.Error(), nil)
	}
}

// POST /api/peers (form: name, use_preshared_key)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Form", err.Error(), nil)
		return
	}
	usePSK := true
	if v := r.FormValue("use_preshared_key"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			usePSK = b
		}
	}
	p, err := h.rec.Create(r.Context(), controller.CreateInput{
		Name:            r.FormValue("name"),
		UsePresharedKey: usePSK,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{
		"id": p.ID, "name": p.Name, "ip_address": p.IPAddress,
	})
}

// GET /api/peers
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	enriched, err := h.rec.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]peerView, 0, len(enriched))
	for _, e := range enriched {
		out = append(out, toView(e))
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// GET /api/peers/{id} — конфиг + QR; каждый запрос инкрементит usage_count.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := peerID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid peer id", nil)
		return
	}
	p, st, err := h.rec.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	png, err := qr.EncodePNG(p.ConfigText)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"id":             p.ID,
		"name":           p.Name,
		"ip_address":     p.IPAddress,
		"created_at":     p.CreatedAt,
		"last_used":      p.LastUsedAt,
		"usage_count":    p.UsageCount,
		"is_active":      p.IsActive,
		"config":         p.ConfigText,
		"qr_code":        png,
		"is_connected":   st.Connected,
		"last_handshake": st.LastHandshake,
		"rx_bytes":       st.RxBytes,
		"tx_bytes":       st.TxBytes,
		"rx_formatted":   format.Bytes(st.RxBytes),
		"tx_formatted":   format.Bytes(st.TxBytes),
	})
}

// DELETE /api/peers/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := peerID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid peer id", nil)
		return
	}
	if err := h.rec.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]string{"message": "peer deleted"})
}

// POST /api/peers/{id}/toggle
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := peerID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid peer id", nil)
		return
	}
	active, err := h.rec.Toggle(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]bool{"is_active": active})
}

// GET /api/stats — сводка по подключённым пирам.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	enriched, err := h.rec.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	connected := make([]peerView, 0)
	for _, e := range enriched {
		if e.Connected {
			connected = append(connected, toView(e))
		}
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"connected_count": len(connected),
		"connected_peers": connected,
		"total_peers":     len(enriched),
	})
}

// GET /api/events?limit=N — последние lifecycle-события.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	evs, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, evs)
}
