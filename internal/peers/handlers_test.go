package peers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wgq/config"
	"wgq/internal/controller"
	"wgq/internal/repo"
	"wgq/internal/wg"
)

const (
	testPriv  = "AQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQE="
	testPub   = "AgICAgICAgICAgICAgICAgICAgICAgICAgICAgICAgI="
	serverPub = "AwMDAwMDAwMDAwMDAwMDAwMDAwMDAwMDAwMDAwMDAwM="
)

// stubRunner отвечает на wg genkey/pubkey/genpsk, остальное — ошибка
// (живой интерфейс в тестах недоступен, что как раз best-effort путь).
type stubRunner struct{}

func (stubRunner) Output(_ context.Context, _ string, name string, args ...string) (string, error) {
	if name == "wg" && len(args) > 0 {
		switch args[0] {
		case "genkey":
			return testPriv, nil
		case "pubkey":
			return testPub, nil
		case "genpsk":
			return testPub, nil
		}
	}
	return "", errors.New("exit status 1")
}

func newTestRouter(t *testing.T, serverKey string) *mux.Router {
	t.Helper()
	cfg := &config.Config{}
	cfg.WireGuard.Interface = "wg0"
	cfg.WireGuard.ServerPublicKey = serverKey
	cfg.WireGuard.Endpoint = "vpn.example.com:51820"
	cfg.WireGuard.DNS = "1.1.1.1, 1.0.0.1"
	cfg.WireGuard.AllowedIPs = "0.0.0.0/0, ::/0"
	cfg.WireGuard.Subnet = "10.10.0"
	cfg.WireGuard.StartHost = 10

	tool := &wg.Tool{Iface: "wg0", Run: stubRunner{}}
	ev := repo.NewMemEventStore()
	rec := controller.NewReconciler(repo.NewMemPeerStore(), ev, tool, cfg)

	r := mux.NewRouter().StrictSlash(true)
	RegisterRoutes(r, NewHandler(rec, ev))
	return r
}

func postForm(r *mux.Router, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func do(r *mux.Router, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateAndListPeers(t *testing.T) {
	r := newTestRouter(t, serverPub)

	rr := postForm(r, "/api/peers", url.Values{"name": {"laptop"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "laptop", created["name"])
	assert.Equal(t, "10.10.0.10/32", created["ip_address"])

	rr = postForm(r, "/api/peers", url.Values{"use_preshared_key": {"false"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(r, http.MethodGet, "/api/peers")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	// живого интерфейса нет — никто не подключён
	assert.Equal(t, false, list[0]["is_connected"])
	assert.Equal(t, "Never", list[0]["last_handshake_ago"])
}

func TestCreatePeer_ServerNotConfigured(t *testing.T) {
	r := newTestRouter(t, "")
	rr := postForm(r, "/api/peers", url.Values{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	// и ничего не сохранилось
	rr = do(r, http.MethodGet, "/api/peers")
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestGetPeer_ConfigAndQR(t *testing.T) {
	r := newTestRouter(t, serverPub)
	require.Equal(t, http.StatusCreated, postForm(r, "/api/peers", url.Values{}).Code)

	rr := do(r, http.MethodGet, "/api/peers/1")
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	cfgText, _ := got["config"].(string)
	assert.Contains(t, cfgText, "[Interface]")
	assert.Contains(t, cfgText, "PublicKey = "+serverPub)
	assert.NotEmpty(t, got["qr_code"])
	assert.EqualValues(t, 1, got["usage_count"])

	// повторная выдача инкрементит счётчик
	rr = do(r, http.MethodGet, "/api/peers/1")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["usage_count"])
}

func TestToggleAndDeletePeer(t *testing.T) {
	r := newTestRouter(t, serverPub)
	require.Equal(t, http.StatusCreated, postForm(r, "/api/peers", url.Values{}).Code)

	rr := do(r, http.MethodPost, "/api/peers/1/toggle")
	require.Equal(t, http.StatusOK, rr.Code)
	var tg map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tg))
	assert.False(t, tg["is_active"])

	// удаление успешно даже при недоступном живом интерфейсе
	rr = do(r, http.MethodDelete, "/api/peers/1")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, "/api/peers")
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestPeerNotFound(t *testing.T) {
	r := newTestRouter(t, serverPub)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/peers/99").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/peers/99").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/peers/99/toggle").Code)
}

func TestStatsEndpoint(t *testing.T) {
	r := newTestRouter(t, serverPub)
	require.Equal(t, http.StatusCreated, postForm(r, "/api/peers", url.Values{}).Code)

	rr := do(r, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.EqualValues(t, 0, stats["connected_count"])
	assert.EqualValues(t, 1, stats["total_peers"])
}

func TestEventsEndpoint(t *testing.T) {
	r := newTestRouter(t, serverPub)
	require.Equal(t, http.StatusCreated, postForm(r, "/api/peers", url.Values{}).Code)

	rr := do(r, http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, rr.Code)
	var evs []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &evs))
	require.NotEmpty(t, evs)
	kinds := make([]string, 0, len(evs))
	for _, e := range evs {
		kinds = append(kinds, e["kind"].(string))
	}
	// create при мёртвом wg даёт created + live_sync_failed
	assert.Contains(t, kinds, "created")
	assert.Contains(t, kinds, "live_sync_failed")
}
