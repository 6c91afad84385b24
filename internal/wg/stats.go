package wg

import (
	"context"
	"strconv"
	"strings"
	"time"

	"wgq/internal/logs"
)

// Пир считается подключённым, если последний handshake был не дальше этого
// окна назад (примерно два keepalive-интервала, один пропущенный маяк прощаем).
const handshakeWindow = 130 * time.Second

// PeerStats — телеметрия одного пира из wg show dump.
type PeerStats struct {
	LastHandshake *time.Time // nil = рукопожатия не было
	RxBytes       int64
	TxBytes       int64
	Connected     bool
}

// StatsSnapshot — результат чтения живого состояния.
// Available=false означает, что демон недоступен и данных нет;
// вызывающие обязаны обрабатывать оба случая.
type StatsSnapshot struct {
	Peers     map[string]PeerStats // ключ — публичный ключ пира
	Available bool
	ReadAt    time.Time
}

// ReadStats читает телеметрию интерфейса. Fail-soft: любая ошибка
// (нет утилиты, таймаут, ненулевой exit) — это пустой снапшот, не error.
// Живая телеметрия всегда advisory.
func (t *Tool) ReadStats(ctx context.Context) StatsSnapshot {
	out, err := t.output(ctx, "", "wg", "show", t.Iface, "dump")
	if err != nil {
		logs.Logger.Debugf("wg dump unavailable (iface=%s): %v", t.Iface, err)
		return StatsSnapshot{Peers: map[string]PeerStats{}}
	}
	return parseDump(out, time.Now())
}

// parseDump разбирает вывод `wg show <iface> dump`: первая строка — сам
// интерфейс (пропускаем), дальше по пиру на строку, 8 tab-полей:
// pubkey, psk, endpoint, allowed-ips, latest-handshake, rx, tx, keepalive.
func parseDump(out string, now time.Time) StatsSnapshot {
	snap := StatsSnapshot{
		Peers:     map[string]PeerStats{},
		Available: true,
		ReadAt:    now,
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < 8 {
			continue // короткая строка — мусор, не ошибка
		}
		hs, _ := strconv.ParseInt(f[4], 10, 64)
		rx, _ := strconv.ParseInt(f[5], 10, 64)
		tx, _ := strconv.ParseInt(f[6], 10, 64)

		ps := PeerStats{RxBytes: rx, TxBytes: tx}
		if hs > 0 { // "0" = рукопожатия не было
			at := time.Unix(hs, 0)
			ps.LastHandshake = &at
			ps.Connected = now.Sub(at) < handshakeWindow
		}
		snap.Peers[f[0]] = ps
	}
	return snap
}
