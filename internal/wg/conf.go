package wg

import "strings"

// ClientConf — входы рендера клиентского конфига.
type ClientConf struct {
	PrivateKey   string
	Address      string // "10.10.0.X/32"
	DNS          string // CSV
	ServerPublic string
	AllowedIPs   string // CSV
	Endpoint     string // host:port
	PresharedKey string // пусто = без PSK
}

// Render собирает текст клиентского конфига. Чистая функция.
//
// Набор и порядок строк фиксированы: этот текст парсят сторонние клиенты.
// PresharedKey вставляется строго перед PersistentKeepalive.
func Render(c ClientConf) string {
	lines := []string{
		"[Interface]",
		"PrivateKey = " + c.PrivateKey,
		"Address = " + c.Address,
		"DNS = " + c.DNS,
		"",
		"[Peer]",
		"PublicKey = " + c.ServerPublic,
		"AllowedIPs = " + c.AllowedIPs,
		"Endpoint = " + c.Endpoint,
		"PersistentKeepalive = 25",
	}
	if c.PresharedKey != "" {
		keepalive := lines[len(lines)-1]
		lines = append(lines[:len(lines)-1], "PresharedKey = "+c.PresharedKey, keepalive)
	}
	return strings.Join(lines, "\n")
}
