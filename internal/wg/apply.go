package wg

import "context"

// AddPeer устанавливает пира на живой интерфейс с его точным адресом.
// PSK передаётся через stdin (/dev/stdin), а не аргументом —
// секрет не должен светиться в списке процессов.
func (t *Tool) AddPeer(ctx context.Context, publicKey, address, presharedKey string) error {
	args := []string{"set", t.Iface, "peer", publicKey, "allowed-ips", address}
	stdin := ""
	if presharedKey != "" {
		args = append(args, "preshared-key", "/dev/stdin")
		stdin = presharedKey
	}
	if _, err := t.output(ctx, stdin, "wg", args...); err != nil {
		return classify(err)
	}
	return nil
}

// RemovePeer снимает пира с живого интерфейса.
func (t *Tool) RemovePeer(ctx context.Context, publicKey string) error {
	if _, err := t.output(ctx, "", "wg", "set", t.Iface, "peer", publicKey, "remove"); err != nil {
		return classify(err)
	}
	return nil
}

// SaveRunning сохраняет текущую конфигурацию интерфейса (wg-quick save),
// чтобы установленные пиры пережили рестарт.
func (t *Tool) SaveRunning(ctx context.Context) error {
	if _, err := t.output(ctx, "", "wg-quick", "save", t.Iface); err != nil {
		return classify(err)
	}
	return nil
}
