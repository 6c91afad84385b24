package wg

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

var (
	// ErrToolMissing — утилита wg не установлена. Отдельный вид ошибки:
	// это проблема окружения, а не конкретного вызова.
	ErrToolMissing = errors.New("wireguard tools not installed")
	// ErrToolFailed — утилита есть, но вызов завершился ошибкой/таймаутом.
	ErrToolFailed = errors.New("wireguard tool failed")
)

// Tool — граница с внешним инструментом wg для одного интерфейса.
type Tool struct {
	Iface string
	Run   Runner
}

func New(iface string) *Tool { return &Tool{Iface: iface, Run: OSRunner{}} }

func (t *Tool) output(ctx context.Context, stdin, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()
	return t.Run.Output(ctx, stdin, name, args...)
}

func classify(err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrToolMissing, err)
	}
	return fmt.Errorf("%w: %v", ErrToolFailed, err)
}

// GenerateKeyPair генерирует приватный ключ и выводит из него публичный
// (wg genkey + wg pubkey). Ошибки фатальны для вызывающей операции.
func (t *Tool) GenerateKeyPair(ctx context.Context) (priv, pub string, err error) {
	priv, err = t.output(ctx, "", "wg", "genkey")
	if err != nil {
		return "", "", classify(err)
	}
	pub, err = t.output(ctx, priv, "wg", "pubkey")
	if err != nil {
		return "", "", classify(err)
	}
	// Утилита обязана вернуть валидные base64-ключи; проверяем, не доверяя выводу.
	if _, perr := wgtypes.ParseKey(priv); perr != nil {
		return "", "", fmt.Errorf("%w: bad private key: %v", ErrToolFailed, perr)
	}
	if _, perr := wgtypes.ParseKey(pub); perr != nil {
		return "", "", fmt.Errorf("%w: bad public key: %v", ErrToolFailed, perr)
	}
	return priv, pub, nil
}

// GeneratePresharedKey предпочитает wg genpsk; при любой ошибке утилиты
// падает обратно на crypto/rand (32 байта, base64). Никакого math/rand.
func (t *Tool) GeneratePresharedKey(ctx context.Context) string {
	if psk, err := t.output(ctx, "", "wg", "genpsk"); err == nil && psk != "" {
		return psk
	}
	var b [32]byte
	_, _ = rand.Read(b[:]) // crypto/rand.Read не возвращает ошибок
	return base64.StdEncoding.EncodeToString(b[:])
}
