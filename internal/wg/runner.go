package wg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Все вызовы внешних утилит ограничены по времени: подвисший wg
// не должен останавливать сервис целиком.
const cmdTimeout = 5 * time.Second

// Runner абстрагирует запуск внешних команд (wg/wg-quick),
// чтобы пакет тестировался без живого интерфейса.
type Runner interface {
	Output(ctx context.Context, stdin, name string, args ...string) (string, error)
}

// OSRunner выполняет команды на хосте через os/exec.
type OSRunner struct{}

func (OSRunner) Output(ctx context.Context, stdin, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errb.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
