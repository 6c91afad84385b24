package ipam

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPoolExhausted — свободных адресов в пуле не осталось.
var ErrPoolExhausted = errors.New("ip address pool exhausted")

// Верхняя граница хост-октета.
const maxHost = 254

// NextAddress выдаёт следующий свободный адрес в виде "subnet.N/32".
//
// Аллокатор монотонный: кандидат — это максимум занятых хост-октетов плюс один,
// удалённые адреса обратно в пул не возвращаются.
func NextAddress(existing []string, subnet string, startHost int) (string, error) {
	next := startHost
	if h, ok := highestHost(existing); ok {
		next = h + 1
	}
	if next > maxHost {
		return "", ErrPoolExhausted
	}
	return fmt.Sprintf("%s.%d/32", subnet, next), nil
}

func highestHost(addrs []string) (int, bool) {
	best, found := 0, false
	for _, a := range addrs {
		h, err := HostOffset(a)
		if err != nil {
			continue // чужой/битый адрес в сторе аллокацию не ломает
		}
		if !found || h > best {
			best, found = h, true
		}
	}
	return best, found
}

// HostOffset достаёт хост-октет из адреса вида "10.10.0.37/32" (маска опциональна).
func HostOffset(addr string) (int, error) {
	host := addr
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("malformed address: %q", addr)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("malformed host octet in %q", addr)
	}
	return n, nil
}
