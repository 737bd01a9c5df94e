package builtin

import (
	"context"
	"fmt"
	"net"
	"time"
)

var dnsResolver net.Resolver

// resolvePTR reverse-resolves ip with a bounded per-call timeout, the
// only built-in processor operation documented as blocking on I/O
// (SPEC_FULL.md §5).
func resolvePTR(ctx context.Context, ip string, timeoutMs int) (string, error) {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := dnsResolver.LookupAddr(ctx, ip)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("dns: no PTR record for %s", ip)
	}
	return names[0], nil
}
