package gridinfra

import (
	"context"
	"net"
	"time"

	"golang.org/x/time/rate"
)

// DialFunc opens a connection to a server.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// limitedDialer waits for a token before every dial so a pool warming up, or
// reconnecting after a failover, does not open its connections all at once.
type limitedDialer struct {
	limiter *rate.Limiter
	dial    DialFunc
}

func newLimitedDialer(limit rate.Limit, burst int, connectTimeout time.Duration) *limitedDialer {
	d := &net.Dialer{Timeout: connectTimeout, KeepAlive: 5 * time.Minute}
	return &limitedDialer{
		limiter: rate.NewLimiter(limit, burst),
		dial:    d.DialContext,
	}
}

// DialContext waits for the limiter, then dials.
func (d *limitedDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return d.dial(ctx, network, addr)
}
