package tcp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Dial opens a TCP connection to addr. A timeout of 0 waits until ctx is done.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			Logger.Debugf("failed to set TCP_NODELAY for %s: %v", addr, err)
		}
	}
	return conn, nil
}
