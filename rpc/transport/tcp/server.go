package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/dShare/rpc/common"
)

// Listen creates the TCP listener of a node on settings.Address
func Listen(settings *common.Settings) (net.Listener, error) {
	listener, err := net.Listen("tcp", settings.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", settings.Address, err)
	}
	return listener, nil
}

// UpgradeConnection applies the socket options from settings.TCP to an accepted connection
func UpgradeConnection(conn net.Conn, settings *common.Settings) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(settings.TCP.TCPNoDelay); err != nil {
		return err
	}

	// Enable TCP keep-alive if configured
	if settings.TCP.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}

		keepAlivePeriod := time.Duration(settings.TCP.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	return nil
}
