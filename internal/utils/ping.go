package utils

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

// PingService dials the host behind serviceURL to confirm it is reachable.
// Only the TCP handshake is checked, not the HTTP layer.
func PingService(serviceURL string, timeout time.Duration) error {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		if parsed.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	address := net.JoinHostPort(host, port)
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}

// PingAuthorizer probes the identity provider with a short timeout so a
// down Authorizer fails fast instead of stalling requests.
func PingAuthorizer(authzURL string) error {
	return PingService(authzURL, 1500*time.Millisecond)
}
