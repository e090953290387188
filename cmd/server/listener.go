package server

import (
	"net"
	"os"

	"stackguard/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Create TCP and Unix socket listeners for cross-platform support
 * @param {[]ListenAddr} addrs - Listener addresses
 * @returns {[]net.Listener} Array of created listeners
 * @returns {error} Last creation error, nil when at least one succeeded
 * @description
 * - Cleans up stale socket files before binding
 * - A failed listener is logged and skipped, the rest still come up
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				continue
			}
		}
		listener, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		listeners = append(listeners, listener)
	}
	if len(listeners) > 0 {
		return listeners, nil
	}
	return nil, lastErr
}
