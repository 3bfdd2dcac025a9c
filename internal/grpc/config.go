// Package grpc exposes the ledger service over gRPC. Messages are plain Go
// structs carried by a JSON codec, so no generated code is involved.
package grpc

import (
	"fmt"
	"net"
)

const defaultMaxMsgSize = 4 << 20

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	// Address is a host:port pair, e.g. "127.0.0.1:50051".
	Address string

	// Message size limits in bytes, applied per request and per response.
	MaxRecvMsgSize int
	MaxSendMsgSize int
}

// DefaultServerConfig listens on the loopback port 50051 with 4 MiB limits.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "127.0.0.1:50051",
		MaxRecvMsgSize: defaultMaxMsgSize,
		MaxSendMsgSize: defaultMaxMsgSize,
	}
}

// Validate reports the first problem with the configuration.
func (c *ServerConfig) Validate() error {
	host, port, err := net.SplitHostPort(c.Address)
	switch {
	case c.Address == "":
		return fmt.Errorf("grpc: listen address is required")
	case err != nil:
		return fmt.Errorf("grpc: listen address %q: %w", c.Address, err)
	case host == "" || port == "":
		return fmt.Errorf("grpc: listen address %q needs both host and port", c.Address)
	case c.MaxRecvMsgSize <= 0 || c.MaxSendMsgSize <= 0:
		return fmt.Errorf("grpc: message size limits must be positive")
	}
	return nil
}
