package web

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvListenAddr = "OCTOLCD_LISTEN"
	EnvDevMode    = "OCTOLCD_DEV"
)

// ServerConfig contains settings for running the HTTP server.
//
// The intended defaults differ per binary:
// - device status API: :8080
// - simulator:         :5000, the print server's usual port
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	return serverConfigFromLookup(defaultListenAddr, os.LookupEnv)
}

func serverConfigFromLookup(defaultListenAddr string, lookup func(string) (string, bool)) (ServerConfig, error) {
	listenAddr, _ := lookup(EnvListenAddr)
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	devMode := false
	if raw, _ := lookup(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		devMode = parsed
	}

	return ServerConfig{ListenAddr: listenAddr, DevMode: devMode}, nil
}
