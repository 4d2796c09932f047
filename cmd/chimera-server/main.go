// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chimera-project/chimera/pkg/backend"
	"github.com/chimera-project/chimera/pkg/games"
	l "github.com/chimera-project/chimera/pkg/logger"

	"github.com/asaskevich/govalidator"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultAddr is the address the server listens on unless told otherwise.
	DefaultAddr = "127.0.0.1:14200"
)

func main() {
	addrport := flag.String("addrport", DefaultAddr, "host:port to listen on; use host '*' to bind all interfaces")
	loadGames := flag.StringArray("load-game", nil, "name of a game to load (repeatable)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, or error")
	flag.Parse()

	level, err := parseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := l.NewLogger(level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	addr, err := parseAddr(*addrport)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	server := backend.NewServer(backend.NewSlugSource(), logger)
	for _, name := range *loadGames {
		factory, ok := games.Registry[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown game: %s\n", name)
			os.Exit(1)
		}
		server.RegisterGame(strings.ToLower(name), factory, name)
	}

	ws := backend.NewWebSocketServer(server, &backend.WebSocketServerConfig{
		Addr:   addr,
		Logger: logger,
	})
	if err := ws.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot listen on %s: %v\n", addr, err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	ws.Stop()
}

// parseAddr validates a host:port argument, translating the '*' wildcard
// host into a bind on all interfaces.
func parseAddr(addrport string) (string, error) {
	host, port, err := net.SplitHostPort(addrport)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addrport, err)
	}
	if !govalidator.IsPort(port) {
		return "", fmt.Errorf("invalid port %q", port)
	}
	if host == "*" {
		host = ""
	}
	if host != "" && !govalidator.IsHost(host) {
		return "", fmt.Errorf("invalid host %q", host)
	}
	return net.JoinHostPort(host, port), nil
}

func parseLogLevel(name string) (zapcore.Level, error) {
	switch name {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}
