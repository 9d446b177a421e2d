package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rook-computer/octolcd/internal/web"
)

func main() {
	defaults, err := web.DefaultServerConfigFromEnv(":5000")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+web.EnvDevMode)
	apiKey := flag.String("api-key", "simulator", "API key clients must send in X-Api-Key; empty accepts any")
	scenario := flag.String("scenario", ScenarioPrinting, "startup scenario: idle | heating | printing | offline")
	printDuration := flag.Duration("print-duration", 0, "length of the simulated print (default 30m)")
	flag.Parse()

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	control := NewSimControl(*apiKey, *scenario, *printDuration)
	if err := control.ApplyScenario(""); err != nil {
		fmt.Println("scenario init error:", err)
		os.Exit(2)
	}

	var handler http.Handler = control.Handler()
	if *devMode {
		handler = web.WithDevCORS(handler)
	}
	server := web.NewHTTPServer(*listenAddr, handler)
	if err := server.Start(processCtx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}

	fmt.Println("OctoPrint simulator listening on", server.ListenAddr())
	fmt.Println("Scenario:", control.Scenario())
	fmt.Println("API: http://" + trimLeadingColon(server.ListenAddr()) + "/api/")

	<-processCtx.Done()
	_ = server.Stop()
}

func trimLeadingColon(addr string) string {
	// Best-effort for display; don't attempt full URL parsing here.
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	if strings.HasPrefix(addr, "[::]:") {
		return "127.0.0.1" + strings.TrimPrefix(addr, "[::]")
	}
	if addr == "" {
		return "127.0.0.1:5000"
	}
	return addr
}
