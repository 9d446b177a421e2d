package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rook-computer/octolcd/internal/app"
	"github.com/rook-computer/octolcd/internal/config"
	"github.com/rook-computer/octolcd/internal/display"
	"github.com/rook-computer/octolcd/internal/metrics"
	"github.com/rook-computer/octolcd/internal/octoprint"
	"github.com/rook-computer/octolcd/internal/poller"
	"github.com/rook-computer/octolcd/internal/publish"
	"github.com/rook-computer/octolcd/internal/render"
	"github.com/rook-computer/octolcd/internal/state"
	"github.com/rook-computer/octolcd/internal/web"
)

const debugLogPath = "./octolcd-debug.log"

func main() {
	configFile := flag.String("config", "octolcd.yaml", "path to the YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging (to logging.file, or "+debugLogPath+")")
	driver := flag.String("driver", "", "override display.driver (auto, hd44780, console, framebuffer, memory)")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via OCTOLCD_STDIO_LOG")
	flag.Parse()

	// Best-effort: keep panic traces when the console is taken over by the
	// display.
	logPath := *stdioLog
	if logPath == "" {
		logPath = os.Getenv("OCTOLCD_STDIO_LOG")
	}
	if logPath != "" {
		if err := redirectStdIO(logPath); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "octolcd:", err)
		os.Exit(1)
	}
	if *driver != "" {
		if !display.ValidDriver(*driver) {
			fmt.Fprintf(os.Stderr, "octolcd: unknown driver %q\n", *driver)
			os.Exit(1)
		}
		cfg.Display.Driver = *driver
	}
	if *debug {
		cfg.Logging.Debug = true
	}

	logger := openLogger(cfg.Logging)
	announce(cfg, logger, os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Errorf("main", "exit: %v", err)
		fmt.Fprintln(os.Stderr, "octolcd:", err)
		os.Exit(1)
	}
}

// announce prints the effective configuration to w when debugging.
func announce(cfg *config.Config, logger app.Logger, w io.Writer) {
	if !cfg.Logging.Debug {
		return
	}
	logger.Infof("main", "debug logging enabled")
	cfg.Print(w)
}

// openLogger logs to logging.file; with debug on and no file configured it
// falls back to debugLogPath. Without debug only errors are written.
func openLogger(cfg config.LoggingConfig) app.Logger {
	path := cfg.File
	if path == "" && cfg.Debug {
		path = debugLogPath
	}
	if path == "" {
		return app.NoopLogger{}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Println("log open error:", err)
		return app.NoopLogger{}
	}
	var logger app.Logger = app.NewFileLogger(f)
	if !cfg.Debug {
		logger = app.ErrorsOnly{Logger: logger}
	}
	return logger
}

func run(cfg *config.Config, logger app.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(nil)

	client := octoprint.NewClient(cfg.OctoPrint.Host, cfg.OctoPrint.APIKey, cfg.OctoPrint.Timeout())
	store := state.NewStore(time.Now())
	p := poller.New(client, store, cfg.Poller.Interval())
	p.Logger = logger
	p.Metrics = m

	sink, err := display.Open(display.Options{
		Driver:     cfg.Display.Driver,
		I2CBus:     cfg.Display.I2CBus,
		I2CAddress: uint8(cfg.Display.I2CAddress),
		QRPayload:  cfg.Display.QRCode,
		Title:      "octolcd " + client.BaseURL(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}

	renderer := render.NewRenderer(sink, cfg.Display.Name)
	renderer.Interval = cfg.Display.Refresh()
	renderer.StaleAfter = 3 * cfg.Poller.Interval()
	renderer.Logger = logger
	renderer.Metrics = m

	var server web.Server = web.NoopServer{}
	if cfg.Web.Enabled {
		envCfg, err := web.DefaultServerConfigFromEnv(cfg.Web.Listen)
		if err != nil {
			return err
		}
		serverCfg := web.ServerConfig{ListenAddr: cfg.Web.Listen, DevMode: cfg.Web.DevMode || envCfg.DevMode}
		mux := web.NewDefaultMux(serverCfg, web.APIV1Deps{
			Snapshots: p,
			Frames:    renderer,
			Gatherer:  prometheus.DefaultGatherer,
		})
		httpServer := web.NewHTTPServer(serverCfg.ListenAddr, mux)
		httpServer.Logger = logger
		server = httpServer
	}

	a := app.New(store, p, renderer, server)
	a.Logger = logger
	if cfg.MQTT.Enabled {
		pub := publish.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.Port, cfg.MQTT.Topic)
		if cfg.MQTT.ClientID != "" {
			pub.ClientID = cfg.MQTT.ClientID
		}
		pub.Username = cfg.MQTT.Username
		pub.Password = cfg.MQTT.Password
		pub.Logger = logger
		a.Publisher = pub
	}

	logger.Infof("main", "polling %s every %v, display %s, web %v, mqtt %v",
		client.BaseURL(), cfg.Poller.Interval(), cfg.Display.Driver, cfg.Web.Enabled, cfg.MQTT.Enabled)
	return a.Start(ctx)
}
