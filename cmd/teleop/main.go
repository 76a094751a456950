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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mbocsi/rosteleop/app"
	"github.com/mbocsi/rosteleop/client"
	"github.com/mbocsi/rosteleop/config"
	"github.com/mbocsi/rosteleop/logging"
	"github.com/mbocsi/rosteleop/mcp"
	"github.com/mbocsi/rosteleop/ui"
	"github.com/mbocsi/rosteleop/web"
	"github.com/sirupsen/logrus"
)

const (
	modeTUI      = "tui"
	modeWeb      = "web"
	modeMCP      = "mcp"
	modeHeadless = "headless"

	discoveryTimeout = 3 * time.Second
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	endpoint := flag.String("endpoint", "", "rosbridge WebSocket URI (overrides config)")
	mode := flag.String("mode", modeTUI, "Front-end: tui, web, mcp or headless")
	httpAddr := flag.String("http", "", "HTTP listen address for web mode (overrides config)")
	discover := flag.Bool("discover", false, "Find rosbridge on the local network with mDNS")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	if err := run(*configPath, *endpoint, *mode, *httpAddr, *logLevel, *discover); err != nil {
		fmt.Fprintf(os.Stderr, "rosteleop: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, endpoint, mode, httpAddr, logLevel string, discover bool) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	cfg.Discover = cfg.Discover || discover
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, mode)
	if err != nil {
		return err
	}

	if cfg.Discover {
		svc, err := client.DiscoverEndpoint(discoveryTimeout, logger)
		switch {
		case err == nil:
			cfg.Endpoint = svc.Endpoint()
			logger.WithFields(logrus.Fields{"service": svc.ServiceName, "endpoint": cfg.Endpoint}).Info("Discovered rosbridge")
		case cfg.Endpoint != "":
			logger.WithError(err).Warn("Discovery failed, using configured endpoint")
		default:
			return fmt.Errorf("discovery failed: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(*cfg, logger)
	svc := a.Services.GetServices()

	switch mode {
	case modeTUI:
		return runTUI(ctx, a)
	case modeWeb:
		srv := web.NewServer(svc, a.Bridge, logger, web.WithStreamBuffer(cfg.Buffers.Messages))
		a.RegisterFrontend(app.FrontendFunc(func(ctx context.Context) error {
			return srv.Serve(ctx, cfg.HTTP.Addr)
		}))
	case modeMCP:
		s := mcp.NewMCPServer(logger)
		mcp.NewTools(svc, logger).Register(s)
		a.RegisterFrontend(s)
	case modeHeadless:
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return a.Run(ctx)
}

// runTUI owns the terminal, so the program runs in the foreground and the
// app is stopped when it exits.
func runTUI(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Start(ctx)
	defer a.Shutdown()

	model := ui.NewModel(a.Services.GetServices(), a.Bridge, a.Pose)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// newLogger keeps stdout free where a front-end owns it: the TUI draws
// there and MCP speaks JSON-RPC on it.
func newLogger(cfg *config.Config, mode string) (*logrus.Logger, error) {
	var console io.Writer = os.Stdout
	switch mode {
	case modeTUI:
		console = nil
	case modeMCP:
		console = os.Stderr
	}
	return logging.New(cfg.Logging.Level, cfg.Logging.LogPath, console)
}
