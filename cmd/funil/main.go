package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	charmLog "github.com/charmbracelet/log"
	json "github.com/goccy/go-json"

	"github.com/nexocrm/funil/internal/adapters/crm"
	"github.com/nexocrm/funil/internal/adapters/mcpapi"
	"github.com/nexocrm/funil/internal/app"
	"github.com/nexocrm/funil/internal/config"
	"github.com/nexocrm/funil/internal/platform"
	"github.com/nexocrm/funil/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("funil", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		apiURL     string
		token      string
		pipelineID string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("FUNIL_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&apiURL, "api", "", "CRM API base URL")
	fs.StringVar(&token, "token", "", "CRM API bearer token")
	fs.StringVar(&pipelineID, "pipeline", "", "pipeline id to open on start")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (funil-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "funil %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: "funil",
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "log: %s\n", paths.LogPath)
		return nil
	case "", "export", "serve":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("FUNIL_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
			if err := config.EnsureConfigDir(configPath); err != nil {
				return fmt.Errorf("ensure config dir: %w", err)
			}
		}
	}
	cfg, err := config.Load(configPath, config.Default())
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}

	if apiURL == "" {
		apiURL = strings.TrimSpace(os.Getenv("FUNIL_API_URL"))
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if token == "" {
		token = strings.TrimSpace(os.Getenv("FUNIL_TOKEN"))
	}
	if token != "" {
		cfg.API.Token = token
	}
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return errors.New("api base url is required (flag -api, env FUNIL_API_URL, or config [api] base_url)")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// The board owns the terminal; runtime logs go to the data-dir file so the
	// TUI stays clean.
	logToFile := command == ""
	logger, closeLog, err := newRuntimeLogger(stderr, devMode, logToFile, paths.LogPath)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() {
		if closeErr := closeLog(); closeErr != nil && !logToFile {
			_, _ = fmt.Fprintf(stderr, "warning: close log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved",
		"dev_mode", devMode, "command", command,
		"config_path", configPath, "api", cfg.API.BaseURL)

	client, err := crm.New(crm.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("create crm client: %w", err)
	}
	svc := app.NewService(client, app.ServiceConfig{ColumnLimit: cfg.Board.ColumnLimit}, nil, logger)
	logger.Debug("board service initialized", "column_limit", cfg.Board.ColumnLimit)

	switch command {
	case "export":
		logger.Info("command flow start", "command", "export")
		if err := runExport(ctx, svc, pipelineID, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "export", "err", err)
			return fmt.Errorf("run export command: %w", err)
		}
		logger.Info("command flow complete", "command", "export")
		return nil
	case "serve":
		logger.Info("command flow start", "command", "serve")
		if err := runServe(ctx, svc, fs.Args()[1:], cfg.Serve, logger); err != nil {
			logger.Error("command flow failed", "command", "serve", "err", err)
			return fmt.Errorf("run serve command: %w", err)
		}
		logger.Info("command flow complete", "command", "serve")
		return nil
	}

	m := tui.NewModel(
		svc,
		tui.WithRevealRows(cfg.Board.ScrollRevealRows),
		tui.WithListPageSize(cfg.List.PageSize),
		tui.WithInitialPipeline(pipelineID),
		tui.WithKeyConfig(tui.KeyConfig{
			GrabCard:   cfg.Keys.GrabCard,
			SearchMode: cfg.Keys.SearchMode,
			ListView:   cfg.Keys.ListView,
			NewCard:    cfg.Keys.NewCard,
			YankEmail:  cfg.Keys.YankEmail,
		}),
	)
	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runExport writes one board snapshot as JSON.
func runExport(ctx context.Context, svc *app.Service, pipelineID string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("funil export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		outPath string
		search  string
	)
	fs.StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	fs.StringVar(&search, "search", "", "filter opportunities before export")
	fs.StringVar(&pipelineID, "pipeline", pipelineID, "pipeline id to export")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse export flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected export arguments: %v", fs.Args())
	}

	if pipelineID == "" {
		pipelines, err := svc.ListPipelines(ctx)
		if err != nil {
			return fmt.Errorf("list pipelines: %w", err)
		}
		if len(pipelines) == 0 {
			return errors.New("no pipelines available to export")
		}
		pipelineID = pipelines[0].ID
	}

	board, err := svc.LoadBoard(ctx, pipelineID, search)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	snap := app.BuildSnapshot(board, time.Now().UTC())
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runServe exposes the board over streamable MCP HTTP until interrupted.
func runServe(ctx context.Context, svc *app.Service, args []string, defaults config.ServeConfig, logger *charmLog.Logger) error {
	fs := flag.NewFlagSet("funil serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		listen   string
		endpoint string
	)
	fs.StringVar(&listen, "listen", defaults.Listen, "HTTP listen address")
	fs.StringVar(&endpoint, "endpoint", defaults.Endpoint, "MCP streamable HTTP endpoint")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse serve flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected serve arguments: %v", fs.Args())
	}

	handler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    "funil",
		ServerVersion: version,
		EndpointPath:  endpoint,
	}, svc)
	if err != nil {
		return fmt.Errorf("create mcp handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp server listening", "addr", listen, "endpoint", endpoint)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve mcp http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("mcp server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown mcp http: %w", err)
	}
	return nil
}

// newRuntimeLogger builds the charm logger, optionally sinking to the data-dir
// log file instead of stderr.
func newRuntimeLogger(stderr io.Writer, devMode, toFile bool, logPath string) (*charmLog.Logger, func() error, error) {
	level := charmLog.InfoLevel
	if devMode {
		level = charmLog.DebugLevel
	}
	noop := func() error { return nil }

	if !toFile {
		logger := charmLog.NewWithOptions(stderr, charmLog.Options{
			Level:           level,
			Prefix:          "funil",
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Formatter:       charmLog.TextFormatter,
		})
		return logger, noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          "funil",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	return logger, logFile.Close, nil
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// parseBoolEnv reads a boolean environment toggle.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
