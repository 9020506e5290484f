// Command stickcarrier runs the Stick Carrier game server.
//
// It supports these commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     updates and an /mcp HTTP endpoint, and drives every level at a fixed tick rate
//  2. "mcp" runs an MCP stdio server, reusing an API server if one is
//     reachable and otherwise starting an internal one
//  3. "validate" checks level files
//  4. "journal" prints recorded gameplay events
//
// Flags control host/port, level and tuning files, debug logging, and optional
// ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/stickcarrier/api"
	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/level"
	"github.com/wricardo/stickcarrier/game/service"
	"github.com/wricardo/stickcarrier/game/session"
	"github.com/wricardo/stickcarrier/transport/mcp"
	"github.com/wricardo/stickcarrier/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Stick Carrier Server"
)

const (
	defaultTickRate   = 60
	maxFrame          = 100 * time.Millisecond
	cleanupInterval   = time.Hour
	defaultSessionTTL = 24 * time.Hour
)

// options gathers everything the server needs from flags and environment.
type options struct {
	Host        string
	Port        int
	ConfigDir   string
	TuningPath  string
	SessionsDir string
	JournalDir  string
	TickRate    int
	SessionTTL  time.Duration
	Debug       bool

	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", envErr)
	}
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app.Name, err)
		os.Exit(1)
	}
}

// appFlags are declared on the root command and inherited by every subcommand.
func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("STICK_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("STICK_PORT", "PORT"),
		},
		&cli.StringFlag{
			Name:    "config-dir",
			Value:   "configs",
			Usage:   "Directory containing level files",
			Sources: cli.EnvVars("STICK_CONFIG_DIR", "CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:    "tuning",
			Value:   "configs/tuning.yaml",
			Usage:   "Actor tuning file (YAML); defaults apply when missing",
			Sources: cli.EnvVars("STICK_TUNING"),
		},
		&cli.StringFlag{
			Name:    "sessions-dir",
			Value:   "sessions",
			Usage:   "Directory where session progress is saved",
			Sources: cli.EnvVars("STICK_SESSIONS_DIR"),
		},
		&cli.StringFlag{
			Name:    "journal-dir",
			Value:   "journal",
			Usage:   "Directory for the gameplay event journal (empty disables it)",
			Sources: cli.EnvVars("STICK_JOURNAL_DIR"),
		},
		&cli.IntFlag{
			Name:  "tick-rate",
			Value: defaultTickRate,
			Usage: "Simulation frames per second",
		},
		&cli.DurationFlag{
			Name:  "session-ttl",
			Value: defaultSessionTTL,
			Usage: "Drop sessions idle for longer than this from memory",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func optionsFrom(cmd *cli.Command) options {
	o := options{
		Host:        cmd.String("host"),
		Port:        int(cmd.Int("port")),
		ConfigDir:   cmd.String("config-dir"),
		TuningPath:  cmd.String("tuning"),
		SessionsDir: cmd.String("sessions-dir"),
		JournalDir:  cmd.String("journal-dir"),
		TickRate:    int(cmd.Int("tick-rate")),
		SessionTTL:  cmd.Duration("session-ttl"),
		Debug:       cmd.Bool("debug"),
	}
	if cmd.IsSet("ngrok") {
		o.Ngrok = cmd.Bool("ngrok")
		o.NgrokAuth = cmd.String("ngrok-auth")
		o.NgrokDomain = cmd.String("ngrok-domain")
	}
	if o.TickRate <= 0 {
		o.TickRate = defaultTickRate
	}
	return o
}

func newApp() *cli.Command {
	serve := &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server with REST API, WebSocket and MCP endpoint",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			o := optionsFrom(cmd)
			logger, err := newLogger(o.Debug, false)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServer(ctx, o, logger)
		},
	}

	return &cli.Command{
		Name:    "stickcarrier",
		Usage:   AppName,
		Version: Version,
		Flags:   appFlags(),
		Action:  serve.Action,
		Commands: []*cli.Command{
			serve,
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server backed by the REST API",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					o := optionsFrom(cmd)
					// stdout carries the protocol
					logger, err := newLogger(o.Debug, true)
					if err != nil {
						return err
					}
					defer logger.Sync()
					return runStdioMCP(ctx, o, logger)
				},
			},
			{
				Name:      "validate",
				Usage:     "Check level files for errors",
				ArgsUsage: "[FILE...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runValidate(cmd.Root().Writer, cmd.String("config-dir"), cmd.Args().Slice(), cmd.Bool("json"))
				},
			},
			{
				Name:      "journal",
				Usage:     "Print recorded gameplay events",
				ArgsUsage: "[FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "session", Usage: "Only show this session"},
					&cli.StringFlag{Name: "type", Usage: "Only show this event type"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					filter := journalFilter{
						Session: cmd.String("session"),
						Type:    level.EventType(cmd.String("type")),
					}
					return runJournal(cmd.Root().Writer, cmd.String("journal-dir"), cmd.Args().Slice(), filter)
				},
			},
		},
	}
}

// newLogger builds the process logger. Stdio mode logs to stderr only.
func newLogger(debug, stderrOnly bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if stderrOnly {
		cfg.OutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}

// services bundles the wired game stack.
type services struct {
	game     service.GameService
	sessions *session.Manager
	configs  *config.Manager
	hub      *websocket.Hub
	journal  *session.Journal
}

func (s *services) Close() error {
	var errs []error
	if err := s.sessions.SaveAllSessions(); err != nil {
		errs = append(errs, err)
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initializeServices wires the config, session and game layers together
// with the WebSocket hub as the update publisher.
func initializeServices(o options, logger *zap.Logger) (*services, error) {
	configManager, err := config.NewManager(o.ConfigDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	tuning, err := config.LoadTuning(o.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tuning: %w", err)
	}

	persistence, err := session.NewFilePersistence(o.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	sessionManager := session.NewManagerWithPersistence(persistence, logger)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	hub := websocket.NewHub(logger)
	opts := []service.Option{
		service.WithTuning(tuning),
		service.WithPublisher(hub),
		service.WithLogger(logger),
	}

	var journal *session.Journal
	if o.JournalDir != "" {
		journal = session.NewJournal(o.JournalDir)
		opts = append(opts, service.WithRecorder(journal))
	}

	gameService := service.NewGameService(sessionManager, configManager, opts...)
	hub.SetIntentHandler(func(ctx context.Context, sessionID string, in level.Intent) (*service.IntentResult, error) {
		return gameService.SendIntent(ctx, sessionID, in)
	})

	return &services{
		game:     gameService,
		sessions: sessionManager,
		configs:  configManager,
		hub:      hub,
		journal:  journal,
	}, nil
}

// newHandler mounts the REST API and the /mcp proxy endpoint.
func newHandler(svc *services, baseURL string, logger *zap.Logger) http.Handler {
	apiServer := api.NewServer(svc.game, svc.hub, logger)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runTicker advances every level at rate frames per second until ctx ends.
// Frames are measured on the wall clock and capped at maxFrame so a stall
// does not teleport actors.
func runTicker(ctx context.Context, game service.GameService, rate int) error {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt > maxFrame {
				dt = maxFrame
			}
			game.Tick(dt)
		}
	}
}

// runCleanup periodically drops sessions that have not been accessed within ttl.
func runCleanup(ctx context.Context, sessions *session.Manager, ttl time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := sessions.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("count", removed))
			}
		}
	}
}

// runServer starts the HTTP server, the hub, the simulation tick and the
// housekeeping loops, and stops them all when ctx ends or one fails.
func runServer(ctx context.Context, o options, logger *zap.Logger) error {
	svc, err := initializeServices(o, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("failed to close services", zap.Error(err))
		}
	}()

	addr := o.addr()
	handler := newHandler(svc, "http://"+addr, logger)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return runTicker(gctx, svc.game, o.TickRate)
	})

	g.Go(func() error {
		return runCleanup(gctx, svc.sessions, o.SessionTTL, logger)
	})

	g.Go(func() error {
		err := svc.configs.Watch(gctx, func(id string) {
			logger.Info("level reloaded", zap.String("level", id))
		})
		if err != nil {
			logger.Warn("level hot reload disabled", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	if o.Ngrok {
		g.Go(func() error {
			return runNgrok(gctx, o, handler, logger)
		})
	}

	return g.Wait()
}

// runNgrok serves handler through an ngrok tunnel until ctx ends. A missing
// token or a failed tunnel is logged and does not stop the server.
func runNgrok(ctx context.Context, o options, handler http.Handler, logger *zap.Logger) error {
	if o.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if o.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(o.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(o.NgrokAuth))
	if err != nil {
		logger.Warn("failed to start ngrok tunnel", zap.Error(err))
		return nil
	}
	logger.Info("ngrok tunnel established",
		zap.String("url", tun.URL()),
		zap.String("websocket", tun.URL()+"/ws?session=<session_id>"),
		zap.String("mcp", tun.URL()+"/mcp"))

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// probeAPI reports whether an API server answers at baseURL.
func probeAPI(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses an API server at the
// configured address when one answers; otherwise it starts an internal API on
// a random loopback port, with its own tick loop, and targets that.
func runStdioMCP(ctx context.Context, o options, logger *zap.Logger) error {
	baseURL := "http://" + o.addr()
	if probeAPI(ctx, baseURL) {
		logger.Info("using external API server", zap.String("url", baseURL))
		return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
	}

	svc, err := initializeServices(o, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL = "http://" + listener.Addr().String()
	logger.Info("starting internal API server", zap.String("url", baseURL))

	httpServer := &http.Server{Handler: api.NewServer(svc.game, svc.hub, logger)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svc.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return runTicker(gctx, svc.game, o.TickRate)
	})
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return httpServer.Close()
	})
	g.Go(func() error {
		defer httpServer.Close()
		logger.Info("MCP stdio server ready")
		if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
			return fmt.Errorf("MCP stdio server error: %w", err)
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
