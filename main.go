// Command memorygame serves the memory card game.
//
// Commands:
//  1. "serve" (default) – HTTP server with the REST API, WebSocket updates, the browser client and an /mcp endpoint
//  2. "mcp" – MCP stdio server; reuses a running API server or starts an internal one
//  3. "play" – single-player game in the terminal
//
// Settings come from a YAML file, MEMORY_* environment variables and flags,
// with optional ngrok tunneling for sharing a session outside the LAN.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/memorygame/api"
	"github.com/wricardo/memorygame/game/config"
	"github.com/wricardo/memorygame/game/engine"
	"github.com/wricardo/memorygame/game/service"
	"github.com/wricardo/memorygame/game/session"
	"github.com/wricardo/memorygame/transport/mcp"
	"github.com/wricardo/memorygame/transport/websocket"
	"github.com/wricardo/memorygame/tui"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memory Game Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "memorygame.yaml",
			Usage:   "settings file (missing file uses defaults)",
			Sources: cli.EnvVars("MEMORY_CONFIG"),
		},
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "memorygame",
		Usage:          AppName,
		Version:        Version,
		Flags:          globalFlags(),
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run HTTP server with API, WebSocket, and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					settings, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return runHTTPServer(ctx, settings)
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					settings, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return runStdioMCP(ctx, settings)
				},
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "easy, medium or hard"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					settings, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return runPlay(ctx, settings, cmd.String("difficulty"))
				},
			},
		},
	}
}

// loadSettings resolves the settings file and environment, then applies flags
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Settings{}, err
	}

	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("ngrok") {
		settings.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if v := cmd.String("ngrok-auth"); v != "" {
		settings.Ngrok.AuthToken = v
	}
	if v := cmd.String("ngrok-domain"); v != "" {
		settings.Ngrok.Domain = v
	}
	if settings.Ngrok.AuthToken == "" {
		settings.Ngrok.AuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}

	if settings.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return settings, nil
}

// initializeServices wires the session manager and the game service, and
// starts the cleanup routine that prunes stale sessions until ctx is done.
func initializeServices(ctx context.Context, settings config.Settings, notifier service.Notifier) service.GameService {
	sessionManager := session.NewManager()

	gameService := service.NewGameService(sessionManager, service.Options{
		DefaultDifficulty: settings.DefaultDifficulty,
		MismatchDelay:     settings.MismatchDelay,
		Notifier:          notifier,
	})

	go sessionCleanupRoutine(ctx, sessionManager, settings.CleanupInterval, settings.SessionTTL)

	return gameService
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an
// /mcp proxy endpoint. When ngrok is enabled it also provisions a public
// tunnel and uses its URL for share links.
func runHTTPServer(ctx context.Context, settings config.Settings) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	gameService := initializeServices(ctx, settings, hub)
	apiServer := api.NewServer(gameService, hub, api.WithStaticDir(settings.StaticDir))

	addr := settings.Addr()
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("Starting %s v%s", AppName, Version)
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("Game UI: http://%s/", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings.Ngrok, mainRouter, apiServer)
		}()
	}

	var err error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case <-ctx.Done():
		log.Println("Context cancelled. Shutting down...")
	case err = <-serveErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP server shutdown error: %v", shutdownErr)
	}

	wg.Wait()
	log.Println("Server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, settings config.NgrokSettings, handler http.Handler, apiServer *api.Server) {
	if settings.AuthToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Domain))
		log.Printf("Using custom ngrok domain: %s", settings.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	apiServer.SetPublicURL(ngrokURL)
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  Game UI (ngrok): %s/", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on the configured address; otherwise it starts an internal API on
// a random loopback port and targets that.
func runStdioMCP(ctx context.Context, settings config.Settings) error {
	externalURL := "http://" + settings.Addr()
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil {
		resp.Body.Close()
	}
	if err == nil && resp.StatusCode < 500 {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		internalURL, shutdown, err := startInternalServer(ctx, settings)
		if err != nil {
			return err
		}
		defer shutdown()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// startInternalServer serves the API on 127.0.0.1 with an OS-assigned port
func startInternalServer(ctx context.Context, settings config.Settings) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	gameService := initializeServices(ctx, settings, hub)
	httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()

	addr := listener.Addr().String()
	log.Printf("Internal HTTP server on %s for MCP stdio", addr)

	shutdown := func() {
		cancel()
		httpServer.Close()
	}
	return "http://" + addr, shutdown, nil
}

// runPlay starts a terminal game
func runPlay(ctx context.Context, settings config.Settings, difficulty string) error {
	d := settings.DefaultDifficulty
	if difficulty != "" {
		parsed, err := engine.ParseDifficulty(difficulty)
		if err != nil {
			return err
		}
		d = parsed
	}

	game, err := engine.New(engine.WithDifficulty(d))
	if err != nil {
		return err
	}

	// bubbletea owns the terminal; keep log output from corrupting it
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	return tui.Run(ctx, game, settings.MismatchDelay)
}
