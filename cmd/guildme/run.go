package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JamesRaphaelJRC/guildme/pkg/api"
	"github.com/JamesRaphaelJRC/guildme/pkg/chat"
	"github.com/JamesRaphaelJRC/guildme/pkg/config"
	"github.com/JamesRaphaelJRC/guildme/pkg/flash"
	"github.com/JamesRaphaelJRC/guildme/pkg/friends"
	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/notify"
	"github.com/JamesRaphaelJRC/guildme/pkg/presence"
	"github.com/JamesRaphaelJRC/guildme/pkg/push"
	"github.com/JamesRaphaelJRC/guildme/pkg/session"
	"github.com/JamesRaphaelJRC/guildme/pkg/status"
	"github.com/JamesRaphaelJRC/guildme/pkg/store"
	"github.com/JamesRaphaelJRC/guildme/pkg/tracking"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the backend and start the client",
	Long: `Connect to the GuildMe backend, open the push channel and start the
presence, chat, tracking and notification engines. An interactive prompt
on stdin drives the client.`,
	RunE: runClient,
}

func init() {
	runCmd.Flags().String("config", "", "path to YAML config file")
	runCmd.Flags().String("server", "", "backend base URL (overrides config)")
	runCmd.Flags().String("status-addr", "", "status/metrics listen address (overrides config)")
	runCmd.Flags().String("data-dir", "", "local data directory (overrides config)")
	runCmd.Flags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func runClient(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.ServerURL = v
	}
	if v, _ := cmd.Flags().GetString("status-addr"); v != "" {
		cfg.StatusAddr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stderr,
	})
	logger := log.WithComponent("main")

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := store.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer db.Close()

	clientID, err := db.ClientID()
	if err != nil {
		return fmt.Errorf("failed to load client identity: %w", err)
	}

	client, err := api.NewClient(cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pushURL := cfg.PushURL
	if pushURL == "" {
		pushURL = derivePushURL(cfg.ServerURL)
	}
	ch, err := push.Dial(ctx, pushURL, client.HTTPClient())
	if err != nil {
		return fmt.Errorf("failed to connect push channel: %w", err)
	}

	state := session.NewState()
	console := newConsole(os.Stdout)
	surface := flash.NewSurface(console)
	surface.Attach(ch)

	reporter := presence.NewReporter(client, state, console, cfg.Presence.RefreshInterval)
	reporter.Attach(ch)

	chatEngine := chat.NewEngine(client, ch, state, reporter, surface, console.Transcript())
	chatEngine.Attach(ch)

	trackEngine := tracking.NewEngine(client, state, surface, console.Map(), db, cfg.Tracking.PollInterval)

	notifyEngine := notify.NewEngine(client, ch, surface, console,
		cfg.Notifications.GeneralPolicy, cfg.Notifications.FriendRequestPolicy)
	notifyEngine.Attach(ch)

	friendMgr := friends.NewManager(client, ch, surface, console, console)
	friendMgr.Attach(ch)

	// Handlers are registered; start dispatching.
	ch.Start()
	reporter.Start(ctx)

	locator := newConsoleLocator()
	trackEngine.StartLocator(ctx, locator)
	if coords, ok, err := db.LastLocation(); err == nil && ok {
		locator.Push(coords)
	}

	var statusSrv *status.Server
	if cfg.StatusAddr != "" {
		statusSrv = status.NewServer(ch, db, Version)
		go func() {
			if err := statusSrv.Start(cfg.StatusAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	logger.Info().
		Str("client_id", clientID).
		Str("server", cfg.ServerURL).
		Msg("client started")

	deps := &replDeps{
		chat:     chatEngine,
		tracking: trackEngine,
		notify:   notifyEngine,
		friends:  friendMgr,
		presence: reporter,
		client:   client,
		db:       db,
		locator:  locator,
		console:  console,
		quit:     cancel,
	}
	go repl(ctx, os.Stdin, deps)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	trackEngine.Stop()
	chatEngine.Close(context.Background())
	reporter.Stop()
	if statusSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = statusSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	ch.Close()
	return nil
}

// derivePushURL maps the HTTP base URL onto the websocket endpoint.
func derivePushURL(serverURL string) string {
	ws := serverURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimRight(ws, "/") + "/ws"
}
