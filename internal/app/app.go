// Package app wires every collaborator together and runs the server:
// build the logging router first, construct the domain objects (the
// directory + reconciler pair), start the background reconciliation
// loop, build the HTTP handler, and serve until the process is told to
// stop.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"skyoffice-presence/server/internal/adminapi"
	"skyoffice-presence/server/internal/config"
	"skyoffice-presence/server/internal/directory"
	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/logging/sinks"
	"skyoffice-presence/server/internal/reconciler"
	"skyoffice-presence/server/internal/registryclient"
	"skyoffice-presence/server/internal/secretresolver"
	"skyoffice-presence/server/internal/secretstore"
	"skyoffice-presence/server/internal/store"
	"skyoffice-presence/server/internal/wsgateway"
)

// Run loads configuration, wires every collaborator, and serves the
// admin HTTP API until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	router := logging.NewRouter(logCfg, map[string]logging.Sink{
		"console": sinks.NewConsole(os.Stdout),
	})

	st, err := store.Open(cfg.DataDir + "/presence.db")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	registry := registryclient.New(cfg.RegistryServiceURL, cfg.RegistryServiceToken, router)

	staticSecret := firstNonEmptyEnv(config.PresenceSecretNames...)
	secretStore := secretstore.NewChain(
		secretstore.NewStaticFromEnviron(os.Environ()),
		secretstore.NewFileOrHTTP(),
	)
	resolver := secretresolver.New([]byte(staticSecret), registry, secretStore, router)

	dir := directory.New(cfg.OfficeBaseDomain, st, router)
	gateway := &wsgateway.Gateway{Directory: dir, Resolver: resolver, Log: router}

	rc := reconciler.New(reconciler.Config{
		SyncInterval:     time.Duration(cfg.RegistrySyncIntervalMs) * time.Millisecond,
		OfficeBaseDomain: cfg.OfficeBaseDomain,
		DefaultVoiceID:   cfg.DefaultAgentVoiceID,
	}, registry, dir, st, router)

	rc.Bootstrap(ctx)
	go rc.Run(ctx)

	grid := loadGrid(cfg.TileMapPath, cfg.GridSidecarPath, router)

	admin := &adminapi.Server{
		Directory:     dir,
		Reconciler:    rc,
		Registry:      registry,
		Store:         st,
		Grid:          grid,
		Log:           router,
		ChatBridgeURL: cfg.ChatBridgeURL,
		Connect:       gateway.HandleConnect,
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: admin.Mux()}
	log.Printf("server listening on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

func firstNonEmptyEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
