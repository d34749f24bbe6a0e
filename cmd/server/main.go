// gocast server: session backend for the Farcaster mini-app. Derives a
// deposit/trading address per connected wallet, keeps sessions in
// memory (optionally mirrored to Redis) and proxies trading calls to
// the Polymarket CLOB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	clobclient "github.com/betcast/gocast/clob/client"
	clobtypes "github.com/betcast/gocast/clob/types"
	"github.com/betcast/gocast/internal/chain"
	"github.com/betcast/gocast/internal/server"
	"github.com/betcast/gocast/internal/session"
	"github.com/betcast/gocast/internal/wallet"
	"github.com/betcast/gocast/pkg/config"
	"github.com/betcast/gocast/pkg/logger"
	"github.com/betcast/gocast/pkg/secretstore"
	"github.com/betcast/gocast/pkg/shutdown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gocast: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	// .env is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return err
	}

	sd := shutdown.NewManager()

	secrets, err := openSecretStore(cfg.SecretDBPath)
	if err != nil {
		return fmt.Errorf("open secret store: %w", err)
	}
	sd.OnShutdown(func(context.Context) { _ = secrets.Close() })

	serverKey, err := wallet.LoadServerKey(secrets)
	if err != nil {
		return fmt.Errorf("load server key: %w", err)
	}
	deriver, err := wallet.NewDeriver(serverKey)
	if err != nil {
		return err
	}
	logger.Infof("server address %s", deriver.ServerAddress().Hex())

	store := session.NewStore(deriver, cfg.Session.TTL, cfg.Session.SweepInterval)
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mirror, err := session.NewRedisMirror(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			cancel()
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		store.SetMirror(mirror)
		if err := mirror.Restore(ctx, store); err != nil {
			logger.Warnf("session restore: %v", err)
		}
		cancel()
		sd.OnShutdown(func(context.Context) { _ = mirror.Close() })
	}
	store.Start()
	sd.OnShutdown(func(context.Context) { store.Close() })

	clob := clobclient.New(cfg.Upstream.ClobHost, cfg.Upstream.GammaHost, &clobclient.AuthConfig{
		PrivateKey: serverKey,
		ChainID:    clobtypes.Chain(cfg.Upstream.ChainID),
	})

	var reader *chain.Reader
	if cfg.Upstream.PolygonRPC != "" {
		contracts, err := clobclient.GetContractConfig(clob.ChainID())
		if err != nil {
			return err
		}
		reader, err = chain.NewReader(cfg.Upstream.PolygonRPC, common.HexToAddress(contracts.Collateral))
		if err != nil {
			return fmt.Errorf("dial polygon rpc: %w", err)
		}
		sd.OnShutdown(func(context.Context) { reader.Close() })
	}

	srv := server.New(server.Config{
		DegradedMode:      cfg.DegradedMode,
		ConnectRatePerMin: cfg.ConnectRatePerMin,
	}, store, deriver, clob, reader)

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sd.OnShutdown(func(ctx context.Context) { _ = httpServer.Shutdown(ctx) })

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sd.Shutdown(ctx)
	return nil
}

// openSecretStore opens the Badger store, encrypted when
// GOCAST_SECRET_DB_KEY is set.
func openSecretStore(path string) (*secretstore.Store, error) {
	encKey, err := secretstore.ParseKey(os.Getenv("GOCAST_SECRET_DB_KEY"))
	if err != nil {
		return nil, err
	}
	return secretstore.Open(secretstore.OpenOptions{
		Path:          path,
		EncryptionKey: encKey,
	})
}
