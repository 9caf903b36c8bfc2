// Command worldserver boots the Lobby, Zone, and Chat listeners, the Global
// server broker, and their shared collaborators from one YAML config file
// (§6). It is the only process this module ships: each socket type is
// accepted on its own listener, and the Zone and Chat sockets feed the same
// broker instance.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aetherforge/worldserver/internal/auth"
	"github.com/aetherforge/worldserver/internal/config"
	"github.com/aetherforge/worldserver/internal/connection"
	"github.com/aetherforge/worldserver/internal/event"
	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/globalserver"
	"github.com/aetherforge/worldserver/internal/persist"
	"github.com/aetherforge/worldserver/internal/script"
)

const configPath = "config.yaml"

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "worldserver: building logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("worldserver: shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, log); err != nil {
		log.Error("worldserver: fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	path := configPath
	if p := os.Getenv("WORLDSERVER_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("worldserver: config loaded",
		zap.String("world_listen", fmt.Sprintf("%s:%d", cfg.World.ListenAddress, cfg.World.Port)),
		zap.String("lobby_listen", fmt.Sprintf("%s:%d", cfg.Lobby.ListenAddress, cfg.Lobby.Port)))

	db, err := persist.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	log.Info("worldserver: database connected")

	if err := persist.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("worldserver: migrations applied")

	store := persist.NewCharacterRepository(db.Pool())

	// A real item/action/weather sheet reader is out of scope (§1); Fake
	// ships the collaborator's seam and nothing else.
	data := gamedata.NewFake()

	host, err := script.NewHost(cfg.World.ScriptsLocation, log)
	if err != nil {
		return fmt.Errorf("loading scripts: %w", err)
	}
	defer host.Close()
	log.Info("worldserver: scripts loaded", zap.String("dir", cfg.World.ScriptsLocation))

	server := globalserver.New(data, host, log)
	events := event.NewRegistry(host, log)

	authStore := auth.NewFake()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return serveLobby(gctx, cfg, authStore, log)
	})

	g.Go(func() error {
		return serveZone(gctx, cfg, server, store, events, log)
	})

	g.Go(func() error {
		return serveChat(gctx, cfg, server, log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveLobby runs the Lobby listener's accept loop until ctx is cancelled.
func serveLobby(ctx context.Context, cfg config.Config, authStore auth.Store, log *zap.Logger) error {
	addr := fmt.Sprintf("%s:%d", cfg.Lobby.ListenAddress, cfg.Lobby.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on lobby address %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info("worldserver: lobby listener started", zap.String("address", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("worldserver: lobby accept failed", zap.Error(err))
			continue
		}
		go func() {
			defer conn.Close()
			if err := connection.ServeLobby(ctx, conn, authStore, log); err != nil {
				log.Warn("worldserver: lobby connection ended", zap.Error(err), zap.String("remote", conn.RemoteAddr().String()))
			}
		}()
	}
}

// nextClientId hands out monotonically increasing ClientIds across the
// Zone listener's lifetime; it is only ever touched from the accept loop's
// own goroutine spawns, but atomic keeps it safe regardless.
var nextClientId atomic.Uint64

// serveZone runs the Zone listener's accept loop until ctx is cancelled.
func serveZone(ctx context.Context, cfg config.Config, server *globalserver.Server, store persist.Store, events *event.Registry, log *zap.Logger) error {
	addr := fmt.Sprintf("%s:%d", cfg.World.ListenAddress, cfg.World.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on zone address %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	opts := connection.ZoneOptions{
		Compression: cfg.World.EnablePacketCompression,
		Obfuscation: cfg.World.EnablePacketObfuscation,
	}

	log.Info("worldserver: zone listener started", zap.String("address", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("worldserver: zone accept failed", zap.Error(err))
			continue
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		}

		clientId := globalserver.ClientId(nextClientId.Add(1))
		go func() {
			defer conn.Close()
			if err := connection.ServeZone(ctx, conn, clientId, server, store, events, opts, log); err != nil {
				log.Warn("worldserver: zone connection ended", zap.Error(err), zap.String("remote", conn.RemoteAddr().String()))
			}
		}()
	}
}

// serveChat runs the Chat listener's accept loop until ctx is cancelled.
func serveChat(ctx context.Context, cfg config.Config, server *globalserver.Server, log *zap.Logger) error {
	addr := fmt.Sprintf("%s:%d", cfg.Chat.ListenAddress, cfg.Chat.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on chat address %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info("worldserver: chat listener started", zap.String("address", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("worldserver: chat accept failed", zap.Error(err))
			continue
		}
		go func() {
			defer conn.Close()
			if err := connection.ServeChat(ctx, conn, server, log); err != nil {
				log.Warn("worldserver: chat connection ended", zap.Error(err), zap.String("remote", conn.RemoteAddr().String()))
			}
		}()
	}
}
