package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/adapter/events"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/adapter/reply"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/agents"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/repository"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
	handler "github.com/mr-gyb/1.9-Updated-Backend/internal/transport/http"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/transport/rpc"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/transport/ws"
	"github.com/mr-gyb/1.9-Updated-Backend/policy"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and JSON-RPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load())
		},
	}

	flags := cmd.Flags()
	flags.Int("http-port", 8080, "HTTP and WebSocket port")
	flags.Int("rpc-port", 8081, "JSON-RPC port")
	flags.String("database-url", "file:gyb.db?cache=shared&mode=rwc", "SQLite DSN")
	flags.Int("reply-delay-ms", 1000, "delay before the assistant replies")
	flags.String("reply-mode", reply.ModeEcho, "assistant reply backend (echo or openai)")
	flags.String("nats-url", "", "NATS server for conversation events; empty disables")
	flags.String("policy-file", "", "rego send policy; empty uses the built-in one")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Int("http_port", cfg.HTTPPort).
		Int("rpc_port", cfg.RPCPort).
		Str("database", cfg.DatabaseURL).
		Str("reply_mode", cfg.ReplyMode).
		Msg("starting conversation backend")

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize policy engine
	var policyEngine *policy.Engine
	if cfg.PolicyFile != "" {
		policyEngine, err = policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	} else {
		policyEngine, err = policy.NewEngine(ctx, policy.DefaultPolicy)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize reply backend
	responder, err := reply.NewResponder(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize responder: %w", err)
	}

	// Initialize event publisher
	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer publisher.Close()

	catalog := agents.NewCatalog()
	sessions := session.NewManager(gateway.New(db), session.Options{
		ReplyDelay:   cfg.ReplyDelay,
		LoadTimeout:  cfg.LoadTimeout,
		DefaultAgent: cfg.DefaultAgent,
		Responder:    responder,
		Policy:       policyEngine,
		Publisher:    publisher,
		Agents:       catalog,
	})
	defer sessions.Close()

	// Initialize service and transports
	svc := service.New(db, catalog, sessions, cfg)
	hub := ws.NewHub()
	httpServer := handler.NewServer(svc, ws.NewServer(svc, hub, ws.DefaultOptions()))
	rpcServer, err := rpc.NewServer(svc)
	if err != nil {
		return fmt.Errorf("failed to initialize rpc server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		hub.Run(egCtx)
		return nil
	})

	eg.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.RPCPort)
		log.Info().Str("addr", addr).Msg("RPC server listening")
		if err := rpcServer.Start(addr); err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to shutdown HTTP server gracefully")
		}
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to shutdown RPC server gracefully")
		}
		return nil
	})

	err = eg.Wait()
	log.Info().Msg("conversation backend stopped")
	return err
}

