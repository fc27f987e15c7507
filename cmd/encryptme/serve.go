package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/encryptme/adapters/events"
	"github.com/layer-3/encryptme/adapters/ledger/memledger"
	"github.com/layer-3/encryptme/adapters/tokenizer"
	"github.com/layer-3/encryptme/config"
	"github.com/layer-3/encryptme/ports"
	"github.com/layer-3/encryptme/service"
	"github.com/layer-3/encryptme/transport/http"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP gateway over an in-process ledger",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "listen address"},
	},
	Action: serve,
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.HTTP.Addr = c.String("addr")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventPub, closeEvents, err := eventPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer closeEvents()

	// Tokens only need to outlive the process
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate token key: %w", err)
	}

	ledger := memledger.New(memledger.WithPublisher(eventPub))
	authService := service.NewAuthService(tokenizer.NewJWTTokenizer(signKey), ledger, eventPub).
		WithTokenTTL(cfg.HTTP.TokenTTL)
	router := http.SetupRouter(authService, ledger, ledger)

	srv := &nethttp.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("Gateway listening", "addr", cfg.HTTP.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// eventPublisher streams events to Redis when configured, and drops them otherwise
func eventPublisher(cfg config.Events) (ports.EventPublisher, func(), error) {
	if cfg.RedisURL == "" {
		return events.Discard{}, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}
	closer := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Failed to close event publisher", "err", err)
		}
		client.Close()
	}
	return events.NewWatermillPublisher(publisher, cfg.Prefix), closer, nil
}
