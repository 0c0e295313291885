package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soundledger/royalty-service/internal/api"
	"github.com/soundledger/royalty-service/internal/api/handler"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/core/service"
	"github.com/soundledger/royalty-service/internal/infrastructure/auth"
	"github.com/soundledger/royalty-service/internal/infrastructure/config"
	"github.com/soundledger/royalty-service/internal/infrastructure/db/memory"
	mongostore "github.com/soundledger/royalty-service/internal/infrastructure/db/mongo"
	redisstore "github.com/soundledger/royalty-service/internal/infrastructure/db/redis"
	"github.com/soundledger/royalty-service/internal/infrastructure/queue"
	"github.com/soundledger/royalty-service/internal/pkg/metrics"
	"github.com/soundledger/royalty-service/internal/pkg/validation"
	"github.com/soundledger/royalty-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// store is what both persistence drivers provide.
type store interface {
	ports.TxManager
	Repositories() ports.Repositories
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty || cfg.IsDevelopment(),
		Service: "royaltyd",
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	probes := map[string]handler.Pinger{}

	// --- Persistence ---
	var (
		st            store
		notifications ports.NotificationRepository
	)
	switch cfg.Store.Driver {
	case config.DriverMemory:
		mem := memory.NewStore()
		st, notifications = mem, mem.Notifications()
		log.Warn().Msg("using in-memory store; data is lost on exit")
	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.Timeout,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("mongo disconnect")
			}
		}()
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		ms := mongostore.NewStore(client, db, log.With().Str("component", "mongo").Logger())
		st, notifications = ms, ms.Notifications()
		probes["mongodb"] = ms
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	}

	var dedup service.AccrualDeduper
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		dedup = redisstore.NewAccrualClaims(rdb, cfg.Redis.DedupTTL)
		probes["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb, 2*time.Second)
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("accrual deduplication enabled")
	}

	// --- Core ---
	repos := st.Repositories()
	v := validation.New()
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	notificationSvc := service.NewNotificationService(notifications, log.With().Str("component", "notifications").Logger())
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, cfg.Notify.Buffer, notificationSvc, m, log.With().Str("component", "dispatcher").Logger())

	authSvc := service.NewAuthService(repos.Accounts, hasher, tokens, log)
	if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Accounts:       service.NewAccountService(st, repos.Accounts, v, m, log.With().Str("component", "accounts").Logger()),
		Collaborations: service.NewCollaborationService(st, repos.Collaborations, dispatcher, v, m, log.With().Str("component", "collaborations").Logger()),
		Royalties:      service.NewRoyaltyService(st, repos, dedup, dispatcher, v, m, log.With().Str("component", "ledger").Logger()),
		Notifications:  notificationSvc,
		Auth:           authSvc,
		Hasher:         hasher,
		Verifier:       tokens,
		Validator:      v,
		Probes:         probes,
		Registerer:     reg,
		Gatherer:       reg,
		Log:            log.With().Str("component", "http").Logger(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("http server listening")
	return serve(ctx, srv, ln, dispatcher, log)
}

type backgroundRunner interface {
	Run(ctx context.Context) error
}

// serve runs srv on ln and the notification dispatcher until ctx is done.
// The dispatcher is stopped only after srv.Shutdown has returned, so that
// notifications emitted by in-flight requests are still persisted.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, dispatcher backgroundRunner, log zerolog.Logger) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer stopDispatch()
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
