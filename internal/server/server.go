package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/admin"
	"github.com/sudo-init-do/servicehub/internal/alerts"
	"github.com/sudo-init-do/servicehub/internal/audit"
	"github.com/sudo-init-do/servicehub/internal/auth"
	"github.com/sudo-init-do/servicehub/internal/booking"
	"github.com/sudo-init-do/servicehub/internal/catalog"
	"github.com/sudo-init-do/servicehub/internal/chat"
	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/db"
	"github.com/sudo-init-do/servicehub/internal/mq"
	"github.com/sudo-init-do/servicehub/internal/review"
	"github.com/sudo-init-do/servicehub/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// Server owns the HTTP API and every background component it runs.
type Server struct {
	cfg    config.Config
	echo   *echo.Echo
	pool   *pgxpool.Pool
	bus    mq.Backend
	relay  *chat.Relay
	queue  *asynq.Client
	worker *alerts.Worker
	audit  *audit.Auditor
	cron   *cron.Cron
}

// New connects to every backing service and wires the API.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	pool, err := db.Open(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, pool: pool}

	s.bus, err = mq.Open(ctx, cfg.Bus)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open message bus: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.bus.Close()
		pool.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}

	var enqueuer alerts.Enqueuer
	if cfg.Redis.Addr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password}
		s.queue = asynq.NewClient(redisOpt)
		s.worker = alerts.NewWorker(redisOpt, alerts.NewMailer(cfg.Mail), alerts.NewSMSSender(cfg.Twilio))
		enqueuer = s.queue
	} else {
		log.Println("[notify] REDIS_ADDR not set, notifications will be logged only")
	}

	// Stores
	accountStore := account.NewStore(pool)
	catalogStore := catalog.NewStore(pool)
	bookingStore := booking.NewStore(pool)
	reviewStore := review.NewStore(pool)
	chatStore := chat.NewStore(pool)
	inbox := alerts.NewInboxStore(pool)

	// Services
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.PasswordResetTTL)
	dispatcher := alerts.NewDispatcher(enqueuer, accountStore, inbox, cfg.AppURL, cfg.Auth.PasswordResetTTL)
	authService := auth.NewService(accountStore, tokens, dispatcher, cfg.AppURL)
	accountService := account.NewService(accountStore)
	catalogService := catalog.New(catalogStore)
	engine := booking.New(bookingStore, dispatcher)
	aggregator := review.New(reviewStore, bookingStore)
	hub := chat.NewHub()
	s.relay = chat.NewRelay(chatStore, s.bus, hub)
	console := admin.New(accountStore, admin.NewStore(pool))
	s.audit = audit.New(audit.NewStore(pool), aggregator, dispatcher)

	s.echo = NewEcho()
	Register(s.echo, Handlers{
		Auth:          auth.NewHandler(authService),
		Accounts:      account.NewHandler(accountService),
		Catalog:       catalog.NewHandler(catalogService),
		Bookings:      booking.NewHandler(engine),
		Reviews:       review.NewHandler(aggregator),
		Chat:          chat.NewHandler(s.relay, hub),
		Notifications: alerts.NewInboxHandler(inbox),
		Uploads:       storage.NewHandler(objects),
		Admin:         admin.NewHandler(console),
	}, tokens, accountStore, s.ready)

	return s, nil
}

func (s *Server) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

// Run starts the background components and serves HTTP until SIGINT or
// SIGTERM, then shuts everything down.
func (s *Server) Run() error {
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	go s.relay.Run(busCtx)

	if s.worker != nil {
		if err := s.worker.Start(); err != nil {
			return fmt.Errorf("start notification worker: %w", err)
		}
	}

	var err error
	s.cron, err = s.audit.Schedule(s.cfg.AuditCron)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		log.Printf("API server listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	case err := <-serveErr:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.shutdown(ctx, stopBus)
}

// shutdown stops echo, then the bus subscriber, the notification worker, the
// audit scheduler and finally the database pool.
func (s *Server) shutdown(ctx context.Context, stopBus context.CancelFunc) error {
	err := s.echo.Shutdown(ctx)

	stopBus()
	if cerr := s.bus.Close(); cerr != nil {
		log.Printf("[mq] close: %v", cerr)
	}

	if s.worker != nil {
		s.worker.Shutdown()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}

	if s.cron != nil {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
		}
	}

	s.pool.Close()
	log.Println("shutdown complete")
	return err
}
