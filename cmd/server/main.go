package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seating/internal/arbiter"
	"github.com/iliyamo/showtime-seating/internal/config"
	"github.com/iliyamo/showtime-seating/internal/database"
	"github.com/iliyamo/showtime-seating/internal/handler"
	"github.com/iliyamo/showtime-seating/internal/layout"
	"github.com/iliyamo/showtime-seating/internal/middleware"
	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/queue"
	"github.com/iliyamo/showtime-seating/internal/realtime"
	"github.com/iliyamo/showtime-seating/internal/repository"
	"github.com/iliyamo/showtime-seating/internal/router"
	"github.com/iliyamo/showtime-seating/internal/scheduler"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the rate limiter and the cross-instance event bridge.
	// nil means degraded single-instance operation, not a startup failure.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting off and realtime local only")
	}

	hub := realtime.NewHub()
	bridge := realtime.NewRedisBridge(rdb, hub)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("realtime bridge stopped: %v", err)
		}
	}()

	var (
		store     arbiter.StatusStore
		theaters  *repository.TheaterRepo
		seats     *repository.SeatRepo
		showtimes *repository.ShowtimeRepo
	)
	switch cfg.StoreBackend {
	case "memory":
		// Local development profile: seat state lives in process and the
		// catalog/admin surfaces stay unregistered.  A demo showtime is
		// seeded so the reservation flow works out of the box.
		mem := repository.NewMemStatusStore()
		demo := layout.Generate(model.SeatLayout{
			Rows:        8,
			SeatsPerRow: 12,
			VIPRows:     []string{"G", "H"},
		})
		for i := range demo {
			demo[i].ID = uint64(i + 1)
			demo[i].TheaterID = 1
		}
		if err := mem.Initialize(ctx, 1, demo, model.PriceTable{StandardCents: 1500}); err != nil {
			log.Fatalf("seed demo showtime: %v", err)
		}
		store = mem
		log.Println("store backend: memory, demo showtime 1 seeded (catalog and admin routes disabled)")
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer func() { _ = db.Close() }()
		theaters = repository.NewTheaterRepo(db)
		seats = repository.NewSeatRepo(db)
		showtimes = repository.NewShowtimeRepo(db)
		store = repository.NewSeatStatusRepo(db)
	}

	arb := arbiter.New(store, hub)

	sweeper := scheduler.NewExpiry(arb, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// The booked-events consumer is optional plumbing for local setups
	// where no dedicated worker runs; it retries its broker connection
	// internally.
	if os.Getenv("RUN_BOOKED_CONSUMER") == "true" {
		go func() {
			if err := queue.StartBookedConsumer(); err != nil {
				log.Printf("booked consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true

	limiterCfg := config.LoadRateLimitConfig()
	var limiter echo.MiddlewareFunc
	if limiterCfg.Enabled && rdb != nil {
		limiter = middleware.NewTokenBucket(limiterCfg, rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterReservation(e, handler.NewReservationHandler(arb, hub, showtimes, cfg.ReserveTTL), cfg.JWTSecret, limiter)
	if theaters != nil {
		router.RegisterCatalog(e, handler.NewCatalogHandler(theaters, showtimes))
		router.RegisterAdmin(e, handler.NewAdminHandler(theaters, seats, showtimes, arb), cfg.JWTSecret)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, backend=%s)", addr, cfg.Env, cfg.StoreBackend)
	go func() {
		if err := e.Start(addr); err != nil && ctx.Err() == nil {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
