package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/yatrago/bus-reservation/internal/config"
	"github.com/yatrago/bus-reservation/internal/database"
	"github.com/yatrago/bus-reservation/internal/handler"
	"github.com/yatrago/bus-reservation/internal/middleware"
	"github.com/yatrago/bus-reservation/internal/queue"
	"github.com/yatrago/bus-reservation/internal/repository"
	"github.com/yatrago/bus-reservation/internal/router"
)

func main() {
	// .env is a development convenience; in production the variables come
	// from the environment and the file is simply absent.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	buses := repository.NewBusRepo(db)
	bookings := repository.NewBookingRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(buses)
	operatorH := handler.NewOperatorHandler(buses, bookings)
	bookingH := handler.NewBookingHandler(cfg, buses, bookings)
	adminH := handler.NewAdminHandler(users, tokens, bookings)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, config.LoadCacheConfig(), rdb)
	router.RegisterOperator(e, operatorH, cfg.JWTSecret)
	router.RegisterCustomer(e, bookingH, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// Notification consumer; runs its own reconnect loop for the process
	// lifetime.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
