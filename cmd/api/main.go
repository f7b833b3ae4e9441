package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"buyshop/auth"
	"buyshop/config"
	"buyshop/db"
	"buyshop/notify"
	"buyshop/product"
	"buyshop/rating"
	"buyshop/trade"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("bootstrap database pool", zap.Error(err))
	}
	defer pool.Close()

	var mailer notify.Mailer
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPAddr, cfg.MailFrom)
	} else {
		mailer = notify.NewLogMailer(logger)
	}

	srv := &Server{
		log:            logger,
		validate:       validator.New(),
		authService:    auth.NewService(auth.NewRepository(pool), cfg.JWTSecret),
		listingService: product.NewService(product.NewRepository(pool)),
		ledger:         trade.NewLedger(pool, nil),
		acceptance:     trade.NewAcceptance(pool, nil),
		bids:           trade.NewBidQueries(pool),
		ratings:        rating.NewService(rating.NewRepository(pool)),
	}

	sweeper := trade.NewSweeper(pool, logger)
	go sweeper.Run(ctx, cfg.SweepInterval)

	worker := notify.NewWorker(pool, mailer, logger, cfg.OutboxAttempts)
	go worker.Run(ctx, cfg.OutboxInterval)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("api listening", zap.String("addr", cfg.HTTPAddr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
	logger.Info("api stopped")
}
