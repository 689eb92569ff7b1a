package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/calendar"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/database"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/utils"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/handler"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/mail"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/booking"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/catalog"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/notification"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/profile"
)

const (
	projectName = "booking-stadium-api"
)

func main() {
	// ローカルでは.envを読み込む。存在しなくてもよい
	if strings.EqualFold(os.Getenv("ENV"), "LOCAL") || os.Getenv("ENV") == "" {
		if err := config.LoadDotEnv(".env"); err != nil {
			log.Printf("Failed to load .env: %v", err)
		}
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v\nStack trace:\n%s", err, debug.Stack())
	}
	if err := utils.ConfigureTracing(cfg, "1.0.0"); err != nil {
		log.Fatalf("Failed to configure default X-Ray settings: %v", err)
	}

	db, err := database.NewDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database connection: %v", err)
	}
	defer db.Close()
	repos := repository.NewRepositories(repository.NewDB(db.DB, cfg.DB.LockTimeout))

	sender, err := mail.NewSender(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create mail sender: %v", err)
	}
	dispatcher := notification.NewDispatcher(repos, sender, calendar.NewEncoder(cfg.Mail.Organizer, cfg.Location()))

	router := handler.NewRouter(handler.Services{
		Booking: booking.NewService(cfg, repos, dispatcher),
		Profile: profile.NewService(repos, cfg.TxTimeout),
		Catalog: catalog.NewService(repos),
	}, cfg.Server.AllowOrigins)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: xray.Handler(xray.NewFixedSegmentNamer(projectName), router),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("%s listening on %s", projectName, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// シグナルハンドリング
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Fatalf("Server failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	log.Println("Server stopped")
}
