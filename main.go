package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ACondori95/admin-tarea/config"
	"github.com/ACondori95/admin-tarea/handlers"
	"github.com/ACondori95/admin-tarea/logging"
	"github.com/ACondori95/admin-tarea/repositories"
	"github.com/ACondori95/admin-tarea/services"
	"github.com/ACondori95/admin-tarea/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}
	logging.InitLogger(cfg.LogFile, cfg.LogLevel)
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting task manager API...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
	db, err := repositories.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	cancel()
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB database '%s'", cfg.MongoDBName)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	router := handlers.NewRouter(handlers.Services{
		Users:      services.NewUserService(db.Users, db.Tasks, tokens, utils.BcryptHasher{}, cfg.AdminInviteToken),
		Tasks:      services.NewTaskService(db.Tasks, db.Users),
		Dashboards: services.NewDashboardService(db.Tasks),
		Reports:    services.NewReportService(db.Tasks, db.Users),
		Ping:       db.Ping,
		ClientURL:  cfg.ClientURL,
		DBTimeout:  cfg.DBTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logging.Logger.Infof("Event ID: SERVER_SHUTDOWN, Description: Received %s, shutting down", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: Graceful shutdown failed: %v", err)
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: DB_DISCONNECT_FAILED, Description: MongoDB disconnect failed: %v", err)
	}
	logging.Logger.Info("Event ID: SERVER_STOPPED, Description: Server stopped")
}
