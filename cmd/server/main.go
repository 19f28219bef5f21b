package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/config"
	"github.com/jbcholat-Dev/Estimation-immo/internal/api"
	"github.com/jbcholat-Dev/Estimation-immo/internal/app"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := app.NewLogger(cfg.LogLevel)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize valuation service")
	}
	defer a.Close()

	handler := api.NewHandler(a.Service, a.Store, a.Listings, a.Rates, logger)
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	logger.Infof("Starting server on %s", cfg.ListenAddr())
	if err := api.Run(ctx, cfg.ListenAddr(), router); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return
	}
	logger.Info("Server stopped")
}
