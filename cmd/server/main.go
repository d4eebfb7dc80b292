package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dokuflow/document-pipeline/api/handlers"
	"github.com/dokuflow/document-pipeline/api/routes"
	"github.com/dokuflow/document-pipeline/config"
	"github.com/dokuflow/document-pipeline/internal/service/document"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/server.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	rt, err := document.BuildRuntime(context.Background(), log)
	if err != nil {
		log.Fatal("Failed to build pipeline", logger.Error(err))
	}
	defer rt.Store.Close()
	defer rt.Cache.Close()

	serverCfg := config.GetServerConfig()

	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database":   rt.Store,
		"cache":      rt.Cache,
		"extraction": rt.AI,
	}, log)
	metrics := handlers.NewMetricsHandler(rt.Queue, nil, config.GetWorkerConfig().Concurrency, log)
	h := handlers.NewHandlers(rt.Service, health, metrics, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = serverCfg.MaxUploadBytes
	routes.SetupRoutes(r, h, serverCfg.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + serverCfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("port", serverCfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
