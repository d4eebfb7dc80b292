package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dokuflow/document-pipeline/config"
	"github.com/dokuflow/document-pipeline/internal/service/document"
	"github.com/dokuflow/document-pipeline/pkg/logger"
	"github.com/dokuflow/document-pipeline/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := document.BuildRuntime(ctx, log)
	if err != nil {
		log.Error("Failed to build pipeline", logger.Error(err))
		os.Exit(1)
	}
	defer rt.Store.Close()
	defer rt.Cache.Close()

	workerCfg := config.GetWorkerConfig()
	consumer := worker.NewConsumer(rt.Queue, rt.Store.Tenants, rt.Service, worker.Config{
		Concurrency:  workerCfg.Concurrency,
		DrainTimeout: workerCfg.DrainTimeout,
	}, log)

	consumer.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	consumer.Stop()
	log.Info("Worker stopped")
}
