package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/huwany1/KeShang/internal/concepts"
	"github.com/huwany1/KeShang/internal/db"
	"github.com/huwany1/KeShang/internal/extract"
	"github.com/huwany1/KeShang/internal/graph"
	"github.com/huwany1/KeShang/internal/jobs/documentjob"
	"github.com/huwany1/KeShang/internal/jobs/runtime"
	"github.com/huwany1/KeShang/internal/jobs/worker"
	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/metrics"
	"github.com/huwany1/KeShang/internal/pipeline"
	"github.com/huwany1/KeShang/internal/repos"
	"github.com/huwany1/KeShang/internal/storage"
	"github.com/huwany1/KeShang/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Object storage
	objectStore, err := storage.NewObjectStore(log)
	if err != nil {
		log.Fatal("Object storage init failed", "error", err)
	}
	defer objectStore.Close()
	if err := objectStore.EnsureBucket(ctx); err != nil {
		log.Fatal("Bucket init failed", "error", err)
	}

	// Neo4j
	graphClient, err := graph.NewFromEnv(log)
	if err != nil {
		log.Fatal("Neo4j init failed", "error", err)
	}
	defer graphClient.Close(ctx)
	graphWriter := graph.NewWriter(graphClient, log)

	// Metrics
	var sink metrics.Sink
	if utils.GetEnv("REDIS_ADDR", "", log) != "" {
		sink, err = metrics.NewRedisSink(log)
		if err != nil {
			log.Fatal("Redis metrics init failed", "error", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set, metrics counters disabled")
		sink = metrics.NopSink{}
	}

	// Repos
	log.Info("Setting up Repos from main...")
	documentRepo := repos.NewDocumentRepo(thePG, log)
	conceptRepo := repos.NewDocumentConceptRepo(thePG, log)
	relationRepo := repos.NewDocumentRelationRepo(thePG, log)
	taskRunRepo := repos.NewTaskRunRepo(thePG, log)

	// Extraction
	textExtractor := extract.NewTextExtractor(log)
	pdfDecoder, err := extract.NewPDFDecoder(log)
	if err != nil {
		log.Warn("PDF decoder unavailable, .pdf uploads will yield empty text", "error", err)
	} else {
		defer pdfDecoder.Close()
		textExtractor.Register("pdf", pdfDecoder)
	}
	slideDecoder := extract.NewSlideDecoder()
	textExtractor.Register("ppt", slideDecoder)
	textExtractor.Register("pptx", slideDecoder)
	textDecoder := extract.NewTextDecoder()
	textExtractor.Register("txt", textDecoder)
	textExtractor.Register("md", textDecoder)

	// Pipeline
	docPipeline := pipeline.NewDocumentPipeline(
		log,
		objectStore,
		textExtractor,
		concepts.NewFrequencyExtractor(),
		documentRepo,
		conceptRepo,
		relationRepo,
		graphWriter,
		sink,
	)

	// Task worker
	registry := runtime.NewRegistry()
	if err := registry.Register(documentjob.NewHandler(log, docPipeline)); err != nil {
		log.Fatal("Handler registration failed", "error", err)
	}
	taskWorker := worker.NewWorker(thePG, log, taskRunRepo, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		taskWorker.Start(gctx)
		<-gctx.Done()
		return gctx.Err()
	})

	log.Info("Worker service started")
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("Worker service exited", "error", err)
	}
	log.Info("Worker service stopped")
}
