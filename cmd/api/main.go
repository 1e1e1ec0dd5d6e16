package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelinov/trendwatch/internal/application"
	appanalysis "github.com/avelinov/trendwatch/internal/application/analysis"
	appdigest "github.com/avelinov/trendwatch/internal/application/digest"
	appmaterials "github.com/avelinov/trendwatch/internal/application/materials"
	appsubs "github.com/avelinov/trendwatch/internal/application/subscriptions"
	"github.com/avelinov/trendwatch/internal/config"
	analysisdomain "github.com/avelinov/trendwatch/internal/domain/analysis"
	materialsdomain "github.com/avelinov/trendwatch/internal/domain/materials"
	subsdomain "github.com/avelinov/trendwatch/internal/domain/subscriptions"
	aiopenai "github.com/avelinov/trendwatch/internal/infra/ai/openai"
	"github.com/avelinov/trendwatch/internal/infra/ai/prompt"
	"github.com/avelinov/trendwatch/internal/infra/ai/tokens"
	mysqlp "github.com/avelinov/trendwatch/internal/infra/db/mysql"
	postgresp "github.com/avelinov/trendwatch/internal/infra/db/postgres"
	"github.com/avelinov/trendwatch/internal/infra/httpserver"
	"github.com/avelinov/trendwatch/internal/infra/scheduler"
	minioStore "github.com/avelinov/trendwatch/internal/infra/storage"
	"github.com/avelinov/trendwatch/internal/infra/vectorstore/qdrant"
	"github.com/avelinov/trendwatch/internal/middleware"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer lg.Sync()

	ctx := context.Background()

	// connect database, mysql or postgres
	var (
		db      *sql.DB
		matRepo materialsdomain.Repository
		subRepo subsdomain.Repository
		repRepo analysisdomain.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			lg.Fatal("postgres connect error", "error", err)
		}
		matRepo = postgresp.NewMaterialRepository(db)
		subRepo = postgresp.NewSubscriptionRepository(db)
		repRepo = postgresp.NewReportRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			lg.Fatal("mysql connect error", "error", err)
		}
		matRepo = mysqlp.NewMaterialRepository(db)
		subRepo = mysqlp.NewSubscriptionRepository(db)
		repRepo = mysqlp.NewReportRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.NewMinioStore(ctx, minioStore.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.BucketName,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		lg.Fatal("minio init error", "error", err)
	}

	// init openai client and token estimator
	ai := aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.EmbeddingModel)
	estimator := tokens.NewEstimator(cfg.OpenAI.Model, lg)

	// init qdrant
	vectors := qdrant.New(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err := vectors.EnsureCollection(ctx, cfg.Qdrant.VectorDim); err != nil {
		lg.Fatal("qdrant collection init error", "error", err)
	}

	// init services
	clock := application.SystemClock{}

	analysisSvc := &appanalysis.Service{
		Embedder:  ai,
		Searcher:  vectors,
		Completer: ai,
		Tokens:    estimator,
		Prompts:   prompt.NewBuilder(),
		Reports:   repRepo,
		Clock:     clock,
		Log:       lg,
		Opts: appanalysis.Options{
			MinScore:     cfg.Analysis.MinScore,
			SearchLimit:  cfg.Analysis.SearchLimit,
			SafetyFactor: cfg.Analysis.SafetyFactor,
		},
	}
	materialsSvc := &appmaterials.Service{
		Repo:     matRepo,
		Index:    vectors,
		Embedder: ai,
		Archive:  store,
		Clock:    clock,
		Log:      lg,
	}
	subsSvc := &appsubs.Service{Repo: subRepo, Clock: clock}
	digestSvc := &appdigest.Service{
		Subs:     subRepo,
		Analysis: analysisSvc,
		Clock:    clock,
		Log:      lg,
		Opts: appdigest.Options{
			MinScore:    cfg.Analysis.DigestMinScore,
			SearchLimit: cfg.Analysis.DigestSearchLimit,
		},
	}

	// start digest scheduler
	sched, err := scheduler.New(cfg.Digest.Cron, digestSvc, lg)
	if err != nil {
		lg.Fatal("scheduler init error", "error", err)
	}
	sched.Start()
	defer sched.Stop()

	// init router
	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"qdrant":   middleware.CheckerFunc(vectors.Ping),
	}
	mux := httpserver.NewRouter(analysisSvc, materialsSvc, subsSvc, digestSvc, lg, checkers)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // analysis runs are long
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		lg.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server error", "error", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	lg.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		lg.Error("shutdown error", "error", err)
	}
}
