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

	"debtster-collection/internal/clients"
	"debtster-collection/internal/clock"
	"debtster-collection/internal/config"
	"debtster-collection/internal/repository"
	"debtster-collection/internal/scheduler"
	"debtster-collection/internal/service"
	"debtster-collection/internal/transport/auth"
	"debtster-collection/internal/transport/rest"
	"debtster-collection/internal/transport/websocket"
	"debtster-collection/pkg/database/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env or defaults")
	}

	// top-level context which we can cancel on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}
	clk := clock.System{Location: loc}

	db := mustInitPostgres(ctx, cfg.Postgres)
	defer postgres.Close(db)

	redisClient := mustInitRedis(cfg.Redis)
	defer redisClient.Close()

	localStorage, err := clients.NewLocalStorage(cfg.ExportDir, cfg.FilesPublicPrefix, cfg.ExternalURL)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	statements := mustInitStatementStorage(ctx, cfg, localStorage)

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	wsClient := clients.NewWebSocketClient(wsHub)

	caseRepo := repository.NewCaseRepository(db)
	agreementRepo := repository.NewAgreementRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	tokenRepo := repository.NewPersonalAccessTokenRepository(db)

	notifier := clients.NewQueueNotifier(redisClient, cfg.NotifyQueue)
	runHistory := clients.NewRunHistory(redisClient, int64(cfg.Cycle.Keep), 0)

	overdueSvc := service.NewOverdueService(caseRepo, clk)
	ladderSvc := service.NewLadderService(caseRepo, notifier, clk, cfg.NotifyTimeout)
	reminderSvc := service.NewReminderService(caseRepo, notifier, clk, cfg.NotifyTimeout)
	agreementSvc := service.NewAgreementService(agreementRepo, clk)
	interestSvc := service.NewInterestService(interestRepo, caseRepo, statements, clk)

	cycleSvc := service.NewCycleService(overdueSvc, ladderSvc, reminderSvc, agreementSvc, clk, redisClient, cfg.Cycle.LockTTL, wsClient)
	cycleSvc.SetRecorder(runHistory)

	sanctumMiddleware := auth.SanctumMiddleware(tokenRepo)

	handler := rest.NewHandler(cycleSvc, interestSvc, runHistory)
	router := handler.InitRouterWithAuth(sanctumMiddleware)

	// public root router; the protected router is mounted underneath so
	// /files and /health stay public
	root := chi.NewRouter()
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	root.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			rest.Error(w, "database unavailable", 503, http.StatusServiceUnavailable)
			return
		}
		rest.Success(w, "ok", map[string]interface{}{"today": clk.Today().String()})
	})

	root.Get(localStorage.PublicPrefix+"/{file}", func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		path, ok := localStorage.Path(file)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to access file", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clients.OriginalName(file)))
		http.ServeFile(w, r, path)
	})

	// protected websocket endpoint, tenant taken from the token when bound
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")
		if bound, ok := auth.GetTenantID(r.Context()); ok {
			if tenantID != "" && tenantID != bound {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			tenantID = bound
		}

		userID, _ := auth.GetUserID(r.Context())
		log.Printf("[WS] connected: user_id=%d tenant=%q", userID, tenantID)
		wsHub.HandleWebSocket(w, r, tenantID)
	})

	root.Mount("/", router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	sched := scheduler.New(cycleSvc, cfg.Cycle.Schedule, cfg.Cycle.Enabled)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("scheduler init error: %v", err)
	}

	// statements are fetched right after generation; drop old local copies
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := localStorage.CleanupOlderThan(24 * time.Hour); err != nil {
					log.Printf("storage cleanup error: %v", err)
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Shutdown signal received: %v", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server Shutdown error: %v", err)
		}

		// stops the scheduler's cycle in flight and the websocket hub
		cancel()
		sched.Stop()

		postgres.Close(db)
		redisClient.Close()

		log.Println("Shutdown complete")
	}
}

func mustInitPostgres(ctx context.Context, cfg config.PostgresConfig) *sql.DB {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := postgres.NewPostgresConnection(pingCtx, postgres.ConnectionInfo{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Username:        cfg.User,
		DBName:          cfg.DBName,
		SSLMode:         cfg.SSLMode,
		Password:        cfg.Password,
		MaxOpenConns:    cfg.MaxConns,
		MaxIdleConns:    cfg.MaxConns / 2,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatalf("postgres init error: %v", err)
	}
	return db
}

func mustInitRedis(cfg config.RedisConfig) *clients.RedisClient {
	client, err := clients.NewRedisClient(clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	return client
}

func mustInitStatementStorage(ctx context.Context, cfg config.AppConfig, local *clients.StorageClient) service.StatementStorage {
	switch cfg.StorageDriver {
	case "", "local":
		return local
	case "s3":
		s3, err := clients.NewS3Client(ctx, clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			URLTTL:          cfg.S3.URLTTL,
		})
		if err != nil {
			log.Fatalf("s3 init error: %v", err)
		}
		return s3
	default:
		log.Fatalf("unknown STORAGE_DRIVER %q (want local or s3)", cfg.StorageDriver)
		return nil
	}
}
