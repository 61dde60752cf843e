// PostPilot — сервис отложенной публикации постов в Instagram.
//
// Один процесс обслуживает HTTP API (и статику фронтенда) и крутит
// цикл публикации: каждый тик dispatcher проходит по очереди
// и публикует посты, у которых наступило время.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avdeev/postpilot/internal/api"
	"github.com/avdeev/postpilot/internal/config"
	"github.com/avdeev/postpilot/internal/dispatch"
	"github.com/avdeev/postpilot/internal/gen"
	"github.com/avdeev/postpilot/internal/instagram"
	"github.com/avdeev/postpilot/internal/media"
	"github.com/avdeev/postpilot/internal/mq"
	"github.com/avdeev/postpilot/internal/repo"
	"github.com/avdeev/postpilot/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting postpilot")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных и накатываем миграции
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(ctx, pool, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Репозитории и файловое хранилище
	queueRepo := repo.NewQueueRepo(pool)
	historyRepo := repo.NewHistoryRepo(pool)

	mediaStore, err := media.NewStore(cfg.PhotosDir(), cfg.VideosDir())
	if err != nil {
		logger.Error("failed to init media store", "error", err)
		os.Exit(1)
	}

	// Instagram-клиент
	sessions := instagram.NewSessionManager(cfg.SessionFile())
	igClient := instagram.NewClient(instagram.Config{
		BaseURL:          cfg.InstagramAPIURL,
		Sessions:         sessions,
		MediaStore:       mediaStore,
		UploadsPerMinute: cfg.UploadsPerMinute,
		Logger:           logger,
	})

	// Генераторы контента
	photoGen := gen.NewPollinationsClient(cfg.PollinationsURL)
	textGen := gen.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	if !textGen.Configured() {
		logger.Warn("gemini api key is not set, text generation disabled")
	}

	// Опциональные события в RabbitMQ
	var events *mq.Publisher
	if cfg.AMQPURL != "" {
		conn, err := mq.NewConnection(cfg.AMQPURL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("failed to setup rabbitmq topology", "error", err)
			os.Exit(1)
		}

		events = mq.NewPublisher(conn, logger)
		logger.Info("connected to rabbitmq")
	}

	// Dispatcher
	dispatcher := dispatch.New(dispatch.Config{
		Queue:     queueRepo,
		History:   historyRepo,
		Publisher: igClient,
		Events:    events,
		Policy: dispatch.RetryPolicy{
			MaxAttempts:  cfg.RetryMaxAttempts,
			Backoff:      cfg.RetryBackoff,
			InitialDelay: cfg.RetryInitialDelay,
			MaxDelay:     cfg.RetryMaxDelay,
		},
		Logger: logger,
	})

	// API handler
	handler := api.NewHandler(api.Config{
		Queue:        queueRepo,
		History:      historyRepo,
		Publisher:    igClient,
		Sessions:     sessions,
		SessionCache: dispatcher,
		PhotoGen:     photoGen,
		TextGen:      textGen,
		Library:      mediaStore,
		Logger:       logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты и статику фронтенда
	handler.RegisterRoutes(mux)
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	// Цикл публикации
	go func() {
		tk := time.NewTicker(cfg.TickInterval)
		defer tk.Stop()

		for {
			select {
			case <-tk.C:
				if err := dispatcher.Tick(ctx); err != nil {
					logger.Error("dispatch cycle failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.Info("dispatch loop started", "interval", cfg.TickInterval)

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
