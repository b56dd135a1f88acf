package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fairway/internal/api"
	"fairway/internal/config"
	"fairway/internal/database"
	"fairway/internal/domain"
	"fairway/internal/events"
	"fairway/internal/export"
	"fairway/internal/google"
	"fairway/internal/logging"
	"fairway/internal/metrics"
	"fairway/internal/models"
	"fairway/internal/repository"
	"fairway/internal/service"
	"fairway/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	bays, err := loadBays(&logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, bays, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache := buildAvailabilityCache(redisClient, &logger)
	bus := events.NewEventBus()

	sheetsService := initGoogleSheets(cfg, &logger)
	var syncWorker domain.SyncWorker
	if sheetsService != nil {
		// The API process only enqueues; the sweeper process drains the queue.
		syncWorker = worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, &logger)
	}

	bookingService := service.NewBookingService(db, cache, bus, syncWorker, cfg.Facility, &logger)
	bayService := service.NewBayService(db, cache, bus, &logger)
	memberService := service.NewMemberService(db, &logger)
	auditService := service.NewAuditService(db)

	var exporter *export.ExcelExporter
	if cfg.Exports.Path != "" {
		exporter = export.NewExcelExporter(bookingService, bayService, auditService, cfg.Exports.Path, &logger)
	}

	httpServer := newHTTPServer(cfg, bookingService, bayService, memberService, auditService, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, cfg, &logger)
}

func newHTTPServer(
	cfg *config.Config,
	bookings domain.BookingService,
	bays domain.BayService,
	members domain.MemberService,
	audit domain.AuditService,
	exporter *export.ExcelExporter,
	logger *zerolog.Logger,
) *api.HTTPServer {
	if exporter != nil {
		return api.NewHTTPServer(cfg.API, cfg.Facility, bookings, bays, members, audit, exporter, logger)
	}
	return api.NewHTTPServer(cfg.API, cfg.Facility, bookings, bays, members, audit, nil, logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadBays(logger *zerolog.Logger) ([]models.Bay, error) {
	baysPath := os.Getenv("BAYS_PATH")
	if baysPath == "" {
		baysPath = "configs/bays.yaml"
	}
	baysData, err := os.ReadFile(baysPath)
	if err != nil {
		logger.Error().Err(err).Str("bays_path", baysPath).Msg("read bays")
		return nil, err
	}

	var baysConfig struct {
		Bays []models.Bay `yaml:"bays"`
	}
	if err := yaml.Unmarshal(baysData, &baysConfig); err != nil {
		logger.Error().Err(err).Str("bays_path", baysPath).Msg("parse bays")
		return nil, err
	}

	if err := config.ValidateBays(baysConfig.Bays); err != nil {
		logger.Error().Err(err).Str("bays_path", baysPath).Msg("validate bays")
		return nil, err
	}

	return baysConfig.Bays, nil
}

func initDatabase(cfg *config.Config, bays []models.Bay, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	ctx := context.Background()
	for i := range bays {
		if err := db.UpsertBay(ctx, &bays[i]); err != nil {
			db.Close()
			logger.Error().Err(err).Int64("bay_id", bays[i].ID).Msg("seed bay")
			return nil, err
		}
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildAvailabilityCache layers the in-memory cache behind redis so the
// read side survives a redis outage.
func buildAvailabilityCache(redisClient *redis.Client, logger *zerolog.Logger) domain.AvailabilityCache {
	memory := repository.NewMemoryAvailabilityCache(models.DefaultAvailabilityCacheTTL * time.Second)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisAvailabilityCache(redisClient, models.DefaultAvailabilityCacheTTL*time.Second)
	return repository.NewFailoverAvailabilityCache(primary, memory, logger)
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.BookingSpreadSheetID,
		cfg.Google.AuditSpreadSheetID,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
