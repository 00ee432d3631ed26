package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-insight-agent/internal/advisor/config"
	delivery "stock-insight-agent/internal/advisor/delivery/http"
	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/repository"
	"stock-insight-agent/internal/advisor/scheduler"
	"stock-insight-agent/internal/advisor/service"
	"stock-insight-agent/pkg/common"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/postgres"
	"stock-insight-agent/pkg/redis"
	"stock-insight-agent/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the advisor service with scheduler and API",
	Run:   runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Executes a single advisory run and exits",
	Run:   runOnce,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validates the configuration file and exits",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Configuration invalid: %v", err)
		}
		fmt.Printf("Configuration OK: app=%s env=%s portfolio=%s\n", cfg.App.Name, cfg.App.Env, cfg.Portfolio.Name)
	},
}

var dryRun bool

type services struct {
	cfg            *config.Config
	logger         *logger.Logger
	redisClient    *redis.Client
	advisorService service.AdvisorService
	closeFns       []func()
}

func (s *services) close() {
	for i := len(s.closeFns) - 1; i >= 0; i-- {
		s.closeFns[i]()
	}
}

func buildServices(ctx context.Context) *services {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	s := &services{cfg: cfg, logger: appLogger}
	s.closeFns = append(s.closeFns, func() { _ = appLogger.Sync() })

	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		s.closeFns = append(s.closeFns, func() { _ = sqlDB.Close() })
	}

	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	s.redisClient = redisClient
	s.closeFns = append(s.closeFns, func() { _ = redisClient.Close() })

	genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini client", logger.ErrorField(err))
	}

	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	portfolioRepo := repository.NewPortfolioRepository(db.DB)
	priceRepo := repository.NewYahooFinanceRepository(cfg, appLogger, redisClient)
	aiRepo, err := repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
	if err != nil {
		appLogger.Fatal("Failed to initialize AI repository", logger.ErrorField(err))
	}
	var newsRepo repository.NewsRepository
	if cfg.News.Enabled {
		newsRepo = repository.NewNewsRepository(cfg, appLogger)
	}

	aggregator := service.NewAggregator(appLogger)
	s.advisorService = service.NewAdvisorService(
		cfg,
		appLogger,
		portfolioRepo,
		priceRepo,
		aiRepo,
		newsRepo,
		service.NewPerformanceEngine(appLogger),
		service.NewLedger(appLogger),
		aggregator,
		service.NewValidator(appLogger),
		service.NewIntegrityChecker(appLogger, priceRepo, aggregator),
		notifier,
	)

	return s
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := buildServices(ctx)
	defer s.close()

	s.logger.Info("Starting Advisor Service", logger.Field("name", s.cfg.App.Name))

	if s.cfg.Scheduler.Enabled {
		sched := scheduler.New(s.cfg, s.logger, s.advisorService, s.redisClient)
		if err := sched.Start(ctx); err != nil {
			s.logger.Fatal("Failed to start scheduler", logger.ErrorField(err))
		}
		defer sched.Stop()
	}

	e := echo.New()
	e.HideBanner = true

	advisorHandler := delivery.NewAdvisorHandler(s.advisorService, s.logger)
	apiV1 := e.Group("/api/v1")
	advisorHandler.RegisterRoutes(apiV1)

	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.API.Port)
		s.logger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		s.logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	s.logger.Info("Server exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := buildServices(ctx)
	defer s.close()

	result, err := s.advisorService.RunPeriod(ctx, dto.RunOptions{
		Trigger: common.RunTriggerManual,
		DryRun:  dryRun,
	})
	if err != nil {
		s.logger.Fatal("Run failed", logger.ErrorField(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.logger.Fatal("Failed to marshal run result", logger.ErrorField(err))
	}
	fmt.Println(string(out))

	if result.Status != common.RunStatusCompleted {
		os.Exit(1)
	}
}

func main() {
	rootCmd := &cobra.Command{Use: "advisor"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-advisor.yaml", "Path to the configuration file")
	runCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-advisor.yaml", "Path to the configuration file")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate the period without committing any change")
	checkConfigCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-advisor.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkConfigCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing advisor CLI: %s\n", err)
		os.Exit(1)
	}
}
