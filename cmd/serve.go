package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/api"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/bus"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/credentials"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/genome"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/nlp"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/storage"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon: HTTP API, worker pool and event stream",
	Long: `Start the full service. The HTTP API accepts queries and scan jobs,
the worker pool drains the command bus, and scan events stream to
websocket subscribers on /api/v1/events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "API port (overrides config)")
	serveCmd.Flags().Int("workers", 0, "worker count (overrides config)")
	viper.BindPFlag("api.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("worker.count", serveCmd.Flags().Lookup("workers"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	log.Infow("Starting sharingan",
		"version", version,
		"api", net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)),
		"workers", cfg.Worker.Count,
	)

	store, err := storage.NewStore(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer store.Close()

	commandBus, err := bus.NewRedisBus(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to the command bus: %w", err)
	}
	defer commandBus.Close()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Close()

	gen, err := genome.New(cfg.Genome, log)
	if err != nil {
		return fmt.Errorf("failed to open genome: %w", err)
	}
	defer gen.Close()

	limiter := buildLimiter(cfg)
	registry, err := buildRegistry(cfg, limiter)
	if err != nil {
		return err
	}
	router := nlp.NewRouter(registry, tel, log)

	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	hub := api.NewHub(log)
	go hub.Run(hubCtx)

	pool := worker.NewWorkerPool(cfg.Worker, commandBus, registry, store, gen, limiter, tel, hub, log)
	if err := pool.Start(ctx, cfg.Worker.Count); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	defer pool.Stop()

	// With auth on and no key configured, mint one and keep it in the
	// encrypted store so restarts reuse it.
	if cfg.API.EnableAuth && cfg.API.APIKey == "" {
		manager, err := credentials.NewManager(log)
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		token, err := manager.EnsureAPIBearer()
		if err != nil {
			return fmt.Errorf("failed to provision API token: %w", err)
		}
		cfg.API.APIKey = token
		fmt.Println("API bearer token is in ~/.sharingan (sharingan config keys list)")
	}

	engine := buildEngine(commandBus, store, registry, pool, router, hub)
	srv := &http.Server{
		Addr:           net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)),
		Handler:        engine,
		ReadTimeout:    cfg.API.Timeout,
		WriteTimeout:   cfg.API.Timeout,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("API listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Infow("Shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func buildEngine(
	commandBus core.CommandBus,
	store core.ResultStore,
	registry core.ToolRegistry,
	pool core.WorkerPool,
	router *nlp.Router,
	hub *api.Hub,
) *gin.Engine {
	if cfg.Logger.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), api.LoggingMiddleware(log))
	if cfg.API.EnableCORS {
		engine.Use(api.CORSMiddleware())
	}

	engine.GET("/health", api.HealthHandler(commandBus, pool, version))

	v1 := engine.Group("/api/v1")
	if cfg.API.EnableAuth {
		v1.Use(api.AuthMiddleware(cfg.API.APIKey, log))
	}
	v1.Use(api.RateLimitMiddleware(cfg.Security.RateLimit))

	handlers := api.NewHandlers(commandBus, store, registry, router, hub, log)
	handlers.Register(v1)
	return engine
}
