package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"record-sync/core/config"
	"record-sync/core/loader"
	"record-sync/core/logger"
	"record-sync/core/middleware/auth"
	"record-sync/core/middleware/rayid"
	"record-sync/feature/status"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "record-sync/docs/swagger"
)

// @title record-sync API
// @version 1.0
// @description Status and control surface of the record reconciliation engine.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the reconciliation loop and the status server",
	Long:  `Builds every configured mapping, polls both stores on the configured interval and serves the status API.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// 3. Build the engine (database, window store, mappings)
		eng, err := newEngine(ctx, cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize reconciliation engine", zap.Error(err))
		}

		// 4. Start the polling loop
		loopDone := make(chan struct{})
		go func() {
			defer close(loopDone)
			if err := eng.runner.Run(ctx, cfg.Sync.Interval()); err != nil {
				logg.Error("Reconciliation loop failed", zap.Error(err))
			}
		}()

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager(logg)
		mgr.Register(status.NewFeature(eng.runner, logg, cfg.Server.Enabled))

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Start Server
		if cfg.Server.Enabled {
			go func() {
				logg.Info("Starting server", zap.String("port", cfg.Server.Port))
				if err := app.Listen(cfg.Server.Address()); err != nil {
					logg.Fatal("Server failed to start", zap.Error(err))
				}
			}()
		}

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down...")

		if cfg.Server.Enabled {
			if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout()); err != nil {
				logg.Warn("Server shutdown incomplete", zap.Error(err))
			}
		}
		cancel()
		<-loopDone
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
