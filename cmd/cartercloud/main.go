// Command cartercloud runs the personal cloud storage service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cartercloud/cartercloud/auth"
	"github.com/cartercloud/cartercloud/blob"
	"github.com/cartercloud/cartercloud/config"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/metadata"
	"github.com/cartercloud/cartercloud/observability"
	"github.com/cartercloud/cartercloud/server"
	"github.com/cartercloud/cartercloud/server/endpoint"
	"github.com/cartercloud/cartercloud/util"
	"github.com/cartercloud/cartercloud/vault"
	"github.com/cartercloud/cartercloud/version"
)

func main() {
	app := &cli.App{
		Name:    "cartercloud",
		Usage:   "personal cloud storage service",
		Version: version.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.yml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to .env file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Action: runServe,
			},
			{
				Name:   "gc",
				Usage:  "delete blobs that have no metadata record",
				Action: runGC,
			},
			{
				Name:      "hash-password",
				Usage:     "print a bcrypt hash for use in the auth user table",
				ArgsUsage: "<password>",
				Action:    runHashPassword,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.LoaderOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if path := c.String("env"); path != "" {
		opts = append(opts, config.WithEnvFile(path))
	}
	return config.Load(opts...)
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging, cfg.Name)
	log := logger.GetGlobalLogger()

	ctx := context.Background()

	telemetry, err := observability.Init(ctx, cfg.Telemetry, cfg.Name, version.Get().Version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	meta, err := metadata.Open(cfg.Store.Path, log)
	if err != nil {
		return err
	}
	blobs, err := blob.New(cfg.Blob, log)
	if err != nil {
		return err
	}

	svc := vault.New(meta, blobs, cfg.Fetch, log, metrics)
	verifier := auth.NewStaticVerifier(cfg.Auth)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	srv.RegisterDefaultEndpoints(cfg.Name, healthChecker(meta, blobs))
	server.NewHandlers(svc, verifier, log).RegisterRoutes(srv.GinEngine())

	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Info("service ready", logger.Fields(
		"addr", srv.Addr(),
		"environment", cfg.Environment,
		"blob_provider", cfg.Blob.Provider,
	))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutdown signal received")
	if err := srv.Stop(ctx); err != nil {
		log.Error("server shutdown failed", logger.Fields("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown failed", logger.Fields("error", err.Error()))
	}
	return nil
}

func runGC(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging, cfg.Name)
	log := logger.GetGlobalLogger()

	meta, err := metadata.Open(cfg.Store.Path, log)
	if err != nil {
		return err
	}
	blobs, err := blob.New(cfg.Blob, log)
	if err != nil {
		return err
	}

	svc := vault.New(meta, blobs, cfg.Fetch, log, nil)
	swept, err := svc.SweepOrphans(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("removed %d orphan blob(s)\n", swept)
	return nil
}

func runHashPassword(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		return fmt.Errorf("usage: cartercloud hash-password <password>")
	}
	hash, err := auth.NewBcryptHasher().Hash(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// healthChecker probes the two storage dependencies: the metadata document
// must be reachable on disk and the blob store must answer an existence
// probe.
func healthChecker(meta *metadata.Store, blobs blob.Store) endpoint.HealthChecker {
	return func(ctx context.Context) []endpoint.ComponentHealth {
		checks := make([]endpoint.ComponentHealth, 0, 2)

		metaHealth := endpoint.ComponentHealth{Name: "metadata", Status: endpoint.StatusHealthy}
		if info, err := os.Stat(meta.Path()); err != nil {
			metaHealth.Status = endpoint.StatusUnhealthy
			metaHealth.Message = err.Error()
		} else {
			metaHealth.Message = util.FormatSize(info.Size())
		}
		checks = append(checks, metaHealth)

		blobHealth := endpoint.ComponentHealth{Name: "blob", Status: endpoint.StatusHealthy}
		if _, err := blobs.Exists(ctx, "healthcheck-probe"); err != nil {
			blobHealth.Status = endpoint.StatusUnhealthy
			blobHealth.Message = err.Error()
		}
		checks = append(checks, blobHealth)

		return checks
	}
}
