// Command dispatch serves the job dispatch HTTP API and, when enabled, the
// invitation reaper.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/target/dispatch-api/config"
	"github.com/target/dispatch-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "dispatch exited", "error", err)
		os.Exit(1) //nolint:forbidigo // entrypoint
	}
}

// closer releases one resource at shutdown; failures are only logged.
type closer struct {
	name  string
	close func() error
}

func closeAll(ctx context.Context, logger *slog.Logger, cs []closer) {
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].close(); err != nil {
			logger.WarnContext(ctx, "shutdown: close failed", "resource", cs[i].name, "error", err)
		}
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if lvlErr := bootstrap.SetLogLevel(cfg.LogLevel); lvlErr != nil {
		logger.WarnContext(ctx, "ignoring invalid log level", "level", cfg.LogLevel, "error", lvlErr)
	}
	logger.InfoContext(ctx, "starting dispatch",
		"services", bootstrap.GetEnabledServices(&cfg),
		"auth_mode", cfg.Auth.Mode,
		"db", fmt.Sprintf("%s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Name),
		"dev", cfg.IsDev)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	var resources []closer
	defer func() { closeAll(ctx, logger, resources) }()

	db, rdb, err := connect(ctx, &cfg, logger)
	if db != nil {
		resources = append(resources, closer{"postgres", db.Close})
	}
	if rdb != nil {
		resources = append(resources, closer{"redis", rdb.Close})
	}
	if err != nil {
		return err
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: rdb,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	resources = append(resources, closer{"services", services.Close})

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.RunConfig{
		Config:   &cfg,
		Services: services,
		DB:       db,
		Logger:   logger,
	})
}

// connect opens Postgres then Redis. On a Redis failure the open database
// is still returned so the caller closes it.
//
//nolint:ireturn // redis.UniversalClient covers direct, sentinel and cluster.
func connect(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, redis.UniversalClient, error) {
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	}
	db, err := bootstrap.ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := bootstrap.ConnectRedis(ctx, dbCfg)
	if err != nil {
		return db, nil, fmt.Errorf("connect redis: %w", err)
	}
	return db, rdb, nil
}
