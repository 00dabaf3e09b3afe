package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/target/dispatch-api/config"
	"github.com/target/dispatch-api/internal/bootstrap"
)

var errAborted = errors.New("aborted by user")

type commandContext struct {
	Logger *slog.Logger
	Config config.AppConfig
}

func loadCommandContext() (*commandContext, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}
	if lvlErr := bootstrap.SetLogLevel(cfg.LogLevel); lvlErr != nil {
		return nil, lvlErr
	}
	return &commandContext{Logger: slog.Default(), Config: cfg}, nil
}

// withDatabase connects to Postgres under a deadline and runs f.
func (c *commandContext) withDatabase(
	ctx context.Context,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: c.Config.Postgres,
		Logger:   c.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			c.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

// withServices is withDatabase plus the service container. Redis is not
// attached; the admin commands never touch sessions or the dedupe cache.
func (c *commandContext) withServices(
	ctx context.Context,
	timeout time.Duration,
	f func(context.Context, *bootstrap.ServiceContainer) error,
) error {
	return c.withDatabase(ctx, timeout, func(ctx context.Context, db *sql.DB) error {
		svcs, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config: &c.Config,
			DB:     db,
			Logger: c.Logger,
		})
		if err != nil {
			return fmt.Errorf("build services: %w", err)
		}
		defer func() {
			if cerr := svcs.Close(); cerr != nil {
				c.Logger.Warn("close services failed", "error", cerr)
			}
		}()
		return f(ctx, svcs)
	})
}

type prompter struct {
	in  io.Reader
	out io.Writer
}

// guardRemoteHost refuses destructive work against non-local hosts unless
// allowed, and then still asks the operator to type the host name.
func (p prompter) guardRemoteHost(host string, allow bool, action string) error {
	if !isLikelyRemoteHost(host) {
		return nil
	}
	if !allow {
		return fmt.Errorf(
			"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			host,
		)
	}
	if _, err := fmt.Fprintf(p.out,
		"\nWARNING: database host %q does not look like a local address.\nThis operation will %s.\nType %q to continue or press enter to abort: ",
		host, action, host); err != nil {
		return fmt.Errorf("print remote host prompt: %w", err)
	}
	resp, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return errAborted
	}
	if strings.TrimSpace(resp) != host {
		return errAborted
	}
	return nil
}

func (p prompter) confirm(question string) error {
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", question); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return errAborted
	}
	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(strings.Trim(h, "[]")); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func resetStatements(user string) []string {
	stmts := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if u := strings.TrimSpace(user); u != "" && !strings.EqualFold(u, "public") {
		stmts = append(stmts, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(u))
	}
	return stmts
}
