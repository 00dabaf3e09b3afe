package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/target/dispatch-api/internal/bootstrap"
)

const defaultCommandTimeout = 5 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := newApp().Run(ctx, os.Args); err != nil {
		logger.ErrorContext(ctx, "command failed", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newApp() *cli.Command {
	timeout := &cli.DurationFlag{
		Name:  "timeout",
		Usage: "overall deadline for the command",
		Value: defaultCommandTimeout,
	}
	allowRemote := &cli.BoolFlag{
		Name:  "allow-remote",
		Usage: "permit running against a database host that does not look local",
	}

	return &cli.Command{
		Name:  "dispatch-admin",
		Usage: "Operational tasks for the dispatch service",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Flags: []cli.Flag{
					timeout,
					&cli.BoolFlag{Name: "status", Usage: "list applied and pending migrations without applying"},
				},
				Action: migrateAction,
			},
			{
				Name:  "create-admin",
				Usage: "Create a confirmed admin account",
				Flags: []cli.Flag{
					timeout,
					&cli.StringFlag{Name: "email", Usage: "login email", Required: true},
					&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
					&cli.StringFlag{Name: "password", Usage: "initial password (read from DISPATCH_ADMIN_PASSWORD when empty)"},
				},
				Action: createAdminAction,
			},
			{
				Name:  "invite",
				Usage: "Issue an admin invitation and print its accept link",
				Flags: []cli.Flag{
					timeout,
					&cli.StringFlag{Name: "email", Usage: "invitee email", Required: true},
					&cli.StringFlag{Name: "invited-by", Usage: "recorded inviter", Value: "dispatch-admin"},
				},
				Action: inviteAction,
			},
			{
				Name:  "seed",
				Usage: "Run migrations and load development fixtures",
				Flags: []cli.Flag{
					timeout,
					allowRemote,
					&cli.StringFlag{Name: "file", Usage: "YAML seed file; built-in fixtures when empty"},
				},
				Action: seedAction,
			},
			{
				Name:  "db-reset",
				Usage: "Drop the public schema, re-run migrations and optionally seed",
				Flags: []cli.Flag{
					timeout,
					allowRemote,
					&cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt"},
					&cli.BoolFlag{Name: "seed", Usage: "load built-in fixtures after the reset"},
				},
				Action: dbResetAction,
			},
		},
	}
}
