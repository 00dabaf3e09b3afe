package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/target/dispatch-api/internal/bootstrap"
	"github.com/target/dispatch-api/internal/data"
	"github.com/target/dispatch-api/internal/devseed"
	"github.com/target/dispatch-api/internal/domain/model"
)

const adminPasswordEnv = "DISPATCH_ADMIN_PASSWORD"

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	cc, err := loadCommandContext()
	if err != nil {
		return err
	}
	return cc.withDatabase(ctx, cmd.Duration("timeout"), func(ctx context.Context, db *sql.DB) error {
		if cmd.Bool("status") {
			return printMigrationStatus(ctx, db)
		}
		return bootstrap.RunMigrations(ctx, db, cc.Logger)
	})
}

func printMigrationStatus(ctx context.Context, db *sql.DB) error {
	versions, err := data.MigrationStatus(ctx, db)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	for _, v := range versions {
		state := "pending"
		if v.Applied {
			state = "applied"
		}
		if _, err := fmt.Fprintf(os.Stdout, "%-8s %s\n", state, v.Name); err != nil {
			return err
		}
	}
	return nil
}

func createAdminAction(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if password == "" {
		password = os.Getenv(adminPasswordEnv)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("a password is required: pass --password or set %s", adminPasswordEnv)
	}

	cc, err := loadCommandContext()
	if err != nil {
		return err
	}
	return cc.withServices(ctx, cmd.Duration("timeout"), func(ctx context.Context, svcs *bootstrap.ServiceContainer) error {
		p, err := svcs.Users.Provision(ctx, model.CreateProfileRequest{
			Email:       cmd.String("email"),
			DisplayName: cmd.String("name"),
			Role:        model.ProfileRoleAdmin,
			Password:    password,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(os.Stdout, "created admin %s (%s)\n", p.Email, p.ID)
		return err
	})
}

func inviteAction(ctx context.Context, cmd *cli.Command) error {
	cc, err := loadCommandContext()
	if err != nil {
		return err
	}
	return cc.withServices(ctx, cmd.Duration("timeout"), func(ctx context.Context, svcs *bootstrap.ServiceContainer) error {
		issued, err := svcs.Invitations.Issue(ctx, cmd.String("email"), cmd.String("invited-by"))
		if err != nil {
			return err
		}
		link := issued.AcceptURL
		if link == "" {
			link = issued.Token
		}
		_, err = fmt.Fprintf(os.Stdout, "invitation for %s expires %s\n%s\n",
			issued.Invitation.Email,
			issued.Invitation.ExpiresAt.Format("2006-01-02 15:04 MST"),
			link)
		return err
	})
}

func seedAction(ctx context.Context, cmd *cli.Command) error {
	fixtures, err := loadFixtures(cmd.String("file"))
	if err != nil {
		return err
	}

	cc, err := loadCommandContext()
	if err != nil {
		return err
	}
	p := prompter{in: os.Stdin, out: os.Stderr}
	if err := p.guardRemoteHost(cc.Config.Postgres.Host, cmd.Bool("allow-remote"), "load development fixtures"); err != nil {
		return err
	}

	return cc.withDatabase(ctx, cmd.Duration("timeout"), func(ctx context.Context, db *sql.DB) error {
		if err := bootstrap.RunMigrations(ctx, db, cc.Logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return cc.seed(ctx, db, fixtures)
	})
}

func dbResetAction(ctx context.Context, cmd *cli.Command) error {
	cc, err := loadCommandContext()
	if err != nil {
		return err
	}
	pg := cc.Config.Postgres
	p := prompter{in: os.Stdin, out: os.Stderr}
	if err := p.guardRemoteHost(pg.Host, cmd.Bool("allow-remote"), "drop and recreate the public schema"); err != nil {
		return err
	}
	if !cmd.Bool("yes") {
		question := fmt.Sprintf("About to reset database %q on %s:%d. Continue?", pg.Name, pg.Host, pg.Port)
		if err := p.confirm(question); err != nil {
			return err
		}
	}

	return cc.withDatabase(ctx, cmd.Duration("timeout"), func(ctx context.Context, db *sql.DB) error {
		cc.Logger.InfoContext(ctx, "dropping public schema", "database", pg.Name)
		for _, stmt := range resetStatements(pg.User) {
			cc.Logger.DebugContext(ctx, "executing reset statement", "sql", stmt)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec %q: %w", stmt, err)
			}
		}
		if err := bootstrap.RunMigrations(ctx, db, cc.Logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		if cmd.Bool("seed") {
			return cc.seed(ctx, db, devseed.Default())
		}
		cc.Logger.InfoContext(ctx, "database reset completed")
		return nil
	})
}

func (c *commandContext) seed(ctx context.Context, db *sql.DB, fixtures *devseed.File) error {
	svcs, err := devseed.NewServices(db, c.Logger)
	if err != nil {
		return err
	}
	sum, err := devseed.Run(ctx, svcs, fixtures, c.Logger)
	c.Logger.InfoContext(ctx, "seed finished",
		"users", sum.Users,
		"subcontractors", sum.Subcontractors,
		"jobs", sum.Jobs,
		"failures", sum.Failures)
	return err
}

func loadFixtures(path string) (*devseed.File, error) {
	if path == "" {
		return devseed.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return devseed.Parse(f)
}
