package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/Strob0t/hookrelay/internal/adapter/postgres"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
						return err
					}
					return printVersion(ctx, cmd, cfg.Postgres.DSN)
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to roll back",
						Value: 1,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					steps := cmd.Int("steps")
					if steps < 1 {
						return errors.New("--steps must be >= 1")
					}
					if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, steps); err != nil {
						return err
					}
					return printVersion(ctx, cmd, cfg.Postgres.DSN)
				},
			},
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return printVersion(ctx, cmd, cfg.Postgres.DSN)
				},
			},
		},
	}
}

func printVersion(ctx context.Context, cmd *cli.Command, dsn string) error {
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "schema version: %d\n", v)
	return err
}
