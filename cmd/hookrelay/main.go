// Command hookrelay relays pull request webhooks to chat notifications.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/Strob0t/hookrelay/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:                  "hookrelay",
		Usage:                 "Relay pull request webhooks to chat notifications",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   config.DefaultConfigFile,
				Sources: cli.EnvVars("HOOKRELAY_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newMigrateCommand(),
			newAdminCommand(),
			newAuditCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by the root --config flag.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadFrom(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
