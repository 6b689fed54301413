package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/Strob0t/hookrelay/internal/adapter/cachedstore"
	hrnats "github.com/Strob0t/hookrelay/internal/adapter/nats"
	"github.com/Strob0t/hookrelay/internal/adapter/postgres"
	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/domain/account"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/port/database"
	"github.com/Strob0t/hookrelay/internal/service"
)

func newAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Manage accounts, destinations and mention settings",
		Commands: []*cli.Command{
			accountCommand(),
			destinationCommand(),
			preferenceCommand(),
			identityCommand(),
		},
	}
}

// adminDeps is what every admin subcommand needs.
type adminDeps struct {
	cfg   *config.Config
	admin *service.AdminService
	close func()
}

// loadAdminDeps connects to the database directly. When the shared L2 cache
// is configured, writes go through the cached store so running servers see
// invalidations.
func loadAdminDeps(ctx context.Context, cmd *cli.Command) (*adminDeps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	cleanup := []func(){pool.Close}
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	key, err := masterKey(cfg.Secrets)
	if err != nil {
		closeAll()
		return nil, err
	}
	var store database.Store = postgres.NewStore(pool, key)

	if cfg.Cache.Enabled && cfg.NATS.URL != "" {
		queue, err := hrnats.Connect(ctx, cfg.NATS)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("nats: %w", err)
		}
		cleanup = append(cleanup, func() { _ = queue.Close() })

		c, closeCache, err := buildCache(ctx, cfg.Cache, queue)
		if err != nil {
			closeAll()
			return nil, err
		}
		cleanup = append(cleanup, closeCache)
		store = cachedstore.New(store, c, cfg.Cache.TTL)
	}

	return &adminDeps{
		cfg:   cfg,
		admin: service.NewAdminService(store, cfg.Delivery.AllowedPrefix),
		close: closeAll,
	}, nil
}

// withAdmin wraps an action that needs the admin service.
func withAdmin(fn func(ctx context.Context, cmd *cli.Command, d *adminDeps) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		d, err := loadAdminDeps(ctx, cmd)
		if err != nil {
			return err
		}
		defer d.close()
		return fn(ctx, cmd, d)
	}
}

func idFlag(name, usage string) cli.Flag {
	return &cli.StringFlag{Name: name, Usage: usage, Required: true}
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func accountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage destination owners",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an account",
				Flags: []cli.Flag{idFlag("name", "display name")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					a, err := d.admin.CreateAccount(ctx, account.CreateRequest{Name: cmd.String("name")})
					if err != nil {
						return fmt.Errorf("create account: %w", err)
					}
					fmt.Fprintf(os.Stderr, "Account created: %s (id=%s)\n", a.Name, a.ID)
					return nil
				}),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List accounts",
				Action: withAdmin(func(ctx context.Context, _ *cli.Command, d *adminDeps) error {
					accounts, err := d.admin.ListAccounts(ctx)
					if err != nil {
						return fmt.Errorf("list accounts: %w", err)
					}
					if len(accounts) == 0 {
						fmt.Println("No accounts found.")
						return nil
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "ID\tNAME\tCREATED")
					for i := range accounts {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", accounts[i].ID, accounts[i].Name, accounts[i].CreatedAt.Format("2006-01-02"))
					}
					return w.Flush()
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete an account and all its destinations",
				Flags: []cli.Flag{idFlag("id", "account ID")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					if err := d.admin.DeleteAccount(ctx, cmd.String("id")); err != nil {
						return fmt.Errorf("delete account: %w", err)
					}
					fmt.Fprintln(os.Stderr, "Account deleted.")
					return nil
				}),
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Destinations
// ---------------------------------------------------------------------------

func destinationCommand() *cli.Command {
	return &cli.Command{
		Name:    "destination",
		Aliases: []string{"dest"},
		Usage:   "Manage webhook destinations",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Register a repository and its notification endpoint",
				Flags: []cli.Flag{
					idFlag("owner", "owning account ID"),
					idFlag("repo", "repository full name, e.g. acme/widgets"),
					&cli.BoolFlag{Name: "prompt-secret", Usage: "type the signing secret instead of generating one"},
				},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					url, err := promptSecret("Notification URL: ")
					if err != nil {
						return fmt.Errorf("read url: %w", err)
					}
					var secret string
					if cmd.Bool("prompt-secret") {
						if secret, err = promptConfirmed("Signing secret: "); err != nil {
							return err
						}
					}

					dest, err := d.admin.CreateDestination(ctx, destination.CreateRequest{
						OwnerID:         cmd.String("owner"),
						RepoIdentifier:  cmd.String("repo"),
						NotificationURL: url,
						Secret:          secret,
					})
					if err != nil {
						return fmt.Errorf("create destination: %w", err)
					}

					fmt.Fprintf(os.Stderr, "Destination created for %s (id=%s)\n", dest.RepoIdentifier, dest.ID)
					fmt.Printf("Payload URL: %s\n", webhookURL(d.cfg, dest.ID))
					fmt.Printf("Secret:      %s\n", dest.Secret)
					fmt.Fprintln(os.Stderr, "The secret is shown once. Store it in the repository's webhook settings now.")
					return nil
				}),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List destinations",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "only destinations of this account"},
				},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					dests, err := d.admin.ListDestinations(ctx, cmd.String("owner"))
					if err != nil {
						return fmt.Errorf("list destinations: %w", err)
					}
					if len(dests) == 0 {
						fmt.Println("No destinations found.")
						return nil
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "ID\tREPO\tOWNER\tNOTIFICATION_URL\tSECRET")
					for i := range dests {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
							dests[i].ID, dests[i].RepoIdentifier, dests[i].OwnerID, dests[i].RedactedURL(), dests[i].RedactedSecret())
					}
					return w.Flush()
				}),
			},
			{
				Name:  "update",
				Usage: "Change the notification URL or the signing secret",
				Flags: []cli.Flag{
					idFlag("id", "destination ID"),
					&cli.BoolFlag{Name: "url", Usage: "prompt for a new notification URL"},
					&cli.BoolFlag{Name: "secret", Usage: "prompt for a new signing secret"},
				},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					var req destination.UpdateRequest
					var err error
					if cmd.Bool("url") {
						if req.NotificationURL, err = promptSecret("Notification URL: "); err != nil {
							return fmt.Errorf("read url: %w", err)
						}
					}
					if cmd.Bool("secret") {
						if req.Secret, err = promptConfirmed("Signing secret: "); err != nil {
							return err
						}
					}
					if err := d.admin.UpdateDestination(ctx, cmd.String("id"), req); err != nil {
						return fmt.Errorf("update destination: %w", err)
					}
					fmt.Fprintln(os.Stderr, "Destination updated.")
					return nil
				}),
			},
			{
				Name:  "rotate-secret",
				Usage: "Replace the signing secret with a generated one",
				Flags: []cli.Flag{idFlag("id", "destination ID")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					secret, err := d.admin.RotateSecret(ctx, cmd.String("id"))
					if err != nil {
						return fmt.Errorf("rotate secret: %w", err)
					}
					fmt.Printf("Secret: %s\n", secret)
					fmt.Fprintln(os.Stderr, "Deliveries signed with the old secret are now rejected. Update the repository's webhook settings.")
					return nil
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete a destination with its mention settings",
				Flags: []cli.Flag{idFlag("id", "destination ID")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					if err := d.admin.DeleteDestination(ctx, cmd.String("id")); err != nil {
						return fmt.Errorf("delete destination: %w", err)
					}
					fmt.Fprintln(os.Stderr, "Destination deleted.")
					return nil
				}),
			},
		},
	}
}

func webhookURL(cfg *config.Config, id string) string {
	return cfg.Server.PublicURL + "/webhook/github/" + id
}

// ---------------------------------------------------------------------------
// Mention preferences and identities
// ---------------------------------------------------------------------------

func preferenceCommand() *cli.Command {
	return &cli.Command{
		Name:    "preference",
		Aliases: []string{"pref"},
		Usage:   "Choose which events mention the acting user",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the mention preference of every event",
				Flags: []cli.Flag{idFlag("destination", "destination ID")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					prefs, err := d.admin.Preferences(ctx, cmd.String("destination"))
					if err != nil {
						return fmt.Errorf("get preferences: %w", err)
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "EVENT\tMENTION")
					for _, k := range mention.AllEventKeys {
						_, _ = fmt.Fprintf(w, "%s\t%t\n", k, prefs.Enabled(k))
					}
					return w.Flush()
				}),
			},
			{
				Name:      "set",
				Usage:     "Enable or disable mentions for one event",
				ArgsUsage: "<event-key> <true|false>",
				Flags:     []cli.Flag{idFlag("destination", "destination ID")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					if cmd.Args().Len() != 2 {
						return errors.New("usage: hookrelay admin preference set --destination ID <event-key> <true|false>")
					}
					key := cmd.Args().Get(0)
					var enabled bool
					switch cmd.Args().Get(1) {
					case "true", "on", "yes":
						enabled = true
					case "false", "off", "no":
					default:
						return fmt.Errorf("expected true or false, got %q", cmd.Args().Get(1))
					}
					if err := d.admin.SetPreference(ctx, cmd.String("destination"), key, enabled); err != nil {
						return fmt.Errorf("set preference: %w", err)
					}
					fmt.Fprintf(os.Stderr, "%s mention set to %t.\n", key, enabled)
					return nil
				}),
			},
		},
	}
}

func identityCommand() *cli.Command {
	return &cli.Command{
		Name:  "identity",
		Usage: "Map repository usernames to chat user IDs",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Map a username",
				Flags: []cli.Flag{
					idFlag("destination", "destination ID"),
					idFlag("username", "repository username"),
					idFlag("handle", "numeric chat user ID"),
					&cli.StringFlag{Name: "owner", Usage: "account the identity belongs to"},
				},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					id, err := d.admin.AddIdentity(ctx, mention.IdentityRequest{
						DestinationID:  cmd.String("destination"),
						SourceUsername: cmd.String("username"),
						TargetHandle:   cmd.String("handle"),
						LinkedOwnerID:  cmd.String("owner"),
					})
					if err != nil {
						return fmt.Errorf("add identity: %w", err)
					}
					fmt.Fprintf(os.Stderr, "%s now mentions %s.\n", id.SourceUsername, id.Token())
					return nil
				}),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List mapped usernames",
				Flags:   []cli.Flag{idFlag("destination", "destination ID")},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					ids, err := d.admin.ListIdentities(ctx, cmd.String("destination"))
					if err != nil {
						return fmt.Errorf("list identities: %w", err)
					}
					if len(ids) == 0 {
						fmt.Println("No identities found.")
						return nil
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "USERNAME\tHANDLE\tOWNER")
					for i := range ids {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", ids[i].SourceUsername, ids[i].TargetHandle, ids[i].LinkedOwnerID)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "remove",
				Usage: "Remove a username mapping",
				Flags: []cli.Flag{
					idFlag("destination", "destination ID"),
					idFlag("username", "repository username"),
				},
				Action: withAdmin(func(ctx context.Context, cmd *cli.Command, d *adminDeps) error {
					if err := d.admin.RemoveIdentity(ctx, cmd.String("destination"), cmd.String("username")); err != nil {
						return fmt.Errorf("remove identity: %w", err)
					}
					fmt.Fprintln(os.Stderr, "Identity removed.")
					return nil
				}),
			},
		},
	}
}

// promptSecret reads a value from the terminal without echoing. Webhook URLs
// embed a token, so they are read the same way as secrets.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func promptConfirmed(prompt string) (string, error) {
	v, err := promptSecret(prompt)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	confirm, err := promptSecret("Confirm: ")
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	if v != confirm {
		return "", errors.New("values do not match")
	}
	return v, nil
}
