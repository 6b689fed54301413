package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	hrnats "github.com/Strob0t/hookrelay/internal/adapter/nats"
	"github.com/Strob0t/hookrelay/internal/port/messagequeue"
)

func newAuditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Inspect relay outcome events",
		Commands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "Print retained relay outcomes and follow new ones",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "stage", Usage: "only outcomes of this stage, e.g. delivery_failed"},
					&cli.BoolFlag{Name: "json", Usage: "print raw JSON events"},
				},
				Action: runAuditTail,
			},
		},
	}
}

func runAuditTail(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats is not configured (set NATS_URL)")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := hrnats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	subject := cfg.NATS.AuditSubject + ".>"
	if stage := cmd.String("stage"); stage != "" {
		subject = cfg.NATS.AuditSubject + "." + stage
	}
	raw := cmd.Bool("json")

	cancel, err := queue.Subscribe(ctx, subject, func(_ context.Context, _ string, data []byte) error {
		if raw {
			_, err := fmt.Fprintln(os.Stdout, string(data))
			return err
		}
		var p messagequeue.RelayOutcomePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		_, err := fmt.Fprintln(os.Stdout, formatOutcome(p))
		return err
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()

	<-ctx.Done()
	return nil
}

func formatOutcome(p messagequeue.RelayOutcomePayload) string {
	line := fmt.Sprintf("%s  %-17s dest=%s", p.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), p.Stage, p.DestinationID)
	if p.Repo != "" {
		line += " repo=" + p.Repo
	}
	if p.EventKey != "" {
		line += " event=" + p.EventKey
	} else if p.EventType != "" {
		line += " event=" + p.EventType
	}
	if p.Pinged {
		line += " pinged"
	}
	if p.StatusCode != 0 {
		line += fmt.Sprintf(" status=%d", p.StatusCode)
	}
	if p.Reason != "" {
		line += fmt.Sprintf(" reason=%q", p.Reason)
	}
	if p.RequestID != "" {
		line += " request_id=" + p.RequestID
	}
	return line
}
