package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/court-rotation/internal/database"
	"github.com/iliyamo/court-rotation/internal/queue"
	"github.com/iliyamo/court-rotation/internal/utils"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a HOST access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.AccessTTLMin
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, subject, utils.RoleHost, ttl, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			log.Info().Str("subject", subject).Time("expires_at", tok.Exp).Msg("token issued")
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "host", "token subject")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
	return cmd
}

func consumeCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append match lifecycle events to <dir>/matches.log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log.Info().Str("queue", queue.EventsQueueName).Str("dir", dir).Msg("consuming events")
			if err := queue.StartEventConsumer(ctx, cfg.AMQPURL, dir); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "logs", "directory for matches.log")
	return cmd
}
