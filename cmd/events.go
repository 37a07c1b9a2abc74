/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/recipe-app/apiserver/config"
	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/mq"
	"github.com/recipe-app/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsChannel string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published domain events",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Subscribe to a channel and log every received event",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger, err := logging.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		backend, err := mq.NewBackend(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		queue := mq.New(backend)
		defer queue.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("listening for events", zap.String("channel", eventsChannel))
		err = queue.Subscribe(ctx, eventsChannel, func(ctx context.Context, msg mq.Message) error {
			var event services.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				logger.Warn("undecodable event", zap.String("id", msg.ID), zap.Error(err))
				return nil
			}
			logger.Info("event received",
				zap.String("id", msg.ID),
				zap.String("type", event.Type),
				zap.Int("user_id", event.UserID),
				zap.Int("recipe_id", event.RecipeID),
				zap.String("image_key", event.ImageKey),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", eventsChannel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListenCmd)

	eventsListenCmd.Flags().StringVar(&eventsChannel, "channel", services.EventRecipeCreated, "channel to subscribe to")
}
