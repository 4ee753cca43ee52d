/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tails order events from the message broker",
	Long: `Subscribes to order events on the configured broker (MQ_BACKEND) and
logs each one until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.MQBackend == "" {
			return errors.New("MQ_BACKEND is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect %s: %w", cfg.MQBackend, err)
		}
		defer broker.Close()

		log.Printf("listening for order events backend=%s topic=%s", cfg.MQBackend, mq.TopicOrderEvents)
		err = broker.Subscribe(ctx, mq.TopicOrderEvents, func(_ context.Context, msg mq.Message) error {
			event, err := mq.DecodeOrderEvent(msg)
			if err != nil {
				return err
			}
			log.Printf("order event type=%s order_id=%s user_id=%s status=%s products=%d total=%.2f",
				event.Type, event.OrderID, event.UserID, event.Status, len(event.ProductIDs), event.Total)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
