package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/email"
	"github.com/Domenick1991/skycheckout/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadEnv(".env"); err != nil {
		logger.WithError(err).Fatal("load env")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("kafka.brokers is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emailSender := email.NewSender(logger)

	notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer notifications.Close()
	bookingEvents := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-audit", cfg.Kafka.BookingEventsTopic)
	defer bookingEvents.Close()

	var wg sync.WaitGroup
	run := func(name string, consumer *kafka.Consumer, handle func(context.Context, kafka.BookingEvent)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
				event, err := kafka.DecodeBookingEvent(msg)
				if err != nil {
					logger.WithError(err).WithField("consumer", name).Warn("skip malformed event")
					return nil
				}
				handle(ctx, event)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).WithField("consumer", name).Error("consumer stopped")
				stop()
			}
		}()
	}

	// Confirmations arrive on the notifications topic; failed attempts only
	// on the booking events topic.
	run("notifications", notifications, func(ctx context.Context, event kafka.BookingEvent) {
		if event.Type != kafka.EventBookingCompleted {
			return
		}
		if err := emailSender.Send(ctx, event); err != nil {
			logger.WithError(err).WithField("booking_id", event.BookingID).Warn("send confirmation")
		}
	})
	run("booking-events", bookingEvents, func(ctx context.Context, event kafka.BookingEvent) {
		logger.WithFields(logrus.Fields{
			"type":        event.Type,
			"session_id":  event.SessionID,
			"booking_id":  event.BookingID,
			"status":      event.Status,
			"total_cents": event.TotalCents,
		}).Info("booking event")
		if event.Type != kafka.EventPaymentFailed || event.Email == "" {
			return
		}
		if err := emailSender.Send(ctx, event); err != nil {
			logger.WithError(err).WithField("session_id", event.SessionID).Warn("send payment failure notice")
		}
	})

	logger.Info("worker started")
	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
}
