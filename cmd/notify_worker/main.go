package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/config"
	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/pkg/helpers"
	"github.com/oksasatya/adhunt/pkg/mailer"
	mailtpl "github.com/oksasatya/adhunt/pkg/mailer/templates"
)

// notify_worker drains advertisement advisories from RabbitMQ and mails the
// moderation inbox for each one.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-notify-worker", cfg.Env, cfg.LogLevel)

	if !cfg.NotifyEnabled {
		logger.Info("NOTIFY_ENABLED=false; notify worker disabled")
		return
	}
	if cfg.NotifyBackend != "rabbitmq" {
		log.Fatalf("notify worker consumes RabbitMQ only, NOTIFY_BACKEND=%s", cfg.NotifyBackend)
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" || cfg.ModerationAlertEmail == "" {
		log.Fatal("Mailgun and MODERATION_ALERT_EMAIL must be configured")
	}

	q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQAdsQueue)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer q.Close()

	// prefetch for fair dispatch across workers
	msgs, err := q.Consume(16)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	w := &worker{
		sender:    mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender),
		appName:   cfg.AppName,
		recipient: cfg.ModerationAlertEmail,
		baseURL:   cfg.PublicBaseURL,
		logger:    logger,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			w.handle(context.Background(), msg)
		}
	}()

	logger.Infof("notify worker listening on queue=%s", cfg.RabbitMQAdsQueue)
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// acknowledger is the part of amqp.Delivery the worker settles.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type worker struct {
	sender    mailer.Sender
	appName   string
	recipient string
	baseURL   string
	logger    *logrus.Logger
}

func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	w.process(ctx, msg.Body, msg)
}

// process acks on success, requeues a failed send and drops malformed
// advisories.
func (w *worker) process(ctx context.Context, body []byte, ack acknowledger) {
	var a application.Advisory
	if err := json.Unmarshal(body, &a); err != nil || a.ID == 0 {
		w.logger.WithError(err).Warn("dropping malformed advisory")
		_ = ack.Nack(false, false)
		return
	}
	job := mailer.EmailJob{
		To:       w.recipient,
		Template: mailtpl.ModerationAlert,
		Data: mailtpl.NewModerationAlertData(w.appName, w.recipient, a.ID, a.Title, a.Author, a.Status,
			mailtpl.WithReviewBase(w.baseURL)),
	}
	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := mailer.Deliver(sendCtx, w.sender, job); err != nil {
		w.logger.WithError(err).WithField("advertisement_id", a.ID).Warn("moderation alert failed, requeueing")
		_ = ack.Nack(false, true)
		return
	}
	w.logger.WithField("advertisement_id", a.ID).Info("moderation alert sent")
	_ = ack.Ack(false)
}
