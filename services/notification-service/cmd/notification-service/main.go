package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotdesk/libs/config"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotdesk/libs/otel"
	"github.com/md-rashed-zaman/slotdesk/libs/runtime"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/dispatch"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/sms"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	service := config.String("SERVICE_NAME", "notification-service")
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))
	port, err := config.Port("PORT", "8085")
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = func(context.Context) error { return nil }
	}

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	redisAddr, err := config.RequiredString("REDIS_ADDR")
	if err != nil {
		return err
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: config.String("REDIS_PASSWORD", ""),
	})
	defer rdb.Close()
	inboxTTL, err := config.Duration("INBOX_TTL", inbox.DefaultTTL)
	if err != nil {
		return err
	}
	maxAttempts, err := config.Int("DELIVERY_MAX_ATTEMPTS", consumer.DefaultMaxAttempts)
	if err != nil {
		return err
	}

	emailSender, err := newEmailSender()
	if err != nil {
		return err
	}
	smsSender, err := newSMSSender()
	if err != nil {
		return err
	}
	logger.Info("senders configured", "sms_provider", smsSender.ProviderID())

	dispatcher := dispatch.New(emailSender, smsSender, logger)
	eventConsumer := consumer.New(logger, inbox.New(rdb, "slotdesk:notify:inbox:", inboxTTL), consumer.Config{
		Brokers:     brokers,
		GroupID:     config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics:      dispatch.Topics(),
		MaxAttempts: maxAttempts,
	}, dispatcher.Handle)
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	runtime.GracefulStop(logger, 10*time.Second,
		runtime.Stopper{Name: "http server", Stop: srv.Shutdown},
		runtime.Stopper{Name: "tracing", Stop: otelShutdown},
	)
	return nil
}

func newEmailSender() (email.Sender, error) {
	host := config.String("SMTP_HOST", "")
	if host == "" {
		return email.NoopSender{}, nil
	}
	rawPort := config.String("SMTP_PORT", "1025")
	smtpPort, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be an integer (got %q)", rawPort)
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:     host,
		Port:     smtpPort,
		Username: config.String("SMTP_USERNAME", ""),
		Password: config.String("SMTP_PASSWORD", ""),
		From:     config.String("SMTP_FROM", "no-reply@slotdesk.local"),
	}), nil
}

func newSMSSender() (sms.Sender, error) {
	switch provider := strings.ToLower(config.String("SMS_PROVIDER", "noop")); provider {
	case "noop":
		return sms.NewNoopSender(), nil
	case "webhook":
		return sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", "")), nil
	case "twilio":
		return sms.NewTwilioSender(
			config.String("TWILIO_ACCOUNT_SID", ""),
			config.String("TWILIO_AUTH_TOKEN", ""),
			config.String("TWILIO_FROM", ""),
		)
	default:
		return nil, fmt.Errorf("SMS_PROVIDER must be noop, webhook or twilio (got %q)", provider)
	}
}
