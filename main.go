package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/config"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/consumer"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/handler"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/notification"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/service"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/database"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/lock"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/mailer"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/rabbitmq"
	"github.com/Eursukkul/booking-microservice/reservation-service/pkg/scheduler"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	log := newLogger()
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	setLogLevel(log, cfg.LogLevel)

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Repositories
	roomRepo := repository.NewRoomRepository(db)
	resRepo := repository.NewReservationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	tx := repository.NewTransactor(db)

	// Sweep lock: Redis when replicas share the schedule, in-process otherwise
	var locker service.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, log)
	}

	// Invoice events: publish on payment, consume into mail
	var notifier service.Notifier
	var rabbitNotifier *notification.RabbitNotifier
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, log)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable, invoices disabled")
		} else {
			defer pub.Close()
			rabbitNotifier = notification.NewRabbitNotifier(pub, log)
			notifier = rabbitNotifier
		}
	}

	if notifier != nil && cfg.SMTPHost != "" && cfg.NotifyTo != "" {
		m, err := mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			log.Fatalf("mailer: %v", err)
		}
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, log)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewInvoiceConsumer(m, cfg.MailFrom, cfg.NotifyTo, log).Start(msgs)
	}

	// Services
	bookingSvc := service.NewBookingService(tx, roomRepo, resRepo, paymentRepo, notifier, log)
	roomSvc := service.NewRoomService(tx, roomRepo, log)
	reportSvc := service.NewReportService(tx, resRepo, paymentRepo, cfg.Location, log)
	sweeper := service.NewSweeper(tx, roomRepo, resRepo, paymentRepo, locker, service.SweeperConfig{
		Location:  cfg.Location,
		Retention: cfg.RetentionAge(),
	}, log)

	// Daily no-show sweep and retention purge
	sched, err := scheduler.New(cfg.Location, log)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	hour, minute, _ := cfg.SweepTime()
	if err := sched.Daily("daily-maintenance", hour, minute, sweeper.RunDaily); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sched.Start()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	e.Use(echoMw.RequestID())
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", handler.Health)

	api := e.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))
	handler.NewRoomHandler(roomSvc, log).RegisterRoutes(api)
	handler.NewReservationHandler(bookingSvc, log).RegisterRoutes(api)
	handler.NewAdminHandler(reportSvc, sweeper, log).RegisterRoutes(api)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Reservation Service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := sched.Shutdown(); err != nil {
		log.WithError(err).Error("scheduler shutdown")
	}
	if rabbitNotifier != nil {
		rabbitNotifier.Wait()
	}
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	return l
}

func setLogLevel(l *logrus.Logger, level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithError(err).Warn("invalid LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
}
