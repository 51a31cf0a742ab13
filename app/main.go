package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/blogspace/internal/blogservice"
	"github.com/sushihentaime/blogspace/internal/common"
	"github.com/sushihentaime/blogspace/internal/mailservice"
	"github.com/sushihentaime/blogspace/internal/storage"
	"github.com/sushihentaime/blogspace/internal/storage/localstore"
	"github.com/sushihentaime/blogspace/internal/storage/postgres"
	"github.com/sushihentaime/blogspace/internal/userservice"
)

type application struct {
	config      *Config
	logger      *slog.Logger
	userService *userservice.UserService
	blogService *blogservice.BlogService
	mailService *mailservice.MailService
	broker      *common.MessageBroker
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Select the storage backend. The facades are identical over both: the
	// local store keeps denormalized JSON records on disk, the postgres
	// gateway assembles the same aggregates from normalized relations.
	var store storage.Storage
	switch cfg.Backend {
	case "postgres":
		db, err := common.NewDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, 10, 5, 15*time.Minute)
		if err != nil {
			logger.Error("failed to connect to the database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer common.CloseDB(db)

		store = postgres.New(db)
	default:
		local, err := localstore.New(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open the local store", slog.String("error", err.Error()))
			os.Exit(1)
		}

		if err := local.Seed(context.Background()); err != nil {
			logger.Error("failed to seed the local store", slog.String("error", err.Error()))
			os.Exit(1)
		}

		store = local
	}

	// The message broker is optional: without it registration still works, it
	// just skips the welcome mail.
	var broker *common.MessageBroker
	var producer common.MessageProducer
	if cfg.MQHost != "" {
		URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort)
		broker, err = common.NewMessageBroker(URI)
		if err != nil {
			logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer broker.Close()

		err = common.SetupUserExchange(broker)
		if err != nil {
			logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
			os.Exit(1)
		}

		producer = broker
	}

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(store, producer),
		blogService: blogservice.NewBlogService(store, common.NewCache(5*time.Minute, 10*time.Minute)),
		broker:      broker,
	}

	if broker != nil {
		app.mailService = mailservice.NewMailService(broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, logger)
		app.mailService.SendWelcomeEmail()
		defer app.mailService.Close()
	}

	// Restore the persisted session pointer before serving requests.
	if err := app.userService.Restore(context.Background()); err != nil {
		logger.Error("failed to restore the session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
