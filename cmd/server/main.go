package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/project-camp/internal/config"
	"github.com/iliyamo/project-camp/internal/database"
	"github.com/iliyamo/project-camp/internal/handler"
	"github.com/iliyamo/project-camp/internal/mailer"
	"github.com/iliyamo/project-camp/internal/middleware"
	"github.com/iliyamo/project-camp/internal/queue"
	"github.com/iliyamo/project-camp/internal/repository"
	"github.com/iliyamo/project-camp/internal/router"
	queue_publisher "github.com/iliyamo/project-camp/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the application together and blocks serving HTTP.  Every
// startup failure is returned rather than terminating inline so the whole
// sequence stays testable.
func run() error {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	projects := repository.NewProjectRepo(db)

	var notifier handler.Notifier
	if cfg.SMTPHost != "" {
		notifier = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender)
	} else {
		log.Println("mailer: SMTP_HOST not set, outbound email disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))

	guard := middleware.Auth(cfg.AccessTokenSecret, users)

	a := handler.NewAuthHandler(cfg, users, notifier)
	p := handler.NewProjectHandler(projects)
	if cfg.RabbitURL != "" {
		rabbitURL := cfg.RabbitURL
		p.Publish = func(ctx context.Context, ev queue.ProjectCreatedEvent) error {
			return queue_publisher.PublishProjectCreated(ctx, rabbitURL, ev)
		}
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, a, guard)
	router.RegisterProject(e, p, guard)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	return e.Start(addr)
}
