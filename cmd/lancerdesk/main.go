package main

import (
	"fmt"
	"log"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/cache"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/database"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/env"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/mail"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/metrics/counter"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/router"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/storage"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	billingRepo := billing.NewRepository(db)
	mailer := mail.NewSMTPMailerFromEnv()

	// Stripe is optional at boot. Billing endpoints answer 5xx until the
	// key is configured.
	var fetcher billing.SubscriptionFetcher
	stripeClient, err := billing.NewClientFromEnv()
	if err != nil {
		fiberlog.Warnf("stripe client disabled: %v", err)
		stripeClient = nil
	} else {
		fetcher = stripeClient
	}
	billingSvc := billing.NewService(billingRepo, fetcher, mailer)

	var store storage.Uploader
	if cfg, err := storage.LoadConfig(); err != nil {
		fiberlog.Warnf("object storage disabled: %v", err)
	} else if client, err := storage.NewClient(cfg); err != nil {
		fiberlog.Warnf("object storage disabled: %v", err)
	} else {
		store = client
	}

	limiter := ratelimit.NewService(ratelimit.NewRepository(db))

	// Fold pending review view counters into the database periodically.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := counter.FlushAll(); err != nil {
				fiberlog.Warnf("flush view counters: %v", err)
			}
		}
	}()

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024, // multipart envelope above the 10 MiB file ceiling
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// Public review endpoints are called cross-origin from client browsers,
	// so CORS answers the OPTIONS preflight for every route.
	app.Use(cors.New(cors.Config{
		AllowMethods: "POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,X-API-Key,Stripe-Signature",
	}))

	// SWAGGER / OPENAPI
	// A broken document is a deploy error; validate before serving it.
	loader := openapi3.NewLoader()
	if doc, err := loader.LoadFromFile("./docs/v1/openapi.yml"); err != nil {
		log.Fatalf("load openapi document: %v", err)
	} else if err := doc.Validate(loader.Context); err != nil {
		log.Fatalf("invalid openapi document: %v", err)
	}
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Repos:          repos,
		BillingRepo:    billingRepo,
		BillingService: billingSvc,
		StripeClient:   stripeClient,
		Mailer:         mailer,
		Store:          store,
		Limiter:        limiter,
		Buckets:        ratelimit.LoadBuckets(),
	})

	return app
}
