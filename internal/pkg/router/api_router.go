package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/MarcoHauser/LancerDesk/app/controllers"
	"github.com/MarcoHauser/LancerDesk/app/repository"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/billing"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/mail"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/middleware"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
	"github.com/MarcoHauser/LancerDesk/internal/pkg/storage"
)

// Dependencies carries everything the API controllers need. Built once in
// main and handed to InstallRouter.
type Dependencies struct {
	Repos          *repository.Repositories
	BillingRepo    billing.Repository
	BillingService *billing.Service
	StripeClient   *billing.Client
	Mailer         mail.Mailer
	Store          storage.Uploader
	Limiter        *ratelimit.Service
	Buckets        ratelimit.Buckets
}

type ApiRouter struct {
	deps Dependencies
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	d := h.deps

	authCtrl := controllers.NewAuthController(d.Repos.User)
	billingCtrl := controllers.NewBillingController(d.BillingService, d.BillingRepo, d.StripeClient)
	reviewCtrl := controllers.NewReviewController(d.Repos.Review, d.Repos.Client, d.Limiter, d.Buckets)
	uploadCtrl := controllers.NewUploadController(d.Repos.Review, d.BillingRepo, d.Store, d.Limiter, d.Buckets)
	emailCtrl := controllers.NewEmailController(d.Repos.Invoice, d.Repos.Review, d.Repos.Client, d.BillingRepo, d.Mailer, d.Limiter, d.Buckets)
	clientCtrl := controllers.NewClientController(d.Repos.Client)
	invoiceCtrl := controllers.NewInvoiceController(d.Repos.Invoice, d.Repos.Client)

	api := app.Group("/api", limiter.New(limiter.Config{Max: 300}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Account endpoints, unauthenticated by nature.
	v1.Post("/auth/register", authCtrl.HandleRegister)
	v1.Post("/auth/login", authCtrl.HandleLogin)

	// Provider webhook: authenticated by signature, not API key.
	v1.Post("/billing/webhook", billingCtrl.HandleStripeWebhook)

	// Public share-token endpoints, rate limited per token/email.
	public := v1.Group("/public")
	public.Post("/review", reviewCtrl.HandlePublicReviewFetch)
	public.Post("/review/comment", reviewCtrl.HandlePublicReviewComment)
	public.Post("/review/status", reviewCtrl.HandlePublicReviewStatus)

	// Everything below requires a valid API key.
	auth := v1.Group("", middleware.APIKeyAuthMiddleware())
	auth.Post("/billing/checkout", billingCtrl.HandleCreateCheckoutSession)
	auth.Post("/billing/portal", billingCtrl.HandleCreatePortalSession)
	auth.Post("/billing/checkout/sync", billingCtrl.HandleCheckoutSync)
	auth.Post("/billing/trial-reminders", middleware.RequireAdmin, billingCtrl.HandleTrialReminderSweep)

	auth.Post("/clients", clientCtrl.HandleCreateClient)
	auth.Post("/invoices", invoiceCtrl.HandleCreateInvoice)
	auth.Post("/invoices/:id/send", emailCtrl.HandleSendInvoiceEmail)

	auth.Post("/reviews", reviewCtrl.HandleCreateReviewRequest)
	auth.Post("/reviews/upload", uploadCtrl.HandleReviewFileUpload)
	auth.Post("/reviews/:id/send", emailCtrl.HandleSendReviewEmail)
}
