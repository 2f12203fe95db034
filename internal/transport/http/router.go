package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/application/notify"
	"github.com/lostfound-api/internal/application/otp"
	"github.com/lostfound-api/internal/application/quota"
	"github.com/lostfound-api/internal/application/verify"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/infrastructure/dynamo"
	s3infra "github.com/lostfound-api/internal/infrastructure/s3"
	"github.com/lostfound-api/internal/infrastructure/smtp"
	"github.com/lostfound-api/internal/infrastructure/sns"
	"github.com/lostfound-api/internal/transport/http/handler"
	appmiddleware "github.com/lostfound-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	ItemRepo   *dynamo.ItemRepo
	PhotoStore *s3infra.Store
	Mailer     smtp.Mailer
	Publisher  sns.TopicPublisher // nil when no topic is configured
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, applied to the public OTP endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(otp.NewMemoryStore(), cfg.OTPTTL)
	gate := verify.NewGate(otpSvc, verify.NewMemorySet(), deps.Mailer)
	tracker := quota.NewMemoryTracker(cfg.SubmissionQuota)
	notifier := notify.NewService(deps.Mailer, deps.Publisher)
	itemSvc := item.NewService(item.ServiceDeps{
		Repo:                      deps.ItemRepo,
		Photos:                    deps.PhotoStore,
		Gate:                      gate,
		Quota:                     tracker,
		Notifier:                  notifier,
		EmailRule:                 domain.NewEmailRule(cfg.InstitutionDomain),
		ClaimConsumesVerification: cfg.ClaimConsumesVerification,
	})

	healthH := handler.NewHealthHandler()
	itemH := handler.NewItemHandler(itemSvc)
	verifH := handler.NewVerificationHandler(gate, itemSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/verification/request", verifH.Request)
		r.With(sensitiveRL.Limit).Post("/verification/validate-code", verifH.Validate)

		r.Get("/items", itemH.List)
		r.Post("/items", itemH.Create)
		r.Get("/items/{id}", itemH.Get)
		r.Get("/items/{id}/photo", itemH.Photo)
		r.With(sensitiveRL.Limit).Post("/items/{id}/verification", verifH.RequestForItem)
		r.Post("/items/{id}/sightings", itemH.Sighting)
		r.Post("/items/{id}/claims", itemH.Claim)
		r.Post("/items/{id}/resolve", itemH.Resolve)
	})

	return r
}
