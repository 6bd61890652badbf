package flagsapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/flagkit/pkg/apikey"
	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/evaluator"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// Healthcheck probes a backing dependency for the healthz endpoint.
type Healthcheck func(context.Context) error

// Service bundles the dependencies the HTTP surface exposes.
type Service struct {
	manager *feature.Manager
	engine  *evaluator.Engine
	keys    *apikey.Service
	trail   *audit.Logger
	checks  map[string]Healthcheck
}

// ServiceOption configures the HTTP surface.
type ServiceOption func(*Service)

// WithHealthcheck registers a named dependency probe for /healthz.
func WithHealthcheck(name string, check Healthcheck) ServiceOption {
	return func(s *Service) { s.checks[name] = check }
}

func NewService(manager *feature.Manager, engine *evaluator.Engine, keys *apikey.Service, trail *audit.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		manager: manager,
		engine:  engine,
		keys:    keys,
		trail:   trail,
		checks:  make(map[string]Healthcheck),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router. Evaluation endpoints and healthz are
// open; everything under /admin requires a valid API key.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Post("/evaluate", s.evaluate)
	r.Post("/preview", s.preview)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(requireAPIKey(s.keys))

		admin.Route("/features", func(features chi.Router) {
			features.Get("/", s.listFeatures)
			features.Post("/", s.createFeature)
			features.Get("/{featureID}", s.getFeature)
			features.Patch("/{featureID}", s.updateFeature)
			features.Post("/{featureID}/archive", s.archiveFeature)

			features.Route("/{featureID}/rules", func(rules chi.Router) {
				rules.Get("/", s.listRules)
				rules.Post("/", s.createRule)
				rules.Get("/{ruleID}", s.getRule)
				rules.Patch("/{ruleID}", s.updateRule)
				rules.Post("/{ruleID}/disable", s.disableRule)
				rules.Delete("/{ruleID}", s.deleteRule)
			})
		})

		admin.Route("/api-keys", func(keys chi.Router) {
			keys.Get("/", s.listKeys)
			keys.Post("/", s.createKey)
			keys.Post("/{keyID}/rotate", s.rotateKey)
			keys.Delete("/{keyID}", s.revokeKey)
		})

		admin.Get("/audit", s.listAudit)
	})

	return r
}

func (s *Service) healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	respondData(w, status, report)
}
