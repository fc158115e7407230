// Package http exposes the shortening core over a chi router.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/dmarkhas/tinylink/internal/models"
)

// URLService is the core consumed by the HTTP layer.
type URLService interface {
	Shorten(ctx context.Context, rawURL string, ownerID *int64) (*models.URLRecord, error)
	Resolve(ctx context.Context, shortCode string) (*models.URLRecord, error)
	ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error)
	CollisionStats(ctx context.Context) (*models.CollisionStats, error)
	UsingFallback() bool
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func NewRouter(logger *httplog.Logger, urlSvc URLService) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(urlSvc))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		validate := getValidate()

		r.Get("/ping", handlePing)
		r.Post("/shorten", handleShortenURL(urlSvc, validate))
		r.Get("/owners/{ownerID}/urls", handleListRecords(urlSvc))
		r.Get("/stats/collisions", handleCollisionStats(urlSvc))
	})

	// Must be last: catches every remaining GET as a short code lookup.
	r.Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}
