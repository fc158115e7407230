package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"

	"github.com/dmarkhas/tinylink/internal/database"
	"github.com/dmarkhas/tinylink/internal/models"
	"github.com/dmarkhas/tinylink/internal/service"
	"github.com/dmarkhas/tinylink/pkg/response"
)

type MockURLService struct {
	mock.Mock
}

func (m *MockURLService) Shorten(ctx context.Context, rawURL string, ownerID *int64) (*models.URLRecord, error) {
	args := m.Called(ctx, rawURL, ownerID)
	rec, _ := args.Get(0).(*models.URLRecord)
	return rec, args.Error(1)
}

func (m *MockURLService) Resolve(ctx context.Context, shortCode string) (*models.URLRecord, error) {
	args := m.Called(ctx, shortCode)
	rec, _ := args.Get(0).(*models.URLRecord)
	return rec, args.Error(1)
}

func (m *MockURLService) ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error) {
	args := m.Called(ctx, ownerID)
	records, _ := args.Get(0).([]models.URLRecord)
	return records, args.Error(1)
}

func (m *MockURLService) CollisionStats(ctx context.Context) (*models.CollisionStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.CollisionStats)
	return stats, args.Error(1)
}

func (m *MockURLService) UsingFallback() bool {
	return m.Called().Bool(0)
}

func setupRouter(t *testing.T) (*httpexpect.Expect, *MockURLService) {
	t.Helper()

	svc := new(MockURLService)
	logger := httplog.NewLogger("test", httplog.Options{Writer: io.Discard})

	server := httptest.NewServer(NewRouter(logger, svc))
	t.Cleanup(server.Close)

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  server.URL,
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})

	return e, svc
}

func TestPing(t *testing.T) {
	e, _ := setupRouter(t)

	e.GET("/api/v1/ping").
		Expect().
		Status(http.StatusOK).
		Text().Contains("pong")
}

func TestHealth(t *testing.T) {
	t.Run("serving from database", func(t *testing.T) {
		e, svc := setupRouter(t)
		svc.On("UsingFallback").Return(false)

		resp := e.GET("/health").
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "OK")
		resp.HasValue("storage", "database")
	})

	t.Run("serving from fallback", func(t *testing.T) {
		e, svc := setupRouter(t)
		svc.On("UsingFallback").Return(true)

		e.GET("/health").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("storage", "fallback")
	})
}

func TestShortenURL(t *testing.T) {
	t.Run("empty request body", func(t *testing.T) {
		e, _ := setupRouter(t)

		resp := e.POST("/api/v1/shorten").
			WithHeader("Content-Type", "application/json").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", response.StatusError)
		resp.HasValue("error", "Empty Request Body")
	})

	t.Run("missing url field", func(t *testing.T) {
		e, _ := setupRouter(t)

		resp := e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"other": "value"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", response.StatusError)
		resp.HasValue("error", "Validation Error")
		resp.Value("details").Array().NotEmpty()
	})

	t.Run("missing protocol is repaired", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Shorten", mock.Anything, "https://example.com", (*int64)(nil)).
			Once().
			Return(&models.URLRecord{
				ShortCode:   "abc12",
				ShortURL:    "http://localhost:8080/abc12",
				OriginalURL: "https://example.com",
			}, nil)

		e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"url": "example.com"}).
			Expect().
			Status(http.StatusCreated)

		svc.AssertExpectations(t)
	})

	t.Run("code collision", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Shorten", mock.Anything, "https://example.com", (*int64)(nil)).
			Once().
			Return(nil, service.ErrCodeCollision)

		resp := e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"url": "https://example.com"}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object()

		resp.HasValue("status", response.StatusError)
		resp.HasValue("error", "Short Code Collision")
	})

	t.Run("unknown owner", func(t *testing.T) {
		e, svc := setupRouter(t)
		ownerID := int64(42)

		svc.
			On("Shorten", mock.Anything, "https://example.com", &ownerID).
			Once().
			Return(nil, database.ErrOwnerNotFound)

		e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"url": "https://example.com", "owner_id": ownerID}).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "Resource Not Found")
	})

	t.Run("generation exhausted", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Shorten", mock.Anything, "https://example.com", (*int64)(nil)).
			Once().
			Return(nil, service.ErrGenerationExhausted)

		e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("error", "Generation Exhausted")
	})

	t.Run("success", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Shorten", mock.Anything, "https://example.com", (*int64)(nil)).
			Once().
			Return(&models.URLRecord{
				ShortCode:   "abc12",
				ShortURL:    "http://localhost:8080/abc12",
				OriginalURL: "https://example.com",
				CreatedAt:   time.Now().UTC(),
			}, nil)

		resp := e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("status", response.StatusSuccess)
		data := resp.Value("data").Object()
		data.HasValue("short_code", "abc12")
		data.HasValue("short_url", "http://localhost:8080/abc12")
		data.HasValue("original_url", "https://example.com")

		svc.AssertExpectations(t)
	})
}

func TestRedirect(t *testing.T) {
	t.Run("invalid short code", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Resolve", mock.Anything, "ab").
			Once().
			Return(nil, service.ErrInvalidCode)

		e.GET("/ab").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Invalid Short Code")
	})

	t.Run("unknown short code", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Resolve", mock.Anything, "abc12").
			Once().
			Return(nil, database.ErrRecordNotFound)

		e.GET("/abc12").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "Resource Not Found")
	})

	t.Run("malformed record", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Resolve", mock.Anything, "abc12").
			Once().
			Return(nil, service.ErrMalformedRecord)

		e.GET("/abc12").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Malformed Record")
	})

	t.Run("success", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("Resolve", mock.Anything, "abc12").
			Once().
			Return(&models.URLRecord{
				ShortCode:   "abc12",
				OriginalURL: "https://example.com",
			}, nil)

		e.GET("/abc12").
			Expect().
			Status(http.StatusMovedPermanently).
			Header("Location").IsEqual("https://example.com")

		svc.AssertExpectations(t)
	})
}

func TestListRecords(t *testing.T) {
	t.Run("malformed owner id", func(t *testing.T) {
		e, _ := setupRouter(t)

		e.GET("/api/v1/owners/abc/urls").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Bad Request")
	})

	t.Run("unknown owner", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("ListRecords", mock.Anything, int64(42)).
			Once().
			Return(nil, database.ErrOwnerNotFound)

		e.GET("/api/v1/owners/42/urls").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "Resource Not Found")
	})

	t.Run("success", func(t *testing.T) {
		e, svc := setupRouter(t)

		svc.
			On("ListRecords", mock.Anything, int64(42)).
			Once().
			Return([]models.URLRecord{
				{ShortCode: "aaa11", OriginalURL: "https://example.com/a"},
				{ShortCode: "bbb22", OriginalURL: "https://example.com/b"},
			}, nil)

		resp := e.GET("/api/v1/owners/42/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", response.StatusSuccess)
		data := resp.Value("data").Array()
		data.Length().IsEqual(2)
		data.Value(0).Object().HasValue("short_code", "aaa11")
		data.Value(1).Object().HasValue("short_code", "bbb22")
	})
}

func TestCollisionStats(t *testing.T) {
	e, svc := setupRouter(t)

	svc.
		On("CollisionStats", mock.Anything).
		Once().
		Return(&models.CollisionStats{TotalRecords: 10, DistinctCodes: 10}, nil)

	resp := e.GET("/api/v1/stats/collisions").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	resp.HasValue("status", response.StatusSuccess)
	data := resp.Value("data").Object()
	data.HasValue("total_records", 10)
	data.HasValue("distinct_codes", 10)
}
