package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/dmarkhas/tinylink/internal/database"
	"github.com/dmarkhas/tinylink/internal/models"
	"github.com/dmarkhas/tinylink/internal/service"
	"github.com/dmarkhas/tinylink/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

func handleHealth(svc URLService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storage := "database"
		if svc.UsingFallback() {
			storage = "fallback"
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]any{
			"status":    "OK",
			"storage":   storage,
			"timestamp": time.Now().UTC(),
		})
	}
}

type shortenRequest struct {
	URL     string `json:"url" validate:"required,url"`
	OwnerID *int64 `json:"owner_id,omitempty"`
}

type recordResponse struct {
	ShortCode    string     `json:"short_code"`
	ShortURL     string     `json:"short_url"`
	OriginalURL  string     `json:"original_url"`
	ClickCount   int64      `json:"click_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toRecordResponse(rec *models.URLRecord) recordResponse {
	return recordResponse{
		ShortCode:    rec.ShortCode,
		ShortURL:     rec.ShortURL,
		OriginalURL:  rec.OriginalURL,
		ClickCount:   rec.ClickCount,
		LastAccessed: rec.LastAccessed,
		CreatedAt:    rec.CreatedAt,
	}
}

func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		// Submission-time repair: a missing protocol gets https. Doubled
		// protocols are the normalizer's job, not ours.
		req.URL = strings.TrimSpace(req.URL)
		if req.URL != "" && !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			req.URL = "https://" + req.URL
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		rec, err := svc.Shorten(r.Context(), req.URL, req.OwnerID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrCodeCollision):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.CodeCollisionResponse)
			case errors.Is(err, database.ErrOwnerNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, service.ErrGenerationExhausted):
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.GenerationExhaustedResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toRecordResponse(rec)))
	}
}

func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		rec, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidShortCodeResponse)
			case errors.Is(err, database.ErrRecordNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, service.ErrMalformedRecord):
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.MalformedRecordResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		http.Redirect(w, r, rec.OriginalURL, http.StatusMovedPermanently)
	}
}

func handleListRecords(svc URLService) http.HandlerFunc {
	const op = "api.http.handleListRecords"
	const successMsg = "The URL history retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		records, err := svc.ListRecords(r.Context(), ownerID)
		if err != nil {
			if errors.Is(err, database.ErrOwnerNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]recordResponse, 0, len(records))
		for i := range records {
			data = append(data, toRecordResponse(&records[i]))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func handleCollisionStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleCollisionStats"
	const successMsg = "The collision statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.CollisionStats(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, map[string]int64{
			"total_records":  stats.TotalRecords,
			"distinct_codes": stats.DistinctCodes,
		}))
	}
}
