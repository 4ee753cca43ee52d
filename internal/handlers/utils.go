package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/listing"
)

const maxJSONBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", nil)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Status: status, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Status: status, Message: message})
}

// writeServiceError renders err by its kind. Internal causes are logged and
// never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal("internal server error", err)
	}
	if appErr.Kind == apperror.KindInternal {
		log.Printf("request failed method=%s path=%s error=%q", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, appErr.Message)
		return
	}
	writeError(w, appErr.StatusCode(), appErr.Message)
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return apperror.Validation(describeValidation(fieldErrs))
		}
		return apperror.BadRequest("invalid request body")
	}
	return nil
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", lowerFirst(fe.Field()), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// parseUUIDParam reads a path parameter that must be a UUID.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid " + name)
	}
	return id, nil
}

// parseListParams reads the shared listing query parameters. Page numbers
// and sizes below one are rejected; oversized pages are clamped.
func parseListParams(r *http.Request) (listing.Params, error) {
	q := r.URL.Query()
	p := listing.Params{
		Keyword:    strings.TrimSpace(q.Get("keyword")),
		SortBy:     strings.TrimSpace(q.Get("sortBy")),
		Ascending:  true,
		PageNumber: listing.DefaultPageNumber,
		PageSize:   listing.DefaultPageSize,
	}

	var err error
	if raw := strings.TrimSpace(q.Get("pageNumber")); raw != "" {
		p.PageNumber, err = strconv.Atoi(raw)
		if err != nil || p.PageNumber < 1 {
			return listing.Params{}, apperror.BadRequest("invalid pageNumber")
		}
	}
	if raw := strings.TrimSpace(q.Get("pageSize")); raw != "" {
		p.PageSize, err = strconv.Atoi(raw)
		if err != nil || p.PageSize < 1 {
			return listing.Params{}, apperror.BadRequest("invalid pageSize")
		}
	}
	if raw := strings.TrimSpace(q.Get("isAscending")); raw != "" {
		p.Ascending, err = strconv.ParseBool(raw)
		if err != nil {
			return listing.Params{}, apperror.BadRequest("invalid isAscending")
		}
	}
	if p.MinPrice, err = parsePrice(q.Get("minPrice")); err != nil {
		return listing.Params{}, apperror.BadRequest("invalid minPrice")
	}
	if p.MaxPrice, err = parsePrice(q.Get("maxPrice")); err != nil {
		return listing.Params{}, apperror.BadRequest("invalid maxPrice")
	}

	for _, key := range []string{"SelectedCategories", "SelectedCategories[]", "categoryId"} {
		for _, value := range q[key] {
			for _, raw := range strings.Split(value, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				id, err := uuid.Parse(raw)
				if err != nil {
					return listing.Params{}, apperror.BadRequest("invalid category id")
				}
				p.CategoryIDs = append(p.CategoryIDs, id)
			}
		}
	}

	return p.Normalize(), nil
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid price")
	}
	return v, nil
}
