package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopfront/apiserver/internal/services"
)

// CategoryHandler provides HTTP handlers for categories.
type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRouter registers category routes on the given router.
func CategoryRouter(r chi.Router, categoryService *services.CategoryService, gate *Gate) {
	handler := NewCategoryHandler(categoryService)

	r.Get("/", handler.ListCategories)
	r.With(gate.Admin()...).Post("/", handler.CreateCategory)
	r.Route("/{categoryId}", func(r chi.Router) {
		r.Get("/", handler.GetCategory)
		r.With(gate.Admin()...).Put("/", handler.UpdateCategory)
		r.With(gate.Admin()...).Delete("/", handler.DeleteCategory)
	})
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.categoryService.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "categories returned", page)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "categoryId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "category returned", category)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.categoryService.Create(r.Context(), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "category created", created)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "categoryId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req CategoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.categoryService.Update(r.Context(), id, services.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "category updated", updated)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "categoryId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	removed, err := h.categoryService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "category deleted", removed)
}
