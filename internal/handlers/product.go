package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperror"
	"github.com/shopfront/apiserver/internal/services"
	"github.com/shopfront/apiserver/internal/storage"
)

const (
	maxImageBytes      = 10 << 20
	maxMultipartMemory = 2 << 20
	formFieldImage     = "image"
)

// ProductHandler provides HTTP handlers for products and their images.
type ProductHandler struct {
	productService *services.ProductService
	images         *storage.ImageStore
}

// NewProductHandler constructs a handler. images may be nil, in which case
// image endpoints answer 503.
func NewProductHandler(productService *services.ProductService, images *storage.ImageStore) *ProductHandler {
	return &ProductHandler{productService: productService, images: images}
}

// ProductRouter registers product routes on the given router.
func ProductRouter(r chi.Router, productService *services.ProductService, images *storage.ImageStore, gate *Gate) {
	handler := NewProductHandler(productService, images)

	r.Get("/", handler.ListProducts)
	r.Get("/search", handler.SearchProducts)
	r.With(gate.Admin()...).Post("/", handler.CreateProduct)
	r.With(gate.Admin()...).Post("/images", handler.UploadImage)
	r.Get("/images/{name}", handler.ServeImage)
	r.Route("/{productId}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.With(gate.Admin()...).Put("/", handler.UpdateProduct)
		r.With(gate.Admin()...).Delete("/", handler.DeleteProduct)
	})
}

type ProductRequest struct {
	Name        string    `json:"productName" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	ImgURL      string    `json:"imgUrl" validate:"omitempty,max=2048"`
	Quantity    int       `json:"quantity" validate:"gte=0"`
	Price       float64   `json:"price" validate:"gte=0"`
	CategoryID  uuid.UUID `json:"categoryId" validate:"required"`
}

type ProductUpdateRequest struct {
	Name        *string    `json:"productName" validate:"omitempty,min=1,max=200"`
	Slug        *string    `json:"slug" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	ImgURL      *string    `json:"imgUrl" validate:"omitempty,max=2048"`
	Quantity    *int       `json:"quantity" validate:"omitempty,gte=0"`
	Price       *float64   `json:"price" validate:"omitempty,gte=0"`
	CategoryID  *uuid.UUID `json:"categoryId"`
}

type ImageUploadResponse struct {
	URL string `json:"url"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.productService.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "products returned", page)
}

func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(r.URL.Query().Get("pageSize")) == "" {
		params.PageSize = 0
	}

	page, err := h.productService.Search(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "products returned", page)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "productId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "product returned", product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.productService.Create(r.Context(), services.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		ImgURL:      req.ImgURL,
		Quantity:    req.Quantity,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "product created", created)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "productId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.productService.Update(r.Context(), id, services.ProductPatch{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ImgURL:      req.ImgURL,
		Quantity:    req.Quantity,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "product updated", updated)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "productId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	removed, err := h.productService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if h.images != nil && removed.ImgURL != "" {
		if err := h.images.RemoveProductImage(r.Context(), removed.ImgURL); err != nil {
			log.Printf("product image cleanup failed product_id=%s error=%q", removed.ID, err)
		}
	}
	writeSuccess(w, http.StatusOK, "product deleted", removed)
}

// UploadImage stores a multipart image and returns the URL to put on a product.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeServiceError(w, r, apperror.BadRequest("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeServiceError(w, r, apperror.BadRequest("image file is required"))
		return
	}
	defer file.Close()
	if header.Size > maxImageBytes {
		writeServiceError(w, r, apperror.Validation("image is too large"))
		return
	}

	url, err := h.images.SaveProductImage(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			writeServiceError(w, r, apperror.Validation(err.Error()))
			return
		}
		writeServiceError(w, r, apperror.Internal("failed to store image", err))
		return
	}
	writeSuccess(w, http.StatusCreated, "image uploaded", ImageUploadResponse{URL: url})
}

// ServeImage streams a stored product image.
func (h *ProductHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	rc, contentType, err := h.images.OpenProductImage(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedImage):
			writeServiceError(w, r, apperror.BadRequest("invalid image name"))
		case errors.Is(err, storage.ErrObjectNotFound):
			writeServiceError(w, r, apperror.NotFound("image not found"))
		default:
			writeServiceError(w, r, apperror.Internal("failed to open image", err))
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", storage.ImageCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
