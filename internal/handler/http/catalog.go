package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jihadsmadi/kindearth-backend/internal/repository"
	"github.com/jihadsmadi/kindearth-backend/internal/service"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
	"github.com/jihadsmadi/kindearth-backend/pkg/httputil"
	"github.com/jihadsmadi/kindearth-backend/pkg/pagination"
	"github.com/jihadsmadi/kindearth-backend/pkg/validator"
)

// CatalogHandler exposes category, tag, and product endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates the catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

type categoryRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Gender string `json:"gender" validate:"required,oneof=Unisex Men Women Boys Girls"`
}

type updateCategoryRequest struct {
	Name   string `json:"name" validate:"omitempty,max=100"`
	Gender string `json:"gender" validate:"omitempty,oneof=Unisex Men Women Boys Girls"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type stockRequest struct {
	Size     string `json:"size" validate:"required,max=20"`
	Color    string `json:"color" validate:"required,max=50"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type createProductRequest struct {
	Name        string         `json:"name" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=5000"`
	CategoryID  string         `json:"category_id" validate:"required,uuid"`
	BasePrice   int64          `json:"base_price" validate:"gte=0"`
	Currency    string         `json:"currency" validate:"omitempty,len=3"`
	TagIDs      []string       `json:"tag_ids" validate:"dive,uuid"`
	Stocks      []stockRequest `json:"stocks" validate:"dive"`
	ImageURLs   []string       `json:"image_urls" validate:"dive,url"`
}

type updateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid"`
	BasePrice   *int64  `json:"base_price" validate:"omitempty,gte=0"`
	Currency    *string `json:"currency" validate:"omitempty,len=3"`
}

type setTagsRequest struct {
	TagIDs []string `json:"tag_ids" validate:"dive,uuid"`
}

type imageRequest struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text" validate:"max=200"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
	IsPrimary bool   `json:"is_primary"`
}

// CreateCategory handles POST /api/categories. Admin only.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name, req.Gender)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: category})
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categories})
}

// GetCategory handles GET /api/categories/{id}.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: category})
}

// UpdateCategory handles PUT /api/categories/{id}. Admin only.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req updateCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), id.String(), req.Name, req.Gender)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: category})
}

// DeleteCategory handles DELETE /api/categories/{id}. Admin only.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateTag handles POST /api/tags. Admin only.
func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !h.decode(w, r, &req) {
		return
	}

	tag, err := h.service.CreateTag(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: tag})
}

// ListTags handles GET /api/tags.
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tags})
}

// GetTag handles GET /api/tags/{id}.
func (h *CatalogHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	tag, err := h.service.GetTag(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tag})
}

// DeleteTag handles DELETE /api/tags/{id}. Admin only.
func (h *CatalogHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteTag(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateProduct handles POST /api/products. Vendors and admins.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		BasePrice:   req.BasePrice,
		Currency:    req.Currency,
		TagIDs:      req.TagIDs,
		ImageURLs:   req.ImageURLs,
	}
	for _, st := range req.Stocks {
		in.Stocks = append(in.Stocks, service.StockInput{
			Size: st.Size, Color: st.Color, Quantity: st.Quantity,
		})
	}

	product, err := h.service.CreateProduct(r.Context(), claims, in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// ListProducts handles GET /api/products with filtering and pagination.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{
		CategoryID: r.URL.Query().Get("category_id"),
		VendorID:   r.URL.Query().Get("vendor_id"),
		TagID:      r.URL.Query().Get("tag_id"),
	}

	result, err := h.service.ListProducts(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /api/products/{id}.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/products/{id}. Owner or admin.
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req updateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), claims, id.String(), service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		BasePrice:   req.BasePrice,
		Currency:    req.Currency,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/products/{id}. Owner or admin.
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), claims, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetProductTags handles PUT /api/products/{id}/tags. Owner or admin.
func (h *CatalogHandler) SetProductTags(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req setTagsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.SetProductTags(r.Context(), claims, id.String(), req.TagIDs); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"message": "tags updated",
	}})
}

// UpsertStock handles PUT /api/products/{id}/stocks. Owner or admin.
func (h *CatalogHandler) UpsertStock(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req stockRequest
	if !h.decode(w, r, &req) {
		return
	}

	stock, err := h.service.UpsertStock(r.Context(), claims, id.String(), service.StockInput{
		Size: req.Size, Color: req.Color, Quantity: req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stock})
}

// AddImage handles POST /api/products/{id}/images. Owner or admin.
func (h *CatalogHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req imageRequest
	if !h.decode(w, r, &req) {
		return
	}

	image, err := h.service.AddImage(r.Context(), claims, id.String(), req.URL, req.AltText, req.SortOrder, req.IsPrimary)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: image})
}

// decode parses and validates the JSON request body, writing a 400 response
// and returning false on failure.
func (h *CatalogHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid request body"))
		return false
	}
	if err := validator.Validate(v); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
