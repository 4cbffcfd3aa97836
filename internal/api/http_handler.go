package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product-catalog-core/internal/catalog"
	"product-catalog-core/internal/domain"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	svc      *catalog.Service
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(svc *catalog.Service) *HTTPHandler {
	return &HTTPHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
			http.Error(w, `{"error": "Internal server error during JSON encoding"}`, http.StatusInternalServerError)
		}
	}
}

// handleServiceError maps core error kinds onto HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSelfParent),
		errors.Is(err, domain.ErrCycle),
		errors.Is(err, domain.ErrScopeMismatch),
		errors.Is(err, domain.ErrMissingValue),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrInvalidCursor):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: unclassified service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func parsePageQuery(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	size, err = strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = catalog.DefaultPageSize
	}
	if size > catalog.MaxPageSize {
		size = catalog.MaxPageSize
	}
	return page, size
}

// validPrice reports whether d is usable as a money amount: non-negative
// with at most two decimal places.
func validPrice(d decimal.Decimal, allowZero bool) bool {
	if d.Exponent() < -2 {
		return false
	}
	if allowZero {
		return d.Sign() >= 0
	}
	return d.Sign() > 0
}

// --- Category Handlers ---

// CategoryCreateInput defines the expected input for creating a category.
type CategoryCreateInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id" validate:"omitempty"`
	SortOrder   *int       `json:"sort_order" validate:"omitempty,gte=0"`
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.svc.CreateCategory(r.Context(), catalog.CategoryCreateInput{
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
		SortOrder:   input.SortOrder,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, size := parsePageQuery(r)
	result, err := h.svc.ListCategories(r.Context(), page, size)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}
	category, err := h.svc.GetCategory(r.Context(), categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

// CategoryUpdateInput defines the expected input for updating a category.
type CategoryUpdateInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id" validate:"omitempty"`
	SortOrder   *int       `json:"sort_order" validate:"omitempty,gte=0"`
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	updated, err := h.svc.UpdateCategory(r.Context(), categoryID, catalog.CategoryUpdateInput{
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
		SortOrder:   input.SortOrder,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// CategoryPatchInput defines the expected input for a partial category
// update.
type CategoryPatchInput struct {
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id" validate:"omitempty"`
	SortOrder   *int       `json:"sort_order" validate:"omitempty,gte=0"`
}

func (h *HTTPHandler) PatchCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryPatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if input.Description == nil && input.ParentID == nil && input.SortOrder == nil {
		respondWithError(w, http.StatusBadRequest, "At least one field must be provided")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	updated, err := h.svc.PatchCategory(r.Context(), categoryID, catalog.CategoryPatchInput{
		Description: input.Description,
		ParentID:    input.ParentID,
		SortOrder:   input.SortOrder,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), categoryID); err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Product Handlers ---

// ProductCreateInput defines the expected input for creating a product.
type ProductCreateInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description" validate:"omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *uuid.UUID      `json:"category_id" validate:"omitempty"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if !validPrice(input.Price, true) {
		respondWithError(w, http.StatusBadRequest, "Price must be non-negative with at most 2 decimal places")
		return
	}

	created, err := h.svc.CreateProduct(r.Context(), catalog.ProductCreateInput{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		CategoryID:  input.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size := parsePageQuery(r)

	var categoryID *uuid.UUID
	if idStr := q.Get("category_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		categoryID = &id
	}

	sortBy := q.Get("sort_by")
	allowedSortFields := map[string]bool{"name": true, "price": true, "created_at": true, "updated_at": true, "": true}
	if !allowedSortFields[sortBy] {
		respondWithError(w, http.StatusBadRequest, "Invalid sort_by field. Allowed: name, price, created_at, updated_at")
		return
	}
	sortOrder := q.Get("sort_order")
	if sortOrder != "" && sortOrder != "asc" && sortOrder != "desc" {
		respondWithError(w, http.StatusBadRequest, "Invalid sort_order value. Allowed: asc, desc")
		return
	}

	result, err := h.svc.FindAll(r.Context(), page, size, sortBy, sortOrder, categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListProductsKeyset serves the cursor-based listing. The cursor is an
// opaque token produced by a previous page; clients must not construct
// or inspect it.
func (h *HTTPHandler) ListProductsKeyset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var categoryID *uuid.UUID
	if idStr := q.Get("category_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		categoryID = &id
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = catalog.DefaultPageSize
	}

	result, err := h.svc.ListKeyset(r.Context(), categoryID, q.Get("cursor"), size)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	product, err := h.svc.GetProduct(r.Context(), productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// ProductUpdateInput defines the expected input for updating a product.
type ProductUpdateInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description" validate:"omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *uuid.UUID      `json:"category_id" validate:"omitempty"`
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input ProductUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if !validPrice(input.Price, true) {
		respondWithError(w, http.StatusBadRequest, "Price must be non-negative with at most 2 decimal places")
		return
	}

	updated, err := h.svc.UpdateProduct(r.Context(), productID, catalog.ProductUpdateInput{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		CategoryID:  input.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// ProductPatchInput defines the expected input for a partial product
// update.
type ProductPatchInput struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description" validate:"omitempty"`
	Price       *decimal.Decimal `json:"price"`
}

func (h *HTTPHandler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input ProductPatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if input.Name == nil && input.Description == nil && input.Price == nil {
		respondWithError(w, http.StatusBadRequest, "At least one field must be provided")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Price != nil && !validPrice(*input.Price, true) {
		respondWithError(w, http.StatusBadRequest, "Price must be non-negative with at most 2 decimal places")
		return
	}

	updated, err := h.svc.PatchProduct(r.Context(), productID, catalog.ProductPatchInput{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), productID); err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Category membership handlers ---

// PrimaryCategoryInput selects the product's primary category.
type PrimaryCategoryInput struct {
	CategoryID uuid.UUID `json:"category_id" validate:"required"`
}

func (h *HTTPHandler) AssignPrimaryCategory(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input PrimaryCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	product, err := h.svc.AssignPrimaryCategory(r.Context(), productID, input.CategoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// CategorySetInput replaces the product's full category membership.
type CategorySetInput struct {
	CategoryIDs []uuid.UUID `json:"category_ids" validate:"required"`
}

func (h *HTTPHandler) SetProductCategories(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input CategorySetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	product, err := h.svc.SetProductCategories(r.Context(), productID, input.CategoryIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) RemoveProductCategory(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	product, err := h.svc.RemoveProductCategory(r.Context(), productID, categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Route("/{categoryId}", func(r chi.Router) {
			r.Get("/", h.GetCategoryByID)
			r.Put("/", h.UpdateCategory)
			r.Patch("/", h.PatchCategory)
			r.Delete("/", h.DeleteCategory)
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		// Registered before {productId} so "keyset" is not parsed as an ID.
		r.Get("/keyset", h.ListProductsKeyset)

		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProductByID)
			r.Put("/", h.UpdateProduct)
			r.Patch("/", h.PatchProduct)
			r.Delete("/", h.DeleteProduct)

			r.Put("/primary-category", h.AssignPrimaryCategory)
			r.Put("/categories", h.SetProductCategories)
			r.Delete("/categories/{categoryId}", h.RemoveProductCategory)

			r.Post("/variants", h.CreateVariant)
			r.Get("/variants", h.ListProductVariants)

			r.Post("/attributes", h.CreateProductAttribute)
			r.Get("/attributes", h.ListProductAttributes)
			r.Put("/attributes/{attributeId}", h.UpdateProductAttribute)
		})
	})

	r.Route("/api/v1/variants", func(r chi.Router) {
		r.Route("/{variantId}", func(r chi.Router) {
			r.Get("/", h.GetVariantByID)
			r.Put("/", h.UpdateVariant)

			r.Post("/attributes", h.CreateVariantAttribute)
			r.Get("/attributes", h.ListVariantAttributes)
			r.Put("/attributes/{attributeId}", h.UpdateVariantAttribute)
		})
	})

	r.Route("/api/v1/attributes", func(r chi.Router) {
		r.Post("/", h.CreateAttributeDefinition)
		r.Get("/", h.ListAttributeDefinitions)
	})
}
