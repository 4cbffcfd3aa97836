package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"product-catalog-core/internal/catalog"
	"product-catalog-core/internal/domain"
)

// --- Variant Handlers ---

// VariantCreateInput defines the expected input for creating a variant.
type VariantCreateInput struct {
	SKU   string          `json:"sku" validate:"required,max=255"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

func (h *HTTPHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input VariantCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if !validPrice(input.Price, false) {
		respondWithError(w, http.StatusBadRequest, "Price must be positive with at most 2 decimal places")
		return
	}

	created, err := h.svc.CreateVariant(r.Context(), productID, catalog.VariantCreateInput{
		SKU:   input.SKU,
		Price: input.Price,
		Stock: input.Stock,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// ListProductVariants serves a cursor-based listing of one product's
// variants.
func (h *HTTPHandler) ListProductVariants(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = catalog.DefaultPageSize
	}

	result, err := h.svc.ListVariantsKeyset(r.Context(), productID, q.Get("cursor"), size)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) GetVariantByID(w http.ResponseWriter, r *http.Request) {
	variantID, err := parseIDParam(r, "variantId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}
	variant, err := h.svc.GetVariant(r.Context(), variantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, variant)
}

// VariantUpdateInput defines the expected input for updating a variant.
type VariantUpdateInput struct {
	SKU   string          `json:"sku" validate:"required,max=255"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

func (h *HTTPHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	variantID, err := parseIDParam(r, "variantId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	var input VariantUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if !validPrice(input.Price, false) {
		respondWithError(w, http.StatusBadRequest, "Price must be positive with at most 2 decimal places")
		return
	}

	updated, err := h.svc.UpdateVariant(r.Context(), variantID, catalog.VariantUpdateInput{
		SKU:   input.SKU,
		Price: input.Price,
		Stock: input.Stock,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// --- Attribute Definition Handlers ---

// AttributeDefinitionInput defines the expected input for registering an
// attribute definition.
type AttributeDefinitionInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	DataType   string `json:"data_type" validate:"required"`
	Scope      string `json:"scope" validate:"required"`
	Filterable bool   `json:"filterable"`
}

func (h *HTTPHandler) CreateAttributeDefinition(w http.ResponseWriter, r *http.Request) {
	var input AttributeDefinitionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.svc.Attributes().Define(r.Context(), input.Name,
		domain.AttributeDataType(input.DataType), domain.AttributeScope(input.Scope), input.Filterable)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListAttributeDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.svc.Attributes().ListDefinitions(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, defs)
}

// --- Attribute Value Handlers ---

// AttributeValueInput defines the expected input for assigning an
// attribute value. Exactly one of the value fields must be set; which one
// is checked against the definition's data type by the core layer.
type AttributeValueInput struct {
	AttributeID  uuid.UUID        `json:"attribute_id" validate:"required"`
	ValueString  *string          `json:"value_string" validate:"omitempty,max=2000"`
	ValueNumber  *decimal.Decimal `json:"value_number"`
	ValueBoolean *bool            `json:"value_boolean"`
}

func (in AttributeValueInput) toCore() catalog.AttributeValueInput {
	return catalog.AttributeValueInput{
		AttributeID:  in.AttributeID,
		ValueString:  in.ValueString,
		ValueNumber:  in.ValueNumber,
		ValueBoolean: in.ValueBoolean,
	}
}

func decodeAttributeValueInput(h *HTTPHandler, w http.ResponseWriter, r *http.Request) (AttributeValueInput, bool) {
	var input AttributeValueInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return input, false
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return input, false
	}
	return input, true
}

func (h *HTTPHandler) CreateProductAttribute(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	input, ok := decodeAttributeValueInput(h, w, r)
	if !ok {
		return
	}

	created, err := h.svc.CreateProductAttribute(r.Context(), productID, input.toCore())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProductAttributes(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	values, err := h.svc.ListProductAttributes(r.Context(), productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, values)
}

func (h *HTTPHandler) UpdateProductAttribute(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	attributeID, err := parseIDParam(r, "attributeId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid attribute ID format")
		return
	}
	input, ok := decodeAttributeValueInput(h, w, r)
	if !ok {
		return
	}
	input.AttributeID = attributeID

	updated, err := h.svc.UpdateProductAttribute(r.Context(), productID, attributeID, input.toCore())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) CreateVariantAttribute(w http.ResponseWriter, r *http.Request) {
	variantID, err := parseIDParam(r, "variantId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}
	input, ok := decodeAttributeValueInput(h, w, r)
	if !ok {
		return
	}

	created, err := h.svc.CreateVariantAttribute(r.Context(), variantID, input.toCore())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListVariantAttributes(w http.ResponseWriter, r *http.Request) {
	variantID, err := parseIDParam(r, "variantId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}
	values, err := h.svc.ListVariantAttributes(r.Context(), variantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, values)
}

func (h *HTTPHandler) UpdateVariantAttribute(w http.ResponseWriter, r *http.Request) {
	variantID, err := parseIDParam(r, "variantId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}
	attributeID, err := parseIDParam(r, "attributeId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid attribute ID format")
		return
	}
	input, ok := decodeAttributeValueInput(h, w, r)
	if !ok {
		return
	}
	input.AttributeID = attributeID

	updated, err := h.svc.UpdateVariantAttribute(r.Context(), variantID, attributeID, input.toCore())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}
