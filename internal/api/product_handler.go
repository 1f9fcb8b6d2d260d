package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eshop-api/internal/domain"
	"eshop-api/internal/store"
)

// ProductInput defines the expected input for creating or updating a product.
// Price and CountInStock are pointers so that zero values pass the required
// check. With a multipart request the image fields come from uploaded files.
type ProductInput struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	RichDescription string   `json:"richDescription"`
	Image           string   `json:"image"`
	Images          []string `json:"images"`
	Brand           string   `json:"brand" validate:"required"`
	Price           *float64 `json:"price" validate:"required"`
	Category        string   `json:"category" validate:"required"`
	CountInStock    *int32   `json:"countInStock" validate:"required"`
	Rating          float64  `json:"rating"`
	NumReviews      int32    `json:"numReviews"`
	IsFeatured      bool     `json:"isFeatured"`
}

// productResponse is a product with its category reference expanded. The
// embedded Category id field is shadowed by the resolved document.
type productResponse struct {
	domain.Product
	Category *domain.Category `json:"category,omitempty"`
}

func (h *HTTPHandler) decodeProductInput(r *http.Request) (*ProductInput, error) {
	if !isMultipart(r) {
		var input ProductInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return nil, err
		}
		return &input, nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, err
	}
	input := &ProductInput{
		Name:            r.FormValue("name"),
		Description:     r.FormValue("description"),
		RichDescription: r.FormValue("richDescription"),
		Brand:           r.FormValue("brand"),
		Category:        r.FormValue("category"),
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		input.Price = &price
	}
	if v := r.FormValue("countInStock"); v != "" {
		count, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, err
		}
		c := int32(count)
		input.CountInStock = &c
	}
	if v := r.FormValue("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		input.Rating = rating
	}
	if v := r.FormValue("numReviews"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, err
		}
		input.NumReviews = int32(n)
	}
	if v := r.FormValue("isFeatured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		input.IsFeatured = featured
	}
	return input, nil
}

// resolveCategory parses the submitted category id and verifies the category
// exists, so products never reference a missing category.
func (h *HTTPHandler) resolveCategory(w http.ResponseWriter, r *http.Request, hexID string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID")
		return primitive.NilObjectID, false
	}
	if _, err := h.categoryStore.GetCategoryByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusBadRequest, "Invalid category ID: category does not exist")
			return primitive.NilObjectID, false
		}
		log.Printf("ERROR: Category existence check for %s failed: %v", hexID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to verify category")
		return primitive.NilObjectID, false
	}
	return id, true
}

// saveProductFiles resolves the uploaded image and gallery files into stored
// paths on the product.
func (h *HTTPHandler) saveProductFiles(w http.ResponseWriter, r *http.Request, product *domain.Product) bool {
	if fh := formFile(r, "image"); fh != nil {
		path, err := h.uploads.SaveImage(fh)
		if err != nil {
			respondUploadError(w, err)
			return false
		}
		product.Image = path
	}
	if r.MultipartForm != nil && len(r.MultipartForm.File["images"]) > 0 {
		paths := make([]string, 0, len(r.MultipartForm.File["images"]))
		for _, fh := range r.MultipartForm.File["images"] {
			path, err := h.uploads.SaveImage(fh)
			if err != nil {
				respondUploadError(w, err)
				return false
			}
			paths = append(paths, path)
		}
		product.Images = paths
	}
	return true
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeProductInput(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "All required fields must be provided")
		return
	}

	categoryID, ok := h.resolveCategory(w, r, input.Category)
	if !ok {
		return
	}

	product := &domain.Product{
		Name:            input.Name,
		Description:     input.Description,
		RichDescription: input.RichDescription,
		Image:           input.Image,
		Images:          input.Images,
		Brand:           input.Brand,
		Price:           *input.Price,
		Category:        categoryID,
		CountInStock:    *input.CountInStock,
		Rating:          input.Rating,
		NumReviews:      input.NumReviews,
		IsFeatured:      input.IsFeatured,
	}
	if !h.saveProductFiles(w, r, product) {
		return
	}

	created, err := h.productStore.CreateProduct(r.Context(), product)
	if err != nil {
		log.Printf("ERROR: CreateProduct store operation failed: %v", err)
		h.uploads.Remove(product.Image)
		for _, p := range product.Images {
			h.uploads.Remove(p)
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productStore.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: ListProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.productStore.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("ERROR: GetProductByID store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	respondWithJSON(w, http.StatusOK, h.expandProduct(r, product))
}

// expandProduct resolves the category reference for detail responses. A
// dangling reference leaves the category unresolved rather than failing the
// read.
func (h *HTTPHandler) expandProduct(r *http.Request, product *domain.Product) productResponse {
	resp := productResponse{Product: *product}
	if category, err := h.categoryStore.GetCategoryByID(r.Context(), product.Category); err == nil {
		resp.Category = category
	}
	return resp
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	input, err := h.decodeProductInput(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "All required fields must be provided")
		return
	}

	categoryID, ok := h.resolveCategory(w, r, input.Category)
	if !ok {
		return
	}

	existing, err := h.productStore.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("ERROR: UpdateProduct failed to load product %s: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	product := &domain.Product{
		ID:              id,
		Name:            input.Name,
		Description:     input.Description,
		RichDescription: input.RichDescription,
		Image:           firstNonEmpty(input.Image, existing.Image),
		Images:          existing.Images,
		Brand:           input.Brand,
		Price:           *input.Price,
		Category:        categoryID,
		CountInStock:    *input.CountInStock,
		Rating:          input.Rating,
		NumReviews:      input.NumReviews,
		IsFeatured:      input.IsFeatured,
	}
	if len(input.Images) > 0 {
		product.Images = input.Images
	}
	if !h.saveProductFiles(w, r, product) {
		return
	}
	// New files are on disk before old ones are removed and the record updated.
	if product.Image != existing.Image {
		h.uploads.Remove(existing.Image)
	}
	if r.MultipartForm != nil && len(r.MultipartForm.File["images"]) > 0 {
		for _, p := range existing.Images {
			h.uploads.Remove(p)
		}
	}

	updated, err := h.productStore.UpdateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("ERROR: UpdateProduct store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, h.expandProduct(r, updated))
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	deleted, err := h.productStore.DeleteProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("ERROR: DeleteProduct store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	h.uploads.Remove(deleted.Image)
	for _, p := range deleted.Images {
		h.uploads.Remove(p)
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted successfully"})
}

func (h *HTTPHandler) GetProductCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.productStore.CountProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: CountProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to count products")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *HTTPHandler) GetFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if limitStr := chi.URLParam(r, "limit"); limitStr != "" {
		parsed, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
		limit = parsed
	}

	products, err := h.productStore.ListFeaturedProducts(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: ListFeaturedProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve featured products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) GetFilteredProducts(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("categories")
	if raw == "" {
		respondWithError(w, http.StatusBadRequest, "Categories query parameter is required")
		return
	}

	parts := strings.Split(raw, ",")
	categoryIDs := make([]primitive.ObjectID, 0, len(parts))
	for _, part := range parts {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(part))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid category ID: "+strings.TrimSpace(part))
			return
		}
		categoryIDs = append(categoryIDs, id)
	}

	products, err := h.productStore.ListProductsByCategories(r.Context(), categoryIDs)
	if err != nil {
		log.Printf("ERROR: ListProductsByCategories store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}
