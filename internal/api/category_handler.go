package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eshop-api/internal/domain"
	"eshop-api/internal/store"
)

// CategoryInput defines the expected input for creating or updating a
// category. With a multipart request the icon and image come from file fields
// instead of these values.
type CategoryInput struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Image string `json:"image"`
}

func (h *HTTPHandler) decodeCategoryInput(r *http.Request) (*CategoryInput, error) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, err
		}
		return &CategoryInput{
			Name:  r.FormValue("name"),
			Color: r.FormValue("color"),
			Icon:  r.FormValue("icon"),
			Image: r.FormValue("image"),
		}, nil
	}
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return nil, err
	}
	return &input, nil
}

// saveCategoryFiles resolves uploaded icon/image files into stored paths.
// Icons must be PNG; images accept any image encoding.
func (h *HTTPHandler) saveCategoryFiles(w http.ResponseWriter, r *http.Request, category *domain.Category) bool {
	if fh := formFile(r, "icon"); fh != nil {
		path, err := h.uploads.SavePNG(fh)
		if err != nil {
			respondUploadError(w, err)
			return false
		}
		category.Icon = path
	}
	if fh := formFile(r, "image"); fh != nil {
		path, err := h.uploads.SaveImage(fh)
		if err != nil {
			respondUploadError(w, err)
			return false
		}
		category.Image = path
	}
	return true
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeCategoryInput(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "All required fields must be provided")
		return
	}

	category := &domain.Category{
		Name:  input.Name,
		Color: input.Color,
		Icon:  input.Icon,
		Image: input.Image,
	}
	if !h.saveCategoryFiles(w, r, category) {
		return
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), category)
	if err != nil {
		log.Printf("ERROR: CreateCategory store operation failed: %v", err)
		h.uploads.Remove(category.Icon)
		h.uploads.Remove(category.Image)
		respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryStore.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: ListCategories store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	category, err := h.categoryStore.GetCategoryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("ERROR: GetCategoryByID store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	input, err := h.decodeCategoryInput(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "All required fields must be provided")
		return
	}

	existing, err := h.categoryStore.GetCategoryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("ERROR: UpdateCategory failed to load category %s: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	category := &domain.Category{
		ID:    id,
		Name:  input.Name,
		Color: input.Color,
		Icon:  firstNonEmpty(input.Icon, existing.Icon),
		Image: firstNonEmpty(input.Image, existing.Image),
	}
	if !h.saveCategoryFiles(w, r, category) {
		return
	}
	// New file is on disk before the old one is removed and the record updated.
	if category.Icon != existing.Icon {
		h.uploads.Remove(existing.Icon)
	}
	if category.Image != existing.Image {
		h.uploads.Remove(existing.Image)
	}

	updated, err := h.categoryStore.UpdateCategory(r.Context(), category)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("ERROR: UpdateCategory store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	deleted, err := h.categoryStore.DeleteCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("ERROR: DeleteCategory store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}

	h.uploads.Remove(deleted.Icon)
	h.uploads.Remove(deleted.Image)

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted successfully"})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
