package api

import (
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"eshop-api/internal/auth"
	"eshop-api/internal/store"
	"eshop-api/internal/upload"
)

// multipart form memory budget; larger parts spill to temp files.
const maxMultipartMemory = 32 << 20

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	userStore     store.UserStorer
	orderStore    store.OrderStorer
	tokens        *auth.TokenService
	uploads       *upload.Saver
	validate      *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(
	cs store.CategoryStorer,
	ps store.ProductStorer,
	us store.UserStorer,
	os store.OrderStorer,
	tokens *auth.TokenService,
	uploads *upload.Saver,
) *HTTPHandler {
	return &HTTPHandler{
		categoryStore: cs,
		productStore:  ps,
		userStore:     us,
		orderStore:    os,
		tokens:        tokens,
		uploads:       uploads,
		validate:      validator.New(),
	}
}

// --- Helpers ---

// MessageResponse is the body of every error response and of delete confirmations.
type MessageResponse struct {
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, MessageResponse{Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formFile returns the first uploaded file for a multipart field, or nil when
// the field is absent.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// respondUploadError maps upload validation failures to 400 and anything else
// to 500.
func respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrTooLarge),
		errors.Is(err, upload.ErrNotImage),
		errors.Is(err, upload.ErrNotPNG):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: Upload failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to store uploaded file")
	}
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service. The route tiers are
// explicit: public catalog reads and registration/login, authenticated order
// and own-account access, and admin-only administration. The tier table is
// fixed at registration time.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategoryByID)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireAdmin)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/get/count", h.GetProductCount)
		r.Get("/get/featured", h.GetFeaturedProducts)
		r.Get("/get/featured/{limit}", h.GetFeaturedProducts)
		r.Get("/filter", h.GetFilteredProducts)
		r.Get("/{id}", h.GetProductByID)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireAdmin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireUser)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrderByID)
			r.Get("/get/userorders/{userid}", h.GetUserOrders)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireAdmin)
			r.Get("/", h.ListOrders)
			r.Put("/{id}", h.UpdateOrderStatus)
			r.Delete("/{id}", h.DeleteOrder)
			r.Get("/get/totalsales", h.GetTotalSales)
			r.Get("/get/count", h.GetOrderCount)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", h.RegisterUser)
		r.Post("/login", h.Login)
		r.Get("/get/count", h.GetUserCount)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireUser)
			r.Get("/{id}", h.GetUserByID)
			r.Put("/{id}", h.UpdateUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireAdmin)
			r.Get("/", h.ListUsers)
			r.Delete("/{id}", h.DeleteUser)
		})
	})
}
