package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eshop-api/internal/auth"
	"eshop-api/internal/domain"
	"eshop-api/internal/store"
)

// Compared against when login hits an unknown email, so the response time
// does not reveal whether the account exists.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRegisterInput defines the expected input for registration. The admin
// flag is never taken from the request; granting it is an admin-only update.
type UserRegisterInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Street    string `json:"street"`
	Apartment string `json:"apartment"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// UserUpdateInput defines the expected input for updates. All fields are
// optional; absent fields keep their previous values.
type UserUpdateInput struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Street    *string `json:"street"`
	Apartment *string `json:"apartment"`
	City      *string `json:"city"`
	Zip       *string `json:"zip"`
	Country   *string `json:"country"`
	Phone     *string `json:"phone"`
	IsAdmin   *bool   `json:"isAdmin"`
}

// LoginInput defines the expected input for login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input UserRegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Name, email, and password are required")
		return
	}

	// Pre-check for a friendlier message; the unique index on email is the
	// actual guarantee and catches the concurrent-registration race below.
	if _, err := h.userStore.GetUserByEmail(r.Context(), input.Email); err == nil {
		respondWithError(w, http.StatusBadRequest, "Email is already registered")
		return
	} else if !errors.Is(err, store.ErrUserNotFound) {
		log.Printf("ERROR: RegisterUser email lookup failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("ERROR: RegisterUser failed to hash password: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Street:       input.Street,
		Apartment:    input.Apartment,
		City:         input.City,
		Zip:          input.Zip,
		Country:      input.Country,
		Phone:        input.Phone,
	}

	created, err := h.userStore.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			respondWithError(w, http.StatusBadRequest, "Email is already registered")
			return
		}
		log.Printf("ERROR: CreateUser store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.userStore.GetUserByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Unknown email and wrong password must be indistinguishable.
			auth.CheckPassword(dummyPasswordHash, input.Password)
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Printf("ERROR: Login email lookup failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Printf("ERROR: Login failed to issue token: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *HTTPHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: ListUsers store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// canAccessUser limits non-admin account access to the caller's own record.
func canAccessUser(claims *auth.Claims, id primitive.ObjectID) bool {
	return claims.IsAdmin || claims.UserID == id.Hex()
}

func (h *HTTPHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || !canAccessUser(claims, id) {
		respondWithError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	user, err := h.userStore.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ERROR: GetUserByID store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || !canAccessUser(claims, id) {
		respondWithError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	var input UserUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	user, err := h.userStore.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ERROR: UpdateUser failed to load user %s: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	// Merge semantics: absent fields keep their previous values.
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Street != nil {
		user.Street = *input.Street
	}
	if input.Apartment != nil {
		user.Apartment = *input.Apartment
	}
	if input.City != nil {
		user.City = *input.City
	}
	if input.Zip != nil {
		user.Zip = *input.Zip
	}
	if input.Country != nil {
		user.Country = *input.Country
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	// Only admins may change the admin flag.
	if input.IsAdmin != nil && claims.IsAdmin {
		user.IsAdmin = *input.IsAdmin
	}

	updated, err := h.userStore.UpdateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		if errors.Is(err, store.ErrEmailExists) {
			respondWithError(w, http.StatusBadRequest, "Email is already registered")
			return
		}
		log.Printf("ERROR: UpdateUser store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.userStore.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ERROR: DeleteUser store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (h *HTTPHandler) GetUserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.userStore.CountUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: CountUsers store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to count users")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
}
