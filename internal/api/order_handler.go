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

// OrderItemInput is one submitted line item.
type OrderItemInput struct {
	Product  string `json:"product" validate:"required"`
	Quantity int32  `json:"quantity" validate:"required,gt=0"`
}

// OrderCreateInput defines the expected input for creating an order. The
// total price is never taken from the client; it is computed from stored
// product prices. User is honored only for admin callers.
type OrderCreateInput struct {
	OrderItems       []OrderItemInput `json:"orderItems" validate:"required,min=1,dive"`
	ShippingAddress1 string           `json:"shippingAddress1" validate:"required"`
	ShippingAddress2 string           `json:"shippingAddress2"`
	City             string           `json:"city" validate:"required"`
	Zip              string           `json:"zip" validate:"required"`
	Country          string           `json:"country" validate:"required"`
	Phone            string           `json:"phone" validate:"required"`
	Status           string           `json:"status"`
	User             string           `json:"user"`
}

// OrderStatusInput defines the expected input for a status update.
type OrderStatusInput struct {
	Status string `json:"status" validate:"required"`
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var input OrderCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "All required fields must be provided")
		return
	}

	items := make([]domain.OrderItem, 0, len(input.OrderItems))
	for _, item := range input.OrderItems {
		productID, err := primitive.ObjectIDFromHex(item.Product)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}
		items = append(items, domain.OrderItem{Product: productID, Quantity: item.Quantity})
	}

	status := domain.StatusPending
	if input.Status != "" {
		status = domain.OrderStatus(input.Status)
		if !status.Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status value")
			return
		}
	}

	// Orders belong to the caller; admins may create on behalf of another user.
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if input.User != "" && claims.IsAdmin {
		userID, err = primitive.ObjectIDFromHex(input.User)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}
	}

	order := &domain.Order{
		ShippingAddress1: input.ShippingAddress1,
		ShippingAddress2: input.ShippingAddress2,
		City:             input.City,
		Zip:              input.Zip,
		Country:          input.Country,
		Phone:            input.Phone,
		Status:           status,
		User:             userID,
	}

	created, err := h.orderStore.CreateOrder(r.Context(), order, items)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusBadRequest, "Product not found")
			return
		}
		log.Printf("ERROR: CreateOrder store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "The order cannot be created")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderStore.ListOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: ListOrders store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.orderStore.GetOrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("ERROR: GetOrderByID store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || (!claims.IsAdmin && claims.UserID != order.Order.User.Hex()) {
		respondWithError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var input OrderStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	status := domain.OrderStatus(input.Status)
	if !status.Valid() {
		respondWithError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	order, err := h.orderStore.UpdateOrderStatus(r.Context(), id, status)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("ERROR: UpdateOrderStatus store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	if err := h.orderStore.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("ERROR: DeleteOrder store operation for %s failed: %v", id.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete order")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Order and related order items deleted successfully"})
}

func (h *HTTPHandler) GetTotalSales(w http.ResponseWriter, r *http.Request) {
	total, err := h.orderStore.TotalSales(r.Context())
	if err != nil {
		log.Printf("ERROR: TotalSales store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "The total sales cannot be generated")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]float64{"totalSales": total})
}

func (h *HTTPHandler) GetOrderCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.orderStore.CountOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: CountOrders store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "The order count cannot be generated")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"orderCount": count})
}

func (h *HTTPHandler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userid"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || !canAccessUser(claims, userID) {
		respondWithError(w, http.StatusUnauthorized, "Access denied")
		return
	}

	orders, err := h.orderStore.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: ListOrdersByUser store operation for %s failed: %v", userID.Hex(), err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}
