package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusProcessed OrderStatus = "Processed"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

// Valid reports whether s is one of the known status values.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderItem is a line item owned by exactly one order. Items are created as
// part of order creation and deleted with their parent order; they have no
// top-level endpoint of their own.
type OrderItem struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Product  primitive.ObjectID `json:"product" bson:"product"`
	Quantity int32              `json:"quantity" bson:"quantity"`
}

// Order references its line items and owner by id. TotalPrice is computed
// from stored product prices at creation time and never recomputed.
type Order struct {
	ID               primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	OrderItems       []primitive.ObjectID `json:"orderItems" bson:"orderItems"`
	ShippingAddress1 string               `json:"shippingAddress1" bson:"shippingAddress1"`
	ShippingAddress2 string               `json:"shippingAddress2,omitempty" bson:"shippingAddress2,omitempty"`
	City             string               `json:"city" bson:"city"`
	Zip              string               `json:"zip" bson:"zip"`
	Country          string               `json:"country" bson:"country"`
	Phone            string               `json:"phone" bson:"phone"`
	Status           OrderStatus          `json:"status" bson:"status"`
	TotalPrice       float64              `json:"totalPrice" bson:"totalPrice"`
	User             primitive.ObjectID   `json:"user" bson:"user"`
	DateOrdered      time.Time            `json:"dateOrdered" bson:"dateOrdered"`
}

// ExpandedOrderItem is a line item with its product reference resolved.
type ExpandedOrderItem struct {
	ID       primitive.ObjectID `json:"id"`
	Product  *Product           `json:"product,omitempty"`
	Quantity int32              `json:"quantity"`
}

// ExpandedOrder is the fully resolved representation returned by order reads:
// line items joined with their products and the owning user reduced to a summary.
type ExpandedOrder struct {
	Order
	OrderItems []ExpandedOrderItem `json:"orderItems"`
	User       *UserSummary        `json:"user,omitempty"`
}
