package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"eshop-api/internal/domain"
)

// CategoryStorer defines the database operations for categories.
// Delete returns the removed document so callers can clean up uploaded files.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id primitive.ObjectID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id primitive.ObjectID) (*domain.Category, error)
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	ListFeaturedProducts(ctx context.Context, limit int64) ([]domain.Product, error)
	ListProductsByCategories(ctx context.Context, categoryIDs []primitive.ObjectID) ([]domain.Product, error)
}

// UserStorer defines the database operations for users.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.UserListEntry, error)
	UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	CountUsers(ctx context.Context) (int64, error)
}

// OrderStorer defines the database operations for orders and their line items.
// CreateOrder owns the multi-document write: it persists the line items,
// prices them from the stored product prices and persists the parent order.
type OrderStorer interface {
	CreateOrder(ctx context.Context, order *domain.Order, items []domain.OrderItem) (*domain.ExpandedOrder, error)
	GetOrderByID(ctx context.Context, id primitive.ObjectID) (*domain.ExpandedOrder, error)
	ListOrders(ctx context.Context) ([]domain.ExpandedOrder, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.ExpandedOrder, error)
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
	TotalSales(ctx context.Context) (float64, error)
	CountOrders(ctx context.Context) (int64, error)
}
