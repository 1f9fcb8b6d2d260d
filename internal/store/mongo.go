package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eshop-api/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound = errors.New("store: category not found")
	ErrProductNotFound  = errors.New("store: product not found")
	ErrUserNotFound     = errors.New("store: user not found")
	ErrOrderNotFound    = errors.New("store: order not found")
	ErrEmailExists      = errors.New("store: email already registered")
)

const (
	collCategories = "categories"
	collProducts   = "products"
	collUsers      = "users"
	collOrders     = "orders"
	collOrderItems = "orderitems"
)

// MongoStore implements the CategoryStorer, ProductStorer, UserStorer and
// OrderStorer interfaces on top of a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a new MongoStore instance.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the indexes the store relies on. The unique index on
// users.email is the source of truth for email uniqueness; the handler-level
// pre-check only exists for a friendlier message.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("store: failed to create users.email index: %w", err)
	}
	return nil
}

// --- CategoryStorer Implementation ---

func (s *MongoStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	res, err := s.db.Collection(collCategories).InsertOne(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("store: CreateCategory failed to insert: %w", err)
	}
	category.ID = res.InsertedID.(primitive.ObjectID)
	return category, nil
}

func (s *MongoStore) GetCategoryByID(ctx context.Context, id primitive.ObjectID) (*domain.Category, error) {
	var category domain.Category
	err := s.db.Collection(collCategories).FindOne(ctx, bson.M{"_id": id}).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to decode: %w", err)
	}
	return &category, nil
}

func (s *MongoStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cursor, err := s.db.Collection(collCategories).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query: %w", err)
	}
	categories := make([]domain.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to decode: %w", err)
	}
	return categories, nil
}

func (s *MongoStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	update := bson.M{"$set": bson.M{
		"name":      category.Name,
		"color":     category.Color,
		"icon":      category.Icon,
		"image":     category.Image,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Category
	err := s.db.Collection(collCategories).
		FindOneAndUpdate(ctx, bson.M{"_id": category.ID}, update, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to decode: %w", err)
	}
	return &updated, nil
}

func (s *MongoStore) DeleteCategory(ctx context.Context, id primitive.ObjectID) (*domain.Category, error) {
	var deleted domain.Category
	err := s.db.Collection(collCategories).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: DeleteCategory failed to delete: %w", err)
	}
	return &deleted, nil
}

// --- ProductStorer Implementation ---

func (s *MongoStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.DateCreated.IsZero() {
		product.DateCreated = time.Now().UTC()
	}
	res, err := s.db.Collection(collProducts).InsertOne(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to insert: %w", err)
	}
	product.ID = res.InsertedID.(primitive.ObjectID)
	return product, nil
}

func (s *MongoStore) GetProductByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var product domain.Product
	err := s.db.Collection(collProducts).FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to decode: %w", err)
	}
	return &product, nil
}

func (s *MongoStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.findProducts(ctx, bson.M{}, nil)
}

func (s *MongoStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	update := bson.M{"$set": bson.M{
		"name":            product.Name,
		"description":     product.Description,
		"richDescription": product.RichDescription,
		"image":           product.Image,
		"images":          product.Images,
		"brand":           product.Brand,
		"price":           product.Price,
		"category":        product.Category,
		"countInStock":    product.CountInStock,
		"rating":          product.Rating,
		"numReviews":      product.NumReviews,
		"isFeatured":      product.IsFeatured,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Product
	err := s.db.Collection(collProducts).
		FindOneAndUpdate(ctx, bson.M{"_id": product.ID}, update, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to decode: %w", err)
	}
	return &updated, nil
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var deleted domain.Product
	err := s.db.Collection(collProducts).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: DeleteProduct failed to delete: %w", err)
	}
	return &deleted, nil
}

func (s *MongoStore) CountProducts(ctx context.Context) (int64, error) {
	count, err := s.db.Collection(collProducts).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("store: CountProducts failed: %w", err)
	}
	return count, nil
}

func (s *MongoStore) ListFeaturedProducts(ctx context.Context, limit int64) ([]domain.Product, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.findProducts(ctx, bson.M{"isFeatured": true}, opts)
}

func (s *MongoStore) ListProductsByCategories(ctx context.Context, categoryIDs []primitive.ObjectID) ([]domain.Product, error) {
	return s.findProducts(ctx, bson.M{"category": bson.M{"$in": categoryIDs}}, nil)
}

func (s *MongoStore) findProducts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = s.db.Collection(collProducts).Find(ctx, filter, opts)
	} else {
		cursor, err = s.db.Collection(collProducts).Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to query products: %w", err)
	}
	products := make([]domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("store: failed to decode products: %w", err)
	}
	return products, nil
}
