package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eshop-api/internal/domain"
)

// --- UserStorer Implementation ---

func (s *MongoStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	res, err := s.db.Collection(collUsers).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("store: CreateUser failed to insert: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByID failed to decode: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByEmail failed to decode: %w", err)
	}
	return &user, nil
}

// ListUsers returns only id, name and email per user.
func (s *MongoStore) ListUsers(ctx context.Context) ([]domain.UserListEntry, error) {
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1})
	cursor, err := s.db.Collection(collUsers).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: ListUsers failed to query: %w", err)
	}
	users := make([]domain.UserListEntry, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("store: ListUsers failed to decode: %w", err)
	}
	return users, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	update := bson.M{"$set": bson.M{
		"name":      user.Name,
		"email":     user.Email,
		"street":    user.Street,
		"apartment": user.Apartment,
		"city":      user.City,
		"zip":       user.Zip,
		"country":   user.Country,
		"phone":     user.Phone,
		"isAdmin":   user.IsAdmin,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.User
	err := s.db.Collection(collUsers).
		FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, update, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("store: UpdateUser failed to decode: %w", err)
	}
	return &updated, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(collUsers).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("store: DeleteUser failed to delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	count, err := s.db.Collection(collUsers).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("store: CountUsers failed: %w", err)
	}
	return count, nil
}
