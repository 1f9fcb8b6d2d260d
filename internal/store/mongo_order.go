package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eshop-api/internal/domain"
)

// --- OrderStorer Implementation ---

// orderWriter is the narrow slice of collection operations the order write
// paths use. MongoStore implements it; tests exercise the pricing and
// compensation logic against a fake.
type orderWriter interface {
	insertOrderItem(ctx context.Context, item domain.OrderItem) (primitive.ObjectID, error)
	deleteOrderItems(ctx context.Context, ids []primitive.ObjectID) error
	productPrice(ctx context.Context, id primitive.ObjectID) (float64, error)
	insertOrder(ctx context.Context, order *domain.Order) (primitive.ObjectID, error)
	findOrderByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	deleteOrderByID(ctx context.Context, id primitive.ObjectID) error
}

// createOrder persists the line items, prices each one from the stored product
// price, then persists the parent order referencing the item ids. Standalone
// MongoDB offers no multi-document transaction, so when any step fails the
// already-created items are deleted again instead of being left orphaned.
func createOrder(ctx context.Context, w orderWriter, order *domain.Order, items []domain.OrderItem) error {
	itemIDs := make([]primitive.ObjectID, 0, len(items))

	cleanup := func() {
		// The request context may already be done; the compensation still has to run.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := w.deleteOrderItems(cctx, itemIDs); err != nil {
			log.Printf("ERROR: CreateOrder failed to clean up order items: %v", err)
		}
	}

	for i := range items {
		id, err := w.insertOrderItem(ctx, items[i])
		if err != nil {
			cleanup()
			return fmt.Errorf("store: CreateOrder failed to insert order item: %w", err)
		}
		itemIDs = append(itemIDs, id)
	}

	var totalPrice float64
	for _, item := range items {
		price, err := w.productPrice(ctx, item.Product)
		if err != nil {
			cleanup()
			if errors.Is(err, ErrProductNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("store: CreateOrder failed to price order item: %w", err)
		}
		totalPrice += price * float64(item.Quantity)
	}

	order.OrderItems = itemIDs
	order.TotalPrice = totalPrice
	if order.DateOrdered.IsZero() {
		order.DateOrdered = time.Now().UTC()
	}

	id, err := w.insertOrder(ctx, order)
	if err != nil {
		cleanup()
		return fmt.Errorf("store: CreateOrder failed to insert order: %w", err)
	}
	order.ID = id
	return nil
}

func (s *MongoStore) CreateOrder(ctx context.Context, order *domain.Order, items []domain.OrderItem) (*domain.ExpandedOrder, error) {
	if err := createOrder(ctx, s, order, items); err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, order.ID)
}

func (s *MongoStore) insertOrderItem(ctx context.Context, item domain.OrderItem) (primitive.ObjectID, error) {
	res, err := s.db.Collection(collOrderItems).InsertOne(ctx, item)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *MongoStore) deleteOrderItems(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Collection(collOrderItems).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (s *MongoStore) productPrice(ctx context.Context, id primitive.ObjectID) (float64, error) {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return product.Price, nil
}

func (s *MongoStore) insertOrder(ctx context.Context, order *domain.Order) (primitive.ObjectID, error) {
	res, err := s.db.Collection(collOrders).InsertOne(ctx, order)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *MongoStore) findOrderByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var order domain.Order
	err := s.db.Collection(collOrders).FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: failed to load order: %w", err)
	}
	return &order, nil
}

func (s *MongoStore) deleteOrderByID(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.db.Collection(collOrders).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) GetOrderByID(ctx context.Context, id primitive.ObjectID) (*domain.ExpandedOrder, error) {
	order, err := s.findOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	expanded, err := s.expandOrders(ctx, []domain.Order{*order})
	if err != nil {
		return nil, err
	}
	return &expanded[0], nil
}

func (s *MongoStore) ListOrders(ctx context.Context) ([]domain.ExpandedOrder, error) {
	return s.findOrders(ctx, bson.M{})
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.ExpandedOrder, error) {
	return s.findOrders(ctx, bson.M{"user": userID})
}

func (s *MongoStore) findOrders(ctx context.Context, filter bson.M) ([]domain.ExpandedOrder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dateOrdered", Value: -1}})
	cursor, err := s.db.Collection(collOrders).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query orders: %w", err)
	}
	orders := make([]domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("store: failed to decode orders: %w", err)
	}
	return s.expandOrders(ctx, orders)
}

// expandOrders resolves item, product and user references for a batch of
// orders with one $in query per collection. A reference that no longer exists
// (concurrent delete) is simply left unresolved in the result.
func (s *MongoStore) expandOrders(ctx context.Context, orders []domain.Order) ([]domain.ExpandedOrder, error) {
	itemIDs := make([]primitive.ObjectID, 0)
	userIDs := make([]primitive.ObjectID, 0)
	for _, o := range orders {
		itemIDs = append(itemIDs, o.OrderItems...)
		userIDs = append(userIDs, o.User)
	}

	itemsByID := make(map[primitive.ObjectID]domain.OrderItem, len(itemIDs))
	productIDs := make([]primitive.ObjectID, 0, len(itemIDs))
	if len(itemIDs) > 0 {
		cursor, err := s.db.Collection(collOrderItems).Find(ctx, bson.M{"_id": bson.M{"$in": itemIDs}})
		if err != nil {
			return nil, fmt.Errorf("store: failed to query order items: %w", err)
		}
		var items []domain.OrderItem
		if err := cursor.All(ctx, &items); err != nil {
			return nil, fmt.Errorf("store: failed to decode order items: %w", err)
		}
		for _, item := range items {
			itemsByID[item.ID] = item
			productIDs = append(productIDs, item.Product)
		}
	}

	productsByID := make(map[primitive.ObjectID]domain.Product, len(productIDs))
	if len(productIDs) > 0 {
		products, err := s.findProducts(ctx, bson.M{"_id": bson.M{"$in": productIDs}}, nil)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			productsByID[p.ID] = p
		}
	}

	usersByID := make(map[primitive.ObjectID]domain.UserSummary, len(userIDs))
	if len(userIDs) > 0 {
		opts := options.Find().SetProjection(bson.M{"name": 1})
		cursor, err := s.db.Collection(collUsers).Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}}, opts)
		if err != nil {
			return nil, fmt.Errorf("store: failed to query order users: %w", err)
		}
		var users []domain.UserSummary
		if err := cursor.All(ctx, &users); err != nil {
			return nil, fmt.Errorf("store: failed to decode order users: %w", err)
		}
		for _, u := range users {
			usersByID[u.ID] = u
		}
	}

	expanded := make([]domain.ExpandedOrder, 0, len(orders))
	for _, o := range orders {
		eo := domain.ExpandedOrder{Order: o}
		eo.OrderItems = make([]domain.ExpandedOrderItem, 0, len(o.OrderItems))
		for _, itemID := range o.OrderItems {
			item, ok := itemsByID[itemID]
			if !ok {
				continue
			}
			ei := domain.ExpandedOrderItem{ID: item.ID, Quantity: item.Quantity}
			if product, ok := productsByID[item.Product]; ok {
				ei.Product = &product
			}
			eo.OrderItems = append(eo.OrderItems, ei)
		}
		if user, ok := usersByID[o.User]; ok {
			eo.User = &user
		}
		expanded = append(expanded, eo)
	}
	return expanded, nil
}

func (s *MongoStore) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status domain.OrderStatus) (*domain.Order, error) {
	update := bson.M{"$set": bson.M{"status": status}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Order
	err := s.db.Collection(collOrders).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: UpdateOrderStatus failed to decode: %w", err)
	}
	return &updated, nil
}

// deleteOrder removes the order's line items, then the order itself. The
// cascade is best-effort: a failure mid-way leaves a partially cleaned item
// set but never an item-less order with dangling references.
func deleteOrder(ctx context.Context, w orderWriter, id primitive.ObjectID) error {
	order, err := w.findOrderByID(ctx, id)
	if err != nil {
		return err
	}

	if err := w.deleteOrderItems(ctx, order.OrderItems); err != nil {
		return fmt.Errorf("store: DeleteOrder failed to delete order items: %w", err)
	}

	if err := w.deleteOrderByID(ctx, id); err != nil {
		return fmt.Errorf("store: DeleteOrder failed to delete order: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	return deleteOrder(ctx, s, id)
}

func (s *MongoStore) TotalSales(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	}
	cursor, err := s.db.Collection(collOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("store: TotalSales aggregation failed: %w", err)
	}
	var results []struct {
		TotalSales float64 `bson:"totalSales"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("store: TotalSales failed to decode: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].TotalSales, nil
}

func (s *MongoStore) CountOrders(ctx context.Context) (int64, error) {
	count, err := s.db.Collection(collOrders).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("store: CountOrders failed: %w", err)
	}
	return count, nil
}
