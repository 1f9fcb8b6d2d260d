package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a product in the catalog.
// Category is stored as an ObjectID reference; detail reads expand it.
type Product struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Description     string             `json:"description" bson:"description"`
	RichDescription string             `json:"richDescription,omitempty" bson:"richDescription,omitempty"`
	Image           string             `json:"image,omitempty" bson:"image,omitempty"`
	Images          []string           `json:"images,omitempty" bson:"images,omitempty"`
	Brand           string             `json:"brand" bson:"brand"`
	Price           float64            `json:"price" bson:"price"`
	Category        primitive.ObjectID `json:"category" bson:"category"`
	CountInStock    int32              `json:"countInStock" bson:"countInStock"`
	Rating          float64            `json:"rating,omitempty" bson:"rating,omitempty"`
	NumReviews      int32              `json:"numReviews,omitempty" bson:"numReviews,omitempty"`
	IsFeatured      bool               `json:"isFeatured" bson:"isFeatured"`
	DateCreated     time.Time          `json:"dateCreated" bson:"dateCreated"`
}
