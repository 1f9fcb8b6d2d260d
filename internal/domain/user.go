package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// User represents a registered account.
// PasswordHash is excluded from every JSON response.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"passwordHash"`
	Street       string             `json:"street,omitempty" bson:"street,omitempty"`
	Apartment    string             `json:"apartment,omitempty" bson:"apartment,omitempty"`
	City         string             `json:"city,omitempty" bson:"city,omitempty"`
	Zip          string             `json:"zip,omitempty" bson:"zip,omitempty"`
	Country      string             `json:"country,omitempty" bson:"country,omitempty"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	IsAdmin      bool               `json:"isAdmin" bson:"isAdmin"`
}

// UserListEntry is the reduced shape returned by the user listing: id, name
// and email only, nothing account-state related.
type UserListEntry struct {
	ID    primitive.ObjectID `json:"id" bson:"_id"`
	Name  string             `json:"name" bson:"name"`
	Email string             `json:"email" bson:"email"`
}

// UserSummary is the reduced shape embedded in expanded order reads.
type UserSummary struct {
	ID   primitive.ObjectID `json:"id" bson:"_id"`
	Name string             `json:"name" bson:"name"`
}
