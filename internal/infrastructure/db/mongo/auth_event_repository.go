package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/snapmeal/auth-service/internal/core/domain"
)

const authEventsCollection = "auth_events"

// AuthEventRepository persists the auth audit trail.
type AuthEventRepository struct {
	coll *mongo.Collection
}

func NewAuthEventRepository(db *mongo.Database) *AuthEventRepository {
	return &AuthEventRepository{coll: db.Collection(authEventsCollection)}
}

type mongoAuthEvent struct {
	Subject    string `bson:"subject,omitempty"`
	Identifier string `bson:"identifier,omitempty"`
	Kind       string `bson:"kind"`
	ClientIP   string `bson:"client_ip"`
	At         int64  `bson:"at"`
}

func (r *AuthEventRepository) Insert(ctx context.Context, event domain.AuthEvent) error {
	doc := mongoAuthEvent{
		Subject:    event.Subject,
		Identifier: event.Identifier,
		Kind:       string(event.Kind),
		ClientIP:   event.ClientIP,
		At:         event.At.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
