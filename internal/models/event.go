package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScoreEvent records one score submission attempt in MongoDB.
type ScoreEvent struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	UserID    int64              `json:"user_id"    bson:"user_id"`
	Username  string             `json:"username"   bson:"username"`
	Game      string             `json:"game"       bson:"game"`
	Attempted int64              `json:"attempted"  bson:"attempted"`
	Previous  int64              `json:"previous"   bson:"previous"`
	Stored    int64              `json:"stored"     bson:"stored"`
	Outcome   Outcome            `json:"outcome"    bson:"outcome"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
