// internal/domain/models/joinrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Join request statuses.
const (
	JoinRequestStatusPending   = "pending"
	JoinRequestStatusAccepted  = "accepted"
	JoinRequestStatusRejected  = "rejected"
	JoinRequestStatusCancelled = "cancelled"
)

// JoinRequest is a team leader's invitation asking a user to join the
// team. The target user accepts or rejects it; the leader (or whoever
// sent it) cancels it while it is still pending. A partial unique index
// on (team_id, user_id) where status == pending keeps duplicates out;
// accepting one invitation rejects every other pending invitation the
// user holds in the same hackathon.
type JoinRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID      primitive.ObjectID `bson:"team_id" json:"team_id"`
	HackathonID primitive.ObjectID `bson:"hackathon_id" json:"hackathon_id"`

	// UserID is the invited user; SenderID is the leader who sent the
	// invitation.
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	SenderID primitive.ObjectID `bson:"sender_id" json:"sender_id"`

	Message string `bson:"message,omitempty" json:"message,omitempty"`
	Status  string `bson:"status" json:"status"`

	RespondedByID *primitive.ObjectID `bson:"responded_by_id,omitempty" json:"responded_by_id,omitempty"`
	RespondedAt   *time.Time          `bson:"responded_at,omitempty" json:"responded_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
