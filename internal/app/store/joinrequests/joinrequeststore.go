// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/hackhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("join_requests")}
}

var (
	// ErrNotFound is returned when no join request matches the query.
	ErrNotFound = errors.New("join request not found")
	// ErrDuplicatePending is returned when the user already holds a
	// pending invitation to the team. Resolved requests do not block a
	// new one.
	ErrDuplicatePending = errors.New("a pending join request for this team already exists")
)

// Create inserts a pending join request.
func (s *Store) Create(ctx context.Context, r models.JoinRequest) (models.JoinRequest, error) {
	r.ID = primitive.NewObjectID()
	r.Status = models.JoinRequestStatusPending
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.JoinRequest{}, ErrDuplicatePending
		}
		return models.JoinRequest{}, err
	}
	return r, nil
}

// GetByID loads a join request by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.JoinRequest, error) {
	var r models.JoinRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ListForTeam returns the team's requests, newest first, optionally
// restricted to one status.
func (s *Store) ListForTeam(ctx context.Context, teamID primitive.ObjectID, status string) ([]models.JoinRequest, error) {
	q := bson.M{"team_id": teamID}
	if status != "" {
		q["status"] = status
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.JoinRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListForUser returns the invitations addressed to the user in a
// hackathon, newest first.
func (s *Store) ListForUser(ctx context.Context, userID, hackathonID primitive.ObjectID) ([]models.JoinRequest, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"user_id":      userID,
		"hackathon_id": hackathonID,
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.JoinRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus resolves a pending request to accepted, rejected, or
// cancelled. Only pending requests transition, so a request cannot be
// resolved twice.
func (s *Store) SetStatus(ctx context.Context, id, respondedBy primitive.ObjectID, status string) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":    id,
		"status": models.JoinRequestStatusPending,
	}, bson.M{
		"$set": bson.M{
			"status":          status,
			"responded_by_id": respondedBy,
			"responded_at":    now,
			"updated_at":      now,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RejectOtherPendingForUser rejects every remaining pending invitation
// the user holds in the hackathon, excluding one just accepted. Returns
// how many were rejected.
func (s *Store) RejectOtherPendingForUser(ctx context.Context, userID, hackathonID, exceptID, respondedBy primitive.ObjectID) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateMany(ctx, bson.M{
		"_id":          bson.M{"$ne": exceptID},
		"user_id":      userID,
		"hackathon_id": hackathonID,
		"status":       models.JoinRequestStatusPending,
	}, bson.M{
		"$set": bson.M{
			"status":          models.JoinRequestStatusRejected,
			"responded_by_id": respondedBy,
			"responded_at":    now,
			"updated_at":      now,
		},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteForTeam removes every request for a team. Used when a team is
// deleted outright.
func (s *Store) DeleteForTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"team_id": teamID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
