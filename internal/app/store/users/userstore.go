// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned when no user matches the query.
	ErrNotFound = errors.New("user not found")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListCoordinatorsForHackathon returns every user holding a coordinator
// invitation for the hackathon, pending or accepted.
func (s *Store) ListCoordinatorsForHackathon(ctx context.Context, hackathonID primitive.ObjectID) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{"coordinator_for.hackathon_id": hackathonID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListJudgesForHackathon returns every user holding a judge invitation for
// the hackathon, pending or accepted.
func (s *Store) ListJudgesForHackathon(ctx context.Context, hackathonID primitive.ObjectID) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{"judge_for.hackathon_id": hackathonID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new user after normalizing core fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Institution = normalize.Institution(u.Institution)
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// AddRole appends a platform role tag if the user doesn't already carry it.
func (s *Store) AddRole(ctx context.Context, userID primitive.ObjectID, role string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$addToSet": bson.M{"roles": normalize.Role(role)},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

/* -------------------------- coordinator invitations -------------------------- */

// AddCoordinatorInvitation appends a pending coordinator invitation to the
// user's coordinator_for array.
func (s *Store) AddCoordinatorInvitation(ctx context.Context, userID primitive.ObjectID, inv models.CoordinatorInvitation) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$push": bson.M{"coordinator_for": inv},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AcceptCoordinatorInvitation flips the user's invitation for the
// hackathon to accepted and stamps accepted_at. Only a pending invitation
// matches; an accepted or missing one returns ErrNotFound. The $elemMatch
// keeps the positional update bound to the one invitation satisfying both
// conditions when the user holds several.
func (s *Store) AcceptCoordinatorInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id": userID,
		"coordinator_for": bson.M{"$elemMatch": bson.M{
			"hackathon_id": hackathonID,
			"status":       models.InviteStatusPending,
		}},
	}, bson.M{
		"$set": bson.M{
			"coordinator_for.$.status":      models.InviteStatusAccepted,
			"coordinator_for.$.accepted_at": at,
			"updated_at":                    time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshCoordinatorInvitation regenerates the token and invited_at on a
// non-accepted invitation (resend).
func (s *Store) RefreshCoordinatorInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID, newToken string, invitedAt time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id": userID,
		"coordinator_for": bson.M{"$elemMatch": bson.M{
			"hackathon_id": hackathonID,
			"status":       bson.M{"$ne": models.InviteStatusAccepted},
		}},
	}, bson.M{
		"$set": bson.M{
			"coordinator_for.$.invitation_token": newToken,
			"coordinator_for.$.invited_at":       invitedAt,
			"coordinator_for.$.status":           models.InviteStatusPending,
			"updated_at":                         time.Now().UTC(),
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

// RemovePendingCoordinatorInvitation pulls a pending (not accepted)
// invitation for the hackathon. Used by cancel.
func (s *Store) RemovePendingCoordinatorInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"coordinator_for": bson.M{
			"hackathon_id": hackathonID,
			"status":       models.InviteStatusPending,
		}},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveCoordinatorInvitation pulls the invitation for the hackathon
// regardless of status. Used by remove.
func (s *Store) RemoveCoordinatorInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"coordinator_for": bson.M{"hackathon_id": hackathonID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// SetCoordinatorPermissions replaces the permissions on the user's
// invitation record for the hackathon.
func (s *Store) SetCoordinatorPermissions(ctx context.Context, userID, hackathonID primitive.ObjectID, perms models.CoordinatorPermissions) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":                          userID,
		"coordinator_for.hackathon_id": hackathonID,
	}, bson.M{
		"$set": bson.M{
			"coordinator_for.$.permissions": perms,
			"updated_at":                    time.Now().UTC(),
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

// GetByCoordinatorToken finds the user holding a pending coordinator
// invitation with the given token.
func (s *Store) GetByCoordinatorToken(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{
		"coordinator_for": bson.M{"$elemMatch": bson.M{
			"invitation_token": token,
			"status":           models.InviteStatusPending,
		}},
	}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

/* ------------------------------ judge invitations ----------------------------- */

// AddJudgeInvitation appends a pending judge invitation to the user's
// judge_for array.
func (s *Store) AddJudgeInvitation(ctx context.Context, userID primitive.ObjectID, inv models.JudgeInvitation) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$push": bson.M{"judge_for": inv},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AcceptJudgeInvitation flips the user's pending judge invitation for the
// hackathon to accepted.
func (s *Store) AcceptJudgeInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id": userID,
		"judge_for": bson.M{"$elemMatch": bson.M{
			"hackathon_id": hackathonID,
			"status":       models.InviteStatusPending,
		}},
	}, bson.M{
		"$set": bson.M{
			"judge_for.$.status":      models.InviteStatusAccepted,
			"judge_for.$.accepted_at": at,
			"updated_at":              time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshJudgeInvitation regenerates the token and invited_at on a
// non-accepted judge invitation.
func (s *Store) RefreshJudgeInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID, newToken string, invitedAt time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id": userID,
		"judge_for": bson.M{"$elemMatch": bson.M{
			"hackathon_id": hackathonID,
			"status":       bson.M{"$ne": models.InviteStatusAccepted},
		}},
	}, bson.M{
		"$set": bson.M{
			"judge_for.$.invitation_token": newToken,
			"judge_for.$.invited_at":       invitedAt,
			"judge_for.$.status":           models.InviteStatusPending,
			"updated_at":                   time.Now().UTC(),
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

// RemovePendingJudgeInvitation pulls a pending judge invitation.
func (s *Store) RemovePendingJudgeInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"judge_for": bson.M{
			"hackathon_id": hackathonID,
			"status":       models.InviteStatusPending,
		}},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveJudgeInvitation pulls the judge invitation regardless of status.
func (s *Store) RemoveJudgeInvitation(ctx context.Context, userID, hackathonID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"judge_for": bson.M{"hackathon_id": hackathonID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// GetByJudgeToken finds the user holding a pending judge invitation with
// the given token.
func (s *Store) GetByJudgeToken(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{
		"judge_for": bson.M{"$elemMatch": bson.M{
			"invitation_token": token,
			"status":           models.InviteStatusPending,
		}},
	}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ExpireStaleInvitations marks pending coordinator and judge invitations
// issued before the cutoff as expired, clearing their tokens so the links
// can no longer be redeemed. Returns the number of users touched.
func (s *Store) ExpireStaleInvitations(ctx context.Context, cutoff time.Time) (int64, error) {
	stale := bson.M{"$elemMatch": bson.M{
		"status":     models.InviteStatusPending,
		"invited_at": bson.M{"$lt": cutoff},
	}}
	filters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{
			"inv.status":     models.InviteStatusPending,
			"inv.invited_at": bson.M{"$lt": cutoff},
		}},
	})

	var total int64
	for _, field := range []string{"coordinator_for", "judge_for"} {
		res, err := s.c.UpdateMany(ctx,
			bson.M{field: stale},
			bson.M{
				"$set": bson.M{
					field + ".$[inv].status": models.InviteStatusExpired,
					"updated_at":             time.Now().UTC(),
				},
				"$unset": bson.M{
					field + ".$[inv].invitation_token": "",
				},
			},
			filters)
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	return total, nil
}
