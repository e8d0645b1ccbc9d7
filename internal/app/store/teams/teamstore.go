// internal/app/store/teams/teamstore.go
package teamstore

import (
	"context"
	"errors"
	"strings"
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
	return &Store{c: db.Collection("teams")}
}

var (
	// ErrNotFound is returned when no team matches the query.
	ErrNotFound = errors.New("team not found")
	// ErrDuplicateName is returned when the team name is taken within the
	// hackathon.
	ErrDuplicateName = errors.New("a team with this name already exists in the hackathon")
	// ErrAlreadyRegistered is returned when the leader already has a team
	// in the hackathon.
	ErrAlreadyRegistered = errors.New("user already leads a team in this hackathon")
	// ErrSubmissionExists is returned by AddSubmission when the team
	// already submitted for the round.
	ErrSubmissionExists = errors.New("a submission for this round already exists")
	// ErrScoreExists is returned by AddScore when the judge already scored
	// the team for the round.
	ErrScoreExists = errors.New("this judge already scored the team for this round")
)

// Create inserts a new team with the leader as its first active member.
func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	t.ID = primitive.NewObjectID()
	t.Name = normalize.Name(t.Name)
	t.NameCI = text.Fold(t.Name)
	if t.RegistrationStatus == "" {
		t.RegistrationStatus = models.RegistrationStatusPending
	}
	if t.SubmissionStatus == "" {
		t.SubmissionStatus = models.SubmissionStatusDraft
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			if strings.Contains(err.Error(), "uniq_teams_hackathon_leader") {
				return models.Team{}, ErrAlreadyRegistered
			}
			return models.Team{}, ErrDuplicateName
		}
		return models.Team{}, err
	}
	return t, nil
}

// GetByID loads a team by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListFilter narrows ListByHackathon results.
type ListFilter struct {
	RegistrationStatus string
	SubmissionStatus   string
	NamePrefix         string
	CheckedIn          *bool
	Eliminated         *bool
	Limit              int64
}

// ListByHackathon returns teams in a hackathon, name order.
func (s *Store) ListByHackathon(ctx context.Context, hackathonID primitive.ObjectID, f ListFilter) ([]models.Team, error) {
	q := bson.M{"hackathon_id": hackathonID}
	if f.RegistrationStatus != "" {
		q["registration_status"] = normalize.Status(f.RegistrationStatus)
	}
	if f.SubmissionStatus != "" {
		q["submission_status"] = normalize.Status(f.SubmissionStatus)
	}
	if f.NamePrefix != "" {
		lo := text.Fold(f.NamePrefix)
		q["name_ci"] = bson.M{"$gte": lo, "$lt": lo + "￿"}
	}
	if f.CheckedIn != nil {
		q["check_in.team_checked_in"] = *f.CheckedIn
	}
	if f.Eliminated != nil {
		q["eliminated"] = *f.Eliminated
	}

	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Team
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveTeamForUser returns the team in the hackathon where the user is an
// active member, or ErrNotFound.
func (s *Store) ActiveTeamForUser(ctx context.Context, hackathonID, userID primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	err := s.c.FindOne(ctx, bson.M{
		"hackathon_id": hackathonID,
		"members": bson.M{"$elemMatch": bson.M{
			"user_id": userID,
			"status":  models.MemberStatusActive,
		}},
	}).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListForUser returns every team across hackathons where the user is an
// active member.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Team, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"members": bson.M{"$elemMatch": bson.M{
			"user_id": userID,
			"status":  models.MemberStatusActive,
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Team
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial $set and bumps updated_at. When "name" is in
// the set, name_ci is folded alongside it.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	if name, ok := set["name"].(string); ok {
		name = normalize.Name(name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the team document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

/* --------------------------------- members --------------------------------- */

// AddMember appends a membership record.
func (s *Store) AddMember(ctx context.Context, id primitive.ObjectID, m models.TeamMember) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"members": m},
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

// SetMemberStatus flips one member's status. Departures stay in the array
// so history survives.
func (s *Store) SetMemberStatus(ctx context.Context, id, userID primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":             id,
		"members.user_id": userID,
	}, bson.M{
		"$set": bson.M{
			"members.$.status": status,
			"updated_at":       time.Now().UTC(),
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

/* ------------------------------- registration ------------------------------- */

// MarkSubmitted moves the registration to submitted and stamps the time.
func (s *Store) MarkSubmitted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.Update(ctx, id, bson.M{
		"submission_status":   models.SubmissionStatusSubmitted,
		"registration_status": models.RegistrationStatusPending,
		"submitted_at":        at,
		"rejection_reason":    "",
	})
}

// Approve marks the registration approved and moves the submission
// workflow to approved with it. approvedBy is a user id hex or the
// auto-approval sentinel.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID, approvedBy string, at time.Time) error {
	return s.Update(ctx, id, bson.M{
		"registration_status": models.RegistrationStatusApproved,
		"submission_status":   models.SubmissionStatusApproved,
		"approved_at":         at,
		"approved_by":         approvedBy,
		"rejection_reason":    "",
	})
}

// Reject marks the registration rejected and drops the workflow back to
// draft so the team can amend and reconfirm.
func (s *Store) Reject(ctx context.Context, id primitive.ObjectID, reason string) error {
	return s.Update(ctx, id, bson.M{
		"registration_status": models.RegistrationStatusRejected,
		"submission_status":   models.SubmissionStatusDraft,
		"rejection_reason":    reason,
	})
}

// SetAutoApprovalResult records the auto-approval evaluation outcome.
func (s *Store) SetAutoApprovalResult(ctx context.Context, id primitive.ObjectID, eligible bool, reason string) error {
	return s.Update(ctx, id, bson.M{
		"auto_approval_checked":  true,
		"auto_approval_eligible": eligible,
		"auto_approval_reason":   reason,
	})
}

// SetPayment replaces the payment record.
func (s *Store) SetPayment(ctx context.Context, id primitive.ObjectID, p models.Payment) error {
	return s.Update(ctx, id, bson.M{"payment": p})
}

/* ------------------------- submissions, scores, notes ------------------------- */

// AddSubmission pushes the round submission. The filter excludes teams
// that already hold a submission for the round, so at most one ever
// lands even under concurrent submits.
func (s *Store) AddSubmission(ctx context.Context, id primitive.ObjectID, sub models.Submission) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":                  id,
		"submissions.round_id": bson.M{"$ne": sub.RoundID},
	}, bson.M{
		"$push": bson.M{"submissions": sub},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		// Distinguish a missing team from an existing submission.
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return ErrSubmissionExists
	}
	return nil
}

// AddScore pushes a judge's score. The filter rejects teams already
// holding a score from this judge for this round.
func (s *Store) AddScore(ctx context.Context, id primitive.ObjectID, sc models.Score) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id": id,
		"scores": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"round_id": sc.RoundID,
			"judge_id": sc.JudgeID,
		}}},
	}, bson.M{
		"$push": bson.M{"scores": sc},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return ErrScoreExists
	}
	return nil
}

// AddNote appends an annotation.
func (s *Store) AddNote(ctx context.Context, id primitive.ObjectID, n models.Note) (models.Note, error) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"notes": n},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return models.Note{}, err
	}
	if res.MatchedCount == 0 {
		return models.Note{}, ErrNotFound
	}
	return n, nil
}

/* --------------------------- event-day operations --------------------------- */

// SetTeamCheckIn stamps the team-level check-in.
func (s *Store) SetTeamCheckIn(ctx context.Context, id, byID primitive.ObjectID, at time.Time) error {
	return s.Update(ctx, id, bson.M{
		"check_in.team_checked_in":  true,
		"check_in.checked_in_at":    at,
		"check_in.checked_in_by_id": byID,
	})
}

// CheckInMember records one member's arrival.
func (s *Store) CheckInMember(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"check_in.members_checked_in": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignTable sets the team's table number.
func (s *Store) AssignTable(ctx context.Context, id primitive.ObjectID, tableNo string) error {
	return s.Update(ctx, id, bson.M{"table_no": tableNo})
}

// AssignTeamNumber sets the team's event number.
func (s *Store) AssignTeamNumber(ctx context.Context, id primitive.ObjectID, n int) error {
	return s.Update(ctx, id, bson.M{"team_number": n})
}

// Eliminate marks the team out of the competition.
func (s *Store) Eliminate(ctx context.Context, id, roundID, byID primitive.ObjectID, reason string, at time.Time) error {
	return s.Update(ctx, id, bson.M{
		"eliminated":          true,
		"eliminated_round_id": roundID,
		"eliminated_reason":   reason,
		"eliminated_by_id":    byID,
		"eliminated_at":       at,
	})
}

/* ---------------------------------- counts ---------------------------------- */

// CountByHackathon counts teams, optionally restricted to one
// registration status.
func (s *Store) CountByHackathon(ctx context.Context, hackathonID primitive.ObjectID, registrationStatus string) (int64, error) {
	q := bson.M{"hackathon_id": hackathonID}
	if registrationStatus != "" {
		q["registration_status"] = registrationStatus
	}
	return s.c.CountDocuments(ctx, q)
}

// CountSubmissionsForRound counts teams holding a submission for the round.
func (s *Store) CountSubmissionsForRound(ctx context.Context, hackathonID, roundID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"hackathon_id":         hackathonID,
		"submissions.round_id": roundID,
	})
}

// CountCheckedIn counts teams with a team-level check-in.
func (s *Store) CountCheckedIn(ctx context.Context, hackathonID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"hackathon_id":             hackathonID,
		"check_in.team_checked_in": true,
	})
}

// CountEliminated counts eliminated teams.
func (s *Store) CountEliminated(ctx context.Context, hackathonID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"hackathon_id": hackathonID,
		"eliminated":   true,
	})
}
