// internal/app/store/hackathons/hackathonstore.go
package hackathonstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/paging"
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
	return &Store{c: db.Collection("hackathons")}
}

var (
	// ErrNotFound is returned when no hackathon matches the query.
	ErrNotFound = errors.New("hackathon not found")
	// ErrDuplicateSlug is returned when the slug is already taken.
	ErrDuplicateSlug = errors.New("a hackathon with this slug already exists")
	// ErrRegistrationClosed is returned by ClaimRegistrationSlot when the
	// hackathon is not accepting registrations or is full.
	ErrRegistrationClosed = errors.New("registration is closed or full")
)

// Create inserts a new hackathon after normalizing core fields.
func (s *Store) Create(ctx context.Context, h models.Hackathon) (models.Hackathon, error) {
	h.ID = primitive.NewObjectID()
	h.Title = normalize.Name(h.Title)
	h.TitleCI = text.Fold(h.Title)
	h.Tags = normalize.Tags(h.Tags)
	if h.Status == "" {
		h.Status = models.HackathonStatusDraft
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, h); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Hackathon{}, ErrDuplicateSlug
		}
		return models.Hackathon{}, err
	}
	return h, nil
}

// GetByID loads a hackathon by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hackathon, error) {
	var h models.Hackathon
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&h); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// GetBySlug loads a hackathon by its URL slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Hackathon, error) {
	var h models.Hackathon
	if err := s.c.FindOne(ctx, bson.M{"slug": slug}).Decode(&h); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// SlugExists reports whether a slug is taken.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"slug": slug}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status      string
	OrganizerID primitive.ObjectID
	Tag         string
	TitlePrefix string
	PublicOnly  bool
	Limit       int64
}

// query translates the filter into a Mongo query document.
func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = normalize.Status(f.Status)
	}
	if !f.OrganizerID.IsZero() {
		q["organizer_id"] = f.OrganizerID
	}
	if f.Tag != "" {
		q["tags"] = normalize.Status(f.Tag)
	}
	if f.TitlePrefix != "" {
		lo := text.Fold(f.TitlePrefix)
		q["title_ci"] = bson.M{"$gte": lo, "$lt": lo + "￿"}
	}
	if f.PublicOnly {
		q["is_public"] = true
		hidden := bson.M{"$nin": bson.A{models.HackathonStatusDraft, models.HackathonStatusCancelled}}
		if _, ok := q["status"]; ok {
			q["$and"] = bson.A{bson.M{"status": hidden}}
		} else {
			q["status"] = hidden
		}
	}
	return q
}

// List returns hackathons matching the filter, soonest start first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Hackathon, error) {
	q := f.query()

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Hackathon
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage returns one keyset page of hackathons matching the filter,
// sorted by folded title. before and after are opaque cursors produced by
// paging.BuildCursors on a previous page; pass both empty for the first
// page. Rows come back in display order regardless of paging direction.
func (s *Store) ListPage(ctx context.Context, f ListFilter, before, after string) ([]models.Hackathon, paging.Result, error) {
	cfg := paging.ConfigureKeyset(before, after)

	q := f.query()
	if w := cfg.KeysetWindow("title_ci"); w != nil {
		for k, v := range w {
			q[k] = v
		}
	}

	find := options.Find()
	cfg.ApplyToFind(find, "title_ci")

	cur, err := s.c.Find(ctx, q, find)
	if err != nil {
		return nil, paging.Result{}, err
	}
	defer cur.Close(ctx)
	var out []models.Hackathon
	if err := cur.All(ctx, &out); err != nil {
		return nil, paging.Result{}, err
	}

	if cfg.Direction == paging.Backward {
		paging.Reverse(out)
	}
	page := paging.TrimPage(&out, before, after)
	return out, page, nil
}

// ListCoordinatedBy returns the hackathons where the user appears in the
// coordinators array.
func (s *Store) ListCoordinatedBy(ctx context.Context, userID primitive.ObjectID) ([]models.Hackathon, error) {
	cur, err := s.c.Find(ctx, bson.M{"coordinators.user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Hackathon
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial $set of editable fields and bumps updated_at.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	if title, ok := set["title"].(string); ok {
		title = normalize.Name(title)
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus transitions the hackathon's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.Update(ctx, id, bson.M{"status": normalize.Status(status)})
}

// Delete removes the hackathon document.
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

// IncrementViews adds one to the view counter.
func (s *Store) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	return err
}

/* ----------------------------- registration slots ----------------------------- */

// ClaimRegistrationSlot atomically takes one registration slot. The
// filter only matches while status is registration_open and the team cap
// has headroom, so concurrent claims past the cap fail cleanly.
func (s *Store) ClaimRegistrationSlot(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":    id,
		"status": models.HackathonStatusRegistrationOpen,
		"$expr":  bson.M{"$lt": bson.A{"$current_registrations", "$max_teams"}},
	}, bson.M{
		"$inc": bson.M{"current_registrations": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrRegistrationClosed
	}
	return nil
}

// ReleaseRegistrationSlot returns a claimed slot, flooring at zero.
func (s *Store) ReleaseRegistrationSlot(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{
		"_id":                   id,
		"current_registrations": bson.M{"$gt": 0},
	}, bson.M{
		"$inc": bson.M{"current_registrations": -1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

/* ----------------------------- coordinators & judges ----------------------------- */

// AddCoordinator appends an accepted coordinator entry.
func (s *Store) AddCoordinator(ctx context.Context, id primitive.ObjectID, c models.Coordinator) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"coordinators": c},
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

// RemoveCoordinator pulls the coordinator entry for the user.
func (s *Store) RemoveCoordinator(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"coordinators": bson.M{"user_id": userID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// SetCoordinatorPermissions replaces the permissions of the coordinator
// entry for the user.
func (s *Store) SetCoordinatorPermissions(ctx context.Context, id, userID primitive.ObjectID, perms models.CoordinatorPermissions) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":                  id,
		"coordinators.user_id": userID,
	}, bson.M{
		"$set": bson.M{
			"coordinators.$.permissions": perms,
			"updated_at":                 time.Now().UTC(),
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

// AddJudge appends an accepted judge entry with its profile snapshot.
func (s *Store) AddJudge(ctx context.Context, id primitive.ObjectID, j models.Judge) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"judges": j},
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

// SetJudgeRounds replaces the assigned rounds on the judge entry for the
// user. An empty slice means the judge covers every round.
func (s *Store) SetJudgeRounds(ctx context.Context, id, userID primitive.ObjectID, roundIDs []primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":            id,
		"judges.user_id": userID,
	}, bson.M{
		"$set": bson.M{
			"judges.$.assigned_rounds": roundIDs,
			"updated_at":               time.Now().UTC(),
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

// RemoveJudge pulls the judge entry for the user.
func (s *Store) RemoveJudge(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"judges": bson.M{"user_id": userID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

/* ---------------------------------- rounds ---------------------------------- */

// AddRound appends an embedded round.
func (s *Store) AddRound(ctx context.Context, id primitive.ObjectID, r models.Round) (models.Round, error) {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"rounds": r},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return models.Round{}, err
	}
	if res.MatchedCount == 0 {
		return models.Round{}, ErrNotFound
	}
	return r, nil
}

// UpdateRound applies a partial $set against the matched round element.
// Keys in set are relative to the round (e.g. "name", "end_time").
func (s *Store) UpdateRound(ctx context.Context, id, roundID primitive.ObjectID, set bson.M) error {
	prefixed := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range set {
		prefixed["rounds.$."+k] = v
	}
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":        id,
		"rounds._id": roundID,
	}, bson.M{"$set": prefixed})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveRound pulls the embedded round.
func (s *Store) RemoveRound(ctx context.Context, id, roundID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"rounds": bson.M{"_id": roundID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRoundOrder sets the order of one embedded round.
func (s *Store) SetRoundOrder(ctx context.Context, id, roundID primitive.ObjectID, order int) error {
	return s.UpdateRound(ctx, id, roundID, bson.M{"order": order})
}

// SetRoundStatus transitions one round's status in a single document
// update. When the new status is "ongoing" the target round also becomes
// the current round and every other round loses the flag, all atomically
// via array filters. Completed and cancelled rounds always clear their
// own current flag.
func (s *Store) SetRoundStatus(ctx context.Context, id, roundID primitive.ObjectID, status string) error {
	set := bson.M{
		"rounds.$[target].status": status,
		"updated_at":              time.Now().UTC(),
	}
	filters := []interface{}{
		bson.M{"target._id": roundID},
	}

	if status == models.RoundStatusOngoing {
		set["rounds.$[target].current_round"] = true
		set["rounds.$[others].current_round"] = false
		filters = append(filters, bson.M{"others._id": bson.M{"$ne": roundID}})
	} else {
		set["rounds.$[target].current_round"] = false
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "rounds._id": roundID},
		bson.M{"$set": set},
		options.Update().SetArrayFilters(options.ArrayFilters{Filters: filters}),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
