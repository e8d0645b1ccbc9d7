// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureHackathons(ctx, db); err != nil {
		problems = append(problems, "hackathons: "+err.Error())
	}
	if err := ensureTeams(ctx, db); err != nil {
		problems = append(problems, "teams: "+err.Error())
	}
	if err := ensureJoinRequests(ctx, db); err != nil {
		problems = append(problems, "join_requests: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// Name alignment: if the name differs, drop & recreate with the desired name.
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("name", desiredName),
						zap.String("keys", desiredSig),
						zap.String("took", time.Since(start).String()))
					continue
				}

				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Bool("unique", ex.Unique != nil && *ex.Unique),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			if isOptionsConflictErr(err) {
				// An index with these keys exists under another name; reconcile it.
				if reconciled := reconcileConflict(ctx, coll, m, desiredSig, desiredUnique); reconciled == nil {
					continue
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, reconciled))
					continue
				}
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("created_name", created),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// reconcileConflict handles IndexOptionsConflict: find the existing index
// with the same keys, reuse it when options match, otherwise drop and
// recreate with the desired options.
func reconcileConflict(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel, desiredSig string, desiredUnique *bool) error {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return err
	}
	var match *existingIndex
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if keySig(idx.Key) == desiredSig {
			match = &idx
			break
		}
	}
	cur.Close(ctx)
	if match == nil {
		return errors.New("IndexOptionsConflict but no index with matching keys found")
	}

	if sameBoolPtr(desiredUnique, match.Unique) {
		zap.L().Info("reusing existing index (post-conflict)",
			zap.String("collection", coll.Name()),
			zap.String("name", match.Name),
			zap.String("keys", desiredSig))
		return nil
	}

	if _, err := coll.Indexes().DropOne(ctx, match.Name); err != nil {
		return fmt.Errorf("drop conflicting index %s: %w", match.Name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
			return errors.New("cannot create unique index (duplicates present)")
		}
		return err
	}
	zap.L().Info("index dropped and recreated (post-conflict)",
		zap.String("collection", coll.Name()),
		zap.String("keys", desiredSig))
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Username lookups. Sparse: usernames are optional, and omitted
		// ones must not collide on the missing key.
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_username"),
		},
		// Name prefix search + stable sort for people pickers
		{
			Keys: bson.D{
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_fullnameci_id"),
		},
		// Pending-invitation token lookups on accept links
		{
			Keys:    bson.D{{Key: "coordinator_for.invitation_token", Value: 1}},
			Options: options.Index().SetName("idx_users_coord_token"),
		},
		{
			Keys:    bson.D{{Key: "judge_for.invitation_token", Value: 1}},
			Options: options.Index().SetName("idx_users_judge_token"),
		},
	})
}

func ensureHackathons(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("hackathons")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Public URLs resolve by slug
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_hackathons_slug"),
		},
		// Organizer dashboard
		{
			Keys:    bson.D{{Key: "organizer_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_hackathons_organizer_created"),
		},
		// Browse pages: status filter + start date sort + stable tiebreak
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "start_date", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_hackathons_status_start__id"),
		},
		// Title prefix search
		{
			Keys:    bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_hackathons_titleci__id"),
		},
		// Coordinator membership lookups
		{
			Keys:    bson.D{{Key: "coordinators.user_id", Value: 1}},
			Options: options.Index().SetName("idx_hackathons_coordinators_user"),
		},
		// Judge membership lookups
		{
			Keys:    bson.D{{Key: "judges.user_id", Value: 1}},
			Options: options.Index().SetName("idx_hackathons_judges_user"),
		},
	})
}

func ensureTeams(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("teams")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// No duplicate team names inside the same hackathon (case-folded via name_ci)
		{
			Keys:    bson.D{{Key: "hackathon_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_teams_hackathon_nameci"),
		},
		// A user leads at most one team per hackathon
		{
			Keys:    bson.D{{Key: "hackathon_id", Value: 1}, {Key: "leader_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_teams_hackathon_leader"),
		},
		// Roster pages: registration status filter + stable sort
		{
			Keys: bson.D{
				{Key: "hackathon_id", Value: 1},
				{Key: "registration_status", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_teams_hackathon_regstatus_nameci__id"),
		},
		// Membership lookups: find the teams a user belongs to
		{
			Keys:    bson.D{{Key: "members.user_id", Value: 1}, {Key: "hackathon_id", Value: 1}},
			Options: options.Index().SetName("idx_teams_members_user_hackathon"),
		},
	})
}

func ensureJoinRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("join_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending request per (team, user). Resolved requests
		// fall out of the partial index so users can re-request later.
		{
			Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}).
				SetName("uniq_joinreq_team_user_pending"),
		},
		// Leader inbox: pending requests for a team, oldest first
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_joinreq_team_status_created"),
		},
		// Cascade target: a user's pending requests across a hackathon
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "hackathon_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_joinreq_user_hackathon_status"),
		},
	})
}
