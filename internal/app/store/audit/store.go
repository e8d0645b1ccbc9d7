// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryRegistration = "registration"
	CategoryJudging      = "judging"
	CategoryEventDay     = "event_day"
	CategoryLifecycle    = "lifecycle"
)

// Registration event types
const (
	EventTeamRegistered = "team_registered"
	EventTeamConfirmed  = "team_confirmed"
	EventTeamApproved   = "team_approved"
	EventTeamRejected   = "team_rejected"
	EventTeamWithdrawn  = "team_withdrawn"
)

// Judging event types
const (
	EventSubmissionReceived = "submission_received"
	EventScoreRecorded      = "score_recorded"
	EventTeamEliminated     = "team_eliminated"
)

// Event-day event types
const (
	EventTeamCheckedIn   = "team_checked_in"
	EventMemberCheckedIn = "member_checked_in"
)

// Lifecycle event types
const (
	EventHackathonStatusChanged = "hackathon_status_changed"
	EventRoundStatusChanged     = "round_status_changed"
)

// Event is one audit trail entry. Every entry is scoped to a hackathon;
// team and actor are set where they apply.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp   time.Time           `bson:"timestamp"`
	HackathonID primitive.ObjectID  `bson:"hackathon_id"`
	TeamID      *primitive.ObjectID `bson:"team_id,omitempty"`
	ActorID     *primitive.ObjectID `bson:"actor_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	HackathonID *primitive.ObjectID
	TeamID      *primitive.ObjectID
	ActorID     *primitive.ObjectID
	Category    string
	EventType   string
	StartTime   *time.Time
	EndTime     *time.Time
	Limit       int64
	Offset      int64
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.HackathonID != nil {
		q["hackathon_id"] = f.HackathonID
	}
	if f.TeamID != nil {
		q["team_id"] = f.TeamID
	}
	if f.ActorID != nil {
		q["actor_id"] = f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Query by time range (most recent first)
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		// Query by hackathon
		{
			Keys: bson.D{
				{Key: "hackathon_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		// Query by team
		{
			Keys: bson.D{
				{Key: "team_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		// Query by event type
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByTeam retrieves recent audit events for a specific team.
func (s *Store) GetByTeam(ctx context.Context, teamID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		TeamID: &teamID,
		Limit:  limit,
	})
}

// GetRecent retrieves the most recent audit events for a hackathon.
func (s *Store) GetRecent(ctx context.Context, hackathonID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		HackathonID: &hackathonID,
		Limit:       limit,
	})
}
