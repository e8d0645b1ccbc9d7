package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/hackhub/internal/app/store/audit"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hackathonID := primitive.NewObjectID()
	teamID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()
	event := audit.Event{
		Category:    audit.CategoryRegistration,
		EventType:   audit.EventTeamApproved,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByTeam(ctx, teamID, 10)
	if err != nil {
		t.Fatalf("GetByTeam failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.ID.IsZero() {
		t.Error("expected auto-generated ID")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected auto-generated timestamp")
	}
	if got.HackathonID != hackathonID {
		t.Errorf("hackathon_id: got %s, want %s", got.HackathonID.Hex(), hackathonID.Hex())
	}
	if got.ActorID == nil || *got.ActorID != actorID {
		t.Errorf("actor_id: got %v, want %s", got.ActorID, actorID.Hex())
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hackA := primitive.NewObjectID()
	hackB := primitive.NewObjectID()
	teamA := primitive.NewObjectID()
	organizer := primitive.NewObjectID()
	judge := primitive.NewObjectID()

	seed := []audit.Event{
		{Category: audit.CategoryRegistration, EventType: audit.EventTeamRegistered, HackathonID: hackA, TeamID: &teamA, ActorID: &organizer},
		{Category: audit.CategoryRegistration, EventType: audit.EventTeamApproved, HackathonID: hackA, TeamID: &teamA, ActorID: &organizer},
		{Category: audit.CategoryJudging, EventType: audit.EventScoreRecorded, HackathonID: hackA, TeamID: &teamA, ActorID: &judge},
		{Category: audit.CategoryRegistration, EventType: audit.EventTeamRegistered, HackathonID: hackB, ActorID: &organizer},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	byHack, err := store.Query(ctx, audit.QueryFilter{HackathonID: &hackA})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byHack) != 3 {
		t.Errorf("hackathon filter: got %d events, want 3", len(byHack))
	}

	byCategory, err := store.Query(ctx, audit.QueryFilter{HackathonID: &hackA, Category: audit.CategoryJudging})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].EventType != audit.EventScoreRecorded {
		t.Errorf("category filter: %+v", byCategory)
	}

	byActor, err := store.Query(ctx, audit.QueryFilter{ActorID: &judge})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byActor) != 1 {
		t.Errorf("actor filter: got %d events, want 1", len(byActor))
	}

	byType, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventTeamRegistered})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("event type filter: got %d events, want 2", len(byType))
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{HackathonID: &hackA})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count: got %d, want 3", n)
	}
}

func TestStore_Query_TimeRangeAndOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hackathonID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		err := store.Log(ctx, audit.Event{
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Category:    audit.CategoryEventDay,
			EventType:   audit.EventTeamCheckedIn,
			HackathonID: hackathonID,
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	// Newest first.
	all, err := store.GetRecent(ctx, hackathonID, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if !all[0].Timestamp.After(all[2].Timestamp) {
		t.Error("expected events sorted newest first")
	}

	cutoff := base.Add(90 * time.Minute)
	recent, err := store.Query(ctx, audit.QueryFilter{HackathonID: &hackathonID, StartTime: &cutoff})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("time range filter: got %d events, want 1", len(recent))
	}
}

func TestStore_Query_LimitAndOffset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hackathonID := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		err := store.Log(ctx, audit.Event{
			Category:    audit.CategoryRegistration,
			EventType:   audit.EventTeamRegistered,
			HackathonID: hackathonID,
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	page, err := store.Query(ctx, audit.QueryFilter{HackathonID: &hackathonID, Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("limit: got %d events, want 2", len(page))
	}

	rest, err := store.Query(ctx, audit.QueryFilter{HackathonID: &hackathonID, Limit: 10, Offset: 4})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("offset: got %d events, want 1", len(rest))
	}
}

func TestStore_EnsureIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	// Running twice must be idempotent.
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes second run failed: %v", err)
	}
}
