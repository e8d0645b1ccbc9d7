package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/validators"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call
	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}

	// Second call should also succeed (idempotent)
	err = validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expectedCollections := []string{
		"users",
		"hackathons",
		"teams",
		"join_requests",
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}

	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}

	for _, expected := range expectedCollections {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestUsersValidator_RequiredFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Try to insert user without required fields - should fail
	_, err = db.Collection("users").InsertOne(ctx, bson.M{
		"username": "test",
	})
	if err == nil {
		t.Error("expected validation error when inserting user without required fields")
	}
}

func TestUsersValidator_ValidUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Insert valid user - should succeed
	_, err = db.Collection("users").InsertOne(ctx, bson.M{
		"full_name":    "Test User",
		"full_name_ci": "test user",
		"email":        "test@example.com",
		"username":     "testuser",
		"status":       "active",
		"roles":        bson.A{"participant"},
	})
	if err != nil {
		t.Errorf("Insert valid user failed: %v", err)
	}
}

func TestUsersValidator_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Try to insert user with invalid role - should fail
	_, err = db.Collection("users").InsertOne(ctx, bson.M{
		"full_name":    "Test User",
		"full_name_ci": "test user",
		"email":        "bad-role@example.com",
		"status":       "active",
		"roles":        bson.A{"invalid_role"},
	})
	if err == nil {
		t.Error("expected validation error when inserting user with invalid role")
	}
}

func TestUsersValidator_InvalidStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Try to insert user with invalid status - should fail
	_, err = db.Collection("users").InsertOne(ctx, bson.M{
		"full_name":    "Test User",
		"full_name_ci": "test user",
		"email":        "bad-status@example.com",
		"status":       "invalid_status",
	})
	if err == nil {
		t.Error("expected validation error when inserting user with invalid status")
	}
}

func TestHackathonsValidator_RequiredFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Try to insert hackathon without required fields - should fail
	_, err = db.Collection("hackathons").InsertOne(ctx, bson.M{
		"theme": "AI",
	})
	if err == nil {
		t.Error("expected validation error when inserting hackathon without required fields")
	}
}

func TestHackathonsValidator_ValidHackathon(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Insert valid hackathon - should succeed
	_, err = db.Collection("hackathons").InsertOne(ctx, bson.M{
		"title":        "Spring Hack",
		"title_ci":     "spring hack",
		"slug":         "spring-hack",
		"organizer_id": primitive.NewObjectID(),
		"status":       "draft",
		"max_teams":    int32(100),
	})
	if err != nil {
		t.Errorf("Insert valid hackathon failed: %v", err)
	}
}

func TestHackathonsValidator_InvalidStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err = db.Collection("hackathons").InsertOne(ctx, bson.M{
		"title":        "Spring Hack",
		"title_ci":     "spring hack",
		"slug":         "spring-hack-2",
		"organizer_id": primitive.NewObjectID(),
		"status":       "not_a_status",
		"max_teams":    int32(100),
	})
	if err == nil {
		t.Error("expected validation error when inserting hackathon with invalid status")
	}
}

func TestHackathonsValidator_InvalidSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err = db.Collection("hackathons").InsertOne(ctx, bson.M{
		"title":        "Spring Hack",
		"title_ci":     "spring hack",
		"slug":         "Not A Slug!",
		"organizer_id": primitive.NewObjectID(),
		"status":       "draft",
		"max_teams":    int32(100),
	})
	if err == nil {
		t.Error("expected validation error when inserting hackathon with malformed slug")
	}
}

func TestTeamsValidator_RequiredFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Try to insert team without required fields - should fail
	_, err = db.Collection("teams").InsertOne(ctx, bson.M{
		"description": "A team",
	})
	if err == nil {
		t.Error("expected validation error when inserting team without required fields")
	}
}

func TestTeamsValidator_ValidTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	leaderID := primitive.NewObjectID()

	// Insert valid team - should succeed
	_, err = db.Collection("teams").InsertOne(ctx, bson.M{
		"hackathon_id":        primitive.NewObjectID(),
		"name":                "Byte Bandits",
		"name_ci":             "byte bandits",
		"leader_id":           leaderID,
		"registration_status": "pending",
		"submission_status":   "draft",
		"members": bson.A{
			bson.M{"user_id": leaderID, "role": "leader", "status": "active"},
		},
	})
	if err != nil {
		t.Errorf("Insert valid team failed: %v", err)
	}
}

func TestTeamsValidator_InvalidMemberStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	leaderID := primitive.NewObjectID()

	_, err = db.Collection("teams").InsertOne(ctx, bson.M{
		"hackathon_id":        primitive.NewObjectID(),
		"name":                "Byte Bandits",
		"name_ci":             "byte bandits",
		"leader_id":           leaderID,
		"registration_status": "pending",
		"submission_status":   "draft",
		"members": bson.A{
			bson.M{"user_id": leaderID, "role": "leader", "status": "ghost"},
		},
	})
	if err == nil {
		t.Error("expected validation error when inserting team member with invalid status")
	}
}

func TestJoinRequestsValidator_RequiredFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Try to insert join request without required fields - should fail
	_, err = db.Collection("join_requests").InsertOne(ctx, bson.M{
		"message": "let me in",
	})
	if err == nil {
		t.Error("expected validation error when inserting join_request without required fields")
	}
}

func TestJoinRequestsValidator_ValidRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := validators.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Insert valid join request - should succeed
	_, err = db.Collection("join_requests").InsertOne(ctx, bson.M{
		"team_id":      primitive.NewObjectID(),
		"hackathon_id": primitive.NewObjectID(),
		"user_id":      primitive.NewObjectID(),
		"status":       "pending",
		"created_at":   time.Now(),
	})
	if err != nil {
		t.Errorf("Insert valid join_request failed: %v", err)
	}
}
