package bootstrap

import (
	"testing"
	"time"

	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDB: db}

	if err := ensureAdmin(ctx, deps, "admin@test.com", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"email": "admin@test.com"}).Decode(&user)
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}

	if !user.HasRole(authz.RoleAdmin) {
		t.Errorf("expected admin role, got %v", user.Roles)
	}
	if user.Status != models.UserStatusActive {
		t.Errorf("expected status %q, got %q", models.UserStatusActive, user.Status)
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	existing := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   "Existing User",
		FullNameCI: text.Fold("Existing User"),
		Email:      "existing@test.com",
		Roles:      []string{authz.RoleOrganizer},
		Status:     models.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.Collection("users").InsertOne(ctx, existing); err != nil {
		t.Fatalf("failed to create existing user: %v", err)
	}

	deps := DBDeps{MongoDB: db}

	if err := ensureAdmin(ctx, deps, "existing@test.com", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}

	if !user.HasRole(authz.RoleAdmin) {
		t.Errorf("expected admin role after promotion, got %v", user.Roles)
	}
	if !user.HasRole(authz.RoleOrganizer) {
		t.Errorf("expected organizer role to survive promotion, got %v", user.Roles)
	}
}

func TestEnsureAdmin_AlreadyAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	existing := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   "Site Admin",
		FullNameCI: text.Fold("Site Admin"),
		Email:      "admin@test.com",
		Roles:      []string{authz.RoleAdmin},
		Status:     models.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.Collection("users").InsertOne(ctx, existing); err != nil {
		t.Fatalf("failed to create existing user: %v", err)
	}

	deps := DBDeps{MongoDB: db}

	if err := ensureAdmin(ctx, deps, "admin@test.com", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}

	if len(user.Roles) != 1 || user.Roles[0] != authz.RoleAdmin {
		t.Errorf("expected roles unchanged, got %v", user.Roles)
	}
}
