package userstore_test

import (
	"testing"
	"time"

	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/indexes"
	"github.com/dalemusser/hackhub/internal/app/system/token"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName:    "  Ada Lovelace ",
		Email:       "Ada@Example.COM",
		Institution: "Analytical U",
		Roles:       []string{"participant"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.FullName != "Ada Lovelace" {
		t.Errorf("full_name: got %q, want %q", created.FullName, "Ada Lovelace")
	}
	if created.Email != "ada@example.com" {
		t.Errorf("email: got %q, want lowered", created.Email)
	}
	if created.Status != models.UserStatusActive {
		t.Errorf("status: got %q, want active", created.Status)
	}

	got, err := store.GetByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail returned wrong user")
	}

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); err != userstore.ErrNotFound {
		t.Errorf("missing user: got %v, want ErrNotFound", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	u := models.User{FullName: "First", Email: "dup@example.com"}
	if _, err := store.Create(ctx, u); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	u.FullName = "Second"
	if _, err := store.Create(ctx, u); err != userstore.ErrDuplicateEmail {
		t.Errorf("second Create: got %v, want ErrDuplicateEmail", err)
	}
}

func TestCoordinatorInvitationLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, err := store.Create(ctx, models.User{FullName: "Coord", Email: "coord@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hackID := primitive.NewObjectID()
	tok, err := token.New()
	if err != nil {
		t.Fatalf("token.New failed: %v", err)
	}

	inv := models.CoordinatorInvitation{
		HackathonID:     hackID,
		Permissions:     models.DefaultCoordinatorPermissions(),
		InvitedByID:     primitive.NewObjectID(),
		InvitedAt:       time.Now().UTC(),
		Status:          models.InviteStatusPending,
		InvitationToken: tok,
	}
	if err := store.AddCoordinatorInvitation(ctx, user.ID, inv); err != nil {
		t.Fatalf("AddCoordinatorInvitation failed: %v", err)
	}

	byToken, err := store.GetByCoordinatorToken(ctx, tok)
	if err != nil {
		t.Fatalf("GetByCoordinatorToken failed: %v", err)
	}
	if byToken.ID != user.ID {
		t.Error("token lookup returned wrong user")
	}

	// Resending swaps the token.
	tok2, err := token.New()
	if err != nil {
		t.Fatalf("token.New failed: %v", err)
	}
	if err := store.RefreshCoordinatorInvitation(ctx, user.ID, hackID, tok2, time.Now().UTC()); err != nil {
		t.Fatalf("RefreshCoordinatorInvitation failed: %v", err)
	}
	if _, err := store.GetByCoordinatorToken(ctx, tok); err != userstore.ErrNotFound {
		t.Errorf("old token still resolves: got %v, want ErrNotFound", err)
	}
	if _, err := store.GetByCoordinatorToken(ctx, tok2); err != nil {
		t.Errorf("new token lookup failed: %v", err)
	}

	if err := store.AcceptCoordinatorInvitation(ctx, user.ID, hackID, time.Now().UTC()); err != nil {
		t.Fatalf("AcceptCoordinatorInvitation failed: %v", err)
	}
	// Accepting twice finds no pending invitation.
	if err := store.AcceptCoordinatorInvitation(ctx, user.ID, hackID, time.Now().UTC()); err != userstore.ErrNotFound {
		t.Errorf("double accept: got %v, want ErrNotFound", err)
	}

	got, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.CoordinatorFor) != 1 || got.CoordinatorFor[0].Status != models.InviteStatusAccepted {
		t.Fatal("invitation did not move to accepted")
	}
	if got.CoordinatorFor[0].AcceptedAt == nil {
		t.Error("accepted_at not stamped")
	}

	// Cancel only touches pending invitations, so the accepted one stays.
	removed, err := store.RemovePendingCoordinatorInvitation(ctx, user.ID, hackID)
	if err != nil {
		t.Fatalf("RemovePendingCoordinatorInvitation failed: %v", err)
	}
	if removed {
		t.Error("cancel removed an accepted invitation")
	}

	// Removal drops it regardless of status.
	if err := store.RemoveCoordinatorInvitation(ctx, user.ID, hackID); err != nil {
		t.Fatalf("RemoveCoordinatorInvitation failed: %v", err)
	}
	got, err = store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.CoordinatorFor) != 0 {
		t.Errorf("coordinator_for: got %d entries, want 0", len(got.CoordinatorFor))
	}
}

func TestAcceptCoordinatorInvitation_BindsToOneHackathon(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, err := store.Create(ctx, models.User{FullName: "Busy", Email: "busy@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Two pending invitations on the same record; accepting one must
	// not touch the other.
	hackA := primitive.NewObjectID()
	hackB := primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{hackA, hackB} {
		tok, _ := token.New()
		if err := store.AddCoordinatorInvitation(ctx, user.ID, models.CoordinatorInvitation{
			HackathonID:     id,
			Permissions:     models.DefaultCoordinatorPermissions(),
			InvitedByID:     primitive.NewObjectID(),
			InvitedAt:       time.Now().UTC(),
			Status:          models.InviteStatusPending,
			InvitationToken: tok,
		}); err != nil {
			t.Fatalf("AddCoordinatorInvitation failed: %v", err)
		}
	}

	if err := store.AcceptCoordinatorInvitation(ctx, user.ID, hackB, time.Now().UTC()); err != nil {
		t.Fatalf("AcceptCoordinatorInvitation failed: %v", err)
	}

	got, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	a := got.CoordinatorInvitationFor(hackA)
	if a == nil || a.Status != models.InviteStatusPending || a.InvitationToken == "" {
		t.Errorf("first invitation disturbed: %+v", a)
	}
	b := got.CoordinatorInvitationFor(hackB)
	if b == nil || b.Status != models.InviteStatusAccepted {
		t.Errorf("second invitation not accepted: %+v", b)
	}

	// Same guarantee when refreshing a token.
	tok, _ := token.New()
	if err := store.RefreshCoordinatorInvitation(ctx, user.ID, hackA, tok, time.Now().UTC()); err != nil {
		t.Fatalf("RefreshCoordinatorInvitation failed: %v", err)
	}
	got, err = store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CoordinatorInvitationFor(hackA).InvitationToken != tok {
		t.Error("refresh did not land on the targeted invitation")
	}
	if got.CoordinatorInvitationFor(hackB).Status != models.InviteStatusAccepted {
		t.Error("refresh disturbed the accepted invitation")
	}
}

func TestSetCoordinatorPermissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, err := store.Create(ctx, models.User{FullName: "Coord", Email: "perm@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hackID := primitive.NewObjectID()
	if err := store.AddCoordinatorInvitation(ctx, user.ID, models.CoordinatorInvitation{
		HackathonID: hackID,
		Permissions: models.DefaultCoordinatorPermissions(),
		InvitedByID: primitive.NewObjectID(),
		InvitedAt:   time.Now().UTC(),
		Status:      models.InviteStatusPending,
	}); err != nil {
		t.Fatalf("AddCoordinatorInvitation failed: %v", err)
	}

	perms := models.DefaultCoordinatorPermissions()
	perms.CanAssignTables = true
	if err := store.SetCoordinatorPermissions(ctx, user.ID, hackID, perms); err != nil {
		t.Fatalf("SetCoordinatorPermissions failed: %v", err)
	}

	got, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.CoordinatorFor[0].Permissions.CanAssignTables {
		t.Error("permission update did not stick")
	}
}

func TestJudgeInvitationLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, err := store.Create(ctx, models.User{FullName: "Judy", Email: "judge@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hackID := primitive.NewObjectID()
	tok, err := token.New()
	if err != nil {
		t.Fatalf("token.New failed: %v", err)
	}

	if err := store.AddJudgeInvitation(ctx, user.ID, models.JudgeInvitation{
		HackathonID:     hackID,
		InvitedByID:     primitive.NewObjectID(),
		InvitedAt:       time.Now().UTC(),
		Status:          models.InviteStatusPending,
		InvitationToken: tok,
	}); err != nil {
		t.Fatalf("AddJudgeInvitation failed: %v", err)
	}

	byToken, err := store.GetByJudgeToken(ctx, tok)
	if err != nil {
		t.Fatalf("GetByJudgeToken failed: %v", err)
	}
	if byToken.ID != user.ID {
		t.Error("token lookup returned wrong user")
	}

	if err := store.AcceptJudgeInvitation(ctx, user.ID, hackID, time.Now().UTC()); err != nil {
		t.Fatalf("AcceptJudgeInvitation failed: %v", err)
	}

	got, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.JudgeFor) != 1 || got.JudgeFor[0].Status != models.InviteStatusAccepted {
		t.Fatal("judge invitation did not move to accepted")
	}

	// Pending removal after acceptance is a no-op.
	removed, err := store.RemovePendingJudgeInvitation(ctx, user.ID, hackID)
	if err != nil {
		t.Fatalf("RemovePendingJudgeInvitation failed: %v", err)
	}
	if removed {
		t.Error("cancel removed an accepted judge invitation")
	}

	if err := store.RemoveJudgeInvitation(ctx, user.ID, hackID); err != nil {
		t.Fatalf("RemoveJudgeInvitation failed: %v", err)
	}
}

func TestAddRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, err := store.Create(ctx, models.User{FullName: "Role", Email: "role@example.com", Roles: []string{"participant"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.AddRole(ctx, user.ID, "coordinator"); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}
	// addToSet keeps roles unique.
	if err := store.AddRole(ctx, user.ID, "coordinator"); err != nil {
		t.Fatalf("AddRole repeat failed: %v", err)
	}

	got, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Roles) != 2 {
		t.Errorf("roles: got %v, want participant+coordinator", got.Roles)
	}
}

func TestExpireStaleInvitations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hackathonID := primitive.NewObjectID()
	inviter := primitive.NewObjectID()
	now := time.Now().UTC()

	stale, err := store.Create(ctx, models.User{FullName: "Stale", Email: "stale@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	staleTok, _ := token.New()
	if err := store.AddJudgeInvitation(ctx, stale.ID, models.JudgeInvitation{
		HackathonID:     hackathonID,
		InvitedByID:     inviter,
		InvitedAt:       now.Add(-30 * 24 * time.Hour),
		Status:          models.InviteStatusPending,
		InvitationToken: staleTok,
	}); err != nil {
		t.Fatalf("AddJudgeInvitation failed: %v", err)
	}

	fresh, err := store.Create(ctx, models.User{FullName: "Fresh", Email: "fresh@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	freshTok, _ := token.New()
	if err := store.AddCoordinatorInvitation(ctx, fresh.ID, models.CoordinatorInvitation{
		HackathonID:     hackathonID,
		InvitedByID:     inviter,
		InvitedAt:       now.Add(-time.Hour),
		Status:          models.InviteStatusPending,
		InvitationToken: freshTok,
	}); err != nil {
		t.Fatalf("AddCoordinatorInvitation failed: %v", err)
	}

	count, err := store.ExpireStaleInvitations(ctx, now.Add(-14*24*time.Hour))
	if err != nil {
		t.Fatalf("ExpireStaleInvitations failed: %v", err)
	}
	if count != 1 {
		t.Errorf("modified count: got %d, want 1", count)
	}

	got, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	inv := got.JudgeInvitationFor(hackathonID)
	if inv == nil {
		t.Fatal("expected judge invitation to remain on the record")
	}
	if inv.Status != models.InviteStatusExpired {
		t.Errorf("stale invitation status: got %q, want expired", inv.Status)
	}
	if inv.InvitationToken != "" {
		t.Errorf("stale invitation kept its token")
	}
	if _, err := store.GetByJudgeToken(ctx, staleTok); err != userstore.ErrNotFound {
		t.Errorf("expired token lookup: got %v, want ErrNotFound", err)
	}

	got, err = store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	cinv := got.CoordinatorInvitationFor(hackathonID)
	if cinv == nil || cinv.Status != models.InviteStatusPending {
		t.Errorf("fresh invitation should stay pending, got %+v", cinv)
	}
}
