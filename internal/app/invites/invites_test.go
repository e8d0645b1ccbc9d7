package invites_test

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/invites"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/hackhub/internal/testutil"
)

type env struct {
	db         *mongo.Database
	svc        *invites.Service
	users      *userstore.Store
	hackathons *hackathonstore.Store
	teams      *teamstore.Store
	organizer  authz.Actor
	hackathon  models.Hackathon
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	hackathons := hackathonstore.New(db)

	org, err := users.Create(ctx, models.User{
		FullName: "Olive Organizer",
		Email:    "olive@example.com",
		Roles:    []string{authz.RoleOrganizer},
	})
	if err != nil {
		t.Fatalf("create organizer: %v", err)
	}

	now := time.Now().UTC()
	h, err := hackathons.Create(ctx, models.Hackathon{
		Title:             "Test Hack",
		Slug:              "test-hack",
		OrganizerID:       org.ID,
		RegistrationStart: now.Add(-time.Hour),
		RegistrationEnd:   now.Add(24 * time.Hour),
		StartDate:         now.Add(48 * time.Hour),
		EndDate:           now.Add(72 * time.Hour),
		MaxTeams:          10,
		Status:            models.HackathonStatusRegistrationOpen,
	})
	if err != nil {
		t.Fatalf("create hackathon: %v", err)
	}

	return &env{
		db:         db,
		svc:        invites.New(db, nil, "https://hackhub.test", "HackHub", zap.NewNop()),
		users:      users,
		hackathons: hackathons,
		teams:      teamstore.New(db),
		organizer:  authz.Actor{ID: org.ID, Name: org.FullName, Roles: org.Roles},
		hackathon:  h,
	}
}

func (e *env) createUser(t *testing.T, name, email string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := e.users.Create(ctx, models.User{FullName: name, Email: email})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func (e *env) coordinatorToken(t *testing.T, userID primitive.ObjectID) string {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	inv := u.CoordinatorInvitationFor(e.hackathon.ID)
	if inv == nil || inv.InvitationToken == "" {
		t.Fatal("no coordinator invitation token stored")
	}
	return inv.InvitationToken
}

func TestInviteCoordinator_FullLifecycle(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Cora Coordinator", "cora@example.com")

	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("InviteCoordinator failed: %v", err)
	}

	// Inviting again while pending conflicts and flags the duplicate.
	_, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil)
	if !apperr.IsConflict(err) {
		t.Fatalf("repeat invite: got %v, want conflict", err)
	}
	if d := apperr.DetailOf(err); d == nil || d["already_invited"] != true {
		t.Error("repeat invite missing already_invited detail")
	}

	tok := e.coordinatorToken(t, invitee.ID)
	h, err := e.svc.AcceptCoordinatorInvitation(ctx, tok)
	if err != nil {
		t.Fatalf("AcceptCoordinatorInvitation failed: %v", err)
	}
	if h.CoordinatorEntry(invitee.ID) == nil {
		t.Fatal("hackathon entry missing after acceptance")
	}

	// The token is single use.
	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, tok); !apperr.IsNotFound(err) {
		t.Errorf("token reuse: got %v, want not found", err)
	}

	// The user gains the coordinator role and the invitation flips.
	u, err := e.users.GetByID(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !u.HasRole(authz.RoleCoordinator) {
		t.Error("coordinator role not granted")
	}
	if inv := u.CoordinatorInvitationFor(e.hackathon.ID); inv == nil || inv.Status != models.InviteStatusAccepted {
		t.Error("invitation not accepted on user record")
	}

	// Accepted coordinators show up in MyCoordinations.
	mine, err := e.svc.MyCoordinations(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("MyCoordinations failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != e.hackathon.ID {
		t.Errorf("MyCoordinations: got %d entries", len(mine))
	}
}

func TestInviteCoordinator_ParticipantExclusion(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	player := e.createUser(t, "Pat Player", "pat@example.com")
	if _, err := e.teams.Create(ctx, models.Team{
		HackathonID: e.hackathon.ID,
		Name:        "Pat's Team",
		LeaderID:    player.ID,
		Members: []models.TeamMember{{
			UserID:   player.ID,
			Role:     models.MemberRoleLeader,
			Status:   models.MemberStatusActive,
			JoinedAt: time.Now().UTC(),
		}},
	}); err != nil {
		t.Fatalf("create team: %v", err)
	}

	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, player.Email, nil); !apperr.IsConflict(err) {
		t.Errorf("inviting active participant: got %v, want conflict", err)
	}
	if _, err := e.svc.InviteJudge(ctx, e.organizer, e.hackathon.ID, player.Email); !apperr.IsConflict(err) {
		t.Errorf("inviting active participant as judge: got %v, want conflict", err)
	}
}

func TestAcceptInvitation_ParticipantExclusion(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cora := e.createUser(t, "Cora", "cora@example.com")
	judy := e.createUser(t, "Judy", "judy@example.com")

	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, cora.Email, nil); err != nil {
		t.Fatalf("InviteCoordinator failed: %v", err)
	}
	if _, err := e.svc.InviteJudge(ctx, e.organizer, e.hackathon.ID, judy.Email); err != nil {
		t.Fatalf("InviteJudge failed: %v", err)
	}

	// Both invitees join teams after the invitations go out.
	for i, u := range []models.User{cora, judy} {
		if _, err := e.teams.Create(ctx, models.Team{
			HackathonID: e.hackathon.ID,
			Name:        []string{"Cora's Team", "Judy's Team"}[i],
			LeaderID:    u.ID,
			Members: []models.TeamMember{{
				UserID:   u.ID,
				Role:     models.MemberRoleLeader,
				Status:   models.MemberStatusActive,
				JoinedAt: time.Now().UTC(),
			}},
		}); err != nil {
			t.Fatalf("create team: %v", err)
		}
	}

	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, e.coordinatorToken(t, cora.ID)); !apperr.IsConflict(err) {
		t.Errorf("coordinator accept as participant: got %v, want conflict", err)
	}

	u, err := e.users.GetByID(ctx, judy.ID)
	if err != nil {
		t.Fatalf("load judge: %v", err)
	}
	tok := u.JudgeInvitationFor(e.hackathon.ID).InvitationToken
	if _, err := e.svc.AcceptJudgeInvitation(ctx, tok); !apperr.IsConflict(err) {
		t.Errorf("judge accept as participant: got %v, want conflict", err)
	}
}

func TestInviteCoordinator_Authorization(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Cora", "cora@example.com")
	rando := authz.Actor{ID: primitive.NewObjectID(), Roles: []string{authz.RoleParticipant}}

	if _, err := e.svc.InviteCoordinator(ctx, rando, e.hackathon.ID, invitee.Email, nil); !apperr.IsForbidden(err) {
		t.Errorf("non-organizer invite: got %v, want forbidden", err)
	}
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, "ghost@example.com", nil); !apperr.IsNotFound(err) {
		t.Errorf("unknown email: got %v, want not found", err)
	}
}

func TestResendRegeneratesToken(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Cora", "cora@example.com")
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("InviteCoordinator failed: %v", err)
	}
	oldTok := e.coordinatorToken(t, invitee.ID)

	if err := e.svc.ResendCoordinatorInvite(ctx, e.organizer, e.hackathon.ID, invitee.ID); err != nil {
		t.Fatalf("ResendCoordinatorInvite failed: %v", err)
	}
	newTok := e.coordinatorToken(t, invitee.ID)
	if newTok == oldTok {
		t.Fatal("resend did not regenerate the token")
	}

	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, oldTok); !apperr.IsNotFound(err) {
		t.Errorf("old token: got %v, want not found", err)
	}
	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, newTok); err != nil {
		t.Errorf("new token failed: %v", err)
	}

	// Accepted invitations cannot be resent.
	if err := e.svc.ResendCoordinatorInvite(ctx, e.organizer, e.hackathon.ID, invitee.ID); !apperr.IsConflict(err) {
		t.Errorf("resend after accept: got %v, want conflict", err)
	}
}

func TestCancelOnlyPending(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Cora", "cora@example.com")
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("InviteCoordinator failed: %v", err)
	}

	if err := e.svc.CancelCoordinatorInvite(ctx, e.organizer, e.hackathon.ID, invitee.ID); err != nil {
		t.Fatalf("CancelCoordinatorInvite failed: %v", err)
	}
	// Cancelled invitations cannot be accepted or cancelled again.
	if err := e.svc.CancelCoordinatorInvite(ctx, e.organizer, e.hackathon.ID, invitee.ID); !apperr.IsNotFound(err) {
		t.Errorf("double cancel: got %v, want not found", err)
	}

	// Once accepted, cancel refuses but removal works.
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("re-invite failed: %v", err)
	}
	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, e.coordinatorToken(t, invitee.ID)); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if err := e.svc.CancelCoordinatorInvite(ctx, e.organizer, e.hackathon.ID, invitee.ID); !apperr.IsNotFound(err) {
		t.Errorf("cancel accepted: got %v, want not found", err)
	}
}

func TestRemoveCoordinatorAllowsReinvite(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Cora", "cora@example.com")
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("InviteCoordinator failed: %v", err)
	}
	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, e.coordinatorToken(t, invitee.ID)); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := e.svc.RemoveCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.ID); err != nil {
		t.Fatalf("RemoveCoordinator failed: %v", err)
	}

	h, err := e.hackathons.GetByID(ctx, e.hackathon.ID)
	if err != nil {
		t.Fatalf("load hackathon: %v", err)
	}
	if h.CoordinatorEntry(invitee.ID) != nil {
		t.Error("hackathon entry survived removal")
	}

	// A removed coordinator can go around again.
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("re-invite after removal failed: %v", err)
	}
	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, e.coordinatorToken(t, invitee.ID)); err != nil {
		t.Fatalf("re-accept after removal failed: %v", err)
	}
}

func TestUpdateCoordinatorPermissions_MergesBothCopies(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Cora", "cora@example.com")
	if _, err := e.svc.InviteCoordinator(ctx, e.organizer, e.hackathon.ID, invitee.Email, nil); err != nil {
		t.Fatalf("InviteCoordinator failed: %v", err)
	}
	if _, err := e.svc.AcceptCoordinatorInvitation(ctx, e.coordinatorToken(t, invitee.ID)); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	yes := true
	merged, err := e.svc.UpdateCoordinatorPermissions(ctx, e.organizer, e.hackathon.ID, invitee.ID, invites.PermissionPatch{
		CanEliminateTeams: &yes,
	})
	if err != nil {
		t.Fatalf("UpdateCoordinatorPermissions failed: %v", err)
	}
	if !merged.CanEliminateTeams {
		t.Error("patched flag not set")
	}
	// Untouched fields keep their defaults.
	if !merged.CanViewTeams || merged.CanAssignTables {
		t.Error("merge disturbed unpatched fields")
	}

	h, err := e.hackathons.GetByID(ctx, e.hackathon.ID)
	if err != nil {
		t.Fatalf("load hackathon: %v", err)
	}
	if !h.CoordinatorEntry(invitee.ID).Permissions.CanEliminateTeams {
		t.Error("hackathon copy not updated")
	}
	u, err := e.users.GetByID(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !u.CoordinatorInvitationFor(e.hackathon.ID).Permissions.CanEliminateTeams {
		t.Error("user copy not updated")
	}
}

func TestJudgeInvitation_SnapshotsProfile(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	judge, err := e.users.Create(ctx, models.User{
		FullName: "Judy Judge",
		Email:    "judy@example.com",
		Profile: models.UserProfile{
			Bio:    "Distributed systems researcher",
			Avatar: "https://example.com/judy.png",
			Skills: []string{"go", "databases"},
		},
	})
	if err != nil {
		t.Fatalf("create judge: %v", err)
	}

	if _, err := e.svc.InviteJudge(ctx, e.organizer, e.hackathon.ID, judge.Email); err != nil {
		t.Fatalf("InviteJudge failed: %v", err)
	}

	u, err := e.users.GetByID(ctx, judge.ID)
	if err != nil {
		t.Fatalf("load judge: %v", err)
	}
	tok := u.JudgeInvitationFor(e.hackathon.ID).InvitationToken
	h, err := e.svc.AcceptJudgeInvitation(ctx, tok)
	if err != nil {
		t.Fatalf("AcceptJudgeInvitation failed: %v", err)
	}

	var entry *models.Judge
	for i := range h.Judges {
		if h.Judges[i].UserID == judge.ID {
			entry = &h.Judges[i]
		}
	}
	if entry == nil {
		t.Fatal("judge entry missing")
	}
	if entry.Name != "Judy Judge" || entry.Bio != "Distributed systems researcher" {
		t.Error("profile snapshot incomplete")
	}
	if len(entry.Expertise) != 2 {
		t.Errorf("expertise: got %v", entry.Expertise)
	}

	// Round assignment restricts CanJudge.
	r, err := e.hackathons.AddRound(ctx, e.hackathon.ID, models.Round{Name: "Finals", Order: 1, Status: models.RoundStatusPending})
	if err != nil {
		t.Fatalf("AddRound failed: %v", err)
	}
	if err := e.svc.AssignJudgeRounds(ctx, e.organizer, e.hackathon.ID, judge.ID, []primitive.ObjectID{r.ID}); err != nil {
		t.Fatalf("AssignJudgeRounds failed: %v", err)
	}
	if err := e.svc.AssignJudgeRounds(ctx, e.organizer, e.hackathon.ID, judge.ID, []primitive.ObjectID{primitive.NewObjectID()}); !apperr.IsValidation(err) {
		t.Errorf("foreign round: got %v, want validation error", err)
	}

	roster, err := e.svc.ListJudges(ctx, e.organizer, e.hackathon.ID)
	if err != nil {
		t.Fatalf("ListJudges failed: %v", err)
	}
	if len(roster) != 1 || roster[0].Status != models.InviteStatusAccepted {
		t.Errorf("roster: got %d entries", len(roster))
	}
}

func TestInviteJudge_ExpiredReissue(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitee := e.createUser(t, "Jay Judge", "jay@example.com")

	if _, err := e.svc.InviteJudge(ctx, e.organizer, e.hackathon.ID, invitee.Email); err != nil {
		t.Fatalf("InviteJudge failed: %v", err)
	}

	// A second invite while the first is pending conflicts.
	if _, err := e.svc.InviteJudge(ctx, e.organizer, e.hackathon.ID, invitee.Email); !apperr.IsConflict(err) {
		t.Fatalf("pending re-invite: got %v, want conflict", err)
	}

	// Age the invitation past the cutoff and expire it.
	cutoff := time.Now().UTC().Add(time.Minute)
	if _, err := e.users.ExpireStaleInvitations(ctx, cutoff); err != nil {
		t.Fatalf("ExpireStaleInvitations failed: %v", err)
	}

	u, err := e.users.GetByID(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	old := u.JudgeInvitationFor(e.hackathon.ID)
	if old == nil || old.Status != models.InviteStatusExpired {
		t.Fatalf("invitation not expired: %+v", old)
	}

	// Re-inviting an expired user rotates a fresh pending token.
	if _, err := e.svc.InviteJudge(ctx, e.organizer, e.hackathon.ID, invitee.Email); err != nil {
		t.Fatalf("re-invite after expiry failed: %v", err)
	}
	u, err = e.users.GetByID(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	inv := u.JudgeInvitationFor(e.hackathon.ID)
	if inv == nil || inv.Status != models.InviteStatusPending {
		t.Fatalf("re-issued invitation not pending: %+v", inv)
	}
	if inv.InvitationToken == "" {
		t.Fatal("re-issued invitation has no token")
	}

	// The fresh token redeems normally.
	if _, err := e.svc.AcceptJudgeInvitation(ctx, inv.InvitationToken); err != nil {
		t.Fatalf("AcceptJudgeInvitation failed: %v", err)
	}
}
