package hackathonpolicy_test

import (
	"testing"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func actor(roles ...string) authz.Actor {
	return authz.Actor{ID: primitive.NewObjectID(), Roles: roles}
}

func TestCanManage(t *testing.T) {
	organizer := actor(authz.RoleOrganizer)
	admin := actor(authz.RoleAdmin)
	stranger := actor(authz.RoleParticipant)

	h := &models.Hackathon{OrganizerID: organizer.ID}

	if !hackathonpolicy.CanManage(organizer, h) {
		t.Error("organizer should manage own hackathon")
	}
	if !hackathonpolicy.CanManage(admin, h) {
		t.Error("admin should manage any hackathon")
	}
	if hackathonpolicy.CanManage(stranger, h) {
		t.Error("participant should not manage")
	}
	if hackathonpolicy.CanManage(authz.Actor{}, h) {
		t.Error("anonymous should not manage")
	}
}

func TestCanView(t *testing.T) {
	organizer := actor(authz.RoleOrganizer)
	coord := actor(authz.RoleCoordinator)
	stranger := actor(authz.RoleParticipant)

	draft := &models.Hackathon{
		OrganizerID: organizer.ID,
		Status:      models.HackathonStatusDraft,
		IsPublic:    true,
		Coordinators: []models.Coordinator{
			{UserID: coord.ID, Permissions: models.DefaultCoordinatorPermissions()},
		},
	}

	// Drafts hide from the public even when flagged public.
	if hackathonpolicy.CanView(stranger, draft) {
		t.Error("stranger should not view a draft")
	}
	if hackathonpolicy.CanView(authz.Actor{}, draft) {
		t.Error("anonymous should not view a draft")
	}
	if !hackathonpolicy.CanView(organizer, draft) {
		t.Error("organizer should view own draft")
	}
	if !hackathonpolicy.CanView(coord, draft) {
		t.Error("coordinator should view the draft")
	}

	published := &models.Hackathon{
		OrganizerID: organizer.ID,
		Status:      models.HackathonStatusPublished,
		IsPublic:    true,
	}
	if !hackathonpolicy.CanView(authz.Actor{}, published) {
		t.Error("anonymous should view a published public hackathon")
	}

	private := &models.Hackathon{
		OrganizerID: organizer.ID,
		Status:      models.HackathonStatusPublished,
		IsPublic:    false,
	}
	if hackathonpolicy.CanView(stranger, private) {
		t.Error("stranger should not view a private hackathon")
	}
}

func TestHasPermission(t *testing.T) {
	organizer := actor(authz.RoleOrganizer)
	coord := actor(authz.RoleCoordinator)

	perms := models.DefaultCoordinatorPermissions()
	h := &models.Hackathon{
		OrganizerID: organizer.ID,
		Coordinators: []models.Coordinator{
			{UserID: coord.ID, Permissions: perms},
		},
	}

	// Organizer holds everything implicitly.
	if !hackathonpolicy.HasPermission(organizer, h, hackathonpolicy.PermEliminateTeams) {
		t.Error("organizer should hold every permission")
	}

	// Defaults: check-in yes, eliminate no.
	if !hackathonpolicy.HasPermission(coord, h, hackathonpolicy.PermCheckIn) {
		t.Error("coordinator should hold check_in by default")
	}
	if hackathonpolicy.HasPermission(coord, h, hackathonpolicy.PermEliminateTeams) {
		t.Error("coordinator should not hold eliminate_teams by default")
	}
	if hackathonpolicy.HasPermission(coord, h, "bogus") {
		t.Error("unknown permission should be denied")
	}
	if hackathonpolicy.HasPermission(actor(authz.RoleParticipant), h, hackathonpolicy.PermCheckIn) {
		t.Error("non-coordinator should be denied")
	}
}

func TestCanJudge(t *testing.T) {
	judgeAll := actor(authz.RoleJudge)
	judgeOne := actor(authz.RoleJudge)

	r1 := models.Round{ID: primitive.NewObjectID(), Name: "Prelims"}
	r2 := models.Round{ID: primitive.NewObjectID(), Name: "Finals"}

	h := &models.Hackathon{
		Rounds: []models.Round{r1, r2},
		Judges: []models.Judge{
			{UserID: judgeAll.ID},
			{UserID: judgeOne.ID, AssignedRounds: []primitive.ObjectID{r1.ID}},
		},
	}

	if !hackathonpolicy.CanJudge(judgeAll, h, &r2) {
		t.Error("judge with no assignments should cover every round")
	}
	if !hackathonpolicy.CanJudge(judgeOne, h, &r1) {
		t.Error("assigned judge should cover their round")
	}
	if hackathonpolicy.CanJudge(judgeOne, h, &r2) {
		t.Error("assigned judge should not cover other rounds")
	}
	if hackathonpolicy.CanJudge(actor(authz.RoleParticipant), h, &r1) {
		t.Error("non-judge should be denied")
	}
}
