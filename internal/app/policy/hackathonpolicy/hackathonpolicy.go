// Package hackathonpolicy provides authorization policies for hackathon
// management.
//
// Authorization rules:
//   - Admins can view and manage every hackathon
//   - Organizers can manage hackathons they created
//   - Coordinators hold per-hackathon permission sets granted at invite time
//   - Judges can score teams in rounds they are assigned to
//   - Everyone can view published public hackathons
package hackathonpolicy

import (
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// Permission names checked against a coordinator's permission set.
const (
	PermViewTeams       = "view_teams"
	PermCheckIn         = "check_in"
	PermAssignTables    = "assign_tables"
	PermViewSubmissions = "view_submissions"
	PermEliminateTeams  = "eliminate_teams"
	PermCommunicate     = "communicate"
)

// IsOrganizer reports whether the actor created the hackathon.
func IsOrganizer(actor authz.Actor, h *models.Hackathon) bool {
	return actor.Valid() && h.OrganizerID == actor.ID
}

// CanManage reports whether the actor may change hackathon settings,
// rounds, invitations, and registrations. Only admins and the organizer
// manage; coordinators act through HasPermission.
func CanManage(actor authz.Actor, h *models.Hackathon) bool {
	if !actor.Valid() {
		return false
	}
	return actor.IsAdmin() || IsOrganizer(actor, h)
}

// CanView reports whether the actor may see the hackathon at all.
// Published public hackathons are visible to everyone, including
// anonymous visitors.
func CanView(actor authz.Actor, h *models.Hackathon) bool {
	if h.IsPublic && h.Status != models.HackathonStatusDraft {
		return true
	}
	if !actor.Valid() {
		return false
	}
	if actor.IsAdmin() || IsOrganizer(actor, h) {
		return true
	}
	if h.CoordinatorEntry(actor.ID) != nil {
		return true
	}
	return h.HasJudge(actor.ID)
}

// HasPermission reports whether the actor may perform a coordinator-gated
// operation on the hackathon. Admins and the organizer hold every
// permission implicitly; coordinators are checked against the permission
// set stored on their entry.
func HasPermission(actor authz.Actor, h *models.Hackathon, perm string) bool {
	if CanManage(actor, h) {
		return true
	}
	entry := h.CoordinatorEntry(actor.ID)
	if entry == nil {
		return false
	}
	switch perm {
	case PermViewTeams:
		return entry.Permissions.CanViewTeams
	case PermCheckIn:
		return entry.Permissions.CanCheckIn
	case PermAssignTables:
		return entry.Permissions.CanAssignTables
	case PermViewSubmissions:
		return entry.Permissions.CanViewSubmissions
	case PermEliminateTeams:
		return entry.Permissions.CanEliminateTeams
	case PermCommunicate:
		return entry.Permissions.CanCommunicate
	default:
		return false
	}
}

// CanJudge reports whether the actor may score teams for the given round.
// An empty AssignedRounds list means the judge covers every round.
func CanJudge(actor authz.Actor, h *models.Hackathon, round *models.Round) bool {
	if !actor.Valid() {
		return false
	}
	for i := range h.Judges {
		if h.Judges[i].UserID != actor.ID {
			continue
		}
		if len(h.Judges[i].AssignedRounds) == 0 {
			return true
		}
		if round == nil {
			return false
		}
		for _, rid := range h.Judges[i].AssignedRounds {
			if rid == round.ID {
				return true
			}
		}
		return false
	}
	return false
}
