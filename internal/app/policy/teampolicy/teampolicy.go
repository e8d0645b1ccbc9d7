// Package teampolicy provides authorization policies for team-level
// operations.
//
// Authorization rules:
//   - The team leader manages the roster, registration, and submissions
//   - Active members can view their own team, including private details
//   - Hackathon staff visibility flows through hackathonpolicy permissions
//   - Members never see private notes; PublicNotes filters for them
package teampolicy

import (
	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// IsLeader reports whether the actor leads the team.
func IsLeader(actor authz.Actor, t *models.Team) bool {
	return actor.Valid() && t.IsLeader(actor.ID)
}

// CanManageRoster reports whether the actor may invite, accept, or remove
// team members. Leaders manage their own roster; hackathon managers may
// step in.
func CanManageRoster(actor authz.Actor, h *models.Hackathon, t *models.Team) bool {
	if IsLeader(actor, t) {
		return true
	}
	return hackathonpolicy.CanManage(actor, h)
}

// CanSubmit reports whether the actor may confirm the registration or
// submit project work for the team. Only the leader submits.
func CanSubmit(actor authz.Actor, t *models.Team) bool {
	return IsLeader(actor, t)
}

// CanView reports whether the actor may see the team's detail view.
func CanView(actor authz.Actor, h *models.Hackathon, t *models.Team) bool {
	if !actor.Valid() {
		return false
	}
	if t.IsActiveMember(actor.ID) {
		return true
	}
	return hackathonpolicy.HasPermission(actor, h, hackathonpolicy.PermViewTeams)
}

// VisibleNotes returns the notes the actor is allowed to read. Staff see
// everything; members only the public ones.
func VisibleNotes(actor authz.Actor, h *models.Hackathon, t *models.Team) []models.Note {
	if hackathonpolicy.HasPermission(actor, h, hackathonpolicy.PermViewTeams) {
		return t.Notes
	}
	return t.PublicNotes()
}
