package teamflow

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/hackhub/internal/app/policy/teampolicy"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// LeaveTeam lets a member walk away. The leader cannot leave; they must
// withdraw the team or hand leadership over out of band.
func (s *Service) LeaveTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) error {
	t, _, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if t.IsLeader(actor.ID) {
		return apperr.Conflict("the team leader cannot leave the team")
	}
	if !t.IsActiveMember(actor.ID) {
		return apperr.NotFound("you are not an active member of this team")
	}
	return s.teams.SetMemberStatus(ctx, teamID, actor.ID, models.MemberStatusLeft)
}

// RemoveMember takes a member off the roster. The record stays with
// status removed so history survives; the seat opens up again.
func (s *Service) RemoveMember(ctx context.Context, actor authz.Actor, teamID, userID primitive.ObjectID) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !teampolicy.CanManageRoster(actor, h, t) {
		return apperr.Forbidden("only the team leader can remove members")
	}
	if userID == t.LeaderID {
		return apperr.Conflict("the team leader cannot be removed")
	}
	if !t.IsActiveMember(userID) {
		return apperr.NotFound("user is not an active member of this team")
	}
	return s.teams.SetMemberStatus(ctx, teamID, userID, models.MemberStatusRemoved)
}

// TeamUpdate carries the editable team fields. Nil pointers keep current
// values.
type TeamUpdate struct {
	Name        *string
	Description *string
	Project     *models.ProjectInfo
}

// UpdateTeam edits the team's name, description, or project info. Name
// changes are gated by the hackathon's allow_team_name_change setting.
func (s *Service) UpdateTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID, up TeamUpdate) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !t.IsLeader(actor.ID) {
		return apperr.Forbidden("only the team leader can edit the team")
	}

	set := bson.M{}
	if up.Name != nil {
		if !h.Settings.AllowTeamNameChange {
			return apperr.Forbidden("team name changes are disabled for this hackathon")
		}
		if normalize.Name(*up.Name) == "" {
			return apperr.Validation("team name is required")
		}
		set["name"] = *up.Name
	}
	if up.Description != nil {
		set["description"] = htmlsanitize.Sanitize(*up.Description)
	}
	if up.Project != nil {
		p := *up.Project
		p.Description = htmlsanitize.Sanitize(p.Description)
		set["project"] = p
	}
	if len(set) == 0 {
		return nil
	}
	if err := s.teams.Update(ctx, teamID, set); err != nil {
		if err == teamstore.ErrDuplicateName {
			return apperr.Conflict("a team with this name already exists in the hackathon")
		}
		return err
	}
	return nil
}

// MyTeams lists every team, across hackathons, where the actor is an
// active member.
func (s *Service) MyTeams(ctx context.Context, actor authz.Actor) ([]models.Team, error) {
	return s.teams.ListForUser(ctx, actor.ID)
}

// GetTeam loads a team for an actor allowed to see it.
func (s *Service) GetTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) (*models.Team, error) {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !teampolicy.CanView(actor, h, t) {
		return nil, apperr.Forbidden("not allowed to view this team")
	}
	return t, nil
}
