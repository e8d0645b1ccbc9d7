package teamflow

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	"github.com/dalemusser/hackhub/internal/app/policy/teampolicy"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// CheckInTeam marks the whole team as arrived on site.
func (s *Service) CheckInTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !h.Settings.EnableCheckIn {
		return apperr.Conflict("check-in is not enabled for this hackathon")
	}
	if err := s.requirePermission(actor, h, hackathonpolicy.PermCheckIn); err != nil {
		return err
	}
	if t.RegistrationStatus != models.RegistrationStatusApproved {
		return apperr.Conflict("only approved teams can check in")
	}
	if t.CheckIn.TeamCheckedIn {
		return apperr.Conflict("team is already checked in")
	}
	if err := s.teams.SetTeamCheckIn(ctx, teamID, actor.ID, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("team checked in", zap.String("team_id", teamID.Hex()))
	s.audit.TeamCheckedIn(ctx, h.ID, teamID, actor.ID)
	return nil
}

// CheckInMember marks an individual member as arrived. The member must
// be an active member of the team.
func (s *Service) CheckInMember(ctx context.Context, actor authz.Actor, teamID, userID primitive.ObjectID) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !h.Settings.EnableCheckIn {
		return apperr.Conflict("check-in is not enabled for this hackathon")
	}
	if err := s.requirePermission(actor, h, hackathonpolicy.PermCheckIn); err != nil {
		return err
	}
	if !t.IsActiveMember(userID) {
		return apperr.NotFound("user is not an active member of the team")
	}
	if err := s.teams.CheckInMember(ctx, teamID, userID); err != nil {
		return err
	}
	s.audit.MemberCheckedIn(ctx, h.ID, teamID, actor.ID, userID)
	return nil
}

// AssignTable sets the team's physical table number.
func (s *Service) AssignTable(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID, tableNo string) error {
	_, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requirePermission(actor, h, hackathonpolicy.PermAssignTables); err != nil {
		return err
	}
	return s.teams.AssignTable(ctx, teamID, normalize.QueryParam(tableNo))
}

// AssignTeamNumber sets the team's competition number.
func (s *Service) AssignTeamNumber(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID, n int) error {
	_, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requirePermission(actor, h, hackathonpolicy.PermAssignTables); err != nil {
		return err
	}
	if n <= 0 {
		return apperr.Validation("team number must be positive")
	}
	return s.teams.AssignTeamNumber(ctx, teamID, n)
}

// AddNote attaches an organizer annotation to the team. Public notes are
// visible to the team; private notes only to staff.
func (s *Service) AddNote(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID, content string, public bool) (models.Note, error) {
	_, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return models.Note{}, err
	}
	if err := s.requirePermission(actor, h, hackathonpolicy.PermViewTeams); err != nil {
		return models.Note{}, err
	}
	content = htmlsanitize.Sanitize(content)
	if content == "" {
		return models.Note{}, apperr.Validation("note content is required")
	}
	n := models.Note{
		AuthorID:  actor.ID,
		Content:   content,
		IsPublic:  public,
		CreatedAt: time.Now().UTC(),
	}
	n, err = s.teams.AddNote(ctx, teamID, n)
	if err == teamstore.ErrNotFound {
		return models.Note{}, apperr.NotFound("team not found")
	}
	return n, err
}

// TeamNotes returns the notes the actor may see. Staff see everything;
// members see public notes only.
func (s *Service) TeamNotes(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) ([]models.Note, error) {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !teampolicy.CanView(actor, h, t) {
		return nil, apperr.Forbidden("not allowed to view this team")
	}
	return teampolicy.VisibleNotes(actor, h, t), nil
}
