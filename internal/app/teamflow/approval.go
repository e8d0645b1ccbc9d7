package teamflow

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// ApproveTeam approves a submitted registration and notifies the leader.
func (s *Service) ApproveTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !hackathonpolicy.CanManage(actor, h) {
		return apperr.Forbidden("not allowed to review registrations")
	}
	if t.SubmissionStatus != models.SubmissionStatusSubmitted {
		return apperr.Conflict("registration has not been submitted")
	}
	if t.RegistrationStatus == models.RegistrationStatusApproved {
		return apperr.Conflict("team is already approved")
	}
	if err := s.teams.Approve(ctx, teamID, actor.ID.Hex(), time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("team approved",
		zap.String("team_id", teamID.Hex()),
		zap.String("by", actor.ID.Hex()))
	s.audit.TeamApproved(ctx, h.ID, teamID, actor.ID)
	s.sendDecisionEmail(t, h, true, "")
	return nil
}

// RejectTeam rejects a submitted registration with a reason. The team's
// workflow drops back to draft so it can amend and reconfirm.
func (s *Service) RejectTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID, reason string) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !hackathonpolicy.CanManage(actor, h) {
		return apperr.Forbidden("not allowed to review registrations")
	}
	if t.SubmissionStatus != models.SubmissionStatusSubmitted {
		return apperr.Conflict("registration has not been submitted")
	}
	reason = normalize.QueryParam(reason)
	if reason == "" {
		return apperr.Validation("a rejection reason is required")
	}
	if err := s.teams.Reject(ctx, teamID, reason); err != nil {
		return err
	}
	s.log.Info("team rejected",
		zap.String("team_id", teamID.Hex()),
		zap.String("by", actor.ID.Hex()))
	s.audit.TeamRejected(ctx, h.ID, teamID, actor.ID, reason)
	s.sendDecisionEmail(t, h, false, reason)
	return nil
}

// BulkFailure reports one team that a bulk decision could not process.
type BulkFailure struct {
	TeamID primitive.ObjectID `json:"team_id"`
	Reason string             `json:"reason"`
}

// BulkResult summarizes a bulk decision.
type BulkResult struct {
	Succeeded []primitive.ObjectID `json:"succeeded"`
	Failed    []BulkFailure        `json:"failed"`
}

// BulkApproveTeams approves each team in turn, scoped to one hackathon:
// a team belonging to a different hackathon is skipped with a per-team
// reason. Failures don't stop the batch; they are collected and returned
// alongside the successes.
func (s *Service) BulkApproveTeams(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, teamIDs []primitive.ObjectID) (BulkResult, error) {
	var res BulkResult
	for _, id := range teamIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if reason := s.bulkScopeCheck(ctx, hackathonID, id); reason != "" {
			res.Failed = append(res.Failed, BulkFailure{TeamID: id, Reason: reason})
			continue
		}
		if err := s.ApproveTeam(ctx, actor, id); err != nil {
			res.Failed = append(res.Failed, BulkFailure{TeamID: id, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}

// BulkRejectTeams rejects each team in turn with the same reason, with
// the same hackathon scoping as BulkApproveTeams.
func (s *Service) BulkRejectTeams(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, teamIDs []primitive.ObjectID, reason string) (BulkResult, error) {
	var res BulkResult
	for _, id := range teamIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if scopeReason := s.bulkScopeCheck(ctx, hackathonID, id); scopeReason != "" {
			res.Failed = append(res.Failed, BulkFailure{TeamID: id, Reason: scopeReason})
			continue
		}
		if err := s.RejectTeam(ctx, actor, id, reason); err != nil {
			res.Failed = append(res.Failed, BulkFailure{TeamID: id, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}

// bulkScopeCheck returns a non-empty reason when the team cannot take
// part in a bulk decision scoped to the hackathon.
func (s *Service) bulkScopeCheck(ctx context.Context, hackathonID, teamID primitive.ObjectID) string {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "team not found"
	}
	if t.HackathonID != hackathonID {
		return "team does not belong to this hackathon"
	}
	return ""
}
