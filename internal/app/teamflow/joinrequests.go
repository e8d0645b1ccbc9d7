package teamflow

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/teampolicy"
	joinrequeststore "github.com/dalemusser/hackhub/internal/app/store/joinrequests"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/app/system/txn"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// SendJoinRequest invites a user onto the team. Leader-only: the
// invitation goes out to the target user, who accepts or rejects it.
// Only one pending invitation per (team, user) is allowed at a time.
func (s *Service) SendJoinRequest(ctx context.Context, actor authz.Actor, teamID, targetUserID primitive.ObjectID, message string) (models.JoinRequest, error) {
	var zero models.JoinRequest
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return zero, err
	}
	if !teampolicy.CanManageRoster(actor, h, t) {
		return zero, apperr.Forbidden("only the team leader can send join requests")
	}
	if t.Eliminated {
		return zero, apperr.Conflict("this team has been eliminated")
	}
	if max := h.TeamConfig.MaxMembers; max > 0 && t.ActiveMemberCount() >= max {
		return zero, apperr.Conflict("the team is already full")
	}
	if t.IsActiveMember(targetUserID) {
		return zero, apperr.Conflict("the user is already on this team")
	}
	if _, err := s.teams.ActiveTeamForUser(ctx, t.HackathonID, targetUserID); err == nil {
		return zero, apperr.Conflict("the user is already on a team in this hackathon")
	} else if err != teamstore.ErrNotFound {
		return zero, err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if err == userstore.ErrNotFound {
			return zero, apperr.NotFound("invited user not found")
		}
		return zero, err
	}

	req, err := s.joinRequests.Create(ctx, models.JoinRequest{
		TeamID:      teamID,
		HackathonID: t.HackathonID,
		UserID:      targetUserID,
		SenderID:    actor.ID,
		Message:     htmlsanitize.Sanitize(message),
	})
	if err != nil {
		if err == joinrequeststore.ErrDuplicatePending {
			return zero, apperr.Conflict("the user already has a pending invitation to this team")
		}
		return zero, err
	}
	s.sendJoinInviteEmail(target, t, h, actor.Name)
	return req, nil
}

// AcceptJoinRequest lets the invited user join the team. Their remaining
// pending invitations in the same hackathon are rejected in the same
// transaction, so a user can never be accepted onto two teams at once.
func (s *Service) AcceptJoinRequest(ctx context.Context, actor authz.Actor, requestID primitive.ObjectID) error {
	req, err := s.joinRequests.GetByID(ctx, requestID)
	if err != nil {
		if err == joinrequeststore.ErrNotFound {
			return apperr.NotFound("join request not found")
		}
		return err
	}
	if req.Status != models.JoinRequestStatusPending {
		return apperr.Conflict("join request has already been resolved")
	}
	if req.UserID != actor.ID {
		return apperr.Forbidden("only the invited user can accept a join request")
	}

	t, h, err := s.loadTeam(ctx, req.TeamID)
	if err != nil {
		return err
	}
	if max := h.TeamConfig.MaxMembers; max > 0 && t.ActiveMemberCount() >= max {
		return apperr.Conflict("the team is already full")
	}
	if _, err := s.teams.ActiveTeamForUser(ctx, req.HackathonID, actor.ID); err == nil {
		return apperr.Conflict("you have already joined another team")
	} else if err != teamstore.ErrNotFound {
		return err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if err == userstore.ErrNotFound {
			return apperr.NotFound("invited user no longer exists")
		}
		return err
	}

	now := time.Now().UTC()
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.joinRequests.SetStatus(ctx, requestID, actor.ID, models.JoinRequestStatusAccepted); err != nil {
			return err
		}
		if err := s.teams.AddMember(ctx, req.TeamID, models.TeamMember{
			UserID:      user.ID,
			Name:        user.FullName,
			Email:       user.Email,
			Institution: user.Institution,
			Role:        models.MemberRoleMember,
			Status:      models.MemberStatusActive,
			JoinedAt:    now,
		}); err != nil {
			return err
		}
		rejected, err := s.joinRequests.RejectOtherPendingForUser(ctx, req.UserID, req.HackathonID, requestID, actor.ID)
		if err != nil {
			return err
		}
		if rejected > 0 {
			s.log.Info("cascade-rejected sibling join requests",
				zap.String("user_id", req.UserID.Hex()),
				zap.Int64("count", rejected))
		}
		return nil
	})
	return err
}

// RejectJoinRequest lets the invited user turn the invitation down.
func (s *Service) RejectJoinRequest(ctx context.Context, actor authz.Actor, requestID primitive.ObjectID) error {
	req, err := s.joinRequests.GetByID(ctx, requestID)
	if err != nil {
		if err == joinrequeststore.ErrNotFound {
			return apperr.NotFound("join request not found")
		}
		return err
	}
	if req.UserID != actor.ID {
		return apperr.Forbidden("only the invited user can reject a join request")
	}
	if err := s.joinRequests.SetStatus(ctx, requestID, actor.ID, models.JoinRequestStatusRejected); err != nil {
		if err == joinrequeststore.ErrNotFound {
			return apperr.Conflict("join request has already been resolved")
		}
		return err
	}
	return nil
}

// CancelJoinRequest withdraws a pending invitation. Only the original
// sender or the team's current leader may cancel, and only while the
// invitation is pending; the record stays behind with status cancelled.
func (s *Service) CancelJoinRequest(ctx context.Context, actor authz.Actor, requestID primitive.ObjectID) error {
	req, err := s.joinRequests.GetByID(ctx, requestID)
	if err != nil {
		if err == joinrequeststore.ErrNotFound {
			return apperr.NotFound("join request not found")
		}
		return err
	}
	if req.SenderID != actor.ID {
		t, h, err := s.loadTeam(ctx, req.TeamID)
		if err != nil {
			return err
		}
		if !teampolicy.CanManageRoster(actor, h, t) {
			return apperr.Forbidden("only the sender or the team leader can cancel a join request")
		}
	}
	if err := s.joinRequests.SetStatus(ctx, requestID, actor.ID, models.JoinRequestStatusCancelled); err != nil {
		if err == joinrequeststore.ErrNotFound {
			return apperr.Conflict("join request has already been resolved")
		}
		return err
	}
	return nil
}

// PendingJoinRequests lists a team's outstanding invitations for its
// leader.
func (s *Service) PendingJoinRequests(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) ([]models.JoinRequest, error) {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !teampolicy.CanManageRoster(actor, h, t) {
		return nil, apperr.Forbidden("only the team leader can view join requests")
	}
	return s.joinRequests.ListForTeam(ctx, teamID, models.JoinRequestStatusPending)
}

// MyJoinRequests lists the invitations addressed to the actor in a
// hackathon.
func (s *Service) MyJoinRequests(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID) ([]models.JoinRequest, error) {
	if !actor.Valid() {
		return nil, apperr.Forbidden("sign in to view join requests")
	}
	return s.joinRequests.ListForUser(ctx, actor.ID, hackathonID)
}

// sendJoinInviteEmail notifies the invited user. Best-effort, like the
// decision emails.
func (s *Service) sendJoinInviteEmail(target *models.User, t *models.Team, h *models.Hackathon, inviterName string) {
	if s.mail == nil || target.Email == "" {
		return
	}
	e := mailer.BuildInvitationEmail(mailer.InvitationEmailData{
		SiteName:      s.siteName,
		HackathonName: h.Title,
		InviterName:   inviterName,
		RoleName:      "member of " + t.Name,
		AcceptLink:    s.baseURL + "/hackathons/" + h.Slug + "/join-requests",
	})
	e.To = target.Email
	s.mail.SendBestEffort(e)
}
