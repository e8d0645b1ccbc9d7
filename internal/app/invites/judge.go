package invites

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/token"
	"github.com/dalemusser/hackhub/internal/app/system/txn"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// JudgeListing is one row in the judge roster.
type JudgeListing struct {
	UserID     primitive.ObjectID `json:"user_id"`
	FullName   string             `json:"full_name"`
	Email      string             `json:"email"`
	Status     string             `json:"status"`
	InvitedAt  time.Time          `json:"invited_at"`
	AcceptedAt *time.Time         `json:"accepted_at,omitempty"`
}

// InviteJudge invites the user with the given email to judge the
// hackathon. The same participant exclusion as for coordinators applies.
func (s *Service) InviteJudge(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, email string) (*models.User, error) {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == userstore.ErrNotFound {
			return nil, apperr.NotFound("no account exists for this email")
		}
		return nil, err
	}

	if _, err := s.teams.ActiveTeamForUser(ctx, hackathonID, user.ID); err == nil {
		return nil, apperr.Conflict("user is an active participant in this hackathon")
	} else if err != teamstore.ErrNotFound {
		return nil, err
	}

	if inv := user.JudgeInvitationFor(hackathonID); inv != nil {
		switch inv.Status {
		case models.InviteStatusAccepted:
			return nil, apperr.Conflict("user is already a judge for this hackathon")
		case models.InviteStatusExpired:
			// An expired invitation is re-issued with a fresh token.
			tok, err := token.New()
			if err != nil {
				return nil, err
			}
			if err := s.users.RefreshJudgeInvitation(ctx, user.ID, hackathonID, tok, time.Now().UTC()); err != nil {
				return nil, err
			}
			s.sendInviteEmail(user.Email, h.Title, actor.Name, "judge", s.baseURL+"/invitations/judge/"+tok)
			return user, nil
		default:
			return nil, apperr.WithDetail(apperr.KindConflict, "user already has a pending invitation",
				map[string]any{"already_invited": true})
		}
	}

	tok, err := token.New()
	if err != nil {
		return nil, err
	}
	inv := models.JudgeInvitation{
		HackathonID:     hackathonID,
		InvitedByID:     actor.ID,
		InvitedAt:       time.Now().UTC(),
		Status:          models.InviteStatusPending,
		InvitationToken: tok,
	}
	if err := s.users.AddJudgeInvitation(ctx, user.ID, inv); err != nil {
		return nil, err
	}

	s.sendInviteEmail(user.Email, h.Title, actor.Name, "judge", s.baseURL+"/invitations/judge/"+tok)
	return user, nil
}

// AcceptJudgeInvitation redeems a judge invitation token. The hackathon
// gains a judge entry carrying a snapshot of the user's profile as it
// stands at acceptance time.
func (s *Service) AcceptJudgeInvitation(ctx context.Context, tok string) (*models.Hackathon, error) {
	user, err := s.users.GetByJudgeToken(ctx, tok)
	if err != nil {
		if err == userstore.ErrNotFound {
			return nil, apperr.NotFound("invalid or expired invitation")
		}
		return nil, err
	}

	var inv *models.JudgeInvitation
	for i := range user.JudgeFor {
		e := &user.JudgeFor[i]
		if e.InvitationToken == tok && e.Status == models.InviteStatusPending {
			inv = e
			break
		}
	}
	if inv == nil {
		return nil, apperr.NotFound("invalid or expired invitation")
	}

	// The participant exclusion holds at acceptance time too: the user
	// may have joined a team since the invitation went out.
	if _, err := s.teams.ActiveTeamForUser(ctx, inv.HackathonID, user.ID); err == nil {
		return nil, apperr.Conflict("user is an active participant in this hackathon")
	} else if err != teamstore.ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.users.AcceptJudgeInvitation(ctx, user.ID, inv.HackathonID, now); err != nil {
			return err
		}
		if err := s.hackathons.AddJudge(ctx, inv.HackathonID, models.Judge{
			UserID:    user.ID,
			Name:      user.FullName,
			Bio:       user.Profile.Bio,
			Photo:     user.Profile.Avatar,
			Expertise: user.Profile.Skills,
		}); err != nil {
			return err
		}
		return s.users.AddRole(ctx, user.ID, authz.RoleJudge)
	})
	if err != nil {
		return nil, err
	}

	h, err := s.hackathons.GetByID(ctx, inv.HackathonID)
	if err != nil {
		return nil, err
	}
	s.log.Info("judge invitation accepted",
		zap.String("user_id", user.ID.Hex()),
		zap.String("hackathon_id", inv.HackathonID.Hex()))
	return h, nil
}

// ResendJudgeInvite regenerates the token on a non-accepted invitation
// and emails a fresh accept link.
func (s *Service) ResendJudgeInvite(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID) error {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == userstore.ErrNotFound {
			return apperr.NotFound("user not found")
		}
		return err
	}
	inv := user.JudgeInvitationFor(hackathonID)
	if inv == nil {
		return apperr.NotFound("no invitation exists for this user")
	}
	if inv.Status == models.InviteStatusAccepted {
		return apperr.Conflict("invitation has already been accepted")
	}

	tok, err := token.New()
	if err != nil {
		return err
	}
	if err := s.users.RefreshJudgeInvitation(ctx, userID, hackathonID, tok, time.Now().UTC()); err != nil {
		return err
	}
	s.sendInviteEmail(user.Email, h.Title, actor.Name, "judge", s.baseURL+"/invitations/judge/"+tok)
	return nil
}

// CancelJudgeInvite withdraws a pending invitation.
func (s *Service) CancelJudgeInvite(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID) error {
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return err
	}
	removed, err := s.users.RemovePendingJudgeInvitation(ctx, userID, hackathonID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("no pending invitation to cancel")
	}
	return nil
}

// RemoveJudge takes a judge off the hackathon regardless of invitation
// status.
func (s *Service) RemoveJudge(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID) error {
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return err
	}
	return txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.users.RemoveJudgeInvitation(ctx, userID, hackathonID); err != nil {
			return err
		}
		return s.hackathons.RemoveJudge(ctx, hackathonID, userID)
	})
}

// AssignJudgeRounds replaces the set of rounds a judge covers. An empty
// list means every round.
func (s *Service) AssignJudgeRounds(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID, roundIDs []primitive.ObjectID) error {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return err
	}
	if !h.HasJudge(userID) {
		return apperr.NotFound("user is not a judge for this hackathon")
	}
	for _, rid := range roundIDs {
		if h.RoundByID(rid) == nil {
			return apperr.Validation("round does not belong to this hackathon")
		}
	}
	return s.hackathons.SetJudgeRounds(ctx, hackathonID, userID, roundIDs)
}

// ListJudges returns the full judge roster, pending invitations included.
func (s *Service) ListJudges(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID) ([]JudgeListing, error) {
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return nil, err
	}
	users, err := s.users.ListJudgesForHackathon(ctx, hackathonID)
	if err != nil {
		return nil, err
	}
	out := make([]JudgeListing, 0, len(users))
	for i := range users {
		inv := users[i].JudgeInvitationFor(hackathonID)
		if inv == nil {
			continue
		}
		out = append(out, JudgeListing{
			UserID:     users[i].ID,
			FullName:   users[i].FullName,
			Email:      users[i].Email,
			Status:     inv.Status,
			InvitedAt:  inv.InvitedAt,
			AcceptedAt: inv.AcceptedAt,
		})
	}
	return out, nil
}
