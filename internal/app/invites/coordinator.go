package invites

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/app/system/token"
	"github.com/dalemusser/hackhub/internal/app/system/txn"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// PermissionPatch is a partial permission update. Nil fields keep their
// current value, so callers can flip one flag without restating the rest.
type PermissionPatch struct {
	CanViewTeams       *bool
	CanCheckIn         *bool
	CanAssignTables    *bool
	CanViewSubmissions *bool
	CanEliminateTeams  *bool
	CanCommunicate     *bool
}

func (p PermissionPatch) applyTo(perms models.CoordinatorPermissions) models.CoordinatorPermissions {
	if p.CanViewTeams != nil {
		perms.CanViewTeams = *p.CanViewTeams
	}
	if p.CanCheckIn != nil {
		perms.CanCheckIn = *p.CanCheckIn
	}
	if p.CanAssignTables != nil {
		perms.CanAssignTables = *p.CanAssignTables
	}
	if p.CanViewSubmissions != nil {
		perms.CanViewSubmissions = *p.CanViewSubmissions
	}
	if p.CanEliminateTeams != nil {
		perms.CanEliminateTeams = *p.CanEliminateTeams
	}
	if p.CanCommunicate != nil {
		perms.CanCommunicate = *p.CanCommunicate
	}
	return perms
}

// CoordinatorListing is one row in the coordinator roster, covering both
// pending and accepted invitations.
type CoordinatorListing struct {
	UserID      primitive.ObjectID            `json:"user_id"`
	FullName    string                        `json:"full_name"`
	Email       string                        `json:"email"`
	Status      string                        `json:"status"`
	Permissions models.CoordinatorPermissions `json:"permissions"`
	InvitedAt   time.Time                     `json:"invited_at"`
	AcceptedAt  *time.Time                    `json:"accepted_at,omitempty"`
}

// InviteCoordinator invites the user with the given email to coordinate
// the hackathon. The invitee must already hold an account and must not be
// an active participant in the same hackathon. When perms is nil the
// default permission set applies.
func (s *Service) InviteCoordinator(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, email string, perms *models.CoordinatorPermissions) (*models.User, error) {
	h, err := s.hackathons.GetByID(ctx, hackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	if !hackathonpolicy.CanManage(actor, h) {
		return nil, apperr.Forbidden("only the organizer can invite coordinators")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == userstore.ErrNotFound {
			return nil, apperr.NotFound("no account exists for this email")
		}
		return nil, err
	}

	// A user competing in the hackathon cannot also run it.
	if _, err := s.teams.ActiveTeamForUser(ctx, hackathonID, user.ID); err == nil {
		return nil, apperr.Conflict("user is an active participant in this hackathon")
	} else if err != teamstore.ErrNotFound {
		return nil, err
	}

	if inv := user.CoordinatorInvitationFor(hackathonID); inv != nil {
		switch inv.Status {
		case models.InviteStatusAccepted:
			return nil, apperr.Conflict("user is already a coordinator for this hackathon")
		case models.InviteStatusExpired:
			// An expired invitation is re-issued with a fresh token.
			tok, err := token.New()
			if err != nil {
				return nil, err
			}
			if err := s.users.RefreshCoordinatorInvitation(ctx, user.ID, hackathonID, tok, time.Now().UTC()); err != nil {
				return nil, err
			}
			s.sendInviteEmail(user.Email, h.Title, actor.Name, "coordinator", s.baseURL+"/invitations/coordinator/"+tok)
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
	p := models.DefaultCoordinatorPermissions()
	if perms != nil {
		p = *perms
	}
	inv := models.CoordinatorInvitation{
		HackathonID:     hackathonID,
		Permissions:     p,
		InvitedByID:     actor.ID,
		InvitedAt:       time.Now().UTC(),
		Status:          models.InviteStatusPending,
		InvitationToken: tok,
	}
	if err := s.users.AddCoordinatorInvitation(ctx, user.ID, inv); err != nil {
		return nil, err
	}

	s.sendInviteEmail(user.Email, h.Title, actor.Name, "coordinator", s.baseURL+"/invitations/coordinator/"+tok)
	return user, nil
}

// AcceptCoordinatorInvitation redeems an invitation token. The pending
// invitation flips to accepted, a coordinator entry with the granted
// permissions lands on the hackathon, and the user gains the coordinator
// role.
func (s *Service) AcceptCoordinatorInvitation(ctx context.Context, tok string) (*models.Hackathon, error) {
	user, err := s.users.GetByCoordinatorToken(ctx, tok)
	if err != nil {
		if err == userstore.ErrNotFound {
			return nil, apperr.NotFound("invalid or expired invitation")
		}
		return nil, err
	}

	var inv *models.CoordinatorInvitation
	for i := range user.CoordinatorFor {
		e := &user.CoordinatorFor[i]
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
		if err := s.users.AcceptCoordinatorInvitation(ctx, user.ID, inv.HackathonID, now); err != nil {
			return err
		}
		if err := s.hackathons.AddCoordinator(ctx, inv.HackathonID, models.Coordinator{
			UserID:      user.ID,
			Permissions: inv.Permissions,
			AddedAt:     now,
		}); err != nil {
			return err
		}
		return s.users.AddRole(ctx, user.ID, authz.RoleCoordinator)
	})
	if err != nil {
		return nil, err
	}

	h, err := s.hackathons.GetByID(ctx, inv.HackathonID)
	if err != nil {
		return nil, err
	}
	s.log.Info("coordinator invitation accepted",
		zap.String("user_id", user.ID.Hex()),
		zap.String("hackathon_id", inv.HackathonID.Hex()))
	return h, nil
}

// ResendCoordinatorInvite regenerates the token on a non-accepted
// invitation and emails a fresh accept link. The old link stops working.
func (s *Service) ResendCoordinatorInvite(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID) error {
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
	inv := user.CoordinatorInvitationFor(hackathonID)
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
	if err := s.users.RefreshCoordinatorInvitation(ctx, userID, hackathonID, tok, time.Now().UTC()); err != nil {
		return err
	}
	s.sendInviteEmail(user.Email, h.Title, actor.Name, "coordinator", s.baseURL+"/invitations/coordinator/"+tok)
	return nil
}

// CancelCoordinatorInvite withdraws a pending invitation. Accepted
// invitations cannot be cancelled; use RemoveCoordinator instead.
func (s *Service) CancelCoordinatorInvite(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID) error {
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return err
	}
	removed, err := s.users.RemovePendingCoordinatorInvitation(ctx, userID, hackathonID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("no pending invitation to cancel")
	}
	return nil
}

// RemoveCoordinator takes a coordinator off the hackathon regardless of
// invitation status, deleting both the hackathon entry and the user-side
// record. The user may be re-invited later.
func (s *Service) RemoveCoordinator(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID) error {
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return err
	}
	return txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.users.RemoveCoordinatorInvitation(ctx, userID, hackathonID); err != nil {
			return err
		}
		return s.hackathons.RemoveCoordinator(ctx, hackathonID, userID)
	})
}

// UpdateCoordinatorPermissions merges the patch into the coordinator's
// permission set. Both copies move together: the user's invitation record
// always, the hackathon entry once the invitation is accepted.
func (s *Service) UpdateCoordinatorPermissions(ctx context.Context, actor authz.Actor, hackathonID, userID primitive.ObjectID, patch PermissionPatch) (models.CoordinatorPermissions, error) {
	var zero models.CoordinatorPermissions
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return zero, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == userstore.ErrNotFound {
			return zero, apperr.NotFound("user not found")
		}
		return zero, err
	}
	inv := user.CoordinatorInvitationFor(hackathonID)
	if inv == nil {
		return zero, apperr.NotFound("user is not a coordinator for this hackathon")
	}

	merged := patch.applyTo(inv.Permissions)
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.users.SetCoordinatorPermissions(ctx, userID, hackathonID, merged); err != nil {
			return err
		}
		if inv.Status == models.InviteStatusAccepted {
			return s.hackathons.SetCoordinatorPermissions(ctx, hackathonID, userID, merged)
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return merged, nil
}

// ListCoordinators returns the full coordinator roster, pending
// invitations included.
func (s *Service) ListCoordinators(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID) ([]CoordinatorListing, error) {
	if _, err := s.manageableHackathon(ctx, actor, hackathonID); err != nil {
		return nil, err
	}
	users, err := s.users.ListCoordinatorsForHackathon(ctx, hackathonID)
	if err != nil {
		return nil, err
	}
	out := make([]CoordinatorListing, 0, len(users))
	for i := range users {
		inv := users[i].CoordinatorInvitationFor(hackathonID)
		if inv == nil {
			continue
		}
		out = append(out, CoordinatorListing{
			UserID:      users[i].ID,
			FullName:    users[i].FullName,
			Email:       users[i].Email,
			Status:      inv.Status,
			Permissions: inv.Permissions,
			InvitedAt:   inv.InvitedAt,
			AcceptedAt:  inv.AcceptedAt,
		})
	}
	return out, nil
}

// MyCoordinations returns the hackathons where the user is an accepted
// coordinator.
func (s *Service) MyCoordinations(ctx context.Context, userID primitive.ObjectID) ([]models.Hackathon, error) {
	return s.hackathons.ListCoordinatedBy(ctx, userID)
}

func (s *Service) manageableHackathon(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID) (*models.Hackathon, error) {
	h, err := s.hackathons.GetByID(ctx, hackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	if !hackathonpolicy.CanManage(actor, h) {
		return nil, apperr.Forbidden("not allowed to manage this hackathon")
	}
	return h, nil
}

func (s *Service) sendInviteEmail(to, hackathonName, inviterName, roleName, link string) {
	if s.mail == nil {
		return
	}
	e := mailer.BuildInvitationEmail(mailer.InvitationEmailData{
		SiteName:      s.siteName,
		HackathonName: hackathonName,
		InviterName:   inviterName,
		RoleName:      roleName,
		AcceptLink:    link,
	})
	e.To = to
	s.mail.SendBestEffort(e)
}
