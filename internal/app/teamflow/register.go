package teamflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/txn"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// RegisterInput carries the fields a leader supplies when creating a
// team. MemberIDs are the proposed initial members beyond the leader;
// they join as active members right away.
type RegisterInput struct {
	Name        string
	Description string
	Project     models.ProjectInfo
	MemberIDs   []primitive.ObjectID
}

// RegisterResult is the outcome of a registration. MeetsSizeRequirements
// reports whether the initial roster already satisfies the hackathon's
// team size bounds; it is informational and never blocks creation.
type RegisterResult struct {
	Team                  models.Team
	MeetsSizeRequirements bool
}

// RegisterTeam creates a team with the actor as leader. The registration
// slot is claimed atomically against the hackathon's capacity counter
// before the team document is inserted; if the insert fails the slot is
// released again, so the counter never exceeds max_teams and never leaks.
func (s *Service) RegisterTeam(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, in RegisterInput) (RegisterResult, error) {
	var zero RegisterResult
	if !actor.Valid() {
		return zero, apperr.Forbidden("sign in to register a team")
	}
	if normalize.Name(in.Name) == "" {
		return zero, apperr.Validation("team name is required")
	}

	h, err := s.loadHackathon(ctx, hackathonID)
	if err != nil {
		return zero, err
	}

	now := time.Now().UTC()
	late, err := registrationWindow(h, now)
	if err != nil {
		return zero, err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if err == userstore.ErrNotFound {
			return zero, apperr.NotFound("user not found")
		}
		return zero, err
	}

	// Staff for the hackathon cannot also compete in it.
	if user.IsCoordinatorFor(hackathonID) {
		return zero, apperr.Conflict("coordinators cannot register as participants")
	}
	if user.IsJudgeFor(hackathonID) {
		return zero, apperr.Conflict("judges cannot register as participants")
	}

	// Nobody joins two teams in the same hackathon.
	if _, err := s.teams.ActiveTeamForUser(ctx, hackathonID, actor.ID); err == nil {
		return zero, apperr.Conflict("user is already on a team in this hackathon")
	} else if err != teamstore.ErrNotFound {
		return zero, err
	}

	if err := checkEligibility(h, user); err != nil {
		return zero, err
	}

	members, err := s.resolveInitialMembers(ctx, hackathonID, actor.ID, in.MemberIDs, now)
	if err != nil {
		return zero, err
	}

	payment := models.Payment{
		Amount:   h.RegistrationFee.Amount,
		Currency: h.RegistrationFee.Currency,
		Status:   models.PaymentStatusPending,
	}
	if payment.Amount == 0 {
		payment.Status = models.PaymentStatusCompleted
		payment.TransactionID = uuid.NewString()
		payment.PaidAt = &now
	}

	team := models.Team{
		HackathonID: hackathonID,
		Name:        in.Name,
		Description: in.Description,
		LeaderID:    actor.ID,
		Project:     in.Project,
		Payment:     payment,
		Members: append([]models.TeamMember{{
			UserID:      actor.ID,
			Name:        user.FullName,
			Email:       user.Email,
			Institution: user.Institution,
			Role:        models.MemberRoleLeader,
			Status:      models.MemberStatusActive,
			JoinedAt:    now,
		}}, members...),
	}

	var created models.Team
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.hackathons.ClaimRegistrationSlot(ctx, hackathonID); err != nil {
			return err
		}
		t, err := s.teams.Create(ctx, team)
		if err != nil {
			// Without a real transaction the claim would leak, so
			// hand the slot back before surfacing the error.
			if relErr := s.hackathons.ReleaseRegistrationSlot(ctx, hackathonID); relErr != nil {
				s.log.Warn("failed to release registration slot",
					zap.String("hackathon_id", hackathonID.Hex()), zap.Error(relErr))
			}
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		switch err {
		case hackathonstore.ErrRegistrationClosed:
			return zero, apperr.Forbidden("registration is closed or the hackathon is full")
		case teamstore.ErrDuplicateName:
			return zero, apperr.Conflict("a team with this name already exists in the hackathon")
		case teamstore.ErrAlreadyRegistered:
			return zero, apperr.Conflict("user already leads a team in this hackathon")
		}
		return zero, err
	}

	s.log.Info("team registered",
		zap.String("team_id", created.ID.Hex()),
		zap.String("hackathon_id", hackathonID.Hex()),
		zap.Int("members", len(created.Members)),
		zap.Bool("late", late))
	s.audit.TeamRegistered(ctx, hackathonID, created.ID, actor.ID, created.Name)
	return RegisterResult{
		Team:                  created,
		MeetsSizeRequirements: meetsSizeBounds(h.TeamConfig, created.ActiveMemberCount()),
	}, nil
}

// resolveInitialMembers validates the proposed members and builds their
// membership records. Each must exist and must not already be active on
// a team in the hackathon.
func (s *Service) resolveInitialMembers(ctx context.Context, hackathonID, leaderID primitive.ObjectID, memberIDs []primitive.ObjectID, now time.Time) ([]models.TeamMember, error) {
	seen := map[primitive.ObjectID]bool{leaderID: true}
	out := make([]models.TeamMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			if err == userstore.ErrNotFound {
				return nil, apperr.NotFound("proposed member not found")
			}
			return nil, err
		}
		if _, err := s.teams.ActiveTeamForUser(ctx, hackathonID, id); err == nil {
			return nil, apperr.Conflict(fmt.Sprintf("proposed member %s is already on a team in this hackathon", u.Email))
		} else if err != teamstore.ErrNotFound {
			return nil, err
		}
		out = append(out, models.TeamMember{
			UserID:      u.ID,
			Name:        u.FullName,
			Email:       u.Email,
			Institution: u.Institution,
			Role:        models.MemberRoleMember,
			Status:      models.MemberStatusActive,
			JoinedAt:    now,
		})
	}
	return out, nil
}

func meetsSizeBounds(tc models.TeamConfig, active int) bool {
	if tc.MinMembers > 0 && active < tc.MinMembers {
		return false
	}
	if tc.MaxMembers > 0 && active > tc.MaxMembers {
		return false
	}
	return true
}

// ConfirmTeam submits the registration for review. The deadline policy
// and team size bounds are enforced here; a confirmation landing in the
// late window adds the late fee to the team's payment. When auto-approval
// is enabled the criteria are evaluated immediately and an eligible team
// goes straight to approved with the system sentinel.
func (s *Service) ConfirmTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) (*models.Team, error) {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.IsLeader(actor.ID) {
		return nil, apperr.Forbidden("only the team leader can confirm the registration")
	}
	if t.SubmissionStatus == models.SubmissionStatusSubmitted {
		return nil, apperr.Conflict("registration has already been submitted")
	}

	now := time.Now().UTC()
	lateWindow, err := confirmDeadline(h, now)
	if err != nil {
		return nil, err
	}

	active := t.ActiveMemberCount()
	min, max := h.TeamConfig.MinMembers, h.TeamConfig.MaxMembers
	if min > 0 && active < min {
		return nil, apperr.WithDetail(apperr.KindValidation,
			fmt.Sprintf("team needs at least %d members, has %d", min, active),
			map[string]any{"current": active, "required_min": min, "required_max": max})
	}
	if max > 0 && active > max {
		return nil, apperr.WithDetail(apperr.KindValidation,
			fmt.Sprintf("team exceeds the limit of %d members with %d", max, active),
			map[string]any{"current": active, "required_min": min, "required_max": max})
	}

	if lateWindow {
		if err := s.applyLateFee(ctx, actor, t, h); err != nil {
			return nil, err
		}
	}

	if err := s.teams.MarkSubmitted(ctx, teamID, now); err != nil {
		return nil, err
	}

	autoApproved := false
	if h.Settings.EnableAutoApproval {
		eligible, reason := EvaluateAutoApproval(h, t)
		if err := s.teams.SetAutoApprovalResult(ctx, teamID, eligible, reason); err != nil {
			return nil, err
		}
		if eligible {
			if err := s.teams.Approve(ctx, teamID, models.AutoApprovedBy, now); err != nil {
				return nil, err
			}
			autoApproved = true
			s.log.Info("team auto-approved", zap.String("team_id", teamID.Hex()))
			s.sendDecisionEmail(t, h, true, "")
		}
	}
	s.audit.TeamConfirmed(ctx, h.ID, teamID, actor.ID, autoApproved)

	updated, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyLateFee adds the late registration fee to the team's payment and
// leaves an internal note recording it.
func (s *Service) applyLateFee(ctx context.Context, actor authz.Actor, t *models.Team, h *models.Hackathon) error {
	lf := h.Settings.LateRegistrationFee
	if !lf.Enabled || lf.Amount <= 0 {
		return nil
	}
	p := t.Payment
	p.Amount += lf.Amount
	if err := s.teams.SetPayment(ctx, t.ID, p); err != nil {
		return err
	}
	t.Payment = p
	if _, err := s.teams.AddNote(ctx, t.ID, models.Note{
		AuthorID:  actor.ID,
		Content:   fmt.Sprintf("late confirmation fee of %d added to the registration fee", lf.Amount),
		IsPublic:  false,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	s.log.Info("late fee applied",
		zap.String("team_id", t.ID.Hex()),
		zap.Int64("amount", lf.Amount))
	return nil
}

// EvaluateAutoApproval runs the hackathon's auto-approval criteria
// against the team, in order, stopping at the first failure. The reason
// names the failing clause. Institution and email-domain criteria apply
// to the leader; size and payment criteria apply to the whole team.
func EvaluateAutoApproval(h *models.Hackathon, t *models.Team) (bool, string) {
	c := h.Settings.AutoApprovalCriteria
	active := t.ActiveMembers()

	if c.MinTeamSize > 0 && len(active) < c.MinTeamSize {
		return false, fmt.Sprintf("team has %d members, criteria require at least %d", len(active), c.MinTeamSize)
	}
	if c.MaxTeamSize > 0 && len(active) > c.MaxTeamSize {
		return false, fmt.Sprintf("team has %d members, criteria allow at most %d", len(active), c.MaxTeamSize)
	}
	leader := t.Leader()
	if len(c.RequiredInstitutions) > 0 {
		if leader == nil || !containsFold(c.RequiredInstitutions, leader.Institution) {
			return false, "the team leader is not from a required institution"
		}
	}
	if len(c.RequiredEmailDomains) > 0 {
		if leader == nil || !containsFold(c.RequiredEmailDomains, normalize.EmailDomain(leader.Email)) {
			return false, "the team leader does not use a required email domain"
		}
	}
	if c.AutoApproveAfterPayment && t.Payment.Status != models.PaymentStatusCompleted {
		return false, "payment has not been completed"
	}
	return true, ""
}

// WithdrawTeam deletes a team that has not been approved yet, releasing
// its registration slot and discarding its join requests.
func (s *Service) WithdrawTeam(ctx context.Context, actor authz.Actor, teamID primitive.ObjectID) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !t.IsLeader(actor.ID) && !hackathonpolicy.CanManage(actor, h) {
		return apperr.Forbidden("only the team leader can withdraw the team")
	}
	if t.RegistrationStatus == models.RegistrationStatusApproved {
		return apperr.Conflict("approved teams cannot be withdrawn")
	}
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.teams.Delete(ctx, teamID); err != nil {
			return err
		}
		if _, err := s.joinRequests.DeleteForTeam(ctx, teamID); err != nil {
			return err
		}
		return s.hackathons.ReleaseRegistrationSlot(ctx, t.HackathonID)
	})
	if err != nil {
		return err
	}
	s.audit.TeamWithdrawn(ctx, t.HackathonID, teamID, actor.ID)
	return nil
}

// registrationWindow decides whether a new registration may proceed at
// this moment. The second return reports the late-registration path.
// Refusals are Forbidden: the caller is not allowed to register now, as
// opposed to a conflict with the team's own state.
func registrationWindow(h *models.Hackathon, now time.Time) (late bool, err error) {
	if h.IsRegistrationOpen(now) {
		return false, nil
	}
	// Past the deadline: late registration may keep the door open.
	if h.Status == models.HackathonStatusRegistrationOpen &&
		now.After(h.RegistrationEnd) &&
		h.Settings.AllowLateRegistration &&
		h.CurrentRegistrations < h.MaxTeams {
		lf := h.Settings.LateRegistrationFee
		if !lf.Enabled || lf.ValidUntil == nil || now.Before(*lf.ValidUntil) {
			return true, nil
		}
	}
	if h.CurrentRegistrations >= h.MaxTeams {
		return false, apperr.Forbidden("the hackathon has reached its maximum team limit")
	}
	return false, apperr.Forbidden("registration is closed")
}

// confirmDeadline applies the deadline policy to a confirmation attempt.
// The first return reports whether the confirmation lands in the late
// window, where the late fee applies.
func confirmDeadline(h *models.Hackathon, now time.Time) (lateWindow bool, err error) {
	if !h.Settings.EnforceRegistrationDeadline || !now.After(h.RegistrationEnd) {
		return false, nil
	}
	if h.Settings.StrictDeadlineEnforcement {
		return false, apperr.Forbidden("the registration deadline has passed")
	}
	if h.Settings.AllowLateRegistration {
		lf := h.Settings.LateRegistrationFee
		if !lf.Enabled || lf.ValidUntil == nil || now.Before(*lf.ValidUntil) {
			return true, nil
		}
		return false, apperr.Forbidden("the late registration window has closed")
	}
	return false, apperr.Forbidden("the registration deadline has passed")
}

// checkEligibility verifies the leader against the hackathon's
// institution and email-domain restrictions.
func checkEligibility(h *models.Hackathon, user *models.User) error {
	if len(h.Eligibility.AllowedInstitutions) > 0 &&
		!containsFold(h.Eligibility.AllowedInstitutions, user.Institution) {
		return apperr.Forbidden("your institution is not eligible for this hackathon")
	}
	if len(h.Eligibility.AllowedDomains) > 0 &&
		!containsFold(h.Eligibility.AllowedDomains, normalize.EmailDomain(user.Email)) {
		return apperr.Forbidden("your email domain is not eligible for this hackathon")
	}
	return nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}
