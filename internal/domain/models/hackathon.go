// internal/domain/models/hackathon.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hackathon lifecycle statuses.
const (
	HackathonStatusDraft              = "draft"
	HackathonStatusPublished          = "published"
	HackathonStatusRegistrationOpen   = "registration_open"
	HackathonStatusRegistrationClosed = "registration_closed"
	HackathonStatusOngoing            = "ongoing"
	HackathonStatusCompleted          = "completed"
	HackathonStatusCancelled          = "cancelled"
)

// Hackathon is the aggregate root for an event. Rounds, coordinators, and
// judges are embedded; teams live in their own collection keyed by
// hackathon_id.
//
// Invariants:
//   - CurrentRegistrations <= MaxTeams at all times.
//   - RegistrationStart <= RegistrationEnd <= StartDate <= EndDate.
//   - At most one embedded round has CurrentRound == true.
type Hackathon struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"title_ci"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Theme       string             `bson:"theme,omitempty" json:"theme,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`

	OrganizerID      primitive.ObjectID `bson:"organizer_id" json:"organizer_id"`
	OrganizerDetails OrganizerDetails   `bson:"organizer_details,omitempty" json:"organizer_details,omitempty"`

	RegistrationStart time.Time `bson:"registration_start" json:"registration_start"`
	RegistrationEnd   time.Time `bson:"registration_end" json:"registration_end"`
	StartDate         time.Time `bson:"start_date" json:"start_date"`
	EndDate           time.Time `bson:"end_date" json:"end_date"`
	Timezone          string    `bson:"timezone,omitempty" json:"timezone,omitempty"`

	TeamConfig TeamConfig `bson:"team_config" json:"team_config"`

	MaxTeams             int             `bson:"max_teams" json:"max_teams"`
	CurrentRegistrations int             `bson:"current_registrations" json:"current_registrations"`
	RegistrationFee      RegistrationFee `bson:"registration_fee" json:"registration_fee"`

	Rounds       []Round          `bson:"rounds,omitempty" json:"rounds,omitempty"`
	Coordinators []Coordinator    `bson:"coordinators,omitempty" json:"coordinators,omitempty"`
	Judges       []Judge          `bson:"judges,omitempty" json:"judges,omitempty"`
	Eligibility  Eligibility      `bson:"eligibility,omitempty" json:"eligibility,omitempty"`
	Settings     HackathonSettings `bson:"settings" json:"settings"`

	Status   string `bson:"status" json:"status"`
	IsPublic bool   `bson:"is_public" json:"is_public"`
	Mode     string `bson:"mode,omitempty" json:"mode,omitempty"` // online | offline | hybrid
	Venue    string `bson:"venue,omitempty" json:"venue,omitempty"`

	Views int64 `bson:"views" json:"views"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OrganizerDetails is a contact snapshot taken at creation time so listings
// don't need a user lookup.
type OrganizerDetails struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	Organization string `bson:"organization,omitempty" json:"organization,omitempty"`
}

// TeamConfig bounds team sizes for a hackathon.
type TeamConfig struct {
	MinMembers int `bson:"min_members" json:"min_members"`
	MaxMembers int `bson:"max_members" json:"max_members"`
}

// RegistrationFee is the base fee charged per team.
type RegistrationFee struct {
	Amount   int64  `bson:"amount" json:"amount"`
	Currency string `bson:"currency,omitempty" json:"currency,omitempty"`
}

// Eligibility restricts who may register.
type Eligibility struct {
	AllowedInstitutions []string `bson:"allowed_institutions,omitempty" json:"allowed_institutions,omitempty"`
	AllowedDomains      []string `bson:"allowed_domains,omitempty" json:"allowed_domains,omitempty"` // email domains
}

// HackathonSettings are organizer-tunable behavior flags.
type HackathonSettings struct {
	AllowTeamNameChange   bool `bson:"allow_team_name_change" json:"allow_team_name_change"`
	AllowLateRegistration bool `bson:"allow_late_registration" json:"allow_late_registration"`
	EnableCheckIn         bool `bson:"enable_check_in" json:"enable_check_in"`
	EnableLeaderboard     bool `bson:"enable_leaderboard" json:"enable_leaderboard"`

	EnableAutoApproval   bool                 `bson:"enable_auto_approval" json:"enable_auto_approval"`
	AutoApprovalCriteria AutoApprovalCriteria `bson:"auto_approval_criteria,omitempty" json:"auto_approval_criteria,omitempty"`

	EnforceRegistrationDeadline bool                `bson:"enforce_registration_deadline" json:"enforce_registration_deadline"`
	StrictDeadlineEnforcement   bool                `bson:"strict_deadline_enforcement" json:"strict_deadline_enforcement"`
	LateRegistrationFee         LateRegistrationFee `bson:"late_registration_fee,omitempty" json:"late_registration_fee,omitempty"`
}

// AutoApprovalCriteria are evaluated in order after a team confirms; the
// first failing clause stops the evaluation.
type AutoApprovalCriteria struct {
	MinTeamSize             int      `bson:"min_team_size,omitempty" json:"min_team_size,omitempty"`
	MaxTeamSize             int      `bson:"max_team_size,omitempty" json:"max_team_size,omitempty"`
	RequiredInstitutions    []string `bson:"required_institutions,omitempty" json:"required_institutions,omitempty"`
	RequiredEmailDomains    []string `bson:"required_email_domains,omitempty" json:"required_email_domains,omitempty"`
	AutoApproveAfterPayment bool     `bson:"auto_approve_after_payment" json:"auto_approve_after_payment"`
}

// LateRegistrationFee applies after the registration deadline while late
// registration remains open.
type LateRegistrationFee struct {
	Enabled    bool       `bson:"enabled" json:"enabled"`
	Amount     int64      `bson:"amount,omitempty" json:"amount,omitempty"`
	ValidUntil *time.Time `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
}

// Coordinator is the hackathon-side record of an accepted coordinator.
type Coordinator struct {
	UserID      primitive.ObjectID     `bson:"user_id" json:"user_id"`
	Permissions CoordinatorPermissions `bson:"permissions" json:"permissions"`
	AddedAt     time.Time              `bson:"added_at" json:"added_at"`
}

// CoordinatorPermissions gate the operations a coordinator may perform.
// Updates merge field by field; copies live on both the hackathon's
// coordinator entry and the user's invitation record.
type CoordinatorPermissions struct {
	CanViewTeams       bool `bson:"can_view_teams" json:"can_view_teams"`
	CanCheckIn         bool `bson:"can_check_in" json:"can_check_in"`
	CanAssignTables    bool `bson:"can_assign_tables" json:"can_assign_tables"`
	CanViewSubmissions bool `bson:"can_view_submissions" json:"can_view_submissions"`
	CanEliminateTeams  bool `bson:"can_eliminate_teams" json:"can_eliminate_teams"`
	CanCommunicate     bool `bson:"can_communicate" json:"can_communicate"`
}

// DefaultCoordinatorPermissions is the permission set applied when an
// organizer invites a coordinator without specifying one.
func DefaultCoordinatorPermissions() CoordinatorPermissions {
	return CoordinatorPermissions{
		CanViewTeams:       true,
		CanCheckIn:         true,
		CanAssignTables:    false,
		CanViewSubmissions: true,
		CanEliminateTeams:  false,
		CanCommunicate:     true,
	}
}

// Judge is the hackathon-side record of an accepted judge. Profile fields
// are copied from the user at acceptance time, not referenced live.
type Judge struct {
	UserID         primitive.ObjectID   `bson:"user_id" json:"user_id"`
	Name           string               `bson:"name,omitempty" json:"name,omitempty"`
	Bio            string               `bson:"bio,omitempty" json:"bio,omitempty"`
	Photo          string               `bson:"photo,omitempty" json:"photo,omitempty"`
	Expertise      []string             `bson:"expertise,omitempty" json:"expertise,omitempty"`
	AssignedRounds []primitive.ObjectID `bson:"assigned_rounds,omitempty" json:"assigned_rounds,omitempty"`
}

// IsRegistrationOpen reports whether a team may register right now:
// inside the registration window, status is registration_open, and the
// team limit has not been reached.
func (h *Hackathon) IsRegistrationOpen(now time.Time) bool {
	return !now.Before(h.RegistrationStart) &&
		!now.After(h.RegistrationEnd) &&
		h.Status == HackathonStatusRegistrationOpen &&
		h.CurrentRegistrations < h.MaxTeams
}

// RoundByID returns the embedded round with the given id, or nil.
func (h *Hackathon) RoundByID(roundID primitive.ObjectID) *Round {
	for i := range h.Rounds {
		if h.Rounds[i].ID == roundID {
			return &h.Rounds[i]
		}
	}
	return nil
}

// CurrentRound returns the single round flagged current, or nil when no
// round is active.
func (h *Hackathon) CurrentRound() *Round {
	for i := range h.Rounds {
		if h.Rounds[i].CurrentRound {
			return &h.Rounds[i]
		}
	}
	return nil
}

// CoordinatorEntry returns the hackathon-side coordinator record for the
// user, or nil.
func (h *Hackathon) CoordinatorEntry(userID primitive.ObjectID) *Coordinator {
	for i := range h.Coordinators {
		if h.Coordinators[i].UserID == userID {
			return &h.Coordinators[i]
		}
	}
	return nil
}

// HasJudge reports whether the user is in the hackathon's judges list.
func (h *Hackathon) HasJudge(userID primitive.ObjectID) bool {
	for i := range h.Judges {
		if h.Judges[i].UserID == userID {
			return true
		}
	}
	return false
}
