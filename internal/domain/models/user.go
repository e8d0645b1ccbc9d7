// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents anyone who can touch a hackathon: participants, organizers,
// coordinators, and judges. Role tags accumulate as invitations are accepted.
//
// NOTE:
//   - Team membership is not embedded on User.
//     Use the teams collection to discover a user's teams.
//   - Coordinator/judge invitations ARE embedded here (coordinator_for /
//     judge_for) because they are part of the user's identity for a
//     hackathon, mirrored into the hackathon document on acceptance.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName    string             `bson:"full_name" json:"full_name"`
	FullNameCI  string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email       string             `bson:"email" json:"email"`
	Username    string             `bson:"username,omitempty" json:"username,omitempty"`
	Institution string             `bson:"institution,omitempty" json:"institution,omitempty"`
	Roles       []string           `bson:"roles,omitempty" json:"roles,omitempty"` // student | organizer | coordinator | judge | admin
	Status      string             `bson:"status,omitempty" json:"status,omitempty"`

	Profile UserProfile `bson:"profile,omitempty" json:"profile,omitempty"`

	CoordinatorFor []CoordinatorInvitation `bson:"coordinator_for,omitempty" json:"coordinator_for,omitempty"`
	JudgeFor       []JudgeInvitation       `bson:"judge_for,omitempty" json:"judge_for,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserProfile holds the public-facing profile fields that are snapshotted
// into a hackathon's judges list at acceptance time.
type UserProfile struct {
	Bio    string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Avatar string   `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Skills []string `bson:"skills,omitempty" json:"skills,omitempty"`
}

// User account statuses.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Invitation statuses shared by coordinator and judge invitations.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

// CoordinatorInvitation links a user to a hackathon they have been invited to
// coordinate. At most one record exists per (user, hackathon); re-inviting
// overwrites the pending record instead of duplicating it.
type CoordinatorInvitation struct {
	HackathonID primitive.ObjectID     `bson:"hackathon_id" json:"hackathon_id"`
	Permissions CoordinatorPermissions `bson:"permissions" json:"permissions"`
	InvitedByID primitive.ObjectID     `bson:"invited_by_id" json:"invited_by_id"`
	InvitedAt   time.Time              `bson:"invited_at" json:"invited_at"`
	Status      string                 `bson:"status" json:"status"` // pending | accepted
	AcceptedAt  *time.Time             `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`

	// Single-use token; regenerated every resend.
	InvitationToken string `bson:"invitation_token,omitempty" json:"-"`
}

// JudgeInvitation is the judge-side counterpart of CoordinatorInvitation.
// Judges carry no permission set.
type JudgeInvitation struct {
	HackathonID primitive.ObjectID `bson:"hackathon_id" json:"hackathon_id"`
	InvitedByID primitive.ObjectID `bson:"invited_by_id" json:"invited_by_id"`
	InvitedAt   time.Time          `bson:"invited_at" json:"invited_at"`
	Status      string             `bson:"status" json:"status"` // pending | accepted
	AcceptedAt  *time.Time         `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`

	// Single-use token; regenerated every resend.
	InvitationToken string `bson:"invitation_token,omitempty" json:"-"`
}

// HasRole reports whether the user carries the given role tag.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CoordinatorInvitationFor returns the coordinator invitation for the given
// hackathon, or nil if the user has none.
func (u *User) CoordinatorInvitationFor(hackathonID primitive.ObjectID) *CoordinatorInvitation {
	for i := range u.CoordinatorFor {
		if u.CoordinatorFor[i].HackathonID == hackathonID {
			return &u.CoordinatorFor[i]
		}
	}
	return nil
}

// JudgeInvitationFor returns the judge invitation for the given hackathon,
// or nil if the user has none.
func (u *User) JudgeInvitationFor(hackathonID primitive.ObjectID) *JudgeInvitation {
	for i := range u.JudgeFor {
		if u.JudgeFor[i].HackathonID == hackathonID {
			return &u.JudgeFor[i]
		}
	}
	return nil
}

// IsCoordinatorFor reports whether the user has an accepted coordinator
// invitation for the given hackathon.
func (u *User) IsCoordinatorFor(hackathonID primitive.ObjectID) bool {
	inv := u.CoordinatorInvitationFor(hackathonID)
	return inv != nil && inv.Status == InviteStatusAccepted
}

// IsJudgeFor reports whether the user has an accepted judge invitation for
// the given hackathon.
func (u *User) IsJudgeFor(hackathonID primitive.ObjectID) bool {
	inv := u.JudgeInvitationFor(hackathonID)
	return inv != nil && inv.Status == InviteStatusAccepted
}
