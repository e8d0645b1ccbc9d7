// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team registration statuses.
const (
	RegistrationStatusPending  = "pending"
	RegistrationStatusApproved = "approved"
	RegistrationStatusRejected = "rejected"
)

// Team submission statuses (the registration workflow, not round
// submissions).
const (
	SubmissionStatusDraft     = "draft"
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusApproved  = "approved"
)

// Member statuses.
const (
	MemberStatusActive  = "active"
	MemberStatusRemoved = "removed"
	MemberStatusLeft    = "left"
)

// Member roles within a team.
const (
	MemberRoleLeader = "leader"
	MemberRoleMember = "member"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Sentinel recorded as ApprovedBy when auto-approval approves a team.
const AutoApprovedBy = "system"

// Team is one registration in a hackathon. Members, per-round submissions,
// scores, and notes are embedded.
type Team struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HackathonID primitive.ObjectID `bson:"hackathon_id" json:"hackathon_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	LeaderID primitive.ObjectID `bson:"leader_id" json:"leader_id"`
	Members  []TeamMember       `bson:"members" json:"members"`

	RegistrationStatus string `bson:"registration_status" json:"registration_status"`
	SubmissionStatus   string `bson:"submission_status" json:"submission_status"`

	Payment Payment `bson:"payment" json:"payment"`

	Project     ProjectInfo  `bson:"project,omitempty" json:"project,omitempty"`
	Submissions []Submission `bson:"submissions,omitempty" json:"submissions,omitempty"`
	Scores      []Score      `bson:"scores,omitempty" json:"scores,omitempty"`
	Notes       []Note       `bson:"notes,omitempty" json:"notes,omitempty"`

	CheckIn    CheckIn `bson:"check_in,omitempty" json:"check_in,omitempty"`
	TableNo    string  `bson:"table_no,omitempty" json:"table_no,omitempty"`
	TeamNumber int     `bson:"team_number,omitempty" json:"team_number,omitempty"`

	AutoApprovalChecked  bool   `bson:"auto_approval_checked" json:"auto_approval_checked"`
	AutoApprovalEligible bool   `bson:"auto_approval_eligible" json:"auto_approval_eligible"`
	AutoApprovalReason   string `bson:"auto_approval_reason,omitempty" json:"auto_approval_reason,omitempty"`

	SubmittedAt *time.Time `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	ApprovedBy  string     `bson:"approved_by,omitempty" json:"approved_by,omitempty"`

	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	Eliminated        bool                `bson:"eliminated" json:"eliminated"`
	EliminatedRoundID *primitive.ObjectID `bson:"eliminated_round_id,omitempty" json:"eliminated_round_id,omitempty"`
	EliminatedReason  string              `bson:"eliminated_reason,omitempty" json:"eliminated_reason,omitempty"`
	EliminatedByID    *primitive.ObjectID `bson:"eliminated_by_id,omitempty" json:"eliminated_by_id,omitempty"`
	EliminatedAt      *time.Time          `bson:"eliminated_at,omitempty" json:"eliminated_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TeamMember is a membership record. Departures are soft: status flips to
// removed or left and the entry stays for history.
type TeamMember struct {
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name        string             `bson:"name,omitempty" json:"name,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Institution string             `bson:"institution,omitempty" json:"institution,omitempty"`
	Role        string             `bson:"role" json:"role"`
	Status      string             `bson:"status" json:"status"`
	JoinedAt    time.Time          `bson:"joined_at" json:"joined_at"`
}

// Payment tracks the registration fee for the team.
type Payment struct {
	Amount        int64      `bson:"amount" json:"amount"`
	Currency      string     `bson:"currency,omitempty" json:"currency,omitempty"`
	Status        string     `bson:"status" json:"status"`
	TransactionID string     `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PaidAt        *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// ProjectInfo is the team's overall project description, distinct from
// per-round submissions.
type ProjectInfo struct {
	Title       string   `bson:"title,omitempty" json:"title,omitempty"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	TechStack   []string `bson:"tech_stack,omitempty" json:"tech_stack,omitempty"`
}

// Submission is a team's entry for one round. At most one per round.
type Submission struct {
	RoundID     primitive.ObjectID `bson:"round_id" json:"round_id"`
	Title       string             `bson:"title,omitempty" json:"title,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	RepoURL     string             `bson:"repo_url,omitempty" json:"repo_url,omitempty"`
	DemoURL     string             `bson:"demo_url,omitempty" json:"demo_url,omitempty"`
	VideoURL    string             `bson:"video_url,omitempty" json:"video_url,omitempty"`
	Files       []SubmissionFile   `bson:"files,omitempty" json:"files,omitempty"`
	SubmittedBy primitive.ObjectID `bson:"submitted_by" json:"submitted_by"`
	SubmittedAt time.Time          `bson:"submitted_at" json:"submitted_at"`
}

// SubmissionFile is an uploaded artifact reference. Storage lives
// elsewhere; only the pointer is kept here.
type SubmissionFile struct {
	Name      string `bson:"name" json:"name"`
	URL       string `bson:"url" json:"url"`
	MimeType  string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	SizeBytes int64  `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`
}

// Score is one judge's evaluation of the team for one round. At most one
// per (round, judge) pair.
type Score struct {
	RoundID          primitive.ObjectID `bson:"round_id" json:"round_id"`
	JudgeID          primitive.ObjectID `bson:"judge_id" json:"judge_id"`
	CriteriaScores   []CriterionScore   `bson:"criteria_scores,omitempty" json:"criteria_scores,omitempty"`
	TotalScore       int                `bson:"total_score" json:"total_score"`
	MaxPossibleScore int                `bson:"max_possible_score" json:"max_possible_score"`
	Feedback         string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
	IsFinalized      bool               `bson:"is_finalized" json:"is_finalized"`
	ScoredAt         time.Time          `bson:"scored_at" json:"scored_at"`
}

// CriterionScore is the score awarded for one judging criterion.
type CriterionScore struct {
	Criterion string `bson:"criterion" json:"criterion"`
	Score     int    `bson:"score" json:"score"`
	MaxScore  int    `bson:"max_score" json:"max_score"`
	Comment   string `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Note is an organizer/coordinator annotation. Members only ever see
// public notes.
type Note struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID  primitive.ObjectID `bson:"author_id" json:"author_id"`
	Content   string             `bson:"content" json:"content"`
	IsPublic  bool               `bson:"is_public" json:"is_public"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// CheckIn records on-site arrival.
type CheckIn struct {
	TeamCheckedIn   bool                 `bson:"team_checked_in" json:"team_checked_in"`
	CheckedInAt     *time.Time           `bson:"checked_in_at,omitempty" json:"checked_in_at,omitempty"`
	CheckedInByID   *primitive.ObjectID  `bson:"checked_in_by_id,omitempty" json:"checked_in_by_id,omitempty"`
	MembersCheckedIn []primitive.ObjectID `bson:"members_checked_in,omitempty" json:"members_checked_in,omitempty"`
}

// ActiveMembers returns the members whose status is active.
func (t *Team) ActiveMembers() []TeamMember {
	out := make([]TeamMember, 0, len(t.Members))
	for _, m := range t.Members {
		if m.Status == MemberStatusActive {
			out = append(out, m)
		}
	}
	return out
}

// ActiveMemberCount counts members with status active.
func (t *Team) ActiveMemberCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Status == MemberStatusActive {
			n++
		}
	}
	return n
}

// MemberByUserID returns the membership record for the user, or nil. The
// record is returned regardless of status.
func (t *Team) MemberByUserID(userID primitive.ObjectID) *TeamMember {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return &t.Members[i]
		}
	}
	return nil
}

// IsActiveMember reports whether the user is an active member of the team.
func (t *Team) IsActiveMember(userID primitive.ObjectID) bool {
	m := t.MemberByUserID(userID)
	return m != nil && m.Status == MemberStatusActive
}

// IsLeader reports whether the user leads the team.
func (t *Team) IsLeader(userID primitive.ObjectID) bool {
	return t.LeaderID == userID
}

// Leader returns the leader's membership record, or nil when the leader is
// somehow missing from the members array.
func (t *Team) Leader() *TeamMember {
	return t.MemberByUserID(t.LeaderID)
}

// SubmissionForRound returns the team's submission for the round, or nil.
func (t *Team) SubmissionForRound(roundID primitive.ObjectID) *Submission {
	for i := range t.Submissions {
		if t.Submissions[i].RoundID == roundID {
			return &t.Submissions[i]
		}
	}
	return nil
}

// ScoreFor returns the score a judge gave for a round, or nil.
func (t *Team) ScoreFor(roundID, judgeID primitive.ObjectID) *Score {
	for i := range t.Scores {
		if t.Scores[i].RoundID == roundID && t.Scores[i].JudgeID == judgeID {
			return &t.Scores[i]
		}
	}
	return nil
}

// OverallScore totals every finalized score across all rounds.
func (t *Team) OverallScore() int {
	total := 0
	for _, s := range t.Scores {
		if !s.IsFinalized {
			continue
		}
		total += s.TotalScore
	}
	return total
}

// RoundScore totals the team's scores for one round.
func (t *Team) RoundScore(roundID primitive.ObjectID) int {
	total := 0
	for _, s := range t.Scores {
		if s.RoundID == roundID {
			total += s.TotalScore
		}
	}
	return total
}

// PublicNotes returns only the notes flagged public.
func (t *Team) PublicNotes() []Note {
	out := make([]Note, 0, len(t.Notes))
	for _, n := range t.Notes {
		if n.IsPublic {
			out = append(out, n)
		}
	}
	return out
}
