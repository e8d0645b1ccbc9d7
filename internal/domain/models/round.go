// internal/domain/models/round.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Round statuses.
const (
	RoundStatusPending   = "pending"
	RoundStatusOngoing   = "ongoing"
	RoundStatusCompleted = "completed"
	RoundStatusCancelled = "cancelled"
)

// Round types.
const (
	RoundTypeSubmission   = "submission"
	RoundTypePresentation = "presentation"
	RoundTypeInterview    = "interview"
	RoundTypeWorkshop     = "workshop"
	RoundTypeOther        = "other"
)

// Round modes.
const (
	RoundModeOnline  = "online"
	RoundModeOffline = "offline"
)

// Round is an embedded judging/submission stage of a hackathon. Order is
// 1-based and assigned on creation as max(existing)+1.
type Round struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Type        string             `bson:"type" json:"type"`
	Mode        string             `bson:"mode" json:"mode"`
	Order       int                `bson:"order" json:"order"`
	StartTime   time.Time          `bson:"start_time" json:"start_time"`
	EndTime     time.Time          `bson:"end_time" json:"end_time"`

	Status       string `bson:"status" json:"status"`
	CurrentRound bool   `bson:"current_round" json:"current_round"`

	SubmissionConfig SubmissionConfig   `bson:"submission_config,omitempty" json:"submission_config,omitempty"`
	JudgingCriteria  []JudgingCriterion `bson:"judging_criteria,omitempty" json:"judging_criteria,omitempty"`

	EliminationRound bool `bson:"elimination_round" json:"elimination_round"`
	EliminationCount int  `bson:"elimination_count,omitempty" json:"elimination_count,omitempty"`
	TeamsToAdvance   int  `bson:"teams_to_advance,omitempty" json:"teams_to_advance,omitempty"`
}

// SubmissionConfig controls what a team must hand in for a round.
type SubmissionConfig struct {
	RequireRepoURL   bool       `bson:"require_repo_url" json:"require_repo_url"`
	RequireDemoURL   bool       `bson:"require_demo_url" json:"require_demo_url"`
	RequireVideoURL  bool       `bson:"require_video_url" json:"require_video_url"`
	AllowFiles       bool       `bson:"allow_files" json:"allow_files"`
	AllowedFileTypes []string   `bson:"allowed_file_types,omitempty" json:"allowed_file_types,omitempty"`
	MaxFiles         int        `bson:"max_files,omitempty" json:"max_files,omitempty"`
	MaxFileSizeBytes int64      `bson:"max_file_size_bytes,omitempty" json:"max_file_size_bytes,omitempty"`
	Deadline         *time.Time `bson:"deadline,omitempty" json:"deadline,omitempty"`
}

// JudgingCriterion is one scoring axis for a round. MaxScore bounds the
// value a judge may award for it.
type JudgingCriterion struct {
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	MaxScore    int    `bson:"max_score" json:"max_score"`
	Weight      int    `bson:"weight,omitempty" json:"weight,omitempty"`
}

// MaxPossibleScore sums the criteria max scores for the round.
func (r *Round) MaxPossibleScore() int {
	total := 0
	for _, c := range r.JudgingCriteria {
		total += c.MaxScore
	}
	return total
}
