package teamflow

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// SubmissionInput carries a round submission from the team leader.
type SubmissionInput struct {
	Title       string
	Description string
	RepoURL     string
	DemoURL     string
	VideoURL    string
	Files       []models.SubmissionFile
}

// SubmitProject records the team's entry for a round. One submission per
// round; requirements come from the round's submission config.
func (s *Service) SubmitProject(ctx context.Context, actor authz.Actor, teamID, roundID primitive.ObjectID, in SubmissionInput) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !t.IsActiveMember(actor.ID) {
		return apperr.Forbidden("only an active team member can submit project work")
	}
	if t.RegistrationStatus != models.RegistrationStatusApproved {
		return apperr.Conflict("only approved teams can submit")
	}
	if t.Eliminated {
		return apperr.Conflict("eliminated teams cannot submit")
	}

	r := h.RoundByID(roundID)
	if r == nil {
		return apperr.NotFound("round not found")
	}
	if r.Status != models.RoundStatusOngoing {
		return apperr.Conflict("the round is not accepting submissions")
	}

	now := time.Now().UTC()
	cfg := r.SubmissionConfig
	if cfg.Deadline != nil && now.After(*cfg.Deadline) {
		return apperr.Forbidden("the submission deadline for this round has passed")
	}
	if cfg.RequireRepoURL && in.RepoURL == "" {
		return apperr.Validation("a repository URL is required for this round")
	}
	if cfg.RequireDemoURL && in.DemoURL == "" {
		return apperr.Validation("a demo URL is required for this round")
	}
	if cfg.RequireVideoURL && in.VideoURL == "" {
		return apperr.Validation("a video URL is required for this round")
	}
	if !cfg.AllowFiles && len(in.Files) > 0 {
		return apperr.Validation("file attachments are not allowed for this round")
	}
	if cfg.MaxFiles > 0 && len(in.Files) > cfg.MaxFiles {
		return apperr.Validation(fmt.Sprintf("at most %d files may be attached", cfg.MaxFiles))
	}
	for _, f := range in.Files {
		if len(cfg.AllowedFileTypes) > 0 && !containsFold(cfg.AllowedFileTypes, f.MimeType) {
			return apperr.Validation(fmt.Sprintf("file type %q is not allowed for this round", f.MimeType))
		}
		if cfg.MaxFileSizeBytes > 0 && f.SizeBytes > cfg.MaxFileSizeBytes {
			return apperr.Validation(fmt.Sprintf("file %q exceeds the %d byte limit", f.Name, cfg.MaxFileSizeBytes))
		}
	}

	sub := models.Submission{
		RoundID:     roundID,
		Title:       in.Title,
		Description: htmlsanitize.Sanitize(in.Description),
		RepoURL:     in.RepoURL,
		DemoURL:     in.DemoURL,
		VideoURL:    in.VideoURL,
		Files:       in.Files,
		SubmittedBy: actor.ID,
		SubmittedAt: now,
	}
	if err := s.teams.AddSubmission(ctx, teamID, sub); err != nil {
		if err == teamstore.ErrSubmissionExists {
			return apperr.Conflict("the team has already submitted for this round")
		}
		return err
	}
	s.log.Info("project submitted",
		zap.String("team_id", teamID.Hex()),
		zap.String("round_id", roundID.Hex()))
	s.audit.SubmissionReceived(ctx, h.ID, teamID, actor.ID, roundID, sub.Title)
	return nil
}

// ScoreInput carries one judge's evaluation.
type ScoreInput struct {
	CriteriaScores []models.CriterionScore
	Feedback       string
}

// ScoreTeam records a judge's score for a team in a round. One score per
// (round, judge), recorded as finalized immediately; there is no draft
// or revise step. Per-criterion values are validated against the round's
// judging criteria.
func (s *Service) ScoreTeam(ctx context.Context, actor authz.Actor, teamID, roundID primitive.ObjectID, in ScoreInput) (models.Score, error) {
	sc, hackathonID, err := s.buildScore(ctx, actor, teamID, roundID, in)
	if err != nil {
		return models.Score{}, err
	}
	if err := s.teams.AddScore(ctx, teamID, sc); err != nil {
		if err == teamstore.ErrScoreExists {
			return models.Score{}, apperr.Conflict("you have already scored this team for this round")
		}
		return models.Score{}, err
	}
	s.audit.ScoreRecorded(ctx, hackathonID, teamID, actor.ID, roundID, sc.TotalScore)
	return sc, nil
}

func (s *Service) buildScore(ctx context.Context, actor authz.Actor, teamID, roundID primitive.ObjectID, in ScoreInput) (models.Score, primitive.ObjectID, error) {
	var zero models.Score
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return zero, primitive.NilObjectID, err
	}

	r := h.RoundByID(roundID)
	if r == nil {
		return zero, primitive.NilObjectID, apperr.NotFound("round not found")
	}
	if !hackathonpolicy.CanJudge(actor, h, r) {
		return zero, primitive.NilObjectID, apperr.Forbidden("you are not a judge for this round")
	}
	if t.SubmissionForRound(roundID) == nil {
		return zero, primitive.NilObjectID, apperr.Conflict("the team has not submitted for this round")
	}

	// Every criterion must be scored, within its bounds, and belong to
	// the round.
	if len(in.CriteriaScores) != len(r.JudgingCriteria) {
		return zero, primitive.NilObjectID, apperr.Validation("every judging criterion must be scored")
	}
	byName := make(map[string]models.JudgingCriterion, len(r.JudgingCriteria))
	for _, c := range r.JudgingCriteria {
		byName[c.Name] = c
	}
	total := 0
	for _, cs := range in.CriteriaScores {
		c, ok := byName[cs.Criterion]
		if !ok {
			return zero, primitive.NilObjectID, apperr.Validation(fmt.Sprintf("unknown judging criterion %q", cs.Criterion))
		}
		if cs.Score < 0 || cs.Score > c.MaxScore {
			return zero, primitive.NilObjectID, apperr.Validation(fmt.Sprintf("score for %q must be between 0 and %d", c.Name, c.MaxScore))
		}
		total += cs.Score
	}

	return models.Score{
		RoundID:          roundID,
		JudgeID:          actor.ID,
		CriteriaScores:   in.CriteriaScores,
		TotalScore:       total,
		MaxPossibleScore: r.MaxPossibleScore(),
		Feedback:         htmlsanitize.Sanitize(in.Feedback),
		IsFinalized:      true,
		ScoredAt:         time.Now().UTC(),
	}, h.ID, nil
}

// EliminateTeam knocks an approved team out of the competition.
func (s *Service) EliminateTeam(ctx context.Context, actor authz.Actor, teamID, roundID primitive.ObjectID, reason string) error {
	t, h, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.requirePermission(actor, h, hackathonpolicy.PermEliminateTeams); err != nil {
		return err
	}
	if t.Eliminated {
		return apperr.Conflict("team has already been eliminated")
	}
	if h.RoundByID(roundID) == nil {
		return apperr.NotFound("round not found")
	}
	if err := s.teams.Eliminate(ctx, teamID, roundID, actor.ID, reason, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("team eliminated",
		zap.String("team_id", teamID.Hex()),
		zap.String("round_id", roundID.Hex()),
		zap.String("by", actor.ID.Hex()))
	s.audit.TeamEliminated(ctx, h.ID, teamID, actor.ID, roundID, reason)
	return nil
}
