// Package rounds manages the embedded round list of a hackathon:
// creation, editing, ordering, status transitions, and the single
// current-round flag.
package rounds

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/auditlog"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/txn"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// Service wires round management.
type Service struct {
	client     *mongo.Client
	hackathons *hackathonstore.Store
	teams      *teamstore.Store
	audit      *auditlog.Logger
	log        *zap.Logger
}

// New builds a Service. audit may be nil to disable the audit trail;
// log may be nil.
func New(db *mongo.Database, audit *auditlog.Logger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{
		client:     db.Client(),
		hackathons: hackathonstore.New(db),
		teams:      teamstore.New(db),
		audit:      audit,
		log:        log,
	}
}

// RoundInput carries the editable fields of a round.
type RoundInput struct {
	Name             string
	Description      string
	Type             string
	Mode             string
	StartTime        time.Time
	EndTime          time.Time
	SubmissionConfig models.SubmissionConfig
	JudgingCriteria  []models.JudgingCriterion
	EliminationRound bool
	EliminationCount int
	TeamsToAdvance   int
}

func (in RoundInput) validate() error {
	if normalize.Name(in.Name) == "" {
		return apperr.Validation("round name is required")
	}
	switch in.Type {
	case models.RoundTypeSubmission, models.RoundTypePresentation,
		models.RoundTypeInterview, models.RoundTypeWorkshop, models.RoundTypeOther:
	default:
		return apperr.Validation("unknown round type")
	}
	switch in.Mode {
	case models.RoundModeOnline, models.RoundModeOffline:
	default:
		return apperr.Validation("round mode must be online or offline")
	}
	if !in.EndTime.After(in.StartTime) {
		return apperr.Validation("round end time must be after its start time")
	}
	if in.EliminationCount < 0 {
		return apperr.Validation("elimination count cannot be negative")
	}
	for _, c := range in.JudgingCriteria {
		if c.MaxScore <= 0 {
			return apperr.Validation("judging criterion max score must be positive")
		}
	}
	return nil
}

// CreateRound appends a new round at the end of the sequence. Order is
// one past the current maximum, so rounds stay densely numbered as they
// are added.
func (s *Service) CreateRound(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, in RoundInput) (models.Round, error) {
	var zero models.Round
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return zero, err
	}
	if err := in.validate(); err != nil {
		return zero, err
	}

	maxOrder := 0
	for i := range h.Rounds {
		if h.Rounds[i].Order > maxOrder {
			maxOrder = h.Rounds[i].Order
		}
	}

	r := models.Round{
		Name:             normalize.Name(in.Name),
		Description:      in.Description,
		Type:             in.Type,
		Mode:             in.Mode,
		Order:            maxOrder + 1,
		StartTime:        in.StartTime.UTC(),
		EndTime:          in.EndTime.UTC(),
		Status:           models.RoundStatusPending,
		SubmissionConfig: in.SubmissionConfig,
		JudgingCriteria:  in.JudgingCriteria,
		EliminationRound: in.EliminationRound,
		EliminationCount: in.EliminationCount,
		TeamsToAdvance:   in.TeamsToAdvance,
	}
	return s.hackathons.AddRound(ctx, hackathonID, r)
}

// UpdateRound edits a round's fields. Status and the current flag are
// excluded; they only move through SetRoundStatus.
func (s *Service) UpdateRound(ctx context.Context, actor authz.Actor, hackathonID, roundID primitive.ObjectID, in RoundInput) error {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return err
	}
	if h.RoundByID(roundID) == nil {
		return apperr.NotFound("round not found")
	}
	if err := in.validate(); err != nil {
		return err
	}
	return s.hackathons.UpdateRound(ctx, hackathonID, roundID, bson.M{
		"name":              normalize.Name(in.Name),
		"description":       in.Description,
		"type":              in.Type,
		"mode":              in.Mode,
		"start_time":        in.StartTime.UTC(),
		"end_time":          in.EndTime.UTC(),
		"submission_config": in.SubmissionConfig,
		"judging_criteria":  in.JudgingCriteria,
		"elimination_round": in.EliminationRound,
		"elimination_count": in.EliminationCount,
		"teams_to_advance":  in.TeamsToAdvance,
	})
}

// DeleteRound removes a round. The current round cannot be deleted, and
// neither can a round that teams have already submitted to; the error
// detail reports how many submissions block the deletion.
func (s *Service) DeleteRound(ctx context.Context, actor authz.Actor, hackathonID, roundID primitive.ObjectID) error {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return err
	}
	r := h.RoundByID(roundID)
	if r == nil {
		return apperr.NotFound("round not found")
	}
	if r.CurrentRound {
		return apperr.Conflict("the current round cannot be deleted")
	}
	n, err := s.teams.CountSubmissionsForRound(ctx, hackathonID, roundID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.WithDetail(apperr.KindConflict, "round has submissions and cannot be deleted",
			map[string]any{"submission_count": n})
	}
	return s.hackathons.RemoveRound(ctx, hackathonID, roundID)
}

// ReorderRounds renumbers rounds to match the given id sequence: the
// first id gets order 1, the second 2, and so on. Rounds absent from the
// sequence keep their current order.
func (s *Service) ReorderRounds(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, orderedIDs []primitive.ObjectID) error {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return err
	}
	for _, id := range orderedIDs {
		if h.RoundByID(id) == nil {
			return apperr.Validation("round does not belong to this hackathon")
		}
	}
	return txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		for pos, id := range orderedIDs {
			if err := s.hackathons.SetRoundOrder(ctx, hackathonID, id, pos+1); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetRoundStatus transitions a round. Moving a round to ongoing makes it
// current and demotes any other current round in the same write;
// completing or cancelling clears the round's own current flag.
func (s *Service) SetRoundStatus(ctx context.Context, actor authz.Actor, hackathonID, roundID primitive.ObjectID, status string) error {
	h, err := s.manageableHackathon(ctx, actor, hackathonID)
	if err != nil {
		return err
	}
	if h.RoundByID(roundID) == nil {
		return apperr.NotFound("round not found")
	}
	switch status {
	case models.RoundStatusPending, models.RoundStatusOngoing,
		models.RoundStatusCompleted, models.RoundStatusCancelled:
	default:
		return apperr.Validation("unknown round status")
	}
	if err := s.hackathons.SetRoundStatus(ctx, hackathonID, roundID, status); err != nil {
		return err
	}
	s.audit.RoundStatusChanged(ctx, hackathonID, actor.ID, roundID, status)
	return nil
}

// GetCurrentRound returns the round currently flagged ongoing-current,
// or NotFound when no round is active.
func (s *Service) GetCurrentRound(ctx context.Context, hackathonID primitive.ObjectID) (*models.Round, error) {
	h, err := s.hackathons.GetByID(ctx, hackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	r := h.CurrentRound()
	if r == nil {
		return nil, apperr.NotFound("no round is currently active")
	}
	return r, nil
}

// ListRounds returns the rounds sorted by order.
func (s *Service) ListRounds(ctx context.Context, hackathonID primitive.ObjectID) ([]models.Round, error) {
	h, err := s.hackathons.GetByID(ctx, hackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	out := make([]models.Round, len(h.Rounds))
	copy(out, h.Rounds)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
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
