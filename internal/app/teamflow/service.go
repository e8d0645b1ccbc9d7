// Package teamflow drives the team lifecycle: registration against the
// capacity counter, confirmation and deadline policy, auto-approval,
// organizer decisions, join requests, roster changes, round submissions,
// judge scoring, and event-day operations.
package teamflow

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	joinrequeststore "github.com/dalemusser/hackhub/internal/app/store/joinrequests"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/auditlog"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/mailer"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

// Service wires the team lifecycle workflows.
type Service struct {
	client       *mongo.Client
	users        *userstore.Store
	hackathons   *hackathonstore.Store
	teams        *teamstore.Store
	joinRequests *joinrequeststore.Store
	mail         *mailer.Mailer
	audit        *auditlog.Logger
	baseURL      string
	siteName     string
	log          *zap.Logger
}

// New builds a Service. mail may be nil to disable notifications; audit
// may be nil to disable the audit trail; log may be nil.
func New(db *mongo.Database, mail *mailer.Mailer, audit *auditlog.Logger, baseURL, siteName string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{
		client:       db.Client(),
		users:        userstore.New(db),
		hackathons:   hackathonstore.New(db),
		teams:        teamstore.New(db),
		joinRequests: joinrequeststore.New(db),
		mail:         mail,
		audit:        audit,
		baseURL:      baseURL,
		siteName:     siteName,
		log:          log,
	}
}

func (s *Service) loadTeam(ctx context.Context, id primitive.ObjectID) (*models.Team, *models.Hackathon, error) {
	t, err := s.teams.GetByID(ctx, id)
	if err != nil {
		if err == teamstore.ErrNotFound {
			return nil, nil, apperr.NotFound("team not found")
		}
		return nil, nil, err
	}
	h, err := s.hackathons.GetByID(ctx, t.HackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, nil, apperr.NotFound("hackathon not found")
		}
		return nil, nil, err
	}
	return t, h, nil
}

func (s *Service) loadHackathon(ctx context.Context, id primitive.ObjectID) (*models.Hackathon, error) {
	h, err := s.hackathons.GetByID(ctx, id)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	return h, nil
}

func (s *Service) requirePermission(actor authz.Actor, h *models.Hackathon, perm string) error {
	if !hackathonpolicy.HasPermission(actor, h, perm) {
		return apperr.Forbidden("not allowed to perform this operation")
	}
	return nil
}

// sendDecisionEmail notifies the team leader about an approval or
// rejection. Failures are logged, never surfaced to the caller.
func (s *Service) sendDecisionEmail(t *models.Team, h *models.Hackathon, approved bool, reason string) {
	if s.mail == nil {
		return
	}
	leader := t.Leader()
	if leader == nil || leader.Email == "" {
		return
	}
	e := mailer.BuildTeamDecisionEmail(mailer.TeamDecisionEmailData{
		SiteName:      s.siteName,
		HackathonName: h.Title,
		TeamName:      t.Name,
		Approved:      approved,
		Reason:        reason,
		DashboardLink: s.baseURL + "/hackathons/" + h.Slug + "/teams/" + t.ID.Hex(),
	})
	e.To = leader.Email
	s.mail.SendBestEffort(e)
}
