// Package hackathons carries the hackathon CRUD operations: creation
// with slug derivation, lookup with view counting, updates, deletion,
// and public listing.
package hackathons

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/auditlog"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackhub/internal/app/system/normalize"
	"github.com/dalemusser/hackhub/internal/app/system/paging"
	"github.com/dalemusser/hackhub/internal/app/system/slug"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

type Service struct {
	hackathons *hackathonstore.Store
	teams      *teamstore.Store
	users      *userstore.Store
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
		hackathons: hackathonstore.New(db),
		teams:      teamstore.New(db),
		users:      userstore.New(db),
		audit:      audit,
		log:        log,
	}
}

// CreateInput carries the organizer-supplied fields for a new hackathon.
type CreateInput struct {
	Title       string
	Description string
	Theme       string
	Tags        []string

	RegistrationStart time.Time
	RegistrationEnd   time.Time
	StartDate         time.Time
	EndDate           time.Time
	Timezone          string

	TeamConfig      models.TeamConfig
	MaxTeams        int
	RegistrationFee models.RegistrationFee
	Eligibility     models.Eligibility
	Settings        models.HackathonSettings

	IsPublic bool
	Mode     string
	Venue    string
}

func (in *CreateInput) validate() error {
	if normalize.Name(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if !in.EndDate.After(in.StartDate) {
		return apperr.Validation("end date must be after the start date")
	}
	if !in.RegistrationEnd.After(in.RegistrationStart) {
		return apperr.Validation("registration window must end after it starts")
	}
	if in.RegistrationEnd.After(in.StartDate) {
		return apperr.Validation("registration must end on or before the start date")
	}
	if in.MaxTeams <= 0 {
		return apperr.Validation("max teams must be positive")
	}
	if tc := in.TeamConfig; tc.MinMembers > 0 && tc.MaxMembers > 0 && tc.MinMembers > tc.MaxMembers {
		return apperr.Validation("minimum team size cannot exceed the maximum")
	}
	return nil
}

// Create inserts a draft hackathon for the organizer. The slug derives
// from the title; collisions retry with a numeric suffix.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (models.Hackathon, error) {
	var zero models.Hackathon
	if !actor.HasRole(authz.RoleOrganizer) && !actor.IsAdmin() {
		return zero, apperr.Forbidden("only organizers can create hackathons")
	}
	if err := in.validate(); err != nil {
		return zero, err
	}

	organizer, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if err == userstore.ErrNotFound {
			return zero, apperr.NotFound("organizer account not found")
		}
		return zero, err
	}

	sl, err := s.freeSlug(ctx, in.Title)
	if err != nil {
		return zero, err
	}

	h := models.Hackathon{
		Title:       in.Title,
		Slug:        sl,
		Description: htmlsanitize.Sanitize(in.Description),
		Theme:       in.Theme,
		Tags:        in.Tags,
		OrganizerID: actor.ID,
		OrganizerDetails: models.OrganizerDetails{
			Name:  organizer.FullName,
			Email: organizer.Email,
		},
		RegistrationStart: in.RegistrationStart,
		RegistrationEnd:   in.RegistrationEnd,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		Timezone:          in.Timezone,
		TeamConfig:        in.TeamConfig,
		MaxTeams:          in.MaxTeams,
		RegistrationFee:   in.RegistrationFee,
		Eligibility:       in.Eligibility,
		Settings:          in.Settings,
		IsPublic:          in.IsPublic,
		Mode:              in.Mode,
		Venue:             in.Venue,
	}
	created, err := s.hackathons.Create(ctx, h)
	if err != nil {
		if err == hackathonstore.ErrDuplicateSlug {
			// Lost a race for the slug; one retry with a fresh suffix.
			if sl, err = s.freeSlug(ctx, in.Title); err != nil {
				return zero, err
			}
			h.Slug = sl
			created, err = s.hackathons.Create(ctx, h)
		}
		if err != nil {
			return zero, err
		}
	}

	s.log.Info("hackathon created",
		zap.String("hackathon_id", created.ID.Hex()),
		zap.String("slug", created.Slug))
	return created, nil
}

func (s *Service) freeSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		return "", apperr.Validation("title must contain letters or digits")
	}
	for n := 1; ; n++ {
		candidate := slug.WithSuffix(base, n)
		exists, err := s.hackathons.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// Get fetches a hackathon by id, counting the view. Drafts and private
// hackathons stay hidden from outsiders.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id primitive.ObjectID) (*models.Hackathon, error) {
	h, err := s.hackathons.GetByID(ctx, id)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	return s.view(ctx, actor, h)
}

// GetBySlug is the public URL lookup.
func (s *Service) GetBySlug(ctx context.Context, actor authz.Actor, sl string) (*models.Hackathon, error) {
	h, err := s.hackathons.GetBySlug(ctx, sl)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	return s.view(ctx, actor, h)
}

func (s *Service) view(ctx context.Context, actor authz.Actor, h *models.Hackathon) (*models.Hackathon, error) {
	if !hackathonpolicy.CanView(actor, h) {
		return nil, apperr.NotFound("hackathon not found")
	}
	if err := s.hackathons.IncrementViews(ctx, h.ID); err != nil {
		// Views are cosmetic; the read still succeeds.
		s.log.Warn("failed to count view", zap.String("hackathon_id", h.ID.Hex()), zap.Error(err))
	}
	return h, nil
}

// UpdateInput holds the editable hackathon fields. Nil pointers leave
// the stored value untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Theme       *string
	Tags        []string

	RegistrationStart *time.Time
	RegistrationEnd   *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
	Timezone          *string

	TeamConfig      *models.TeamConfig
	MaxTeams        *int
	RegistrationFee *models.RegistrationFee
	Eligibility     *models.Eligibility
	Settings        *models.HackathonSettings

	IsPublic *bool
	Mode     *string
	Venue    *string
}

// Update applies a partial edit. Changing the title does not move the
// slug; published URLs stay stable.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id primitive.ObjectID, in UpdateInput) (*models.Hackathon, error) {
	h, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Title != nil {
		if normalize.Name(*in.Title) == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		set["title"] = *in.Title
	}
	if in.Description != nil {
		set["description"] = htmlsanitize.Sanitize(*in.Description)
	}
	if in.Theme != nil {
		set["theme"] = *in.Theme
	}
	if in.Tags != nil {
		set["tags"] = normalize.Tags(in.Tags)
	}
	if in.RegistrationStart != nil {
		set["registration_start"] = *in.RegistrationStart
	}
	if in.RegistrationEnd != nil {
		set["registration_end"] = *in.RegistrationEnd
	}
	if in.StartDate != nil {
		set["start_date"] = *in.StartDate
	}
	if in.EndDate != nil {
		set["end_date"] = *in.EndDate
	}
	if in.Timezone != nil {
		set["timezone"] = *in.Timezone
	}
	if in.TeamConfig != nil {
		set["team_config"] = *in.TeamConfig
	}
	if in.MaxTeams != nil {
		if *in.MaxTeams < h.CurrentRegistrations {
			return nil, apperr.Conflict("max teams cannot drop below current registrations")
		}
		set["max_teams"] = *in.MaxTeams
	}
	if in.RegistrationFee != nil {
		set["registration_fee"] = *in.RegistrationFee
	}
	if in.Eligibility != nil {
		set["eligibility"] = *in.Eligibility
	}
	if in.Settings != nil {
		set["settings"] = *in.Settings
	}
	if in.IsPublic != nil {
		set["is_public"] = *in.IsPublic
	}
	if in.Mode != nil {
		set["mode"] = *in.Mode
	}
	if in.Venue != nil {
		set["venue"] = *in.Venue
	}
	if len(set) == 0 {
		return h, nil
	}

	if err := s.hackathons.Update(ctx, id, set); err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	return s.hackathons.GetByID(ctx, id)
}

// SetStatus moves the hackathon through its lifecycle.
func (s *Service) SetStatus(ctx context.Context, actor authz.Actor, id primitive.ObjectID, status string) error {
	switch status {
	case models.HackathonStatusDraft, models.HackathonStatusPublished,
		models.HackathonStatusRegistrationOpen, models.HackathonStatusRegistrationClosed,
		models.HackathonStatusOngoing, models.HackathonStatusCompleted,
		models.HackathonStatusCancelled:
	default:
		return apperr.Validation("unknown hackathon status")
	}
	h, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.hackathons.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.audit.HackathonStatusChanged(ctx, id, actor.ID, h.Status, status)
	return nil
}

// Delete removes a hackathon that has no registered teams.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id primitive.ObjectID) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}
	n, err := s.teams.CountByHackathon(ctx, id, "")
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.WithDetail(apperr.KindConflict,
			"hackathon has registered teams and cannot be deleted",
			map[string]any{"team_count": n})
	}
	if err := s.hackathons.Delete(ctx, id); err != nil {
		if err == hackathonstore.ErrNotFound {
			return apperr.NotFound("hackathon not found")
		}
		return err
	}
	s.log.Info("hackathon deleted", zap.String("hackathon_id", id.Hex()))
	return nil
}

// ListFilter narrows the public browse listing.
type ListFilter struct {
	Status      string
	Tag         string
	TitlePrefix string
	OrganizerID primitive.ObjectID
	Limit       int64
}

// List returns hackathons for browse pages. Non-staff callers see only
// public, non-draft entries; passing the actor's own OrganizerID lifts
// that restriction for their dashboard.
func (s *Service) List(ctx context.Context, actor authz.Actor, f ListFilter) ([]models.Hackathon, error) {
	sf := hackathonstore.ListFilter{
		Status:      f.Status,
		Tag:         f.Tag,
		TitlePrefix: f.TitlePrefix,
		Limit:       f.Limit,
	}
	if !f.OrganizerID.IsZero() {
		if f.OrganizerID != actor.ID && !actor.IsAdmin() {
			return nil, apperr.Forbidden("cannot list another organizer's hackathons")
		}
		sf.OrganizerID = f.OrganizerID
	} else if !actor.IsAdmin() {
		sf.PublicOnly = true
	}
	return s.hackathons.List(ctx, sf)
}

// Page is one keyset page of browse results with opaque cursors for
// walking forward and backward through the catalog.
type Page struct {
	Hackathons []models.Hackathon
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
}

// Browse returns one page of the catalog sorted by title. Pass the
// NextCursor of a page as after (or PrevCursor as before) to move
// through the listing; both empty yields the first page. The same
// visibility rules as List apply.
func (s *Service) Browse(ctx context.Context, actor authz.Actor, f ListFilter, before, after string) (Page, error) {
	sf := hackathonstore.ListFilter{
		Status:      f.Status,
		Tag:         f.Tag,
		TitlePrefix: f.TitlePrefix,
	}
	if !f.OrganizerID.IsZero() {
		if f.OrganizerID != actor.ID && !actor.IsAdmin() {
			return Page{}, apperr.Forbidden("cannot list another organizer's hackathons")
		}
		sf.OrganizerID = f.OrganizerID
	} else if !actor.IsAdmin() {
		sf.PublicOnly = true
	}

	rows, res, err := s.hackathons.ListPage(ctx, sf, before, after)
	if err != nil {
		return Page{}, err
	}

	prev, next := paging.BuildCursors(rows,
		func(h models.Hackathon) string { return h.TitleCI },
		func(h models.Hackathon) primitive.ObjectID { return h.ID },
	)
	return Page{
		Hackathons: rows,
		HasPrev:    res.HasPrev,
		HasNext:    res.HasNext,
		PrevCursor: prev,
		NextCursor: next,
	}, nil
}

func (s *Service) manageable(ctx context.Context, actor authz.Actor, id primitive.ObjectID) (*models.Hackathon, error) {
	h, err := s.hackathons.GetByID(ctx, id)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	if !hackathonpolicy.CanManage(actor, h) {
		return nil, apperr.Forbidden("only the organizer can manage this hackathon")
	}
	return h, nil
}
