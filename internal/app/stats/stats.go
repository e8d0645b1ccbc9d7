// Package stats derives dashboard counts, leaderboards, participant
// listings, and tabular exports from hackathon and team data. Everything
// here is read-only.
package stats

import (
	"context"
	"io"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/hackhub/internal/app/policy/hackathonpolicy"
	hackathonstore "github.com/dalemusser/hackhub/internal/app/store/hackathons"
	teamstore "github.com/dalemusser/hackhub/internal/app/store/teams"
	"github.com/dalemusser/hackhub/internal/app/system/apperr"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/csvutil"
	"github.com/dalemusser/hackhub/internal/domain/models"
)

type Service struct {
	hackathons *hackathonstore.Store
	teams      *teamstore.Store
}

func New(db *mongo.Database) *Service {
	return &Service{
		hackathons: hackathonstore.New(db),
		teams:      teamstore.New(db),
	}
}

// HackathonStats is the organizer dashboard summary.
type HackathonStats struct {
	TeamsByStatus     map[string]int `json:"teams_by_status"`
	TeamsCheckedIn    int            `json:"teams_checked_in"`
	MembersCheckedIn  int            `json:"members_checked_in"`
	Eliminated        int            `json:"eliminated"`
	TotalParticipants int            `json:"total_participants"`
	TotalRevenue      int64          `json:"total_revenue"`

	SubmissionsByRound []RoundSubmissions `json:"submissions_by_round"`

	CurrentRegistrations int     `json:"current_registrations"`
	MaxTeams             int     `json:"max_teams"`
	PercentFilled        float64 `json:"percent_filled"`
}

// RoundSubmissions counts the submissions received for one round.
type RoundSubmissions struct {
	RoundID   primitive.ObjectID `json:"round_id"`
	RoundName string             `json:"round_name"`
	Count     int                `json:"count"`
}

// HackathonStats computes the summary in one pass over the hackathon's
// teams. Total participants counts active members; revenue sums only
// completed payments.
func (s *Service) HackathonStats(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID) (HackathonStats, error) {
	var zero HackathonStats
	h, teams, err := s.loadForStaff(ctx, actor, hackathonID, hackathonpolicy.PermViewTeams)
	if err != nil {
		return zero, err
	}

	st := HackathonStats{
		TeamsByStatus:        map[string]int{},
		CurrentRegistrations: h.CurrentRegistrations,
		MaxTeams:             h.MaxTeams,
	}
	if h.MaxTeams > 0 {
		st.PercentFilled = float64(h.CurrentRegistrations) / float64(h.MaxTeams) * 100
	}

	byRound := make(map[primitive.ObjectID]int)
	for i := range teams {
		t := &teams[i]
		st.TeamsByStatus[t.RegistrationStatus]++
		if t.CheckIn.TeamCheckedIn {
			st.TeamsCheckedIn++
		}
		st.MembersCheckedIn += len(t.CheckIn.MembersCheckedIn)
		if t.Eliminated {
			st.Eliminated++
		}
		st.TotalParticipants += t.ActiveMemberCount()
		if t.Payment.Status == models.PaymentStatusCompleted {
			st.TotalRevenue += t.Payment.Amount
		}
		for _, sub := range t.Submissions {
			byRound[sub.RoundID]++
		}
	}

	// Report rounds in their configured order, including rounds with no
	// submissions yet.
	rounds := append([]models.Round(nil), h.Rounds...)
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Order < rounds[j].Order })
	for _, r := range rounds {
		st.SubmissionsByRound = append(st.SubmissionsByRound, RoundSubmissions{
			RoundID:   r.ID,
			RoundName: r.Name,
			Count:     byRound[r.ID],
		})
	}
	return st, nil
}

// LeaderboardEntry is one ranked team. Score is the cumulative total for
// the overall board, or the average finalized judge score when a single
// round is requested.
type LeaderboardEntry struct {
	Rank       int                `json:"rank"`
	TeamID     primitive.ObjectID `json:"team_id"`
	TeamName   string             `json:"team_name"`
	TeamNumber int                `json:"team_number,omitempty"`
	Score      float64            `json:"score"`
}

// Leaderboard ranks the approved, non-eliminated teams. With a zero
// roundID teams sort by overall score; otherwise by the requested
// round's average finalized score. Ties keep their relative order.
func (s *Service) Leaderboard(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, roundID primitive.ObjectID) ([]LeaderboardEntry, error) {
	h, err := s.hackathons.GetByID(ctx, hackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, apperr.NotFound("hackathon not found")
		}
		return nil, err
	}
	if !hackathonpolicy.CanView(actor, h) {
		return nil, apperr.Forbidden("not allowed to view this hackathon")
	}
	if !roundID.IsZero() && h.RoundByID(roundID) == nil {
		return nil, apperr.NotFound("round not found")
	}

	teams, err := s.teams.ListByHackathon(ctx, hackathonID, teamstore.ListFilter{
		RegistrationStatus: models.RegistrationStatusApproved,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		if t.Eliminated {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			TeamID:     t.ID,
			TeamName:   t.Name,
			TeamNumber: t.TeamNumber,
			Score:      boardScore(t, roundID),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func boardScore(t *models.Team, roundID primitive.ObjectID) float64 {
	if roundID.IsZero() {
		return float64(t.OverallScore())
	}
	total, n := 0, 0
	for _, sc := range t.Scores {
		if sc.RoundID == roundID && sc.IsFinalized {
			total += sc.TotalScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// Participant is one active team member in the flattened roster.
type Participant struct {
	UserID      primitive.ObjectID `json:"user_id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Institution string             `json:"institution,omitempty"`
	TeamID      primitive.ObjectID `json:"team_id"`
	TeamName    string             `json:"team_name"`
	Role        string             `json:"role"`
	CheckedIn   bool               `json:"checked_in"`
}

// Participants flattens every active member across the hackathon's teams.
func (s *Service) Participants(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID) ([]Participant, error) {
	_, teams, err := s.loadForStaff(ctx, actor, hackathonID, hackathonpolicy.PermViewTeams)
	if err != nil {
		return nil, err
	}

	var out []Participant
	for i := range teams {
		t := &teams[i]
		checked := make(map[primitive.ObjectID]bool, len(t.CheckIn.MembersCheckedIn))
		for _, id := range t.CheckIn.MembersCheckedIn {
			checked[id] = true
		}
		for _, m := range t.ActiveMembers() {
			out = append(out, Participant{
				UserID:      m.UserID,
				Name:        m.Name,
				Email:       m.Email,
				Institution: m.Institution,
				TeamID:      t.ID,
				TeamName:    t.Name,
				Role:        m.Role,
				CheckedIn:   checked[m.UserID],
			})
		}
	}
	return out, nil
}

// ExportTeamsCSV streams the hackathon's team roster to w.
func (s *Service) ExportTeamsCSV(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, w io.Writer) error {
	_, teams, err := s.loadForStaff(ctx, actor, hackathonID, hackathonpolicy.PermViewTeams)
	if err != nil {
		return err
	}
	return csvutil.WriteTeams(w, teams)
}

func (s *Service) loadForStaff(ctx context.Context, actor authz.Actor, hackathonID primitive.ObjectID, perm string) (*models.Hackathon, []models.Team, error) {
	h, err := s.hackathons.GetByID(ctx, hackathonID)
	if err != nil {
		if err == hackathonstore.ErrNotFound {
			return nil, nil, apperr.NotFound("hackathon not found")
		}
		return nil, nil, err
	}
	if !hackathonpolicy.HasPermission(actor, h, perm) {
		return nil, nil, apperr.Forbidden("not allowed to view this hackathon's data")
	}
	teams, err := s.teams.ListByHackathon(ctx, hackathonID, teamstore.ListFilter{Limit: csvutil.MaxExportRows})
	if err != nil {
		return nil, nil, err
	}
	return h, teams, nil
}
