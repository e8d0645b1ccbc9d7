// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/hackhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Registration controls logging for team lifecycle events
	// (registration, confirmation, decisions, withdrawal).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Registration string
	// Judging controls logging for submission, scoring, and elimination events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Judging string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.String("hackathon_id", event.HackathonID.Hex()),
	}

	if event.TeamID != nil {
		fields = append(fields, zap.String("team_id", event.TeamID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	l.zapLog.Info("audit event", fields...)
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryRegistration, audit.CategoryEventDay:
		setting = l.config.Registration
	case audit.CategoryJudging:
		setting = l.config.Judging
	default:
		setting = "all" // Default to logging everything for unknown categories
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Registration Events ---

// TeamRegistered logs a new team registration.
func (l *Logger) TeamRegistered(ctx context.Context, hackathonID, teamID, leaderID primitive.ObjectID, teamName string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryRegistration,
		EventType:   audit.EventTeamRegistered,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &leaderID,
		Details: map[string]string{
			"team_name": teamName,
		},
	})
}

// TeamConfirmed logs a team submitting its registration for review.
func (l *Logger) TeamConfirmed(ctx context.Context, hackathonID, teamID, actorID primitive.ObjectID, autoApproved bool) {
	details := map[string]string{}
	if autoApproved {
		details["auto_approved"] = "true"
	}
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryRegistration,
		EventType:   audit.EventTeamConfirmed,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
		Details:     details,
	})
}

// TeamApproved logs an organizer approving a team.
func (l *Logger) TeamApproved(ctx context.Context, hackathonID, teamID, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryRegistration,
		EventType:   audit.EventTeamApproved,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
	})
}

// TeamRejected logs an organizer rejecting a team with the stated reason.
func (l *Logger) TeamRejected(ctx context.Context, hackathonID, teamID, actorID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryRegistration,
		EventType:   audit.EventTeamRejected,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
		Details: map[string]string{
			"reason": reason,
		},
	})
}

// TeamWithdrawn logs a leader withdrawing their team.
func (l *Logger) TeamWithdrawn(ctx context.Context, hackathonID, teamID, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryRegistration,
		EventType:   audit.EventTeamWithdrawn,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
	})
}

// --- Judging Events ---

// SubmissionReceived logs a project submission for a round.
func (l *Logger) SubmissionReceived(ctx context.Context, hackathonID, teamID, actorID, roundID primitive.ObjectID, title string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryJudging,
		EventType:   audit.EventSubmissionReceived,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
		Details: map[string]string{
			"round_id": roundID.Hex(),
			"title":    title,
		},
	})
}

// ScoreRecorded logs a judge scoring a team.
func (l *Logger) ScoreRecorded(ctx context.Context, hackathonID, teamID, judgeID, roundID primitive.ObjectID, total int) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryJudging,
		EventType:   audit.EventScoreRecorded,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &judgeID,
		Details: map[string]string{
			"round_id": roundID.Hex(),
			"total":    strconv.Itoa(total),
		},
	})
}

// TeamEliminated logs a team being eliminated in a round.
func (l *Logger) TeamEliminated(ctx context.Context, hackathonID, teamID, actorID, roundID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryJudging,
		EventType:   audit.EventTeamEliminated,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
		Details: map[string]string{
			"round_id": roundID.Hex(),
			"reason":   reason,
		},
	})
}

// --- Event-Day Events ---

// TeamCheckedIn logs a team check-in at the venue.
func (l *Logger) TeamCheckedIn(ctx context.Context, hackathonID, teamID, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryEventDay,
		EventType:   audit.EventTeamCheckedIn,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
	})
}

// MemberCheckedIn logs an individual member check-in.
func (l *Logger) MemberCheckedIn(ctx context.Context, hackathonID, teamID, actorID, memberID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryEventDay,
		EventType:   audit.EventMemberCheckedIn,
		HackathonID: hackathonID,
		TeamID:      &teamID,
		ActorID:     &actorID,
		Details: map[string]string{
			"member_id": memberID.Hex(),
		},
	})
}

// --- Lifecycle Events ---

// HackathonStatusChanged logs a hackathon status transition.
func (l *Logger) HackathonStatusChanged(ctx context.Context, hackathonID, actorID primitive.ObjectID, from, to string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryLifecycle,
		EventType:   audit.EventHackathonStatusChanged,
		HackathonID: hackathonID,
		ActorID:     &actorID,
		Details: map[string]string{
			"from": from,
			"to":   to,
		},
	})
}

// RoundStatusChanged logs a round status transition.
func (l *Logger) RoundStatusChanged(ctx context.Context, hackathonID, actorID, roundID primitive.ObjectID, to string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryLifecycle,
		EventType:   audit.EventRoundStatusChanged,
		HackathonID: hackathonID,
		ActorID:     &actorID,
		Details: map[string]string{
			"round_id": roundID.Hex(),
			"to":       to,
		},
	})
}
