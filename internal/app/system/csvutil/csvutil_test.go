package csvutil

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWriteTeams_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTeams(&buf, nil); err != nil {
		t.Fatalf("WriteTeams: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want header only", len(records))
	}
	if records[0][0] != "Team Name" || records[0][len(records[0])-1] != "Rejection Reason" {
		t.Errorf("unexpected header: %v", records[0])
	}
}

func TestWriteTeams_Rows(t *testing.T) {
	leaderID := primitive.NewObjectID()
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	team := models.Team{
		Name:               "Byte Bandits",
		SubmissionStatus:   models.SubmissionStatusSubmitted,
		RegistrationStatus: models.RegistrationStatusApproved,
		LeaderID:           leaderID,
		Members: []models.TeamMember{
			{UserID: leaderID, Name: "Ada Park", Email: "ada@uni.edu", Institution: "Uni", Role: models.MemberRoleLeader, Status: models.MemberStatusActive},
			{UserID: primitive.NewObjectID(), Name: "Lee Chan", Role: models.MemberRoleMember, Status: models.MemberStatusRemoved},
		},
		Project:     models.ProjectInfo{Title: "Trail Mapper"},
		SubmittedAt: &submitted,
	}

	var buf bytes.Buffer
	if err := WriteTeams(&buf, []models.Team{team}); err != nil {
		t.Fatalf("WriteTeams: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	row := records[1]
	want := []string{
		"Byte Bandits", "submitted", "approved",
		"Ada Park", "ada@uni.edu", "Uni",
		"2", "1",
		"Trail Mapper", "2026-03-01T12:00:00Z", "", "",
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d (%s) = %q, want %q", i, TeamExportHeader[i], row[i], want[i])
		}
	}
}

func TestWriteTeams_MissingLeader(t *testing.T) {
	team := models.Team{
		Name:               "Orphaned",
		SubmissionStatus:   models.SubmissionStatusDraft,
		RegistrationStatus: models.RegistrationStatusPending,
		LeaderID:           primitive.NewObjectID(),
	}

	var buf bytes.Buffer
	if err := WriteTeams(&buf, []models.Team{team}); err != nil {
		t.Fatalf("WriteTeams: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	row := records[1]
	if row[3] != "" || row[4] != "" {
		t.Errorf("expected empty leader columns, got %q %q", row[3], row[4])
	}
	if row[6] != "0" || row[7] != "0" {
		t.Errorf("expected zero member counts, got %q %q", row[6], row[7])
	}
}
