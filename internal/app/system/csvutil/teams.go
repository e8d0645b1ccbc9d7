// internal/app/system/csvutil/teams.go
package csvutil

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/dalemusser/hackhub/internal/domain/models"
)

// TeamExportHeader is the column order of the team roster export.
var TeamExportHeader = []string{
	"Team Name",
	"Submission Status",
	"Registration Status",
	"Leader Name",
	"Leader Email",
	"Leader Institution",
	"Total Members",
	"Active Members",
	"Project Title",
	"Submitted At",
	"Approved At",
	"Rejection Reason",
}

// WriteTeams streams the teams of a hackathon as CSV to w, header first.
// Timestamps are formatted RFC 3339 in UTC; absent values are empty cells.
func WriteTeams(w io.Writer, teams []models.Team) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TeamExportHeader); err != nil {
		return err
	}
	for i := range teams {
		if err := cw.Write(teamRow(&teams[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func teamRow(t *models.Team) []string {
	var leaderName, leaderEmail, leaderInst string
	if l := t.Leader(); l != nil {
		leaderName = l.Name
		leaderEmail = l.Email
		leaderInst = l.Institution
	}
	return []string{
		t.Name,
		t.SubmissionStatus,
		t.RegistrationStatus,
		leaderName,
		leaderEmail,
		leaderInst,
		strconv.Itoa(len(t.Members)),
		strconv.Itoa(t.ActiveMemberCount()),
		t.Project.Title,
		formatTime(t.SubmittedAt),
		formatTime(t.ApprovedAt),
		t.RejectionReason,
	}
}

func formatTime(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
