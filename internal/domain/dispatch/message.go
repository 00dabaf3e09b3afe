package dispatch

import (
	"strings"

	"github.com/target/dispatch-api/internal/domain/model"
)

// PortalURL is the public link a subcontractor uses to view and update a job.
func PortalURL(origin, jobID string) string {
	return strings.TrimRight(origin, "/") + "/job/" + jobID
}

// BuildAssignmentMessage is sent to a subcontractor when a job is assigned to them.
func BuildAssignmentMessage(job model.Job, origin string) string {
	var b strings.Builder
	b.WriteString("New job assigned: " + job.ID + "\n")
	b.WriteString("Customer: " + job.CustomerName + "\n")
	b.WriteString("Phone: " + FormatPhone(job.CustomerPhone) + "\n")
	b.WriteString("Address: " + job.CustomerAddress + "\n")
	if issue := strings.TrimSpace(job.IssueDescription); issue != "" {
		b.WriteString("Issue: " + issue + "\n")
	}
	b.WriteString("Open the job: " + PortalURL(origin, job.ID))
	return b.String()
}

// BuildUpdateMessage is sent when a job's status changes.
func BuildUpdateMessage(job model.Job, origin string) string {
	var b strings.Builder
	b.WriteString("Job " + job.ID + " updated\n")
	b.WriteString("Status: " + strings.ToUpper(string(job.Status)) + "\n")
	b.WriteString("Address: " + job.CustomerAddress + "\n")
	b.WriteString("Open the job: " + PortalURL(origin, job.ID))
	return b.String()
}

// CollapseWhitespace replaces every run of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
