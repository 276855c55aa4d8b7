package testdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"time"

	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/service"
)

// Services bundles the services used by Seed.
type Services struct {
	Directory *service.DirectoryService
	Ingest    *service.IngestService
}

// SampleClients are the clients Seed registers.
var SampleClients = []struct {
	Name    string
	Aliases []string
}{
	{Name: "Acme Corp", Aliases: []string{"Acme", "ACME Pty Ltd"}},
	{Name: "Globex", Aliases: []string{"Globex Corporation"}},
	{Name: "Initech"},
	{Name: "Umbrella Health", Aliases: []string{"Umbrella"}},
}

// Seed registers the sample clients and imports generated exports for
// incidents, support tickets and jiras. The same seed yields the same data.
func Seed(ctx context.Context, svc Services, now time.Time, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	for _, c := range SampleClients {
		if _, err := svc.Directory.Add(ctx, c.Name, c.Aliases); err != nil {
			return err
		}
	}

	exports := map[report.Type][][]string{
		report.TypeIncidents:      incidents(rng, now),
		report.TypeSupportTickets: tickets(rng, now),
		report.TypeJiras:          jiras(rng, now),
	}
	for _, t := range report.Types {
		rows, ok := exports[t]
		if !ok {
			continue
		}
		data, err := encode(rows)
		if err != nil {
			return err
		}
		if _, err := svc.Ingest.Import(ctx, t, bytes.NewReader(data), "sample-"+string(t)+".csv", now); err != nil {
			return err
		}
	}
	return nil
}

func encode(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// organizations includes one name no sample client claims.
var organizations = []string{"Acme", "Acme Corp", "Globex Corporation", "Initech", "Umbrella", "Hooli"}

func pick[T any](rng *rand.Rand, xs []T) T { return xs[rng.Intn(len(xs))] }

func daysAgo(rng *rand.Rand, now time.Time, span int) string {
	return now.AddDate(0, 0, -rng.Intn(span)).Format("2006-01-02")
}

func incidents(rng *rand.Rand, now time.Time) [][]string {
	rows := [][]string{{"Issue key", "Summary", "Status", "Priority", "Severity", "Created", "Organizations"}}
	for i := 1; i <= 12; i++ {
		orgs := pick(rng, organizations)
		if rng.Intn(4) == 0 {
			orgs += ", " + pick(rng, organizations)
		}
		rows = append(rows, []string{
			fmt.Sprintf("INC-%d", i),
			pick(rng, []string{"API latency", "Login outage", "Report export failing", "Sync delayed"}),
			pick(rng, []string{"Open", "Investigating", "Resolved", "Closed"}),
			pick(rng, []string{"P1", "P2", "P3", "P4"}),
			pick(rng, []string{"Sev 1", "Sev 2", "Sev 3", "Sev 4"}),
			daysAgo(rng, now, 40),
			orgs,
		})
	}
	return rows
}

func tickets(rng *rand.Rand, now time.Time) [][]string {
	rows := [][]string{{"Ticket ID", "Subject", "Status", "Priority", "Criticality", "Organization", "Requested"}}
	for i := 1; i <= 25; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("T-%d", 1000+i),
			pick(rng, []string{"Password reset", "Invoice query", "Dashboard blank", "Data import help"}),
			pick(rng, []string{"New", "Open", "Pending", "Solved", "Closed"}),
			pick(rng, []string{"Low", "Normal", "High", "Urgent"}),
			pick(rng, []string{"", "", "Minor", "Major", "Critical"}),
			pick(rng, organizations),
			daysAgo(rng, now, 90),
		})
	}
	rows = append(rows, []string{"T-1100", "Trial account access", "Open", "Normal", "", "Hooli", daysAgo(rng, now, 10)})
	return rows
}

func jiras(rng *rand.Rand, now time.Time) [][]string {
	rows := [][]string{{"Key", "Summary", "Status", "Priority", "Issue Type", "Created", "Client Name"}}
	for i := 1; i <= 15; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("DEV-%d", 200+i),
			pick(rng, []string{"Fix CSV export", "Add SSO", "Timeout on search", "Audit log gaps"}),
			pick(rng, []string{"To Do", "In Progress", "In Review", "Done"}),
			pick(rng, []string{"Lowest", "Low", "Medium", "High", "Highest"}),
			pick(rng, []string{"Bug", "Story", "Task"}),
			daysAgo(rng, now, 120),
			pick(rng, organizations),
		})
	}
	return rows
}
