package history

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/crucial707/detector/cmd/cli/client"
	"github.com/crucial707/detector/cmd/cli/output"
	"github.com/crucial707/detector/internal/models"
)

// InitHistory registers the read-only history commands and the stats command.
func InitHistory(rootCmd *cobra.Command) {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show scan results, issues, alerts and audit logs",
	}
	historyCmd.AddCommand(resultsCmd(), issuesCmd(), alertsCmd(), logsCmd())

	rootCmd.AddCommand(historyCmd, statsCmd())
}

func query(resource string, limit int) string {
	q := url.Values{}
	if resource != "" {
		q.Set("resourceId", resource)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func fetch(cmd *cobra.Command, path string, out any) error {
	c, err := client.Authenticated()
	if err != nil {
		return err
	}
	_, err = c.Do(cmd.Context(), http.MethodGet, path, nil, out)
	return err
}

// ==========================
// Results
// ==========================
func resultsCmd() *cobra.Command {
	var resource string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Scan results of a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []models.ScanResult
			if err := fetch(cmd, "/api/result"+query(resource, 0), &results); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(results)
			}
			rows := make([][]interface{}, 0, len(results))
			for _, r := range results {
				status := "-"
				if r.StatusCode != nil {
					status = strconv.Itoa(*r.StatusCode)
				}
				rows = append(rows, []interface{}{output.Time(&r.Created), status, output.Str(r.ConnectingIP), output.Str(r.SSLErrorCode), output.Str(r.ExceptionMessage)})
			}
			output.RenderTable([]string{"Scanned", "Status", "IP", "SSL Error", "Exception"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource id (required)")
	_ = cmd.MarkFlagRequired("resource")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

// ==========================
// Issues / Alerts
// ==========================
func issuesCmd() *cobra.Command {
	var resource string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Issues, optionally of one resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			var issues []models.Issue
			if err := fetch(cmd, "/api/issue"+query(resource, 0), &issues); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(issues)
			}
			rows := make([][]interface{}, 0, len(issues))
			for _, i := range issues {
				rows = append(rows, []interface{}{output.Time(&i.Created), i.IssueType, i.URL, i.Message, output.Time(i.Resolved)})
			}
			output.RenderTable([]string{"Created", "Type", "URL", "Message", "Resolved"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource id")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func alertsCmd() *cobra.Command {
	var resource string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Alerts, optionally of one resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			var alerts []models.Alert
			if err := fetch(cmd, "/api/alert"+query(resource, 0), &alerts); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(alerts)
			}
			rows := make([][]interface{}, 0, len(alerts))
			for _, a := range alerts {
				rows = append(rows, []interface{}{output.Time(&a.Created), a.Type, a.URL, a.Message})
			}
			output.RenderTable([]string{"Created", "Type", "URL", "Message"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource id")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

// ==========================
// Audit logs
// ==========================
func logsCmd() *cobra.Command {
	var resource string
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Audit log of a resource, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			var entries []models.AuditEntry
			if err := fetch(cmd, "/api/log"+query(resource, limit), &entries); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(entries)
			}
			rows := make([][]interface{}, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []interface{}{output.Time(&e.Created), e.Severity, e.Message})
			}
			output.RenderTable([]string{"Created", "Severity", "Message"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource id (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 = all)")
	_ = cmd.MarkFlagRequired("resource")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

// ==========================
// Stats (public)
// ==========================
type stats struct {
	App struct {
		Version string `json:"version"`
	} `json:"app"`
	Stats struct {
		ResourceCount  int `json:"resourceCount"`
		OpenIssueCount int `json:"openIssueCount"`
	} `json:"stats"`
}

func statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Resource and open issue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s stats
			if _, err := client.New().Do(cmd.Context(), http.MethodGet, "/api/stats", nil, &s); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(s)
			}
			output.RenderTable([]string{"Version", "Resources", "Open Issues", "As Of"},
				[][]interface{}{{s.App.Version, s.Stats.ResourceCount, s.Stats.OpenIssueCount, time.Now().Format(time.Kitchen)}})
			return nil
		},
	}
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}
