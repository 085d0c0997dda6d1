package resources

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crucial707/detector/cmd/cli/client"
	"github.com/crucial707/detector/cmd/cli/output"
	"github.com/crucial707/detector/internal/models"
)

// ==========================
// Init Resources
// ==========================
func InitResources(rootCmd *cobra.Command) {
	resourcesCmd := &cobra.Command{
		Use:     "resources",
		Aliases: []string{"resource", "res"},
		Short:   "Manage monitored resources",
	}

	resourcesCmd.AddCommand(
		listResourcesCmd(),
		getResourceCmd(),
		createResourceCmd(),
		bulkAddCmd(),
		updateResourceCmd(),
		deleteResourcesCmd(),
		toggleResourcesCmd(),
	)

	rootCmd.AddCommand(resourcesCmd)
}

var resourceHeaders = []string{"ID", "Name", "URL", "Active", "Status", "Last Scan", "Next Scan"}

func resourceRow(v models.ResourceView) []interface{} {
	return []interface{}{v.ID, v.Name, v.URL, v.Active, output.Str(v.Status), output.Time(&v.LastScan), output.Time(v.NextScan)}
}

func renderResources(views []models.ResourceView, asJSON bool) error {
	if asJSON {
		return output.PrintJSON(views)
	}
	rows := make([][]interface{}, 0, len(views))
	for _, v := range views {
		rows = append(rows, resourceRow(v))
	}
	output.RenderTable(resourceHeaders, rows)
	return nil
}

// renderBulk prints each outcome list of a bulk result, in a stable order.
func renderBulk(result map[string][]string, asJSON bool) error {
	if asJSON {
		return output.PrintJSON(result)
	}
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows [][]interface{}
	for _, k := range keys {
		for _, item := range result[k] {
			rows = append(rows, []interface{}{k, item})
		}
	}
	output.RenderTable([]string{"Outcome", "Item"}, rows)
	return nil
}

// ==========================
// LIST / GET
// ==========================
func listResourcesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var views []models.ResourceView
			if _, err := c.Do(cmd.Context(), http.MethodGet, "/api/resource", nil, &views); err != nil {
				return err
			}
			return renderResources(views, asJSON)
		},
	}
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func getResourceCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var view models.ResourceView
			if _, err := c.Do(cmd.Context(), http.MethodGet, "/api/resource/"+url.PathEscape(args[0]), nil, &view); err != nil {
				return err
			}
			return renderResources([]models.ResourceView{view}, asJSON)
		},
	}
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

// ==========================
// CREATE
// ==========================
func createResourceCmd() *cobra.Command {
	var name, target string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var view models.ResourceView
			payload := map[string]string{"name": name, "url": target}
			if _, err := c.Do(cmd.Context(), http.MethodPost, "/api/resource", payload, &view); err != nil {
				return err
			}
			return renderResources([]models.ResourceView{view}, asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "resource name")
	cmd.Flags().StringVar(&target, "url", "", "URL to monitor")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func bulkAddCmd() *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bulk-add [url...]",
		Short: "Create one resource per URL, named after the URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := append([]string{}, args...)
			if file != "" {
				fromFile, err := readLines(file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given")
			}

			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var result map[string][]string
			if _, err := c.Do(cmd.Context(), http.MethodPost, "/api/resource/bulk", urls, &result); err != nil {
				return err
			}
			return renderBulk(result, asJSON)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "file with one URL per line")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// ==========================
// UPDATE
// ==========================
func updateResourceCmd() *cobra.Command {
	var name, target string
	var active, asJSON bool

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update name, URL or active flag of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			if cmd.Flags().Changed("name") {
				payload["name"] = name
			}
			if cmd.Flags().Changed("url") {
				payload["url"] = target
			}
			if cmd.Flags().Changed("active") {
				payload["active"] = active
			}
			if len(payload) == 0 {
				return fmt.Errorf("nothing to update: pass --name, --url or --active")
			}

			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var view models.ResourceView
			if _, err := c.Do(cmd.Context(), http.MethodPost, "/api/resource/"+url.PathEscape(args[0]), payload, &view); err != nil {
				return err
			}
			return renderResources([]models.ResourceView{view}, asJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&target, "url", "", "new URL")
	cmd.Flags().BoolVar(&active, "active", true, "monitor (true) or pause (false)")
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

// ==========================
// DELETE / TOGGLE
// ==========================
func deleteResourcesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if _, err := c.Do(cmd.Context(), http.MethodDelete, "/api/resource/"+url.PathEscape(args[0]), nil, nil); err != nil {
					return err
				}
				fmt.Println("Resource deleted")
				return nil
			}

			var result map[string][]string
			if _, err := c.Do(cmd.Context(), http.MethodDelete, "/api/resource/bulk/"+idList(args), nil, &result); err != nil {
				return err
			}
			return renderBulk(result, asJSON)
		},
	}
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func toggleResourcesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "toggle [id...]",
		Short: "Flip the active flag of resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var result map[string][]string
			if _, err := c.Do(cmd.Context(), http.MethodPost, "/api/resource/toggle-active/bulk/"+idList(args), nil, &result); err != nil {
				return err
			}
			return renderBulk(result, asJSON)
		},
	}
	output.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func idList(ids []string) string {
	escaped := make([]string, 0, len(ids))
	for _, id := range ids {
		escaped = append(escaped, url.PathEscape(strings.TrimSpace(id)))
	}
	return strings.Join(escaped, ",")
}
