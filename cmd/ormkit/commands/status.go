package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/pkg/database"
	"github.com/marmos91/ormkit/pkg/models"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every configured database",
	Long: `Open every configured database and report its backend, location, schema
version and health.

Examples:
  # Table output
  ormkit status

  # Machine-readable output
  ormkit status -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// statusTable renders database statuses as a table.
type statusTable []database.Status

func (t statusTable) Headers() []string {
	return []string{"Name", "Type", "Location", "Version", "Healthy", "Conns", "Error"}
}

func (t statusTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, st := range t {
		version := "-"
		if st.Open {
			version = strconv.Itoa(st.Version)
		}
		rows = append(rows, []string{
			st.Name,
			string(st.Type),
			st.Location,
			version,
			yesNo(st.Healthy),
			strconv.Itoa(st.OpenConnections),
			st.Error,
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd, statusOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	manager := newManager(cfg)
	defer func() { _ = manager.Close() }()

	openErrs := make(map[string]error)
	for _, name := range manager.Names() {
		if _, err := manager.Get(ctx, name, models.AppSchema); err != nil {
			openErrs[name] = err
		}
	}

	statuses := manager.Status(ctx)
	unhealthy := 0
	for i := range statuses {
		if err, ok := openErrs[statuses[i].Name]; ok {
			statuses[i].Error = err.Error()
		}
		if !statuses[i].Healthy {
			unhealthy++
		}
	}

	if err := p.Print(statusTable(statuses)); err != nil {
		return err
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d databases unhealthy", unhealthy, len(statuses))
	}
	return nil
}
