package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/pkg/config"
	"github.com/marmos91/ormkit/pkg/dao"
	"github.com/marmos91/ormkit/pkg/models"
)

var (
	demoDatabase string
	demoOutput   string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Exercise the user DAO against a database",
	Long: `Insert, update, delete and list demo users through the user DAO.

Runs against user_db unless --database names another configured database.
The users created by the demo are removed again, except for one that is kept
so that repeated runs show rows accumulating.

Examples:
  ormkit demo
  ormkit demo --database audit_db -o json`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoDatabase, "database", config.DefaultDatabaseName, "Database to use")
	demoCmd.Flags().StringVarP(&demoOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// userTable renders users as a table.
type userTable []models.User

func (t userTable) Headers() []string {
	return []string{"ID", "Name", "Email", "Age", "Created"}
}

func (t userTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, u := range t {
		rows = append(rows, []string{u.ID, u.Name, u.Email, strconv.Itoa(u.Age), u.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	return rows
}

func runDemo(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd, demoOutput)
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

	db, err := manager.Get(ctx, demoDatabase, models.AppSchema)
	if err != nil {
		return err
	}

	users := models.NewUserDAO(db.Gorm())
	ignoring := models.NewUserDAO(db.Gorm(), dao.WithConflictStrategy(dao.Ignore))

	kept := &models.User{Name: "Demo User", Email: fmt.Sprintf("demo+%d@example.com", db.OpenedAt().UnixNano()), Age: 30}
	if err := users.Insert(ctx, kept); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	temp := []*models.User{
		{Name: "Temp One", Email: "temp1@example.com", Age: 20},
		{Name: "Temp Two", Email: "temp2@example.com", Age: 21},
	}
	// Leftovers from an interrupted run are skipped rather than failing.
	if err := ignoring.InsertAll(ctx, temp); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	kept.Age++
	if _, err := users.Update(ctx, kept); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	for _, u := range temp {
		found, err := users.FindByEmail(ctx, u.Email)
		if err != nil {
			return err
		}
		if _, err := users.Delete(ctx, found); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}

	all, err := users.GetAll(ctx)
	if err != nil {
		return err
	}
	return p.Print(userTable(all))
}
