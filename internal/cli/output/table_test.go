package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableData(t *testing.T) {
	table := NewTableData("Name", "Type", "Location")
	assert.Equal(t, []string{"Name", "Type", "Location"}, table.Headers())
	assert.Empty(t, table.Rows())

	table.AddRow("user_db", "sqlite", "/tmp/user.db")
	table.AddRow("audit_db", "postgres", "db:5432/audit")

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"audit_db", "postgres", "db:5432/audit"}, rows[1])
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Name", "Healthy")
	table.AddRow("user_db", "yes")
	table.AddRow("audit_db", "no")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "HEALTHY")
	assert.Contains(t, lines[1], "user_db")
	assert.Contains(t, lines[2], "audit_db")
}

func TestPrintKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintKeyValues(&buf, []KeyValue{
		{Key: "Version", Value: "dev"},
		{Key: "Go", Value: "go1.25"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Version")
	assert.Contains(t, out, "dev")
	assert.Contains(t, out, "go1.25")
}
