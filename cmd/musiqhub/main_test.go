package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/export"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lessonCSV = `Lessons export
Event Date,Duration,Description,Teacher,Payroll Amount,Student Name,Family,Status,Pre-Tax Billed Amount,Billed Amount
2024-03-04,30,St Mark,Jordan Morrison,20.00,Ava,Smith,Present,,30.00
,,,,20.00,Ben,Smith,Present,,25.00
`

const rateCSV = `franchisee name,school name,room rate per week
Jordan Morrison,St Marks,$20.00
`

// testEnv isolates a command run from the developer's config and database.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	write(t, filepath.Join(dir, "lessons.csv"), lessonCSV)
	write(t, filepath.Join(dir, "rates.csv"), rateCSV)
	write(t, filepath.Join(dir, "aliases.csv"), "alias,school\nst mark,st marks\n")

	cfg := filepath.Join(dir, "config.yaml")
	write(t, cfg, "database:\n  path: "+filepath.Join(dir, "musiqhub.db")+"\nlogging:\n  level: error\n")

	return &testEnv{dir: dir, config: cfg}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (e *testEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTierCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "tier", "$16.09")
	require.NoError(t, err)
	assert.Contains(t, out, "tier 4, support fee $3.00")

	out, err = env.run(t, "", "tier", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "tier 7, support fee $4.00")

	_, err = env.run(t, "", "tier", "lots")
	assert.ErrorIs(t, err, common.ErrInvalidFeeInput)
}

func TestReportCommand_JSONAndHistory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "report", env.path("lessons.csv"),
		"--rates-source", "file",
		"--rates-file", env.path("rates.csv"),
		"--aliases-file", env.path("aliases.csv"),
		"--json", env.path("report.json"),
		"--save", "--quiet")
	require.NoError(t, err)

	data, err := os.ReadFile(env.path("report.json"))
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotNil(t, doc.Run)
	assert.Equal(t, 2, doc.Run.Lessons)
	assert.Equal(t, "55.00", doc.Run.TotalBilled)
	assert.Equal(t, "27.83", doc.Run.TotalProfit)

	out, err := env.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, doc.Run.ID)
	assert.Contains(t, out, "27.83")

	out, err = env.run(t, "", "history", doc.Run.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved Run "+doc.Run.ID)
	assert.Contains(t, out, "5.20")
}

func TestReportCommand_NoGSTPrintsTables(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "report", env.path("lessons.csv"),
		"--rates-source", "file",
		"--rates-file", env.path("rates.csv"),
		"--aliases-file", env.path("aliases.csv"),
		"--no-gst")
	require.NoError(t, err)
	assert.Contains(t, out, "Lesson Report")
	assert.Contains(t, out, "Run Summary")
	assert.Contains(t, out, "St Mark")
	assert.Contains(t, out, "GST applied")
}

func TestReportCommand_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "report")
	assert.Error(t, err, "a source is required")

	_, err = env.run(t, "", "report", env.path("lessons.pdf"))
	assert.ErrorIs(t, err, common.ErrUnsupportedSource)

	_, err = env.run(t, "", "report", env.path("lessons.csv"), "--zero-policy", "sometimes")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = env.run(t, "", "report", env.path("lessons.csv"), "--rates-source", "db")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr, "an empty rate store asks for an import")
}

func TestRatesImportAndResolve(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "rates", "import", env.path("rates.csv"), "--aliases", env.path("aliases.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 1 room rate(s)")

	out, err = env.run(t, "n\n", "rates", "import", env.path("rates.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "[y/N]")
	assert.Contains(t, out, "Import cancelled")

	_, err = env.run(t, "", "rates", "import", env.path("rates.csv"), "--yes")
	require.NoError(t, err)
	out, err = env.run(t, "", "rates", "snapshots")
	require.NoError(t, err)
	assert.Contains(t, out, "auto-rates-import", "replacing stored rates snapshots them first")

	out, err = env.run(t, "", "rates", "resolve", "St Mark", "Jordan Morrison", "--rates-source", "db")
	require.NoError(t, err)
	assert.Contains(t, out, "$20.00 per week")
	assert.Contains(t, out, "alias-tutor")

	out, err = env.run(t, "", "rates", "aliases", "--rates-source", "db")
	require.NoError(t, err)
	assert.Contains(t, out, "st mark")

	out, err = env.run(t, "", "rates", "list", "--defaults", "--rates-source", "db")
	require.NoError(t, err)
	assert.Contains(t, out, "st marks")
	assert.Contains(t, out, "20.00")
}

func TestRatesImport_RejectsAliasChains(t *testing.T) {
	env := newTestEnv(t)
	write(t, env.path("chain.csv"), "alias,school\na,b\nb,st marks\n")

	_, err := env.run(t, "", "rates", "import", env.path("rates.csv"), "--aliases", env.path("chain.csv"), "--yes")
	assert.ErrorIs(t, err, common.ErrAliasCycle)
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "musiqhub dev\n", out)
}
