package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-goat/internal/config"
	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
)

// setupCLI points the package configuration at a fresh database and
// returns a command whose output is captured.
func setupCLI(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	cfg = config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "abg.db")
	querySelection, analyzeSelection = stats.Selection{}, stats.Selection{}
	saveRun = true
	querySQL, querySQLFile = "", ""
	exportFormat = "csv"
	runsLimit = 20

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func seedRun(t *testing.T) *store.Run {
	t.Helper()

	lift := 1.0
	p := 0.0747
	run := &store.Run{
		Query:      "SELECT *\n  FROM exp.events",
		Event1:     "seen",
		Event2:     "bought",
		Assignment: "arm",
		Rows:       200,
		Lift:       &lift,
		PValue:     &p,
		Records: []store.RunRecord{
			{Group: "A", Count: 100, Successes: 10, Rate: 0.1},
			{Group: "B", Count: 100, Successes: 20, Rate: 0.2},
		},
	}

	err := withStore(func(s *store.SQLiteStore) error {
		return s.CreateRun(context.Background(), run)
	})
	if err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}
	return run
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestAnalyze_CSV(t *testing.T) {
	cmd, out := setupCLI(t)
	analyzeSelection = stats.Selection{Event1: "seen", Event2: "bought", Assignment: "arm"}

	path := writeFile(t, "events.csv", "seen,bought,arm\nt,,A\nt,x,A\nt,,B\nt,y,B\n")

	if err := runAnalyze(cmd, []string{path}); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	expectations := []string{
		"Sample Data:",
		"50.00%",
		"Lift/Drop of Variant B compared to Variant A: 0.00%",
		"Chi-Squared Statistic: 0.0000",
		"Probability B beats A: 50.0%",
	}
	for _, expected := range expectations {
		if !strings.Contains(out.String(), expected) {
			t.Errorf("output missing expected content: %s\n\nGot:\n%s", expected, out.String())
		}
	}
	if strings.Contains(out.String(), "Saved run") {
		t.Error("file analyses should not be saved")
	}
}

func TestAnalyze_ConfiguredArms(t *testing.T) {
	cmd, out := setupCLI(t)
	cfg.Arms = config.ArmsConfig{Control: "control", Treatment: "variant"}
	analyzeSelection = stats.Selection{Event1: "seen", Event2: "bought", Assignment: "arm"}

	path := writeFile(t, "events.csv", "seen,bought,arm\nt,x,control\nt,,variant\n")

	if err := runAnalyze(cmd, []string{path}); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out.String(), "Lift/Drop of Variant variant compared to Variant control: -100.00%") {
		t.Errorf("expected configured arm labels, got:\n%s", out.String())
	}
}

func TestSelectionFlags_ArePerCommand(t *testing.T) {
	setupCLI(t)

	err := queryCmd.Flags().Parse([]string{"--event1", "seen", "--event2", "bought", "--assignment", "arm"})
	if err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	want := stats.Selection{Event1: "seen", Event2: "bought", Assignment: "arm"}
	if querySelection != want {
		t.Errorf("expected query selection %+v, got %+v", want, querySelection)
	}
	if analyzeSelection != (stats.Selection{}) {
		t.Errorf("query flags leaked into analyze: %+v", analyzeSelection)
	}
}

func TestAnalyze_IgnoresQueryFlags(t *testing.T) {
	cmd, out := setupCLI(t)
	querySelection = stats.Selection{Event1: "bought", Event2: "seen", Assignment: "nope"}
	analyzeSelection = stats.Selection{Event1: "seen", Event2: "bought", Assignment: "arm"}

	path := writeFile(t, "events.csv", "seen,bought,arm\nt,x,A\nt,,A\nt,x,B\nt,y,B\n")

	if err := runAnalyze(cmd, []string{path}); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out.String(), "Lift/Drop of Variant B compared to Variant A: 100.00%") {
		t.Errorf("expected analysis by arm, got:\n%s", out.String())
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	cmd, _ := setupCLI(t)

	err := runAnalyze(cmd, []string{filepath.Join(t.TempDir(), "missing.csv")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestQuery_RequiresWarehouse(t *testing.T) {
	cmd, _ := setupCLI(t)
	querySQL = "SELECT 1"

	err := runQuery(cmd, nil)
	if err != errNoWarehouse {
		t.Errorf("expected errNoWarehouse, got %v", err)
	}
}

func TestReadQuery(t *testing.T) {
	setupCLI(t)

	querySQL = "SELECT 1"
	sql, err := readQuery(strings.NewReader(""))
	if err != nil || sql != "SELECT 1" {
		t.Errorf("expected flag query, got %q (%v)", sql, err)
	}

	querySQL = ""
	querySQLFile = writeFile(t, "q.sql", "SELECT 2\n")
	sql, err = readQuery(strings.NewReader(""))
	if err != nil || sql != "SELECT 2\n" {
		t.Errorf("expected file query, got %q (%v)", sql, err)
	}

	querySQLFile = "-"
	sql, err = readQuery(strings.NewReader("SELECT 3"))
	if err != nil || sql != "SELECT 3" {
		t.Errorf("expected stdin query, got %q (%v)", sql, err)
	}

	querySQLFile = ""
	if _, err := readQuery(strings.NewReader("")); err == nil {
		t.Error("expected error for empty query")
	}

	querySQL, querySQLFile = "SELECT 1", "q.sql"
	if _, err := readQuery(strings.NewReader("")); err == nil {
		t.Error("expected error when both --sql and --sql-file are set")
	}
}

func TestRuns_Empty(t *testing.T) {
	cmd, out := setupCLI(t)

	if err := runRuns(cmd, nil); err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(out.String(), "No runs yet.") {
		t.Errorf("expected empty message, got:\n%s", out.String())
	}
}

func TestRuns_List(t *testing.T) {
	cmd, out := setupCLI(t)
	run := seedRun(t)

	if err := runRuns(cmd, nil); err != nil {
		t.Fatalf("runs failed: %v", err)
	}

	expectations := []string{
		"ID", "ASSIGNMENT", "P-VALUE",
		run.ID,
		"100.00%",
		"0.0747",
		"SELECT * FROM exp.events",
	}
	for _, expected := range expectations {
		if !strings.Contains(out.String(), expected) {
			t.Errorf("output missing expected content: %s\n\nGot:\n%s", expected, out.String())
		}
	}
}

func TestRunsRm(t *testing.T) {
	cmd, out := setupCLI(t)
	run := seedRun(t)

	if err := runRunsRm(cmd, []string{run.ID}); err != nil {
		t.Fatalf("rm failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted run "+run.ID) {
		t.Errorf("unexpected output: %s", out.String())
	}

	if err := runRunsRm(cmd, []string{run.ID}); err == nil {
		t.Error("expected error deleting a missing run")
	}
}

func TestExport_CSV(t *testing.T) {
	cmd, out := setupCLI(t)
	run := seedRun(t)

	if err := runExport(cmd, []string{run.ID}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	want := "group,count,conversions,rate\nA,100,10,0.1\nB,100,20,0.2\n"
	if out.String() != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, out.String())
	}
}

func TestExport_JSON(t *testing.T) {
	cmd, out := setupCLI(t)
	run := seedRun(t)
	exportFormat = "json"

	if err := runExport(cmd, []string{run.ID}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var got jsonExport
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode export: %v", err)
	}
	if got.ID != run.ID || got.Assignment != "arm" || len(got.Records) != 2 {
		t.Errorf("unexpected export %+v", got)
	}
	if got.PValue == nil || *got.PValue != 0.0747 {
		t.Errorf("expected p-value 0.0747, got %v", got.PValue)
	}
}

func TestExport_Errors(t *testing.T) {
	cmd, _ := setupCLI(t)

	exportFormat = "xml"
	if err := runExport(cmd, []string{"x"}); err == nil {
		t.Error("expected error for invalid format")
	}

	exportFormat = "csv"
	err := runExport(cmd, []string{"missing"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestCacheClear(t *testing.T) {
	cmd, out := setupCLI(t)

	err := withStore(func(s *store.SQLiteStore) error {
		return s.PutCachedResult(context.Background(), "k", "SELECT 1", []byte(`{"columns":[],"rows":[]}`))
	})
	if err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	if err := runCacheClear(cmd, nil); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out.String(), "Removed 1 cached results") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestCachePrune_KeepsFreshEntries(t *testing.T) {
	cmd, out := setupCLI(t)

	err := withStore(func(s *store.SQLiteStore) error {
		return s.PutCachedResult(context.Background(), "k", "SELECT 1", []byte(`{"columns":[],"rows":[]}`))
	})
	if err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	if err := runCachePrune(cmd, nil); err != nil {
		t.Fatalf("cache prune failed: %v", err)
	}
	if !strings.Contains(out.String(), "Removed 0 expired results") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestOTP(t *testing.T) {
	cmd, out := setupCLI(t)

	if err := runOTP(cmd, nil); err == nil {
		t.Error("expected error without a token file")
	}

	if err := os.WriteFile(getTokenFilePath(), []byte("a1b2c3d4"), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}
	if err := runOTP(cmd, nil); err != nil {
		t.Fatalf("otp failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current dashboard token: a1b2c3d4") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		123456:  "123,456",
		1234567: "1,234,567",
	}
	for n, want := range tests {
		if got := formatNumber(n); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", n, got, want)
		}
	}
}
