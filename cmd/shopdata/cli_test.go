package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/shopdata/sampledata"
	"github.com/arthur-debert/shopdata/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
)

// run executes one command line against a fresh CLI.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envConfigFile, "")

	var out, errOut bytes.Buffer
	cli := NewCLI(&out, &errOut)
	cli.now = func() time.Time { return testutil.Now }
	err := cli.Execute(context.Background(), args)
	return out.String(), err
}

func shopDir(t *testing.T) string {
	t.Helper()
	dir, _ := testutil.LoadShop(t)
	return dir.Root()
}

func decode(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
}

type listBody struct {
	Orders     []map[string]interface{} `json:"orders"`
	Customers  []map[string]interface{} `json:"customers"`
	Tickets    []map[string]interface{} `json:"tickets"`
	Pagination *struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"hasMore"`
	} `json:"pagination"`
}

func ids(records []map[string]interface{}) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i], _ = r["id"].(string)
	}
	return out
}

func TestQuery(t *testing.T) {
	dir := shopDir(t)

	tests := []struct {
		name      string
		args      []string
		wantIDs   []string
		wantTotal int
		wantMore  bool
	}{
		{
			name:      "default sort is newest first",
			args:      []string{"query", "orders"},
			wantIDs:   []string{"ord_1006", "ord_1004", "ord_1002", "ord_1001", "ord_1003", "ord_1005"},
			wantTotal: 6,
		},
		{
			name:      "filter",
			args:      []string{"query", "orders", "status=shipped"},
			wantIDs:   []string{"ord_1002"},
			wantTotal: 1,
		},
		{
			name:      "sort and page",
			args:      []string{"query", "orders", "--sort", "total-desc", "--limit", "2"},
			wantIDs:   []string{"ord_1004", "ord_1001"},
			wantTotal: 6,
			wantMore:  true,
		},
		{
			name:      "offset",
			args:      []string{"query", "orders", "--sort", "total-desc", "--limit", "2", "--offset", "2"},
			wantIDs:   []string{"ord_1002", "ord_1003"},
			wantTotal: 6,
			wantMore:  true,
		},
		{
			name:      "resource by file name",
			args:      []string{"query", "orders.json", "minAmount=10000"},
			wantIDs:   []string{"ord_1004", "ord_1002", "ord_1001"},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append(tt.args, "--data-dir", dir, "--format", "json")...)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			var body listBody
			decode(t, out, &body)

			if diff := cmp.Diff(tt.wantIDs, ids(body.Orders)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if body.Pagination == nil {
				t.Fatal("expected pagination")
			}
			if body.Pagination.Total != tt.wantTotal || body.Pagination.HasMore != tt.wantMore {
				t.Errorf("pagination = %+v, want total %d hasMore %v", *body.Pagination, tt.wantTotal, tt.wantMore)
			}
		})
	}
}

func TestQueryUnpaginated(t *testing.T) {
	out, err := run(t, "query", "support-tickets", "--data-dir", shopDir(t), "--format", "json")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	var body listBody
	decode(t, out, &body)
	if len(body.Tickets) != 4 {
		t.Errorf("expected 4 tickets, got %d", len(body.Tickets))
	}
	if body.Pagination != nil {
		t.Error("unpaginated resources carry no pagination")
	}
}

func TestQueryByID(t *testing.T) {
	dir := shopDir(t)

	out, err := run(t, "query", "customers", "--id", "cust_001", "--data-dir", dir, "--format", "json")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	var customer map[string]interface{}
	decode(t, out, &customer)
	if customer["id"] != "001" || customer["displayName"] != "Eleanor Vance" {
		t.Errorf("unexpected customer: id=%v displayName=%v", customer["id"], customer["displayName"])
	}

	_, err = run(t, "query", "orders", "--id", "ord_9999", "--data-dir", dir)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || !strings.Contains(cliErr.Cause, `order "ord_9999" not found`) {
		t.Errorf("expected a not found error, got %v", err)
	}
}

func TestQueryTable(t *testing.T) {
	out, err := run(t, "query", "customers", "--sort", "spent-desc", "--data-dir", shopDir(t))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "EMAIL") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "cust_001") {
		t.Errorf("expected the biggest spender first, got %q", lines[1])
	}
	if last := lines[len(lines)-1]; last != "Showing 1-4 of 4" {
		t.Errorf("unexpected footer %q", last)
	}
}

func TestQueryErrors(t *testing.T) {
	dir := shopDir(t)

	tests := []struct {
		name      string
		args      []string
		wantCause string
	}{
		{"unknown resource", []string{"query", "invoices"}, `invalid resource: "invoices"`},
		{"unknown param", []string{"query", "orders", "colour=red"}, `invalid param: "colour"`},
		{"malformed filter", []string{"query", "orders", "shipped"}, `invalid filter: "shipped"`},
		{"unknown sort", []string{"query", "orders", "--sort", "cheapest"}, `invalid sort key: "cheapest"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append(tt.args, "--data-dir", dir)...)
			var cliErr *CLIError
			if !errors.As(err, &cliErr) {
				t.Fatalf("expected a CLIError, got %v", err)
			}
			if cliErr.Cause != tt.wantCause {
				t.Errorf("cause = %q, want %q", cliErr.Cause, tt.wantCause)
			}
			if len(cliErr.Suggestions) == 0 {
				t.Error("expected suggestions")
			}
		})
	}
}

func TestQueryMissingDataDir(t *testing.T) {
	_, err := run(t, "query", "orders", "--data-dir", filepath.Join(t.TempDir(), "missing"))
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected a CLIError, got %v", err)
	}
	if cliErr.Cause != "data file not found" {
		t.Errorf("cause = %q", cliErr.Cause)
	}
}

func TestInspect(t *testing.T) {
	dir := shopDir(t)

	out, err := run(t, "inspect", "customers.json", "--search", "marcus", "--data-dir", dir, "--format", "json")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	var result struct {
		IsArray     bool     `json:"isArray"`
		RecordCount int      `json:"recordCount"`
		Matches     int      `json:"matches"`
		Label       string   `json:"label"`
		Expanded    []string `json:"expanded"`
		Tree        *struct {
			Children []struct {
				Key      string `json:"key"`
				Expanded bool   `json:"expanded"`
			} `json:"children"`
		} `json:"tree"`
	}
	decode(t, out, &result)

	if !result.IsArray || result.RecordCount != 4 || result.Matches != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if result.Label != "Marcus Reid" {
		t.Errorf("label = %q", result.Label)
	}
	if result.Tree == nil || len(result.Tree.Children) == 0 {
		t.Fatal("expected a rendered record")
	}
	if result.Tree.Children[0].Key != "id" {
		t.Errorf("fields should keep document order, first is %q", result.Tree.Children[0].Key)
	}
}

func TestInspectExpand(t *testing.T) {
	dir := shopDir(t)

	out, err := run(t, "inspect", "customers.json", "--expand", "preferences", "--toggle", ".preferences",
		"--toggle", "address", "--data-dir", dir, "--format", "json")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	var result struct {
		Expanded []string `json:"expanded"`
	}
	decode(t, out, &result)
	if diff := cmp.Diff([]string{".address"}, result.Expanded); diff != "" {
		t.Errorf("expanded mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectTable(t *testing.T) {
	out, err := run(t, "inspect", "customers.json", "--index", "1", "--list", "--data-dir", shopDir(t))
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{
		"   0  Eleanor Vance",
		"customers.json: record 2 of 4 matches (4 records)",
		"email: marcus.reid@example.com",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectErrors(t *testing.T) {
	dir := shopDir(t)

	_, err := run(t, "inspect", "customers.json", "--index", "9", "--data-dir", dir)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.Cause != `invalid index: "9"` {
		t.Errorf("expected an index error, got %v", err)
	}

	_, err = run(t, "inspect", "nope.json", "--data-dir", dir)
	if !errors.As(err, &cliErr) || cliErr.Cause != `file "nope.json" not found` {
		t.Errorf("expected a not found error, got %v", err)
	}

	out, err := run(t, "inspect", "customers.json", "--search", "zzz", "--data-dir", dir)
	if err != nil {
		t.Fatalf("empty search should not fail: %v", err)
	}
	if !strings.Contains(out, "No records match.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFiles(t *testing.T) {
	dir := shopDir(t)

	out, err := run(t, "files", "--data-dir", dir, "--format", "json")
	if err != nil {
		t.Fatalf("files failed: %v", err)
	}
	var body struct {
		Files []struct {
			Name        string `json:"name"`
			RecordCount int    `json:"recordCount"`
		} `json:"files"`
	}
	decode(t, out, &body)

	var names []string
	for _, f := range body.Files {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff(sampledata.Names(), names); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, "files", "--data-dir", dir)
	if err != nil {
		t.Fatalf("files failed: %v", err)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "orders.json") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestSeed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	all := sampledata.Names()

	seed := func(args ...string) SeedReport {
		t.Helper()
		out, err := run(t, append([]string{"seed", "--data-dir", dir, "--format", "json"}, args...)...)
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		var report SeedReport
		decode(t, out, &report)
		return report
	}

	first := seed()
	if diff := cmp.Diff(all, first.Written); diff != "" {
		t.Errorf("first seed written mismatch (-want +got):\n%s", diff)
	}

	second := seed()
	if len(second.Written) != 0 {
		t.Errorf("second seed should not write, wrote %v", second.Written)
	}
	if diff := cmp.Diff(all, second.Skipped); diff != "" {
		t.Errorf("second seed skipped mismatch (-want +got):\n%s", diff)
	}

	forced := seed("--force")
	if diff := cmp.Diff(all, forced.Written); diff != "" {
		t.Errorf("forced seed written mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "shopdata.yaml")
	content := "data-dir: /srv/shop\nformat: json\nlocale: de_DE\nread-timeout: 5s\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("file, env and flags", func(t *testing.T) {
		t.Setenv("SHOPDATA_ADDR", ":8080")
		t.Setenv("SHOPDATA_WRITE_TIMEOUT", "1m")

		out, err := run(t, "config", "--config", file, "--format", "yaml")
		if err != nil {
			t.Fatalf("config failed: %v", err)
		}
		var got Config
		if err := yaml.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("config output is not YAML: %v\n%s", err, out)
		}

		want := Config{
			DataDir:      "/srv/shop",
			Addr:         ":8080",
			LogLevel:     "warn",
			LogFormat:    "text",
			Format:       "yaml",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: time.Minute,
			Locale:       "de_DE",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
		if !strings.HasPrefix(out, "# config file: "+file) {
			t.Errorf("expected the config file to be named:\n%s", out)
		}
	})

	t.Run("SHOPDATA_CONFIG", func(t *testing.T) {
		var out, errOut bytes.Buffer
		t.Setenv("HOME", t.TempDir())
		t.Setenv(envConfigFile, file)
		cli := NewCLI(&out, &errOut)
		if err := cli.Execute(context.Background(), []string{"config", "--format", "yaml"}); err != nil {
			t.Fatalf("config failed: %v", err)
		}
		if cli.cfg.DataDir != "/srv/shop" {
			t.Errorf("data dir = %q, want the file's", cli.cfg.DataDir)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := run(t, "config", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		var cliErr *CLIError
		if !errors.As(err, &cliErr) || !strings.HasPrefix(cliErr.Cause, "configuration error") {
			t.Errorf("expected a configuration error, got %v", err)
		}
	})
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCause string
	}{
		{"format", []string{"--format", "xml"}, `invalid format: "xml"`},
		{"log level", []string{"--log-level", "loud"}, `invalid log-level: "loud"`},
		{"data dir", []string{"--data-dir", ""}, `invalid data-dir: ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"config"}, tt.args...)...)
			var cliErr *CLIError
			if !errors.As(err, &cliErr) {
				t.Fatalf("expected a CLIError, got %v", err)
			}
			if cliErr.Cause != tt.wantCause {
				t.Errorf("cause = %q, want %q", cliErr.Cause, tt.wantCause)
			}
		})
	}
}

func TestServeStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := shopDir(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envConfigFile, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	cli := NewCLI(&out, &errOut)
	err := cli.Execute(ctx, []string{"serve", "--addr", "127.0.0.1:0", "--watch", "--data-dir", dir})
	if err != nil {
		t.Fatalf("serve returned %v", err)
	}
}

func TestLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "shopdata.log")
	dir := filepath.Join(t.TempDir(), "data")

	if _, err := run(t, "seed", "--data-dir", dir, "--log-level", "info", "--log-file", logFile); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"seeded data directory"`) {
		t.Errorf("log file missing seed record:\n%s", data)
	}
}

func TestChangedFlags(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := NewCLI(&out, &errOut)
	cmd, _, err := cli.rootCmd.Find([]string{"query"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags([]string{"--limit", "3", "--sort", "total-desc"}); err != nil {
		t.Fatal(err)
	}

	want := []string{"limit=3", "sort=total-desc"}
	if diff := cmp.Diff(want, changedFlags(cmd.Flags())); diff != "" {
		t.Errorf("changed flags mismatch (-want +got):\n%s", diff)
	}
}
