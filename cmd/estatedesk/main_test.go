package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/erazemk/estatedesk/internal/model"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("estatedesk %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestJobAndItemCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("USER", "carol")
	dbPath := filepath.Join(dir, "test.sqlite3")

	jobID := strings.TrimSpace(run(t, "--db", dbPath, "job", "create", "Smith", "Estate"))
	if jobID == "" {
		t.Fatal("job create printed no id")
	}

	list := run(t, "--db", dbPath, "job", "list")
	if !strings.Contains(list, "Smith Estate") || !strings.Contains(list, model.StageIntake) {
		t.Errorf("job list missing job:\n%s", list)
	}

	if out := run(t, "--db", dbPath, "job", "toggle-sale", jobID); !strings.Contains(out, "yes") {
		t.Errorf("toggle-sale: %q", out)
	}

	itemID := strings.TrimSpace(run(t, "--db", dbPath, "item", "create", jobID))
	show := run(t, "--db", dbPath, "item", "show", itemID)
	if !strings.Contains(show, "Status: "+model.ItemStatusDraft) {
		t.Errorf("item show:\n%s", show)
	}

	events := run(t, "--db", dbPath, "item", "events", itemID)
	if !strings.Contains(events, model.EventCreated) || !strings.Contains(events, "carol@cli") {
		t.Errorf("item events:\n%s", events)
	}
}

func TestItemRows(t *testing.T) {
	sale := 30.0
	it := &model.Item{
		PhotoGroups: []model.PhotoGroup{
			{ItemNumber: 1, StartIndex: 0, EndIndex: 1, Title: "Batch 1", PhotoCount: 2},
			{ItemNumber: 2, StartIndex: 2, EndIndex: 2, Title: "Batch 2", PhotoCount: 1},
			{ItemNumber: 3, StartIndex: 3, EndIndex: 3, Title: "Batch 3", PhotoCount: 1},
		},
		AI: []model.Proposal{
			{ItemNumber: 1, Title: "Oak chair", Price: 40},
			{ItemNumber: 2, Title: "Lamp"},
		},
		ApprovedItems: []model.ApprovedItem{
			{ItemNumber: 2, PhotoIndices: []int{2}, Title: "Brass lamp", Price: 25, EstateSalePrice: &sale},
		},
		SoldPhotoIndices: []int{2},
	}

	want := [][]string{
		{"1", "0-1", "Oak chair", "pending review", "~$40.00", ""},
		{"2", "2", "Brass lamp", "approved", "$25.00", "sold $30.00"},
		{"3", "3", "Batch 3", "unanalyzed", "", ""},
	}
	if got := itemRows(it); !reflect.DeepEqual(got, want) {
		t.Errorf("itemRows = %q, want %q", got, want)
	}
}

func TestJobRows(t *testing.T) {
	rows := jobRows([]model.Job{{ID: "j1", Name: "Smith", Stage: model.StageIntake, OnlineSaleActive: true}})
	want := [][]string{{"j1", "Smith", model.StageIntake, "yes"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("jobRows = %q", rows)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Name"}, [][]string{{"1", "chair"}}, []columnAlignment{alignRight})
	for _, s := range []string{"ID", "NAME", "CHAIR"} {
		if !strings.Contains(strings.ToUpper(out), s) {
			t.Errorf("table missing %q:\n%s", s, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := generatePassword(16)
	if len(a) != 16 || a == b {
		t.Errorf("passwords %q and %q", a, b)
	}
}
