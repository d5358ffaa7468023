package commands

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewTallyCommand(t *testing.T) {
	cmd := NewTallyCommand()

	if cmd.Use != "tally" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	// Check flags exist
	flags := []string{"config", "avatar", "from", "to", "window-start", "window-end", "rules", "output", "verbose", "quiet"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewWatchCommand(t *testing.T) {
	cmd := NewWatchCommand()

	if cmd.Use != "watch" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{"interval", "summary-every", "from-start", "reminders"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewSearchCommand(t *testing.T) {
	cmd := NewSearchCommand()

	if cmd.Use != "search <query>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{"regex", "ignore-case", "from-seq", "limit"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewSaveCommand(t *testing.T) {
	cmd := NewSaveCommand()

	want := map[string]bool{
		"info": false, "items": false, "get": false, "set": false,
		"set-gold": false, "set-level": false, "set-skill": false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Missing subcommand: %s", name)
		}
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
}

func TestCreateFormatter(t *testing.T) {
	tests := []struct {
		output  string
		wantErr bool
	}{
		{"text", false},
		{"json", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			_, err := createFormatter(tt.output, false, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("createFormatter(%q) error = %v, wantErr %v", tt.output, err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-03-15")
	if err != nil {
		t.Fatalf("parseDate failed: %v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("parseDate = %v, want %v", got, want)
	}

	if _, err := parseDate("15/03/2024"); err == nil {
		t.Error("Expected error for non-ISO date")
	}
}

func TestParseInstant(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2024-03-15T10:30:00Z", false},
		{"2024-03-15 10:30:00", false},
		{"yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseInstant(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseInstant(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	from, to, err := dateRange("", "")
	if err != nil {
		t.Fatalf("dateRange failed: %v", err)
	}
	if !from.IsZero() || !to.IsZero() {
		t.Error("Empty flags should resolve to unbounded range")
	}

	if _, _, err := dateRange("2024-03-15", "2024-03-01"); err == nil {
		t.Error("Expected error for reversed range")
	}
}

func TestFindSkillArg(t *testing.T) {
	skill, ok := findSkillArg("Blade Mastery")
	if !ok {
		t.Fatal("Expected to find Blade Mastery by name")
	}
	if skill.ID != 400 {
		t.Errorf("Blade Mastery id = %d, want 400", skill.ID)
	}

	skill, ok = findSkillArg("401")
	if !ok {
		t.Fatal("Expected to find skill by id")
	}
	if skill.Name != "Thrust" {
		t.Errorf("Skill 401 = %s, want Thrust", skill.Name)
	}

	if _, ok := findSkillArg("no-such-skill"); ok {
		t.Error("Expected lookup failure for unknown skill")
	}
}

func TestRunXPExp(t *testing.T) {
	cmd := NewXPCommand()
	cmd.SetArgs([]string{"exp", "10"})

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cmd.ExecuteContext(context.Background())

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Level 10 requires") {
		t.Errorf("Expected level requirement in output, got: %s", output)
	}
}

func TestRunXPExp_OutOfRange(t *testing.T) {
	cmd := NewXPCommand()
	cmd.SetArgs([]string{"exp", "500"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error for level above the table")
	}
}

func TestRunXPLevel(t *testing.T) {
	cmd := NewXPCommand()
	cmd.SetArgs([]string{"level", "600"})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cmd.ExecuteContext(context.Background())

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Level 2") {
		t.Errorf("600 xp should reach level 2, got: %s", output)
	}
}

func TestRunXPUntrain_BadOrder(t *testing.T) {
	cmd := NewXPCommand()
	cmd.SetArgs([]string{"untrain", "Blade Mastery", "10", "20"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error when to-level is above from-level")
	}
	if !strings.Contains(err.Error(), "must be below") {
		t.Errorf("Expected 'must be below' error, got: %v", err)
	}
}

func TestRunRifts(t *testing.T) {
	cmd := NewRiftsCommand()
	cmd.SetArgs([]string{"--at", "2024-03-15 12:00:00"})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cmd.ExecuteContext(context.Background())

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Lunar rifts:") {
		t.Errorf("Expected rift schedule in output, got: %s", output)
	}
	if !strings.Contains(output, "OPEN") {
		t.Errorf("Exactly one rift should be open, got: %s", output)
	}
}

func TestRunRifts_BadAt(t *testing.T) {
	cmd := NewRiftsCommand()
	cmd.SetArgs([]string{"--at", "noon"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error for unparseable --at")
	}
}

func TestRunTally_InvalidDate(t *testing.T) {
	cmd := NewTallyCommand()
	cmd.SetArgs([]string{"--avatar", "Test", "--from", "bad-date"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error for invalid --from")
	}
	if !strings.Contains(err.Error(), "invalid date") {
		t.Errorf("Expected 'invalid date' error, got: %v", err)
	}
}

func TestRunRules_Builtin(t *testing.T) {
	cmd := NewRulesCommand()
	cmd.SetArgs([]string{})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cmd.ExecuteContext(context.Background())

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "damage-dealt") {
		t.Errorf("Expected built-in rules in listing, got: %s", output)
	}
}

func TestRunRules_MissingFile(t *testing.T) {
	cmd := NewRulesCommand()
	cmd.SetArgs([]string{"/nonexistent/rules.yaml"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Error("Expected error for missing rules file")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected 'validation failed' error, got: %v", err)
	}
}

func TestVersionOutput(t *testing.T) {
	cmd := NewVersionCommand()
	cmd.SetArgs([]string{})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cmd.ExecuteContext(context.Background())

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "chronicler") {
		t.Errorf("Expected binary name in output, got: %s", output)
	}
}
