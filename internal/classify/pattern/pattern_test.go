package pattern

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMatch_DefaultRules(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), DefaultRules(), nil)

	tests := []struct {
		name      string
		message   string
		wantLabel string
		wantOK    bool
	}{
		{"backup completion", "Backup completed successfully.", "System Notification", true},
		{"user login", "User User123 logged in.", "User Action", true},
		{"user logout", "User User42 logged out.", "User Action", true},
		{"account creation", "Account with ID 1234 created by User1.", "User Action", true},
		{"system update", "System updated to version 5.2.1", "System Notification", true},
		{"embedded match", "note: Backup completed successfully. (archived)", "System Notification", true},
		{"no match", "Hey Bro, chill ya!", "", false},
		{"gibberish", "qwerty zxcvb 12345", "", false},
		{"empty message", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			label, ok := m.Match(tt.message)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q", label, tt.wantLabel)
			}
		})
	}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), []Rule{
		{Pattern: `error`, Label: "First"},
		{Pattern: `error code`, Label: "Second"},
	}, nil)

	label, ok := m.Match("error code 500")
	if !ok || label != "First" {
		t.Errorf("label = %q, ok = %v; want First in table order", label, ok)
	}
}

func TestNew_MalformedRuleSkipped(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), []Rule{
		{Pattern: `[unclosed`, Label: "Broken"},
		{Pattern: `valid pattern`, Label: "Works"},
	}, nil)

	if m.Len() != 1 {
		t.Fatalf("rule count = %d, want 1 (malformed skipped)", m.Len())
	}
	label, ok := m.Match("this is a valid pattern here")
	if !ok || label != "Works" {
		t.Errorf("label = %q, ok = %v; surviving rule must keep evaluating", label, ok)
	}
}

func TestMatch_Idempotent(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), DefaultRules(), nil)
	msg := "Disk cleanup completed successfully."

	l1, ok1 := m.Match(msg)
	l2, ok2 := m.Match(msg)
	if l1 != l2 || ok1 != ok2 {
		t.Errorf("repeated match drifted: (%q,%v) vs (%q,%v)", l1, ok1, l2, ok2)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `- pattern: 'Cache invalidated for key .*'
  label: Cache Event
- pattern: 'Deployment .* finished'
  label: Deploy Event
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("len(rules) = %d, want 2", len(rules))
	}
	if rules[0].Label != "Cache Event" {
		t.Errorf("rules[0].Label = %q, want Cache Event", rules[0].Label)
	}

	m := New(context.Background(), rules, nil)
	if label, ok := m.Match("Cache invalidated for key user:42"); !ok || label != "Cache Event" {
		t.Errorf("label = %q, ok = %v", label, ok)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{not a list"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
