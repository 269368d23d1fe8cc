package services

import (
	"strings"
	"testing"
	"time"
)

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		alias string
		ok    bool
	}{
		{"ab", true},
		{"grimgor_ironhide", true},
		{"Coach-99", true},
		{strings.Repeat("a", 50), true},
		{"a", false},
		{strings.Repeat("a", 51), false},
		{"bad alias", false},
		{"bad!alias", false},
		{"", false},
	}
	for _, tc := range tests {
		fields := make(map[string]string)
		validateAlias(fields, tc.alias)
		if got := len(fields) == 0; got != tc.ok {
			t.Errorf("validateAlias(%q) valid = %v, want %v (%v)", tc.alias, got, tc.ok, fields)
		}
	}
}

func TestValidateTournamentName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"Spike Trophy", true},
		{"abc", true},
		{"ab", false},
		{"", false},
		{strings.Repeat("a", 200), true},
		{strings.Repeat("a", 201), false},
		// Limits count characters, not bytes.
		{"ééé", true},
		{"éé", false},
		{strings.Repeat("é", 200), true},
		{strings.Repeat("é", 201), false},
	}
	for _, tc := range tests {
		fields := make(map[string]string)
		validateTournamentName(fields, tc.name)
		if got := len(fields) == 0; got != tc.ok {
			t.Errorf("validateTournamentName(%q) valid = %v, want %v (%v)", tc.name, got, tc.ok, fields)
		}
	}
}

func TestValidateRegistrationOptionals_CharacterLimits(t *testing.T) {
	ok := strings.Repeat("é", 100)
	long := strings.Repeat("é", 101)

	fields := make(map[string]string)
	validateRegistrationOptionals(fields, &ok, nil, &ok)
	if len(fields) != 0 {
		t.Errorf("100-character names flagged: %v", fields)
	}

	fields = make(map[string]string)
	validateRegistrationOptionals(fields, &long, nil, &long)
	if _, present := fields["full_name"]; !present {
		t.Error("101-character full name not flagged")
	}
	if _, present := fields["team_name"]; !present {
		t.Error("101-character team name not flagged")
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"coach@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"", false},
		{"no-at-sign", false},
		{"missing@tld", false},
		{"@example.com", false},
	}
	for _, tc := range tests {
		fields := make(map[string]string)
		validateEmail(fields, "email", tc.email)
		if got := len(fields) == 0; got != tc.ok {
			t.Errorf("validateEmail(%q) valid = %v, want %v", tc.email, got, tc.ok)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Coach@Example.COM "); got != "coach@example.com" {
		t.Errorf("normalizeEmail = %q", got)
	}
}

func TestValidateRegistrationOptionals_NAFNumber(t *testing.T) {
	tests := []struct {
		naf string
		ok  bool
	}{
		{"12345", true},
		{"1234567890", true},
		{"", true},
		{"12345678901", false},
		{"12a45", false},
	}
	for _, tc := range tests {
		fields := make(map[string]string)
		naf := tc.naf
		validateRegistrationOptionals(fields, nil, &naf, nil)
		if got := len(fields) == 0; got != tc.ok {
			t.Errorf("naf %q valid = %v, want %v", tc.naf, got, tc.ok)
		}
	}
}

func TestValidateTournamentDates(t *testing.T) {
	deadline := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	start := deadline.Add(24 * time.Hour)
	end := start.Add(48 * time.Hour)

	fields := make(map[string]string)
	validateTournamentDates(fields, &deadline, &start, &end)
	if len(fields) != 0 {
		t.Errorf("ordered dates flagged: %v", fields)
	}

	// Equal boundaries are allowed.
	fields = make(map[string]string)
	validateTournamentDates(fields, &deadline, &deadline, &deadline)
	if len(fields) != 0 {
		t.Errorf("equal dates flagged: %v", fields)
	}

	fields = make(map[string]string)
	bad := deadline.Add(-time.Hour)
	validateTournamentDates(fields, &deadline, &bad, nil)
	if _, ok := fields["start_date"]; !ok {
		t.Error("start before deadline not flagged")
	}

	fields = make(map[string]string)
	validateTournamentDates(fields, nil, &start, &deadline)
	if _, ok := fields["end_date"]; !ok {
		t.Error("end before start not flagged")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := newValidationError(map[string]string{
		"name":  "must be at least 3 characters",
		"email": "must be a valid email address",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	// Fields are sorted so the message is stable.
	if !strings.Contains(msg, "email") || strings.Index(msg, "email") > strings.Index(msg, "name") {
		t.Errorf("unexpected message ordering: %q", msg)
	}

	if err := newValidationError(map[string]string{}); err != nil {
		t.Errorf("empty fields should produce nil, got %v", err)
	}
}
