package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestIdentityKey(t *testing.T) {
	a := NewIdentity("Z1", "host.example.com", TypeA)
	b := NewIdentity("Z1", "host.example.com.", TypeA)
	if a.Key() != b.Key() {
		t.Fatalf("Keys differ for same identity: %q vs %q", a.Key(), b.Key())
	}

	wild := NewIdentity("Z1", "*.example.com", TypeAAAA)
	if strings.ContainsAny(wild.Key(), "/\\*:") {
		t.Fatalf("Key is not path-safe: %q", wild.Key())
	}

	if a.Key() == wild.Key() {
		t.Fatal("Different identities must map to different keys")
	}
}

func TestRRTypeValid(t *testing.T) {
	for _, valid := range []RRType{TypeA, TypeAAAA} {
		if !valid.Valid() {
			t.Errorf("%s should be valid", valid)
		}
	}
	for _, invalid := range []RRType{"CNAME", "TXT", "a", ""} {
		if invalid.Valid() {
			t.Errorf("%s should be invalid", invalid)
		}
	}
}

func TestTranscript(t *testing.T) {
	line := Transcript("submit", map[string]string{"zone": "Z1"}, nil, errors.New("throttled"))
	if strings.Contains(line, "\n") {
		t.Fatalf("Transcript must be a single line: %q", line)
	}
	for _, want := range []string{`"op":"submit"`, `"zone":"Z1"`, `"error":"throttled"`} {
		if !strings.Contains(line, want) {
			t.Errorf("Transcript missing %s: %q", want, line)
		}
	}
}
