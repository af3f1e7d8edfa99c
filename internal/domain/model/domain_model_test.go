//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"telegram-file-vault/internal/domain"
)

func TestParseUserID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12345", 12345, false},
		{" 42 ", 42, false},
		{"abc", 0, true},
		{"", 0, true},
		{"0", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseUserID(tc.in)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("ParseUserID(%q): expected ErrInvalidArgument, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseUserID(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestNewFile(t *testing.T) {
	f, err := NewFile(10, 7, "  report.pdf ", "", "caption")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.FileID == "" {
		t.Error("expected a generated file id")
	}
	if f.CustomName != "report.pdf" {
		t.Errorf("expected trimmed name, got %q", f.CustomName)
	}
	if f.MediaType != MediaUnknown {
		t.Errorf("expected unknown media type, got %q", f.MediaType)
	}
	if f.DisplayName() != "report.pdf" {
		t.Errorf("unexpected display name %q", f.DisplayName())
	}

	if _, err := NewFile(0, 7, "", MediaPhoto, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero message id, got %v", err)
	}
	unnamed := &File{}
	if unnamed.DisplayName() != "Unnamed file" {
		t.Errorf("unexpected display name %q", unnamed.DisplayName())
	}
}

func TestNewBatch(t *testing.T) {
	files := []string{"a", "b"}
	b, err := NewBatch(files, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	files[0] = "mutated"
	if b.Files[0] != "a" {
		t.Error("batch must own a copy of the file list")
	}
	if b.TotalFiles != 2 {
		t.Errorf("expected total 2, got %d", b.TotalFiles)
	}
	if _, err := NewBatch(nil, 1); !errors.Is(err, domain.ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestAccessToken(t *testing.T) {
	now := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	tok, err := NewAccessToken(SystemUserID, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !tok.IsSystem() {
		t.Error("expected a system token")
	}
	if !tok.ValidFor(now.Add(22*time.Hour), time.Hour) {
		t.Error("token with 2h left should be valid for another hour")
	}
	if tok.ValidFor(now.Add(23*time.Hour+30*time.Minute), time.Hour) {
		t.Error("token with 30m left should not be valid for another hour")
	}
	if _, err := NewAccessToken(1, 0, now); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero ttl, got %v", err)
	}

	if !Grants(5, 5) || !Grants(SystemUserID, 5) || Grants(6, 5) {
		t.Error("unexpected Grants result")
	}
}

func TestMediaIcon(t *testing.T) {
	if MediaPhoto.Icon() != "🖼️" {
		t.Errorf("unexpected photo icon %q", MediaPhoto.Icon())
	}
	if MediaType("hologram").Icon() != "📁" {
		t.Errorf("unexpected fallback icon %q", MediaType("hologram").Icon())
	}
}

func TestFieldKey(t *testing.T) {
	cases := map[string]string{
		"anime":     "anime",
		"v1.2":      "v1_2",
		"$where":    "where",
		"   ":       "_",
		"date: x.y": "date: x_y",
	}
	for in, want := range cases {
		if got := FieldKey(in); got != want {
			t.Errorf("FieldKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSessionStateIsZero(t *testing.T) {
	var nilState *SessionState
	if !nilState.IsZero() || !(&SessionState{}).IsZero() {
		t.Error("empty states should be zero")
	}
	if (&SessionState{BatchOpen: true}).IsZero() {
		t.Error("open batch is not zero")
	}
}
