package models

import (
	"math"
	"testing"
)

func TestLevelForScore_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, RiskSafe},
		{19, RiskSafe},
		{19.9, RiskSafe},
		{20, RiskLow},
		{39, RiskLow},
		{40, RiskMedium},
		{59, RiskMedium},
		{60, RiskHigh},
		{79, RiskHigh},
		{80, RiskCritical},
		{100, RiskCritical},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestLevelForScore_Monotonic(t *testing.T) {
	rank := map[string]int{RiskSafe: 0, RiskLow: 1, RiskMedium: 2, RiskHigh: 3, RiskCritical: 4}
	prev := -1
	for s := 0.0; s <= 100; s += 0.5 {
		r := rank[LevelForScore(s)]
		if r < prev {
			t.Fatalf("level decreased at score %v", s)
		}
		prev = r
	}
}

func TestNewRegion_Clamps(t *testing.T) {
	r := NewRegion(-5, 120, 30, 101, "x")
	if r.Top != 0 || r.Left != 100 || r.Width != 30 || r.Height != 100 {
		t.Errorf("NewRegion clamped to %+v", r)
	}
}

func TestClampPercent_NonFinite(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{math.NaN(), 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
		{42.5, 42.5},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com", false},
		{"  http://Example.COM/Path#frag ", "http://example.com/Path", false},
		{"HTTPS://shop.example.com/?q=1", "https://shop.example.com/?q=1", false},
		{"", "", true},
		{"   ", "", true},
		{"ftp://example.com", "", true},
		{"javascript://alert(1)", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatusForKind(t *testing.T) {
	tests := map[ErrorKind]int{
		KindValidation:        400,
		KindDomainNotFound:    400,
		KindTimeout:           408,
		KindConnectionRefused: 503,
		KindSSL:               502,
		KindProtocol:          502,
		KindRateLimit:         429,
		KindUnauthorized:      401,
		KindGeneral:           500,
	}
	for kind, want := range tests {
		if got := StatusForKind(kind); got != want {
			t.Errorf("StatusForKind(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestDegradedSnapshot(t *testing.T) {
	s := DegradedSnapshot("https://x.test", KindGeneral, "boom", nil)
	if !s.Failed() || s.FetchError.Kind != KindGeneral {
		t.Fatalf("FetchError = %+v", s.FetchError)
	}
	if s.Forms == nil || s.Links == nil || s.Buttons == nil || s.Alerts == nil {
		t.Error("degraded snapshot collections must be non-nil")
	}
	if s.Title != "https://x.test" {
		t.Errorf("Title = %q", s.Title)
	}
	if s.Screenshot != nil {
		t.Error("Screenshot should be nil")
	}
}
