package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/use-agent/fraudlens/models"
	"github.com/use-agent/fraudlens/testutil"
)

func assessment(score float64, indicators ...string) models.RiskAssessment {
	return models.RiskAssessment{RiskScore: score, RiskLevel: models.LevelForScore(score), Indicators: indicators}
}

func TestLocate_PlaceholdersWhenSimulated(t *testing.T) {
	oracle := &testutil.FakeOracle{}
	got := NewLocator(oracle).Locate(context.Background(), SimulatedAssessment(models.DegradationAPIError), sampleSnapshot(), "r")

	if len(got) != 3 || got[0] != PlaceholderRegions()[0] {
		t.Errorf("got %+v, want placeholders", got)
	}
	if oracle.RegionCalls() != 0 {
		t.Error("oracle must not be called for simulated assessments")
	}
}

func TestLocate_PlaceholdersWithoutScreenshot(t *testing.T) {
	snap := sampleSnapshot()
	snap.Screenshot = nil
	got := NewLocator(&testutil.FakeOracle{}).Locate(context.Background(), assessment(90, "x"), snap, "r")
	if len(got) != 3 {
		t.Errorf("len = %d, want 3 placeholders", len(got))
	}
}

func TestLocate_LowRiskIsEmpty(t *testing.T) {
	oracle := &testutil.FakeOracle{}
	got := NewLocator(oracle).Locate(context.Background(), assessment(29.9, "x"), sampleSnapshot(), "r")
	if got == nil || len(got) != 0 {
		t.Errorf("got %+v, want empty non-nil", got)
	}
	if oracle.RegionCalls() != 0 {
		t.Error("oracle must not be called below the locate threshold")
	}
}

func TestLocate_OracleReply(t *testing.T) {
	oracle := &testutil.FakeOracle{RegionsReply: `{"markers":[{"top":12,"left":8,"width":40,"height":10,"label":"fake login"}]}`}
	snap := sampleSnapshot()
	snap.Buttons = make([]string, 15)
	for i := range snap.Buttons {
		snap.Buttons[i] = "b"
	}

	got := NewLocator(oracle).Locate(context.Background(), assessment(55, "fake login"), snap, "r")

	if len(got) != 1 || got[0].Label != "fake login" || got[0].Width != 40 {
		t.Errorf("got %+v", got)
	}
	q := oracle.LastRegionQuery()
	if len(q.Buttons) != maxQueryButtons || q.FormCount != 2 || q.Indicators[0] != "fake login" {
		t.Errorf("query = %+v", q)
	}
}

func TestLocate_MalformedSynthesizes(t *testing.T) {
	tests := []struct {
		indicators []string
		want       int
	}{
		{nil, 0},
		{[]string{"a"}, 1},
		{[]string{"a", "b"}, 2},
		{[]string{"a", "b", "c"}, 3},
		{[]string{"a", "b", "c", "d", "e"}, 3},
	}
	for _, tt := range tests {
		oracle := &testutil.FakeOracle{RegionsReply: `not json at all`}
		got := NewLocator(oracle).Locate(context.Background(), assessment(60, tt.indicators...), sampleSnapshot(), "r")

		if len(got) != tt.want {
			t.Errorf("indicators=%d: len = %d, want %d", len(tt.indicators), len(got), tt.want)
			continue
		}
		for i, r := range got {
			want := models.NewRegion(float64(20+20*i), float64(10+5*i), 30, 5, tt.indicators[i])
			if r != want {
				t.Errorf("region %d = %+v, want %+v", i, r, want)
			}
		}
	}
}

func TestLocate_OracleFailure(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{69, 0},
		{70, 1},
		{95, 1},
	}
	for _, tt := range tests {
		oracle := &testutil.FakeOracle{RegionsErr: errors.New("timeout")}
		got := NewLocator(oracle).Locate(context.Background(), assessment(tt.score, "x"), sampleSnapshot(), "r")
		if len(got) != tt.want {
			t.Errorf("score %v: len = %d, want %d", tt.score, len(got), tt.want)
		}
		if tt.want == 1 && (got[0].Top != 20 || got[0].Label != genericLabel) {
			t.Errorf("generic region = %+v", got[0])
		}
	}
}

func TestSynthesizeRegions_NeverMoreThanThree(t *testing.T) {
	for n := 0; n < 10; n++ {
		ind := make([]string, n)
		if got := len(SynthesizeRegions(ind)); got > 3 || got != min(n, 3) {
			t.Errorf("n=%d: got %d regions", n, got)
		}
	}
}
