package scan

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/fraudlens/analysis"
	"github.com/use-agent/fraudlens/cache"
	"github.com/use-agent/fraudlens/gate"
	"github.com/use-agent/fraudlens/llm"
	"github.com/use-agent/fraudlens/models"
	"github.com/use-agent/fraudlens/scraper"
	"github.com/use-agent/fraudlens/testutil"
)

type fixture struct {
	provider *testutil.FakeProvider
	prober   *testutil.FakeProber
	oracle   *testutil.FakeOracle
	svc      *Service
}

func newFixture(t *testing.T, cacheOn bool) *fixture {
	t.Helper()
	f := &fixture{
		provider: &testutil.FakeProvider{Page: &testutil.FakePage{}},
		prober:   &testutil.FakeProber{},
		oracle: &testutil.FakeOracle{
			AssessReply:  `{"riskScore":85,"riskLevel":"Critical","fraudTypes":["phishing"],"indicators":["fake login","urgent banner"],"safetyAdvice":["leave"]}`,
			RegionsReply: `{"markers":[{"top":10,"left":10,"width":50,"height":20,"label":"fake login"}]}`,
		},
	}
	extractor := scraper.NewExtractor(f.provider, f.prober, scraper.ExtractorOptions{
		NavigationTimeout: 500 * time.Millisecond,
	})
	f.svc = NewService(Deps{
		Cache:     cache.New(cache.Options{Enabled: cacheOn, TTL: time.Minute, MaxItems: 10, SweepInterval: time.Minute}),
		Gate:      gate.New(2),
		Extractor: extractor,
		Assessor:  analysis.NewAssessor(f.oracle),
		Locator:   analysis.NewLocator(f.oracle),
	})
	return f
}

func TestScan_FullPipeline(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.svc.Scan(context.Background(), "example.com", "req-1")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.URL != "https://example.com" || res.RequestID != "req-1" || res.Cached {
		t.Errorf("result header = %+v", res)
	}
	if res.Screenshot == nil || !strings.HasPrefix(*res.Screenshot, "data:image/jpeg;base64,") {
		t.Errorf("Screenshot = %v", res.Screenshot)
	}
	if res.Analysis.RiskScore != 85 || res.Analysis.IsSimulated {
		t.Errorf("Analysis = %+v", res.Analysis)
	}
	if len(res.Markers) != 1 || res.Markers[0].Label != "fake login" {
		t.Errorf("Markers = %+v", res.Markers)
	}
	if res.ScanTime.IsZero() {
		t.Error("ScanTime not set")
	}
}

func TestScan_OracleUnavailable(t *testing.T) {
	f := newFixture(t, false)
	f.oracle.AssessErr = &llm.APIError{StatusCode: 503, Message: "unavailable"}

	res, err := f.svc.Scan(context.Background(), "http://example.com", "req-2")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !res.Analysis.IsSimulated || res.Analysis.RiskScore != 75 {
		t.Errorf("Analysis = %+v, want simulated 75", res.Analysis)
	}
	if len(res.Markers) != 3 {
		t.Fatalf("len(Markers) = %d, want 3", len(res.Markers))
	}
	for i, m := range analysis.PlaceholderRegions() {
		if res.Markers[i] != m {
			t.Errorf("marker %d = %+v, want placeholder %+v", i, res.Markers[i], m)
		}
	}
	if f.oracle.RegionCalls() != 0 {
		t.Error("region lookup must be skipped for simulated assessments")
	}
}

func TestScan_UnresolvableHost(t *testing.T) {
	f := newFixture(t, false)
	f.prober.Err = &net.DNSError{Err: "no such host", Name: "nonexistent.invalid", IsNotFound: true}

	res, err := f.svc.Scan(context.Background(), "http://nonexistent.invalid", "req-3")
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	var scanErr *models.ScanError
	if !errors.As(err, &scanErr) || scanErr.Kind != models.KindDomainNotFound {
		t.Fatalf("error = %v, want DomainNotFound", err)
	}
	if models.StatusForKind(scanErr.Kind) != 400 {
		t.Errorf("status = %d", models.StatusForKind(scanErr.Kind))
	}
	if f.oracle.AssessCalls() != 0 {
		t.Error("oracle must not be consulted for unreachable pages")
	}
}

func TestScan_FatalNavigationKinds(t *testing.T) {
	tests := []struct {
		navErr error
		want   models.ErrorKind
	}{
		{errors.New("net::ERR_NAME_NOT_RESOLVED"), models.KindDomainNotFound},
		{errors.New("net::ERR_CONNECTION_REFUSED"), models.KindConnectionRefused},
		{errors.New("net::ERR_CERT_DATE_INVALID"), models.KindSSL},
		{errors.New("net::ERR_HTTP2_PROTOCOL_ERROR"), models.KindProtocol},
		{context.DeadlineExceeded, models.KindTimeout},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			f := newFixture(t, false)
			f.provider.Page.NavigateErr = tt.navErr

			_, err := f.svc.Scan(context.Background(), "https://x.test", "r")
			var scanErr *models.ScanError
			if !errors.As(err, &scanErr) || scanErr.Kind != tt.want {
				t.Errorf("error = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func TestScan_GeneralFailureContinues(t *testing.T) {
	f := newFixture(t, false)
	f.provider.Page.NavigateErr = errors.New("Target closed")

	res, err := f.svc.Scan(context.Background(), "https://x.test", "r")
	if err != nil {
		t.Fatalf("Scan() error = %v, want degraded result", err)
	}
	if f.oracle.AssessCalls() != 1 {
		t.Errorf("AssessCalls = %d", f.oracle.AssessCalls())
	}
	if !strings.HasPrefix(f.oracle.LastSummary().BodyText, "Unable to retrieve page content") {
		t.Errorf("summary body = %q", f.oracle.LastSummary().BodyText)
	}
	if res.Screenshot == nil {
		t.Error("best-effort screenshot should be kept")
	}
}

func TestScan_CacheHitSkipsPipeline(t *testing.T) {
	f := newFixture(t, true)

	first, err := f.svc.Scan(context.Background(), "https://example.com", "req-a")
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := f.svc.Scan(context.Background(), "https://example.com", "req-b")
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}

	if got := f.provider.Acquires(); got != 1 {
		t.Errorf("extractions = %d, want 1", got)
	}
	if got := f.oracle.AssessCalls(); got != 1 {
		t.Errorf("oracle assess calls = %d, want 1", got)
	}
	if !second.Cached || second.RequestID != "req-b" {
		t.Errorf("second = cached:%v requestId:%q", second.Cached, second.RequestID)
	}
	if first.Cached || first.RequestID != "req-a" {
		t.Error("first result must not be modified by the cache hit")
	}
	if second.Analysis.RiskScore != first.Analysis.RiskScore || len(second.Markers) != len(first.Markers) {
		t.Error("cached result differs from original")
	}
}

func TestScan_ValidationError(t *testing.T) {
	f := newFixture(t, true)
	for _, in := range []string{"", "   ", "ftp://x.test", "http://"} {
		_, err := f.svc.Scan(context.Background(), in, "r")
		var scanErr *models.ScanError
		if !errors.As(err, &scanErr) || scanErr.Kind != models.KindValidation {
			t.Errorf("Scan(%q) error = %v, want ValidationError", in, err)
		}
	}
	if f.provider.Acquires() != 0 {
		t.Error("invalid URLs must not reach the browser")
	}
}

func TestScan_CanceledRequestStillCompletes(t *testing.T) {
	f := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.svc.Scan(ctx, "https://x.test", "r"); err != nil {
		t.Errorf("Scan() with canceled ctx error = %v", err)
	}
}

func TestScan_ConcurrentScansRespectGate(t *testing.T) {
	f := newFixture(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Scan(context.Background(), "https://x.test", "r"); err != nil {
				t.Errorf("Scan() error = %v", err)
			}
		}()
	}
	wg.Wait()

	select {
	case <-f.svc.Drain():
	case <-time.After(time.Second):
		t.Fatal("gate did not drain")
	}
	if gs, _ := f.svc.Stats(); gs.Active != 0 || gs.Queued != 0 {
		t.Errorf("Stats() = %+v", gs)
	}
	if f.provider.Releases() != 6 {
		t.Errorf("Releases() = %d, want 6", f.provider.Releases())
	}
}
