package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/fraudlens/models"
)

// EventHighRisk is sent when a genuine assessment crosses the score threshold.
const EventHighRisk = "scan.high_risk"

// SignatureHeader carries the HMAC-SHA256 of the body: sha256=<hex>.
const SignatureHeader = "X-Fraudlens-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string   `json:"type"`
	RequestID string   `json:"request_id"`
	Timestamp int64    `json:"timestamp"`
	Data      ScanData `json:"data"`
}

// ScanData summarizes a scan without the screenshot.
type ScanData struct {
	URL        string    `json:"url"`
	RiskScore  float64   `json:"riskScore"`
	RiskLevel  string    `json:"riskLevel"`
	FraudTypes []string  `json:"fraudTypes"`
	Indicators []string  `json:"indicators"`
	ScanTime   time.Time `json:"scanTime"`
}

// Notifier posts high-risk scan events to a single endpoint.
type Notifier struct {
	url      string
	secret   string
	minScore float64
	client   *http.Client
	delays   []time.Duration
}

// NewNotifier creates a Notifier. It returns nil when url is empty; a nil
// Notifier ignores every call.
func NewNotifier(url, secret string, minScore float64) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:      url,
		secret:   secret,
		minScore: minScore,
		client:   &http.Client{Timeout: 10 * time.Second},
		delays:   []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Wants reports whether res should be announced. Simulated assessments
// never are.
func (n *Notifier) Wants(res *models.ScanResult) bool {
	return n != nil && !res.Analysis.IsSimulated && res.Analysis.RiskScore >= n.minScore
}

// NotifyAsync delivers an event for res in the background when Wants
// reports true. Returns whether a delivery was started.
func (n *Notifier) NotifyAsync(res *models.ScanResult) bool {
	if !n.Wants(res) {
		return false
	}
	event := &Event{
		Type:      EventHighRisk,
		RequestID: res.RequestID,
		Timestamp: time.Now().Unix(),
		Data: ScanData{
			URL:        res.URL,
			RiskScore:  res.Analysis.RiskScore,
			RiskLevel:  res.Analysis.RiskLevel,
			FraudTypes: res.Analysis.FraudTypes,
			Indicators: res.Analysis.Indicators,
			ScanTime:   res.ScanTime,
		},
	}
	go n.deliverWithRetry(event)
	return true
}

// deliverWithRetry tries once immediately, then after each remaining delay.
func (n *Notifier) deliverWithRetry(event *Event) {
	for attempt, delay := range n.delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := n.Deliver(ctx, event)
		cancel()
		if err == nil {
			slog.Info("webhook delivered",
				"url", n.url,
				"event", event.Type,
				"request_id", event.RequestID,
				"attempt", attempt+1,
			)
			return
		}
		slog.Warn("webhook delivery failed",
			"url", n.url,
			"event", event.Type,
			"request_id", event.RequestID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"url", n.url,
		"event", event.Type,
		"request_id", event.RequestID,
	)
}

// Deliver sends an event synchronously, signed when a secret is set.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Fraudlens-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
