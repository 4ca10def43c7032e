package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/use-agent/fraudlens/models"
)

const assessSystemPrompt = `You are a cybersecurity expert specialising in online fraud. Assess whether a web page is a scam, phishing site or other fraudulent page from the content summary you are given.

Consider: requests for credentials or payment data, urgency or threat language, offers that are too good to be true, brand impersonation, mismatched or external form targets, and missing legitimacy signals.

Reply with a single JSON object and nothing else:
{
  "riskScore": number from 0 to 100,
  "riskLevel": "Safe" | "Low" | "Medium" | "High" | "Critical",
  "fraudTypes": ["type", ...],
  "indicators": ["specific observation", ...],
  "safetyAdvice": ["advice", ...]
}`

const regionsSystemPrompt = `You identify where fraudulent elements appear on a screenshot of a web page. Given fraud indicators and a summary of the page, infer which UI elements are suspicious (fake urgency banners, forms asking for sensitive data, unrealistic offers, fake badges or logos, suspicious contact details) and estimate their position.

Positions are percentages of the screenshot: top and left of the box, then width and height.

Reply with a single JSON object and nothing else:
{"markers": [{"top": 20, "left": 10, "width": 30, "height": 5, "label": "short description"}]}`

func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func assessUserPrompt(s models.ContentSummary) string {
	desc := s.Description
	if desc == "" {
		desc = "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", s.URL)
	fmt.Fprintf(&b, "Title: %s\n", s.Title)
	fmt.Fprintf(&b, "Description: %s\n", desc)
	fmt.Fprintf(&b, "Visible text:\n%s\n\n", s.BodyText)
	fmt.Fprintf(&b, "Forms: %d\n", s.FormCount)
	fmt.Fprintf(&b, "Form input types: %s\n", jsonList(s.InputTypes))
	fmt.Fprintf(&b, "External links: %d\n", s.ExternalLinkCount)
	fmt.Fprintf(&b, "Buttons: %s\n", jsonList(s.Buttons))
	fmt.Fprintf(&b, "Alerts and popups: %s\n", jsonList(s.Alerts))
	return b.String()
}

func regionsUserPrompt(q models.RegionQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fraud indicators: %s\n\n", strings.Join(q.Indicators, ", "))
	fmt.Fprintf(&b, "Page title: %s\n", q.Title)
	fmt.Fprintf(&b, "Forms: %d\n", q.FormCount)
	fmt.Fprintf(&b, "Buttons: %s\n", jsonList(q.Buttons))
	fmt.Fprintf(&b, "Alerts and popups: %s\n", jsonList(q.Alerts))
	return b.String()
}
