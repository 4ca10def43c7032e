package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-200 reply from the LLM provider.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("llm: API returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("llm: API returned %d: %s", e.StatusCode, e.Message)
}

// QuotaExceeded reports whether the provider refused for quota or rate reasons.
func (e *APIError) QuotaExceeded() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.Code == "insufficient_quota" ||
		e.Code == "rate_limit_exceeded"
}

// IsQuotaExceeded reports whether err carries an APIError for an exhausted
// quota or rate limit.
func IsQuotaExceeded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.QuotaExceeded()
}

// chatErrorResponse captures an API error from the LLM provider.
type chatErrorResponse struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// classifyLLMError builds an APIError from a non-200 reply body.
func classifyLLMError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}

	var errResp chatErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return apiErr
	}
	if errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
	}
	apiErr.Type = errResp.Error.Type
	// Some providers send a numeric code.
	var code string
	if json.Unmarshal(errResp.Error.Code, &code) == nil {
		apiErr.Code = code
	}
	if apiErr.Code == "" && errResp.Error.Type == "insufficient_quota" {
		apiErr.Code = "insufficient_quota"
	}
	return apiErr
}
