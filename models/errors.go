package models

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies a scan failure for API responses and logs.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindTimeout           ErrorKind = "TimeoutError"
	KindDomainNotFound    ErrorKind = "DomainNotFound"
	KindConnectionRefused ErrorKind = "ConnectionRefused"
	KindSSL               ErrorKind = "SslError"
	KindProtocol          ErrorKind = "ProtocolError"
	KindGeneral           ErrorKind = "GeneralError"
	KindRateLimit         ErrorKind = "RateLimitExceeded"
	KindUnauthorized      ErrorKind = "Unauthorized"
)

// Fatal reports whether an extraction failure of this kind prevents the
// scan from producing a result. General failures continue with a degraded
// snapshot.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindValidation, KindTimeout, KindDomainNotFound, KindConnectionRefused, KindSSL, KindProtocol:
		return true
	}
	return false
}

// Message is the user-facing explanation for a failure kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindValidation:
		return "Please provide a valid URL"
	case KindTimeout:
		return "The website took too long to respond"
	case KindDomainNotFound:
		return "The domain could not be found, check that the URL is correct"
	case KindConnectionRefused:
		return "The website refused the connection"
	case KindSSL:
		return "The website's SSL certificate could not be verified"
	case KindProtocol:
		return "A protocol error occurred while communicating with the website"
	case KindRateLimit:
		return "Daily scan limit exceeded, please try again tomorrow"
	case KindUnauthorized:
		return "Missing or invalid API key"
	default:
		return "An error occurred during the scan"
	}
}

// StatusForKind maps an error kind to its HTTP status code.
func StatusForKind(k ErrorKind) int {
	switch k {
	case KindValidation, KindDomainNotFound:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindConnectionRefused:
		return http.StatusServiceUnavailable
	case KindSSL, KindProtocol:
		return http.StatusBadGateway
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ScanError is the internal error type carrying a failure kind.
// It implements the error interface and supports error wrapping via Unwrap.
type ScanError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped original error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError creates a ScanError with the kind's default message.
func NewScanError(kind ErrorKind, err error) *ScanError {
	return &ScanError{Kind: kind, Message: kind.Message(), Err: err}
}

// ErrorResponse is the body of every non-200 API response.
type ErrorResponse struct {
	Error     bool      `json:"error"`
	Code      ErrorKind `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp string    `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// NewErrorResponse builds an error body for kind stamped with the current time.
func NewErrorResponse(kind ErrorKind, details, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     true,
		Code:      kind,
		Message:   kind.Message(),
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}
