package scraper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/use-agent/fraudlens/models"
)

// chromeNetErrors maps Chrome net error names to failure kinds. Entries are
// matched as substrings, so "ERR_CERT_" covers every certificate error.
var chromeNetErrors = []struct {
	marker string
	kind   models.ErrorKind
}{
	{"ERR_NAME_NOT_RESOLVED", models.KindDomainNotFound},
	{"ERR_NAME_RESOLUTION_FAILED", models.KindDomainNotFound},
	{"ERR_CONNECTION_REFUSED", models.KindConnectionRefused},
	{"ERR_TIMED_OUT", models.KindTimeout},
	{"ERR_CONNECTION_TIMED_OUT", models.KindTimeout},
	{"ERR_CERT_", models.KindSSL},
	{"ERR_SSL_", models.KindSSL},
	{"ERR_BAD_SSL_CLIENT_AUTH_CERT", models.KindSSL},
	{"_PROTOCOL_", models.KindProtocol},
	{"ERR_EMPTY_RESPONSE", models.KindProtocol},
	{"ERR_INVALID_RESPONSE", models.KindProtocol},
}

// Classify maps a navigation, probe or browser error to a failure kind.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.KindGeneral
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return models.KindTimeout
		}
		return models.KindDomainNotFound
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return models.KindConnectionRefused
	}

	var (
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return models.KindSSL
	case errors.As(err, &recordErr):
		return models.KindProtocol
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.KindTimeout
	}

	msg := strings.ToUpper(err.Error())
	for _, e := range chromeNetErrors {
		if strings.Contains(msg, e.marker) {
			return e.kind
		}
	}
	if strings.Contains(msg, "TLS:") || strings.Contains(msg, "X509:") {
		return models.KindSSL
	}
	return models.KindGeneral
}
