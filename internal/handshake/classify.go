package handshake

import (
	"errors"

	utls "github.com/refraction-networking/utls"
)

// curveIncompatibleAlerts enumerates the TLS alert codes that the
// TLS 1.3 auto-retry treats as "server rejected our supported_groups" —
// specific handshake error codes rather than string-matching the error
// text.
var curveIncompatibleAlerts = map[utls.AlertError]bool{
	utls.AlertHandshakeFailure:      true,
	utls.AlertInsufficientSecurity:  true,
	utls.AlertInternalError:         true,
}

// tls13RefusalAlerts enumerates alert codes treated as "server refused
// TLS 1.3 / ALPN h2", driving the JA3 fallback retry step.
var tls13RefusalAlerts = map[utls.AlertError]bool{
	utls.AlertProtocolVersion:      true,
	utls.AlertHandshakeFailure:     true,
	utls.AlertNoApplicationProtocol: true,
}

func isCurveIncompatible(err error) bool {
	var alert utls.AlertError
	if errors.As(err, &alert) {
		return curveIncompatibleAlerts[alert]
	}
	return false
}

func isTLS13Refusal(err error) bool {
	var alert utls.AlertError
	if errors.As(err, &alert) {
		return tls13RefusalAlerts[alert]
	}
	return false
}
