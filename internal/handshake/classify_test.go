package handshake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	utls "github.com/refraction-networking/utls"
)

func TestIsCurveIncompatible_KnownAlerts(t *testing.T) {
	require.True(t, isCurveIncompatible(utls.AlertHandshakeFailure))
	require.True(t, isCurveIncompatible(utls.AlertInsufficientSecurity))
	require.True(t, isCurveIncompatible(utls.AlertInternalError))
}

func TestIsCurveIncompatible_UnrelatedAlert(t *testing.T) {
	require.False(t, isCurveIncompatible(utls.AlertCloseNotify))
}

func TestIsCurveIncompatible_NonAlertError(t *testing.T) {
	require.False(t, isCurveIncompatible(errors.New("boom")))
}

func TestIsTLS13Refusal_KnownAlerts(t *testing.T) {
	require.True(t, isTLS13Refusal(utls.AlertProtocolVersion))
	require.True(t, isTLS13Refusal(utls.AlertNoApplicationProtocol))
}

func TestIsTLS13Refusal_UnrelatedAlert(t *testing.T) {
	require.False(t, isTLS13Refusal(utls.AlertCloseNotify))
}

func TestIsTLS13Refusal_NilError(t *testing.T) {
	require.False(t, isTLS13Refusal(nil))
}
