package kiosk

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treehouse/pkg/testutil"
)

func newVerifier(t *testing.T) (Verifier, func(at time.Time, method, path, body string) (string, string)) {
	t.Helper()
	pubHex, priv := testutil.KioskKey()
	v, err := New(pubHex, slog.Default())
	require.NoError(t, err)
	sign := func(at time.Time, method, path, body string) (string, string) {
		return testutil.SignKioskRequest(priv, at, method, path, body)
	}
	return v, sign
}

func TestVerifyAcceptsSignedRequest(t *testing.T) {
	v, sign := newVerifier(t)
	now := testutil.FixedTime

	ts, sig := sign(now, "POST", "/scan", `{"participantId":7}`)
	result := v.Verify(now, "POST", "/scan", `{"participantId":7}`, ts, sig)
	assert.True(t, result.OK)
}

func TestVerifyRejections(t *testing.T) {
	v, sign := newVerifier(t)
	now := testutil.FixedTime
	ts, sig := sign(now, "POST", "/scan", "body")

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		timestamp string
		signature string
		reason    string
	}{
		{
			name:   "missing headers",
			method: "POST", path: "/scan", body: "body",
			reason: "missing kiosk signature headers",
		},
		{
			name:   "unparseable timestamp",
			method: "POST", path: "/scan", body: "body",
			timestamp: "not-a-number", signature: sig,
			reason: "invalid timestamp",
		},
		{
			name:   "malformed signature",
			method: "POST", path: "/scan", body: "body",
			timestamp: ts, signature: "zzzz",
			reason: "malformed signature",
		},
		{
			name:   "tampered body",
			method: "POST", path: "/scan", body: "other-body",
			timestamp: ts, signature: sig,
			reason: "invalid signature",
		},
		{
			name:   "tampered path",
			method: "POST", path: "/other", body: "body",
			timestamp: ts, signature: sig,
			reason: "invalid signature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Verify(now, tt.method, tt.path, tt.body, tt.timestamp, tt.signature)
			assert.False(t, result.OK)
			assert.Equal(t, 401, result.Status)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestVerifyReplayWindow(t *testing.T) {
	v, sign := newVerifier(t)
	now := testutil.FixedTime

	t.Run("stale timestamp", func(t *testing.T) {
		ts, sig := sign(now.Add(-MaxClockSkew-time.Second), "POST", "/scan", "")
		result := v.Verify(now, "POST", "/scan", "", ts, sig)
		assert.False(t, result.OK)
		assert.Equal(t, "timestamp too old or too far in the future", result.Reason)
	})

	t.Run("future timestamp", func(t *testing.T) {
		ts, sig := sign(now.Add(MaxClockSkew+time.Second), "POST", "/scan", "")
		result := v.Verify(now, "POST", "/scan", "", ts, sig)
		assert.False(t, result.OK)
		assert.Equal(t, "timestamp too old or too far in the future", result.Reason)
	})

	t.Run("edge of window accepted", func(t *testing.T) {
		ts, sig := sign(now.Add(-MaxClockSkew), "POST", "/scan", "")
		result := v.Verify(now, "POST", "/scan", "", ts, sig)
		assert.True(t, result.OK)
	})
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("not-hex", slog.Default())
	assert.Error(t, err)

	_, err = New("abcd", slog.Default())
	assert.Error(t, err)
}

func TestOpenModeAcceptsEverything(t *testing.T) {
	v, err := New("", slog.Default())
	require.NoError(t, err)
	assert.True(t, v.Open())

	result := v.Verify(testutil.FixedTime, "POST", "/scan", "", "", "")
	assert.True(t, result.OK)
}
