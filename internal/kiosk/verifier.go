// Package kiosk authenticates badge-scan requests from the kiosk fleet.
//
// The kiosk signs the UTF-8 string "{timestamp}:{method}:{path}:{body}" with
// an Ed25519 private key and sends the signature and timestamp hex-encoded
// in two headers. The server reconstructs the same string and verifies it
// against a statically configured public key. The timestamp bounds replay in
// both directions; signatures are not deduplicated by content, only by time.
package kiosk

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const (
	// HeaderTimestamp carries Unix seconds, decimal.
	HeaderTimestamp = "X-Kiosk-Timestamp"
	// HeaderSignature carries the hex-encoded Ed25519 signature.
	HeaderSignature = "X-Kiosk-Signature"

	// MaxClockSkew is the replay window. Timestamps older than this are
	// stale; timestamps further in the future are clock-skew abuse.
	MaxClockSkew = 60 * time.Second
)

// Result is the outcome of verifying one request.
type Result struct {
	OK     bool
	Status int
	Reason string
}

func accept() Result { return Result{OK: true} }

func reject(reason string) Result {
	return Result{OK: false, Status: 401, Reason: reason}
}

// Verifier checks the authenticity and freshness of an inbound kiosk
// request. Implementations keep no state between calls.
type Verifier interface {
	Verify(now time.Time, method, path, body, timestampHeader, signatureHeader string) Result
	// Open reports whether the verifier accepts unsigned requests.
	Open() bool
}

// New builds a Verifier from a hex-encoded 32-byte Ed25519 public key. An
// empty key yields OpenMode, which is logged loudly: running without kiosk
// authentication is an explicit configuration choice, never a silent
// default.
func New(publicKeyHex string, logger *slog.Logger) (Verifier, error) {
	if publicKeyHex == "" {
		logger.Warn("kiosk authentication DISABLED: no public key configured, accepting unsigned scan requests")
		return OpenMode{}, nil
	}

	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode kiosk public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("kiosk public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &SignatureVerifier{publicKey: ed25519.PublicKey(key)}, nil
}

// SignatureVerifier verifies Ed25519-signed kiosk requests.
type SignatureVerifier struct {
	publicKey ed25519.PublicKey
}

// Verify applies the checks in order, failing fast: header presence,
// timestamp syntax, replay window, signature syntax, signature validity.
func (v *SignatureVerifier) Verify(now time.Time, method, path, body, timestampHeader, signatureHeader string) Result {
	if timestampHeader == "" || signatureHeader == "" {
		return reject("missing kiosk signature headers")
	}

	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return reject("invalid timestamp")
	}

	age := now.Unix() - ts
	if age > int64(MaxClockSkew.Seconds()) || -age > int64(MaxClockSkew.Seconds()) {
		return reject("timestamp too old or too far in the future")
	}

	sig, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return reject("malformed signature")
	}

	message := []byte(timestampHeader + ":" + method + ":" + path + ":" + body)
	if !ed25519.Verify(v.publicKey, message, sig) {
		return reject("invalid signature")
	}

	return accept()
}

func (v *SignatureVerifier) Open() bool { return false }

// OpenMode accepts every request. Only constructed explicitly when no public
// key is configured.
type OpenMode struct{}

func (OpenMode) Verify(time.Time, string, string, string, string, string) Result {
	return accept()
}

func (OpenMode) Open() bool { return true }
