// Package testutil collects helpers shared by the package tests: request
// context construction, kiosk request signing, and roster fixtures.
package testutil

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"strconv"
	"time"

	"treehouse/internal/roster/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/requestcontext"
)

// FixedTime is the reference clock most tests pin their context to.
var FixedTime = time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

// Context returns a context with the fixed test clock.
func Context() context.Context {
	return requestcontext.WithTime(context.Background(), FixedTime)
}

// ContextAt returns a context pinned to the given time.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// ActorContext returns a context authenticated as the given actor.
func ActorContext(id domain.ParticipantID, caps ...domain.Capability) context.Context {
	ctx := requestcontext.WithActorID(Context(), id)
	return requestcontext.WithCapabilities(ctx, domain.Capabilities(caps))
}

// Adult builds an adult participant fixture.
func Adult(id domain.ParticipantID, caps ...domain.Capability) models.Participant {
	dob := FixedTime.AddDate(-30, 0, 0)
	return models.Participant{
		ID:           id,
		Name:         "Participant " + id.String(),
		DateOfBirth:  &dob,
		Capabilities: domain.Capabilities(caps),
		NotifyEmail:  true,
	}
}

// Minor builds a participant fixture aged years at the fixed test time.
func Minor(id domain.ParticipantID, years int) models.Participant {
	dob := FixedTime.AddDate(-years, 0, 0)
	return models.Participant{
		ID:          id,
		Name:        "Minor " + id.String(),
		DateOfBirth: &dob,
		NotifyEmail: true,
	}
}

// InHousehold assigns the participant to a household.
func InHousehold(p models.Participant, householdID domain.HouseholdID) models.Participant {
	p.HouseholdID = &householdID
	return p
}

// KioskKey generates an Ed25519 keypair and returns the hex-encoded public
// key alongside the private key for signing test requests.
func KioskKey() (publicHex string, private ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(pub), priv
}

// SignKioskRequest produces the timestamp and signature headers a kiosk
// would send for the given request at the given time.
func SignKioskRequest(private ed25519.PrivateKey, at time.Time, method, path, body string) (timestamp, signature string) {
	timestamp = strconv.FormatInt(at.Unix(), 10)
	message := []byte(timestamp + ":" + method + ":" + path + ":" + body)
	return timestamp, hex.EncodeToString(ed25519.Sign(private, message))
}
