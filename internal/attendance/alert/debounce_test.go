package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treehouse/pkg/testutil"
)

func TestMemoryDebouncerWindow(t *testing.T) {
	d := NewMemory()
	window := 15 * time.Minute

	allowed, err := d.Allow(testutil.Context(), "two-deep", window)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Inside the window, even right at its edge.
	allowed, err = d.Allow(testutil.ContextAt(testutil.FixedTime.Add(window-time.Second)), "two-deep", window)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Once the window has elapsed the alert may fire again.
	allowed, err = d.Allow(testutil.ContextAt(testutil.FixedTime.Add(window)), "two-deep", window)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryDebouncerKeysIndependent(t *testing.T) {
	d := NewMemory()

	allowed, err := d.Allow(testutil.Context(), "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = d.Allow(testutil.Context(), "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
