package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxlens/boxlens-go/internal/broadcast"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/errors"
)

func TestDisabledNotifierIsNoOp(t *testing.T) {
	n, err := New(&conf.PushSettings{Enabled: false, URL: "ignored"})
	require.NoError(t, err)
	assert.False(t, n.Enabled())

	// Pushing through a disabled notifier must not panic or block.
	n.NotifyCompleted(broadcast.CaptureStatus{CaptureID: "cap-1", ItemCount: 3})
	n.NotifyFailed(broadcast.CaptureStatus{CaptureID: "cap-1", ErrorMessage: "boom"})
}

func TestNilSettingsAreNoOp(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)
	assert.False(t, n.Enabled())
}

func TestEnabledWithoutURLIsConfigurationError(t *testing.T) {
	_, err := New(&conf.PushSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEnabledWithInvalidURLIsConfigurationError(t *testing.T) {
	_, err := New(&conf.PushSettings{Enabled: true, URL: "not-a-shoutrrr-url"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
