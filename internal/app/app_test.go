package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/geoclient/internal/bootstrap"
	"github.com/mesh-intelligence/geoclient/internal/httpclient"
	"github.com/mesh-intelligence/geoclient/internal/logging"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

func newApp(t *testing.T) *App {
	t.Helper()
	hc, err := httpclient.New(httpclient.Options{BaseURL: "http://backend.test", Logger: logging.Discard()})
	require.NoError(t, err)
	return New(hc, logging.Discard())
}

func TestApp_RunBeforeMount(t *testing.T) {
	a := newApp(t)

	called := false
	err := a.Run(func(*App) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrNotMounted)
	assert.False(t, called)
	assert.Nil(t, a.API())
}

func TestApp_Mount(t *testing.T) {
	a := newApp(t)
	bundle := types.DefaultEndpoints()
	bundle.CSRFToken = "abc"

	require.NoError(t, a.Mount(context.Background(), bundle))
	assert.True(t, a.Mounted())
	assert.Equal(t, bundle, a.Settings())
	assert.NotNil(t, a.API())

	boom := errors.New("boom")
	err := a.Run(func(got *App) error {
		assert.Same(t, a, got)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = a.Mount(context.Background(), types.Settings{})
	assert.ErrorIs(t, err, bootstrap.ErrAlreadyMounted)
	assert.Equal(t, bundle, a.Settings(), "second mount must not replace settings")
}

func TestApp_MountedThroughBootstrap(t *testing.T) {
	hc, err := httpclient.New(httpclient.Options{BaseURL: "http://backend.test", Logger: logging.Discard()})
	require.NoError(t, err)
	a := New(hc, logging.Discard())
	seq := bootstrap.New(hc, nil, bootstrap.WithLogger(logging.Discard()))

	bundle := types.Settings{CSRFToken: "from-settings"}
	require.NoError(t, seq.Bootstrap(context.Background(), &bundle, a))

	assert.True(t, a.Mounted())
	assert.Equal(t, "from-settings", a.Settings().CSRFToken)
	assert.Equal(t, "from-settings", hc.Defaults().Get(httpclient.HeaderCSRFToken))
	assert.True(t, hc.Settled())
}
