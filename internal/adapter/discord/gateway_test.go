package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/guildboard/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	errs  []error
	opens int
}

func (g *fakeGateway) Open() error {
	g.opens++
	if len(g.errs) == 0 {
		return nil
	}
	err := g.errs[0]
	g.errs = g.errs[1:]
	return err
}

func (g *fakeGateway) Close() error { return nil }

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		Clock:          clockwork.NewRealClock(),
	}
}

func TestOpenGateway_RetriesTransientFailures(t *testing.T) {
	gw := &fakeGateway{errs: []error{errors.New("dial tcp: reset"), restError(http.StatusBadGateway)}}

	require.NoError(t, OpenGateway(context.Background(), gw, testPolicy()))
	assert.Equal(t, 3, gw.opens)
}

func TestOpenGateway_StopsOnRejectedToken(t *testing.T) {
	gw := &fakeGateway{errs: []error{restError(http.StatusUnauthorized)}}

	err := OpenGateway(context.Background(), gw, testPolicy())
	require.Error(t, err)

	var permanent *retry.PermanentError
	assert.ErrorAs(t, err, &permanent)
	assert.Equal(t, 1, gw.opens)
}

func TestNewSession(t *testing.T) {
	s, err := NewSession("token")
	require.NoError(t, err)
	assert.Equal(t, "Bot token", s.Token)
	assert.True(t, s.StateEnabled)
	assert.NotNil(t, s.State)
}
