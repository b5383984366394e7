package ligamagic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromeRenderer_RestartsDeadBrowser(t *testing.T) {
	r := NewChromeRenderer("", time.Second, "")

	launches := 0
	allocReleased := 0
	var cancels []context.CancelFunc
	r.launch = func() (context.Context, context.CancelFunc, context.CancelFunc, error) {
		launches++
		ctx, cancel := context.WithCancel(context.Background())
		cancels = append(cancels, cancel)
		return ctx, cancel, func() { allocReleased++ }, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NoError(t, r.ensureBrowser())
	require.NoError(t, r.ensureBrowser())
	assert.Equal(t, 1, launches, "a live browser is reused")

	// The browser process died
	cancels[0]()

	require.NoError(t, r.ensureBrowser())
	assert.Equal(t, 2, launches)
	assert.Equal(t, 1, allocReleased, "the dead browser's allocator is released")
	assert.NoError(t, r.browserCtx.Err())

	r.release()
	assert.Nil(t, r.browserCtx)
	assert.Equal(t, 2, allocReleased)
}

func TestChromeRenderer_LaunchFailure(t *testing.T) {
	r := NewChromeRenderer("", time.Second, "")
	r.launch = func() (context.Context, context.CancelFunc, context.CancelFunc, error) {
		return nil, nil, nil, errors.New("chrome not found")
	}

	_, found, err := r.RenderPrice(context.Background(), "Sol Ring")
	require.Error(t, err)
	assert.False(t, found)
	assert.Nil(t, r.browserCtx)
}
