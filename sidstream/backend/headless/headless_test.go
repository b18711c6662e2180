package headless_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-sidstream/sidstream/backend"
	"github.com/valerio/go-sidstream/sidstream/backend/headless"
	"github.com/valerio/go-sidstream/sidstream/sid"
)

func TestHeadlessBackend(t *testing.T) {
	t.Run("writes register table", func(t *testing.T) {
		var out bytes.Buffer
		h := headless.New(&out)

		err := h.Init(backend.Config{Address: "127.0.0.1:1337", Window: 2})
		require.NoError(t, err)

		var s sid.Snapshot
		s[0] = 0xAB
		s[24] = 0x0F
		for i := 0; i < 3; i++ {
			assert.NoError(t, h.Update(backend.Frame{Tick: i, Snapshot: s}))
		}
		assert.NoError(t, h.Cleanup())

		lines := strings.Split(strings.Trim(out.String(), "\n"), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "    # | Voice 1        | Voice 2        | Voice 3        | Filter", lines[0])
		assert.Equal(t, strings.Repeat("-", 70), lines[1])
		assert.Equal(t, "    0 | AB000000000000 | 00000000000000 | 00000000000000 | 0000000F", lines[2])
		assert.Equal(t, 3, h.FrameCount())
	})

	t.Run("quiet", func(t *testing.T) {
		h := headless.New(nil)
		require.NoError(t, h.Init(backend.Config{}))
		assert.NoError(t, h.Update(backend.Frame{}))
		assert.NoError(t, h.Cleanup())
	})
}

func TestObserverForwardsFrames(t *testing.T) {
	var out bytes.Buffer
	h := headless.New(&out)
	require.NoError(t, h.Init(backend.Config{Window: 50}))

	o := backend.NewObserver(h)
	o.Sent(0, sid.Snapshot{})
	o.Acked(1, 0x01)
	o.Sent(1, sid.Snapshot{})

	assert.Equal(t, 2, h.FrameCount())
	assert.Contains(t, out.String(), "    1 | ")
}

func TestHeadlessImplementsBackend(t *testing.T) {
	// Compile-time check that headless.Backend implements backend.Backend
	var _ backend.Backend = (*headless.Backend)(nil)
}
