package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-sidstream/sidstream/addr"
)

func TestNew(t *testing.T) {
	m := New()

	assert.Equal(t, addr.DefaultProcessorPort, m.LoadByte(addr.ProcessorPort))
	assert.Equal(t, byte(0), m.LoadByte(0x0000))
	assert.Equal(t, byte(0), m.LoadByte(0xFFFF))
	assert.True(t, m.KernalVisible())
}

func TestImage_Load(t *testing.T) {
	t.Run("copies payload byte for byte", func(t *testing.T) {
		m := New()
		payload := []byte{0xA9, 0x0F, 0x8D, 0x18, 0xD4, 0x60}

		require.NoError(t, m.Load(0x1000, payload))

		for i, b := range payload {
			assert.Equal(t, b, m.LoadByte(0x1000+uint16(i)))
		}
		assert.Equal(t, byte(0), m.LoadByte(0x1000+uint16(len(payload))))
	})

	t.Run("payload ending at last address fits", func(t *testing.T) {
		m := New()
		require.NoError(t, m.Load(0xFFFE, []byte{0x34, 0x12}))
		assert.Equal(t, uint16(0x1234), m.LoadAddress(0xFFFE))
	})

	t.Run("rejects payload past end of memory", func(t *testing.T) {
		m := New()
		assert.Error(t, m.Load(0xFFFF, []byte{0x01, 0x02}))
	})
}

func TestImage_Bytes(t *testing.T) {
	testCases := []struct {
		desc    string
		address uint16
		data    []byte
		wrapped uint16
	}{
		{desc: "sid registers", address: addr.SIDBase, data: []byte{0x00, 0x01, 0x02}},
		{desc: "last address", address: 0xFFFF, data: []byte{0xAA}},
		{desc: "wraps to zero page", address: 0xFFFE, data: []byte{0x01, 0x02, 0x03}, wrapped: 1},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			m := New()
			m.StoreBytes(tC.address, tC.data)

			got := make([]byte, len(tC.data))
			m.LoadBytes(tC.address, got)
			assert.Equal(t, tC.data, got)

			if tC.wrapped > 0 {
				assert.Equal(t, tC.data[len(tC.data)-1], m.LoadByte(tC.wrapped-1))
			}
		})
	}
}

func TestImage_Bank(t *testing.T) {
	m := New()
	m.StoreByte(addr.ProcessorPort, 0x35)

	assert.Equal(t, uint8(0x05), m.Bank())
	assert.False(t, m.KernalVisible())
}
