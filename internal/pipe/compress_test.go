package pipe

import (
	"bytes"
	"compress/zlib"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pipeship/internal/buffer"
)

func inflate(t *testing.T, b []byte) []byte {
	t.Helper()
	r, err := zlib.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func TestCompressor_RoundTrip(t *testing.T) {
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	payloads := map[string][]byte{
		"text":   []byte(strings.Repeat("cpu=0.42 mem=128M\n", 200)),
		"random": random,
		"single": []byte("x"),
	}

	for name, payload := range payloads {
		for level := 1; level <= 9; level++ {
			size := zlibBound(len(payload))
			b := buffer.NewSized(size, size)
			_, err := b.Write(payload)
			require.NoError(t, err)

			z := newCompressor(level, size)
			require.NoError(t, z.compress(b), "%s level %d", name, level)
			assert.Equal(t, payload, inflate(t, b.Bytes()), "%s level %d", name, level)
		}
	}
}

func TestCompressor_ReusesWriter(t *testing.T) {
	size := zlibBound(256)
	z := newCompressor(5, size)

	for _, s := range []string{"first batch", "second batch, a little longer"} {
		b := buffer.NewSized(size, size)
		_, err := b.Write([]byte(s))
		require.NoError(t, err)
		require.NoError(t, z.compress(b))
		assert.Equal(t, s, string(inflate(t, b.Bytes())))
	}
}

func TestCompressor_InsufficientCapacity(t *testing.T) {
	random := make([]byte, 1024)
	_, err := rand.Read(random)
	require.NoError(t, err)

	b := buffer.NewSized(1024, 1024)
	_, err = b.Write(random)
	require.NoError(t, err)

	z := newCompressor(9, 1024)
	err = z.compress(b)
	assert.ErrorIs(t, err, buffer.ErrNoCapacity)
	assert.Equal(t, random, b.Bytes(), "batch is untouched on failure")
}

func TestZlibBound(t *testing.T) {
	assert.Equal(t, 13, zlibBound(0))
	assert.Equal(t, 2*1024*1024+512+128+13, zlibBound(2*1024*1024))
}
