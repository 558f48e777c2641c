package pipe

import (
	"github.com/klauspost/compress/zlib"

	"github.com/bft-labs/pipeship/internal/buffer"
)

// zlibBound returns the worst-case zlib output size for n input bytes.
func zlibBound(n int) int {
	return n + n>>12 + n>>14 + n>>25 + 13
}

// compressor deflates a batch in place. The compressed stream is written
// into a scratch buffer that then trades places with the batch buffer.
type compressor struct {
	level   int
	scratch *buffer.Staging
	w       *zlib.Writer
}

func newCompressor(level, size int) *compressor {
	return &compressor{level: level, scratch: buffer.New(size)}
}

// compress replaces the contents of b with its zlib encoding. On error b is
// left untouched.
func (z *compressor) compress(b *buffer.Staging) error {
	z.scratch.Reset()
	if z.w == nil {
		w, err := zlib.NewWriterLevel(z.scratch, z.level)
		if err != nil {
			return err
		}
		z.w = w
	} else {
		z.w.Reset(z.scratch)
	}

	if _, err := z.w.Write(b.Bytes()); err != nil {
		return err
	}
	if err := z.w.Close(); err != nil {
		return err
	}
	b.Swap(z.scratch)
	return nil
}
