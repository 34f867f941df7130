// Package gcid implements the Xunlei content id (GCID): the file is cut into
// fixed-size pieces and the id is the SHA-1 of the concatenated SHA-1
// digests of those pieces. The piece size depends on the total file size,
// so the size must be known before hashing starts.
package gcid

import (
	"crypto/sha1"
	"encoding"
	"hash"
)

const (
	minPieceSize = 0x40000  // 256 KiB
	maxPieceSize = 0x200000 // 2 MiB
	maxPieces    = 0x200
)

// Size is the size of a GCID in bytes.
const Size = sha1.Size

// PieceSize returns the piece size used for a file of the given size.
func PieceSize(fileSize int64) int {
	piece := int64(minPieceSize)
	for fileSize > maxPieces*piece && piece < maxPieceSize {
		piece <<= 1
	}
	return int(piece)
}

type digest struct {
	pieceSize int
	outer     hash.Hash // sha1 over piece digests
	inner     hash.Hash // sha1 of the current piece
	n         int       // bytes written into the current piece
}

// New returns a hash.Hash computing the GCID of a file of fileSize bytes.
// Feeding a different number of bytes than fileSize still yields a digest,
// just not the one other GCID implementations would produce.
func New(fileSize int64) hash.Hash {
	return NewWithPieceSize(PieceSize(fileSize))
}

// NewWithPieceSize returns a GCID hash using an explicit piece size.
func NewWithPieceSize(pieceSize int) hash.Hash {
	if pieceSize <= 0 {
		pieceSize = minPieceSize
	}
	return &digest{
		pieceSize: pieceSize,
		outer:     sha1.New(),
		inner:     sha1.New(),
	}
}

func (d *digest) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		room := d.pieceSize - d.n
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		d.inner.Write(chunk)
		d.n += len(chunk)
		p = p[len(chunk):]
		if d.n == d.pieceSize {
			d.outer.Write(d.inner.Sum(nil))
			d.inner.Reset()
			d.n = 0
		}
	}
	return written, nil
}

// Sum appends the current GCID to b. A trailing partial piece is included
// without changing the state of d.
func (d *digest) Sum(b []byte) []byte {
	if d.n == 0 {
		return d.outer.Sum(b)
	}
	outer := cloneSHA1(d.outer)
	outer.Write(d.inner.Sum(nil))
	return outer.Sum(b)
}

func (d *digest) Reset() {
	d.outer.Reset()
	d.inner.Reset()
	d.n = 0
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return d.pieceSize }

func cloneSHA1(h hash.Hash) hash.Hash {
	state, err := h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		panic("gcid: cannot marshal sha1 state: " + err.Error())
	}
	c := sha1.New()
	if err := c.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		panic("gcid: cannot unmarshal sha1 state: " + err.Error())
	}
	return c
}
