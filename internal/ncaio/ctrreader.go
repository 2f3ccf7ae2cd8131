package ncaio

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// regionSource is the minimal surface CTRReader needs from its backing
// store: a plain ReadAt, satisfied by both *Source and *ReaderAtSource.
type regionSource interface {
	ReadAt(buf []byte, off int64) (int, error)
}

// CTRReader exposes a virtual, decrypted byte stream over [baseOffset, ...)
// of an encrypted source, transparently handling AES-128-CTR's block
// alignment so callers can issue arbitrary unaligned ReadAt calls.
//
// The counter for a read at absolute archive offset A is: the section's
// 8-byte big-endian ctr in the high half, and big-endian (A>>4) in the low
// half — the Nintendo NCA convention, not a generic CTR-from-zero one.
// Within one aligned block run the low half increments by one per 16-byte
// block, which is exactly what cipher.NewCTR already does once seeded
// correctly, so one Stream built per ReadAt suffices.
type CTRReader struct {
	source     regionSource
	baseOffset int64
	sectionCtr [8]byte
	block      cipher.Block
}

// NewCTRReader builds a region reader over src starting at baseOffset,
// using sectionCtr (the FS header's 8-byte ctr nonce) and a 16-byte
// AES-128 key.
func NewCTRReader(src regionSource, baseOffset int64, sectionCtr [8]byte, key [16]byte) (*CTRReader, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &CTRReader{source: src, baseOffset: baseOffset, sectionCtr: sectionCtr, block: block}, nil
}

// ReadAt decrypts len(buf) plaintext bytes starting at virtual offset off
// within the section (i.e. absolute archive offset baseOffset+off).
func (c *CTRReader) ReadAt(buf []byte, off int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	absolute := c.baseOffset + off
	alignedStart := absolute &^ 0xF
	startSkip := int(absolute - alignedStart)

	rawLen := startSkip + len(buf)
	blockCount := (rawLen + 15) / 16
	scratch := make([]byte, blockCount*16)

	n, err := c.source.ReadAt(scratch, alignedStart)
	if n <= 0 {
		return 0, err
	}
	scratch = scratch[:n]

	stream := cipher.NewCTR(c.block, c.counterFor(alignedStart))
	stream.XORKeyStream(scratch, scratch)

	avail := n - startSkip
	if avail < 0 {
		avail = 0
	}
	if avail > len(buf) {
		avail = len(buf)
	}
	if avail > 0 {
		copy(buf, scratch[startSkip:startSkip+avail])
	}
	// A short source read that only cut into the alignment padding past the
	// requested range still filled buf, so it is not an error to the caller.
	if avail == len(buf) {
		return avail, nil
	}
	return avail, err
}

// counterFor builds the 16-byte initial counter block for a 16-byte-aligned
// absolute archive offset: the section ctr in the high 8 bytes, and the
// big-endian block index (offset>>4) in the low 8 bytes.
func (c *CTRReader) counterFor(alignedOffset int64) []byte {
	var counter [16]byte
	copy(counter[:8], c.sectionCtr[:])
	binary.BigEndian.PutUint64(counter[8:], uint64(alignedOffset)>>4)
	return counter[:]
}
