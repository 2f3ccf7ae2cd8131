// Package pfs0 parses the flat file-table container NCA sections use:
// a header, a file-entry table, a packed string table, then file data.
package pfs0

import (
	"encoding/binary"
	"io"

	"github.com/falk/nca-go/ncaerr"
)

const (
	magic = "PFS0"

	headerSize = 16
	entrySize  = 24
)

// entry is one PFS0FileEntry record.
type entry struct {
	offset           uint64
	size             uint64
	stringTableOffset uint32
}

// Reader gives listing and ranged-read access to a parsed PFS0 partition.
// It holds its own reference to the backing reader, so it stays valid
// independent of whatever produced it (an *nca.NCA, a plain file, ...).
type Reader struct {
	r        io.ReaderAt
	entries  []entry
	names    []string
	dataBase int64
}

// Open parses the PFS0 header, file-entry table and string table at the
// start of r, and retains them for the reader's lifetime.
func Open(r io.ReaderAt) (*Reader, error) {
	const op = "pfs0.Open"

	var hdr [headerSize]byte
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, headerSize), hdr[:]); err != nil {
		return nil, ncaerr.Wrap(ncaerr.Io, op, err)
	}
	if string(hdr[0:4]) != magic {
		return nil, ncaerr.New(ncaerr.InvalidInput, op, "invalid PFS0 magic")
	}
	fileCount := binary.LittleEndian.Uint32(hdr[4:8])
	stringTableSize := binary.LittleEndian.Uint32(hdr[8:12])

	entryTableSize := int64(fileCount) * entrySize
	rawEntries := make([]byte, entryTableSize)
	if _, err := io.ReadFull(io.NewSectionReader(r, headerSize, entryTableSize), rawEntries); err != nil {
		return nil, ncaerr.Wrap(ncaerr.Io, op, err)
	}

	entries := make([]entry, fileCount)
	for i := range entries {
		b := rawEntries[i*entrySize : (i+1)*entrySize]
		entries[i] = entry{
			offset:            binary.LittleEndian.Uint64(b[0:8]),
			size:              binary.LittleEndian.Uint64(b[8:16]),
			stringTableOffset: binary.LittleEndian.Uint32(b[16:20]),
		}
	}

	stringTable := make([]byte, stringTableSize)
	stringTableOff := headerSize + entryTableSize
	if _, err := io.ReadFull(io.NewSectionReader(r, stringTableOff, int64(stringTableSize)), stringTable); err != nil {
		return nil, ncaerr.Wrap(ncaerr.Io, op, err)
	}

	names := make([]string, fileCount)
	for i, e := range entries {
		names[i] = cString(stringTable, e.stringTableOffset)
	}

	return &Reader{
		r:        r,
		entries:  entries,
		names:    names,
		dataBase: stringTableOff + int64(stringTableSize),
	}, nil
}

func cString(table []byte, offset uint32) string {
	if int(offset) >= len(table) {
		return ""
	}
	end := offset
	for int(end) < len(table) && table[end] != 0 {
		end++
	}
	return string(table[offset:end])
}

// ListFiles returns the partition's file names in table order.
func (p *Reader) ListFiles() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *Reader) lookup(op string, i int) (entry, error) {
	if i < 0 || i >= len(p.entries) {
		return entry{}, ncaerr.New(ncaerr.InvalidInput, op, "file index out of range")
	}
	return p.entries[i], nil
}

// FileSize returns the declared size of file i.
func (p *Reader) FileSize(i int) (uint64, error) {
	e, err := p.lookup("pfs0.FileSize", i)
	if err != nil {
		return 0, err
	}
	return e.size, nil
}

// ReadFile reads into buf starting at offset within file i. offset+len(buf)
// must not exceed the file's declared size; it may return fewer bytes than
// requested if the underlying source does (the caller loops, as with any
// io.Reader-shaped API).
//
// The data base offset is sizeof(header) + fileCount*sizeof(entry) +
// stringTableSize; file i's bytes live at dataBase+entry.offset (not
// dataBase+entry.offset+entry.size — a bug present in the original
// implementation's get_file_reader, fixed here per spec).
func (p *Reader) ReadFile(i int, offset int64, buf []byte) (int, error) {
	const op = "pfs0.ReadFile"

	e, err := p.lookup(op, i)
	if err != nil {
		return 0, err
	}
	if offset < 0 || uint64(offset)+uint64(len(buf)) > e.size {
		return 0, ncaerr.New(ncaerr.OutOfRange, op, "read exceeds file size")
	}
	if len(buf) == 0 {
		return 0, nil
	}

	absolute := p.dataBase + int64(e.offset) + offset
	n, err := p.r.ReadAt(buf, absolute)
	if err != nil && err != io.EOF {
		return n, ncaerr.Wrap(ncaerr.Io, op, err)
	}
	return n, nil
}
