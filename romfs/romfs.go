// Package romfs implements the hierarchical, hash-accelerated read-only
// filesystem NCA RomFS sections carry: a directory tree and a flat file
// list, each addressed through a name-hash bucket table.
package romfs

import (
	"encoding/binary"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/falk/nca-go/ncaerr"
)

// Reader gives path-based existence, size, ranged-read and directory
// iteration access to a parsed RomFS hierarchy. Like pfs0.Reader, it holds
// its own reference to the backing reader and outlives whatever produced
// it.
type Reader struct {
	r          io.ReaderAt
	dataOffset int64

	dirHashTable  []uint32
	dirMetaTable  []byte
	fileHashTable []uint32
	fileMetaTable []byte
}

// Open parses the RomFS super-header and loads all four tables (the two
// hash tables and two metadata tables) into memory. The tables are
// independent ranged reads over the same shared source, so they are
// fetched concurrently with an errgroup the way distr1-distri's minitrd
// fetches independent startup mounts.
func Open(r io.ReaderAt) (*Reader, error) {
	const op = "romfs.Open"

	var hdrBuf [headerSize]byte
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, headerSize), hdrBuf[:]); err != nil {
		return nil, ncaerr.Wrap(ncaerr.Io, op, err)
	}
	h := parseHeader(hdrBuf[:])

	rd := &Reader{r: r, dataOffset: int64(h.dataOffset)}

	var eg errgroup.Group
	eg.Go(func() (err error) {
		rd.dirHashTable, err = readU32Table(r, int64(h.dirHashTableOffset), h.dirHashTableSize)
		return err
	})
	eg.Go(func() (err error) {
		rd.dirMetaTable, err = readBytes(r, int64(h.dirMetaTableOffset), h.dirMetaTableSize)
		return err
	})
	eg.Go(func() (err error) {
		rd.fileHashTable, err = readU32Table(r, int64(h.fileHashTableOffset), h.fileHashTableSize)
		return err
	})
	eg.Go(func() (err error) {
		rd.fileMetaTable, err = readBytes(r, int64(h.fileMetaTableOffset), h.fileMetaTableSize)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, ncaerr.Wrap(ncaerr.Io, op, err)
	}

	return rd, nil
}

func readBytes(r io.ReaderAt, offset int64, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if len(buf) == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(io.NewSectionReader(r, offset, int64(size)), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readU32Table(r io.ReaderAt, offset int64, size uint64) ([]uint32, error) {
	raw, err := readBytes(r, offset, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return out, nil
}

// splitPath breaks a RomFS path into non-empty components, tolerating
// leading/trailing/doubled slashes.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// findChildDir looks up name as a child directory of the directory at
// parentOffset, by walking parentOffset's hash bucket chain.
func (r *Reader) findChildDir(parentOffset uint32, name string) (uint32, dirEntry, bool) {
	if len(r.dirHashTable) == 0 {
		return 0, dirEntry{}, false
	}
	bucket := hashPath(parentOffset, name) % uint32(len(r.dirHashTable))
	cur := r.dirHashTable[bucket]
	for cur != terminator {
		e, ok := readDirEntry(r.dirMetaTable, cur)
		if !ok {
			return 0, dirEntry{}, false
		}
		if e.parentDirOffset == parentOffset && e.name == name {
			return cur, e, true
		}
		cur = e.nextHashDirOffset
	}
	return 0, dirEntry{}, false
}

// findChildFile looks up name as a child file of the directory at
// parentOffset, by walking parentOffset's hash bucket chain in the file
// hash table.
func (r *Reader) findChildFile(parentOffset uint32, name string) (fileEntry, bool) {
	if len(r.fileHashTable) == 0 {
		return fileEntry{}, false
	}
	bucket := hashPath(parentOffset, name) % uint32(len(r.fileHashTable))
	cur := r.fileHashTable[bucket]
	for cur != terminator {
		e, ok := readFileEntry(r.fileMetaTable, cur)
		if !ok {
			return fileEntry{}, false
		}
		if e.parentDirOffset == parentOffset && e.name == name {
			return e, true
		}
		cur = e.nextHashFileOffset
	}
	return fileEntry{}, false
}

// resolveDir walks path entirely through directories, starting at the root
// (meta-table offset 0), and returns the final directory's own meta-table
// offset.
func (r *Reader) resolveDir(path string) (uint32, bool) {
	cur := uint32(0)
	for _, part := range splitPath(path) {
		next, _, ok := r.findChildDir(cur, part)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// resolveFile walks all but the last path component as directories, then
// resolves the last component as a file of the final directory.
func (r *Reader) resolveFile(path string) (fileEntry, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fileEntry{}, false
	}

	dir, ok := r.resolveDir(strings.Join(parts[:len(parts)-1], "/"))
	if !ok {
		return fileEntry{}, false
	}
	return r.findChildFile(dir, parts[len(parts)-1])
}

// ExistsFile reports whether path resolves to a file.
func (r *Reader) ExistsFile(path string) bool {
	_, ok := r.resolveFile(path)
	return ok
}

// FileSize returns the declared size of the file at path.
func (r *Reader) FileSize(path string) (uint64, error) {
	e, ok := r.resolveFile(path)
	if !ok {
		return 0, ncaerr.New(ncaerr.Unsupported, "romfs.FileSize", "file not found: "+path)
	}
	return e.dataSize, nil
}

// ReadFile reads into buf starting at offset within the file at path.
// offset+len(buf) must not exceed the file's declared size.
func (r *Reader) ReadFile(path string, offset int64, buf []byte) (int, error) {
	const op = "romfs.ReadFile"

	e, ok := r.resolveFile(path)
	if !ok {
		return 0, ncaerr.New(ncaerr.Unsupported, op, "file not found: "+path)
	}
	if offset < 0 || uint64(offset)+uint64(len(buf)) > e.dataSize {
		return 0, ncaerr.New(ncaerr.OutOfRange, op, "read exceeds file size")
	}
	if len(buf) == 0 {
		return 0, nil
	}

	absolute := r.dataOffset + int64(e.dataOffset) + offset
	n, err := r.r.ReadAt(buf, absolute)
	if err != nil && err != io.EOF {
		return n, ncaerr.Wrap(ncaerr.Io, op, err)
	}
	return n, nil
}

// OpenDirIterator resolves path to a directory and returns an iterator
// over its child directories and files.
func (r *Reader) OpenDirIterator(path string) (*DirIterator, error) {
	offset, ok := r.resolveDir(path)
	if !ok {
		return nil, ncaerr.New(ncaerr.Unsupported, "romfs.OpenDirIterator", "directory not found: "+path)
	}
	entry, ok := readDirEntry(r.dirMetaTable, offset)
	if !ok {
		return nil, ncaerr.New(ncaerr.Io, "romfs.OpenDirIterator", "corrupt directory entry")
	}
	return &DirIterator{
		reader:      r,
		nextDirOff:  entry.firstChildDirOffset,
		nextFileOff: entry.firstChildFileOffset,
	}, nil
}
