package romfs

import "encoding/binary"

// terminator marks the end of a hash chain or an absent child/sibling link.
const terminator = 0xFFFFFFFF

// dirEntryHeaderSize is the fixed portion of a directory entry, before its
// (4-byte padded) name.
const dirEntryHeaderSize = 0x18

// fileEntryHeaderSize is the fixed portion of a file entry, before its
// (4-byte padded) name.
const fileEntryHeaderSize = 0x20

// dirEntry is one RomFS directory node, read from the directory meta table
// at a given byte offset.
type dirEntry struct {
	parentDirOffset      uint32
	nextSiblingDirOffset uint32
	firstChildDirOffset  uint32
	firstChildFileOffset uint32
	nextHashDirOffset    uint32
	name                 string
}

func readDirEntry(meta []byte, offset uint32) (dirEntry, bool) {
	if offset == terminator || int(offset)+dirEntryHeaderSize > len(meta) {
		return dirEntry{}, false
	}
	b := meta[offset:]
	u32 := binary.LittleEndian.Uint32
	nameSize := u32(b[0x14:0x18])
	nameEnd := dirEntryHeaderSize + int(nameSize)
	if nameEnd > len(b) {
		return dirEntry{}, false
	}
	return dirEntry{
		parentDirOffset:      u32(b[0x00:0x04]),
		nextSiblingDirOffset: u32(b[0x04:0x08]),
		firstChildDirOffset:  u32(b[0x08:0x0C]),
		firstChildFileOffset: u32(b[0x0C:0x10]),
		nextHashDirOffset:    u32(b[0x10:0x14]),
		name:                 string(b[dirEntryHeaderSize:nameEnd]),
	}, true
}

// fileEntry is one RomFS file node, read from the file meta table at a
// given byte offset.
type fileEntry struct {
	parentDirOffset       uint32
	nextSiblingFileOffset uint32
	dataOffset            uint64
	dataSize              uint64
	nextHashFileOffset    uint32
	name                  string
}

func readFileEntry(meta []byte, offset uint32) (fileEntry, bool) {
	if offset == terminator || int(offset)+fileEntryHeaderSize > len(meta) {
		return fileEntry{}, false
	}
	b := meta[offset:]
	u32 := binary.LittleEndian.Uint32
	u64 := binary.LittleEndian.Uint64
	nameSize := u32(b[0x1C:0x20])
	nameEnd := fileEntryHeaderSize + int(nameSize)
	if nameEnd > len(b) {
		return fileEntry{}, false
	}
	return fileEntry{
		parentDirOffset:       u32(b[0x00:0x04]),
		nextSiblingFileOffset: u32(b[0x04:0x08]),
		dataOffset:            u64(b[0x08:0x10]),
		dataSize:              u64(b[0x10:0x18]),
		nextHashFileOffset:    u32(b[0x18:0x1C]),
		name:                  string(b[fileEntryHeaderSize:nameEnd]),
	}, true
}
