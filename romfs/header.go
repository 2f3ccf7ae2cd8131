package romfs

import "encoding/binary"

// headerSize is the fixed size of the RomFS super-header.
const headerSize = 0x50

// header is the RomFS super-header: offsets and sizes of the two hash
// tables and two metadata tables, plus the base offset file data sits at.
type header struct {
	headerSize          uint64
	dirHashTableOffset  uint64
	dirHashTableSize    uint64
	dirMetaTableOffset  uint64
	dirMetaTableSize    uint64
	fileHashTableOffset uint64
	fileHashTableSize   uint64
	fileMetaTableOffset uint64
	fileMetaTableSize   uint64
	dataOffset          uint64
}

func parseHeader(buf []byte) header {
	u64 := binary.LittleEndian.Uint64
	return header{
		headerSize:          u64(buf[0x00:0x08]),
		dirHashTableOffset:  u64(buf[0x08:0x10]),
		dirHashTableSize:    u64(buf[0x10:0x18]),
		dirMetaTableOffset:  u64(buf[0x18:0x20]),
		dirMetaTableSize:    u64(buf[0x20:0x28]),
		fileHashTableOffset: u64(buf[0x28:0x30]),
		fileHashTableSize:   u64(buf[0x30:0x38]),
		fileMetaTableOffset: u64(buf[0x38:0x40]),
		fileMetaTableSize:   u64(buf[0x40:0x48]),
		dataOffset:          u64(buf[0x48:0x50]),
	}
}
