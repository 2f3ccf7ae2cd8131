package nca

import (
	"encoding/binary"
)

const (
	// MagicNCA3 is the only content-archive version this reader supports.
	MagicNCA3 = "NCA3"

	mainHeaderSize    = 0x400
	sectionHeaderSize = 0x200
	sectionCount      = 4
	totalHeaderSize   = mainHeaderSize + sectionCount*sectionHeaderSize

	// MediaUnitSize is the media-unit granularity NCA section offsets are
	// expressed in.
	MediaUnitSize = 0x200
)

// DistributionType is the NCA's distribution channel.
type DistributionType uint8

const (
	DistributionSystem DistributionType = iota
	DistributionGamecard
)

// ContentType classifies what an NCA's sections actually hold.
type ContentType uint8

const (
	ContentProgram ContentType = iota
	ContentMeta
	ContentControl
	ContentManual
	ContentData
	ContentPublicData
)

// KeyAreaEncryptionKeyIndex selects which of the keyset's three key-area
// key arrays decrypts this NCA's embedded key area.
type KeyAreaEncryptionKeyIndex uint8

const (
	KeyAreaApplication KeyAreaEncryptionKeyIndex = iota
	KeyAreaOcean
	KeyAreaSystem
)

// sectionEntry is one of the header's four FileSystemEntry records.
type sectionEntry struct {
	startOffsetUnits uint32
	endOffsetUnits   uint32
}

// present reports whether this section slot is actually in use: an all-zero
// start/end offset means the slot is absent, per spec.md §3.
func (e sectionEntry) present() bool {
	return e.startOffsetUnits != 0 || e.endOffsetUnits != 0
}

func (e sectionEntry) fsStart() int64 {
	return int64(e.startOffsetUnits) * MediaUnitSize
}

// header is the parsed, decrypted fixed-layout 0x400-byte NCA header.
type header struct {
	magic              [4]byte
	distType           DistributionType
	contentType        ContentType
	keyGenerationOld   uint8
	keyAreaIndex       KeyAreaEncryptionKeyIndex
	contentSize        uint64
	programID          uint64
	contentIndex       uint32
	keyGeneration      uint8
	rightsID           [16]byte
	sections           [sectionCount]sectionEntry
	encryptedKeyArea   [0x40]byte
}

// effectiveKeyGeneration implements spec.md §3's "effective key generation
// = max(old, new); if >=1, subtract 1" rule (values 0 and 1 both denote
// master key 0).
func (h *header) effectiveKeyGeneration() int {
	gen := int(h.keyGenerationOld)
	if int(h.keyGeneration) > gen {
		gen = int(h.keyGeneration)
	}
	if gen > 0 {
		gen--
	}
	return gen
}

func parseHeader(decrypted []byte) (*header, error) {
	var h header
	copy(h.magic[:], decrypted[0x200:0x204])
	if string(h.magic[:]) != MagicNCA3 {
		return nil, newErr(InvalidInput, "parse header", "unsupported magic, only NCA3 is supported")
	}

	h.distType = DistributionType(decrypted[0x204])
	h.contentType = ContentType(decrypted[0x205])
	h.keyGenerationOld = decrypted[0x206]
	h.keyAreaIndex = KeyAreaEncryptionKeyIndex(decrypted[0x207])
	h.contentSize = binary.LittleEndian.Uint64(decrypted[0x208:0x210])
	h.programID = binary.LittleEndian.Uint64(decrypted[0x210:0x218])
	h.contentIndex = binary.LittleEndian.Uint32(decrypted[0x218:0x21C])
	h.keyGeneration = decrypted[0x220]
	copy(h.rightsID[:], decrypted[0x230:0x240])

	for i := 0; i < sectionCount; i++ {
		off := 0x240 + i*16
		h.sections[i] = sectionEntry{
			startOffsetUnits: binary.LittleEndian.Uint32(decrypted[off : off+4]),
			endOffsetUnits:   binary.LittleEndian.Uint32(decrypted[off+4 : off+8]),
		}
	}

	copy(h.encryptedKeyArea[:], decrypted[0x300:0x340])

	return &h, nil
}

// FsType is the inner filesystem kind a section carries.
type FsType uint8

const (
	FsTypeRomFs FsType = iota
	FsTypePartitionFs
)

// HashType selects which of the two HashInfo variants a section header
// carries.
type HashType uint8

const (
	HashTypeAuto HashType = iota
	_
	HashTypeHierarchicalSha256
	HashTypeHierarchicalIntegrity
)

// EncryptionType is the per-section cipher. Only AesCtr is implemented;
// the others are parsed (to produce a precise error) but not decrypted.
type EncryptionType uint8

const (
	EncryptionAuto EncryptionType = iota
	EncryptionNone
	EncryptionAesCtrOld
	EncryptionAesCtr
	EncryptionAesCtrEx
)

// hierarchicalSha256Info is the HashInfo variant used by PFS0 sections.
type hierarchicalSha256Info struct {
	pfs0Offset uint64
}

// ivfcLevel is one level of an IVFC hierarchical-integrity hash tree; only
// used here to locate the data level's offset (hashes aren't verified).
type ivfcLevel struct {
	offset uint64
}

// hierarchicalIntegrityInfo is the HashInfo variant used by RomFS sections.
type hierarchicalIntegrityInfo struct {
	levels [6]ivfcLevel
}

// fsHeader is the parsed, tagged form of one 0x200-byte section header.
// hash_info is an untagged union in the on-disk format (spec.md §9); it is
// resolved into exactly one of the two pointers below based on hashType.
type fsHeader struct {
	fsType         FsType
	hashType       HashType
	encryptionType EncryptionType
	ctr            [8]byte
	sparseGen      uint16

	sha256 *hierarchicalSha256Info
	ivfc   *hierarchicalIntegrityInfo
}

const (
	hashInfoOffset      = 0x08
	patchInfoOffset     = 0x100
	ctrOffset           = 0x140
	sparseInfoOffset    = 0x148
	sparseGenFieldDelta = 0x28 // bucket(0x20) + physical_offset(0x8)

	sha256PFS0OffsetDelta = 0x38
	ivfcLevelsBase        = 0x10
	ivfcLevelStride       = 0x18
)

func parseFsHeader(data []byte) *fsHeader {
	fh := &fsHeader{
		fsType:         FsType(data[0x02]),
		hashType:       HashType(data[0x03]),
		encryptionType: EncryptionType(data[0x04]),
	}
	copy(fh.ctr[:], data[ctrOffset:ctrOffset+8])
	fh.sparseGen = binary.LittleEndian.Uint16(data[sparseInfoOffset+sparseGenFieldDelta : sparseInfoOffset+sparseGenFieldDelta+2])

	switch fh.hashType {
	case HashTypeHierarchicalSha256:
		off := hashInfoOffset + sha256PFS0OffsetDelta
		fh.sha256 = &hierarchicalSha256Info{
			pfs0Offset: binary.LittleEndian.Uint64(data[off : off+8]),
		}
	case HashTypeHierarchicalIntegrity:
		ivfc := &hierarchicalIntegrityInfo{}
		for i := 0; i < 6; i++ {
			off := hashInfoOffset + ivfcLevelsBase + i*ivfcLevelStride
			ivfc.levels[i].offset = binary.LittleEndian.Uint64(data[off : off+8])
		}
		fh.ivfc = ivfc
	}

	return fh
}
