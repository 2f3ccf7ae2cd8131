// Package nca implements the NCA header pipeline: authenticating and
// decrypting an NCA's header with a keyset, selecting the per-content key
// area (or title key), and handing out decrypting readers over the inner
// PFS0/RomFS filesystems it contains.
package nca

import (
	"io"

	"github.com/falk/nca-go/internal/ncacrypto"
	"github.com/falk/nca-go/internal/ncaio"
	"github.com/falk/nca-go/keyset"
	"github.com/falk/nca-go/pfs0"
	"github.com/falk/nca-go/romfs"
)

// activeSection pairs a present section's FileSystemEntry with its parsed
// section header (which carries the section's counter nonce).
type activeSection struct {
	entry  sectionEntry
	header *fsHeader
}

// NCA is an opened, header-decrypted content archive. It holds no file
// contents itself — OpenPFS0/OpenRomFS construct decrypting readers over
// the sections this archive declares.
type NCA struct {
	source   *ncaio.Source
	sections []activeSection

	ProgramID     uint64
	ContentType   ContentType
	ContentSize   uint64
	decryptionKey [16]byte
}

// Open authenticates and decrypts source's NCA header using ks, optionally
// supplying titleKey (the caller-decrypted rights-ID title key) for
// title-key-locked archives. Steps follow spec.md §4.C 1-7.
func Open(source io.ReadSeeker, ks *keyset.Keyset, titleKey []byte) (*NCA, error) {
	const op = "nca.Open"

	src := ncaio.NewSource(source)

	raw := make([]byte, totalHeaderSize)
	if err := src.ReadExact(raw, 0); err != nil {
		return nil, wrapErr(Io, op, err)
	}

	mainBlock, err := ncacrypto.XTSDecryptSectors(raw[:mainHeaderSize], ks.HeaderKey, 0)
	if err != nil {
		return nil, wrapErr(Io, op, err)
	}
	sectionBlock, err := ncacrypto.XTSDecryptSectors(raw[mainHeaderSize:], ks.HeaderKey, 2)
	if err != nil {
		return nil, wrapErr(Io, op, err)
	}
	decrypted := append(mainBlock, sectionBlock...)

	h, err := parseHeader(decrypted)
	if err != nil {
		return nil, err
	}

	var fsHeaders [sectionCount]*fsHeader
	for i := 0; i < sectionCount; i++ {
		off := mainHeaderSize + i*sectionHeaderSize
		fsHeaders[i] = parseFsHeader(decrypted[off : off+sectionHeaderSize])
	}

	keyGen := h.effectiveKeyGeneration()

	var keyAreaKeys *[keyset.MaxKeyGeneration]*[16]byte
	switch h.keyAreaIndex {
	case KeyAreaApplication:
		keyAreaKeys = &ks.KeyAreaKeysApplication
	case KeyAreaOcean:
		keyAreaKeys = &ks.KeyAreaKeysOcean
	case KeyAreaSystem:
		keyAreaKeys = &ks.KeyAreaKeysSystem
	default:
		return nil, newErr(InvalidInput, op, "unknown key area encryption key index")
	}
	if keyGen < 0 || keyGen >= keyset.MaxKeyGeneration || keyAreaKeys[keyGen] == nil {
		return nil, newErr(InvalidInput, op, "key area key not present in keyset for this key generation")
	}

	var decryptionKey [16]byte
	if h.rightsID != ([16]byte{}) {
		if len(titleKey) != 16 {
			return nil, newErr(InvalidInput, op, "NCA is title-key-locked but no title key was supplied")
		}
		if keyGen >= keyset.MaxKeyGeneration || ks.TitleKeyEncryptionKeys[keyGen] == nil {
			return nil, newErr(InvalidInput, op, "titlekek not present in keyset for this key generation")
		}
		dec, err := ncacrypto.ECBDecrypt(titleKey, ks.TitleKeyEncryptionKeys[keyGen][:])
		if err != nil {
			return nil, wrapErr(Io, op, err)
		}
		copy(decryptionKey[:], dec)
	} else {
		keyArea, err := ncacrypto.ECBDecrypt(h.encryptedKeyArea[:], keyAreaKeys[keyGen][:])
		if err != nil {
			return nil, wrapErr(Io, op, err)
		}
		// KeyArea layout: XTS-KEY(0x20) || CTR-KEY(0x10) || UNK-KEY(0x10).
		copy(decryptionKey[:], keyArea[0x20:0x30])
	}

	var sections []activeSection
	for i := 0; i < sectionCount; i++ {
		if !h.sections[i].present() {
			continue
		}
		sections = append(sections, activeSection{entry: h.sections[i], header: fsHeaders[i]})
	}

	return &NCA{
		source:        src,
		sections:      sections,
		ProgramID:     h.programID,
		ContentType:   h.contentType,
		ContentSize:   h.contentSize,
		decryptionKey: decryptionKey,
	}, nil
}

// FilesystemCount returns the number of present (non-absent) sections.
func (n *NCA) FilesystemCount() int {
	return len(n.sections)
}

func (n *NCA) section(op string, i int) (activeSection, error) {
	if i < 0 || i >= len(n.sections) {
		return activeSection{}, newErr(InvalidInput, op, "filesystem index out of range")
	}
	return n.sections[i], nil
}

func (n *NCA) checkUsable(op string, sec activeSection) error {
	if sec.header.sparseGen != 0 {
		return newErr(Unsupported, op, "sparse sections are not implemented")
	}
	if sec.header.encryptionType != EncryptionAesCtr {
		return newErr(Unsupported, op, "unsupported crypto: only AesCtr section encryption is implemented")
	}
	return nil
}

// OpenPFS0 opens section i as a PFS0 partition. The section must use
// PartitionFs + HierarchicalSha256 hashing + AesCtr encryption.
func (n *NCA) OpenPFS0(i int) (*pfs0.Reader, error) {
	const op = "nca.OpenPFS0"

	sec, err := n.section(op, i)
	if err != nil {
		return nil, err
	}
	if sec.header.fsType != FsTypePartitionFs {
		return nil, newErr(InvalidInput, op, "section is not a PartitionFs section")
	}
	if err := n.checkUsable(op, sec); err != nil {
		return nil, err
	}
	if sec.header.sha256 == nil {
		return nil, newErr(InvalidInput, op, "section has no HierarchicalSha256 hash info")
	}

	base := sec.entry.fsStart() + int64(sec.header.sha256.pfs0Offset)
	reader, err := ncaio.NewCTRReader(n.source, base, sec.header.ctr, n.decryptionKey)
	if err != nil {
		return nil, wrapErr(Io, op, err)
	}
	return pfs0.Open(reader)
}

// OpenRomFS opens section i as a RomFS hierarchy. The section must use
// RomFs + HierarchicalIntegrity hashing + AesCtr encryption.
func (n *NCA) OpenRomFS(i int) (*romfs.Reader, error) {
	const op = "nca.OpenRomFS"

	sec, err := n.section(op, i)
	if err != nil {
		return nil, err
	}
	if sec.header.fsType != FsTypeRomFs {
		return nil, newErr(InvalidInput, op, "section is not a RomFs section")
	}
	if err := n.checkUsable(op, sec); err != nil {
		return nil, err
	}
	if sec.header.ivfc == nil {
		return nil, newErr(InvalidInput, op, "section has no HierarchicalIntegrity hash info")
	}

	dataLevel := sec.header.ivfc.levels[5]
	base := sec.entry.fsStart() + int64(dataLevel.offset)
	reader, err := ncaio.NewCTRReader(n.source, base, sec.header.ctr, n.decryptionKey)
	if err != nil {
		return nil, wrapErr(Io, op, err)
	}
	return romfs.Open(reader)
}
