package romfs

// DirIterator walks a directory's children: first its subdirectories (via
// the first_child_dir_offset/next_sibling_dir_offset chain), then its files
// (via first_child_file_offset/next_sibling_file_offset).
type DirIterator struct {
	reader      *Reader
	nextDirOff  uint32
	nextFileOff uint32
}

// NextDir returns the next child directory's name, or ok=false once the
// subdirectory chain is exhausted.
func (it *DirIterator) NextDir() (name string, ok bool) {
	if it.nextDirOff == terminator {
		return "", false
	}
	e, valid := readDirEntry(it.reader.dirMetaTable, it.nextDirOff)
	if !valid {
		it.nextDirOff = terminator
		return "", false
	}
	it.nextDirOff = e.nextSiblingDirOffset
	return e.name, true
}

// NextFile returns the next child file's name and declared size, or
// ok=false once the file chain is exhausted.
func (it *DirIterator) NextFile() (name string, size uint64, ok bool) {
	if it.nextFileOff == terminator {
		return "", 0, false
	}
	e, valid := readFileEntry(it.reader.fileMetaTable, it.nextFileOff)
	if !valid {
		it.nextFileOff = terminator
		return "", 0, false
	}
	it.nextFileOff = e.nextSiblingFileOffset
	return e.name, e.dataSize, true
}
