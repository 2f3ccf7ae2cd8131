// Command ncadump opens a Nintendo Switch content archive and lists the
// files inside its PFS0/RomFS sections.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/falk/nca-go/keyset"
	"github.com/falk/nca-go/nca"
	"github.com/falk/nca-go/romfs"
)

func main() {
	keysPath := flag.String("k", "", "path to prod.keys")
	section := flag.Int("section", -1, "only inspect this filesystem section index (default: all)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("usage: ncadump [-k prod.keys] [-section N] <file.nca>")
		os.Exit(1)
	}

	if *keysPath == "" {
		fmt.Println("a keys file is required (-k prod.keys)")
		os.Exit(1)
	}

	ks, err := keyset.Load(afero.NewOsFs(), *keysPath)
	if err != nil {
		fmt.Printf("failed to load keys: %v\n", err)
		os.Exit(1)
	}
	if err := ks.Derive(); err != nil {
		fmt.Printf("failed to derive keys: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Printf("failed to open %s: %v\n", args[0], err)
		os.Exit(1)
	}
	defer f.Close()

	archive, err := nca.Open(f, ks, nil)
	if err != nil {
		fmt.Printf("failed to parse NCA: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("NCA3: program %#016x, content size %d, %d filesystem section(s)\n",
		archive.ProgramID, archive.ContentSize, archive.FilesystemCount())

	for i := 0; i < archive.FilesystemCount(); i++ {
		if *section >= 0 && i != *section {
			continue
		}
		dumpSection(archive, i)
	}
}

func dumpSection(archive *nca.NCA, i int) {
	if pfs, err := archive.OpenPFS0(i); err == nil {
		fmt.Printf("section %d: PFS0\n", i)
		for _, name := range pfs.ListFiles() {
			fmt.Printf("  %s\n", name)
		}
		return
	}

	romFS, err := archive.OpenRomFS(i)
	if err != nil {
		fmt.Printf("section %d: unreadable: %v\n", i, err)
		return
	}

	fmt.Printf("section %d: RomFS\n", i)
	listDir(romFS, "", 0)
}

func listDir(r *romfs.Reader, path string, depth int) {
	it, err := r.OpenDirIterator(path)
	if err != nil {
		fmt.Printf("  %s: %v\n", path, err)
		return
	}

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	var subdirs []string
	for {
		name, ok := it.NextDir()
		if !ok {
			break
		}
		fmt.Printf("%s[D] %s\n", indent, name)
		subdirs = append(subdirs, joinRomPath(path, name))
	}
	for {
		name, size, ok := it.NextFile()
		if !ok {
			break
		}
		fmt.Printf("%s[F] %s (%d bytes)\n", indent, name, size)
	}

	for _, sub := range subdirs {
		listDir(r, sub, depth+1)
	}
}

func joinRomPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
