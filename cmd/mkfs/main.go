// Command mkfs builds the embedded read-only ramdisk image cmd/kernel
// links in as the VFS's root (spec §4.8). biscuit/src/mkfs/mkfs.go
// walks a host "skeleton" directory and replicates it into a full
// journaling filesystem image via ufs.Ufs_t's MkDir/MkFile/Append; the
// thin VFS here has no directories or journal to build, so this tool
// keeps the same "walk skeldir, embed every regular file" shape but
// writes straight into the flat vfs.EncodeImage format instead.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"zenithos/vfs"
)

func addfiles(files map[string][]byte, skeldir string) {
	err := filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			fmt.Printf("failed to access %q: %v\n", path, err)
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(path, skeldir)
		rel = strings.TrimPrefix(rel, string(filepath.Separator))
		rel = filepath.ToSlash(rel)

		data, err := readAll(path)
		if err != nil {
			fmt.Printf("failed to read %q: %v\n", path, err)
			return err
		}
		files[rel] = data
		return nil
	})
	if err != nil {
		fmt.Printf("error walking the path %q: %v\n", skeldir, err)
		os.Exit(1)
	}
}

func readAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("Usage: mkfs <skel dir> <output image>\n")
		os.Exit(1)
	}
	skeldir, out := os.Args[1], os.Args[2]

	files := make(map[string][]byte)
	addfiles(files, skeldir)

	image := vfs.EncodeImage(files)
	if err := os.WriteFile(out, image, 0644); err != nil {
		fmt.Printf("failed to write %q: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d files, %d bytes to %s\n", len(files), len(image), out)
}
