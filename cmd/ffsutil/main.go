package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/KarpelesLab/ffs"
)

const usage = `ffsutil - FFS flash filesystem CLI tool

Usage:
  ffsutil format [-areas N] [-area-size BYTES] <image>   Format a new image
  ffsutil ls [-areas N] [-area-size B] <image> [<path>]   List a directory
  ffsutil cat [-areas N] [-area-size B] <image> <file>    Print a file's contents
  ffsutil info [-areas N] [-area-size B] <image>          Show mount summary
  ffsutil export [-areas N] [-area-size B] [-codec none|gzip|xz|zstd] <image> <archive>  Export raw area snapshot as a tar archive
  ffsutil help                                            Show this help message

Flags must come before the image path.

Examples:
  ffsutil format -areas 4 -area-size 65536 disk.img
  ffsutil ls disk.img /
  ffsutil cat disk.img /etc/motd
  ffsutil export disk.img /tmp/disk.tar.gz
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "format":
		err = cmdFormat(args)
	case "ls":
		err = cmdLs(args)
	case "cat":
		err = cmdCat(args)
	case "info":
		err = cmdInfo(args)
	case "export":
		err = cmdExport(args)
	case "help":
		fmt.Println(usage)
		return
	default:
		fmt.Printf("Error: Unknown command %q\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func computeAreas(n int, size uint32) []ffs.AreaDesc {
	areas := make([]ffs.AreaDesc, n)
	for i := range areas {
		areas[i] = ffs.AreaDesc{Offset: uint32(i) * size, Length: size}
	}
	return areas
}

func cmdFormat(args []string) error {
	fs := flag.NewFlagSet("format", flag.ExitOnError)
	nAreas := fs.Int("areas", 4, "number of areas, last one is scratch")
	areaSize := fs.Uint("area-size", 65536, "bytes per area")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("missing image path")
	}
	image := fs.Arg(0)

	areas := computeAreas(*nAreas, uint32(*areaSize))
	m, err := ffs.CreateFileMedium(image, areas)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer m.Close()

	if _, err := ffs.Format(areas, m); err != nil {
		return fmt.Errorf("format failed: %w", err)
	}
	fmt.Printf("formatted %s: %d areas of %d bytes\n", image, *nAreas, *areaSize)
	return nil
}

func openMount(nAreas int, areaSize uint, image string) (*ffs.Mount, func() error, error) {
	areas := computeAreas(nAreas, uint32(areaSize))
	m, err := ffs.OpenFileMedium(image, areas)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	mnt, err := ffs.Restore(areas, m)
	if err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("restore failed: %w", err)
	}
	return mnt, m.Close, nil
}

type areaFlags struct {
	nAreas   *int
	areaSize *uint
}

func newAreaFlagSet(name string) (*flag.FlagSet, *areaFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	af := &areaFlags{
		nAreas:   fs.Int("areas", 4, "number of areas, last one is scratch"),
		areaSize: fs.Uint("area-size", 65536, "bytes per area"),
	}
	return fs, af
}

func cmdLs(args []string) error {
	fs, af := newAreaFlagSet("ls")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("missing image path")
	}
	image := fs.Arg(0)
	dirPath := "/"
	if fs.NArg() > 1 {
		dirPath = fs.Arg(1)
	}

	mnt, closeFn, err := openMount(*af.nAreas, *af.areaSize, image)
	if err != nil {
		return err
	}
	defer closeFn()

	dir, err := mnt.Find(dirPath)
	if err != nil {
		return fmt.Errorf("path %q not found: %w", dirPath, err)
	}
	if !dir.IsDir() {
		return fmt.Errorf("%q is not a directory", dirPath)
	}
	entries, err := mnt.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		typeChar := "-"
		if e.IsDir() {
			typeChar = "d"
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		fmt.Printf("%s %8d %s\n", typeChar, info.Size(), e.Name())
	}
	return nil
}

func cmdCat(args []string) error {
	fs, af := newAreaFlagSet("cat")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("missing image path or file")
	}
	image := fs.Arg(0)
	filePath := fs.Arg(1)

	mnt, closeFn, err := openMount(*af.nAreas, *af.areaSize, image)
	if err != nil {
		return err
	}
	defer closeFn()

	f, err := mnt.Open(filePath, ffs.OpenRead)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", filePath, err)
	}
	defer f.Close()

	buf := make([]byte, ffs.BlockMaxDataSz)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return nil
}

func cmdInfo(args []string) error {
	fs, af := newAreaFlagSet("info")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("missing image path")
	}
	image := fs.Arg(0)

	mnt, closeFn, err := openMount(*af.nAreas, *af.areaSize, image)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Println("FFS mount summary")
	fmt.Println("=================")
	var fileCount, dirCount int
	mnt.Walk(func(ino *ffs.Inode, path string) {
		if ino.IsDir() {
			dirCount++
		} else {
			fileCount++
		}
	})
	fmt.Printf("Directories: %d\n", dirCount)
	fmt.Printf("Files:       %d\n", fileCount)
	fmt.Printf("Free space:  %d bytes\n", mnt.FreeSpace())

	u := mnt.PoolUsage()
	fmt.Printf("Inode pool:  %d/%d\n", u.InodesUsed, u.InodesCap)
	fmt.Printf("Block pool:  %d/%d\n", u.BlocksUsed, u.BlocksCap)
	fmt.Printf("File pool:   %d/%d\n", u.FilesUsed, u.FilesCap)
	return nil
}

func cmdExport(args []string) error {
	fs, af := newAreaFlagSet("export")
	codec := fs.String("codec", "gzip", "compression codec: none, gzip, xz, or zstd")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("missing image path or archive path")
	}
	image := fs.Arg(0)
	archivePath := fs.Arg(1)

	mnt, closeFn, err := openMount(*af.nAreas, *af.areaSize, image)
	if err != nil {
		return err
	}
	defer closeFn()

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	var c ffs.ExportCodec
	switch *codec {
	case "none":
		c = ffs.ExportNone
	case "gzip":
		c = ffs.ExportGzip
	case "xz":
		c = ffs.ExportXZ
	case "zstd":
		c = ffs.ExportZstd
	default:
		return fmt.Errorf("unknown codec %q", *codec)
	}

	if err := mnt.Export(out, c); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("exported %s to %s\n", image, archivePath)
	return nil
}
