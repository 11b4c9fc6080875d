package ffs

import "io/fs"

// dirEntry adapts a child *Inode to fs.DirEntry. Grounded on the teacher's
// direntry (dir.go), which decoded a name/type/inode-ref triple out of a
// disk directory table; here the triple is just the already-resident
// child pointer, since FFS keeps a directory's children as an in-RAM
// slice (component E) instead of a separate on-disk directory-table
// format.
type dirEntry struct {
	ino *Inode
}

var _ fs.DirEntry = (*dirEntry)(nil)

func (de *dirEntry) Name() string { return de.ino.Name() }
func (de *dirEntry) IsDir() bool  { return de.ino.IsDir() }
func (de *dirEntry) Type() fs.FileMode {
	if de.ino.IsDir() {
		return fs.ModeDir
	}
	return 0
}
func (de *dirEntry) Info() (fs.FileInfo, error) {
	return &fileinfo{ino: de.ino, name: de.ino.Name()}, nil
}

// ReadDir lists dir's children in the fixed order they were linked in,
// spec.md §4.F's directory listing operation.
func (mnt *Mount) ReadDir(dir *Inode) ([]fs.DirEntry, error) {
	if !dir.IsDir() {
		return nil, newErr("readdir", ErrNotADirectory, nil)
	}
	entries := make([]fs.DirEntry, 0, len(dir.children))
	for _, c := range dir.children {
		entries = append(entries, &dirEntry{ino: c})
	}
	return entries, nil
}

// Walk visits every inode in the tree depth-first, root first, calling fn
// with each inode and its full slash-separated path. Used by diagnostics
// (cmd/ffsutil's info subcommand).
func (mnt *Mount) Walk(fn func(ino *Inode, path string)) {
	mnt.walk(mnt.root, "/", fn)
}

func (mnt *Mount) walk(ino *Inode, p string, fn func(ino *Inode, path string)) {
	fn(ino, p)
	if !ino.IsDir() {
		return
	}
	for _, c := range ino.children {
		childPath := p
		if childPath != "/" {
			childPath += "/"
		}
		childPath += c.Name()
		mnt.walk(c, childPath, fn)
	}
}
