package ffs

import "strings"

// pathToken distinguishes an intermediate path component (one that must
// resolve to an existing directory) from the final one (the leaf the
// operation actually acts on) — spec.md §4.F "the parser yields BRANCH
// tokens for every component but the last, then one LEAF token".
type pathToken int

const (
	tokenNone pathToken = iota
	tokenBranch
	tokenLeaf
)

// pathParser walks a slash-separated path one component at a time without
// allocating a slice up front, mirroring the teacher's streaming decode
// style (codec.go) rather than strings.Split's eager allocation.
type pathParser struct {
	path string
	pos  int
}

func newPathParser(path string) *pathParser {
	return &pathParser{path: strings.Trim(path, "/")}
}

// next returns the next path component and whether it is a BRANCH (more
// remain) or the LEAF (last one). tokenNone signals end of path.
func (p *pathParser) next() (pathToken, string) {
	if p.pos >= len(p.path) {
		return tokenNone, ""
	}
	rest := p.path[p.pos:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		p.pos += i + 1
		return tokenBranch, rest[:i]
	}
	p.pos = len(p.path)
	return tokenLeaf, rest
}

// resolveParent walks every component but the last, returning the directory
// inode the leaf name should be looked up/created in.
func (mnt *Mount) resolveParent(path string) (*Inode, string, error) {
	p := newPathParser(path)
	cur := mnt.root
	for {
		tok, name := p.next()
		switch tok {
		case tokenNone:
			return nil, "", newErr("resolve", ErrInvalid, nil)
		case tokenLeaf:
			if !cur.IsDir() {
				return nil, "", newErr("resolve", ErrNotADirectory, nil)
			}
			return cur, name, nil
		case tokenBranch:
			if !cur.IsDir() {
				return nil, "", newErr("resolve", ErrNotADirectory, nil)
			}
			child := cur.childNamed(name)
			if child == nil {
				return nil, "", newErr("resolve", ErrNotFound, nil)
			}
			cur = child
		}
	}
}

// Find resolves path to its inode, spec.md §4.F ffs_path_find. An empty or
// "/" path returns the root directory.
func (mnt *Mount) Find(path string) (*Inode, error) {
	mnt.lock()
	defer mnt.unlock()
	return mnt.find(path)
}

func (mnt *Mount) find(path string) (*Inode, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return mnt.root, nil
	}
	dir, leaf, err := mnt.resolveParent(path)
	if err != nil {
		return nil, err
	}
	child := dir.childNamed(leaf)
	if child == nil {
		return nil, newErr("find", ErrNotFound, nil)
	}
	return child, nil
}

// Mkdir creates an empty directory at path, spec.md §4.F ffs_path_new_dir.
// The immediate parent must already exist; intermediate directories are not
// created implicitly (matches the C original's single ffs_path_new_dir
// call, not a recursive mkdir -p).
func (mnt *Mount) Mkdir(path string) error {
	mnt.lock()
	defer mnt.unlock()

	dir, leaf, err := mnt.resolveParent(path)
	if err != nil {
		return err
	}
	if leaf == "" {
		return newErr("mkdir", ErrInvalid, nil)
	}
	if dir.childNamed(leaf) != nil {
		return newErr("mkdir", ErrExists, nil)
	}

	ino, err := mnt.newInode(dir.id, leaf, InodeFlagDirectory)
	if err != nil {
		return err
	}
	if err := mnt.writeInodeRecord(ino); err != nil {
		mnt.inodePool.free()
		return err
	}
	mnt.index.insert(ino)
	dir.addChild(ino)
	return nil
}

// Unlink removes the file or empty directory at path, spec.md §4.F
// ffs_path_unlink. A non-empty directory cannot be unlinked (invariant
// mirrors POSIX rmdir semantics, not recursive rm -rf).
func (mnt *Mount) Unlink(path string) error {
	mnt.lock()
	defer mnt.unlock()

	dir, leaf, err := mnt.resolveParent(path)
	if err != nil {
		return err
	}
	target := dir.childNamed(leaf)
	if target == nil {
		return newErr("unlink", ErrNotFound, nil)
	}
	if target.IsDir() && len(target.children) > 0 {
		return newErr("unlink", ErrInvalid, nil)
	}

	target.flags |= InodeFlagDeleted
	target.seq++
	if err := mnt.writeInodeRecord(target); err != nil {
		return err
	}
	dir.removeChild(target)
	target.decRefcnt(mnt)
	return nil
}

// Rename moves/renames the inode at oldPath to newPath, spec.md §4.F
// ffs_path_rename. Supports moving across directories; the destination
// must not already exist (no implicit overwrite, matching the original's
// EEXIST behavior rather than POSIX rename's silent replace).
func (mnt *Mount) Rename(oldPath, newPath string) error {
	mnt.lock()
	defer mnt.unlock()

	oldDir, oldLeaf, err := mnt.resolveParent(oldPath)
	if err != nil {
		return err
	}
	target := oldDir.childNamed(oldLeaf)
	if target == nil {
		return newErr("rename", ErrNotFound, nil)
	}

	newDir, newLeaf, err := mnt.resolveParent(newPath)
	if err != nil {
		return err
	}
	if newDir.childNamed(newLeaf) != nil {
		return newErr("rename", ErrExists, nil)
	}

	oldDir.removeChild(target)
	target.setFilename(newLeaf)
	target.seq++
	newDir.addChild(target)

	if err := mnt.writeInodeRecord(target); err != nil {
		return err
	}
	return nil
}
