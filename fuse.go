//go:build fuse

package ffs

import (
	"context"
	"syscall"

	fusefs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// node adapts an *Inode to the go-fuse/v2/fs tree API. Grounded on the
// teacher's inode_fuse.go (build tag fuse, Lookup/Open/OpenDir/ReadDir
// method set on its *Inode); rewritten against the fs package's
// InodeEmbedder/syscall.Errno contract rather than the teacher's
// lower-level fuse.EntryOut-filling code, since that is the documented
// entry point for v2.1.0 (see fs doc comment: "the file system is mounted
// by calling mount on the root of the tree").
type node struct {
	fusefs.Inode
	mnt *Mount
	ino *Inode
}

var _ fusefs.InodeEmbedder = (*node)(nil)
var _ fusefs.NodeLookuper = (*node)(nil)
var _ fusefs.NodeReaddirer = (*node)(nil)
var _ fusefs.NodeGetattrer = (*node)(nil)
var _ fusefs.NodeOpener = (*node)(nil)
var _ fusefs.NodeReader = (*node)(nil)

func (n *node) attr(out *fuse.Attr) {
	out.Ino = uint64(n.ino.ID())
	out.Size = uint64(n.ino.DataLen())
	if n.ino.IsDir() {
		out.Mode = fuse.S_IFDIR | 0755
	} else {
		out.Mode = fuse.S_IFREG | 0644
	}
}

func (n *node) Getattr(ctx context.Context, f fusefs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.attr(&out.Attr)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fusefs.Inode, syscall.Errno) {
	child := n.ino.lookupChild(ctx, name)
	if child == nil {
		return nil, syscall.ENOENT
	}
	mode := uint32(syscall.S_IFREG)
	if child.IsDir() {
		mode = syscall.S_IFDIR
	}
	childNode := &node{mnt: n.mnt, ino: child}
	childNode.attr(&out.Attr)
	return n.NewInode(ctx, childNode, fusefs.StableAttr{Mode: mode, Ino: uint64(child.ID())}), 0
}

func (n *node) Readdir(ctx context.Context) (fusefs.DirStream, syscall.Errno) {
	if !n.ino.IsDir() {
		return nil, syscall.ENOTDIR
	}
	entries := make([]fuse.DirEntry, 0, len(n.ino.children))
	for _, c := range n.ino.children {
		mode := uint32(syscall.S_IFREG)
		if c.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name(), Ino: uint64(c.ID()), Mode: mode})
	}
	return fusefs.NewListDirStream(entries), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fusefs.FileHandle, uint32, syscall.Errno) {
	if n.ino.IsDir() {
		return nil, 0, syscall.EISDIR
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, f fusefs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.mnt.lock()
	defer n.mnt.unlock()
	nr, err := n.ino.readAt(n.mnt, uint32(off), dest)
	if err != nil {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:nr]), 0
}

// Serve mounts mnt's filesystem tree at mountpoint and blocks until it is
// unmounted, grounded on the fs package doc's "fs.Mount(...); server.Wait()"
// pattern. FFS is writable through the regular Mount API; this frontend
// only exposes the read path, matching spec.md's Non-goals around a full
// POSIX permission/xattr surface.
func Serve(mnt *Mount, mountpoint string, opts *fusefs.Options) error {
	root := &node{mnt: mnt, ino: mnt.root}
	server, err := fusefs.Mount(mountpoint, root, opts)
	if err != nil {
		return newErr("fuse_mount", ErrIO, err)
	}
	server.Wait()
	return nil
}
