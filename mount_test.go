package ffs_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/KarpelesLab/ffs"
)

func memAreas(n int, size uint32) ([]ffs.AreaDesc, *ffs.MemMedium) {
	lengths := make([]uint32, n)
	areas := make([]ffs.AreaDesc, n)
	for i := range lengths {
		lengths[i] = size
		areas[i] = ffs.AreaDesc{Length: size}
	}
	return areas, ffs.NewMemMedium(lengths)
}

func TestFormatCreatesRoot(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	root, err := mnt.Find("/")
	if err != nil {
		t.Fatalf("find root: %s", err)
	}
	if !root.IsDir() {
		t.Errorf("root is not a directory")
	}
	if root.ID() != 0 {
		t.Errorf("root id = %d, want 0", root.ID())
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	want := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 40)

	f, err := mnt.Open("/hello.txt", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("open for write: %s", err)
	}
	if _, err := f.Write(want); err != nil {
		t.Fatalf("write: %s", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %s", err)
	}

	rf, err := mnt.Open("/hello.txt", ffs.OpenRead)
	if err != nil {
		t.Fatalf("open for read: %s", err)
	}
	defer rf.Close()

	got, err := io.ReadAll(rf)
	if err != nil {
		t.Fatalf("read: %s", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestSeekPartialRead(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	data := []byte("0123456789abcdefghij")
	f, err := mnt.Open("/seek.bin", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write: %s", err)
	}
	f.Close()

	rf, err := mnt.Open("/seek.bin", ffs.OpenRead)
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	defer rf.Close()

	if _, err := rf.Seek(10, io.SeekStart); err != nil {
		t.Fatalf("seek: %s", err)
	}
	buf := make([]byte, 5)
	n, err := rf.Read(buf)
	if err != nil {
		t.Fatalf("read after seek: %s", err)
	}
	if string(buf[:n]) != "abcde" {
		t.Errorf("read after seek(10) = %q, want %q", buf[:n], "abcde")
	}
}

func TestRenameAcrossDirectories(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	if err := mnt.Mkdir("/a"); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := mnt.Mkdir("/b"); err != nil {
		t.Fatalf("mkdir /b: %s", err)
	}

	f, err := mnt.Open("/a/note.txt", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create /a/note.txt: %s", err)
	}
	f.Write([]byte("hi"))
	f.Close()

	if err := mnt.Rename("/a/note.txt", "/b/note.txt"); err != nil {
		t.Fatalf("rename: %s", err)
	}

	if _, err := mnt.Find("/a/note.txt"); err == nil {
		t.Errorf("/a/note.txt should no longer exist")
	}
	moved, err := mnt.Find("/b/note.txt")
	if err != nil {
		t.Fatalf("find /b/note.txt: %s", err)
	}
	if moved.Name() != "note.txt" {
		t.Errorf("moved inode name = %q, want note.txt", moved.Name())
	}
}

func TestUnlinkRefusesNonEmptyDir(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}
	if err := mnt.Mkdir("/dir"); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	f, err := mnt.Open("/dir/f", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	f.Close()

	if err := mnt.Unlink("/dir"); err == nil {
		t.Errorf("unlink of non-empty directory should fail")
	}
	if err := mnt.Unlink("/dir/f"); err != nil {
		t.Fatalf("unlink file: %s", err)
	}
	if err := mnt.Unlink("/dir"); err != nil {
		t.Fatalf("unlink now-empty directory: %s", err)
	}
}

func TestCreateAndUnlinkEveryOther(t *testing.T) {
	areas, m := memAreas(4, 65536)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("/file%02d", i)
		f, err := mnt.Open(name, ffs.OpenWrite|ffs.OpenCreate)
		if err != nil {
			t.Fatalf("create %s: %s", name, err)
		}
		f.Write([]byte(name))
		f.Close()
	}

	for i := 0; i < n; i += 2 {
		name := fmt.Sprintf("/file%02d", i)
		if err := mnt.Unlink(name); err != nil {
			t.Fatalf("unlink %s: %s", name, err)
		}
	}

	entries, err := mnt.ReadDir(mustFind(t, mnt, "/"))
	if err != nil {
		t.Fatalf("readdir: %s", err)
	}
	if len(entries) != n/2 {
		t.Fatalf("got %d remaining entries, want %d", len(entries), n/2)
	}
	for i := 1; i < n; i += 2 {
		name := fmt.Sprintf("file%02d", i)
		found := false
		for _, e := range entries {
			if e.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected surviving entry %q not found", name)
		}
	}
}

// TestCreateAndUnlinkEveryOtherThenRemount is TestCreateAndUnlinkEveryOther
// plus an actual remount: Unlink's tombstone write must bump the inode's
// seq, not just set the RAM flag and rewrite at the same seq, or restore's
// highest-seq-wins resolution (restore.go) discards the tombstone and the
// unlinked file reappears (invariant 2).
func TestCreateAndUnlinkEveryOtherThenRemount(t *testing.T) {
	areas, m := memAreas(4, 65536)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("/file%02d", i)
		f, err := mnt.Open(name, ffs.OpenWrite|ffs.OpenCreate)
		if err != nil {
			t.Fatalf("create %s: %s", name, err)
		}
		f.Write([]byte(name))
		f.Close()
	}
	for i := 0; i < n; i += 2 {
		name := fmt.Sprintf("/file%02d", i)
		if err := mnt.Unlink(name); err != nil {
			t.Fatalf("unlink %s: %s", name, err)
		}
	}

	mnt2, err := ffs.Restore(areas, m)
	if err != nil {
		t.Fatalf("restore: %s", err)
	}

	entries, err := mnt2.ReadDir(mustFind(t, mnt2, "/"))
	if err != nil {
		t.Fatalf("readdir after restore: %s", err)
	}
	if len(entries) != n/2 {
		t.Fatalf("got %d remaining entries after restore, want %d", len(entries), n/2)
	}
	for i := 0; i < n; i += 2 {
		name := fmt.Sprintf("file%02d", i)
		for _, e := range entries {
			if e.Name() == name {
				t.Errorf("unlinked entry %q reappeared after restore", name)
			}
		}
	}
}

// TestOverwriteThenRestore writes a file, overwrites a middle span of it
// in place, and remounts, checking that the patched content (not the
// original) survives. Exercises File.overwriteRange and the equal-rank/
// higher-seq resolution in both Inode.insertBlock (live) and linkTree
// (after restore).
func TestOverwriteThenRestore(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	original := []byte("0123456789ABCDEFGHIJ")
	f, err := mnt.Open("/patch.bin", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	if _, err := f.Write(original); err != nil {
		t.Fatalf("write: %s", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %s", err)
	}

	f, err = mnt.Open("/patch.bin", ffs.OpenWrite)
	if err != nil {
		t.Fatalf("reopen for overwrite: %s", err)
	}
	if _, err := f.Seek(5, io.SeekStart); err != nil {
		t.Fatalf("seek: %s", err)
	}
	if _, err := f.Write([]byte("xxxxx")); err != nil {
		t.Fatalf("overwrite: %s", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close after overwrite: %s", err)
	}

	want := []byte("01234xxxxxABCDEFGHIJ")

	rf, err := mnt.Open("/patch.bin", ffs.OpenRead)
	if err != nil {
		t.Fatalf("reopen for read: %s", err)
	}
	got, err := io.ReadAll(rf)
	rf.Close()
	if err != nil {
		t.Fatalf("read before restore: %s", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("content before restore = %q, want %q", got, want)
	}

	mnt2, err := ffs.Restore(areas, m)
	if err != nil {
		t.Fatalf("restore: %s", err)
	}
	rf2, err := mnt2.Open("/patch.bin", ffs.OpenRead)
	if err != nil {
		t.Fatalf("reopen after restore: %s", err)
	}
	defer rf2.Close()
	got2, err := io.ReadAll(rf2)
	if err != nil {
		t.Fatalf("read after restore: %s", err)
	}
	if !bytes.Equal(got2, want) {
		t.Fatalf("content after restore = %q, want %q", got2, want)
	}
}

// TestTruncateThenRestore opens an existing file with OpenTruncate, writes
// shorter replacement content, and remounts. Without OpenTruncate writing
// block tombstones and a fresh inode record, the old on-disk blocks would
// survive untouched and linkTree would re-attach them after restore,
// corrupting the file.
func TestTruncateThenRestore(t *testing.T) {
	areas, m := memAreas(4, 8192)
	mnt, err := ffs.Format(areas, m)
	if err != nil {
		t.Fatalf("format: %s", err)
	}

	f, err := mnt.Open("/trunc.txt", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create: %s", err)
	}
	if _, err := f.Write([]byte("this is the original, much longer content")); err != nil {
		t.Fatalf("write: %s", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %s", err)
	}

	f, err = mnt.Open("/trunc.txt", ffs.OpenWrite|ffs.OpenTruncate)
	if err != nil {
		t.Fatalf("reopen with truncate: %s", err)
	}
	if _, err := f.Write([]byte("short")); err != nil {
		t.Fatalf("write after truncate: %s", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close after truncate: %s", err)
	}

	mnt2, err := ffs.Restore(areas, m)
	if err != nil {
		t.Fatalf("restore: %s", err)
	}
	rf, err := mnt2.Open("/trunc.txt", ffs.OpenRead)
	if err != nil {
		t.Fatalf("reopen after restore: %s", err)
	}
	defer rf.Close()
	got, err := io.ReadAll(rf)
	if err != nil {
		t.Fatalf("read after restore: %s", err)
	}
	if string(got) != "short" {
		t.Fatalf("content after restore = %q, want %q", got, "short")
	}
}

func mustFind(t *testing.T, mnt *ffs.Mount, path string) *ffs.Inode {
	t.Helper()
	ino, err := mnt.Find(path)
	if err != nil {
		t.Fatalf("find %s: %s", path, err)
	}
	return ino
}
