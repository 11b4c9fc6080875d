package ffs

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
)

// ExportCodec selects the compression applied to an Export archive.
// Grounded on the teacher's SquashComp enum (comp.go) identifying which
// codec a squashfs image was built with; repurposed here to select how
// the *export* archive (not the filesystem's own records, which are never
// compressed — spec.md has no compression concept at the record level) is
// wrapped.
type ExportCodec uint8

const (
	ExportNone ExportCodec = iota
	ExportGzip
	ExportXZ
	ExportZstd
)

func (c ExportCodec) String() string {
	switch c {
	case ExportNone:
		return "none"
	case ExportGzip:
		return "gzip"
	case ExportXZ:
		return "xz"
	case ExportZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// codecHandler is one registered codec's compress/decompress pair.
// Grounded on the teacher's CompHandler (comp.go/comp_xz.go): a registry
// populated by build-tag-gated init() functions rather than a hard
// compile-time dependency on every codec.
type codecHandler struct {
	Compress   func(w io.Writer) (io.WriteCloser, error)
	Decompress func(r io.Reader) (io.ReadCloser, error)
}

var codecRegistry = map[ExportCodec]*codecHandler{}

// RegisterCodec installs a codec handler. Called from export_xz.go's and
// export_zstd.go's build-tag-gated init(), mirroring the teacher's
// RegisterCompHandler. ExportNone and ExportGzip are registered below,
// unconditionally — gzip is the default codec and, per compress/gzip being
// stdlib, always built.
func RegisterCodec(c ExportCodec, h *codecHandler) {
	codecRegistry[c] = h
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func init() {
	RegisterCodec(ExportNone, &codecHandler{
		Compress:   func(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil },
		Decompress: func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil },
	})
	RegisterCodec(ExportGzip, &codecHandler{
		Compress: func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil },
		Decompress: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	})
}

// Export writes a diagnostics snapshot of the raw flash image to w: one tar
// entry per area holding that area's complete raw bytes, header included,
// wrapped in the given compression codec (spec.md §4.N "tars up each
// area's raw bytes ... default codec gzip"). This is a diagnostics/backup
// path with no on-disk format implications — it reads raw area bytes
// straight off the medium and never participates in mount/restore, so it
// has no bearing on invariants 1-7.
func (mnt *Mount) Export(w io.Writer, codec ExportCodec) error {
	mnt.lock()
	defer mnt.unlock()

	h, ok := codecRegistry[codec]
	if !ok {
		return newErr("export", ErrInvalid, nil)
	}
	cw, err := h.Compress(w)
	if err != nil {
		return newErr("export", ErrIO, err)
	}

	tw := tar.NewWriter(cw)
	for i, a := range mnt.am.areas {
		if a == nil {
			continue
		}
		buf := make([]byte, a.Length)
		if err := mnt.medium.ReadAt(i, 0, buf); err != nil {
			tw.Close()
			cw.Close()
			return newErr("export", ErrIO, err)
		}
		hdr := &tar.Header{
			Name:     fmt.Sprintf("area%02d.bin", i),
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(buf)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tw.Close()
			cw.Close()
			return newErr("export", ErrIO, err)
		}
		if _, err := tw.Write(buf); err != nil {
			tw.Close()
			cw.Close()
			return newErr("export", ErrIO, err)
		}
	}
	if err := tw.Close(); err != nil {
		cw.Close()
		return newErr("export", ErrIO, err)
	}
	if err := cw.Close(); err != nil {
		return newErr("export", ErrIO, err)
	}
	return nil
}
