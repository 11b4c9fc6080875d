//go:build xz

package ffs

import (
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	RegisterCodec(ExportXZ, &codecHandler{
		Compress: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
		Decompress: func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
	})
}
