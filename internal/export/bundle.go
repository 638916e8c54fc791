package export

import (
	"archive/tar"
	"io"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
)

// BundleFile is one file of a download bundle.
type BundleFile struct {
	Name string
	Data []byte
}

// WriteBundle writes the files as a .tar.xz archive.
func WriteBundle(w io.Writer, files []BundleFile) error {
	xzw, err := xz.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "creating xz writer")
	}
	tw := tar.NewWriter(xzw)

	now := time.Now()
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.Name,
			Mode:    0o644,
			Size:    int64(len(f.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "writing header for %s", f.Name)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return errors.Wrapf(err, "writing %s", f.Name)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "closing tar stream")
	}
	return errors.Wrap(xzw.Close(), "closing xz stream")
}
