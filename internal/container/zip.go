package container

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
)

// Zip is a Container backed by a ZIP file. New members are deflated;
// untouched members are copied raw during rewrites.
type Zip struct {
	path   string
	method uint16
	now    func() time.Time
}

// NewZip creates a ZIP container for path. The file is not touched.
func NewZip(path string) *Zip {
	return &Zip{path: path, method: zip.Deflate, now: time.Now}
}

func (z *Zip) Path() string {
	return z.path
}

func (z *Zip) Exists() (bool, error) {
	_, err := os.Stat(z.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (z *Zip) Names() ([]string, error) {
	r, err := z.open()
	if err != nil || r == nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

func (z *Zip) ReadEntry(name string) ([]byte, bool, error) {
	r, err := z.open()
	if err != nil || r == nil {
		return nil, false, err
	}
	defer r.Close()

	// Last member wins if a foreign writer left duplicates.
	var found *zip.File
	for _, f := range r.File {
		if f.Name == name {
			found = f
		}
	}
	if found == nil {
		return nil, false, nil
	}

	rc, err := found.Open()
	if err != nil {
		return nil, false, fmt.Errorf("opening entry %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("reading entry %q: %w", name, err)
	}
	return data, true, nil
}

func (z *Zip) Init() error {
	return z.rewrite(nil, nil)
}

func (z *Zip) Create(name string, data []byte) error {
	return z.rewrite(nil, &member{name: name, data: data})
}

func (z *Zip) Append(name string, data []byte) error {
	return z.rewrite(keepAll, &member{name: name, data: data})
}

func (z *Zip) Rewrite(keep func(name string) bool) error {
	if keep == nil {
		keep = keepAll
	}
	return z.rewrite(keep, nil)
}

type member struct {
	name string
	data []byte
}

func keepAll(string) bool { return true }

// open returns a reader for the archive, or nil when it does not exist.
func (z *Zip) open() (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(z.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", z.path, err)
	}
	return r, nil
}

// rewrite writes a new archive holding the kept members of the current
// one (when keep is non-nil) followed by extra, then renames it into
// place.
func (z *Zip) rewrite(keep func(string) bool, extra *member) (err error) {
	var src *zip.ReadCloser
	if keep != nil {
		if src, err = z.open(); err != nil {
			return err
		}
	}
	closeSrc := func() {
		if src != nil {
			src.Close()
			src = nil
		}
	}
	defer closeSrc()

	perm := fs.FileMode(0o644)
	if info, statErr := os.Stat(z.path); statErr == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(z.path), "."+filepath.Base(z.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	if src != nil {
		for _, f := range src.File {
			if !keep(f.Name) {
				continue
			}
			if err = zw.Copy(f); err != nil {
				return fmt.Errorf("copying entry %q: %w", f.Name, err)
			}
		}
	}
	if extra != nil {
		w, werr := zw.CreateHeader(&zip.FileHeader{
			Name:     extra.name,
			Method:   z.method,
			Modified: z.now(),
		})
		if werr != nil {
			err = werr
			return fmt.Errorf("adding entry %q: %w", extra.name, err)
		}
		if _, err = w.Write(extra.data); err != nil {
			return fmt.Errorf("writing entry %q: %w", extra.name, err)
		}
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting archive mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp archive: %w", err)
	}

	closeSrc()
	if err = os.Rename(tmp.Name(), z.path); err != nil {
		return fmt.Errorf("replacing archive: %w", err)
	}
	return nil
}
