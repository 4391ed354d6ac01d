package assets

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
)

// FSSource serves assets from an fs.FS: a directory on disk or an
// embedded bundle.
type FSSource struct {
	fsys fs.FS
}

// NewDirSource serves assets from a local directory.
func NewDirSource(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir)}
}

// NewFSSource serves assets from fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Open implements Source. Directories are reported as not found.
// The returned reader implements io.ReadSeeker when the underlying file does.
func (s *FSSource) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	clean, err := CleanName(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := s.fsys.Open(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, ErrNotFound
	}

	return f, ObjectInfo{
		Name:        clean,
		Size:        st.Size(),
		ContentType: mime.TypeByExtension(path.Ext(clean)),
		ModTime:     st.ModTime(),
	}, nil
}
