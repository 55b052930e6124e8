package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// ErrNotText is returned when a file's content is not valid UTF-8.
var ErrNotText = errors.New("file is not valid UTF-8 text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is one pending upload. Open is called only when the batch cursor
// reaches the file, so sources may be read lazily.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type pathFile struct {
	path string
}

// PathFile returns a File backed by a path on disk.
func PathFile(path string) File {
	return pathFile{path: path}
}

func (f pathFile) Name() string                 { return filepath.Base(f.path) }
func (f pathFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type bytesFile struct {
	name string
	data []byte
}

// BytesFile returns a File over an in-memory payload, e.g. a multipart part
// that must be buffered before its request ends.
func BytesFile(name string, data []byte) File {
	return bytesFile{name: name, data: data}
}

func (f bytesFile) Name() string { return f.name }
func (f bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// readText reads f fully and decodes it as UTF-8 text, dropping a leading BOM.
func readText(f File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", f.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", f.Name(), err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, f.Name())
	}
	return string(data), nil
}
