package cbz

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// maxImageSize is the maximum size for a single page image (100 MB).
// This prevents decompression bombs from consuming excessive memory.
const maxImageSize = 100 * 1024 * 1024

// ErrNoPages is returned when an archive contains no image entries.
var ErrNoPages = errors.New("archive contains no image entries")

// IsArchiveFile reports whether a filename looks like a comic archive.
func IsArchiveFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".zip" || ext == ".cbz"
}

// IsImageEntry reports whether an archive entry name has a recognized page
// image extension.
func IsImageEntry(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// ListPages returns the archive's image entry names in plain lexicographic
// order. The sort is deliberately not numeric-aware ("page10" sorts before
// "page2"): existing archives were produced assuming this ordering.
func ListPages(path string) ([]string, error) {
	f, zr, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return sortedImageEntries(zr), nil
}

// CountPages returns the number of image entries in the archive.
func CountPages(path string) (int, error) {
	pages, err := ListPages(path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// ReadPageAt returns the raw stored bytes of the image entry at the given
// 0-based index in sorted order. No decode or recompress happens here; the
// caller decides what to do with the bytes.
func ReadPageAt(path string, index int) ([]byte, error) {
	f, zr, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := imageEntryFiles(zr)
	if index < 0 || index >= len(entries) {
		return nil, errors.Errorf("page index %d out of range (0-%d)", index, len(entries)-1)
	}

	return readEntry(entries[index])
}

// ReadFirstPage returns the raw bytes of the first sorted image entry, used
// for staging previews and thumbnail generation. Returns ErrNoPages when the
// archive holds no images.
func ReadFirstPage(path string) ([]byte, error) {
	f, zr, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := imageEntryFiles(zr)
	if len(entries) == 0 {
		return nil, ErrNoPages
	}

	return readEntry(entries[0])
}

func openArchive(path string) (*os.File, *zip.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	stats, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, errors.WithStack(err)
	}

	zr, err := zip.NewReader(f, stats.Size())
	if err != nil {
		f.Close()
		return nil, nil, errors.WithStack(err)
	}

	return f, zr, nil
}

func imageEntryFiles(zr *zip.Reader) []*zip.File {
	var files []*zip.File
	for _, file := range zr.File {
		if IsImageEntry(file.Name) {
			files = append(files, file)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files
}

func sortedImageEntries(zr *zip.Reader) []string {
	files := imageEntryFiles(zr)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func readEntry(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxImageSize))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}
