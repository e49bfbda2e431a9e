package fileutils

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MoveFile safely moves a file from source to destination, creating the
// destination directory first.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WithStack(err)
	}

	// Try a simple rename first (fastest, works if src and dst are on the
	// same filesystem).
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	// If rename failed, do a copy + delete. The copy lands in a uniquely
	// named partial file next to dst so an interrupted copy never leaves a
	// truncated file at the final path.
	partial := dst + "." + uuid.New().String() + ".partial"
	err = copyFile(src, partial)
	if err != nil {
		os.Remove(partial)
		return errors.WithStack(err)
	}

	err = os.Rename(partial, dst)
	if err != nil {
		os.Remove(partial)
		return errors.WithStack(err)
	}

	// Remove the source file only after successful copy.
	err = os.Remove(src)
	if err != nil {
		// If we can't remove the source, try to clean up the destination.
		os.Remove(dst)
		return errors.WithStack(err)
	}

	return nil
}

// copyFile copies a file from source to destination.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return errors.WithStack(err)
	}

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	err = destFile.Chmod(sourceInfo.Mode())
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// CleanupEmptyDirs removes dir if it is now empty, then its parent if that
// is also empty. It never recurses further than those two levels, and every
// deletion candidate must live strictly inside dataRoot; anything else is
// refused so crafted metadata can never delete directories outside the data
// sandbox.
func CleanupEmptyDirs(dir, dataRoot string) error {
	candidate := dir
	for i := 0; i < 2; i++ {
		inside, err := isWithinRoot(candidate, dataRoot)
		if err != nil {
			return errors.WithStack(err)
		}
		if !inside {
			// Deletion outside the data root is refused, not an error: the
			// walk simply stops here.
			return nil
		}

		empty, err := isEmptyDir(candidate)
		if err != nil {
			return errors.WithStack(err)
		}
		if !empty {
			return nil
		}

		if err := os.Remove(candidate); err != nil {
			return errors.WithStack(err)
		}
		candidate = filepath.Dir(candidate)
	}
	return nil
}

// isWithinRoot reports whether path is a strict descendant of root, compared
// on resolved absolute paths.
func isWithinRoot(path, root string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, errors.WithStack(err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, errors.WithStack(err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return true, nil
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return len(entries) == 0, nil
}

// SamePath reports whether two paths resolve to the same absolute location.
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
