package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exists reports whether path is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// ReplaceFile moves src over dst. When a rename is not possible, such as
// across filesystems, the content is copied and src removed.
func ReplaceFile(src, dst string) error {
	if !Exists(src) {
		return fmt.Errorf("replace %s: source %s missing", dst, src)
	}
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return errors.Join(fmt.Errorf("move %s to %s: %w", src, dst, renameErr), err)
	}
	return os.Remove(src)
}
