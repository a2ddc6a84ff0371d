// Package logdir materializes the private directory a TensorBoard instance
// serves: a fresh temporary directory holding one symbolic link per source
// path, so several run directories appear as a single merged tree.
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Build creates a uniquely named directory containing one symbolic link per
// source path, in input order. Link names are derived from the final path
// component with an incrementing numeric suffix (name_0, name_1, ...), so two
// sources sharing a final component never collide. Links point at the
// absolute form of each source so they stay valid wherever the directory is
// read from.
//
// On failure the partially built directory is removed before returning.
func Build(paths []string) (string, error) {
	dir, err := os.MkdirTemp("", "tbman-")
	if err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}

	for _, path := range paths {
		target, err := filepath.Abs(path)
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		link, err := freeLinkName(dir, filepath.Base(target))
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", err
		}
		if err := os.Symlink(target, link); err != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("link %s: %w", path, err)
		}
	}
	return dir, nil
}

// freeLinkName returns the first unused suffixed link path for base in dir.
func freeLinkName(dir, base string) (string, error) {
	for count := 0; ; count++ {
		link := filepath.Join(dir, fmt.Sprintf("%s_%d", base, count))
		if _, err := os.Lstat(link); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", link, err)
		}
		return link, nil
	}
}
