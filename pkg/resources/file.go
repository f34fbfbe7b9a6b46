package resources

import (
	"fmt"
	"os"
	"strings"
)

const maxFileSize = 1 << 20 // 1 MiB, per §4.5's file read safety cap.

// safeRelativePath enforces §4.5/§8's file read safety rules: reject
// absolute paths, paths containing "..", and paths starting with "." unless
// they start with "./".
func safeRelativePath(path string) error {
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q is absolute", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path %q contains '..'", path)
	}
	if strings.HasPrefix(path, ".") && !strings.HasPrefix(path, "./") {
		return fmt.Errorf("path %q has a disallowed leading dot", path)
	}
	return nil
}

// readFileSafe validates and reads path relative to the process's working
// directory, rejecting non-regular files and anything over maxFileSize.
func readFileSafe(path string) ([]byte, error) {
	if err := safeRelativePath(path); err != nil {
		return nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%q is not a regular file", path)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%q exceeds the %d byte read cap", path, maxFileSize)
	}

	return os.ReadFile(path)
}
