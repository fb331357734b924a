package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davget/davget/pkg/logging"
)

// maxBaseLen keeps sanitized path components reasonably short so split-layout
// directory names stay usable on FAT-style filesystems.
const maxBaseLen = 80

// SanitizeName rewrites a remote file name into a component that is safe to
// create locally. The final dot-extension is preserved as-is; every byte of
// the base outside a conservative allowlist becomes an underscore.
func SanitizeName(name string) string {
	base := name
	ext := ""
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		base = name[:dot]
		ext = name[dot:]
	}

	var b strings.Builder
	b.Grow(len(base))
	for i := 0; i < len(base); i++ {
		ch := base[i]
		switch {
		case ch >= 'a' && ch <= 'z',
			ch >= 'A' && ch <= 'Z',
			ch >= '0' && ch <= '9':
			b.WriteByte(ch)
		case ch == ' ', ch == '-', ch == '_', ch == '[', ch == ']', ch == '(', ch == ')', ch == '+':
			b.WriteByte(ch)
		default:
			b.WriteByte('_')
		}
	}

	safe := strings.Trim(b.String(), " _")
	if safe == "" {
		safe = "file"
	}
	if len(safe) > maxBaseLen {
		safe = safe[:maxBaseLen]
	}
	return safe + ext
}

// EnsureDirectoryTree creates dir and any missing parents. Creation errors are
// tolerated as long as dir ends up existing as a directory; anything else is
// reported.
func EnsureDirectoryTree(dir string) error {
	if dir == "" || dir == "/" {
		return nil
	}
	mkErr := os.MkdirAll(dir, 0o755)
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return nil
	}
	if mkErr != nil {
		return mkErr
	}
	return fmt.Errorf("%s exists but is not a directory", dir)
}

// Resolver turns a requested destination path into one that can actually be
// opened: the file name is sanitized and the parent directory is created,
// degrading to Fallback when the requested parent is unusable. Fallback is
// the directory of last resort and is created on demand.
type Resolver struct {
	Fallback string
}

// ResolveTarget returns the full local path a download should write to. The
// returned path's parent directory exists when the error is nil.
func (r Resolver) ResolveTarget(path string) (string, error) {
	logger := logging.GetLogger()

	dir := filepath.Dir(path)
	name := SanitizeName(filepath.Base(path))

	if dir != "/" {
		err := EnsureDirectoryTree(dir)
		if err == nil {
			return filepath.Join(dir, name), nil
		}
		logger.Warn().
			Str("dir", dir).
			Err(err).
			Msg("Requested directory not usable, falling back")
	}

	fallback := r.Fallback
	if fallback == "" {
		fallback = DefaultFallbackDir()
	}
	if err := EnsureDirectoryTree(fallback); err != nil {
		return "", fmt.Errorf("fallback directory %s not usable: %w", fallback, err)
	}
	return filepath.Join(fallback, name), nil
}

// DefaultFallbackDir is the known-writable downloads directory used when no
// fallback is configured.
func DefaultFallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "davget", "downloads")
	}
	return filepath.Join(home, ".davget", "downloads")
}
