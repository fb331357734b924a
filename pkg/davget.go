package davget

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/config"
	"github.com/davget/davget/pkg/dav"
	"github.com/davget/davget/pkg/download"
	"github.com/davget/davget/pkg/fsutil"
)

// Getter is the embedding surface: one remote plus the engine options
// applied to every download started through it.
type Getter struct {
	Remote  *dav.Remote
	Options download.Options
}

// New connects a Getter to serverURL. The URL may use the webdav:// or
// webdavs:// scheme; its path component becomes the base path prepended
// to every remote path passed to DownloadFile.
func New(serverURL string, clientOpts client.Options, opts download.Options) (*Getter, error) {
	remote, err := dav.New(serverURL, clientOpts)
	if err != nil {
		return nil, err
	}
	return &Getter{Remote: remote, Options: opts}, nil
}

// FromConfig builds a Getter from the resolved configuration.
func FromConfig() (*Getter, error) {
	remote, err := RemoteFromConfig()
	if err != nil {
		return nil, err
	}
	opts, err := config.DownloadOptions()
	if err != nil {
		return nil, err
	}
	return &Getter{Remote: remote, Options: opts}, nil
}

// RemoteFromConfig builds just the protocol layer, for subcommands that
// never download.
func RemoteFromConfig() (*dav.Remote, error) {
	server, err := config.ServerURL()
	if err != nil {
		return nil, err
	}
	clientOpts, err := config.ClientOptions()
	if err != nil {
		return nil, err
	}
	return dav.New(server, clientOpts)
}

// DownloadFile downloads the remote file at path into dest and reports
// what the engine did. Servers without PROPFIND support still work: the
// engine falls back to one whole-body GET when the size cannot be
// resolved.
func (g *Getter) DownloadFile(ctx context.Context, path, dest string) (*download.Result, error) {
	return download.New(g.Remote, g.Options).Get(ctx, path, dest)
}

// DefaultDestination resolves where a download lands. An empty localArg
// means the sanitized remote base name in the current directory; a
// localArg naming a directory, either existing or with a trailing
// separator, gets the sanitized base name appended; anything else is
// taken as given.
func DefaultDestination(remotePath, localArg string) string {
	name := fsutil.SanitizeName(path.Base(strings.TrimRight(remotePath, "/")))
	if localArg == "" {
		return name
	}
	if strings.HasSuffix(localArg, "/") {
		return filepath.Join(localArg, name)
	}
	if st, err := os.Stat(localArg); err == nil && st.IsDir() {
		return filepath.Join(localArg, name)
	}
	return localArg
}
