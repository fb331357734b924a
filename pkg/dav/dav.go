package dav

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/davget/davget/pkg/client"
)

// Remote is one WebDAV server plus the credentials and base path used to
// reach it. It mints the transport sessions for control and data traffic;
// every session shares the Remote's bandwidth limiter.
type Remote struct {
	host     string // scheme://host[:port]
	basePath string // path component of the server URL, no trailing slash
	control  *client.Session
	opts     client.Options
	limiter  *rate.Limiter
}

// New parses serverURL and returns a Remote. webdav:// and webdavs:// are
// accepted aliases for http:// and https://; any path component of the URL
// becomes the base path prepended to every request.
func New(serverURL string, opts client.Options) (*Remote, error) {
	u, err := url.Parse(MapScheme(serverURL))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: unsupported scheme %q", serverURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: missing host", serverURL)
	}

	var limiter *rate.Limiter
	if opts.LimitRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.LimitRate), int(opts.LimitRate))
	}
	return &Remote{
		host:     u.Scheme + "://" + u.Host,
		basePath: strings.TrimRight(u.Path, "/"),
		control:  client.NewSessionWithLimiter(opts, limiter),
		opts:     opts,
		limiter:  limiter,
	}, nil
}

// MapScheme rewrites webdav:// and webdavs:// prefixes to their HTTP
// equivalents.
func MapScheme(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "webdavs://"):
		return "https://" + strings.TrimPrefix(serverURL, "webdavs://")
	case strings.HasPrefix(serverURL, "webdav://"):
		return "http://" + strings.TrimPrefix(serverURL, "webdav://")
	}
	return serverURL
}

// FullPath joins the base path with a logical path, without encoding. This
// is the form the Destination header wants.
func (r *Remote) FullPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.basePath + path
}

// URL returns the fully encoded request URL for a logical path.
func (r *Remote) URL(path string) string {
	return r.host + client.EncodePath(r.FullPath(path))
}

// BasePath returns the server-side prefix stripped from response hrefs.
func (r *Remote) BasePath() string {
	return r.basePath
}

// Control returns the session for metadata and management requests. It
// retries transient failures at the transport level.
func (r *Remote) Control() *client.Session {
	return r.control
}

// DataSession mints a fresh session for one download worker. Chunk retry
// policy belongs to the download engine, so data sessions never retry at
// the transport level. They share the Remote's bandwidth limiter.
func (r *Remote) DataSession() *client.Session {
	opts := r.opts
	opts.MaxRetries = 0
	return client.NewSessionWithLimiter(opts, r.limiter)
}
