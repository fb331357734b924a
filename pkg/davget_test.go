package davget_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	davget "github.com/davget/davget/pkg"
	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/download"
	"github.com/davget/davget/pkg/optname"
)

var testFS = fstest.MapFS{
	"hello.txt": {Data: []byte("hello, world!")},
}

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

const multistatusFixture = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>%s</D:href>
    <D:propstat>
      <D:prop>
        <D:getcontentlength>%d</D:getcontentlength>
        <D:resourcetype/>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

func randomContent(t *testing.T, size int64) []byte {
	t.Helper()
	content := make([]byte, size)
	_, err := io.ReadFull(rand.New(rand.NewSource(99)), content)
	require.NoError(t, err)
	return content
}

// davHandler answers PROPFIND with a one-entry multistatus and lets
// http.ServeContent handle ranged GETs.
func davHandler(content []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PROPFIND" {
			w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprintf(w, multistatusFixture, r.URL.Path, len(content))
			return
		}
		http.ServeContent(w, r, "data.bin", time.Time{}, bytes.NewReader(content))
	}
}

func TestDownloadSmallFileWithoutPropfind(t *testing.T) {
	// A plain file server rejects PROPFIND, which must degrade to the
	// whole-body fallback instead of failing.
	ts := httptest.NewServer(http.FileServer(http.FS(testFS)))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "hello.txt")

	getter, err := davget.New(ts.URL, client.Options{}, download.Options{})
	require.NoError(t, err)

	res, err := getter.DownloadFile(context.Background(), "/hello.txt", dest)
	require.NoError(t, err)
	assert.Equal(t, download.ModeFallback, res.Mode)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, testFS["hello.txt"].Data, got)
}

func TestDownloadRangedFile(t *testing.T) {
	content := randomContent(t, 5<<20)
	ts := httptest.NewServer(davHandler(content))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "data.bin")

	getter, err := davget.New(ts.URL, client.Options{}, download.Options{
		ChunkSize:   1 << 20,
		Connections: 4,
	})
	require.NoError(t, err)

	res, err := getter.DownloadFile(context.Background(), "/data.bin", dest)
	require.NoError(t, err)
	assert.Equal(t, download.ModeParallel, res.Mode)
	assert.Equal(t, int64(len(content)), res.BytesTransferred)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "reassembled file must match the source")
}

func TestNewRejectsInvalidServer(t *testing.T) {
	_, err := davget.New("ftp://files.local", client.Options{}, download.Options{})
	assert.Error(t, err)
}

func TestDefaultDestination(t *testing.T) {
	dir := t.TempDir()

	tc := []struct {
		name       string
		remotePath string
		localArg   string
		expected   string
	}{
		{
			name:       "empty local uses sanitized base name",
			remotePath: "/dav/films/big movie.mkv",
			localArg:   "",
			expected:   "big movie.mkv",
		},
		{
			name:       "explicit local path wins",
			remotePath: "/dav/films/big movie.mkv",
			localArg:   "out.mkv",
			expected:   "out.mkv",
		},
		{
			name:       "trailing separator appends base name",
			remotePath: "/dav/films/big movie.mkv",
			localArg:   dir + "/",
			expected:   filepath.Join(dir, "big movie.mkv"),
		},
		{
			name:       "existing directory appends base name",
			remotePath: "/dav/films/big movie.mkv",
			localArg:   dir,
			expected:   filepath.Join(dir, "big movie.mkv"),
		},
		{
			name:       "unsafe characters are sanitized",
			remotePath: "/dav/weird:name?.bin",
			localArg:   "",
			expected:   "weird_name.bin",
		},
		{
			name:       "trailing slash on the remote is ignored",
			remotePath: "/dav/archive.bin/",
			localArg:   "",
			expected:   "archive.bin",
		},
	}
	for _, tc := range tc {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, davget.DefaultDestination(tc.remotePath, tc.localArg))
		})
	}
}

func TestFromConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set(optname.Server, "webdav://files.local:8080/dav")
	viper.Set(optname.ChunkSize, "2M")
	viper.Set(optname.Connections, 7)
	viper.Set(optname.LimitRate, "0")
	viper.Set(optname.SplitPartSize, "0")

	getter, err := davget.FromConfig()
	require.NoError(t, err)
	assert.Equal(t, "/dav", getter.Remote.BasePath())
	assert.Equal(t, int64(2<<20), getter.Options.ChunkSize)
	assert.Equal(t, 7, getter.Options.Connections)
}

func TestFromConfigRequiresServer(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := davget.FromConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server configured")
}
