package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/davget/davget/pkg/logging"
	"github.com/davget/davget/pkg/version"
)

const (
	retryMinWait     = 100 * time.Millisecond  // in milliseconds
	retryMaxWait     = 3000 * time.Millisecond // in milliseconds, do not backoff further than 3 seconds
	retrySleepJitter = 500                     // (will add 0-500 additional milliseconds), multiplied by time.Millisecond in backoffFunc

	rateLimitSlice = 16 * 1024 // limiter waits are taken in 16 KiB slices so shared caps stay smooth
)

// Options configures a Session.
type Options struct {
	ConnectTimeout time.Duration
	// MaxRetries applies transport-level retries to metadata and control
	// requests. Sessions used for chunk downloads run with this at zero
	// because the download engine owns chunk retry policy.
	MaxRetries int
	Insecure   bool
	Username   string
	Password   string
	// LimitRate caps body read throughput in bytes per second, 0 disables.
	LimitRate int64
}

// Response is one fully buffered HTTP exchange. Bodies are buffered whole;
// chunk sizes are bounded by the download window cap, so this stays cheap.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status code is in the 2xx range.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type HTTPStatusError struct {
	StatusCode int
}

func ErrUnexpectedStatus(statusCode int) error {
	return HTTPStatusError{StatusCode: statusCode}
}

var _ error = HTTPStatusError{}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.StatusCode)
}

// Session issues requests over its own connection pool. Parallel download
// workers each hold their own Session so no transport state is shared
// between them.
type Session struct {
	client  *http.Client
	inner   *http.Client // transport-level client beneath the retry layer
	limiter *rate.Limiter
	opts    Options
}

type UserAgentTransport struct {
	Transport http.RoundTripper
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", fmt.Sprintf("davget/%s", version.GetVersion()))
	return t.Transport.RoundTrip(req)
}

// NewSession returns a Session with its own rate limiter built from opts.
func NewSession(opts Options) *Session {
	var limiter *rate.Limiter
	if opts.LimitRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.LimitRate), int(opts.LimitRate))
	}
	return NewSessionWithLimiter(opts, limiter)
}

// NewSessionWithLimiter returns a Session sharing an externally owned rate
// limiter, so a set of worker sessions together respects one bandwidth cap.
func NewSessionWithLimiter(opts Options, limiter *rate.Limiter) *Session {
	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     false,
	}
	if opts.Insecure {
		baseTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	inner := &http.Client{
		Transport:     &UserAgentTransport{Transport: baseTransport},
		CheckRedirect: checkRedirectFunc,
	}
	retryClient := &retryablehttp.Client{
		HTTPClient:   inner,
		Logger:       nil,
		RetryWaitMin: retryMinWait,
		RetryWaitMax: retryMaxWait,
		RetryMax:     opts.MaxRetries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      backoffFunc,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	return &Session{
		client:  retryClient.StandardClient(),
		inner:   inner,
		limiter: limiter,
		opts:    opts,
	}
}

// HTTPClient returns the transport-level client beneath the retry layer.
// Swapping its Transport (as httpmock does) leaves retry behavior intact.
func (s *Session) HTTPClient() *http.Client {
	return s.inner
}

// Get issues a GET with the supplied headers and buffers the whole body.
func (s *Session) Get(ctx context.Context, urlString string, headers map[string]string) (*Response, error) {
	return s.Request(ctx, http.MethodGet, urlString, headers)
}

// Request issues a bodyless request with an arbitrary method (PROPFIND,
// MKCOL, COPY, ...).
func (s *Session) Request(ctx context.Context, method, urlString string, headers map[string]string) (*Response, error) {
	return s.do(ctx, method, urlString, headers, nil, 0)
}

// Send issues a request with a streaming body, used by uploads. Passing an
// io.ReadSeeker lets transport-level retries rewind instead of buffering.
func (s *Session) Send(ctx context.Context, method, urlString string, headers map[string]string, body io.Reader, contentLength int64) (*Response, error) {
	return s.do(ctx, method, urlString, headers, body, contentLength)
}

func (s *Session) do(ctx context.Context, method, urlString string, headers map[string]string, body io.Reader, contentLength int64) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlString, body)
	if err != nil {
		return nil, err
	}
	if contentLength > 0 {
		req.ContentLength = contentLength
	}
	if s.opts.Username != "" || s.opts.Password != "" {
		req.SetBasicAuth(s.opts.Username, s.opts.Password)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := s.readBody(ctx, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (s *Session) readBody(ctx context.Context, r io.Reader) ([]byte, error) {
	if s.limiter == nil {
		return io.ReadAll(r)
	}
	return io.ReadAll(&limitedReader{r: r, limiter: s.limiter, ctx: ctx})
}

// limitedReader paces reads through a shared limiter. Reads are capped to
// small slices so workers sharing one limiter interleave fairly.
type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	n := len(p)
	if n > rateLimitSlice {
		n = rateLimitSlice
	}
	if burst := lr.limiter.Burst(); n > burst {
		n = burst
	}
	if err := lr.limiter.WaitN(lr.ctx, n); err != nil {
		return 0, err
	}
	return lr.r.Read(p[:n])
}

// backoffFunc is a wrapper around retryablehttp.DefaultBackoff that adds a
// random jitter to the backoff to avoid thundering herd issues when several
// control requests retry at once.
func backoffFunc(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	sleep := time.Duration(rand.Intn(retrySleepJitter)) * time.Millisecond
	sleep += retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	return sleep
}

// checkRedirectFunc is a wrapper around http.Client.CheckRedirect that allows for printing out redirects
func checkRedirectFunc(req *http.Request, via []*http.Request) error {
	logging.GetLogger().Trace().
		Str("redirect_url", req.URL.String()).
		Str("url", via[0].URL.String()).
		Int("status", req.Response.StatusCode).
		Msg("Redirect")
	return nil
}

// EncodePath percent-encodes a logical path for use in a request URL, keeping
// the / separators intact.
func EncodePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
