package dav

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/logging"
)

// ErrSizeUnknown reports that PROPFIND produced no usable content length
// for the requested path.
var ErrSizeUnknown = errors.New("remote size unknown")

// multistatus mirrors a PROPFIND 207 body. The field tags carry no
// namespace, so documents parse the same whether the server prefixes
// elements with D:, d:, or nothing at all.
type multistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href     string        `xml:"href"`
	Propstat []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Prop davProp `xml:"prop"`
}

type davProp struct {
	ContentLength string          `xml:"getcontentlength"`
	LastModified  string          `xml:"getlastmodified"`
	ResourceType  davResourceType `xml:"resourcetype"`
}

type davResourceType struct {
	Collection *struct{} `xml:"collection"`
}

func (r *Remote) propfind(ctx context.Context, path string) (*multistatus, error) {
	headers := map[string]string{
		"Accept": "*/*",
		"Depth":  "1",
	}
	resp, err := r.control.Request(ctx, "PROPFIND", r.URL(path), headers)
	if err != nil {
		return nil, fmt.Errorf("propfind %s: %w", path, err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("propfind %s: %w", path, client.ErrUnexpectedStatus(resp.StatusCode))
	}
	var ms multistatus
	if err := xml.Unmarshal(resp.Body, &ms); err != nil {
		return nil, fmt.Errorf("propfind %s: parsing multistatus: %w", path, err)
	}
	return &ms, nil
}

// Size resolves the byte size of the file at path via PROPFIND Depth 1.
// The matching response is found by comparing normalized resource paths,
// so servers returning absolute URLs, encoded hrefs, or physical paths
// outside the base path all resolve the same way.
func (r *Remote) Size(ctx context.Context, path string) (int64, error) {
	ms, err := r.propfind(ctx, path)
	if err != nil {
		return 0, err
	}

	log := logging.GetLogger()
	target := normalizeLogicalPath(path)
	log.Debug().Str("path", target).Int("responses", len(ms.Responses)).Msg("Resolving size")

	for _, resp := range ms.Responses {
		if resp.Href == "" || r.resourcePath(resp.Href) != target {
			continue
		}
		for _, ps := range resp.Propstat {
			length := strings.TrimSpace(ps.Prop.ContentLength)
			if length == "" {
				continue
			}
			size, err := strconv.ParseInt(length, 10, 64)
			if err != nil {
				continue
			}
			return size, nil
		}
	}
	return 0, fmt.Errorf("size %s: %w", path, ErrSizeUnknown)
}

// resourcePath turns a response href into the logical path a caller would
// ask about: percent-decoded, trailing slashes removed, server base path
// stripped, the bare root collapsing to "/".
func (r *Remote) resourcePath(href string) string {
	p := strings.TrimSpace(href)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	} else if dec, derr := url.PathUnescape(p); derr == nil {
		p = dec
	}
	p = strings.TrimRight(p, "/")
	if base := r.basePath; base != "" && base != "/" && strings.HasPrefix(p, base) {
		p = strings.TrimPrefix(p, base)
	}
	if p == "" {
		p = "/"
	}
	return p
}

func normalizeLogicalPath(path string) string {
	p := strings.Trim(path, " ")
	p = strings.TrimRight(p, "/")
	if p == "" {
		p = "/"
	}
	return p
}
