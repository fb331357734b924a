package dav

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one member of a remote directory.
type Entry struct {
	Name     string
	Path     string
	IsDir    bool
	Size     int64
	Modified time.Time
}

// List returns the members of the collection at path, directories first,
// then by name. The response entry describing the collection itself is
// skipped.
func (r *Remote) List(ctx context.Context, path string) ([]Entry, error) {
	ms, err := r.propfind(ctx, path)
	if err != nil {
		return nil, err
	}

	target := normalizeLogicalPath(path)
	entries := make([]Entry, 0, len(ms.Responses))
	for _, resp := range ms.Responses {
		if resp.Href == "" {
			continue
		}
		rp := r.resourcePath(resp.Href)
		if rp == target {
			continue
		}

		name := rp[strings.LastIndexByte(rp, '/')+1:]
		if name == "" {
			continue
		}
		childPath := target + "/" + name
		if target == "/" {
			childPath = "/" + name
		}

		e := Entry{Name: name, Path: childPath}
		for _, ps := range resp.Propstat {
			if ps.Prop.ResourceType.Collection != nil {
				e.IsDir = true
			}
			if e.Size == 0 && ps.Prop.ContentLength != "" {
				if sz, err := strconv.ParseInt(strings.TrimSpace(ps.Prop.ContentLength), 10, 64); err == nil {
					e.Size = sz
				}
			}
			if e.Modified.IsZero() && ps.Prop.LastModified != "" {
				e.Modified = parseModified(ps.Prop.LastModified)
			}
		}
		if e.IsDir {
			e.Size = 0
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// parseModified reads a getlastmodified value. Servers send RFC1123 with
// either a zone name or a numeric offset; unparseable values leave the
// zero time.
func parseModified(v string) time.Time {
	if t, err := http.ParseTime(v); err == nil {
		return t
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
