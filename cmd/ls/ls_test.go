package ls

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/davget/davget/pkg/dav"
)

func TestRenderEntry(t *testing.T) {
	tc := []struct {
		name     string
		entry    dav.Entry
		expected string
	}{
		{
			name: "file with size and modification time",
			entry: dav.Entry{
				Name:     "alpha.mkv",
				Size:     1024,
				Modified: time.Date(2024, 1, 12, 10, 30, 0, 0, time.UTC),
			},
			expected: "-" + strings.Repeat(" ", 4) + "1.0 KiB" + "  " + "2024-01-12 10:30" + "  " + "alpha.mkv",
		},
		{
			name:     "directory has no size",
			entry:    dav.Entry{Name: "archive", IsDir: true},
			expected: "d" + strings.Repeat(" ", 10) + "-" + strings.Repeat(" ", 17) + "-" + "  " + "archive",
		},
		{
			name:     "missing modification time renders as dash",
			entry:    dav.Entry{Name: "raw.bin", Size: 5},
			expected: "-" + strings.Repeat(" ", 7) + "5 B" + strings.Repeat(" ", 17) + "-" + "  " + "raw.bin",
		},
	}
	for _, tc := range tc {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, renderEntry(tc.entry))
		})
	}
}
