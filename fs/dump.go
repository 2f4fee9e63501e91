// Package fs provides file-based storage for page dumps captured on crawl
// failures.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DumpWriter writes page captures into a directory. Each capture gets a base
// name derived from the capture time and a hash of the page URL, so dumps of
// the same page taken at different times never collide.
type DumpWriter struct {
	dir string
}

// NewDumpWriter creates a DumpWriter targeting dir. The directory is created
// on first write.
func NewDumpWriter(dir string) *DumpWriter {
	return &DumpWriter{dir: dir}
}

// Write stores the rendered HTML and screenshot of the page at url and
// returns the dump location without file extension. The screenshot may be
// nil, in which case only the HTML file is written.
func (w *DumpWriter) Write(url string, html, screenshot []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Join(w.dir, fmt.Sprintf("%s-%016x",
		time.Now().Format("20060102-150405"), xxhash.Sum64String(url)))

	if err := os.WriteFile(base+".html", html, 0o644); err != nil {
		return "", err
	}
	if screenshot != nil {
		if err := os.WriteFile(base+".png", screenshot, 0o644); err != nil {
			return "", err
		}
	}

	return base, nil
}
