package middleware

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruralpay/wallet/internal/services"
)

// GlyphServer serves SVG glyphs from dir and the placeholder glyph for
// anything missing
func GlyphServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(filepath.Clean("/" + r.URL.Path))
		if !strings.HasSuffix(name, ".svg") {
			name += ".svg"
		}
		path := filepath.Join(dir, name)

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(services.PlaceholderGlyph))
	})
}
