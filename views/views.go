// Package views embeds the html templates rendered by the controllers.
package views

import (
	"embed"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed layouts partials courses lessons auth profile errors
var files embed.FS

// Layout is the default layout passed to fiber's Render.
const Layout = "layouts/main"

// Engine returns a template engine backed by the embedded files.
func Engine() *html.Engine {
	engine := html.NewFileSystem(http.FS(files), ".html")
	engine.AddFuncMap(map[string]interface{}{
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("15:04:05 02.01.2006")
		},
		"nl2br": func(s string) []string {
			return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
		},
	})
	return engine
}
