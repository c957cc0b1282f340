// Package web embeds the demo chat widget page. Customer sites embed the
// widget script directly; this page exists for local testing and demos.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:static
var staticFS embed.FS

// WidgetHandler returns an http.Handler serving the embedded widget demo.
func WidgetHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(subFS))
}
