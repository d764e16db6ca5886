// ABOUTME: Serves rendered API documentation at /docs
// ABOUTME: Markdown source is embedded and converted to HTML with goldmark

package server

import (
	"bytes"
	_ "embed"
	"net/http"

	"github.com/yuin/goldmark"
)

//go:embed docs/api.md
var apiDocsMarkdown []byte

const docsPageHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>patter API</title>
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.5; }
code, pre { background: #f4f4f4; padding: 0.1rem 0.3rem; border-radius: 3px; }
pre { padding: 0.75rem; overflow-x: auto; }
</style>
</head>
<body>
`

const docsPageFooter = `</body>
</html>
`

// handleDocs renders the embedded API documentation.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	buf.WriteString(docsPageHeader)
	if err := goldmark.Convert(apiDocsMarkdown, &buf); err != nil {
		s.logger.Error("failed to convert docs markdown", "error", err)
		http.Error(w, "Failed to render documentation", http.StatusInternalServerError)
		return
	}
	buf.WriteString(docsPageFooter)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
