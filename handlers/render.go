// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-elect/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	// "12 minutes from now"
	"until": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return humanize.Time(*t)
	},
	"comma": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"percent": func(part, total int) string {
		if total <= 0 {
			return "0"
		}
		return strconv.FormatFloat(float64(part)*100/float64(total), 'f', 1, 64)
	},
	"inputName": positionField,
}

// Pages rendered by the handlers; each is parsed together with base.html.
var pages = parsePages("index.html", "vote.html", "thank_you.html", "dashboard.html", "admin.html")

func parsePages(names ...string) map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html"))

	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(templateFS, "templates/"+name))
	}
	return out
}

// render executes a page into a buffer first so that a template error still
// produces a clean 500.
func render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := pages[page]
	if !ok {
		slog.Error("unknown page", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("failed to render page",
			"request_id", middleware.RequestID(r.Context()),
			"page", page,
			"error", err,
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
