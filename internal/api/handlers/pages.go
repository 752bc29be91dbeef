// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tonyjom/lineforge/internal/session"
)

//go:embed templates
var templateFS embed.FS

var tmplFuncs = template.FuncMap{
	"statusLabel": func(s session.Status) string { return s.String() },
	"statusClass": func(s session.Status) string {
		label, _, _ := strings.Cut(s.String(), ":")
		return label
	},
}

var (
	listTmpl   = template.Must(template.New("base.html").Funcs(tmplFuncs).ParseFS(templateFS, "templates/base.html", "templates/list.html"))
	detailTmpl = template.Must(template.New("base.html").Funcs(tmplFuncs).ParseFS(templateFS, "templates/base.html", "templates/detail.html"))
	newTmpl    = template.Must(template.New("base.html").Funcs(tmplFuncs).ParseFS(templateFS, "templates/base.html", "templates/new.html"))
)

// PageHandler renders the session list/detail/new-session HTML views. It
// reads the registry directly rather than round-tripping through the JSON
// API, the way the teacher's page handlers read their managers directly.
type PageHandler struct {
	registry     *session.Registry
	defaultTools []session.ToolKind
}

// NewPageHandler creates a page handler bound to the given registry.
func NewPageHandler(registry *session.Registry) *PageHandler {
	return &PageHandler{
		registry:     registry,
		defaultTools: []session.ToolKind{session.ToolClaude, session.ToolCodex},
	}
}

type listPageData struct {
	Sessions []session.Meta
}

// List renders GET /.
func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	data := listPageData{Sessions: h.registry.List()}
	if err := listTmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("pages: render list: %v", err)
	}
}

type detailPageData struct {
	Session session.Meta
}

// Detail renders GET /sessions/{id}.
func (h *PageHandler) Detail(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := h.registry.Resolve(idStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	meta, err := h.registry.Get(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data := detailPageData{Session: meta}
	if err := detailTmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("pages: render detail: %v", err)
	}
}

type newPageData struct {
	Tools []session.ToolKind
}

// New renders GET /new.
func (h *PageHandler) New(w http.ResponseWriter, r *http.Request) {
	data := newPageData{Tools: h.defaultTools}
	if err := newTmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("pages: render new: %v", err)
	}
}
