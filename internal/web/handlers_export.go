package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/logging"
)

// exportTableKind is the explorer's filtered table; the other kinds are the
// tables of one project view.
const exportTableKind = "table"

var errMissingProjectID = errors.New("missing project id")

// handleExport downloads a table as CSV or XLSX.
//
//	/export/table?filter[col]=v&date_col=&start=&end=&limit=
//	/export/{main|similar_by_title|similar_by_objective}?id=
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := core.ParseExportFormat(q.Get("format"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}

	sess, err := s.sessionFor(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var (
		table    core.Table
		filename string
	)
	kind := chi.URLParam(r, "kind")
	if kind == exportTableKind {
		spec, err := parseFilterSpec(q)
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		filtered, err := sess.Filter(spec)
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		table = filtered.Head(rowLimit(r, s.cfg.View.DefaultRows, s.cfg.View.MaxRows))
		filename = core.FilteredExportName + "." + string(format)
	} else {
		id := q.Get("id")
		if id == "" {
			s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, errMissingProjectID), http.StatusBadRequest)
			return
		}
		view, err := sess.Project(id)
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		var ok bool
		if table, ok = view.Table(core.NestedKind(kind)); !ok {
			http.NotFound(w, r)
			return
		}
		filename = core.ExportFileName(id, core.NestedKind(kind), format)
	}

	// Buffer so a failed export still gets a proper error response.
	var buf bytes.Buffer
	if err := core.Export(&buf, table, format); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "export write failed", "file", filename, "error", err)
		return
	}
	logging.FromContext(r.Context()).InfoContext(r.Context(), "export served",
		"file", filename,
		"rows", table.Len(),
		"format", format,
	)
}

// handlePresetDownload returns the explorer's current filters as a YAML
// preset usable with the command-line exporter.
func (s *Server) handlePresetDownload(w http.ResponseWriter, r *http.Request) {
	spec, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	preset := spec.Preset()
	preset.Limit = parseIntParam(r, "limit", 0)

	out, err := yaml.Marshal(preset)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="filters.yaml"`)
	_, _ = w.Write(out)
}
