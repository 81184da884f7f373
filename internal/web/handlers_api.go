package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/projview/internal/core"
)

type labelEntry struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// handleAPILabels returns dropdown entries matching ?q=, or all of them.
func (s *Server) handleAPILabels(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	q := r.URL.Query().Get("q")
	limit := 0
	if q != "" {
		limit = parseIntParam(r, "limit", s.cfg.Search.Limit)
	}
	out := []labelEntry{}
	for _, pos := range sess.SearchLabels(q, limit) {
		out = append(out, labelEntry{Label: sess.Labels.List[pos], ID: sess.Labels.IDs[pos]})
	}
	writeJSON(w, out)
}

// tableJSON is a table with display-text cells.
type tableJSON struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func toTableJSON(t core.Table) tableJSON {
	cols := t.Columns
	if cols == nil {
		cols = []string{}
	}
	return tableJSON{Columns: cols, Rows: t.Strings()}
}

type projectJSON struct {
	ID                 string    `json:"id"`
	Fields             tableJSON `json:"fields"`
	Objective          *string   `json:"objective,omitempty"`
	NoMatches          *string   `json:"no_matches,omitempty"`
	SimilarByTitle     tableJSON `json:"similar_by_title"`
	SimilarByObjective tableJSON `json:"similar_by_objective"`
}

// handleAPIProject returns the view of one project.
func (s *Server) handleAPIProject(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	view, err := sess.Project(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	out := projectJSON{
		ID:                 view.ID,
		Fields:             toTableJSON(view.KV),
		SimilarByTitle:     toTableJSON(view.SimilarByTitle),
		SimilarByObjective: toTableJSON(view.SimilarByObjective),
	}
	if view.HasObjective {
		out.Objective = &view.Objective
	}
	if view.HasNoMatches {
		out.NoMatches = &view.NoMatches
	}
	writeJSON(w, out)
}

type columnsJSON struct {
	Columns        []core.ColumnInfo `json:"columns"`
	DefaultFilters []string          `json:"default_filters"`
	Shallow        bool              `json:"shallow"`
}

// handleAPIColumns returns the classification of every flat column.
func (s *Server) handleAPIColumns(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defaults := sess.Columns.DefaultFilterColumns(s.cfg.View.FilterMaxDistinct, s.cfg.View.FilterMaxColumns)
	if defaults == nil {
		defaults = []string{}
	}
	writeJSON(w, columnsJSON{
		Columns:        sess.Columns.Columns,
		DefaultFilters: defaults,
		Shallow:        sess.Table.Shallow,
	})
}

// sourceStatus is the JSON form of a source report.
type sourceStatus struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func sourceStatuses(reports []core.SourceReport) []sourceStatus {
	out := make([]sourceStatus, 0, len(reports))
	for _, rep := range reports {
		st := sourceStatus{Name: rep.Name, Records: rep.Records}
		if rep.Err != nil {
			msg := core.MapError(rep.Err)
			st.Error, st.Code = msg.Message, msg.Code
		}
		out = append(out, st)
	}
	return out
}

// handleAPISources returns the per-source load reports of the session.
func (s *Server) handleAPISources(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, map[string]any{
		"loaded_at": sess.LoadedAt.UTC().Format(time.RFC3339),
		"records":   len(sess.Records()),
		"sources":   sourceStatuses(sess.Collection.Reports),
	})
}

// handleAPILoads returns the most recent audited loads, newest first.
func (s *Server) handleAPILoads(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.Audit().RecentLoads(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []core.LoadEvent{}
	}
	writeJSON(w, events)
}

// handleAPIStatus reports load concurrency and session counts.
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"loads":    s.service.Limiter().Status(),
		"sessions": s.service.Sessions().Len(),
	})
}
