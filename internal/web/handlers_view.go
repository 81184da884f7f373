package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/logging"
	"github.com/JonMunkholm/projview/internal/web/templates"
)

// dashboardState carries what a handler adds to the project page.
type dashboardState struct {
	alert   *core.UserMessage
	attempt []core.SourceReport
	status  int
}

// handleDashboard renders the project page. The selected project comes from
// ?id=, else ?label=, else the first entry of the (searched) dropdown.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, dashboardState{})
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, st dashboardState) {
	data := templates.DashboardData{
		Alert:        st.alert,
		Attempt:      st.attempt,
		FetchEnabled: s.cfg.Fetch.Enabled,
	}
	status := st.status
	if status == 0 {
		status = http.StatusOK
	}

	if sess, err := s.sessionFor(r); err == nil {
		selStatus := s.fillProjectData(r, sess, &data)
		if status == http.StatusOK {
			status = selStatus
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Dashboard(data).Render(r.Context(), w); err != nil {
		s.logRenderError(r, err)
	}
}

// fillProjectData adds the dropdown and the selected project to data and
// returns the status for the selection.
func (s *Server) fillProjectData(r *http.Request, sess *core.Session, data *templates.DashboardData) int {
	q := r.URL.Query()
	data.Loaded = true
	data.LoadedAt = sess.LoadedAt
	data.Records = len(sess.Records())
	data.Reports = sess.Collection.Reports
	data.Query = q.Get("q")

	limit := 0
	if data.Query != "" {
		limit = s.cfg.Search.Limit
	}
	positions := sess.SearchLabels(data.Query, limit)

	id, explicit := q.Get("id"), true
	var err error
	if id == "" {
		if label := q.Get("label"); label != "" {
			var ok bool
			if id, ok = sess.Labels.ID(label); !ok {
				err = &core.NotFoundError{ID: label}
			}
		} else if len(positions) > 0 {
			id, explicit = sess.Labels.IDs[positions[0]], false
		}
	}

	status := http.StatusOK
	if id != "" || err != nil {
		var view core.ProjectView
		if err == nil {
			view, err = sess.Project(id)
		}
		switch {
		case err == nil:
			data.View = &view
		case explicit && data.Alert == nil:
			msg := core.MapError(err)
			data.Alert = &msg
			status = statusFor(err)
		}
	}

	selected := -1
	for _, pos := range positions {
		opt := templates.LabelOption{Label: sess.Labels.List[pos], ID: sess.Labels.IDs[pos]}
		if selected < 0 && data.View != nil && opt.ID == data.View.ID {
			opt.Selected = true
			selected = pos
		}
		data.Options = append(data.Options, opt)
	}
	// Keep the shown project in the dropdown even when the search hides it.
	if data.View != nil && selected < 0 {
		for pos, pid := range sess.Labels.IDs {
			if pid == data.View.ID {
				opt := templates.LabelOption{Label: sess.Labels.List[pos], ID: pid, Selected: true}
				data.Options = append([]templates.LabelOption{opt}, data.Options...)
				break
			}
		}
	}
	return status
}

// handleExplore renders the filtered flat table.
func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	data := templates.ExploreData{
		Limit:   rowLimit(r, s.cfg.View.DefaultRows, s.cfg.View.MaxRows),
		MaxRows: s.cfg.View.MaxRows,
	}
	status := http.StatusOK

	sess, err := s.sessionFor(r)
	if err != nil && !errors.Is(err, core.ErrNoSession) {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if sess != nil {
		data.Loaded = true
		status = s.fillExploreData(r, sess, &data)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Explore(data).Render(r.Context(), w); err != nil {
		s.logRenderError(r, err)
	}
}

func (s *Server) fillExploreData(r *http.Request, sess *core.Session, data *templates.ExploreData) int {
	status := http.StatusOK
	data.Shallow = sess.Table.Shallow

	spec, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		msg := core.MapError(err)
		data.Alert, status = &msg, http.StatusBadRequest
		spec = core.FilterSpec{}
	}

	filtered, err := sess.Filter(spec)
	if err != nil {
		msg := core.MapError(err)
		data.Alert, status = &msg, http.StatusBadRequest
		spec = core.FilterSpec{}
		filtered = sess.Table
	}

	data.Total = filtered.Len()
	data.Table = filtered.Head(data.Limit)
	data.DateColumn = spec.DateColumn
	if !spec.Start.IsZero() {
		data.Start = spec.Start.Format(core.DateLayout)
	}
	if !spec.End.IsZero() {
		data.End = spec.End.Format(core.DateLayout)
	}
	data.ExportParams = filterParams(spec, data.Limit)
	data.DateColumns = sess.Columns.OfKind(core.KindTemporal)
	for _, info := range sess.Columns.Excluded() {
		data.Excluded = append(data.Excluded, info.Name)
	}

	for _, name := range filterColumns(sess.Columns, spec, s.cfg.View.FilterMaxDistinct, s.cfg.View.FilterMaxColumns) {
		info, _ := sess.Columns.Column(name)
		fc := templates.FilterControl{Column: name, Options: info.Candidates, Selected: map[string]bool{}}
		for _, v := range spec.Categorical[name] {
			fc.Selected[v] = true
		}
		data.Filters = append(data.Filters, fc)
	}
	return status
}

// filterColumns is the default filter columns plus any other categorical
// column the request already filters on.
func filterColumns(cls core.Classification, spec core.FilterSpec, maxDistinct, limit int) []string {
	cols := cls.DefaultFilterColumns(maxDistinct, limit)
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	for _, c := range cls.OfKind(core.KindCategorical) {
		if !seen[c] && len(spec.Categorical[c]) > 0 {
			cols = append(cols, c)
		}
	}
	return cols
}

func (s *Server) logRenderError(r *http.Request, err error) {
	logging.FromContext(r.Context()).ErrorContext(r.Context(), "render failed", "path", r.URL.Path, "error", err)
}
