package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/projview/internal/core"
)

// errBadRequest marks malformed request parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// rowLimit returns the requested display row cap within [1, max].
func rowLimit(r *http.Request, def, max int) int {
	n := parseIntParam(r, "limit", def)
	if n > max {
		n = max
	}
	return n
}

// parseFilterSpec reads explorer filters from query parameters:
// filter[col]=v (repeatable), date_col, start and end (YYYY-MM-DD).
func parseFilterSpec(q url.Values) (core.FilterSpec, error) {
	var spec core.FilterSpec

	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if col == "" {
			continue
		}
		var selected []string
		for _, v := range values {
			if v != "" {
				selected = append(selected, v)
			}
		}
		if len(selected) == 0 {
			continue
		}
		if spec.Categorical == nil {
			spec.Categorical = make(map[string][]string)
		}
		spec.Categorical[col] = selected
	}

	spec.DateColumn = strings.TrimSpace(q.Get("date_col"))
	var err error
	if spec.Start, err = core.ParseDateBound(strings.TrimSpace(q.Get("start"))); err != nil {
		return core.FilterSpec{}, err
	}
	if spec.End, err = core.ParseDateBound(strings.TrimSpace(q.Get("end"))); err != nil {
		return core.FilterSpec{}, err
	}
	if !spec.Start.IsZero() && !spec.End.IsZero() && spec.End.Before(spec.Start) {
		return core.FilterSpec{}, badRequest("end date %s is before start date %s",
			spec.End.Format(core.DateLayout), spec.Start.Format(core.DateLayout))
	}
	return spec, nil
}

// filterParams is the inverse of parseFilterSpec plus the row limit; it feeds
// export links so downloads match the page.
func filterParams(spec core.FilterSpec, limit int) url.Values {
	q := url.Values{}
	cols := make([]string, 0, len(spec.Categorical))
	for c := range spec.Categorical {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		for _, v := range spec.Categorical[c] {
			q.Add("filter["+c+"]", v)
		}
	}
	if spec.DateColumn != "" {
		q.Set("date_col", spec.DateColumn)
	}
	if !spec.Start.IsZero() {
		q.Set("start", spec.Start.Format(core.DateLayout))
	}
	if !spec.End.IsZero() {
		q.Set("end", spec.End.Format(core.DateLayout))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// sessionFor returns the loaded session of the request's browser session.
func (s *Server) sessionFor(r *http.Request) (*core.Session, error) {
	return s.service.Session(core.GetSessionIDFromContext(r.Context()))
}
