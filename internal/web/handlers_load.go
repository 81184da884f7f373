package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/projview/internal/core"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// handleLoadUpload loads the files of a multipart upload (field "files").
func (s *Server) handleLoadUpload(w http.ResponseWriter, r *http.Request) {
	maxFile := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(s.cfg.Upload.MaxFiles)+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, r, core.ErrNoInput, http.StatusBadRequest)
		return
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		s.respondError(w, r, badRequest("%d files uploaded, at most %d allowed", len(headers), s.cfg.Upload.MaxFiles), http.StatusBadRequest)
		return
	}

	inputs := make([]core.Input, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		// One byte over the limit is enough for the service to reject it.
		data, err := io.ReadAll(io.LimitReader(f, maxFile+1))
		f.Close()
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		inputs = append(inputs, core.Input{Name: fh.Filename, Data: data})
	}

	s.load(w, r, core.LoadRequest{Channel: core.ChannelUpload, Inputs: inputs})
}

// handleLoadPaste loads JSON pasted into the "text" field.
func (s *Server) handleLoadPaste(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+4096)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	text := r.PostFormValue("text")
	if strings.TrimSpace(text) == "" {
		s.respondError(w, r, core.ErrNoInput, http.StatusBadRequest)
		return
	}
	s.load(w, r, core.LoadRequest{
		Channel: core.ChannelPaste,
		Inputs:  []core.Input{{Name: "pasted text", Data: []byte(text)}},
	})
}

// handleLoadURL fetches one or more whitespace-separated URLs from "url".
func (s *Server) handleLoadURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	urls := strings.Fields(r.PostFormValue("url"))
	if len(urls) == 0 {
		s.respondError(w, r, core.ErrNoInput, http.StatusBadRequest)
		return
	}
	s.load(w, r, core.LoadRequest{Channel: core.ChannelURL, URLs: urls})
}

// handleClear forgets the session's data.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.service.Clear(core.GetSessionIDFromContext(r.Context()))
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loadResponse is the JSON answer to a load.
type loadResponse struct {
	Records int            `json:"records"`
	Columns int            `json:"columns"`
	Shallow bool           `json:"shallow"`
	Sources []sourceStatus `json:"sources"`
}

// load runs req for the request's session. Browsers are redirected to the
// project page; a failed load re-renders it with the reports of the attempt.
func (s *Server) load(w http.ResponseWriter, r *http.Request, req core.LoadRequest) {
	ctx := r.Context()
	req.SessionID = core.GetSessionIDFromContext(ctx)
	req.Append = r.PostFormValue("append") != ""

	res, err := s.service.Load(ctx, req)
	if err != nil {
		status := statusFor(err)
		if wantsJSON(r) || isHTMX(r) || !errors.Is(err, core.ErrEmptyCollection) {
			s.respondError(w, r, err, status)
			return
		}
		msg := core.MapError(err)
		s.renderDashboard(w, r, dashboardState{alert: &msg, attempt: res.Collection.Reports, status: status})
		return
	}

	if wantsJSON(r) {
		writeJSON(w, loadResponse{
			Records: len(res.Session.Records()),
			Columns: len(res.Session.Table.Columns),
			Shallow: res.Session.Table.Shallow,
			Sources: sourceStatuses(res.Collection.Reports),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
