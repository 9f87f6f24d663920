package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

const multipartMemory = 32 << 20

// uploadError is a client-side upload problem with its HTTP status.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func badRequest(format string, args ...any) *uploadError {
	return &uploadError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

type upload struct {
	body io.Reader
	name string
	opt  analysis.Options
	done func()
}

// readUpload accepts a multipart "file" field or a raw request body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, uploadReadError(err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, badRequest("missing upload: form field %q is required", "file")
			}
			return nil, badRequest("read upload: %v", err)
		}
		opt, err := s.optionsFrom(r.FormValue)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &upload{body: f, name: hdr.Filename, opt: opt, done: func() {
			f.Close()
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}}, nil
	}

	q := r.URL.Query()
	opt, err := s.optionsFrom(q.Get)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, uploadReadError(err)
	}
	name := q.Get("filename")
	if name == "" {
		name = "upload"
	}
	return &upload{body: bytes.NewReader(b), name: name, opt: opt, done: func() {}}, nil
}

func uploadReadError(err error) *uploadError {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return &uploadError{status: http.StatusRequestEntityTooLarge, msg: "upload exceeds size limit"}
	}
	return badRequest("read upload: %v", err)
}

// optionsFrom overlays request parameters onto the analyzer's defaults.
func (s *Server) optionsFrom(get func(string) string) (analysis.Options, error) {
	opt := s.analyzer.Options()
	if v := get("id_column"); v != "" {
		opt.IDColumn = v
	}
	if v := get("encoding"); v != "" {
		opt.Load.Encoding = v
	}
	if v := get("delimiter"); v != "" {
		d, err := dataset.ParseDelimiter(v)
		if err != nil {
			return opt, badRequest("%v", err)
		}
		opt.Load.Delimiter = d
	}
	for key, dst := range map[string]*int{"min_rows": &opt.MinRows, "max_rows": &opt.MaxRows} {
		if v := get(key); v != "" {
			n, err := cast.ToIntE(v)
			if err != nil || n < 0 {
				return opt, badRequest("%s must be a non-negative integer", key)
			}
			*dst = n
		}
	}
	if opt.MinRows > opt.MaxRows {
		return opt, badRequest("min_rows (%d) exceeds max_rows (%d)", opt.MinRows, opt.MaxRows)
	}
	return opt, nil
}

func (s *Server) analyzeUpload(r *http.Request, up *upload) analysis.Result {
	res := s.analyzer.WithOptions(up.opt).Analyze(up.body, up.name)
	s.sink.Send(r.Context(), up.name, res)
	return res
}

type analyzeResponse struct {
	ID         string `json:"id"`
	Summary    any    `json:"summary"`
	Validation string `json:"validation"`
	ChartPNG   string `json:"chart_png,omitempty"`
}

func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var ue *uploadError
		if errors.As(err, &ue) {
			status = ue.status
		}
		render.Status(r, status)
		render.JSON(w, r, errorResponse{Error: err.Error()})
		return
	}
	defer up.done()

	res := s.analyzeUpload(r, up)
	resp := analyzeResponse{
		ID:         RequestIDFrom(r.Context()),
		Summary:    res.Summary(),
		Validation: res.ValidationText(),
	}
	if res.OK() {
		resp.ID = res.Report.ID
	}
	if png := res.Chart(); png != nil {
		resp.ChartPNG = base64.StdEncoding.EncodeToString(png)
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, indexPage(""))
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var ue *uploadError
		if errors.As(err, &ue) {
			status = ue.status
		}
		renderHTML(w, status, indexPage(err.Error()))
		return
	}
	defer up.done()

	res := s.analyzeUpload(r, up)
	summary, err := jsonIndent(res.Summary())
	if err != nil {
		summary = err.Error()
	}
	renderHTML(w, http.StatusOK, resultPage(up.name, summary, res.ValidationText(), res.Chart()))
}
