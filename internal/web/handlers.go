package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/trutrend/internal/core"
	"github.com/JonMunkholm/trutrend/internal/service"
	"github.com/JonMunkholm/trutrend/internal/web/templates"
)

var (
	errUnknownDevice = errors.New("unknown device type")
	errBadForm       = errors.New("invalid csv upload form")
)

const (
	// multipartMemory is the part of a multipart upload kept in memory before
	// spilling to temporary files.
	multipartMemory = 32 << 20

	// formOverhead is allowed on top of the file size for multipart framing.
	formOverhead = 1 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"layouts": core.LayoutCount(),
		"limiter": s.service.LimiterStatus(),
	})
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Layouts())
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": s.service.RuleNames()})
}

// handleUpload accepts one export, either as the "file" part of a multipart
// form or as the raw request body. The optional device hint comes from the
// "device" form field or query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Upload.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+formOverhead)
	}

	data, name, err := readUpload(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if limit := s.cfg.Upload.MaxFileSize; limit > 0 && int64(len(data)) > limit {
		s.respondError(w, r, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", service.ErrFileTooLarge, len(data), limit))
		return
	}

	hint, err := parseHint(r.FormValue("device"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	a, err := s.service.Analyze(r.Context(), service.Request{
		PatientID: chi.URLParam(r, "patientID"),
		FileName:  name,
		Hint:      hint,
		Data:      data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		s.renderAnalysis(w, r, http.StatusCreated, a)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Latest(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		s.renderAnalysis(w, r, http.StatusOK, a)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// FindingsResponse is the body of the findings endpoint.
type FindingsResponse struct {
	AnalysisID string         `json:"analysis_id"`
	PatientID  string         `json:"patient_id"`
	Findings   []core.Finding `json:"findings"`
}

func (s *Server) handleGetFindings(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Latest(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	findings := a.Findings
	if findings == nil {
		findings = []core.Finding{}
	}
	writeJSON(w, http.StatusOK, FindingsResponse{
		AnalysisID: a.ID,
		PatientID:  a.PatientID,
		Findings:   findings,
	})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context(), chi.URLParam(r, "patientID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renderAnalysis(w http.ResponseWriter, r *http.Request, status int, a *core.Analysis) {
	s.renderComponent(w, r, status, templates.AnalysisPanel(a))
}

// renderComponent buffers the fragment so a failed render can still report
// its own status.
func (s *Server) renderComponent(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// readUpload returns the export bytes and the client's file name, if any.
func readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", err
			}
			return nil, "", fmt.Errorf("%w: %v", errBadForm, err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", errNoFile
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, header.Filename, errEmptyFile
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", errNoFile
	}
	return data, r.URL.Query().Get("filename"), nil
}

// parseHint maps the device field. Empty and "auto" mean detection.
func parseHint(raw string) (core.DeviceType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "auto") {
		return core.DeviceUnknown, nil
	}
	d := core.ParseDeviceType(raw)
	if d == core.DeviceUnknown {
		return "", fmt.Errorf("%w %q", errUnknownDevice, raw)
	}
	return d, nil
}
