package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
	"github.com/joseph-ayodele/cte-extractor/internal/profiles"
)

// Report selects what /api/process answers with.
type Report string

const (
	ReportRecords Report = "records"
	ReportDebug   Report = "debug"
	ReportErrors  Report = "errors"
	ReportJSON    Report = "json"
)

func parseReport(v string) (Report, error) {
	switch r := Report(strings.ToLower(strings.TrimSpace(v))); r {
	case "":
		return ReportRecords, nil
	case ReportRecords, ReportDebug, ReportErrors, ReportJSON:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown report %q", common.ErrInvalidInput, v)
	}
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fields": s.proc.Table().Names()})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.log)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, report, err := s.parseRequest(r)
	if err != nil {
		jsonError(w, err.Error(), common.HTTPStatus(err))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	docs := make([]core.Source, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			jsonError(w, "failed to open upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			jsonError(w, "failed to read upload", http.StatusInternalServerError)
			return
		}
		docs = append(docs, core.NewSource(sanitizeFilename(h.Filename), data))
	}

	res, err := s.proc.ProcessBatch(r.Context(), docs, req)
	if err != nil {
		log.Warn("api.process.failed", "err", err)
		jsonError(w, err.Error(), common.HTTPStatus(err))
		return
	}

	w.Header().Set("X-Run-ID", res.RunID.String())
	w.Header().Set("X-Documents", strconv.Itoa(len(res.Outcomes)))
	w.Header().Set("X-Failed", strconv.Itoa(len(res.Errors)))
	s.writeReport(w, res, report)
}

func (s *Server) parseRequest(r *http.Request) (core.Request, Report, error) {
	form := r.MultipartForm.Value
	value := func(key string) string {
		if v := form[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	flag := func(key string) (bool, error) {
		v := strings.TrimSpace(value(key))
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean", common.ErrInvalidInput, key)
		}
		return b, nil
	}

	var (
		req core.Request
		err error
	)
	for _, raw := range form["fields"] {
		for _, name := range strings.Split(raw, ",") {
			if name = profiles.NormalizeName(name); name != "" {
				req.Fields = append(req.Fields, name)
			}
		}
	}
	if req.Debug, err = flag("debug"); err != nil {
		return req, "", err
	}
	if req.Filters.ExcludeIssuerRegion, err = flag("exclude_issuer_region"); err != nil {
		return req, "", err
	}
	if req.Filters.OriginRegionOnly, err = flag("origin_region_only"); err != nil {
		return req, "", err
	}
	if req.ComputeTax, err = flag("compute_tax"); err != nil {
		return req, "", err
	}

	req.Filters.Region = s.cfg.Region
	if v := value("region"); strings.TrimSpace(v) != "" {
		if err := common.NewValidator().Field("region", v, common.RegionCode).Err(); err != nil {
			return req, "", err
		}
		req.Filters.Region, _ = constants.Canonicalize(v)
	}

	report, err := parseReport(value("report"))
	if err != nil {
		return req, "", err
	}
	if report == ReportDebug {
		req.Debug = true
	}
	req.Origin = "http"
	if id := common.RequestIDFromContext(r.Context()); id != "" {
		req.Origin += ":" + id
	}
	return req, report, nil
}

type processResponse struct {
	RunID     string               `json:"run_id"`
	Fields    []string             `json:"fields"`
	Records   *entity.Table        `json:"records"`
	Debug     *entity.DebugTable   `json:"debug,omitempty"`
	Outcomes  []outcomeTrace       `json:"outcomes,omitempty"`
	Errors    []entity.ErrorRecord `json:"errors"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}

// outcomeTrace is the per-document debug view: how each field was resolved, or
// the general error of a document that failed.
type outcomeTrace struct {
	Name  string       `json:"name"`
	Trace entity.Trace `json:"trace"`
	Error string       `json:"error,omitempty"`
}

func outcomeTraces(outcomes []entity.Outcome) []outcomeTrace {
	out := make([]outcomeTrace, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, outcomeTrace{Name: o.Name, Trace: o.Trace, Error: o.Err})
	}
	return out
}

func (s *Server) writeReport(w http.ResponseWriter, res *core.BatchResult, report Report) {
	var (
		data     []byte
		filename string
		err      error
	)
	switch report {
	case ReportJSON:
		resp := processResponse{
			RunID:     res.RunID.String(),
			Fields:    res.Fields,
			Records:   res.Table,
			Debug:     res.Debug,
			Errors:    res.Errors,
			Succeeded: res.Succeeded(),
			Failed:    len(res.Errors),
		}
		if res.Debug != nil {
			resp.Outcomes = outcomeTraces(res.Outcomes)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	case ReportDebug:
		data, err = s.exporter.DebugXLSX(res.Debug)
		filename = constants.DebugFileName
	case ReportErrors:
		data, err = s.exporter.ErrorsXLSX(res.Errors)
		filename = constants.ErrorsFileName
	default:
		data, err = s.exporter.RecordsXLSX(res.Table)
		filename = constants.RecordsFileName
	}
	if err != nil {
		s.log.Error("api.export.failed", "report", report, "err", err)
		jsonError(w, "failed to build workbook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", constants.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Browsers on Windows may send the full client path.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		name = constants.UnknownDocumentName
	}
	return name
}
