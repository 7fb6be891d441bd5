package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/banshee-data/equipment.report/internal/db"
	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/banshee-data/equipment.report/internal/httputil"
	"github.com/banshee-data/equipment.report/internal/monitoring"
	"github.com/banshee-data/equipment.report/internal/report"
	"github.com/banshee-data/equipment.report/internal/version"
)

const (
	uploadField = "file"
	// multipartOverhead allows for boundaries and headers on top of the
	// file itself.
	multipartOverhead = 1 << 20

	defaultListLimit = 20
	maxListLimit     = 100
)

type errorBody struct {
	Error          string   `json:"error"`
	Type           string   `json:"type,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// writeError maps pipeline and report errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := equipment.KindOf(err)
	body := errorBody{Error: err.Error(), Type: kind.String()}

	status := http.StatusInternalServerError
	switch kind {
	case equipment.KindUnsupportedFormat, equipment.KindEmptyInput,
		equipment.KindMissingColumns, equipment.KindNoValidData:
		status = http.StatusBadRequest
		body.MissingColumns = equipment.MissingOf(err)
	case equipment.KindDatasetNotFound:
		status = http.StatusNotFound
	case equipment.KindReportGenerationFailed:
		monitoring.Logf("report for %s failed: %v", r.URL.Path, err)
	default:
		monitoring.Logf("%s %s: %v", r.Method, r.URL.Path, err)
		body = errorBody{Error: "internal server error"}
	}
	httputil.WriteJSON(w, status, body)
}

type retentionResult struct {
	Kept   int    `json:"kept"`
	Pruned int    `json:"pruned"`
	Error  string `json:"error,omitempty"`
}

type uploadResponse struct {
	Dataset           *equipment.Dataset `json:"dataset"`
	DroppedIncomplete int                `json:"dropped_incomplete"`
	DroppedInvalid    int                `json:"dropped_invalid"`
	Retention         retentionResult    `json:"retention"`
}

func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.GetMaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		httputil.BadRequest(w, "expected a multipart/form-data upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		httputil.BadRequest(w, "no file provided")
		return
	}
	defer file.Close()

	if header.Size > limit {
		httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		httputil.InternalServerError(w, "failed to read upload")
		return
	}
	if int64(len(content)) > limit {
		httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
		return
	}

	res, err := s.ingester.Ingest(r.Context(), header.Filename, content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := uploadResponse{
		Dataset:           res.Dataset,
		DroppedIncomplete: res.DroppedIncomplete,
		DroppedInvalid:    res.DroppedInvalid,
		Retention:         retentionResult{Kept: s.ingester.Retention(), Pruned: res.Pruned},
	}
	if res.PruneErr != nil {
		out.Retention.Error = res.PruneErr.Error()
	}
	httputil.WriteJSON(w, http.StatusCreated, out)
}

// queryLimit parses ?limit=, clamped to [1, maxListLimit].
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

// listDatasets defaults to the retention count, which is everything the
// store holds once retention has run.
func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, s.ingester.Retention())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	datasets, err := s.store.ListDatasets(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if datasets == nil {
		datasets = []equipment.Dataset{}
	}
	httputil.WriteJSONOK(w, datasets)
}

type datasetResponse struct {
	*equipment.Dataset
	Recomputed *equipment.Summary `json:"recomputed_summary,omitempty"`
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, err := s.store.GetDataset(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := datasetResponse{Dataset: ds}
	if recompute, _ := strconv.ParseBool(r.URL.Query().Get("recompute")); recompute {
		summary, err := s.ingester.Recompute(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out.Recomputed = &summary
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDataset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetDataset(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.store.Records(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []equipment.Record{}
	}
	httputil.WriteJSONOK(w, records)
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	ds, err := s.store.GetDataset(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.store.Records(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	art, err := s.composer.Generate(ds, records, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry := &db.DatasetReport{
		DatasetID:  ds.ID,
		Format:     string(art.Format),
		SizeBytes:  len(art.Data),
		DurationMs: float64(art.Duration) / float64(time.Millisecond),
		Charts:     art.Charts,
	}
	if err := s.store.CreateDatasetReport(r.Context(), entry); err != nil {
		monitoring.Logf("failed to record report for dataset %s: %v", ds.ID, err)
	}

	httputil.WriteAttachment(w, art.Format.ContentType(), art.Format.Filename(ds.ID), art.Data)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, err := queryLimit(r, defaultListLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if _, err := s.store.GetDataset(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	reports, err := s.store.GetRecentReportsForDataset(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []db.DatasetReport{}
	}
	httputil.WriteJSONOK(w, reports)
}

func (s *Server) showCharts(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.GetDataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := report.ChartPage(ds, s.cfg.GetEchartsAssetsHost())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.cfg.Resolve())
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
