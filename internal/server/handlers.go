package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/export"
	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/store"
	"github.com/sells-group/isq-cli/internal/upload"
	"github.com/sells-group/isq-cli/internal/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reconcileRequest struct {
	Specifications []model.SpecEntry      `json:"specifications"`
	Extraction     model.ExtractionResult `json:"extraction"`
}

type reconcileResponse struct {
	CommonSpecs []model.MatchedSpecPair `json:"common_specs"`
	BuyerISQs   []model.BuyerISQ        `json:"buyer_isqs"`
}

type compareRequest struct {
	Left  []model.SpecEntry `json:"left"`
	Right []model.SpecEntry `json:"right"`
}

type urlsRequest struct {
	URLs []string `json:"urls"`
}

type acceptedResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reconcile handles POST /api/reconcile: seller specs plus an extraction
// result in, common specs and buyer ISQs out. Nothing is stored.
func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !s.decode(w, r, &req) {
		return
	}
	common, buyers := s.svc.Match(req.Specifications, req.Extraction)
	writeJSON(w, http.StatusOK, reconcileResponse{CommonSpecs: common, BuyerISQs: buyers})
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Compare(req.Left, req.Right))
}

// createRun handles POST /api/runs. It takes either a JSON upload with an
// optional "urls" list, or a multipart form with a "file" field and
// repeated "urls" fields. The audit runs before the response is written.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	in, urls, err := s.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.svc.Audit(r.Context(), in, urls)
	if err != nil {
		if run != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error(), "run_id": run.ID})
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) readUpload(r *http.Request) (model.AuditInput, []string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			return model.AuditInput{}, nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return model.AuditInput{}, nil, errors.New("file field is required")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes))
		if err != nil {
			return model.AuditInput{}, nil, err
		}
		in, err := upload.ParseData(header.Filename, data)
		if err != nil {
			return model.AuditInput{}, nil, err
		}
		if name := strings.TrimSpace(r.FormValue("mcat_name")); name != "" {
			in.MCATName = name
		}
		return in, formURLs(r.MultipartForm.Value["urls"]), nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		return model.AuditInput{}, nil, err
	}
	in, err := upload.ParseJSON(data)
	if err != nil {
		return model.AuditInput{}, nil, err
	}
	var req urlsRequest
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		if err := json.Unmarshal(data, &req); err != nil {
			return model.AuditInput{}, nil, errors.New("urls must be a list of strings")
		}
	}
	return in, formURLs(req.URLs), nil
}

// formURLs splits each value on whitespace so a textarea of URLs works.
func formURLs(values []string) []string {
	var urls []string
	for _, v := range values {
		urls = append(urls, strings.Fields(v)...)
	}
	return urls
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:   model.RunStatus(q.Get("status")),
		MCATName: q.Get("mcat"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.svc.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// extractRun handles POST /api/runs/{runID}/extract. The stage runs in the
// background and the client polls the run, unless ?wait=true.
func (s *Server) extractRun(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	urls := formURLs(req.URLs)
	s.startStage(w, r, "extract", func(ctx context.Context, id string) (*model.Run, error) {
		return s.svc.Extract(ctx, id, urls)
	})
}

func (s *Server) rerunRun(w http.ResponseWriter, r *http.Request) {
	s.startStage(w, r, "rerun", s.svc.Rerun)
}

func (s *Server) startStage(w http.ResponseWriter, r *http.Request, stage string, fn func(ctx context.Context, id string) (*model.Run, error)) {
	id := chi.URLParam(r, "runID")
	if _, err := s.svc.GetRun(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		run, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	s.background(id, stage, func(ctx context.Context) error {
		_, err := fn(ctx, id)
		return err
	})
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", RunID: id})
}

func (s *Server) reconcileRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Reconcile(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	now := s.now()
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", attachment(export.FileName(run.Input.MCATName, "Complete", "xlsx", now)))
	if err := export.WriteWorkbookTo(w, export.FromRun(run, now)); err != nil {
		zap.L().Error("server: export xlsx", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *Server) exportJSON(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	now := s.now()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(export.FileName(run.Input.MCATName, "Complete", "json", now)))
	if err := export.WriteJSON(w, export.FromRun(run, now)); err != nil {
		zap.L().Error("server: export json", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNoSpecs), errors.Is(err, workflow.ErrNoURLs):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrNotExtracted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
