package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eldercare-survey/internal/domain"
	"eldercare-survey/internal/ingest"
	"eldercare-survey/internal/repository"
	"eldercare-survey/internal/service"
	"eldercare-survey/internal/validation"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes  = 10 << 20
)

// SurveyService operations the handlers need; implemented by
// *service.SurveyService.
type SurveyService interface {
	Months(ctx context.Context) (service.MonthsResult, error)
	ValidateDraft(sub domain.Submission) validation.Result
	Submit(ctx context.Context, month string, sub domain.Submission) (service.SubmitResult, error)
	ListSubmissions(ctx context.Context, month string) ([]domain.Submission, error)
	SubmissionValidation(ctx context.Context, month, id string) (validation.Result, error)
	Rollup(ctx context.Context, month string) (domain.AggregateResult, error)
	ExportRollup(ctx context.Context, month string) ([]byte, string, error)
	CareBurden(ctx context.Context, month string, regions []string) ([]domain.CareBurdenStatus, error)
	AlertBriefing(ctx context.Context, month, alertType string, regions []string) (service.BriefingResult, error)
	ListInstitutions(ctx context.Context) ([]domain.Institution, error)
	UpsertInstitution(ctx context.Context, inst domain.Institution) (domain.Institution, error)
	ImportDirectory(ctx context.Context, r io.Reader) (ingest.DirectoryImport, error)
}

var _ SurveyService = (*service.SurveyService)(nil)

type SurveyHandler struct {
	svc    SurveyService
	logger *zap.Logger
}

func NewSurveyHandler(svc SurveyService, logger *zap.Logger) *SurveyHandler {
	return &SurveyHandler{svc: svc, logger: logger}
}

// BriefingRequest body of POST .../alerts/briefing.
type BriefingRequest struct {
	AlertType string   `json:"alert_type" validate:"required,max=64"`
	Regions   []string `json:"regions" validate:"required,min=1,dive,required"`
}

// InstitutionRequest body of PUT /institutions/{code}. Either region or
// address must resolve to a known region.
type InstitutionRequest struct {
	Name     string `json:"institution_name" validate:"required,max=200"`
	Region   string `json:"region" validate:"required_without=Address"`
	Address  string `json:"address"`
	IsHub    bool   `json:"is_hub"`
	Expected *bool  `json:"expected"`
}

// monthParam path month; "latest" selects the most recent month.
func monthParam(r *http.Request) string {
	m, err := url.PathUnescape(chi.URLParam(r, "month"))
	if err != nil {
		m = chi.URLParam(r, "month")
	}
	if m == "latest" {
		return ""
	}
	return m
}

// writeError maps service errors onto status codes.
func (h *SurveyHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownMonth),
		errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	default:
		h.logger.Error("Survey request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

func (h *SurveyHandler) ListMonths(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Months(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ValidateDraft checks a raw record without storing it. Violations are a
// normal result here, so the status is 200 either way.
func (h *SurveyHandler) ValidateDraft(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := readBodyJSON(r, maxJSONBody, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body: "+err.Error()))
		return
	}
	res := h.svc.ValidateDraft(ingest.ParseSubmission(raw))
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"valid":      res.Valid(),
		"violations": res,
	}))
}

func (h *SurveyHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := readBodyJSON(r, maxJSONBody, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body: "+err.Error()))
		return
	}
	sub := ingest.ParseSubmission(raw)

	res, err := h.svc.Submit(r.Context(), monthParam(r), sub)
	if errors.Is(err, service.ErrValidationFailed) {
		writeJSON(w, http.StatusUnprocessableEntity, FailWith(err.Error(), res))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(res))
}

func (h *SurveyHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListSubmissions(r.Context(), monthParam(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": subs,
		"total": len(subs),
	}))
}

func (h *SurveyHandler) GetSubmissionValidation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.svc.SubmissionValidation(r.Context(), monthParam(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"id":         id,
		"valid":      res.Valid(),
		"violations": res,
	}))
}

func (h *SurveyHandler) GetRollup(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Rollup(r.Context(), monthParam(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *SurveyHandler) ExportRollup(w http.ResponseWriter, r *http.Request) {
	data, month, err := h.svc.ExportRollup(r.Context(), monthParam(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	filename := fmt.Sprintf("rollup_%s.xlsx", month)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetCareBurden ?regions=창원시,진주시 limits the output; repeated keys work too.
func (h *SurveyHandler) GetCareBurden(w http.ResponseWriter, r *http.Request) {
	regions := splitList(r.URL.Query()["regions"])
	statuses, err := h.svc.CareBurden(r.Context(), monthParam(r), regions)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if statuses == nil {
		statuses = []domain.CareBurdenStatus{}
	}
	writeJSON(w, http.StatusOK, Ok(statuses))
}

func (h *SurveyHandler) PostAlertBriefing(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate[BriefingRequest](w, r)
	if !ok {
		return
	}
	res, err := h.svc.AlertBriefing(r.Context(), monthParam(r), req.AlertType, req.Regions)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
