package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eldercare-survey/internal/domain"
)

func (h *SurveyHandler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts, err := h.svc.ListInstitutions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if insts == nil {
		insts = []domain.Institution{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": insts,
		"total": len(insts),
	}))
}

func (h *SurveyHandler) PutInstitution(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate[InstitutionRequest](w, r)
	if !ok {
		return
	}
	inst := domain.Institution{
		Code:     chi.URLParam(r, "code"),
		Name:     req.Name,
		Region:   req.Region,
		Address:  req.Address,
		IsHub:    req.IsHub,
		Expected: true,
	}
	if req.Expected != nil {
		inst.Expected = *req.Expected
	}

	saved, err := h.svc.UpsertInstitution(r.Context(), inst)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

// ImportInstitutions multipart upload, form field "file", of the roster xlsx.
func (h *SurveyHandler) ImportInstitutions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid multipart form: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("missing file field"))
		return
	}
	defer file.Close()

	imp, err := h.svc.ImportDirectory(r.Context(), file)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(imp.Unresolved) > 0 {
		h.logger.Warn("Roster rows with unresolved region",
			zap.String("filename", header.Filename),
			zap.Int("unresolved", len(imp.Unresolved)),
		)
	}
	writeJSON(w, http.StatusOK, Ok(imp))
}
