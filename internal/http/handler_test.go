package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"eldercare-survey/internal/careburden"
	"eldercare-survey/internal/domain"
	"eldercare-survey/internal/ingest"
	"eldercare-survey/internal/repository"
	"eldercare-survey/internal/service"
)

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := service.NewSurveyService(service.Deps{
		Submissions: repository.NewMemorySubmissionsRepo(),
		Institutions: repository.NewMemoryInstitutionsRepo(
			domain.Institution{Code: "C01", Name: "창원노인복지관", Region: "창원시", IsHub: true, Expected: true},
			domain.Institution{Code: "J01", Name: "진주복지관", Region: "진주시", Expected: true},
		),
		Population: careburden.StaticSource{"창원시": 12000},
		Logger:     zap.NewNop(),
	})
	return NewRouter(NewSurveyHandler(svc, zap.NewNop()), nil, zap.NewNop())
}

func monthPath(month, rest string) string {
	return apiPrefix + "/months/" + url.PathEscape(month) + rest
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthz(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ResultSuccess, env.Code)
}

func TestValidateDraft_ReturnsViolations(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodPost, apiPrefix+"/submissions/validate", map[string]any{
		domain.FieldInstitutionCode: "C01",
		domain.FieldGeneralMale:     "1",
		domain.FieldNewEnrolleeMale: 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Valid      bool              `json:"valid"`
		Violations map[string]string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Violations, domain.FieldNewEnrolleeMale)
}

func TestValidateDraft_RejectsEmptyBody(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodPost, apiPrefix+"/submissions/validate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ResultError, env.Code)
}

func TestCreateSubmission_Flow(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, monthPath("2025_3월", "/submissions"), map[string]any{
		domain.FieldInstitutionCode:    "C01",
		domain.FieldCareProviderFemale: 2,
		domain.FieldGeneralFemale:      "1,200",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created service.SubmitResult
	require.NoError(t, json.Unmarshal(env.Result, &created))
	require.NotEmpty(t, created.ID)

	rec, env = do(t, h, http.MethodGet, apiPrefix+"/months", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var months service.MonthsResult
	require.NoError(t, json.Unmarshal(env.Result, &months))
	assert.Equal(t, "2025_3월", months.Default)

	rec, env = do(t, h, http.MethodGet, monthPath("2025_3월", "/submissions/"+created.ID+"/validation"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Result), `"valid":true`)

	rec, env = do(t, h, http.MethodGet, monthPath("latest", "/rollups"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rollup domain.AggregateResult
	require.NoError(t, json.Unmarshal(env.Result, &rollup))
	assert.Equal(t, 1200, rollup.Province.Sums.General.Female)
	assert.Equal(t, 50, rollup.SubmissionRate)

	rec, env = do(t, h, http.MethodGet, monthPath("2025_3월", "/care-burden")+"?regions=창원", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []domain.CareBurdenStatus
	require.NoError(t, json.Unmarshal(env.Result, &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, 600.0, statuses[0].Ratio)
	assert.True(t, statuses[0].Overloaded)
	assert.Equal(t, 100.0, statuses[0].Severity)
}

func TestCreateSubmission_ViolationsAre422(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodPost, monthPath("2025_3월", "/submissions"), map[string]any{
		domain.FieldInstitutionCode:           "J01",
		domain.FieldIsHub:                     "N",
		domain.FieldShortTermSocialWorkerMale: 1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, string(env.Result), domain.FieldShortTermSocialWorkerMale)
}

func TestCreateSubmission_MissingCodeIs400(t *testing.T) {
	rec, _ := do(t, newTestRouter(t), http.MethodPost, monthPath("2025_3월", "/submissions"), map[string]any{
		domain.FieldGeneralMale: 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRollup_UnknownMonth(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodGet, monthPath("latest", "/rollups"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, monthPath("2025-03", "/rollups"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionValidation_NotFound(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodGet, monthPath("2025_3월", "/submissions/nope/validation"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ResultError, env.Code)
}

func TestExportRollup_ServesWorkbook(t *testing.T) {
	h := newTestRouter(t)
	rec, _ := do(t, h, http.MethodPost, monthPath("2025_3월", "/submissions"), map[string]any{
		domain.FieldInstitutionCode: "J01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, h, http.MethodGet, monthPath("2025_3월", "/rollups/export"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "시군별집계 2025_3월")
}

func TestAlertBriefing_ValidatesBody(t *testing.T) {
	h := newTestRouter(t)
	rec, _ := do(t, h, http.MethodPost, monthPath("2025_3월", "/submissions"), map[string]any{
		domain.FieldInstitutionCode: "C01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, h, http.MethodPost, monthPath("2025_3월", "/alerts/briefing"), map[string]any{
		"alert_type": "heatwave",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "Regions")

	rec, env = do(t, h, http.MethodPost, monthPath("2025_3월", "/alerts/briefing"), BriefingRequest{
		AlertType: "heatwave",
		Regions:   []string{"창원시"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res service.BriefingResult
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Len(t, res.Statuses, 1)
	assert.Empty(t, res.Overloaded)
}

func TestPutInstitution(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodPut, apiPrefix+"/institutions/M01", map[string]any{
		"institution_name": "밀양노인복지관",
		"address":          "경상남도 밀양시 삼문동 12",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var inst domain.Institution
	require.NoError(t, json.Unmarshal(env.Result, &inst))
	assert.Equal(t, "M01", inst.Code)
	assert.Equal(t, "밀양시", inst.Region)
	assert.True(t, inst.Expected)

	rec, _ = do(t, h, http.MethodPut, apiPrefix+"/institutions/M02", map[string]any{
		"institution_name": "어딘가",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPut, apiPrefix+"/institutions/M03", map[string]any{
		"institution_name": "부산복지관",
		"region":           "부산광역시",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, h, http.MethodGet, apiPrefix+"/institutions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Result), `"total":3`)
}

func rosterWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{domain.FieldInstitutionCode, domain.FieldInstitutionName, ingest.ColumnAddress, domain.FieldIsHub},
		{"Y01", "양산복지관", "경남 양산시 물금읍", "Y"},
		{"Z01", "알수없음", "서울 종로구", "N"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImportInstitutions(t *testing.T) {
	h := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = part.Write(rosterWorkbook(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, apiPrefix+"/institutions/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var imp ingest.DirectoryImport
	require.NoError(t, json.Unmarshal(env.Result, &imp))
	require.Len(t, imp.Institutions, 1)
	assert.Equal(t, "양산시", imp.Institutions[0].Region)
	assert.True(t, imp.Institutions[0].IsHub)
	require.Len(t, imp.Unresolved, 1)
	assert.Equal(t, 3, imp.Unresolved[0].Row)
}

func TestImportInstitutions_MissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, apiPrefix+"/institutions/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	rec, env := do(t, newTestRouter(t), http.MethodGet, apiPrefix+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ResultError, env.Code)
}
