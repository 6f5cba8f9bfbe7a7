package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/regulaworks/corpagent/internal/analyze"
	"github.com/regulaworks/corpagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnalysisRunner struct {
	mock.Mock
}

func (m *MockAnalysisRunner) Run(ctx context.Context, inputs []analyze.InputDocument) (*analyze.Result, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analyze.Result), args.Error(1)
}

func analysisBody(t *testing.T, req AnalysisRequest) *strings.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return strings.NewReader(string(data))
}

func TestAnalysisHandler_Create(t *testing.T) {
	runner := new(MockAnalysisRunner)
	result := &analyze.Result{
		BatchID: "batch-1",
		Report: &domain.AnalysisReport{
			Process:           domain.Process("company_incorporation"),
			DocumentsUploaded: 1,
			DocumentsAnalyzed: 1,
			ConfidenceScore:   0.84,
			GeneratedAt:       time.Now().UTC(),
		},
		Documents: []analyze.DocumentResult{{
			Document:  &domain.Document{ID: "doc-1", Filename: "articles_of_association.txt"},
			Type:      "Articles of Association",
			Annotated: "articles_of_association.txt\n====",
		}},
	}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(inputs []analyze.InputDocument) bool {
		return len(inputs) == 1 && inputs[0].Filename == "articles_of_association.txt"
	})).Return(result, nil)

	h := NewAnalysisHandler(runner)
	body := analysisBody(t, AnalysisRequest{Documents: []AnalysisDocumentRequest{
		{Filename: "articles_of_association.txt", Content: "ARTICLES OF ASSOCIATION\n..."},
	}})
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis", body)
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data AnalysisResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "batch-1", resp.Data.BatchID)
	assert.Equal(t, domain.Process("company_incorporation"), resp.Data.Report.Process)
	require.Len(t, resp.Data.Annotated, 1)
	assert.Equal(t, "Articles of Association", resp.Data.Annotated[0].Type)
	runner.AssertExpectations(t)
}

func TestAnalysisHandler_CreateNoDocuments(t *testing.T) {
	h := NewAnalysisHandler(new(MockAnalysisRunner))
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis",
		analysisBody(t, AnalysisRequest{}))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "documents are required")
}

func TestAnalysisHandler_CreateMissingFilename(t *testing.T) {
	h := NewAnalysisHandler(new(MockAnalysisRunner))
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis",
		analysisBody(t, AnalysisRequest{Documents: []AnalysisDocumentRequest{{Content: "text"}}}))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "filename")
}

func TestAnalysisHandler_CreateInvalidJSON(t *testing.T) {
	h := NewAnalysisHandler(new(MockAnalysisRunner))
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisHandler_CreateEmptyBatch(t *testing.T) {
	runner := new(MockAnalysisRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyBatch)

	h := NewAnalysisHandler(runner)
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis",
		analysisBody(t, AnalysisRequest{Documents: []AnalysisDocumentRequest{
			{Filename: "broken.docx", Content: ""},
		}}))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "normalized")
	runner.AssertExpectations(t)
}
