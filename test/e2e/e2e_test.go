//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulaworks/corpagent/internal/domain"
)

const articlesDoc = `ARTICLES OF ASSOCIATION

INTERPRETATION

1. These Articles of Association govern the company.

JURISDICTION

2. These Articles are governed by the laws of the Abu Dhabi Global Market
and any dispute shall be submitted to the ADGM Courts.

REGISTERED OFFICE

3. The registered office of the company shall be situated in the Abu Dhabi
Global Market.

SIGNATURES

4. Signed by Jane Smith, Director, on 1 March 2026.`

const memorandumDoc = `MEMORANDUM OF ASSOCIATION

SUBSCRIBERS

1. The subscribers wish to form a company in the Abu Dhabi Global Market.

SIGNATURES

2. Signed by Jane Smith, Director.`

type analysisResponse struct {
	BatchID   string                 `json:"batch_id"`
	Report    *domain.AnalysisReport `json:"report"`
	Annotated []struct {
		Filename  string `json:"filename"`
		Type      string `json:"type"`
		Annotated string `json:"annotated"`
	} `json:"annotated_documents"`
}

func TestE2E_HealthAndAuth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health is public", func(t *testing.T) {
		_, status, err := env.Get("/health", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("analysis requires token", func(t *testing.T) {
		_, status, err := env.Post("/v1/analysis", map[string]interface{}{}, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		_, status, err := env.Get("/v1/knowledge/sources", "not-the-token")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestE2E_KnowledgeReindexAndPersistence(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, status, err := env.Post("/v1/knowledge/reindex", nil, testAPIToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, "reindex failed: %s", resp.Error)

	listResp, status, err := env.Get("/v1/knowledge/sources", testAPIToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	var sources []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		SourceType string `json:"source_type"`
		Chunks     int    `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(listResp.Data, &sources))
	require.Len(t, sources, 2)
	for _, s := range sources {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Title)
		assert.Greater(t, s.Chunks, 0)
	}

	// The snapshot also lands in Postgres for restore on daemon start.
	persisted, err := env.Store.LoadSources(env.Ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	require.NotEmpty(t, persisted[0].Chunks)
	assert.Len(t, persisted[0].Chunks[0].Embedding, 1536)
}

func TestE2E_AnalysisBatch(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, status, err := env.Post("/v1/knowledge/reindex", nil, testAPIToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	body := map[string]interface{}{
		"documents": []map[string]string{
			{"filename": "articles.txt", "content": articlesDoc},
			{"filename": "memorandum.txt", "content": memorandumDoc},
		},
	}
	resp, status, err := env.Post("/v1/analysis", body, testAPIToken)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, "analysis failed: %s", resp.Error)

	var result analysisResponse
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.NotNil(t, result.Report)

	assert.Equal(t, domain.ProcessIncorporation, result.Report.Process)
	assert.Equal(t, 2, result.Report.DocumentsUploaded)
	assert.Equal(t, 2, result.Report.DocumentsAnalyzed)
	assert.NotEmpty(t, result.Report.MissingDocuments)
	assert.Contains(t, result.Report.MissingDocuments, "UBO Declaration Form")
	assert.Greater(t, result.Report.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, result.Report.ConfidenceScore, 1.0)

	require.Len(t, result.Annotated, 2)
	assert.Equal(t, "articles.txt", result.Annotated[0].Filename)
	assert.NotEmpty(t, result.Annotated[0].Annotated)

	// Artifacts were archived to object storage.
	reportJSON, err := env.S3Client.Get(env.Ctx, "batches/"+result.BatchID+"/report.json")
	require.NoError(t, err)
	var archived domain.AnalysisReport
	require.NoError(t, json.Unmarshal(reportJSON, &archived))
	assert.Equal(t, result.Report.Process, archived.Process)

	annotated, err := env.S3Client.Get(env.Ctx, "batches/"+result.BatchID+"/annotated/articles.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, annotated)
}

func TestE2E_EmptyBatchRejected(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, status, err := env.Post("/v1/analysis", map[string]interface{}{"documents": []map[string]string{}}, testAPIToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, resp.Error)
}
