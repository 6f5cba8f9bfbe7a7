//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/regulaworks/corpagent/internal/analyze"
	"github.com/regulaworks/corpagent/internal/annotate"
	"github.com/regulaworks/corpagent/internal/api/handlers"
	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/knowledge"
	"github.com/regulaworks/corpagent/internal/repository"
	"github.com/regulaworks/corpagent/internal/rules"
	"github.com/regulaworks/corpagent/internal/server"
	"github.com/regulaworks/corpagent/internal/storage"
	"github.com/regulaworks/corpagent/internal/testutil"
)

const testAPIToken = "e2e-secret-token"

// hashEmbedder produces deterministic 1536-dimension vectors without an
// external backend. Similar texts get similar vectors, which is all the
// retrieval checks need here.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	for i, b := range []byte(text) {
		vec[i%1536] += float32(b%32) / 32
	}
	return vec, nil
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Store        *repository.KnowledgeStore
	S3Client     *storage.S3Client
	KnowledgeDir string
	ServerURL    string
	serverCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "corpagent-artifacts",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	knowledgeDir := t.TempDir()
	seedKnowledgeDir(t, knowledgeDir)

	store := repository.NewKnowledgeStore(pool)
	index := knowledge.NewIndex(hashEmbedder{})
	manager := knowledge.NewManager(knowledgeDir, index, store)

	compliance := config.DefaultCompliance()
	engine, err := rules.NewEngine(compliance, index)
	if err != nil {
		t.Fatalf("failed to build rule engine: %v", err)
	}
	pipeline := analyze.New(compliance, engine)

	runner := &archivingRunner{
		pipeline:  pipeline,
		artifacts: storage.NewArtifactStore(s3Client),
	}

	router := server.NewRouter(server.RouterConfig{
		APIToken:         testAPIToken,
		AnalysisHandler:  handlers.NewAnalysisHandler(runner),
		KnowledgeHandler: handlers.NewKnowledgeHandler(manager),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Store:        store,
		S3Client:     s3Client,
		KnowledgeDir: knowledgeDir,
		ServerURL:    srv.URL,
		serverCloser: srv.Close,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// archivingRunner mirrors the daemon's wiring: run the pipeline, then
// persist artifacts to the object store.
type archivingRunner struct {
	pipeline  *analyze.Pipeline
	artifacts *storage.ArtifactStore
}

func (r *archivingRunner) Run(ctx context.Context, inputs []analyze.InputDocument) (*analyze.Result, error) {
	result, err := r.pipeline.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}
	annotated := make(map[string]string, len(result.Documents))
	for _, d := range result.Documents {
		annotated[d.Document.Filename] = d.Annotated
	}
	summary := annotate.RenderSummary(result.Report)
	if _, err := r.artifacts.SaveBatch(ctx, result.BatchID, result.Report, summary, annotated); err != nil {
		return nil, err
	}
	return result, nil
}

func seedKnowledgeDir(t *testing.T, dir string) {
	sources := map[string]string{
		"companies-regulations.txt": `ADGM Companies Regulations 2020

Article 6: The jurisdiction for disputes arising under these regulations is
the ADGM Courts.

Article 29: Every company shall have a registered office situated in the
Abu Dhabi Global Market.`,
		"incorporation-guidance.md": `# Incorporation Guidance Note

An application for incorporation must include the articles of association,
the memorandum of association, the incorporation application form, the UBO
declaration form and the register of members and directors.`,
	}
	for name, content := range sources {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to seed knowledge dir: %v", err)
		}
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.serverCloser != nil {
		e.serverCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse is the standard response envelope
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e *E2ETestEnv) do(method, path string, body interface{}, token string) (*APIResponse, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var envelope APIResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("invalid response body %q: %w", raw, err)
		}
	}
	return &envelope, resp.StatusCode, nil
}

// Post issues an authenticated POST against the API
func (e *E2ETestEnv) Post(path string, body interface{}, token string) (*APIResponse, int, error) {
	return e.do(http.MethodPost, path, body, token)
}

// Get issues an authenticated GET against the API
func (e *E2ETestEnv) Get(path string, token string) (*APIResponse, int, error) {
	return e.do(http.MethodGet, path, nil, token)
}
