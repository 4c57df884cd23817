//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/knowbase/internal/api/handlers"
	"github.com/cloo-solutions/knowbase/internal/chunker"
	"github.com/cloo-solutions/knowbase/internal/repository"
	"github.com/cloo-solutions/knowbase/internal/server"
	"github.com/cloo-solutions/knowbase/internal/service"
	"github.com/cloo-solutions/knowbase/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Service      *service.KnowledgeService
	Initializer  *service.Initializer
	Packs        []service.ContentPack
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment: a pgvector container, an
// in-process HTTP server and a deterministic stand-in embedder, so no
// external embedding API is needed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	packs := writeContentPacks(t)

	collectionRepo := repository.NewCollectionRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)

	embedder := &wordHashEmbedder{dim: 1536}
	splitter := chunker.New(chunker.DefaultConfig())

	svc := service.NewKnowledgeService(collectionRepo, chunkRepo, embedder, splitter, service.Options{
		TopK: 5,
	})
	initializer := service.NewInitializer(svc, statusRepo, collectionRepo, chunkRepo, nil)

	cfg := server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(svc),
		StatusHandler:    handlers.NewStatusHandler(statusRepo, packs),
	}
	router := server.NewRouter(cfg)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		Pool:      pool,
		ServerURL: serverURL,
		ServerCloser: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		},
		Service:     svc,
		Initializer: initializer,
		Packs:       packs,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// writeContentPacks lays out a small rocketmq content pack on disk.
func writeContentPacks(t *testing.T) []service.ContentPack {
	root := t.TempDir()

	files := map[string]string{
		"rocketmq/troubleshooting/broker-startup.md": "# Broker fails to start\n\nCheck the broker logs for port conflicts and verify the namesrv address.",
		"rocketmq/configuration/tls-setup.md":        "# Enabling TLS\n\nSet tlsEnable to true in the broker configuration and install the certificates.",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create pack dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write pack file: %v", err)
		}
	}

	return []service.ContentPack{
		{Domain: "rocketmq", Version: "1", Dir: filepath.Join(root, "rocketmq")},
	}
}

// wordHashEmbedder maps each word to a fixed vector component, so texts
// sharing words land close together. Deterministic across runs.
type wordHashEmbedder struct {
	dim int
}

func (e *wordHashEmbedder) Dimension() int { return e.dim }

func (e *wordHashEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *wordHashEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *wordHashEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return v
	}
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[int(h.Sum32())%e.dim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("PUT", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
