package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mlflowStub records the calls a run makes against the tracking API.
type mlflowStub struct {
	mu               sync.Mutex
	server           *httptest.Server
	experimentExists bool
	created          bool
	tags             map[string]string
	metrics          map[string]float64
	params           map[string]string
	ended            bool
}

func newMLflowStub(experimentExists bool) *mlflowStub {
	stub := &mlflowStub{
		experimentExists: experimentExists,
		tags:             map[string]string{},
		metrics:          map[string]float64{},
		params:           map[string]string{},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()

		if !stub.experimentExists {
			http.Error(w, `{"error_code":"RESOURCE_DOES_NOT_EXIST"}`, http.StatusNotFound)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"experiment": map[string]any{"experiment_id": "7"},
		})
	})

	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.created = true
		stub.experimentExists = true
		stub.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{"experiment_id": "7"})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"run": map[string]any{
				"info": map[string]any{
					"run_id":       "run-123",
					"artifact_uri": "s3://mlflow/artifacts/run-123",
				},
			},
		})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/set-tag", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Key, Value string }
		json.NewDecoder(r.Body).Decode(&body)

		stub.mu.Lock()
		stub.tags[body.Key] = body.Value
		stub.mu.Unlock()

		w.Write([]byte("{}"))
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/log-metric", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key   string
			Value float64
		}
		json.NewDecoder(r.Body).Decode(&body)

		stub.mu.Lock()
		stub.metrics[body.Key] = body.Value
		stub.mu.Unlock()

		w.Write([]byte("{}"))
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/log-parameter", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Key, Value string }
		json.NewDecoder(r.Body).Decode(&body)

		stub.mu.Lock()
		stub.params[body.Key] = body.Value
		stub.mu.Unlock()

		w.Write([]byte("{}"))
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.ended = true
		stub.mu.Unlock()

		w.Write([]byte("{}"))
	})

	stub.server = httptest.NewServer(mux)
	return stub
}

func TestNewDisabledWithoutTrackingURI(t *testing.T) {
	assert.Nil(t, New("", "exp", nil))
	assert.NotNil(t, New("http://mlflow:5000", "exp", nil))
}

func TestStartRunWithExistingExperiment(t *testing.T) {
	stub := newMLflowStub(true)
	defer stub.server.Close()

	client := New(stub.server.URL, "bridge-tests", nil)
	run, err := client.StartRun(context.Background(), "kagent-chat-abcd1234")

	require.NoError(t, err)
	assert.Equal(t, "run-123", run.ID)
	assert.Equal(t, "s3://mlflow/artifacts/run-123", run.ArtifactURI)
	assert.False(t, stub.created)
}

func TestStartRunCreatesMissingExperiment(t *testing.T) {
	stub := newMLflowStub(false)
	defer stub.server.Close()

	client := New(stub.server.URL, "bridge-tests", nil)
	run, err := client.StartRun(context.Background(), "first-run")

	require.NoError(t, err)
	assert.Equal(t, "run-123", run.ID)
	assert.True(t, stub.created)
}

func TestRunLogging(t *testing.T) {
	stub := newMLflowStub(true)
	defer stub.server.Close()

	client := New(stub.server.URL, "bridge-tests", nil)
	run, err := client.StartRun(context.Background(), "logged-run")
	require.NoError(t, err)

	ctx := context.Background()
	run.SetTag(ctx, "component", "chat-completions")
	run.LogParam(ctx, "model", "test-model")
	run.LogMetric(ctx, "retrieval_seconds", 0.42)
	run.End(ctx)

	stub.mu.Lock()
	defer stub.mu.Unlock()

	assert.Equal(t, "chat-completions", stub.tags["component"])
	assert.Equal(t, "test-model", stub.params["model"])
	assert.InDelta(t, 0.42, stub.metrics["retrieval_seconds"], 1e-9)
	assert.True(t, stub.ended)
}

func TestLogTextWithoutArtifactStore(t *testing.T) {
	stub := newMLflowStub(true)
	defer stub.server.Close()

	client := New(stub.server.URL, "bridge-tests", nil)
	run, err := client.StartRun(context.Background(), "no-artifacts")
	require.NoError(t, err)

	// must be a no-op, not a panic
	run.LogText(context.Background(), "prompt.txt", "hello")
}

func TestStartRunUnreachableServer(t *testing.T) {
	client := New("http://127.0.0.1:1", "bridge-tests", nil)

	_, err := client.StartRun(context.Background(), "doomed")
	assert.Error(t, err)
}

func TestSplitArtifactURI(t *testing.T) {
	bucket, prefix, err := splitArtifactURI("s3://mlflow/artifacts/run-123")
	require.NoError(t, err)
	assert.Equal(t, "mlflow", bucket)
	assert.Equal(t, "artifacts/run-123", prefix)

	_, _, err = splitArtifactURI("file:///tmp/artifacts")
	assert.Error(t, err)
}
