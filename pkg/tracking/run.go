package tracking

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

/*
Run is one tracked exchange.  Every method is best-effort: a failure is
logged and swallowed so the request path never blocks on the tracking
backend.
*/
type Run struct {
	ID          string
	ArtifactURI string
	client      *Client
}

func (run *Run) SetTag(ctx context.Context, key, value string) {
	err := run.client.post(ctx, "/api/2.0/mlflow/runs/set-tag", map[string]any{
		"run_id": run.ID,
		"key":    key,
		"value":  value,
	}, nil)

	if err != nil {
		log.Warn("failed to set run tag", "run", run.ID, "key", key, "error", err)
	}
}

func (run *Run) LogParam(ctx context.Context, key, value string) {
	err := run.client.post(ctx, "/api/2.0/mlflow/runs/log-parameter", map[string]any{
		"run_id": run.ID,
		"key":    key,
		"value":  value,
	}, nil)

	if err != nil {
		log.Warn("failed to log run param", "run", run.ID, "key", key, "error", err)
	}
}

func (run *Run) LogMetric(ctx context.Context, key string, value float64) {
	err := run.client.post(ctx, "/api/2.0/mlflow/runs/log-metric", map[string]any{
		"run_id":    run.ID,
		"key":       key,
		"value":     value,
		"timestamp": time.Now().UnixMilli(),
		"step":      0,
	}, nil)

	if err != nil {
		log.Warn("failed to log run metric", "run", run.ID, "key", key, "error", err)
	}
}

/*
LogText stores a text artifact under the run's artifact location.  A run
without a reachable artifact store simply skips the write.
*/
func (run *Run) LogText(ctx context.Context, name, text string) {
	if run.client.artifacts == nil {
		return
	}

	if err := run.client.artifacts.PutText(ctx, run.ArtifactURI, name, text); err != nil {
		log.Warn("failed to store run artifact", "run", run.ID, "name", name, "error", err)
	}
}

/*
End marks the run finished.
*/
func (run *Run) End(ctx context.Context) {
	err := run.client.post(ctx, "/api/2.0/mlflow/runs/update", map[string]any{
		"run_id":   run.ID,
		"status":   "FINISHED",
		"end_time": time.Now().UnixMilli(),
	}, nil)

	if err != nil {
		log.Warn("failed to end run", "run", run.ID, "error", err)
	}
}
