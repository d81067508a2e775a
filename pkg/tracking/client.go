package tracking

// Client speaks the MLflow 2.0 REST API directly.  Nothing in the task path
// waits on it: every call site treats a tracking failure as a log line, not
// an error the caller sees.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-bridge/pkg/errors"
)

type Client struct {
	baseURL    string
	experiment string
	httpClient *http.Client
	artifacts  *ArtifactStore
}

/*
New returns a tracking client, or nil when no tracking URI is configured.
Callers treat a nil client as tracking disabled.
*/
func New(trackingURI, experiment string, artifacts *ArtifactStore) *Client {
	if trackingURI == "" {
		return nil
	}

	return &Client{
		baseURL:    strings.TrimRight(trackingURI, "/"),
		experiment: experiment,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		artifacts:  artifacts,
	}
}

/*
StartRun creates a run under the configured experiment, creating the
experiment on first use.  Transient tracking-server hiccups are retried.
*/
func (c *Client) StartRun(ctx context.Context, name string) (*Run, error) {
	var experimentID string

	err := errors.RetryWithBackoff(&errors.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}, func() error {
		var err error
		experimentID, err = c.experimentID(ctx)
		return err
	})

	if err != nil {
		return nil, err
	}

	var created struct {
		Run struct {
			Info struct {
				RunID       string `json:"run_id"`
				ArtifactURI string `json:"artifact_uri"`
			} `json:"info"`
		} `json:"run"`
	}

	err = c.post(ctx, "/api/2.0/mlflow/runs/create", map[string]any{
		"experiment_id": experimentID,
		"run_name":      name,
		"start_time":    time.Now().UnixMilli(),
	}, &created)

	if err != nil {
		return nil, err
	}

	return &Run{
		ID:          created.Run.Info.RunID,
		ArtifactURI: created.Run.Info.ArtifactURI,
		client:      c,
	}, nil
}

/*
experimentID resolves the configured experiment name, creating it when the
tracking server has never seen it.
*/
func (c *Client) experimentID(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf(
		"%s/api/2.0/mlflow/experiments/get-by-name?experiment_name=%s",
		c.baseURL, url.QueryEscape(c.experiment),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var found struct {
			Experiment struct {
				ExperimentID string `json:"experiment_id"`
			} `json:"experiment"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
			return "", err
		}

		return found.Experiment.ExperimentID, nil
	}

	if resp.StatusCode != http.StatusNotFound {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("experiment lookup returned %d: %s", resp.StatusCode, string(payload))
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}

	err = c.post(ctx, "/api/2.0/mlflow/experiments/create", map[string]any{
		"name": c.experiment,
	}, &created)

	if err != nil {
		return "", err
	}

	return created.ExperimentID, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mlflow %s returned %d: %s", path, resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Warn("failed to decode mlflow response", "path", path, "error", err)
	}

	return nil
}
