package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// JobStatus is the observed state of an asynchronous media job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further polling can change the status.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// vendorStatus maps the wire statuses of the media backend onto JobStatus.
func vendorStatus(raw string) JobStatus {
	switch raw {
	case "starting", "queued":
		return StatusQueued
	case "processing", "running":
		return StatusRunning
	case "succeeded":
		return StatusSucceeded
	case "canceled", "cancelled":
		return StatusCanceled
	default:
		return StatusFailed
	}
}

// Sleeper waits between poll attempts. The default sleeps on the wall
// clock; tests substitute an instant one.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps for real, honoring ctx cancellation.
type ClockSleeper struct{}

func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MediaConfig parameterizes the asynchronous media backend.
type MediaConfig struct {
	BaseURL      string
	APIToken     string
	ModelVersion string
	Width        int
	Height       int
	Steps        int
	Guidance     float64
	PollInterval time.Duration
	MaxAttempts  int
}

// MediaClient drives the create→poll contract of the media backend: one
// create call yields a job id, then the status is polled on a fixed
// interval up to a bounded attempt count.
type MediaClient struct {
	cfg            MediaConfig
	httpClient     *http.Client
	sleeper        Sleeper
	negativePrompt string
}

// NewMediaClient builds a client for the media backend. negativePrompt is
// attached to every create call.
func NewMediaClient(cfg MediaConfig, negativePrompt string) *MediaClient {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}
	return &MediaClient{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		sleeper:        ClockSleeper{},
		negativePrompt: negativePrompt,
	}
}

// WithSleeper replaces the poll sleeper, used by tests.
func (c *MediaClient) WithSleeper(s Sleeper) *MediaClient {
	c.sleeper = s
	return c
}

type mediaCreateRequest struct {
	Version string          `json:"version"`
	Input   mediaInputBlock `json:"input"`
}

type mediaInputBlock struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Steps          int     `json:"num_inference_steps,omitempty"`
	Guidance       float64 `json:"guidance_scale,omitempty"`
}

type mediaJobResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Generate creates a media job and polls it to a terminal state. Exceeding
// the attempt budget abandons the job client-side and returns a timeout
// error; the remote job is not canceled.
func (c *MediaClient) Generate(ctx context.Context, req Request) (string, error) {
	job, err := c.create(ctx, req.Prompt)
	if err != nil {
		return "", err
	}

	status := vendorStatus(job.Status)
	log.Printf("[media] job %s created, status=%s", job.ID, status)

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if status.Terminal() {
			return c.finish(job)
		}

		if err := c.sleeper.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return "", genErr(ErrRemoteFailure, "poll interrupted", err)
		}

		job, err = c.poll(ctx, job.ID)
		if err != nil {
			return "", err
		}
		status = vendorStatus(job.Status)
	}

	if status.Terminal() {
		return c.finish(job)
	}

	log.Printf("[media] job %s abandoned after %d attempts, last status=%s", job.ID, c.cfg.MaxAttempts, status)
	return "", genErr(ErrTimeout,
		fmt.Sprintf("media job %s not terminal after %d attempts", job.ID, c.cfg.MaxAttempts), nil)
}

// finish converts a terminal job into a URI or a failure.
func (c *MediaClient) finish(job *mediaJobResponse) (string, error) {
	switch vendorStatus(job.Status) {
	case StatusSucceeded:
		uri := firstOutputURI(job.Output)
		if uri == "" {
			return "", genErr(ErrMissingOutput,
				fmt.Sprintf("media job %s succeeded without output", job.ID), nil)
		}
		return uri, nil
	case StatusCanceled:
		return "", genErr(ErrRemoteFailure,
			fmt.Sprintf("media job %s canceled remotely", job.ID), nil)
	default:
		detail := job.Error
		if detail == "" {
			detail = "media job failed"
		}
		return "", genErr(ErrRemoteFailure, fmt.Sprintf("media job %s: %s", job.ID, detail), nil)
	}
}

func (c *MediaClient) create(ctx context.Context, prompt string) (*mediaJobResponse, error) {
	payload := mediaCreateRequest{
		Version: c.cfg.ModelVersion,
		Input: mediaInputBlock{
			Prompt:         prompt,
			NegativePrompt: c.negativePrompt,
			Width:          c.cfg.Width,
			Height:         c.cfg.Height,
			Steps:          c.cfg.Steps,
			Guidance:       c.cfg.Guidance,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, genErr(ErrRemoteFailure, "encode create request", err)
	}

	return c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/predictions", bytes.NewReader(body))
}

func (c *MediaClient) poll(ctx context.Context, jobID string) (*mediaJobResponse, error) {
	return c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/predictions/"+jobID, nil)
}

func (c *MediaClient) do(ctx context.Context, method, url string, body io.Reader) (*mediaJobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, genErr(ErrRemoteFailure, "build media request", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, genErr(ErrRemoteFailure, "media request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, genErr(ErrRemoteFailure, "read media response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, genErr(ErrRemoteFailure,
			fmt.Sprintf("media backend returned %d: %s", resp.StatusCode, truncate(raw, 200)), nil)
	}

	var job mediaJobResponse
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, genErr(ErrRemoteFailure, "decode media response", err)
	}
	if job.ID == "" {
		return nil, genErr(ErrMissingOutput, "media response missing job id", nil)
	}
	return &job, nil
}

// firstOutputURI extracts a usable URI from the job output, which the
// backend returns either as a bare string or an array of strings.
func firstOutputURI(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
