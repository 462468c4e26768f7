// Package coderunner talks to the external code execution service. The
// runner is untrusted and may be slow, crash, or go away entirely;
// callers decide what a failed call means for them.
package coderunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/certiq/certiq-backend/internal/config"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/rs/zerolog"
)

// RunResult is the outcome of executing candidate code against one input.
// Exception is non-nil when the candidate's code crashed or was killed;
// that is a legitimate submission outcome, not a system error.
type RunResult struct {
	Stdout          string  `json:"stdout"`
	Stderr          string  `json:"stderr"`
	Exception       *string `json:"exception,omitempty"`
	ExecutionTimeMS int64   `json:"execution_time_ms"`
}

// Runner executes candidate source code with a given stdin.
type Runner interface {
	Run(ctx context.Context, language model.Language, code, stdin string) (*RunResult, error)
}

type runRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

// HTTPRunner calls the runner service over HTTP. Every call carries its
// own deadline so hanging candidate code cannot pin a request forever.
type HTTPRunner struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPRunner creates a runner client from config.
func NewHTTPRunner(cfg *config.Config, log zerolog.Logger) *HTTPRunner {
	return &HTTPRunner{
		baseURL: cfg.CodeRunnerURL,
		timeout: cfg.CodeRunnerTimeout,
		client:  &http.Client{},
		log:     log.With().Str("component", "code_runner").Logger(),
	}
}

// Run executes one (code, stdin) pair. A transport-level failure or a
// non-2xx response comes back as an error; whether that aborts anything
// is the caller's call.
func (r *HTTPRunner) Run(ctx context.Context, language model.Language, code, stdin string) (*RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(runRequest{
		Language: string(language),
		Code:     code,
		Stdin:    stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call code runner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.log.Warn().
			Int("status", resp.StatusCode).
			Str("language", string(language)).
			Msg("Code runner returned non-2xx")
		return nil, fmt.Errorf("code runner returned %d: %s", resp.StatusCode, raw)
	}

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	return &result, nil
}
