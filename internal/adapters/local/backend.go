package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
)

// Health is the payload served by the inference server health endpoint
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// UnmarshalJSON accepts both model_loaded and modelLoaded
func (h *Health) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status           string `json:"status"`
		ModelLoaded      *bool  `json:"model_loaded"`
		ModelLoadedCamel *bool  `json:"modelLoaded"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Status = raw.Status
	switch {
	case raw.ModelLoaded != nil:
		h.ModelLoaded = *raw.ModelLoaded
	case raw.ModelLoadedCamel != nil:
		h.ModelLoaded = *raw.ModelLoadedCamel
	}
	return nil
}

// Backend manages the lifecycle of a self-hosted inference server
type Backend struct {
	cfg        config.LocalConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewBackend creates a backend handle. Nothing is started until Start.
func NewBackend(cfg config.LocalConfig, logger *zap.Logger) *Backend {
	return &Backend{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// Start launches the server process when one is configured and not yet
// running, then waits for the model to be loaded. Every call probes the
// server, so a model unloaded since the last call is caught here.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.StartCommand != "" && b.cmd == nil {
		if h, err := b.probe(ctx); err == nil && h.ModelLoaded {
			return nil
		}
		if err := b.launch(); err != nil {
			return err
		}
	}

	return b.waitReady(ctx)
}

// Stop terminates a process started by this backend
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	b.logger.Info("Stopping self-hosted inference server", zap.Int("pid", b.cmd.Process.Pid))
	err := b.cmd.Process.Kill()
	_ = b.cmd.Wait()
	b.cmd = nil
	if err != nil {
		return fmt.Errorf("failed to stop inference server: %w", err)
	}
	return nil
}

func (b *Backend) launch() error {
	fields := strings.Fields(b.cfg.StartCommand)
	if len(fields) == 0 {
		return fmt.Errorf("empty inference server start command")
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch inference server: %w", err)
	}
	b.cmd = cmd
	b.logger.Info("Launched self-hosted inference server",
		zap.String("command", b.cfg.StartCommand),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (b *Backend) waitReady(ctx context.Context) error {
	retries := max(b.cfg.HealthRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		h, err := b.probe(ctx)
		switch {
		case err != nil:
			lastErr = err
		case h.ModelLoaded:
			b.logger.Info("Self-hosted model loaded",
				zap.String("status", h.Status),
				zap.Int("attempts", attempt))
			return nil
		default:
			lastErr = fmt.Errorf("model not loaded (status %q)", h.Status)
		}

		b.logger.Debug("Inference server not ready",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retries),
			zap.Error(lastErr))

		if attempt == retries {
			break
		}
		timer := time.NewTimer(b.cfg.HealthInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("inference server not ready after %d attempts: %w", retries, lastErr)
}

func (b *Backend) probe(ctx context.Context) (Health, error) {
	url := strings.TrimRight(b.cfg.BaseURL, "/") + b.cfg.HealthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Health{}, fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Health{}, fmt.Errorf("health probe returned %s", resp.Status)
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("failed to decode health response: %w", err)
	}
	return h, nil
}
