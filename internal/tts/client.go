// Package tts invokes the external Chatterbox speech engine over HTTP and
// packages generation requests for it. The engine itself (model loading,
// tokenization, GPU/CPU dispatch) lives in a separate process; this package
// only marshals parameters and audio back and forth.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Static errors.
var (
	// ErrEmptyAudio indicates the engine answered OK with no audio bytes.
	ErrEmptyAudio = errors.New("received empty audio data")
	// ErrUnexpectedContentType indicates a non-WAV success response.
	ErrUnexpectedContentType = errors.New("unexpected content type")
)

// HTTPClient talks to the standalone Chatterbox HTTP engine.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// EngineRequest is the JSON payload for a generation request. The parameter
// fields mirror the engine's own generate() signature.
type EngineRequest struct {
	// Text is the input to speak. Must be non-empty.
	Text string `json:"text"`

	// AudioPromptPath optionally names an engine-readable audio file used
	// to clone a voice. Empty means the engine's default voice.
	AudioPromptPath string `json:"audio_prompt_path,omitempty"`

	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	MinP              float64 `json:"min_p"`
	TopP              float64 `json:"top_p"`
	Exaggeration      float64 `json:"exaggeration"`
	CfgWeight         float64 `json:"cfg_weight"`
}

// EngineErrorResponse is the engine's structured JSON error body.
type EngineErrorResponse struct {
	// Detail contains a human-readable error description.
	Detail string `json:"detail"`

	// ErrorCode provides a machine-readable error classification.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates a client for the engine at baseURL (protocol and
// port included, e.g. "http://localhost:8000"). The timeout applies to every
// request, including generation, which can take many seconds.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewEngineRequest builds a generation payload from text, an optional audio
// prompt path, and a parameter set.
func NewEngineRequest(text, audioPromptPath string, params persona.Params) EngineRequest {
	return EngineRequest{
		Text:              text,
		AudioPromptPath:   audioPromptPath,
		Temperature:       params.Temperature,
		RepetitionPenalty: params.RepetitionPenalty,
		MinP:              params.MinP,
		TopP:              params.TopP,
		Exaggeration:      params.Exaggeration,
		CfgWeight:         params.CfgWeight,
	}
}

// GenerateSpeech sends a generation request and returns the WAV bytes the
// engine produced. Errors from the engine are returned as-is for the caller
// to classify; no retry happens here, since sampling makes generation
// non-idempotent.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req EngineRequest) ([]byte, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiGenerateSpeech

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to engine at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(
			"%w: expected %s, got %s",
			ErrUnexpectedContentType,
			contentTypeWAV,
			contentType,
		)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the engine is up. The studio runs this once at
// startup: without a live engine no generation can proceed, so an unhealthy
// engine is fatal there.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for engine at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error from the engine, falling
// back to the raw body so diagnostics are never lost.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	var errorResp EngineErrorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf("engine error (%s): %s (code: %s)",
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"engine returned non-OK status: %s, body: %s",
		resp.Status,
		string(body),
	)
}
