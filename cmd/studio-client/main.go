// main package for studio-client, a small command-line client for a running
// chatterbox-studio instance. It drives the same JSON API the web page uses.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
	"github.com/chatterbox-studio/chatterbox-studio/internal/studioutils"
)

// Flag descriptions.
const (
	flagAddrDesc    = "Base URL of the running studio"
	flagTextDesc    = "Text to convert to speech"
	flagPersonaDesc = "Persona whose voice and parameters to use"
	flagOutputDesc  = "Output file path (.wav)"
	flagListDesc    = "List saved personas and exit"
	flagHealthDesc  = "Check studio health and exit"
)

// Flag names.
const (
	flagAddr    = "addr"
	flagText    = "text"
	flagPersona = "persona"
	flagOutput  = "output"
	flagList    = "list"
	flagHealth  = "health"
)

// Defaults.
const (
	defaultAddr       = "http://127.0.0.1:7860"
	defaultOutputFile = "output.wav"
	requestTimeout    = 10 * time.Minute
)

// Error messages.
const (
	errTextRequired = "--text is required unless --list or --health is given"
)

var errUnexpectedStatus = errors.New("unexpected status")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	addr    string
	text    string
	persona string
	output  string
	list    bool
	health  bool
}

type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	client := &apiClient{
		baseURL:    flags.addr,
		httpClient: &http.Client{Timeout: requestTimeout},
	}

	ctx := context.Background()

	switch {
	case flags.health:
		return handleHealthCheck(ctx, client)
	case flags.list:
		return handleListPersonas(ctx, client)
	default:
		return handleGenerate(ctx, client, flags)
	}
}

func parseFlags() appFlags {
	var flags appFlags
	flag.StringVar(&flags.addr, flagAddr, defaultAddr, flagAddrDesc)
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.persona, flagPersona, "", flagPersonaDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.BoolVar(&flags.list, flagList, false, flagListDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

func handleHealthCheck(ctx context.Context, client *apiClient) error {
	var body struct {
		Status string `json:"status"`
	}

	err := client.getJSON(ctx, "/healthz", &body)
	if err != nil {
		fmt.Printf("Studio is not healthy: %v\n", err)

		return err
	}

	fmt.Println("Studio is healthy")

	return nil
}

func handleListPersonas(ctx context.Context, client *apiClient) error {
	var body struct {
		Personas []string `json:"personas"`
	}

	err := client.getJSON(ctx, "/api/personas", &body)
	if err != nil {
		return err
	}

	if len(body.Personas) == 0 {
		fmt.Println("No personas saved")

		return nil
	}

	for _, name := range body.Personas {
		fmt.Println(name)
	}

	return nil
}

func handleGenerate(ctx context.Context, client *apiClient, flags appFlags) error {
	if flags.text == "" {
		flag.Usage()

		return errors.New(errTextRequired)
	}

	request := struct {
		Text           string         `json:"text"`
		ReferenceAudio string         `json:"reference_audio,omitempty"`
		Params         persona.Params `json:"params"`
	}{
		Text:   flags.text,
		Params: persona.DefaultParams(),
	}

	if flags.persona != "" {
		loaded, err := client.loadPersona(ctx, flags.persona)
		if err != nil {
			return err
		}

		request.ReferenceAudio = loaded.ReferenceAudio
		request.Params = loaded.Params
	}

	var response struct {
		AudioURL   string `json:"audio_url"`
		SampleRate int    `json:"sample_rate"`
		DurationMS int64  `json:"duration_ms"`
		SizeBytes  int    `json:"size_bytes"`
	}

	err := client.postJSON(ctx, "/api/generate", request, &response)
	if err != nil {
		return err
	}

	audioData, err := client.getBytes(ctx, response.AudioURL)
	if err != nil {
		return err
	}

	err = os.WriteFile(flags.output, audioData, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", flags.output, err)
	}

	fmt.Printf(
		"Generated %s of audio at %d Hz (%s): %s\n",
		studioutils.FormatDuration(float64(response.DurationMS)/1000),
		response.SampleRate,
		studioutils.FormatFileSize(int64(response.SizeBytes)),
		flags.output,
	)

	return nil
}

func (c *apiClient) loadPersona(ctx context.Context, name string) (persona.Persona, error) {
	var loaded persona.Persona

	err := c.getJSON(ctx, "/api/personas/"+url.PathEscape(name), &loaded)
	if err != nil {
		return persona.Persona{}, err
	}

	return loaded, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, target any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, request, target any) error {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

func (c *apiClient) getBytes(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error string `json:"error"`
		}

		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return nil, fmt.Errorf(
				"%w from %s: %s (%s)",
				errUnexpectedStatus,
				path,
				resp.Status,
				envelope.Error,
			)
		}

		return nil, fmt.Errorf(
			"%w from %s: %s",
			errUnexpectedStatus,
			path,
			resp.Status,
		)
	}

	return data, nil
}
