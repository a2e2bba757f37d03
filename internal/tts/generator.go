package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/chatterbox-studio/chatterbox-studio/internal/core"
	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
	"github.com/chatterbox-studio/chatterbox-studio/internal/tts/text"
	"github.com/chatterbox-studio/chatterbox-studio/internal/wav"
)

// StoredPrefix marks a reference-audio handle that names a clip in the audio
// store rather than a filesystem path.
const StoredPrefix = "store://"

// Static errors.
var (
	// ErrTextEmpty indicates an empty or blank generation text.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrGenerationFailed wraps every engine-side failure.
	ErrGenerationFailed = errors.New("generation failed")
)

// Generator implements core.SpeechGenerator against the HTTP engine. Each
// successful result is also uploaded to the audio store under a fresh key so
// the UI can replay past generations.
type Generator struct {
	client *HTTPClient
	store  core.AudioStore
	log    *logger.Logger
}

// NewGenerator wires the engine client, the audio store, and a logger into a
// ready generator.
func NewGenerator(client *HTTPClient, store core.AudioStore, log *logger.Logger) *Generator {
	return &Generator{
		client: client,
		store:  store,
		log:    log,
	}
}

// Generate validates the request, resolves the reference audio to a path the
// engine can read, invokes the engine once, and stores the result. Engine
// failures are wrapped in ErrGenerationFailed and never retried: sampling
// randomness means a retry would silently produce different speech.
func (g *Generator) Generate(
	ctx context.Context,
	inputText string,
	referenceAudio string,
	params persona.Params,
) (core.GenerationResult, error) {
	if strings.TrimSpace(inputText) == "" {
		return core.GenerationResult{}, ErrTextEmpty
	}

	err := params.Validate()
	if err != nil {
		return core.GenerationResult{}, err
	}

	promptPath, cleanup, err := g.resolveReferenceAudio(ctx, referenceAudio)
	if err != nil {
		return core.GenerationResult{}, err
	}
	defer cleanup()

	cleanText := text.Normalize(inputText)

	audioData, err := g.client.GenerateSpeech(
		ctx,
		NewEngineRequest(cleanText, promptPath, params),
	)
	if err != nil {
		return core.GenerationResult{}, fmt.Errorf(
			"%w: %w",
			ErrGenerationFailed,
			err,
		)
	}

	info, err := wav.Probe(audioData)
	if err != nil {
		return core.GenerationResult{}, fmt.Errorf(
			"%w: engine returned unreadable audio: %w",
			ErrGenerationFailed,
			err,
		)
	}

	key := uuid.NewString() + ".wav"

	err = g.store.Upload(ctx, key, audioData)
	if err != nil {
		return core.GenerationResult{}, fmt.Errorf(
			"failed to store generated audio: %w",
			err,
		)
	}

	g.log.Info(
		"Generated %d bytes at %d Hz (key: %s)",
		len(audioData),
		info.SampleRate,
		key,
	)

	return core.GenerationResult{
		Audio:  audioData,
		Format: info,
		Key:    key,
	}, nil
}

// resolveReferenceAudio maps a reference handle to an engine-readable path.
// Plain paths pass through untouched; stored clips are materialized to a temp
// file that the returned cleanup removes.
func (g *Generator) resolveReferenceAudio(
	ctx context.Context,
	referenceAudio string,
) (path string, cleanup func(), err error) {
	noop := func() {}

	if referenceAudio == "" {
		return "", noop, nil
	}

	key, isStored := strings.CutPrefix(referenceAudio, StoredPrefix)
	if !isStored {
		return referenceAudio, noop, nil
	}

	data, err := g.store.Download(ctx, key)
	if err != nil {
		return "", noop, fmt.Errorf(
			"failed to fetch reference audio '%s': %w",
			key,
			err,
		)
	}

	tempFile, err := os.CreateTemp("", "reference-*.wav")
	if err != nil {
		return "", noop, fmt.Errorf(
			"failed to create temp file for reference audio: %w",
			err,
		)
	}

	tempPath := tempFile.Name()

	cleanup = func() {
		removeErr := os.Remove(tempPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			g.log.Warn("Failed to remove temp file '%s': %v", tempPath, removeErr)
		}
	}

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr != nil {
		cleanup()

		return "", noop, fmt.Errorf(
			"failed to write reference audio to temp file: %w",
			writeErr,
		)
	}

	if closeErr != nil {
		cleanup()

		return "", noop, fmt.Errorf(
			"failed to close reference audio temp file: %w",
			closeErr,
		)
	}

	return tempPath, cleanup, nil
}
