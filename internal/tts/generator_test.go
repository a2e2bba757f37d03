package tts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterbox-studio/chatterbox-studio/internal/core"
	"github.com/chatterbox-studio/chatterbox-studio/internal/objectstore"
	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
	"github.com/chatterbox-studio/chatterbox-studio/internal/tts"
	"github.com/chatterbox-studio/chatterbox-studio/internal/wav"
)

// memoryAudioStore is an in-memory core.AudioStore for generator tests.
type memoryAudioStore struct {
	objects map[string][]byte
}

func newMemoryAudioStore() *memoryAudioStore {
	return &memoryAudioStore{objects: make(map[string][]byte)}
}

func (s *memoryAudioStore) Download(_ context.Context, key string) ([]byte, error) {
	data, found := s.objects[key]
	if !found {
		return nil, objectstore.ErrObjectNotFound
	}

	return data, nil
}

func (s *memoryAudioStore) Upload(_ context.Context, key string, data []byte) error {
	s.objects[key] = data

	return nil
}

func (s *memoryAudioStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)

	return nil
}

func (s *memoryAudioStore) List(_ context.Context) ([]core.AudioObject, error) {
	listing := make([]core.AudioObject, 0, len(s.objects))
	for key, data := range s.objects {
		listing = append(listing, core.AudioObject{
			Key:  key,
			Size: uint64(len(data)),
		})
	}

	return listing, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

// countingEngine is a fake engine that records every request it serves.
type countingEngine struct {
	server   *httptest.Server
	requests atomic.Int64
	lastBody atomic.Pointer[tts.EngineRequest]
}

func newCountingEngine(t *testing.T, audio []byte) *countingEngine {
	t.Helper()

	engine := &countingEngine{}
	engine.server = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			engine.requests.Add(1)

			var req tts.EngineRequest

			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			engine.lastBody.Store(&req)

			w.Header().Set("Content-Type", "audio/wav")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(audio)
		},
	))
	t.Cleanup(engine.server.Close)

	return engine
}

func TestGenerator_Generate_Success(t *testing.T) {
	t.Parallel()

	engineAudio := wav.CreateMinimal(2400, 24000, 1, 16)
	engine := newCountingEngine(t, engineAudio)
	store := newMemoryAudioStore()

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		store,
		newTestLogger(t),
	)

	result, err := generator.Generate(
		context.Background(),
		"Hello world",
		"",
		persona.DefaultParams(),
	)
	require.NoError(t, err)

	assert.Equal(t, engineAudio, result.Audio)
	assert.Equal(t, 24000, result.Format.SampleRate)
	assert.Equal(t, 1, result.Format.Channels)
	assert.NotEmpty(t, result.Key)

	// The result must also be stored for later replay.
	stored, err := store.Download(context.Background(), result.Key)
	require.NoError(t, err)
	assert.Equal(t, engineAudio, stored)

	assert.Equal(t, int64(1), engine.requests.Load())
}

func TestGenerator_Generate_EmptyTextNeverReachesEngine(t *testing.T) {
	t.Parallel()

	engine := newCountingEngine(t, wav.CreateMinimal(100, 24000, 1, 16))

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		newMemoryAudioStore(),
		newTestLogger(t),
	)

	for _, inputText := range []string{"", "   ", "\n\t"} {
		_, err := generator.Generate(
			context.Background(),
			inputText,
			"",
			persona.DefaultParams(),
		)
		require.ErrorIs(t, err, tts.ErrTextEmpty)
	}

	assert.Equal(t, int64(0), engine.requests.Load())
}

func TestGenerator_Generate_InvalidParamsNeverReachEngine(t *testing.T) {
	t.Parallel()

	engine := newCountingEngine(t, wav.CreateMinimal(100, 24000, 1, 16))

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		newMemoryAudioStore(),
		newTestLogger(t),
	)

	params := persona.DefaultParams()
	params.Temperature = 9.0

	_, err := generator.Generate(context.Background(), "Hello", "", params)
	require.ErrorIs(t, err, persona.ErrTemperatureRange)
	assert.Equal(t, int64(0), engine.requests.Load())
}

func TestGenerator_Generate_PlainPathPassesThrough(t *testing.T) {
	t.Parallel()

	engine := newCountingEngine(t, wav.CreateMinimal(100, 24000, 1, 16))

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		newMemoryAudioStore(),
		newTestLogger(t),
	)

	_, err := generator.Generate(
		context.Background(),
		"Hello",
		"/voices/narrator.wav",
		persona.DefaultParams(),
	)
	require.NoError(t, err)

	sent := engine.lastBody.Load()
	require.NotNil(t, sent)
	assert.Equal(t, "/voices/narrator.wav", sent.AudioPromptPath)
}

func TestGenerator_Generate_StoredReferenceMaterialized(t *testing.T) {
	t.Parallel()

	engine := newCountingEngine(t, wav.CreateMinimal(100, 24000, 1, 16))
	store := newMemoryAudioStore()

	referenceClip := wav.CreateMinimal(480, 48000, 1, 16)
	require.NoError(
		t,
		store.Upload(context.Background(), "ref-clip.wav", referenceClip),
	)

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		store,
		newTestLogger(t),
	)

	_, err := generator.Generate(
		context.Background(),
		"Hello",
		tts.StoredPrefix+"ref-clip.wav",
		persona.DefaultParams(),
	)
	require.NoError(t, err)

	sent := engine.lastBody.Load()
	require.NotNil(t, sent)
	require.NotEmpty(t, sent.AudioPromptPath)
	assert.NotContains(t, sent.AudioPromptPath, tts.StoredPrefix)

	// The materialized temp file is removed once generation finishes.
	_, statErr := os.Stat(sent.AudioPromptPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerator_Generate_MissingStoredReference(t *testing.T) {
	t.Parallel()

	engine := newCountingEngine(t, wav.CreateMinimal(100, 24000, 1, 16))

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		newMemoryAudioStore(),
		newTestLogger(t),
	)

	_, err := generator.Generate(
		context.Background(),
		"Hello",
		tts.StoredPrefix+"no-such-clip.wav",
		persona.DefaultParams(),
	)
	require.ErrorIs(t, err, objectstore.ErrObjectNotFound)
	assert.Equal(t, int64(0), engine.requests.Load())
}

func TestGenerator_Generate_EngineFailureWrapped(t *testing.T) {
	t.Parallel()

	failing := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(tts.EngineErrorResponse{
				Detail:    "model crashed",
				ErrorCode: "INTERNAL",
			})
		},
	))
	defer failing.Close()

	generator := tts.NewGenerator(
		tts.NewHTTPClient(failing.URL, 10*time.Second),
		newMemoryAudioStore(),
		newTestLogger(t),
	)

	_, err := generator.Generate(
		context.Background(),
		"Hello",
		"",
		persona.DefaultParams(),
	)
	require.ErrorIs(t, err, tts.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestGenerator_Generate_UnreadableEngineAudio(t *testing.T) {
	t.Parallel()

	engine := newCountingEngine(t, make([]byte, wav.HeaderSize+16))

	generator := tts.NewGenerator(
		tts.NewHTTPClient(engine.server.URL, 10*time.Second),
		newMemoryAudioStore(),
		newTestLogger(t),
	)

	_, err := generator.Generate(
		context.Background(),
		"Hello",
		"",
		persona.DefaultParams(),
	)
	require.ErrorIs(t, err, tts.ErrGenerationFailed)
	require.ErrorIs(t, err, wav.ErrNotWAV)
}
