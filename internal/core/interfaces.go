// Package core defines the interfaces the studio's components are wired
// through, so the web layer can be tested against fakes.
package core

import (
	"context"

	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
	"github.com/chatterbox-studio/chatterbox-studio/internal/wav"
)

// AudioObject describes a stored audio clip.
type AudioObject struct {
	Key  string `json:"key"`
	Size uint64 `json:"size"`
}

// AudioStore is a key-value blob store for audio clips: uploaded reference
// voices and generated speech.
type AudioStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]AudioObject, error)
}

// PersonaStore persists named voice presets.
type PersonaStore interface {
	List() ([]string, error)
	Load(name string) (persona.Persona, error)
	Save(p persona.Persona) error
	Delete(name string) error
}

// GenerationResult is a finished synthesis: the WAV bytes, the probed audio
// format, and the key the clip was stored under for later playback.
type GenerationResult struct {
	Audio  []byte   `json:"-"`
	Format wav.Info `json:"format"`
	Key    string   `json:"key"`
}

// SpeechGenerator turns text plus an optional reference voice and a parameter
// set into playable audio.
type SpeechGenerator interface {
	Generate(
		ctx context.Context,
		text string,
		referenceAudio string,
		params persona.Params,
	) (GenerationResult, error)
}
