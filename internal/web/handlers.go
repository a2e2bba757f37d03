package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/chatterbox-studio/chatterbox-studio/internal/objectstore"
	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
	"github.com/chatterbox-studio/chatterbox-studio/internal/studioutils"
	"github.com/chatterbox-studio/chatterbox-studio/internal/tts"
)

// maxUploadBytes caps reference clip uploads (a minute of 48 kHz stereo WAV
// is ~23 MB).
const maxUploadBytes = 64 << 20

const uploadFieldName = "audio"

// ErrorResponse is the JSON error envelope every failed request returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// PersonaListResponse is the body for GET /api/personas.
type PersonaListResponse struct {
	Personas []string `json:"personas"`
}

// SavePersonaRequest is the body for PUT /api/personas/{name}. A missing
// params object falls back to the engine defaults.
type SavePersonaRequest struct {
	ReferenceAudio string          `json:"reference_audio,omitempty"`
	Params         *persona.Params `json:"params,omitempty"`
}

// GenerateRequest is the body for POST /api/generate.
type GenerateRequest struct {
	Text           string          `json:"text"`
	ReferenceAudio string          `json:"reference_audio,omitempty"`
	Params         *persona.Params `json:"params,omitempty"`
}

// GenerateResponse points the UI at the stored clip rather than inlining the
// audio, so the result stays replayable from history.
type GenerateResponse struct {
	Key        string `json:"key"`
	AudioURL   string `json:"audio_url"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	DurationMS int64  `json:"duration_ms"`
	SizeBytes  int    `json:"size_bytes"`
	SizeHuman  string `json:"size_human"`
}

// UploadReferenceResponse is the body for POST /api/reference.
type UploadReferenceResponse struct {
	ReferenceAudio string `json:"reference_audio"`
}

// HistoryEntry describes one stored generation for GET /api/history.
type HistoryEntry struct {
	Key       string `json:"key"`
	AudioURL  string `json:"audio_url"`
	SizeBytes uint64 `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
}

// ParamSpec documents one slider for the UI.
type ParamSpec struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
}

// ConfigResponse is the body for GET /api/config.
type ConfigResponse struct {
	Params map[string]ParamSpec `json:"params"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{
		Params: map[string]ParamSpec{
			"temperature": {
				Min:     persona.TemperatureMin,
				Max:     persona.TemperatureMax,
				Default: persona.DefaultTemperature,
				Step:    0.05,
			},
			"repetition_penalty": {
				Min:     persona.RepetitionPenaltyMin,
				Max:     persona.RepetitionPenaltyMax,
				Default: persona.DefaultRepetitionPenalty,
				Step:    0.05,
			},
			"min_p": {
				Min:     persona.MinPMin,
				Max:     persona.MinPMax,
				Default: persona.DefaultMinP,
				Step:    0.01,
			},
			"top_p": {
				Min:     persona.TopPMin,
				Max:     persona.TopPMax,
				Default: persona.DefaultTopP,
				Step:    0.01,
			},
			"exaggeration": {
				Min:     persona.ExaggerationMin,
				Max:     persona.ExaggerationMax,
				Default: persona.DefaultExaggeration,
				Step:    0.05,
			},
			"cfg_weight": {
				Min:     persona.CfgWeightMin,
				Max:     persona.CfgWeightMax,
				Default: persona.DefaultCfgWeight,
				Step:    0.05,
			},
		},
	})
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	names, err := s.stores.Personas.List()
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, PersonaListResponse{Personas: names})
}

func (s *Server) handleLoadPersona(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.stores.Personas.Load(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, loaded)
}

func (s *Server) handleSavePersona(w http.ResponseWriter, r *http.Request) {
	var req SavePersonaRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})

		return
	}

	params := persona.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	err = s.stores.Personas.Save(persona.Persona{
		Name:           r.PathValue("name"),
		ReferenceAudio: req.ReferenceAudio,
		Params:         params,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.log.Info("Saved persona '%s'", r.PathValue("name"))
	writeJSON(w, http.StatusOK, HealthResponse{Status: "saved"})
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	err := s.stores.Personas.Delete(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.log.Info("Deleted persona '%s'", r.PathValue("name"))
	writeJSON(w, http.StatusOK, HealthResponse{Status: "deleted"})
}

func (s *Server) handleUploadReference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("missing '%s' upload: %v", uploadFieldName, err),
		})

		return
	}
	defer file.Close()

	if !studioutils.IsValidAudioFile(header.Filename) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf(
				"unsupported audio file: %s",
				studioutils.SanitizeFilename(header.Filename),
			),
		})

		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "failed to read upload",
		})

		return
	}

	ext := studioutils.GetFileExtension(header.Filename)
	key := uuid.NewString() + "." + ext

	err = s.stores.Reference.Upload(r.Context(), key, data)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.log.Info(
		"Stored reference clip %s (%s)",
		key,
		studioutils.FormatFileSize(int64(len(data))),
	)
	writeJSON(w, http.StatusOK, UploadReferenceResponse{
		ReferenceAudio: tts.StoredPrefix + key,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	select {
	case s.generateGate <- struct{}{}:
		defer func() { <-s.generateGate }()
	default:
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "a generation is already in progress",
		})

		return
	}

	var req GenerateRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})

		return
	}

	params := persona.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	result, err := s.generator.Generate(
		r.Context(),
		req.Text,
		req.ReferenceAudio,
		params,
	)
	if err != nil {
		s.log.Error("Generation failed: %v", err)
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Key:        result.Key,
		AudioURL:   audioURL(result.Key),
		SampleRate: result.Format.SampleRate,
		Channels:   result.Format.Channels,
		DurationMS: result.Format.Duration.Milliseconds(),
		SizeBytes:  len(result.Audio),
		SizeHuman:  studioutils.FormatFileSize(int64(len(result.Audio))),
	})
}

func (s *Server) handleServeAudio(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	data, err := s.stores.Generated.Download(r.Context(), key)
	if err != nil {
		if !errors.Is(err, objectstore.ErrObjectNotFound) {
			s.writeError(w, err)

			return
		}

		// Reference clips share the same playback endpoint.
		data, err = s.stores.Reference.Download(r.Context(), key)
		if err != nil {
			s.writeError(w, err)

			return
		}
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	objects, err := s.stores.Generated.List(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	entries := make([]HistoryEntry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, HistoryEntry{
			Key:       obj.Key,
			AudioURL:  audioURL(obj.Key),
			SizeBytes: obj.Size,
			SizeHuman: studioutils.FormatFileSize(int64(obj.Size)),
		})
	}

	writeJSON(w, http.StatusOK, entries)
}

// writeError maps domain errors onto the HTTP taxonomy: validation 400,
// missing entries 404, engine failures 502, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case persona.IsValidation(err) || errors.Is(err, tts.ErrTextEmpty):
		status = http.StatusBadRequest
	case errors.Is(err, persona.ErrPersonaNotFound) ||
		errors.Is(err, objectstore.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tts.ErrGenerationFailed):
		status = http.StatusBadGateway
	default:
		s.log.Error("Internal error: %v", err)
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func audioURL(key string) string {
	return "/api/audio/" + key
}
