package persona

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrPersonaNotFound indicates a lookup for a name that is not in the store.
var ErrPersonaNotFound = errors.New("persona not found")

// Persona is a named voice preset. ReferenceAudio is an opaque handle: either
// a filesystem path the engine can read directly, or a stored-clip handle
// produced by the reference upload flow. It may be empty, in which case the
// engine's default voice is used.
type Persona struct {
	Name           string `json:"name"`
	ReferenceAudio string `json:"reference_audio,omitempty"`
	Params         Params `json:"params"`
}

// record is the storage representation of a persona. Parameter fields are
// pointers so records written before a field existed decode as nil and fall
// back to the documented default instead of zero.
type record struct {
	Name              string   `json:"name"`
	ReferenceAudio    string   `json:"reference_audio,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	MinP              *float64 `json:"min_p,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	Exaggeration      *float64 `json:"exaggeration,omitempty"`
	CfgWeight         *float64 `json:"cfg_weight,omitempty"`
}

// Store persists personas in a NATS JetStream KeyValue bucket. Each save is a
// single KV put, so a persona is either fully written or not written at all.
type Store struct {
	keyValue nats.KeyValue
	bucket   string
}

// NewStore creates or binds to the persona KeyValue bucket.
func NewStore(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	keyValue, err := jetstreamContext.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Persona presets for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create persona bucket '%s': %w",
				bucketName,
				err,
			)
		}

		keyValue, err = jetstreamContext.KeyValue(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to persona bucket '%s': %w",
				bucketName,
				err,
			)
		}
	}

	return &Store{
		keyValue: keyValue,
		bucket:   bucketName,
	}, nil
}

// List returns every stored persona name, alphabetically sorted. An empty
// store yields an empty slice, never an error.
func (s *Store) List() ([]string, error) {
	keys, err := s.keyValue.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return []string{}, nil
		}

		return nil, fmt.Errorf(
			"failed to list personas in bucket '%s': %w",
			s.bucket,
			err,
		)
	}

	names := make([]string, 0, len(keys))

	for _, key := range keys {
		name, decodeErr := decodeName(key)
		if decodeErr != nil {
			return nil, fmt.Errorf(
				"malformed persona key '%s': %w",
				key,
				decodeErr,
			)
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Load returns the persona saved under name. Records written with missing
// parameter fields come back with documented defaults in their place.
func (s *Store) Load(name string) (Persona, error) {
	if isBlank(name) {
		return Persona{}, ErrNameEmpty
	}

	entry, err := s.keyValue.Get(encodeName(name))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return Persona{}, fmt.Errorf("%w: '%s'", ErrPersonaNotFound, name)
		}

		return Persona{}, fmt.Errorf(
			"failed to load persona '%s': %w",
			name,
			err,
		)
	}

	var rec record

	err = json.Unmarshal(entry.Value(), &rec)
	if err != nil {
		return Persona{}, fmt.Errorf(
			"failed to decode persona '%s': %w",
			name,
			err,
		)
	}

	return rec.toPersona(name), nil
}

// Save validates and persists a persona, creating or overwriting the entry
// under p.Name. Validation failures happen before any write is visible.
func (s *Store) Save(p Persona) error {
	if isBlank(p.Name) {
		return ErrNameEmpty
	}

	err := p.Params.Validate()
	if err != nil {
		return err
	}

	data, err := json.Marshal(newRecord(p))
	if err != nil {
		return fmt.Errorf("failed to encode persona '%s': %w", p.Name, err)
	}

	_, err = s.keyValue.Put(encodeName(p.Name), data)
	if err != nil {
		return fmt.Errorf("failed to save persona '%s': %w", p.Name, err)
	}

	return nil
}

// Delete removes the entry under name. A KV delete on an absent key is a
// silent no-op, so presence is checked first to honor the not-found contract.
func (s *Store) Delete(name string) error {
	if isBlank(name) {
		return ErrNameEmpty
	}

	key := encodeName(name)

	_, err := s.keyValue.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("%w: '%s'", ErrPersonaNotFound, name)
		}

		return fmt.Errorf("failed to check persona '%s': %w", name, err)
	}

	err = s.keyValue.Purge(key)
	if err != nil {
		return fmt.Errorf("failed to delete persona '%s': %w", name, err)
	}

	return nil
}

// Persona names are arbitrary user text, but KV keys are restricted to
// [-/_=.A-Za-z0-9]. Keys are therefore the unpadded URL-safe base64 of the
// name; the display name travels inside the record.
func encodeName(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

func decodeName(key string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode key: %w", err)
	}

	return string(raw), nil
}

func isBlank(name string) bool {
	return strings.TrimSpace(name) == ""
}

func newRecord(p Persona) record {
	return record{
		Name:              p.Name,
		ReferenceAudio:    p.ReferenceAudio,
		Temperature:       &p.Params.Temperature,
		RepetitionPenalty: &p.Params.RepetitionPenalty,
		MinP:              &p.Params.MinP,
		TopP:              &p.Params.TopP,
		Exaggeration:      &p.Params.Exaggeration,
		CfgWeight:         &p.Params.CfgWeight,
	}
}

func (r record) toPersona(name string) Persona {
	params := DefaultParams()

	if r.Temperature != nil {
		params.Temperature = *r.Temperature
	}

	if r.RepetitionPenalty != nil {
		params.RepetitionPenalty = *r.RepetitionPenalty
	}

	if r.MinP != nil {
		params.MinP = *r.MinP
	}

	if r.TopP != nil {
		params.TopP = *r.TopP
	}

	if r.Exaggeration != nil {
		params.Exaggeration = *r.Exaggeration
	}

	if r.CfgWeight != nil {
		params.CfgWeight = *r.CfgWeight
	}

	return Persona{
		Name:           name,
		ReferenceAudio: r.ReferenceAudio,
		Params:         params,
	}
}
