// Package objectstore provides a NATS-based blob store for audio clips:
// uploaded reference voices and generated speech.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/chatterbox-studio/chatterbox-studio/internal/core"
)

// ErrObjectNotFound indicates a lookup for a key with no stored object.
var ErrObjectNotFound = errors.New("object not found")

// NatsObjectStore implements the core.AudioStore interface using a NATS
// JetStream object store bucket.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket if needed, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Audio clips for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create object store bucket '%s': %w",
				bucketName,
				err,
			)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to existing object store bucket '%s': %w",
				bucketName,
				err,
			)
		}
	}

	return &NatsObjectStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves a clip from the bucket.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: '%s'", ErrObjectNotFound, key)
		}

		return nil, fmt.Errorf(
			"failed to get object '%s' from bucket '%s': %w",
			key,
			n.bucket,
			err,
		)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload saves a clip to the bucket, overwriting any previous object under
// the same key.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte) error {
	reader := bytes.NewReader(data)

	_, err := n.store.Put(&nats.ObjectMeta{Name: key}, reader)
	if err != nil {
		return fmt.Errorf(
			"failed to put object '%s' to bucket '%s': %w",
			key,
			n.bucket,
			err,
		)
	}

	return nil
}

// Delete removes a clip from the bucket.
func (n *NatsObjectStore) Delete(_ context.Context, key string) error {
	err := n.store.Delete(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return fmt.Errorf("%w: '%s'", ErrObjectNotFound, key)
		}

		return fmt.Errorf(
			"failed to delete object '%s' from bucket '%s': %w",
			key,
			n.bucket,
			err,
		)
	}

	return nil
}

// List returns metadata for every clip in the bucket. An empty bucket yields
// an empty slice.
func (n *NatsObjectStore) List(_ context.Context) ([]core.AudioObject, error) {
	objects, err := n.store.List()
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return []core.AudioObject{}, nil
		}

		return nil, fmt.Errorf(
			"failed to list objects in bucket '%s': %w",
			n.bucket,
			err,
		)
	}

	infos := make([]core.AudioObject, 0, len(objects))
	for _, obj := range objects {
		infos = append(infos, core.AudioObject{
			Key:  obj.Name,
			Size: obj.Size,
		})
	}

	return infos, nil
}
