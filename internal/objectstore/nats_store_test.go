// Package objectstore_test tests the NATS audio blob store.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterbox-studio/chatterbox-studio/internal/core"
	"github.com/chatterbox-studio/chatterbox-studio/internal/objectstore"
)

// startTestServer starts an in-memory NATS server for testing purposes.
func startTestServer(t *testing.T) nats.JetStreamContext {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = server.RANDOM_PORT
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)
	t.Cleanup(natsServer.Shutdown)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)
	t.Cleanup(natsConnection.Close)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	return jetstreamContext
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	store, err := objectstore.New(startTestServer(t), "test-audio")
	require.NoError(t, err)

	ctx := context.Background()
	key := "clip.wav"
	uploadData := []byte("RIFF....WAVE fake audio payload")

	require.NoError(t, store.Upload(ctx, key, uploadData))

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_DownloadAbsentKey(t *testing.T) {
	t.Parallel()

	store, err := objectstore.New(startTestServer(t), "test-audio")
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing.wav")
	require.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestNatsObjectStore_Delete(t *testing.T) {
	t.Parallel()

	store, err := objectstore.New(startTestServer(t), "test-audio")
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "clip.wav", []byte("data")))
	require.NoError(t, store.Delete(ctx, "clip.wav"))

	_, err = store.Download(ctx, "clip.wav")
	require.ErrorIs(t, err, objectstore.ErrObjectNotFound)

	err = store.Delete(ctx, "clip.wav")
	require.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestNatsObjectStore_List(t *testing.T) {
	t.Parallel()

	store, err := objectstore.New(startTestServer(t), "test-audio")
	require.NoError(t, err)

	ctx := context.Background()

	empty, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Upload(ctx, "a.wav", []byte("aaaa")))
	require.NoError(t, store.Upload(ctx, "b.wav", []byte("bb")))

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	byKey := make(map[string]core.AudioObject, len(objects))
	for _, obj := range objects {
		byKey[obj.Key] = obj
	}

	assert.Equal(t, uint64(4), byKey["a.wav"].Size)
	assert.Equal(t, uint64(2), byKey["b.wav"].Size)
}
