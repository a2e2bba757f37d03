// Package natsembed runs the in-process NATS server that backs the studio's
// durable storage. JetStream is file-backed so personas and audio clips
// survive restarts; the server listens on a loopback port only.
package natsembed

import (
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const readyTimeout = 10 * time.Second

// ErrServerNotReady indicates the embedded server did not accept connections
// within the startup deadline.
var ErrServerNotReady = errors.New("embedded NATS server not ready")

// Server wraps an in-process NATS server together with the client connection
// and JetStream context used by the stores.
type Server struct {
	natsServer       *server.Server
	connection       *nats.Conn
	jetstreamContext nats.JetStreamContext
	log              *logger.Logger
}

// Start boots the embedded server with JetStream persisted under storeDir and
// connects a client to it.
func Start(storeDir string, log *logger.Logger) (*Server, error) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  storeDir,
		NoSigs:    true,
	}

	natsServer, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}

	go natsServer.Start()

	if !natsServer.ReadyForConnections(readyTimeout) {
		natsServer.Shutdown()

		return nil, ErrServerNotReady
	}

	connection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		natsServer.Shutdown()

		return nil, fmt.Errorf("failed to connect to embedded NATS server: %w", err)
	}

	jetstreamContext, err := connection.JetStream()
	if err != nil {
		connection.Close()
		natsServer.Shutdown()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Info("Embedded NATS server ready (store dir: %s)", storeDir)

	return &Server{
		natsServer:       natsServer,
		connection:       connection,
		jetstreamContext: jetstreamContext,
		log:              log,
	}, nil
}

// JetStream returns the JetStream context bound to the embedded server.
func (s *Server) JetStream() nats.JetStreamContext {
	return s.jetstreamContext
}

// Close drains the client connection and stops the server.
func (s *Server) Close() {
	if s.connection != nil {
		s.connection.Close()
	}

	if s.natsServer != nil {
		s.natsServer.Shutdown()
		s.natsServer.WaitForShutdown()
	}
}
