// Package server accepts consensus engine connections and drives each one
// through a strict sequential frame loop against the four category handles.
package server

import (
	"context"
	goerrs "errors"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sessamekesh/abci-hub/internal"
	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/buffer"
	"github.com/sessamekesh/abci-hub/pkg/metrics"
	utils "github.com/sessamekesh/abci-hub/pkg/util"
)

// Codec decodes request payloads and encodes response payloads. Framing
// (length delimiting) is fixed; the payload serialization scheme is an
// injected capability, defaulting to the built-in wire serializer.
type Codec interface {
	ParseRequest(payload []byte) (*abci.Request, error)
	SerializeResponse(resp *abci.Response) ([]byte, error)
}

// Submitters carries the four category front ends a server forwards into,
// bare handles or middleware-wrapped ones.
type Submitters struct {
	Consensus buffer.Submitter
	Mempool   buffer.Submitter
	Snapshot  buffer.Submitter
	Info      buffer.Submitter
}

func (s Submitters) For(category abci.Category) buffer.Submitter {
	switch category {
	case abci.CategoryConsensus:
		return s.Consensus
	case abci.CategoryMempool:
		return s.Mempool
	case abci.CategorySnapshot:
		return s.Snapshot
	}
	return s.Info
}

type MissingSubmitterError struct {
	Category abci.Category
}

func (e *MissingSubmitterError) Error() string {
	return "No submitter configured for category " + e.Category.String()
}

type InvalidListenConfigError struct{}

func (e *InvalidListenConfigError) Error() string {
	return "Exactly one of TcpAddress or UnixSocketPath must be set"
}

type StreamServerParams struct {
	// Exactly one of the two must be set.
	TcpAddress     string
	UnixSocketPath string

	MaxFrameSize   int64
	MaxConnections int

	Codec  Codec
	Logger *zap.Logger

	Metrics *metrics.ServerMetrics

	// ConnStore may be shared with other transports; one is created when
	// nil.
	ConnStore *internal.ConnStore
}

type streamServer struct {
	params  StreamServerParams
	handler *frameHandler

	log       *zap.Logger
	stringGen *utils.RandomStringGenerator
}

// CreateStreamServer builds a listener over a TCP address or a Unix domain
// socket path. The four submitters are shared by every accepted connection.
func CreateStreamServer(submitters Submitters, params StreamServerParams) (*streamServer, error) {
	if (params.TcpAddress == "") == (params.UnixSocketPath == "") {
		return nil, &InvalidListenConfigError{}
	}
	for category := 0; category < abci.NumCategories; category++ {
		if submitters.For(abci.Category(category)) == nil {
			return nil, &MissingSubmitterError{Category: abci.Category(category)}
		}
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}

	codec := params.Codec
	if codec == nil {
		codec = abci.CreateWireSerializer()
	}

	conns := params.ConnStore
	if conns == nil {
		conns = internal.CreateConnStore(params.MaxConnections)
	}

	transportName := "tcp"
	if params.UnixSocketPath != "" {
		transportName = "unix"
	}

	return &streamServer{
		params: params,
		handler: &frameHandler{
			codec:      codec,
			submitters: submitters,
			conns:      conns,
			metrics:    params.Metrics,
			transport:  transportName,
		},
		log:       logger.With(zap.String("handler", transportName)),
		stringGen: utils.CreateRandomStringGenerator(time.Now().UnixMicro()),
	}, nil
}

func (s *streamServer) listen() (net.Listener, error) {
	if s.params.UnixSocketPath != "" {
		// A stale socket file from an unclean shutdown blocks the bind.
		if err := os.Remove(s.params.UnixSocketPath); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		return net.Listen("unix", s.params.UnixSocketPath)
	}
	return net.Listen("tcp", s.params.TcpAddress)
}

// Start binds the endpoint and accepts connections until ctx is cancelled.
// Each accepted connection runs its own sequential serve loop; their relative
// interleaving at the engine is governed purely by category priority.
func (s *streamServer) Start(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		s.log.Error("Failed to bind listen endpoint", zap.Error(err))
		return err
	}

	s.log.Info("Listening for ABCI connections",
		zap.String("transport", s.handler.transport),
		zap.String("address", listener.Addr().String()))

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil || goerrs.Is(acceptErr, net.ErrClosed) {
				break
			}
			s.log.Warn("Accept failed", zap.Error(acceptErr))
			continue
		}

		connId, registerErr := s.handler.conns.Register(s.handler.transport, conn.RemoteAddr().String(), time.Now().UnixMicro())
		if registerErr != nil {
			s.log.Warn("Rejecting connection", zap.Error(registerErr))
			conn.Close()
			continue
		}

		s.handler.metrics.ConnOpened(s.handler.transport)

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn, connId)
		}()
	}

	wg.Wait()
	s.log.Info("Stream server stopped")
	return nil
}
