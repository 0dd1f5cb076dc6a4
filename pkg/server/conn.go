package server

import (
	"bufio"
	"context"
	goerrs "errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/sessamekesh/abci-hub/internal"
	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/metrics"
)

// frameHandler is the transport-independent half of a connection server:
// decode, classify, submit, await, encode. Shared by the stream and
// WebSocket listeners.
type frameHandler struct {
	codec      Codec
	submitters Submitters
	conns      *internal.ConnStore
	metrics    *metrics.ServerMetrics
	transport  string
}

// serveConn runs the sequential request/response loop for one stream
// connection. The loop never reads the next frame before the previous
// response has been written, so at most one request per connection is ever
// outstanding and response order always matches request order.
func (s *streamServer) serveConn(ctx context.Context, conn net.Conn, connId uint32) {
	log := s.log.With(
		zap.Uint32("connId", connId),
		zap.String("connTag", s.stringGen.GetRandomString(6)),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	log.Info("New ABCI connection")

	connDone := make(chan struct{})
	defer close(connDone)

	// Unblock pending reads when the server shuts down.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	defer func() {
		conn.Close()
		s.handler.conns.Remove(connId)
		s.handler.metrics.ConnClosed()
		log.Info("ABCI connection closed")
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	readPayload := func() ([]byte, error) {
		return abci.ReadFrame(reader, s.params.MaxFrameSize)
	}
	writePayload := func(payload []byte) error {
		if err := abci.WriteFrame(writer, payload); err != nil {
			return err
		}
		return writer.Flush()
	}

	s.handler.serveFrames(ctx, log, connId, readPayload, writePayload)
}

// serveFrames drives one connection until an error. Any error is fatal to
// this connection only; other connections and the dispatch engine are
// unaffected.
func (h *frameHandler) serveFrames(
	ctx context.Context,
	log *zap.Logger,
	connId uint32,
	readPayload func() ([]byte, error),
	writePayload func([]byte) error,
) {
	for {
		payload, err := readPayload()
		if err != nil {
			if goerrs.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			log.Warn("Failed to read frame, dropping connection", zap.Error(err))
			return
		}

		req, err := h.codec.ParseRequest(payload)
		if err != nil {
			h.metrics.IncDecodeErrors(h.transport)
			log.Warn("Malformed request frame, dropping connection", zap.Error(err))
			return
		}

		category, err := req.Category()
		if err != nil {
			h.metrics.IncDecodeErrors(h.transport)
			log.Warn("Unclassifiable request, dropping connection", zap.Error(err))
			return
		}

		future, err := h.submitters.For(category).Submit(ctx, req)
		if err != nil {
			log.Warn("Failed to submit request, dropping connection",
				zap.String("kind", req.Kind.String()),
				zap.String("category", category.String()),
				zap.Error(err))
			return
		}

		resp, err := future.Wait(ctx)
		if err != nil {
			log.Warn("Request failed, dropping connection",
				zap.String("kind", req.Kind.String()),
				zap.Error(err))
			return
		}

		out, err := h.codec.SerializeResponse(resp)
		if err != nil {
			log.Error("Failed to serialize response, dropping connection",
				zap.String("kind", resp.Kind.String()),
				zap.Error(err))
			return
		}

		if err := writePayload(out); err != nil {
			log.Warn("Failed to write response, dropping connection", zap.Error(err))
			return
		}

		h.conns.RecordRequest(connId, time.Now().UnixMicro())
		h.metrics.IncRequests(h.transport)
	}
}
