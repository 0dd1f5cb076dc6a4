package server

import (
	"context"
	goerrs "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sessamekesh/abci-hub/internal"
	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/metrics"
	utils "github.com/sessamekesh/abci-hub/pkg/util"
)

// The WebSocket transport carries one payload per binary message - the
// transport already preserves message boundaries, so frames are not length
// prefixed. The per-connection request/response discipline is identical to
// the stream transport.

type NonBinaryMessage struct{}

func (e *NonBinaryMessage) Error() string {
	return "Non binary message received"
}

type WebsocketServerParams struct {
	ListenAddress    string
	ListenEndpoint   string
	AllowAllHosts    bool
	AllowlistedHosts []string
	DenylistedHosts  []string

	MaxReadMessageSize int64
	MaxConnections     int

	Codec  Codec
	Logger *zap.Logger

	Metrics   *metrics.ServerMetrics
	ConnStore *internal.ConnStore
}

type websocketServer struct {
	upgrader *websocket.Upgrader

	params  WebsocketServerParams
	handler *frameHandler

	log       *zap.Logger
	stringGen *utils.RandomStringGenerator
}

func checkOrigin(r *http.Request, params WebsocketServerParams) bool {
	origin := r.Header.Get("Origin")
	if utils.Contains(origin, params.DenylistedHosts) {
		return false
	}

	if params.AllowAllHosts {
		return true
	}

	return utils.Contains(origin, params.AllowlistedHosts)
}

func CreateWebsocketServer(submitters Submitters, params WebsocketServerParams) (*websocketServer, error) {
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

	return &websocketServer{
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, params)
			},
		},
		params: params,
		handler: &frameHandler{
			codec:      codec,
			submitters: submitters,
			conns:      conns,
			metrics:    params.Metrics,
			transport:  "websocket",
		},
		log:       logger.With(zap.String("handler", "WebSocket")),
		stringGen: utils.CreateRandomStringGenerator(time.Now().UnixMicro()),
	}, nil
}

func (ws *websocketServer) onWsRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := ws.log.With(
		zap.String("connTag", ws.stringGen.GetRandomString(6)),
		zap.String("remote", r.RemoteAddr),
	)

	log.Info("New WebSocket ABCI request")
	c, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade HTTP request to WebSocket connection", zap.Error(err))
		return
	}
	defer c.Close()

	if ws.params.MaxReadMessageSize > 0 {
		c.SetReadLimit(ws.params.MaxReadMessageSize)
	}

	connId, err := ws.handler.conns.Register("websocket", r.RemoteAddr, time.Now().UnixMicro())
	if err != nil {
		log.Warn("Rejecting WebSocket connection", zap.Error(err))
		return
	}
	log = log.With(zap.Uint32("connId", connId))

	ws.handler.metrics.ConnOpened("websocket")

	connDone := make(chan struct{})
	defer close(connDone)

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-connDone:
		}
	}()

	defer func() {
		ws.handler.conns.Remove(connId)
		ws.handler.metrics.ConnClosed()
		log.Info("WebSocket ABCI connection closed")
	}()

	readPayload := func() ([]byte, error) {
		msgType, payload, msgErr := c.ReadMessage()
		if msgErr != nil {
			return nil, msgErr
		}
		if msgType != websocket.BinaryMessage {
			return nil, &NonBinaryMessage{}
		}
		return payload, nil
	}
	writePayload := func(payload []byte) error {
		return c.WriteMessage(websocket.BinaryMessage, payload)
	}

	ws.handler.serveFrames(ctx, log, connId, readPayload, writePayload)
}

func (ws *websocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(ws.params.ListenEndpoint, func(w http.ResponseWriter, r *http.Request) {
		ws.onWsRequest(ctx, w, r)
	})

	server := &http.Server{
		Addr:    ws.params.ListenAddress,
		Handler: mux,
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()

		ws.log.Sugar().Infof("Starting WebSocket server at %s", ws.params.ListenAddress)
		if err := server.ListenAndServe(); !goerrs.Is(err, http.ErrServerClosed) {
			ws.log.Error("Unexpected WebSocket server close!", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		<-ctx.Done()

		shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownRelease()
		ws.log.Info("Attempting to trigger shutdown of WebSocket server")

		if err := server.Shutdown(shutdownCtx); err != nil {
			ws.log.Error("Failed to gracefully shut down WebSocket server", zap.Error(err))
			return
		}
		ws.log.Info("Successfully shutdown WebSocket server")
	}()

	wg.Wait()
	return nil
}
