// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/ratesync/internal/platform/constants"
	"github.com/taibuivan/ratesync/internal/platform/ctxutil"
	"github.com/taibuivan/ratesync/internal/platform/middleware"
	"github.com/taibuivan/ratesync/internal/platform/respond"
)

// StreamOptions tune the snapshot stream.
type StreamOptions struct {
	// AllowedOrigins lists browser origins allowed to connect. Empty allows any.
	AllowedOrigins []string

	PingInterval time.Duration
	WriteTimeout time.Duration
}

// DefaultStreamOptions returns the production stream settings.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (options StreamOptions) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 << 10,
		CheckOrigin: func(request *http.Request) bool {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" || len(options.AllowedOrigins) == 0 {
				return true
			}
			return middleware.OriginAllowed(options.AllowedOrigins, origin)
		},
	}
}

/*
Stream upgrades the request to a WebSocket and pushes a snapshot every time the
session changes.

Description: The first message is the current state. Messages are JSON
snapshots. The client never needs to send anything; its frames are read only to
notice a close. The stream ends when the client leaves or the session closes.
*/
func (handler *Handler) Stream(writer http.ResponseWriter, request *http.Request) {
	list, err := handler.session(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshots, unsubscribe, err := list.Subscribe(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer unsubscribe()

	upgrader := handler.stream.upgrader()
	connection, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// The upgrader has already answered the client.
		return
	}
	defer connection.Close()

	logger := ctxutil.Logger(request.Context())
	logger.Info("rate_stream_opened")

	pongWait := handler.stream.PingInterval * 2
	_ = connection.SetReadDeadline(time.Now().Add(pongWait))
	connection.SetPongHandler(func(string) error {
		return connection.SetReadDeadline(time.Now().Add(pongWait))
	})

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := connection.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(handler.stream.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			logger.Info("rate_stream_closed", slog.String("reason", "client"))
			return

		case snapshot, ok := <-snapshots:
			_ = connection.SetWriteDeadline(time.Now().Add(handler.stream.WriteTimeout))
			if !ok {
				_ = connection.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				logger.Info("rate_stream_closed", slog.String("reason", "session"))
				return
			}
			if err := connection.WriteJSON(snapshot); err != nil {
				logger.Debug("rate_stream_write_failed", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			_ = connection.SetWriteDeadline(time.Now().Add(handler.stream.WriteTimeout))
			if err := connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
