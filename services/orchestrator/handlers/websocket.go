// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/proofgraph/services/orchestrator/datatypes"
	"github.com/AleutianAI/proofgraph/services/orchestrator/middleware"
	"github.com/AleutianAI/proofgraph/services/orchestrator/observability"
	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

// WebSocketConfig bounds one websocket connection.
type WebSocketConfig struct {
	AllowedOrigins    []string
	WriteTimeout      time.Duration
	MaxStatementBytes int

	// Screener, when set, vets each statement before its session starts.
	Screener Screener
}

type inboundMessage struct {
	statement string
	err       error
}

// HandleExploreWebSocket serves the streaming endpoint. Each inbound
// {"statement": ...} message runs one session; sessions on a connection
// run one after another. Blank statements are ignored. When the client
// disconnects, the running session is abandoned without further writes.
func HandleExploreWebSocket(runner SessionRunner, cfg WebSocketConfig,
	metrics *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {

	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(cfg.AllowedOrigins, r.Header.Get("Origin"))
		},
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 64 * 1024,
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("failed to upgrade the websocket", "error", err)
			return
		}
		conn := &sessionConn{
			ws:      ws,
			runner:  runner,
			cfg:     cfg,
			metrics: metrics,
			logger:  logger.With("remote", c.ClientIP()),
		}
		conn.serve(c.Request.Context())
	}
}

// sessionConn owns one websocket. Only the serve goroutine writes; only the
// read loop reads.
type sessionConn struct {
	ws      *websocket.Conn
	runner  SessionRunner
	cfg     WebSocketConfig
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (sc *sessionConn) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer sc.ws.Close()

	sc.metrics.ConnectionOpened()
	defer sc.metrics.ConnectionClosed()
	sc.logger.Info("Websocket client connected")

	inbound := make(chan inboundMessage)
	go sc.readLoop(ctx, cancel, inbound)

	for {
		select {
		case <-ctx.Done():
			sc.logger.Info("Websocket client disconnected")
			return
		case msg, ok := <-inbound:
			if !ok {
				sc.logger.Info("Websocket client disconnected")
				return
			}
			sc.handle(ctx, msg)
		}
	}
}

// readLoop decodes inbound frames until the connection fails, then cancels
// ctx so any running session stops.
func (sc *sessionConn) readLoop(ctx context.Context, cancel context.CancelFunc, out chan<- inboundMessage) {
	defer close(out)
	defer cancel()
	for {
		_, data, err := sc.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sc.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var req datatypes.StatementRequest
		msg := inboundMessage{}
		if err := json.Unmarshal(data, &req); err != nil {
			msg.err = fmt.Errorf("invalid message: %w", err)
		} else {
			msg.statement = req.Statement
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (sc *sessionConn) handle(ctx context.Context, msg inboundMessage) {
	if msg.err != nil {
		sc.sendError(ctx, msg.err.Error())
		return
	}
	statement := strings.TrimSpace(msg.statement)
	if statement == "" {
		sc.logger.Debug("ignoring blank statement")
		return
	}
	if err := checkStatement(statement, sc.cfg.MaxStatementBytes, sc.cfg.Screener); err != nil {
		sc.sendError(ctx, err.Error())
		return
	}

	_, err := sc.run(ctx, statement)
	if err == nil {
		return
	}
	var emitErr *explorer.EmitError
	if ctx.Err() != nil || errors.As(err, &emitErr) {
		sc.logger.Info("session abandoned", "error", err)
		return
	}
	sc.logger.Error("session failed", "error", err)
	sc.sendError(ctx, err.Error())
}

// run executes one session, turning a panic into an error so the
// connection survives it.
func (sc *sessionConn) run(ctx context.Context, statement string) (summary explorer.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panicked: %v", r)
		}
	}()
	return sc.runner.Run(ctx, statement, explorer.EmitterFunc(sc.write))
}

func (sc *sessionConn) write(_ context.Context, ev explorer.Event) error {
	if err := sc.ws.SetWriteDeadline(time.Now().Add(sc.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := sc.ws.WriteJSON(ev); err != nil {
		sc.logger.Warn("Failed to write WebSocket JSON", "error", err)
		return err
	}
	sc.metrics.RecordEvent(ev.Type)
	return nil
}

func (sc *sessionConn) sendError(ctx context.Context, message string) {
	_ = sc.write(ctx, explorer.ErrorEvent(message))
}
