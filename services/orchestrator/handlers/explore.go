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
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/proofgraph/services/orchestrator/datatypes"
	"github.com/AleutianAI/proofgraph/services/policy_engine"
	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

// SessionRunner runs one exploration. *explorer.Controller implements it.
type SessionRunner interface {
	Run(ctx context.Context, statement string, emitter explorer.Emitter) (explorer.Summary, error)
}

// Screener vets a statement before any of it is sent to the LLM backend.
// *policy_engine.PolicyEngine implements it.
type Screener interface {
	Screen(statement string) error
}

// checkStatement applies the size limit and then the screen, if any.
func checkStatement(statement string, maxBytes int, screener Screener) error {
	if err := (datatypes.StatementRequest{Statement: statement}).Validate(maxBytes); err != nil {
		return err
	}
	if screener == nil {
		return nil
	}
	return screener.Screen(statement)
}

// HandleExplore runs a session to completion inside the request and returns
// every event at once. Clients that cannot hold a websocket use this.
func HandleExplore(runner SessionRunner, maxStatementBytes int, screener Screener, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		var req datatypes.StatementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		req.Statement = strings.TrimSpace(req.Statement)
		if err := checkStatement(req.Statement, maxStatementBytes, screener); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, policy_engine.ErrRejected) {
				logger.Warn("statement rejected by screen", "error", err)
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		ctx := c.Request.Context()
		collector := explorer.NewCollector(nil)
		summary, err := runner.Run(ctx, req.Statement, collector)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("explore request abandoned by client", "error", err)
				return
			}
			logger.Error("explore request failed", "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, explorer.ErrEmptyStatement) {
				status = http.StatusBadRequest
			}
			c.JSON(status, datatypes.ErrorResponse{Error: err.Error(), Events: collector.Events()})
			return
		}

		c.JSON(http.StatusOK, datatypes.ExploreResponse{
			SessionID: summary.SessionID,
			Events:    collector.Events(),
			Summary:   summary,
		})
	}
}
