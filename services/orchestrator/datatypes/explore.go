// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

// DefaultMaxStatementBytes bounds an inbound statement when no limit is
// configured.
const DefaultMaxStatementBytes = 4096

var exploreValidate *validator.Validate

func init() {
	exploreValidate = validator.New()
	_ = exploreValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks len(string) in bytes against the tag parameter;
// the built-in max tag counts runes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// StatementRequest is the inbound message on both the websocket and the
// synchronous endpoint.
type StatementRequest struct {
	Statement string `json:"statement"`
}

// Validate checks that the statement is present and at most maxBytes long.
// A non-positive maxBytes uses DefaultMaxStatementBytes.
func (r StatementRequest) Validate(maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxStatementBytes
	}
	if err := exploreValidate.Var(r.Statement, "required"); err != nil {
		return fmt.Errorf("statement is required")
	}
	if err := exploreValidate.Var(r.Statement, "maxbytes="+strconv.Itoa(maxBytes)); err != nil {
		return fmt.Errorf("statement exceeds %d bytes", maxBytes)
	}
	return nil
}

// ExploreResponse is the body of a synchronous exploration.
type ExploreResponse struct {
	SessionID string           `json:"session_id"`
	Events    []explorer.Event `json:"events"`
	Summary   explorer.Summary `json:"summary"`
}

// ErrorResponse is the body of a failed HTTP request.
type ErrorResponse struct {
	Error  string           `json:"error"`
	Events []explorer.Event `json:"events,omitempty"`
}
