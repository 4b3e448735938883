// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis asks an LLM whether a statement is elementary and, if
// not, which simpler statements it depends on.
package analysis

import (
	"errors"
	"time"
)

// MaxDependencies caps how many dependencies one analysis may contribute.
const MaxDependencies = 4

// ErrEmptyStatement is returned when Analyze is called with a blank statement.
var ErrEmptyStatement = errors.New("analysis: statement must not be empty")

// Result is the structured judgment for one statement.
type Result struct {
	IsProvable   bool     `json:"is_provable"`
	IsElementary bool     `json:"is_elementary"`
	Explanation  string   `json:"explanation"`
	Dependencies []string `json:"dependencies"`
	ProofSketch  string   `json:"proof_sketch"`

	// Degraded marks the fallback result produced after retries ran out.
	Degraded bool `json:"-"`
}

// DegradedResult is returned when every attempt failed. The node is kept
// as a non-elementary leaf so its branch ends without failing the session.
func DegradedResult() Result {
	return Result{
		IsProvable:   true,
		IsElementary: false,
		Explanation:  "Analysis failed after multiple retries",
		Dependencies: []string{},
		ProofSketch:  "Unable to analyze",
		Degraded:     true,
	}
}

// Outcome labels used for metrics and span attributes.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeCached   = "cached"
)

// Recorder receives one observation per Analyze call. A nil Recorder is
// allowed everywhere.
type Recorder interface {
	RecordAnalysis(outcome string, attempts int, d time.Duration)
}
