// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy_engine screens user statements for credentials and
// personal data before they are forwarded to an external LLM backend.
package policy_engine

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/proofgraph/services/policy_engine/enforcement"
)

// PolicyEngine holds the compiled classification rules.
type PolicyEngine struct {
	classifications []Classification
	minConfidence   ConfidenceLevel
}

// NewPolicyEngine loads the embedded rule set. Screen rejects on findings
// at or above minConfidence.
func NewPolicyEngine(minConfidence ConfidenceLevel) (*PolicyEngine, error) {
	return NewPolicyEngineFromYAML(enforcement.DataClassificationPatterns, minConfidence)
}

// NewPolicyEngineFromYAML builds an engine from a rule document in the
// embedded format.
func NewPolicyEngineFromYAML(data []byte, minConfidence ConfidenceLevel) (*PolicyEngine, error) {
	if minConfidence == "" {
		minConfidence = High
	}
	var file classificationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the policy file: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	file.sortByPriority()
	return &PolicyEngine{classifications: file.Classifications, minConfidence: minConfidence}, nil
}

// Scan returns every matching pattern, highest priority first.
func (e *PolicyEngine) Scan(text string) []Finding {
	var findings []Finding
	for _, c := range e.classifications {
		for _, p := range c.Patterns {
			if p.compiled.MatchString(text) {
				findings = append(findings, Finding{
					Classification: c.Name,
					PatternID:      p.ID,
					Description:    p.Description,
					Confidence:     p.Confidence,
				})
			}
		}
	}
	return findings
}

// Screen returns a *RejectionError for the first finding that meets the
// engine's confidence threshold.
func (e *PolicyEngine) Screen(statement string) error {
	for _, f := range e.Scan(statement) {
		if f.Confidence.AtLeast(e.minConfidence) {
			return &RejectionError{Finding: f}
		}
	}
	return nil
}
