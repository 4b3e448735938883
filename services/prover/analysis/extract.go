// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedReply is wrapped by ParseReply when the model's text holds no
// usable JSON object.
var ErrMalformedReply = errors.New("malformed analysis reply")

const fence = "```"

// extractPayload returns the body of the first fenced block in raw, preferring
// a ```json block. Without a fence the whole text is returned.
func extractPayload(raw string) string {
	start := strings.Index(raw, fence+"json")
	skip := len(fence) + len("json")
	if start < 0 {
		start = strings.Index(raw, fence)
		skip = len(fence)
	}
	if start < 0 {
		return strings.TrimSpace(raw)
	}
	body := raw[start+skip:]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ParseReply turns raw model output into a Result. Missing fields take their
// zero values; Dependencies is never nil.
func ParseReply(raw string) (Result, error) {
	payload := extractPayload(raw)
	if !strings.HasPrefix(payload, "{") {
		return Result{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedReply)
	}
	var r Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if r.Dependencies == nil {
		r.Dependencies = []string{}
	}
	return r, nil
}
