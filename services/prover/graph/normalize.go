// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison key for a statement: NFC composed,
// whitespace runs collapsed to one space, trimmed, and case folded.
//
// Two statements are the same graph node when their keys are equal, so
// "x + y = z" and "X  +  Y = Z" collapse to one node.
func Normalize(statement string) string {
	s := norm.NFC.String(statement)
	s = strings.Join(strings.Fields(s), " ")
	// cases.Caser is stateful; one per call keeps this safe across goroutines.
	return cases.Fold().String(s)
}
