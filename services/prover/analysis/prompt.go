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
	"fmt"
	"strings"
)

type example struct {
	statement string
	reply     string
}

// fewShot anchors the reply shape. The first entry is also the canonical
// smoke test: "1+2=3" as a goal is never elementary.
var fewShot = []example{
	{
		statement: "1+2=3",
		reply:     `{"is_provable": true, "is_elementary": false, "explanation": "A concrete sum; the goal is broken down into the operation it relies on.", "dependencies": ["adding 2 numbers"], "proof_sketch": "Count one object, then two more, and observe three in total."}`,
	},
	{
		statement: "adding 2 numbers",
		reply:     `{"is_provable": true, "is_elementary": true, "explanation": "Combining two counts into one count.", "dependencies": [], "proof_sketch": "Put two groups together and count everything."}`,
	},
	{
		statement: "The angles of a triangle sum to 180 degrees",
		reply:     `{"is_provable": true, "is_elementary": false, "explanation": "Classical Euclidean result.", "dependencies": ["A straight angle measures 180 degrees", "Alternate interior angles of parallel lines are equal", "Through a point off a line exactly one parallel can be drawn"], "proof_sketch": "Draw the parallel to one side through the opposite vertex and compare alternate angles."}`,
	},
}

// BuildPrompt renders the analysis request for statement in the context of
// its goal and the chain of ancestors leading back to it.
func BuildPrompt(statement, goal string, path []string) string {
	var b strings.Builder

	b.WriteString("You are breaking a mathematical or physical statement down into the simpler statements it depends on, ")
	b.WriteString("using knowledge available before Newton's death (1727).\n\n")

	fmt.Fprintf(&b, "Goal being proven: %q\n", goal)
	if len(path) > 0 {
		b.WriteString("Chain from the goal to this statement:\n")
		for i, p := range path {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
		}
	}
	fmt.Fprintf(&b, "Statement to analyze: %q\n\n", statement)

	b.WriteString("Reply with one JSON object with exactly these fields:\n")
	b.WriteString(`{"is_provable": boolean, "is_elementary": boolean, "explanation": string, "dependencies": [string], "proof_sketch": string}`)
	b.WriteString("\n\nGuidelines:\n")
	b.WriteString("- is_provable: true if it could be proven with knowledge available before 1727.\n")
	b.WriteString("- is_elementary: true if a 5th grader could understand it with a basic explanation.\n")
	b.WriteString("- The goal statement itself is never elementary, even if it appears again deeper in the chain.\n")
	fmt.Fprintf(&b, "- dependencies: 2 to %d simpler statements it depends on; empty when elementary.\n", MaxDependencies)
	b.WriteString("- Each dependency must be simpler than the statement and must not repeat anything in the chain.\n\n")

	b.WriteString("Examples:\n")
	for _, ex := range fewShot {
		fmt.Fprintf(&b, "Statement: %q\nReply: %s\n\n", ex.statement, ex.reply)
	}
	b.WriteString("Reply:")
	return b.String()
}
