// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package enforcement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestDataClassificationPatterns_Embedded(t *testing.T) {
	assert.NotEmpty(t, DataClassificationPatterns)

	var doc struct {
		Classifications []struct {
			Name     string `yaml:"name"`
			Patterns []any  `yaml:"patterns"`
		} `yaml:"classifications"`
	}
	assert.NoError(t, yaml.Unmarshal(DataClassificationPatterns, &doc))
	assert.NotEmpty(t, doc.Classifications)
	for _, c := range doc.Classifications {
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Patterns, "classification %s has no patterns", c.Name)
	}
}
