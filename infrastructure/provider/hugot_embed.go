//go:build embed_model

package provider

import "embed"

// Model files under models/ are compiled into the binary so it can embed
// text without any download step.
//
//go:embed all:models
var embeddedModelFS embed.FS

const hasEmbeddedModel = true
