//go:build !embed_model

package provider

import "embed"

// Without the embed_model tag the FS stays empty and model files must be
// present on disk.
var embeddedModelFS embed.FS

const hasEmbeddedModel = false
