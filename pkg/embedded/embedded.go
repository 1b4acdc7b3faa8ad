package embedded

import (
	_ "embed"
)

// Built-in harmonization presets.
//
//go:embed data/presets.yaml
var PresetsYAML []byte
