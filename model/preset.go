package model

// Presets are the named splitting profiles understood by the backend,
// ordered from most to least strict. "normal" is the recommended default.
var Presets = []string{
	"extra strict",
	"strict",
	"normal",
	"lenient",
	"extra lenient",
}

// DefaultPreset is used when an import does not name a preset.
const DefaultPreset = "normal"

// ValidPreset reports whether name is a known splitting preset.
func ValidPreset(name string) bool {
	for _, p := range Presets {
		if p == name {
			return true
		}
	}
	return false
}
