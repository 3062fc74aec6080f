package workflow

import (
	"strings"

	"WaveSplit/model"
)

// RenderFileName substitutes the {TITLE}, {ARTIST}, {ALBUM} and {YEAR}
// placeholders of an output name template. A template should contain at
// least one placeholder, otherwise every export renders the same name.
func RenderFileName(template string, m model.Metadata) string {
	r := strings.NewReplacer(
		"{TITLE}", m.Title,
		"{ARTIST}", m.Artist,
		"{ALBUM}", m.Album,
		"{YEAR}", m.Year,
	)
	return r.Replace(template)
}

// SanitizeFileName strips characters that are unsafe in file names on any
// of the supported platforms. An empty result falls back to "untitled".
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			// dropped
		default:
			if r >= 0x20 {
				b.WriteRune(r)
			}
		}
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "untitled"
	}
	return out
}
