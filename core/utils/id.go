package utils

import (
	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func GenerateID() string {
	id, err := gonanoid.Generate(idAlphabet, 7)
	if err != nil {
		return ""
	}
	return id
}

// GenerateShareSlug builds a URL-safe handle such as "team-sync-4fQ2x9A".
func GenerateShareSlug(title string) string {
	base := slug.Make(title)
	if len(base) > 48 {
		base = base[:48]
	}
	if base == "" {
		return GenerateID()
	}
	return base + "-" + GenerateID()
}
