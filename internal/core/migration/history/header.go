// Package history persists the oracle's native definitions inside migration
// files and restores them, with the views baseline, at the start of a run.
package history

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

// Header markers.
const (
	IdentityMarker = "KMIGRATOR"
	ViewsMarker    = "KMIGRATOR_VIEWS"
)

var (
	identityTagPattern = regexp.MustCompile(`(?m)^// KMIGRATOR:(.*?):([A-Za-z0-9+/=]*?)$`)
	viewsTagPattern    = regexp.MustCompile(`(?m)^// KMIGRATOR_VIEWS:(.*?):([A-Za-z0-9+/=]*?)$`)
)

// Tag is one decoded header line.
type Tag struct {
	Name    string
	Payload []byte
}

// FormatTag renders a header line.
func FormatTag(marker, name string, payload []byte) string {
	return "// " + marker + ":" + name + ":" + base64.StdEncoding.EncodeToString(payload)
}

// IdentityTags returns every identity tag of a migration file, in order.
func IdentityTags(text string) ([]Tag, error) {
	return findTags(identityTagPattern, text)
}

// ViewsTags returns every views tag of a migration file, in order.
func ViewsTags(text string) ([]Tag, error) {
	return findTags(viewsTagPattern, text)
}

func findTags(pattern *regexp.Regexp, text string) ([]Tag, error) {
	var tags []Tag
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		payload, err := base64.StdEncoding.DecodeString(m[2])
		if err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", m[1], err)
		}
		tags = append(tags, Tag{Name: m[1], Payload: payload})
	}
	return tags, nil
}
