package services

import "strings"

// likeEscaper escapes LIKE wildcards with '!' so user text matches literally.
// Every pattern built with containsPattern must be paired with ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern lowercases a search term and wraps it for a substring LIKE
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}
