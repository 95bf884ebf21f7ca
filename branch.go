package ticketflow

import (
	"regexp"
	"strings"
)

// branchSlugMax caps the sanitized summary portion of a derived branch name.
const branchSlugMax = 50

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)

// DeriveBranchName builds the deterministic work branch for a ticket:
// "feature/" plus the lowercased key and the sanitized summary. Runs of
// non-alphanumeric characters collapse to single hyphens and the summary
// slug is capped at 50 characters.
//
// Example: "PROJ-123", "Fix Login Bug!!" -> "feature/proj-123-fix-login-bug"
func DeriveBranchName(ticket Ticket) string {
	parts := []string{strings.ToLower(ticket.Key)}

	if slug := slugify(ticket.Summary); slug != "" {
		if len(slug) > branchSlugMax {
			slug = strings.TrimRight(slug[:branchSlugMax], "-")
		}
		parts = append(parts, slug)
	}

	return cleanBranch("feature/" + strings.Join(parts, "-"))
}

// slugify lowercases s and collapses every non-alphanumeric run into a
// single hyphen.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// cleanBranch collapses repeated hyphens and strips hyphens dangling at
// segment boundaries.
func cleanBranch(s string) string {
	s = repeatedHyphens.ReplaceAllString(s, "-")
	parts := strings.Split(s, "/")
	for i, part := range parts {
		parts[i] = strings.TrimRight(part, "-")
	}
	return strings.Join(parts, "/")
}
