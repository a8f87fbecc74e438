package worktree

import (
	"fmt"
	"regexp"
	"strings"
)

const maxBranchLength = 100

var invalidBranchChars = regexp.MustCompile(`[^a-z0-9/_-]`)
var repeatedDashes = regexp.MustCompile(`-{2,}`)

// IssueBranchName derives the sanitized branch name for an issue from the
// `cadre/issue-{issue}` template.
func IssueBranchName(issueNumber int) string {
	return SanitizeBranch(fmt.Sprintf("cadre/issue-%d", issueNumber))
}

// DepsBranchName derives the synthetic merge base used by
// Provision-with-deps.
func DepsBranchName(issueNumber int) string {
	return SanitizeBranch(fmt.Sprintf("cadre/deps-%d", issueNumber))
}

// SanitizeBranch lowercases, replaces any run of characters outside
// [a-z0-9/_-] with a single dash, and truncates to maxBranchLength. It is
// idempotent: SanitizeBranch(SanitizeBranch(x)) == SanitizeBranch(x).
func SanitizeBranch(name string) string {
	lowered := strings.ToLower(name)
	replaced := invalidBranchChars.ReplaceAllString(lowered, "-")
	collapsed := repeatedDashes.ReplaceAllString(replaced, "-")
	collapsed = strings.Trim(collapsed, "-")
	if len(collapsed) > maxBranchLength {
		collapsed = collapsed[:maxBranchLength]
		collapsed = strings.TrimRight(collapsed, "-")
	}
	return collapsed
}
