package agentlauncher

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/cadre-run/cadre/internal/core"
)

// usageJSON mirrors the usage object both backends may emit on stdout.
type usageJSON struct {
	Usage struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

var tokenRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total tokens:\s*([\d,]+)`),
	regexp.MustCompile(`(?i)tokens used:\s*([\d,]+)`),
	regexp.MustCompile(`(?i)usage:\s*([\d,]+)\s*tokens`),
}

// parseTokenUsage implements the ordered strategy: parse stdout as JSON and
// sum the four usage fields; otherwise try three regex patterns over
// stdout+stderr; otherwise return zero.
func parseTokenUsage(stdout, stderr string) core.TokenUsage {
	var parsed usageJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &parsed); err == nil {
		u := parsed.Usage
		if u.InputTokens+u.OutputTokens+u.CacheReadInputTokens+u.CacheCreationInputTokens > 0 {
			total := u.InputTokens + u.OutputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
			return core.TokenUsage{Input: u.InputTokens, Output: u.OutputTokens, Total: total}
		}
	}

	combined := stdout + "\n" + stderr
	for _, re := range tokenRegexes {
		if m := re.FindStringSubmatch(combined); len(m) == 2 {
			n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
			if err == nil {
				return core.TokenUsage{Total: n}
			}
		}
	}
	return core.TokenUsage{}
}
