package agentlauncher

import (
	"fmt"

	"github.com/cadre-run/cadre/internal/core"
)

// BackendKind is the static, configuration-selected backend tag.
type BackendKind string

const (
	BackendCopilotStyle BackendKind = "copilot"
	BackendClaudeStyle  BackendKind = "claude"
)

// NewBackend is the factory selecting a Backend by its configured kind.
func NewBackend(kind BackendKind, model string) (Backend, error) {
	switch kind {
	case BackendCopilotStyle:
		return &CopilotBackend{Model: model}, nil
	case BackendClaudeStyle:
		return &ClaudeBackend{Model: model}, nil
	default:
		return nil, core.ErrValidation("UNKNOWN_BACKEND", fmt.Sprintf("agentlauncher: unknown backend kind %q", kind))
	}
}
