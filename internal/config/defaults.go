package config

// DefaultConfigYAML contains the default configuration YAML content.
// This is used by `cadre init` to seed a new project's config file.
const DefaultConfigYAML = `# cadre configuration
# Documentation: https://github.com/cadre-run/cadre/blob/main/docs/CONFIGURATION.md
#
# Values not specified here use sensible defaults. See docs for all options.

log:
  level: info       # debug | info | warn | error
  format: auto       # auto | text | json
  file: ""           # empty = stderr only

# Fleet and per-issue concurrency
fleet:
  max_parallel_issues: 3
  max_parallel_agents: 1
  max_retries_per_task: 2
  agent_timeout: 20m
  dry_run: false

# Agent backend selection. Only claude and copilot are supported launchers.
agent:
  default: claude

  claude:
    path: claude
    model: ""   # empty = launcher's own default

  copilot:
    path: copilot
    model: ""

# Token budgets. Zero means unlimited.
budget:
  fleet_token_budget: 0
  per_issue_token_budget: 0

# Worktree provisioning and commit signing
git:
  worktree_root: .cadre/worktrees
  base_branch: ""   # empty = repository default branch
  gpg_sign: false

# Code-hosting platform used for PR composition and triage filing
github:
  provider: github   # github | gitlab
  remote: origin
  token: ""          # empty = read from environment (GITHUB_TOKEN / GITLAB_TOKEN)
  wait_for_checks: false   # poll CI status after opening a PR, before compose-pr returns
  checks_timeout: 30m

# End-of-run triage filing policy
triage:
  min_severity: medium   # critical | severe | high | medium | low
  max_issues_per_run: 5
  labels:
    - triage

# Checkpoint and run state
state:
  base_dir: .cadre/state
`
