package alerts

import "errors"

var (
	// ErrRuleNotFound is returned when a rule id is unknown or not owned by
	// the requesting user.
	ErrRuleNotFound = errors.New("alert rule not found")

	// ErrInvalidRule is returned for rules failing structural or
	// kind-specific validation.
	ErrInvalidRule = errors.New("invalid alert rule")

	// ErrEvaluationFailed wraps per-rule failures surfaced by a pass.
	ErrEvaluationFailed = errors.New("rule evaluation failed")
)
