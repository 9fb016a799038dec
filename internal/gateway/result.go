package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/platform"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindUnknownCommand   Kind = "unknown_command"
	KindMissingParameter Kind = "missing_parameter"
	KindInvalidParameter Kind = "invalid_parameter"
	KindScopeNotFound    Kind = "scope_not_found"
	KindNotFound         Kind = "not_found"
	KindUnauthorized     Kind = "unauthorized"
	KindConflict         Kind = "conflict"
	KindTransport        Kind = "transport"
	KindPartialSequence  Kind = "partial_sequence_failure"
	KindInternal         Kind = "internal"
)

// Failure is the failed arm of a Result. For partial sequence failures Step
// names the step that failed and StepKind classifies its error.
type Failure struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Parameter string `json:"parameter,omitempty"`
	Step      string `json:"step,omitempty"`
	StepKind  Kind   `json:"step_kind,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is either a success carrying a command-specific payload (which may
// be nil for commands with no value) or a Failure.
type Result struct {
	Command string
	Payload any
	Failure *Failure
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// MarshalJSON renders {"ok":true,"result":...} or {"ok":false,"kind":...,"error":...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failure == nil {
		return json.Marshal(struct {
			OK      bool   `json:"ok"`
			Command string `json:"command"`
			Result  any    `json:"result"`
		}{true, r.Command, r.Payload})
	}
	return json.Marshal(struct {
		OK        bool   `json:"ok"`
		Command   string `json:"command"`
		Kind      Kind   `json:"kind"`
		Error     string `json:"error"`
		Parameter string `json:"parameter,omitempty"`
		Step      string `json:"step,omitempty"`
		StepKind  Kind   `json:"step_kind,omitempty"`
	}{false, r.Command, r.Failure.Kind, r.Failure.Message, r.Failure.Parameter, r.Failure.Step, r.Failure.StepKind})
}

func success(command string, payload any) Result {
	return Result{Command: command, Payload: payload}
}

func failure(command string, f *Failure) Result {
	return Result{Command: command, Failure: f}
}

// kindFromPlatform maps collaborator error kinds onto the gateway taxonomy.
func kindFromPlatform(k platform.ErrorKind) Kind {
	switch k {
	case platform.KindNotFound:
		return KindNotFound
	case platform.KindScopeNotFound:
		return KindScopeNotFound
	case platform.KindUnauthorized:
		return KindUnauthorized
	case platform.KindConflict:
		return KindConflict
	case platform.KindTransport:
		return KindTransport
	case platform.KindInvalid:
		return KindInvalidParameter
	default:
		return KindInternal
	}
}

// stepError marks which step of a multi-step command failed.
type stepError struct {
	step  string
	first bool
	err   error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// toFailure translates a handler error. The collaborator's message is kept
// verbatim.
func toFailure(err error) *Failure {
	var argErr *catalog.ArgError
	if errors.As(err, &argErr) {
		return &Failure{Kind: KindInvalidParameter, Message: argErr.Error(), Parameter: argErr.Param}
	}

	var se *stepError
	if errors.As(err, &se) {
		inner := toFailure(se.err)
		if se.first {
			// Nothing changed on the platform yet; report the step's own kind.
			inner.Step = se.step
			return inner
		}
		return &Failure{
			Kind:     KindPartialSequence,
			Message:  fmt.Sprintf("%s failed after earlier steps completed: %s", se.step, inner.Message),
			Step:     se.step,
			StepKind: inner.Kind,
		}
	}

	return &Failure{Kind: kindFromPlatform(platform.KindOf(err)), Message: err.Error()}
}
