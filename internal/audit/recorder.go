package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/gateway"
)

// redacted replaces argument values that must not be written to the trail.
const redacted = "[redacted]"

// sensitiveParams have their values masked before storage.
var sensitiveParams = map[string]bool{
	catalog.ParamCredentials: true,
}

// Recorder writes gateway dispatches to the store. It implements
// gateway.Recorder; storage errors are logged, never returned to callers.
type Recorder struct {
	store  *Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder. A nil logger discards storage errors.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// Record stores one dispatch.
func (r *Recorder) Record(ctx context.Context, rec gateway.Record) {
	entry := Entry{
		Timestamp:      rec.Time,
		Command:        rec.Command,
		Org:            rec.Scope.Org,
		Space:          rec.Scope.Space,
		ConversationID: rec.Origin.ConversationID,
		Source:         Source(rec.Origin.Source),
		Args:           redact(rec.Args),
		Outcome:        OutcomeOK,
		ElapsedMS:      rec.Elapsed.Milliseconds(),
	}
	if f := rec.Result.Failure; f != nil {
		entry.Outcome = string(f.Kind)
		entry.Message = f.Message
	}

	// The request may already be finished; the trail must still be written.
	if err := r.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Error("writing dispatch audit entry", zap.String("command", rec.Command), zap.Error(err))
	}
}

func redact(args catalog.Args) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if sensitiveParams[k] {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}
