// Package gateway dispatches catalog commands against the platform within a
// caller-supplied scope, and serves them over the direct query surface.
package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// Source identifies which surface issued a dispatch.
type Source string

const (
	SourceQuery Source = "query"
	SourceChat  Source = "chat"
	SourceMCP   Source = "mcp"
)

// Origin is request metadata carried on the context for auditing. It never
// influences which scope a command runs in.
type Origin struct {
	Source         Source
	ConversationID string
}

type originKey struct{}

// WithOrigin attaches origin metadata to ctx.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin attached to ctx, defaulting to SourceQuery.
func OriginFrom(ctx context.Context) Origin {
	if o, ok := ctx.Value(originKey{}).(Origin); ok {
		return o
	}
	return Origin{Source: SourceQuery}
}

// Record is one completed dispatch, handed to a Recorder.
type Record struct {
	Command string
	Scope   scope.Scope
	Origin  Origin
	Args    catalog.Args
	Result  Result
	Time    time.Time
	Elapsed time.Duration
}

// Recorder receives every completed dispatch.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// PushConfig holds the fixed settings applied by the push command.
type PushConfig struct {
	Buildpack    string
	RuntimeEnv   string
	RuntimeValue string
}

// DefaultPushConfig pins the offline Java buildpack to a Java 17 runtime.
func DefaultPushConfig() PushConfig {
	return PushConfig{
		Buildpack:    "java_buildpack_offline",
		RuntimeEnv:   "JBP_CONFIG_OPEN_JDK_JRE",
		RuntimeValue: "{ jre: { version: 17.+ } }",
	}
}

// handler is the shared invoke contract every command variant implements.
type handler func(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error)

// Dispatcher executes catalog commands synchronously. It is safe for
// concurrent use: the only shared state is the read-only catalog and
// handler table.
type Dispatcher struct {
	catalog  *catalog.Catalog
	client   platform.Client
	handlers map[string]handler
	push     PushConfig
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards logs.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRecorder sets a recorder notified after every dispatch.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithPushConfig overrides the push defaults.
func WithPushConfig(pc PushConfig) Option {
	return func(d *Dispatcher) { d.push = pc }
}

// New creates a Dispatcher. Every command in cat must have a handler.
func New(cat *catalog.Catalog, client platform.Client, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		catalog: cat,
		client:  client,
		push:    DefaultPushConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = d.buildHandlers()
	for _, name := range cat.Names() {
		if _, ok := d.handlers[name]; !ok {
			return nil, fmt.Errorf("command %q has no handler", name)
		}
	}
	return d, nil
}

// Catalog returns the catalog the dispatcher serves.
func (d *Dispatcher) Catalog() *catalog.Catalog { return d.catalog }

// Dispatch runs the named command in s. It never retries and never panics on
// collaborator errors: every failure comes back as a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, s scope.Scope, args catalog.Args) Result {
	start := time.Now()
	res := d.dispatch(ctx, name, s, args)
	elapsed := time.Since(start)

	origin := OriginFrom(ctx)
	fields := []zap.Field{
		zap.String("command", name),
		zap.String("org", s.Org),
		zap.String("space", s.Space),
		zap.String("source", string(origin.Source)),
		zap.Duration("elapsed", elapsed),
	}
	if res.OK() {
		d.logger.Info("dispatch succeeded", fields...)
	} else {
		fields = append(fields, zap.String("kind", string(res.Failure.Kind)), zap.String("error", res.Failure.Message))
		d.logger.Warn("dispatch failed", fields...)
	}

	if d.recorder != nil {
		d.recorder.Record(ctx, Record{
			Command: name,
			Scope:   s,
			Origin:  origin,
			Args:    args,
			Result:  res,
			Time:    start,
			Elapsed: elapsed,
		})
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, s scope.Scope, args catalog.Args) Result {
	spec, ok := d.catalog.Lookup(name)
	if !ok {
		return failure(name, &Failure{Kind: KindUnknownCommand, Message: fmt.Sprintf("unknown command %q", name)})
	}
	h, ok := d.handlers[name]
	if !ok {
		return failure(name, &Failure{Kind: KindUnknownCommand, Message: fmt.Sprintf("command %q is not dispatchable", name)})
	}

	if args == nil {
		args = catalog.Args{}
	}
	if missing, ok := spec.MissingRequired(args); ok {
		return failure(name, &Failure{
			Kind:      KindMissingParameter,
			Message:   fmt.Sprintf("missing required parameter %q", missing),
			Parameter: missing,
		})
	}

	// A fresh handle per dispatch: nothing is cached across calls.
	ops := d.client.Operations(s)

	payload, err := h(ctx, ops, args)
	if err != nil {
		return failure(name, toFailure(err))
	}
	return success(name, payload)
}
