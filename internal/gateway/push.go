package gateway

import (
	"context"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/platform"
)

// Push steps, reported in Failure.Step.
const (
	StepUpload    = "upload"
	StepConfigure = "configure-runtime"
	StepStart     = "start"
)

// runPush uploads the application stopped, pins the runtime version through
// an environment variable, then starts it unless no_start is true. Steps run
// in order and stop at the first failure. Nothing is rolled back: a failed
// configure or start leaves the stopped application in place.
func (d *Dispatcher) runPush(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error) {
	name, err := args.String(catalog.ParamName)
	if err != nil {
		return nil, err
	}
	path, err := args.String(catalog.ParamPath)
	if err != nil {
		return nil, err
	}
	noStart, err := args.OptionalBool(catalog.ParamNoStart)
	if err != nil {
		return nil, err
	}
	req := platform.PushRequest{Name: name, Path: path, Buildpack: d.push.Buildpack}
	if req.MemoryMB, err = args.OptionalInt(catalog.ParamMemory); err != nil {
		return nil, err
	}
	if req.DiskMB, err = args.OptionalInt(catalog.ParamDisk); err != nil {
		return nil, err
	}

	if err := ops.PushApplication(ctx, req); err != nil {
		return nil, &stepError{step: StepUpload, first: true, err: err}
	}

	if d.push.RuntimeEnv != "" {
		if err := ops.SetEnvironmentVariable(ctx, name, d.push.RuntimeEnv, d.push.RuntimeValue); err != nil {
			return nil, &stepError{step: StepConfigure, err: err}
		}
	}

	if noStart != nil && *noStart {
		return nil, nil
	}
	if err := ops.StartApplication(ctx, name); err != nil {
		return nil, &stepError{step: StepStart, err: err}
	}
	return nil, nil
}
