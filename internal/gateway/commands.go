package gateway

import (
	"context"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/platform"
)

// buildHandlers returns one handler per catalog command.
func (d *Dispatcher) buildHandlers() map[string]handler {
	return map[string]handler{
		catalog.ApplicationsList: func(ctx context.Context, ops platform.Operations, _ catalog.Args) (any, error) {
			apps, err := ops.ListApplications(ctx)
			return nonNil(apps), err
		},
		catalog.ApplicationDetails: withName(catalog.ParamName, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return ops.GetApplication(ctx, name)
		}),
		catalog.Push:  d.runPush,
		catalog.Scale: runScale,
		catalog.Start: withName(catalog.ParamName, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return nil, ops.StartApplication(ctx, name)
		}),
		catalog.Stop: withName(catalog.ParamName, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return nil, ops.StopApplication(ctx, name)
		}),
		catalog.Restart: withName(catalog.ParamName, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return nil, ops.RestartApplication(ctx, name)
		}),
		catalog.ApplicationDelete: withName(catalog.ParamName, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return nil, ops.DeleteApplication(ctx, name)
		}),

		catalog.OrganizationsList: func(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error) {
			filter, err := args.String(catalog.ParamOrgFilter)
			if err != nil {
				return nil, err
			}
			orgs, err := ops.ListOrganizations(ctx, filter)
			return nonNil(orgs), err
		},
		catalog.SpacesList: func(ctx context.Context, ops platform.Operations, _ catalog.Args) (any, error) {
			spaces, err := ops.ListSpaces(ctx)
			return nonNil(spaces), err
		},
		catalog.SpaceQuota: withName(catalog.ParamSpaceName, func(ctx context.Context, ops platform.Operations, space string) (any, error) {
			return ops.GetSpaceQuota(ctx, space)
		}),

		catalog.ServiceInstancesList: func(ctx context.Context, ops platform.Operations, _ catalog.Args) (any, error) {
			instances, err := ops.ListServiceInstances(ctx)
			return nonNil(instances), err
		},
		catalog.ServiceInstanceDetails: withName(catalog.ParamServiceInstance, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return ops.GetServiceInstance(ctx, name)
		}),
		catalog.ServiceOfferingsList: func(ctx context.Context, ops platform.Operations, _ catalog.Args) (any, error) {
			offerings, err := ops.ListServiceOfferings(ctx)
			return nonNil(offerings), err
		},
		catalog.ServiceBind: withBinding(func(ctx context.Context, ops platform.Operations, instance, app string) error {
			return ops.BindService(ctx, instance, app)
		}),
		catalog.ServiceUnbind: withBinding(func(ctx context.Context, ops platform.Operations, instance, app string) error {
			return ops.UnbindService(ctx, instance, app)
		}),
		catalog.ServiceInstanceDelete: withName(catalog.ParamServiceInstance, func(ctx context.Context, ops platform.Operations, name string) (any, error) {
			return nil, ops.DeleteServiceInstance(ctx, name)
		}),
		catalog.UserProvidedCreate: runCreateUserProvided,
	}
}

func withName(param string, fn func(ctx context.Context, ops platform.Operations, name string) (any, error)) handler {
	return func(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error) {
		name, err := args.String(param)
		if err != nil {
			return nil, err
		}
		payload, err := fn(ctx, ops, name)
		if err != nil {
			return nil, err
		}
		return payload, nil
	}
}

func withBinding(fn func(ctx context.Context, ops platform.Operations, instance, app string) error) handler {
	return func(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error) {
		instance, err := args.String(catalog.ParamServiceInstance)
		if err != nil {
			return nil, err
		}
		app, err := args.String(catalog.ParamApplication)
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, ops, instance, app)
	}
}

// runScale forwards only the attributes the caller supplied; omitted ones
// stay nil so the platform leaves them unchanged.
func runScale(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error) {
	name, err := args.String(catalog.ParamName)
	if err != nil {
		return nil, err
	}
	req := platform.ScaleRequest{Name: name}
	if req.Instances, err = args.OptionalInt(catalog.ParamInstances); err != nil {
		return nil, err
	}
	if req.MemoryMB, err = args.OptionalInt(catalog.ParamMemory); err != nil {
		return nil, err
	}
	if req.DiskMB, err = args.OptionalInt(catalog.ParamDisk); err != nil {
		return nil, err
	}
	return nil, ops.ScaleApplication(ctx, req)
}

func runCreateUserProvided(ctx context.Context, ops platform.Operations, args catalog.Args) (any, error) {
	name, err := args.String(catalog.ParamServiceInstance)
	if err != nil {
		return nil, err
	}
	creds, err := args.StringMap(catalog.ParamCredentials)
	if err != nil {
		return nil, err
	}
	tags, err := args.StringList(catalog.ParamTags)
	if err != nil {
		return nil, err
	}
	return nil, ops.CreateUserProvidedServiceInstance(ctx, platform.UserProvidedRequest{
		Name:        name,
		Credentials: creds,
		Tags:        tags,
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
