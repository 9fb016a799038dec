package cf

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
)

// instanceQuery asks for the plan and offering names alongside instances.
func instanceQuery(spaceGUID string) url.Values {
	return url.Values{
		"space_guids":                           {spaceGUID},
		"order_by":                              {"name"},
		"fields[service_plan]":                  {"guid,name,relationships.service_offering"},
		"fields[service_plan.service_offering]": {"guid,name"},
	}
}

func (o *operations) serviceInstances(ctx context.Context, name string) ([]platform.ServiceInstance, error) {
	spaceGUID, err := o.space(ctx)
	if err != nil {
		return nil, err
	}
	q := instanceQuery(spaceGUID)
	if name != "" {
		q.Set("names", name)
	}
	instances, inc, err := list[serviceInstance](ctx, o.c, "/v3/service_instances", q)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return []platform.ServiceInstance{}, nil
	}

	bound, err := o.boundApps(ctx, instances)
	if err != nil {
		return nil, err
	}

	plans := make(map[string]servicePlan, len(inc.ServicePlans))
	for _, p := range inc.ServicePlans {
		plans[p.GUID] = p
	}
	offerings := make(map[string]string, len(inc.ServiceOfferings))
	for _, so := range inc.ServiceOfferings {
		offerings[so.GUID] = so.Name
	}

	out := make([]platform.ServiceInstance, 0, len(instances))
	for _, si := range instances {
		s := platform.ServiceInstance{
			ServiceInstanceSummary: platform.ServiceInstanceSummary{
				ID:           si.GUID,
				Name:         si.Name,
				Type:         si.Type,
				Applications: bound[si.GUID],
			},
			Tags:         si.Tags,
			DashboardURL: si.DashboardURL,
		}
		if plan, ok := plans[si.Relationships.ServicePlan.guid()]; ok {
			s.Plan = plan.Name
			s.Service = offerings[plan.Relationships.ServiceOffering.guid()]
		}
		if op := si.LastOperation; op != nil {
			s.LastOperation = strings.TrimSpace(op.Type + " " + op.State)
			s.Description = op.Description
		}
		out = append(out, s)
	}
	return out, nil
}

// boundApps maps instance GUIDs to the names of their bound applications.
func (o *operations) boundApps(ctx context.Context, instances []serviceInstance) (map[string][]string, error) {
	guids := make([]string, 0, len(instances))
	for _, si := range instances {
		guids = append(guids, si.GUID)
	}
	bindings, inc, err := list[credentialBinding](ctx, o.c, "/v3/service_credential_bindings", url.Values{
		"service_instance_guids": {strings.Join(guids, ",")},
		"type":                   {"app"},
		"include":                {"app"},
	})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(inc.Apps))
	for _, a := range inc.Apps {
		names[a.GUID] = a.Name
	}
	out := make(map[string][]string)
	for _, b := range bindings {
		si := b.Relationships.ServiceInstance.guid()
		if n := names[b.Relationships.App.guid()]; n != "" {
			out[si] = append(out[si], n)
		}
	}
	for _, apps := range out {
		sort.Strings(apps)
	}
	return out, nil
}

func (o *operations) ListServiceInstances(ctx context.Context) ([]platform.ServiceInstanceSummary, error) {
	instances, err := o.serviceInstances(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]platform.ServiceInstanceSummary, 0, len(instances))
	for _, si := range instances {
		out = append(out, si.ServiceInstanceSummary)
	}
	return out, nil
}

func (o *operations) GetServiceInstance(ctx context.Context, name string) (*platform.ServiceInstance, error) {
	instances, err := o.serviceInstances(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, platform.NotFound("service instance", name)
	}
	return &instances[0], nil
}

func (o *operations) findInstance(ctx context.Context, name string) (string, error) {
	spaceGUID, err := o.space(ctx)
	if err != nil {
		return "", err
	}
	found, _, err := list[named](ctx, o.c, "/v3/service_instances", url.Values{
		"names":       {name},
		"space_guids": {spaceGUID},
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", platform.NotFound("service instance", name)
	}
	return found[0].GUID, nil
}

func (o *operations) ListServiceOfferings(ctx context.Context) ([]platform.ServiceOffering, error) {
	offerings, inc, err := list[serviceOffering](ctx, o.c, "/v3/service_offerings", url.Values{
		"order_by":               {"name"},
		"fields[service_broker]": {"guid,name"},
	})
	if err != nil {
		return nil, err
	}
	if len(offerings) == 0 {
		return []platform.ServiceOffering{}, nil
	}
	brokers := make(map[string]string, len(inc.ServiceBrokers))
	for _, b := range inc.ServiceBrokers {
		brokers[b.GUID] = b.Name
	}

	guids := make([]string, 0, len(offerings))
	for _, so := range offerings {
		guids = append(guids, so.GUID)
	}
	plans, _, err := list[servicePlan](ctx, o.c, "/v3/service_plans", url.Values{
		"service_offering_guids": {strings.Join(guids, ",")},
	})
	if err != nil {
		return nil, err
	}
	byOffering := make(map[string][]platform.ServicePlan)
	for _, p := range plans {
		g := p.Relationships.ServiceOffering.guid()
		byOffering[g] = append(byOffering[g], platform.ServicePlan{Name: p.Name, Description: p.Description, Free: p.Free})
	}

	out := make([]platform.ServiceOffering, 0, len(offerings))
	for _, so := range offerings {
		out = append(out, platform.ServiceOffering{
			Name:        so.Name,
			Description: so.Description,
			Broker:      brokers[so.Relationships.ServiceBroker.guid()],
			Plans:       byOffering[so.GUID],
		})
	}
	return out, nil
}

func (o *operations) BindService(ctx context.Context, instance, appName string) error {
	siGUID, err := o.findInstance(ctx, instance)
	if err != nil {
		return err
	}
	a, err := o.findApp(ctx, appName)
	if err != nil {
		return err
	}
	return o.c.send(ctx, http.MethodPost, "/v3/service_credential_bindings", map[string]any{
		"type": "app",
		"relationships": map[string]any{
			"service_instance": toOne(siGUID),
			"app":              toOne(a.GUID),
		},
	}, nil)
}

func (o *operations) UnbindService(ctx context.Context, instance, appName string) error {
	siGUID, err := o.findInstance(ctx, instance)
	if err != nil {
		return err
	}
	a, err := o.findApp(ctx, appName)
	if err != nil {
		return err
	}
	bindings, _, err := list[credentialBinding](ctx, o.c, "/v3/service_credential_bindings", url.Values{
		"service_instance_guids": {siGUID},
		"app_guids":              {a.GUID},
	})
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		return platform.Errorf(platform.KindNotFound, "application %s is not bound to service instance %s", appName, instance)
	}
	for _, b := range bindings {
		if err := o.c.send(ctx, http.MethodDelete, "/v3/service_credential_bindings/"+b.GUID, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (o *operations) DeleteServiceInstance(ctx context.Context, name string) error {
	siGUID, err := o.findInstance(ctx, name)
	if err != nil {
		return err
	}
	return o.c.send(ctx, http.MethodDelete, "/v3/service_instances/"+siGUID, nil, nil)
}

func (o *operations) CreateUserProvidedServiceInstance(ctx context.Context, req platform.UserProvidedRequest) error {
	spaceGUID, err := o.space(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{
		"type":          "user-provided",
		"name":          req.Name,
		"relationships": map[string]any{"space": toOne(spaceGUID)},
	}
	if len(req.Credentials) > 0 {
		body["credentials"] = req.Credentials
	}
	if len(req.Tags) > 0 {
		body["tags"] = req.Tags
	}
	return o.c.send(ctx, http.MethodPost, "/v3/service_instances", body, nil)
}
