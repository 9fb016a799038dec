package cf

import (
	"context"
	"net/url"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// operations is a per-dispatch handle. It caches the org and space GUIDs it
// resolves; the cache dies with the handle.
type operations struct {
	c     *Client
	scope scope.Scope

	orgGUID   string
	spaceGUID string
}

func (o *operations) org(ctx context.Context) (string, error) {
	if o.orgGUID != "" {
		return o.orgGUID, nil
	}
	if o.scope.Org == "" {
		return "", platform.Errorf(platform.KindScopeNotFound, "no organization targeted")
	}
	orgs, _, err := list[named](ctx, o.c, "/v3/organizations", url.Values{"names": {o.scope.Org}})
	if err != nil {
		return "", err
	}
	if len(orgs) == 0 {
		return "", platform.Errorf(platform.KindScopeNotFound, "organization %s not found", o.scope.Org)
	}
	o.orgGUID = orgs[0].GUID
	return o.orgGUID, nil
}

func (o *operations) space(ctx context.Context) (string, error) {
	if o.spaceGUID != "" {
		return o.spaceGUID, nil
	}
	orgGUID, err := o.org(ctx)
	if err != nil {
		return "", err
	}
	if o.scope.Space == "" {
		return "", platform.Errorf(platform.KindScopeNotFound, "no space targeted")
	}
	spaces, _, err := list[space](ctx, o.c, "/v3/spaces", url.Values{
		"names":              {o.scope.Space},
		"organization_guids": {orgGUID},
	})
	if err != nil {
		return "", err
	}
	if len(spaces) == 0 {
		return "", platform.Errorf(platform.KindScopeNotFound, "space %s not found in organization %s", o.scope.Space, o.scope.Org)
	}
	o.spaceGUID = spaces[0].GUID
	return o.spaceGUID, nil
}

func (o *operations) ListOrganizations(ctx context.Context, nameFilter string) ([]platform.Organization, error) {
	q := url.Values{"order_by": {"name"}}
	if nameFilter != "" {
		q.Set("names", nameFilter)
	}
	orgs, _, err := list[named](ctx, o.c, "/v3/organizations", q)
	if err != nil {
		return nil, err
	}
	out := make([]platform.Organization, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, platform.Organization{ID: org.GUID, Name: org.Name})
	}
	return out, nil
}

func (o *operations) ListSpaces(ctx context.Context) ([]platform.Space, error) {
	orgGUID, err := o.org(ctx)
	if err != nil {
		return nil, err
	}
	spaces, _, err := list[space](ctx, o.c, "/v3/spaces", url.Values{
		"organization_guids": {orgGUID},
		"order_by":           {"name"},
	})
	if err != nil {
		return nil, err
	}
	out := make([]platform.Space, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, platform.Space{ID: s.GUID, Name: s.Name})
	}
	return out, nil
}

func (o *operations) GetSpaceQuota(ctx context.Context, spaceName string) (*platform.SpaceQuota, error) {
	orgGUID, err := o.org(ctx)
	if err != nil {
		return nil, err
	}
	spaces, _, err := list[space](ctx, o.c, "/v3/spaces", url.Values{
		"names":              {spaceName},
		"organization_guids": {orgGUID},
	})
	if err != nil {
		return nil, err
	}
	if len(spaces) == 0 {
		return nil, platform.NotFound("space", spaceName)
	}
	quotaGUID := spaces[0].Relationships.Quota.guid()
	if quotaGUID == "" {
		return nil, platform.Errorf(platform.KindNotFound, "space %s has no quota assigned", spaceName)
	}

	var q spaceQuota
	if err := o.c.get(ctx, "/v3/space_quotas/"+quotaGUID, nil, &q); err != nil {
		return nil, err
	}
	return &platform.SpaceQuota{
		Name:                q.Name,
		TotalMemoryMB:       q.Apps.TotalMemoryInMB,
		InstanceMemoryMB:    q.Apps.PerProcessMemoryInMB,
		AppInstances:        q.Apps.TotalInstances,
		TotalRoutes:         q.Routes.TotalRoutes,
		TotalServices:       q.Services.TotalServiceInstances,
		PaidServicesAllowed: q.Services.PaidServicesAllowed,
	}, nil
}
