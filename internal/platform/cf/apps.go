package cf

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
)

func (o *operations) findApp(ctx context.Context, name string) (*app, error) {
	spaceGUID, err := o.space(ctx)
	if err != nil {
		return nil, err
	}
	apps, _, err := list[app](ctx, o.c, "/v3/apps", url.Values{
		"names":       {name},
		"space_guids": {spaceGUID},
	})
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, platform.NotFound("application", name)
	}
	return &apps[0], nil
}

// instanceStats returns the per-instance state of a process.
func (o *operations) instanceStats(ctx context.Context, processGUID string) ([]processStat, error) {
	var p page[processStat]
	if err := o.c.get(ctx, "/v3/processes/"+processGUID+"/stats", nil, &p); err != nil {
		return nil, err
	}
	return p.Resources, nil
}

func countRunning(stats []processStat) int {
	n := 0
	for _, s := range stats {
		if s.State == "RUNNING" {
			n++
		}
	}
	return n
}

func summarize(a app, web *process, urls []string) platform.ApplicationSummary {
	s := platform.ApplicationSummary{
		ID:    a.GUID,
		Name:  a.Name,
		State: a.State,
		URLs:  urls,
	}
	if web != nil {
		s.Instances = web.Instances
		s.MemoryMB = web.MemoryInMB
		s.DiskMB = web.DiskInMB
	}
	return s
}

func (o *operations) ListApplications(ctx context.Context) ([]platform.ApplicationSummary, error) {
	spaceGUID, err := o.space(ctx)
	if err != nil {
		return nil, err
	}
	inSpace := url.Values{"space_guids": {spaceGUID}}

	apps, _, err := list[app](ctx, o.c, "/v3/apps", url.Values{"space_guids": {spaceGUID}, "order_by": {"name"}})
	if err != nil {
		return nil, err
	}
	procs, _, err := list[process](ctx, o.c, "/v3/processes", url.Values{"space_guids": {spaceGUID}, "types": {"web"}})
	if err != nil {
		return nil, err
	}
	routes, _, err := list[route](ctx, o.c, "/v3/routes", inSpace)
	if err != nil {
		return nil, err
	}

	web := make(map[string]*process, len(procs))
	for i := range procs {
		web[procs[i].Relationships.App.guid()] = &procs[i]
	}
	urls := make(map[string][]string)
	for _, r := range routes {
		for _, d := range r.Destinations {
			urls[d.App.GUID] = append(urls[d.App.GUID], r.URL)
		}
	}

	out := make([]platform.ApplicationSummary, 0, len(apps))
	for _, a := range apps {
		s := summarize(a, web[a.GUID], urls[a.GUID])
		if a.State == "STARTED" && web[a.GUID] != nil {
			stats, err := o.instanceStats(ctx, web[a.GUID].GUID)
			if err != nil {
				return nil, err
			}
			s.RunningInstances = countRunning(stats)
		}
		out = append(out, s)
	}
	return out, nil
}

func (o *operations) GetApplication(ctx context.Context, name string) (*platform.ApplicationDetail, error) {
	a, err := o.findApp(ctx, name)
	if err != nil {
		return nil, err
	}

	var web process
	if err := o.c.get(ctx, "/v3/apps/"+a.GUID+"/processes/web", nil, &web); err != nil {
		return nil, err
	}
	routes, _, err := list[route](ctx, o.c, "/v3/apps/"+a.GUID+"/routes", nil)
	if err != nil {
		return nil, err
	}
	var env envVars
	if err := o.c.get(ctx, "/v3/apps/"+a.GUID+"/environment_variables", nil, &env); err != nil {
		return nil, err
	}

	var urls []string
	for _, r := range routes {
		urls = append(urls, r.URL)
	}
	detail := &platform.ApplicationDetail{
		ApplicationSummary: summarize(*a, &web, urls),
		Buildpacks:         a.Lifecycle.Data.Buildpacks,
		Stack:              a.Lifecycle.Data.Stack,
		Environment:        make(map[string]string, len(env.Var)),
	}
	for k, v := range env.Var {
		detail.Environment[k] = fmt.Sprint(v)
	}

	if a.State == "STARTED" {
		stats, err := o.instanceStats(ctx, web.GUID)
		if err != nil {
			return nil, err
		}
		detail.RunningInstances = countRunning(stats)
		for _, s := range stats {
			detail.InstanceStats = append(detail.InstanceStats, platform.InstanceDetail{Index: s.Index, State: s.State, Uptime: s.Uptime})
		}
		sort.Slice(detail.InstanceStats, func(i, j int) bool { return detail.InstanceStats[i].Index < detail.InstanceStats[j].Index })
	}
	return detail, nil
}

// PushApplication creates the application if needed, uploads the bits,
// stages them and sets the resulting droplet as current. The application
// is stopped when it returns.
func (o *operations) PushApplication(ctx context.Context, req platform.PushRequest) error {
	bits, err := Bits(req.Path)
	if err != nil {
		return err
	}
	spaceGUID, err := o.space(ctx)
	if err != nil {
		return err
	}

	lc := map[string]any{"type": "buildpack", "data": map[string]any{}}
	if req.Buildpack != "" {
		lc["data"] = map[string]any{"buildpacks": []string{req.Buildpack}}
	}

	a, err := o.findApp(ctx, req.Name)
	switch {
	case platform.KindOf(err) == platform.KindNotFound:
		a = &app{}
		body := map[string]any{
			"name":          req.Name,
			"lifecycle":     lc,
			"relationships": map[string]any{"space": toOne(spaceGUID)},
		}
		if err := o.c.send(ctx, http.MethodPost, "/v3/apps", body, a); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := o.c.send(ctx, http.MethodPost, "/v3/apps/"+a.GUID+"/actions/stop", nil, nil); err != nil {
			return err
		}
		if req.Buildpack != "" {
			if err := o.c.send(ctx, http.MethodPatch, "/v3/apps/"+a.GUID, map[string]any{"lifecycle": lc}, nil); err != nil {
				return err
			}
		}
	}
	log := o.c.logger.With(zap.String("app", req.Name), zap.String("guid", a.GUID))

	if req.MemoryMB != nil || req.DiskMB != nil {
		if err := o.scale(ctx, a.GUID, nil, req.MemoryMB, req.DiskMB); err != nil {
			return err
		}
	}

	var p pkg
	pkgBody := map[string]any{
		"type":          "bits",
		"relationships": map[string]any{"app": toOne(a.GUID)},
	}
	if err := o.c.send(ctx, http.MethodPost, "/v3/packages", pkgBody, &p); err != nil {
		return err
	}
	log.Debug("uploading bits", zap.Int("bytes", len(bits)))
	if err := o.upload(ctx, p.GUID, bits); err != nil {
		return err
	}
	if err := o.c.poll(ctx, func(ctx context.Context) (bool, error) {
		if err := o.c.get(ctx, "/v3/packages/"+p.GUID, nil, &p); err != nil {
			return false, err
		}
		switch p.State {
		case "READY":
			return true, nil
		case "FAILED", "EXPIRED":
			return false, platform.Errorf(platform.KindInvalid, "package for %s is %s", req.Name, strings.ToLower(p.State))
		}
		return false, nil
	}); err != nil {
		return err
	}

	var b build
	if err := o.c.send(ctx, http.MethodPost, "/v3/builds", map[string]any{"package": guidRef{GUID: p.GUID}}, &b); err != nil {
		return err
	}
	log.Debug("staging", zap.String("build", b.GUID))
	if err := o.c.poll(ctx, func(ctx context.Context) (bool, error) {
		if err := o.c.get(ctx, "/v3/builds/"+b.GUID, nil, &b); err != nil {
			return false, err
		}
		switch b.State {
		case "STAGED":
			return true, nil
		case "FAILED":
			return false, platform.Errorf(platform.KindInvalid, "staging %s failed: %s", req.Name, b.Error)
		}
		return false, nil
	}); err != nil {
		return err
	}
	if b.Droplet == nil {
		return platform.Errorf(platform.KindUnknown, "build %s staged without a droplet", b.GUID)
	}

	return o.c.send(ctx, http.MethodPatch, "/v3/apps/"+a.GUID+"/relationships/current_droplet",
		map[string]any{"data": guidRef{GUID: b.Droplet.GUID}}, nil)
}

func (o *operations) upload(ctx context.Context, packageGUID string, bits []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("resources", "[]"); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("bits", "application.zip")
	if err != nil {
		return err
	}
	if _, err := part.Write(bits); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	_, err = o.c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/v3/packages/" + packageGUID + "/upload",
		raw:         &body,
		contentType: mw.FormDataContentType(),
	}, nil)
	return err
}

func (o *operations) SetEnvironmentVariable(ctx context.Context, appName, name, value string) error {
	a, err := o.findApp(ctx, appName)
	if err != nil {
		return err
	}
	return o.c.send(ctx, http.MethodPatch, "/v3/apps/"+a.GUID+"/environment_variables",
		map[string]any{"var": map[string]string{name: value}}, nil)
}

func (o *operations) scale(ctx context.Context, appGUID string, instances, memory, disk *int) error {
	body := map[string]int{}
	if instances != nil {
		body["instances"] = *instances
	}
	if memory != nil {
		body["memory_in_mb"] = *memory
	}
	if disk != nil {
		body["disk_in_mb"] = *disk
	}
	if len(body) == 0 {
		return nil
	}
	return o.c.send(ctx, http.MethodPost, "/v3/apps/"+appGUID+"/processes/web/actions/scale", body, nil)
}

func (o *operations) ScaleApplication(ctx context.Context, req platform.ScaleRequest) error {
	a, err := o.findApp(ctx, req.Name)
	if err != nil {
		return err
	}
	return o.scale(ctx, a.GUID, req.Instances, req.MemoryMB, req.DiskMB)
}

func (o *operations) action(ctx context.Context, name, action string) error {
	a, err := o.findApp(ctx, name)
	if err != nil {
		return err
	}
	return o.c.send(ctx, http.MethodPost, "/v3/apps/"+a.GUID+"/actions/"+action, nil, nil)
}

func (o *operations) StartApplication(ctx context.Context, name string) error {
	return o.action(ctx, name, "start")
}

func (o *operations) StopApplication(ctx context.Context, name string) error {
	return o.action(ctx, name, "stop")
}

func (o *operations) RestartApplication(ctx context.Context, name string) error {
	return o.action(ctx, name, "restart")
}

func (o *operations) DeleteApplication(ctx context.Context, name string) error {
	a, err := o.findApp(ctx, name)
	if err != nil {
		return err
	}
	return o.c.send(ctx, http.MethodDelete, "/v3/apps/"+a.GUID, nil, nil)
}
