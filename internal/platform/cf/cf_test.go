package cf

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// call is one request seen by the fake API.
type call struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeAPI serves canned v3 responses keyed by "METHOD /path".
type fakeAPI struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []call
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, routes: make(map[string]http.HandlerFunc)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	f.json("GET /v3/organizations", func(r *http.Request) any {
		if r.URL.Query().Get("names") == "acme" {
			return resources(map[string]any{"guid": "org-1", "name": "acme"})
		}
		return resources()
	})
	f.json("GET /v3/spaces", func(r *http.Request) any {
		q := r.URL.Query()
		if q.Get("organization_guids") == "org-1" && q.Get("names") == "dev" {
			return resources(map[string]any{
				"guid": "space-1", "name": "dev",
				"relationships": map[string]any{"quota": map[string]any{"data": map[string]string{"guid": "quota-1"}}},
			})
		}
		return resources()
	})
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	if !ok {
		writeErrors(w, http.StatusNotFound, "CF-ResourceNotFound", "Unknown request")
		return
	}
	h(w, r)
}

func (f *fakeAPI) handle(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = h
}

func (f *fakeAPI) json(key string, fn func(*http.Request) any) {
	f.handle(key, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(fn(r))
	})
}

// job answers with 202 and a job location that completes immediately.
func (f *fakeAPI) job(key string) {
	f.handle(key, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", f.srv.URL+"/v3/jobs/job-1")
		w.WriteHeader(http.StatusAccepted)
	})
	f.json("GET /v3/jobs/job-1", func(*http.Request) any {
		return map[string]any{"guid": "job-1", "state": "COMPLETE"}
	})
}

func (f *fakeAPI) withApp(state string) {
	f.json("GET /v3/apps", func(r *http.Request) any {
		if r.URL.Query().Get("names") == "missing" {
			return resources()
		}
		return resources(map[string]any{"guid": "app-1", "name": "joke", "state": state,
			"lifecycle": map[string]any{"type": "buildpack", "data": map[string]any{"buildpacks": []string{"java_buildpack_offline"}, "stack": "cflinuxfs4"}}})
	})
}

func (f *fakeAPI) find(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) ops(s scope.Scope) platform.Operations {
	c := New(Config{APIURL: f.srv.URL, DefaultOrg: "acme", DefaultSpace: "dev", PollInterval: time.Millisecond}, f.srv.Client(), nil)
	return c.Operations(s)
}

func resources(items ...map[string]any) map[string]any {
	if items == nil {
		items = []map[string]any{}
	}
	return map[string]any{"pagination": map[string]any{"total_results": len(items)}, "resources": items}
}

func writeErrors(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]any{{"code": 10000, "title": title, "detail": detail}},
	})
}

var acmeDev = scope.Resolve("acme", "dev")

func TestScopeNotFound(t *testing.T) {
	f := newFakeAPI(t)

	_, err := f.ops(scope.Resolve("nope", "dev")).ListApplications(context.Background())
	if platform.KindOf(err) != platform.KindScopeNotFound {
		t.Errorf("unknown org: kind = %q (%v)", platform.KindOf(err), err)
	}
	_, err = f.ops(scope.Resolve("acme", "nope")).ListApplications(context.Background())
	if platform.KindOf(err) != platform.KindScopeNotFound {
		t.Errorf("unknown space: kind = %q (%v)", platform.KindOf(err), err)
	}
}

func TestOperationsUseDefaults(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STOPPED")
	f.json("GET /v3/processes", func(*http.Request) any { return resources() })
	f.json("GET /v3/routes", func(*http.Request) any { return resources() })

	if _, err := f.ops(scope.Scope{}).ListApplications(context.Background()); err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	apps := f.find("GET", "/v3/apps")
	if len(apps) != 1 || !strings.Contains(apps[0].Query, "space_guids=space-1") {
		t.Errorf("apps query = %+v", apps)
	}
}

func TestListApplications(t *testing.T) {
	f := newFakeAPI(t)
	f.json("GET /v3/apps", func(*http.Request) any {
		return resources(
			map[string]any{"guid": "app-1", "name": "joke", "state": "STARTED"},
			map[string]any{"guid": "app-2", "name": "quotes", "state": "STOPPED"},
		)
	})
	f.json("GET /v3/processes", func(*http.Request) any {
		return resources(
			map[string]any{"guid": "proc-1", "type": "web", "instances": 2, "memory_in_mb": 1024, "disk_in_mb": 512,
				"relationships": map[string]any{"app": map[string]any{"data": map[string]string{"guid": "app-1"}}}},
			map[string]any{"guid": "proc-2", "type": "web", "instances": 1, "memory_in_mb": 256, "disk_in_mb": 256,
				"relationships": map[string]any{"app": map[string]any{"data": map[string]string{"guid": "app-2"}}}},
		)
	})
	f.json("GET /v3/routes", func(*http.Request) any {
		return resources(map[string]any{"url": "joke.apps.example.com",
			"destinations": []map[string]any{{"app": map[string]string{"guid": "app-1"}}}})
	})
	f.json("GET /v3/processes/proc-1/stats", func(*http.Request) any {
		return resources(
			map[string]any{"index": 0, "state": "RUNNING", "uptime": 10},
			map[string]any{"index": 1, "state": "CRASHED", "uptime": 0},
		)
	})

	apps, err := f.ops(acmeDev).ListApplications(context.Background())
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("got %d apps, want 2", len(apps))
	}
	joke := apps[0]
	if joke.Name != "joke" || joke.Instances != 2 || joke.RunningInstances != 1 || joke.MemoryMB != 1024 || joke.DiskMB != 512 {
		t.Errorf("joke = %+v", joke)
	}
	if len(joke.URLs) != 1 || joke.URLs[0] != "joke.apps.example.com" {
		t.Errorf("joke urls = %v", joke.URLs)
	}
	if apps[1].RunningInstances != 0 || len(f.find("GET", "/v3/processes/proc-2/stats")) != 0 {
		t.Error("stopped apps must not fetch stats")
	}
}

func TestGetApplication(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STARTED")
	f.json("GET /v3/apps/app-1/processes/web", func(*http.Request) any {
		return map[string]any{"guid": "proc-1", "instances": 1, "memory_in_mb": 1024, "disk_in_mb": 1024}
	})
	f.json("GET /v3/apps/app-1/routes", func(*http.Request) any {
		return resources(map[string]any{"url": "joke.apps.example.com"})
	})
	f.json("GET /v3/apps/app-1/environment_variables", func(*http.Request) any {
		return map[string]any{"var": map[string]any{"JBP_CONFIG_OPEN_JDK_JRE": "{ jre: { version: 17.+ } }", "COUNT": 3}}
	})
	f.json("GET /v3/processes/proc-1/stats", func(*http.Request) any {
		return resources(map[string]any{"index": 0, "state": "RUNNING", "uptime": 42})
	})

	d, err := f.ops(acmeDev).GetApplication(context.Background(), "joke")
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if d.Stack != "cflinuxfs4" || len(d.Buildpacks) != 1 || d.Buildpacks[0] != "java_buildpack_offline" {
		t.Errorf("lifecycle = %v %q", d.Buildpacks, d.Stack)
	}
	if d.Environment["COUNT"] != "3" || d.Environment["JBP_CONFIG_OPEN_JDK_JRE"] == "" {
		t.Errorf("environment = %v", d.Environment)
	}
	if len(d.InstanceStats) != 1 || d.InstanceStats[0].Uptime != 42 || d.RunningInstances != 1 {
		t.Errorf("stats = %+v running=%d", d.InstanceStats, d.RunningInstances)
	}

	_, err = f.ops(acmeDev).GetApplication(context.Background(), "missing")
	if platform.KindOf(err) != platform.KindNotFound {
		t.Errorf("missing app: kind = %q", platform.KindOf(err))
	}
}

func TestScaleSendsOnlyGivenAttributes(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STARTED")
	f.json("POST /v3/apps/app-1/processes/web/actions/scale", func(*http.Request) any { return map[string]any{} })

	n := 3
	if err := f.ops(acmeDev).ScaleApplication(context.Background(), platform.ScaleRequest{Name: "joke", Instances: &n}); err != nil {
		t.Fatalf("ScaleApplication: %v", err)
	}
	calls := f.find("POST", "/v3/apps/app-1/processes/web/actions/scale")
	if len(calls) != 1 {
		t.Fatalf("scale calls = %d", len(calls))
	}
	var body map[string]int
	json.Unmarshal([]byte(calls[0].Body), &body)
	if len(body) != 1 || body["instances"] != 3 {
		t.Errorf("scale body = %s", calls[0].Body)
	}
}

func TestSetEnvironmentVariable(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STOPPED")
	f.json("PATCH /v3/apps/app-1/environment_variables", func(*http.Request) any { return map[string]any{} })

	if err := f.ops(acmeDev).SetEnvironmentVariable(context.Background(), "joke", "JBP_CONFIG_OPEN_JDK_JRE", "{ jre: { version: 17.+ } }"); err != nil {
		t.Fatalf("SetEnvironmentVariable: %v", err)
	}
	calls := f.find("PATCH", "/v3/apps/app-1/environment_variables")
	if len(calls) != 1 || calls[0].Body != `{"var":{"JBP_CONFIG_OPEN_JDK_JRE":"{ jre: { version: 17.+ } }"}}` {
		t.Errorf("env calls = %+v", calls)
	}
}

func TestLifecycleActions(t *testing.T) {
	tests := []struct {
		action string
		run    func(platform.Operations) error
	}{
		{"start", func(o platform.Operations) error { return o.StartApplication(context.Background(), "joke") }},
		{"stop", func(o platform.Operations) error { return o.StopApplication(context.Background(), "joke") }},
		{"restart", func(o platform.Operations) error { return o.RestartApplication(context.Background(), "joke") }},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			f := newFakeAPI(t)
			f.withApp("STOPPED")
			f.json("POST /v3/apps/app-1/actions/"+tt.action, func(*http.Request) any { return map[string]any{"guid": "app-1"} })
			if err := tt.run(f.ops(acmeDev)); err != nil {
				t.Fatalf("%s: %v", tt.action, err)
			}
			if len(f.find("POST", "/v3/apps/app-1/actions/"+tt.action)) != 1 {
				t.Errorf("expected one %s call", tt.action)
			}
		})
	}
}

func TestDeleteApplicationWaitsForJob(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STOPPED")
	f.job("DELETE /v3/apps/app-1")
	var polls atomic.Int32
	f.json("GET /v3/jobs/job-1", func(*http.Request) any {
		if polls.Add(1) < 3 {
			return map[string]any{"guid": "job-1", "state": "PROCESSING"}
		}
		return map[string]any{"guid": "job-1", "state": "COMPLETE"}
	})

	if err := f.ops(acmeDev).DeleteApplication(context.Background(), "joke"); err != nil {
		t.Fatalf("DeleteApplication: %v", err)
	}
	if n := polls.Load(); n != 3 {
		t.Errorf("job polled %d times, want 3", n)
	}
}

func TestFailedJob(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STOPPED")
	f.job("DELETE /v3/apps/app-1")
	f.json("GET /v3/jobs/job-1", func(*http.Request) any {
		return map[string]any{"guid": "job-1", "state": "FAILED",
			"errors": []map[string]any{{"title": "CF-AssociationNotEmpty", "detail": "app has service bindings"}}}
	})

	err := f.ops(acmeDev).DeleteApplication(context.Background(), "joke")
	if platform.KindOf(err) != platform.KindConflict || !strings.Contains(err.Error(), "service bindings") {
		t.Errorf("err = %v (kind %q)", err, platform.KindOf(err))
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		title  string
		detail string
		want   platform.ErrorKind
	}{
		{http.StatusUnauthorized, "CF-InvalidAuthToken", "Invalid Auth Token", platform.KindUnauthorized},
		{http.StatusForbidden, "CF-NotAuthorized", "You are not authorized to perform the requested action", platform.KindUnauthorized},
		{http.StatusNotFound, "CF-ResourceNotFound", "App not found", platform.KindNotFound},
		{http.StatusUnprocessableEntity, "CF-UnprocessableEntity", "The app is already bound to the service instance", platform.KindConflict},
		{http.StatusUnprocessableEntity, "CF-ServiceInstanceNameTaken", "The service instance name is taken: db", platform.KindConflict},
		{http.StatusUnprocessableEntity, "CF-UnprocessableEntity", "Memory in mb must be greater than 0", platform.KindInvalid},
		{http.StatusBadRequest, "CF-BadQueryParameter", "bad", platform.KindInvalid},
		{http.StatusBadGateway, "CF-ServiceBrokerBadResponse", "broker down", platform.KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.detail, func(t *testing.T) {
			f := newFakeAPI(t)
			f.withApp("STARTED")
			f.handle("POST /v3/apps/app-1/actions/stop", func(w http.ResponseWriter, r *http.Request) {
				writeErrors(w, tt.status, tt.title, tt.detail)
			})
			err := f.ops(acmeDev).StopApplication(context.Background(), "joke")
			if got := platform.KindOf(err); got != tt.want {
				t.Errorf("kind = %q, want %q (%v)", got, tt.want, err)
			}
			if err != nil && err.Error() != tt.detail {
				t.Errorf("message = %q, want the platform's wording %q", err.Error(), tt.detail)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	f := newFakeAPI(t)
	f.srv.Close()
	_, err := f.ops(acmeDev).ListOrganizations(context.Background(), "")
	if platform.KindOf(err) != platform.KindTransport {
		t.Errorf("kind = %q (%v)", platform.KindOf(err), err)
	}
}

func TestListFollowsPagination(t *testing.T) {
	f := newFakeAPI(t)
	f.json("GET /v3/organizations", func(r *http.Request) any {
		if r.URL.Query().Get("page") == "2" {
			return map[string]any{"resources": []map[string]any{{"guid": "org-2", "name": "globex"}}}
		}
		return map[string]any{
			"pagination": map[string]any{"next": map[string]string{"href": f.srv.URL + "/v3/organizations?page=2"}},
			"resources":  []map[string]any{{"guid": "org-1", "name": "acme"}},
		}
	})

	orgs, err := f.ops(acmeDev).ListOrganizations(context.Background(), "")
	if err != nil {
		t.Fatalf("ListOrganizations: %v", err)
	}
	if len(orgs) != 2 || orgs[0].Name != "acme" || orgs[1].Name != "globex" {
		t.Errorf("orgs = %+v", orgs)
	}
}

func TestListSpacesAndQuota(t *testing.T) {
	f := newFakeAPI(t)
	f.json("GET /v3/spaces", func(r *http.Request) any {
		switch r.URL.Query().Get("names") {
		case "":
			return resources(map[string]any{"guid": "space-1", "name": "dev"}, map[string]any{"guid": "space-2", "name": "prod"})
		case "dev":
			return resources(map[string]any{"guid": "space-1", "name": "dev",
				"relationships": map[string]any{"quota": map[string]any{"data": map[string]string{"guid": "quota-1"}}}})
		case "prod":
			return resources(map[string]any{"guid": "space-2", "name": "prod",
				"relationships": map[string]any{"quota": map[string]any{"data": nil}}})
		}
		return resources()
	})
	f.json("GET /v3/space_quotas/quota-1", func(*http.Request) any {
		return map[string]any{"name": "dev-quota",
			"apps":     map[string]any{"total_memory_in_mb": 10240, "per_process_memory_in_mb": nil, "total_instances": 25},
			"services": map[string]any{"paid_services_allowed": true, "total_service_instances": 10},
			"routes":   map[string]any{"total_routes": nil}}
	})

	ops := f.ops(acmeDev)
	spaces, err := ops.ListSpaces(context.Background())
	if err != nil || len(spaces) != 2 {
		t.Fatalf("ListSpaces = %+v, %v", spaces, err)
	}

	q, err := ops.GetSpaceQuota(context.Background(), "dev")
	if err != nil {
		t.Fatalf("GetSpaceQuota: %v", err)
	}
	if q.Name != "dev-quota" || *q.TotalMemoryMB != 10240 || q.InstanceMemoryMB != nil || *q.AppInstances != 25 || !q.PaidServicesAllowed {
		t.Errorf("quota = %+v", q)
	}

	if _, err := ops.GetSpaceQuota(context.Background(), "prod"); platform.KindOf(err) != platform.KindNotFound {
		t.Errorf("no quota: err = %v", err)
	}
	if _, err := ops.GetSpaceQuota(context.Background(), "qa"); platform.KindOf(err) != platform.KindNotFound {
		t.Errorf("unknown space: err = %v", err)
	}
}

func TestHandleCachesScopeLookups(t *testing.T) {
	f := newFakeAPI(t)
	f.withApp("STARTED")
	f.json("POST /v3/apps/app-1/actions/stop", func(*http.Request) any { return map[string]any{} })
	f.json("POST /v3/apps/app-1/actions/start", func(*http.Request) any { return map[string]any{} })

	ops := f.ops(acmeDev)
	ops.StopApplication(context.Background(), "joke")
	ops.StartApplication(context.Background(), "joke")
	if n := len(f.find("GET", "/v3/organizations")); n != 1 {
		t.Errorf("organization lookups = %d, want 1 per handle", n)
	}

	f.ops(acmeDev).StopApplication(context.Background(), "joke")
	if n := len(f.find("GET", "/v3/organizations")); n != 2 {
		t.Errorf("a new handle must resolve again, lookups = %d", n)
	}
}
