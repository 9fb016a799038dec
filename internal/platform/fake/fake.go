// Package fake is an in-memory platform.Client for tests and offline demos.
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// Operation names recorded in the call log and accepted by FailOn.
const (
	OpListApplications  = "ListApplications"
	OpGetApplication    = "GetApplication"
	OpPush              = "PushApplication"
	OpSetEnv            = "SetEnvironmentVariable"
	OpScale             = "ScaleApplication"
	OpStart             = "StartApplication"
	OpStop              = "StopApplication"
	OpRestart           = "RestartApplication"
	OpDeleteApplication = "DeleteApplication"
	OpListOrgs          = "ListOrganizations"
	OpListSpaces        = "ListSpaces"
	OpGetSpaceQuota     = "GetSpaceQuota"
	OpListServices      = "ListServiceInstances"
	OpGetService        = "GetServiceInstance"
	OpListOfferings     = "ListServiceOfferings"
	OpBind              = "BindService"
	OpUnbind            = "UnbindService"
	OpDeleteService     = "DeleteServiceInstance"
	OpCreateUPS         = "CreateUserProvidedServiceInstance"
)

// Call is one recorded platform operation.
type Call struct {
	Op    string
	Scope scope.Scope
	Name  string
}

// App is the fake's application state.
type App struct {
	ID        string
	Name      string
	State     string
	Instances int
	MemoryMB  int
	DiskMB    int
	Path      string
	Buildpack string
	Env       map[string]string
}

// Service is the fake's service instance state.
type Service struct {
	ID          string
	Name        string
	Type        string
	Offering    string
	Plan        string
	Credentials map[string]string
	Tags        []string
	Bound       []string
}

type space struct {
	id       string
	apps     map[string]*App
	services map[string]*Service
	quota    *platform.SpaceQuota
}

type org struct {
	id     string
	spaces map[string]*space
}

// Platform holds all fake state behind one mutex.
type Platform struct {
	mu           sync.Mutex
	orgs         map[string]*org
	offerings    []platform.ServiceOffering
	defaultOrg   string
	defaultSpace string
	failures     map[string]error
	calls        []Call
}

// New creates an empty platform whose default target is org/space.
func New(defaultOrg, defaultSpace string) *Platform {
	p := &Platform{
		orgs:         make(map[string]*org),
		defaultOrg:   defaultOrg,
		defaultSpace: defaultSpace,
		failures:     make(map[string]error),
	}
	if defaultOrg != "" && defaultSpace != "" {
		p.AddSpace(defaultOrg, defaultSpace)
	}
	return p
}

// AddSpace creates the organization and space if they do not exist.
func (p *Platform) AddSpace(orgName, spaceName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orgs[orgName]
	if !ok {
		o = &org{id: uuid.NewString(), spaces: make(map[string]*space)}
		p.orgs[orgName] = o
	}
	if _, ok := o.spaces[spaceName]; !ok {
		o.spaces[spaceName] = &space{
			id:       uuid.NewString(),
			apps:     make(map[string]*App),
			services: make(map[string]*Service),
		}
	}
}

// AddApp seeds an application. The space must exist.
func (p *Platform) AddApp(orgName, spaceName string, app App) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.State == "" {
		app.State = "STARTED"
	}
	if app.Env == nil {
		app.Env = make(map[string]string)
	}
	p.orgs[orgName].spaces[spaceName].apps[app.Name] = &app
}

// AddService seeds a service instance. The space must exist.
func (p *Platform) AddService(orgName, spaceName string, svc Service) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	if svc.Type == "" {
		svc.Type = "managed"
	}
	p.orgs[orgName].spaces[spaceName].services[svc.Name] = &svc
}

// SetQuota assigns a quota to a space.
func (p *Platform) SetQuota(orgName, spaceName string, q platform.SpaceQuota) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orgs[orgName].spaces[spaceName].quota = &q
}

// AddOffering adds a marketplace entry.
func (p *Platform) AddOffering(o platform.ServiceOffering) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offerings = append(p.offerings, o)
}

// FailOn makes every later call of op return err.
func (p *Platform) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = err
}

// Calls returns the recorded call log.
func (p *Platform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallCount returns how many times op was invoked.
func (p *Platform) CallCount(op string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// App returns a copy of an application's state.
func (p *Platform) App(orgName, spaceName, name string) (App, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orgs[orgName]
	if !ok {
		return App{}, false
	}
	s, ok := o.spaces[spaceName]
	if !ok {
		return App{}, false
	}
	a, ok := s.apps[name]
	if !ok {
		return App{}, false
	}
	cp := *a
	cp.Env = make(map[string]string, len(a.Env))
	for k, v := range a.Env {
		cp.Env[k] = v
	}
	return cp, true
}

// Service returns a copy of a service instance's state.
func (p *Platform) Service(orgName, spaceName, name string) (Service, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orgs[orgName]
	if !ok {
		return Service{}, false
	}
	s, ok := o.spaces[spaceName]
	if !ok {
		return Service{}, false
	}
	svc, ok := s.services[name]
	if !ok {
		return Service{}, false
	}
	cp := *svc
	cp.Bound = append([]string(nil), svc.Bound...)
	cp.Tags = append([]string(nil), svc.Tags...)
	return cp, true
}

// Operations implements platform.Client.
func (p *Platform) Operations(s scope.Scope) platform.Operations {
	return &operations{p: p, scope: s.WithDefaults(p.defaultOrg, p.defaultSpace)}
}

// begin records the call and returns any injected failure. Callers hold p.mu.
func (p *Platform) begin(op string, s scope.Scope, name string) error {
	p.calls = append(p.calls, Call{Op: op, Scope: s, Name: name})
	return p.failures[op]
}

type operations struct {
	p     *Platform
	scope scope.Scope
}

func (o *operations) org() (*org, error) {
	if o.scope.Org == "" {
		return nil, platform.Errorf(platform.KindScopeNotFound, "no organization targeted")
	}
	org, ok := o.p.orgs[o.scope.Org]
	if !ok {
		return nil, platform.Errorf(platform.KindScopeNotFound, "organization %s not found", o.scope.Org)
	}
	return org, nil
}

func (o *operations) space() (*space, error) {
	org, err := o.org()
	if err != nil {
		return nil, err
	}
	if o.scope.Space == "" {
		return nil, platform.Errorf(platform.KindScopeNotFound, "no space targeted")
	}
	s, ok := org.spaces[o.scope.Space]
	if !ok {
		return nil, platform.Errorf(platform.KindScopeNotFound, "space %s not found in organization %s", o.scope.Space, o.scope.Org)
	}
	return s, nil
}

func (o *operations) app(name string) (*space, *App, error) {
	s, err := o.space()
	if err != nil {
		return nil, nil, err
	}
	a, ok := s.apps[name]
	if !ok {
		return nil, nil, platform.NotFound("application", name)
	}
	return s, a, nil
}

func (o *operations) lock(op, name string) (func(), error) {
	o.p.mu.Lock()
	if err := o.p.begin(op, o.scope, name); err != nil {
		o.p.mu.Unlock()
		return nil, err
	}
	return o.p.mu.Unlock, nil
}

func summary(a *App) platform.ApplicationSummary {
	running := 0
	if a.State == "STARTED" {
		running = a.Instances
	}
	return platform.ApplicationSummary{
		ID:               a.ID,
		Name:             a.Name,
		State:            a.State,
		Instances:        a.Instances,
		RunningInstances: running,
		MemoryMB:         a.MemoryMB,
		DiskMB:           a.DiskMB,
		URLs:             []string{strings.ToLower(a.Name) + ".apps.example.com"},
	}
}

func (o *operations) ListApplications(ctx context.Context) ([]platform.ApplicationSummary, error) {
	unlock, err := o.lock(OpListApplications, "")
	if err != nil {
		return nil, err
	}
	defer unlock()
	s, err := o.space()
	if err != nil {
		return nil, err
	}
	out := make([]platform.ApplicationSummary, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, summary(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (o *operations) GetApplication(ctx context.Context, name string) (*platform.ApplicationDetail, error) {
	unlock, err := o.lock(OpGetApplication, name)
	if err != nil {
		return nil, err
	}
	defer unlock()
	_, a, err := o.app(name)
	if err != nil {
		return nil, err
	}
	detail := &platform.ApplicationDetail{
		ApplicationSummary: summary(a),
		Stack:              "cflinuxfs4",
		Environment:        make(map[string]string, len(a.Env)),
	}
	if a.Buildpack != "" {
		detail.Buildpacks = []string{a.Buildpack}
	}
	for k, v := range a.Env {
		detail.Environment[k] = v
	}
	return detail, nil
}

func (o *operations) PushApplication(ctx context.Context, req platform.PushRequest) error {
	unlock, err := o.lock(OpPush, req.Name)
	if err != nil {
		return err
	}
	defer unlock()
	s, err := o.space()
	if err != nil {
		return err
	}
	a, ok := s.apps[req.Name]
	if !ok {
		a = &App{ID: uuid.NewString(), Name: req.Name, Instances: 1, MemoryMB: 1024, DiskMB: 1024, Env: make(map[string]string)}
		s.apps[req.Name] = a
	}
	a.State = "STOPPED"
	a.Path = req.Path
	a.Buildpack = req.Buildpack
	if req.MemoryMB != nil {
		a.MemoryMB = *req.MemoryMB
	}
	if req.DiskMB != nil {
		a.DiskMB = *req.DiskMB
	}
	return nil
}

func (o *operations) SetEnvironmentVariable(ctx context.Context, app, name, value string) error {
	unlock, err := o.lock(OpSetEnv, app)
	if err != nil {
		return err
	}
	defer unlock()
	_, a, err := o.app(app)
	if err != nil {
		return err
	}
	a.Env[name] = value
	return nil
}

func (o *operations) ScaleApplication(ctx context.Context, req platform.ScaleRequest) error {
	unlock, err := o.lock(OpScale, req.Name)
	if err != nil {
		return err
	}
	defer unlock()
	_, a, err := o.app(req.Name)
	if err != nil {
		return err
	}
	if req.Instances != nil {
		a.Instances = *req.Instances
	}
	if req.MemoryMB != nil {
		a.MemoryMB = *req.MemoryMB
	}
	if req.DiskMB != nil {
		a.DiskMB = *req.DiskMB
	}
	return nil
}

func (o *operations) setState(op, name, state string) error {
	unlock, err := o.lock(op, name)
	if err != nil {
		return err
	}
	defer unlock()
	_, a, err := o.app(name)
	if err != nil {
		return err
	}
	a.State = state
	return nil
}

func (o *operations) StartApplication(ctx context.Context, name string) error {
	return o.setState(OpStart, name, "STARTED")
}

func (o *operations) StopApplication(ctx context.Context, name string) error {
	return o.setState(OpStop, name, "STOPPED")
}

func (o *operations) RestartApplication(ctx context.Context, name string) error {
	return o.setState(OpRestart, name, "STARTED")
}

func (o *operations) DeleteApplication(ctx context.Context, name string) error {
	unlock, err := o.lock(OpDeleteApplication, name)
	if err != nil {
		return err
	}
	defer unlock()
	s, _, err := o.app(name)
	if err != nil {
		return err
	}
	delete(s.apps, name)
	for _, svc := range s.services {
		svc.Bound = removeString(svc.Bound, name)
	}
	return nil
}

func (o *operations) ListOrganizations(ctx context.Context, nameFilter string) ([]platform.Organization, error) {
	unlock, err := o.lock(OpListOrgs, nameFilter)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []platform.Organization
	for name, org := range o.p.orgs {
		if nameFilter != "" && name != nameFilter {
			continue
		}
		out = append(out, platform.Organization{ID: org.id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (o *operations) ListSpaces(ctx context.Context) ([]platform.Space, error) {
	unlock, err := o.lock(OpListSpaces, "")
	if err != nil {
		return nil, err
	}
	defer unlock()
	org, err := o.org()
	if err != nil {
		return nil, err
	}
	out := make([]platform.Space, 0, len(org.spaces))
	for name, s := range org.spaces {
		out = append(out, platform.Space{ID: s.id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (o *operations) GetSpaceQuota(ctx context.Context, spaceName string) (*platform.SpaceQuota, error) {
	unlock, err := o.lock(OpGetSpaceQuota, spaceName)
	if err != nil {
		return nil, err
	}
	defer unlock()
	org, err := o.org()
	if err != nil {
		return nil, err
	}
	s, ok := org.spaces[spaceName]
	if !ok {
		return nil, platform.NotFound("space", spaceName)
	}
	if s.quota == nil {
		return nil, platform.Errorf(platform.KindNotFound, "space %s has no quota assigned", spaceName)
	}
	q := *s.quota
	return &q, nil
}

func (o *operations) ListServiceInstances(ctx context.Context) ([]platform.ServiceInstanceSummary, error) {
	unlock, err := o.lock(OpListServices, "")
	if err != nil {
		return nil, err
	}
	defer unlock()
	s, err := o.space()
	if err != nil {
		return nil, err
	}
	out := make([]platform.ServiceInstanceSummary, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, serviceSummary(svc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func serviceSummary(svc *Service) platform.ServiceInstanceSummary {
	return platform.ServiceInstanceSummary{
		ID:            svc.ID,
		Name:          svc.Name,
		Type:          svc.Type,
		Service:       svc.Offering,
		Plan:          svc.Plan,
		Applications:  append([]string(nil), svc.Bound...),
		LastOperation: "create succeeded",
	}
}

func (o *operations) service(name string) (*space, *Service, error) {
	s, err := o.space()
	if err != nil {
		return nil, nil, err
	}
	svc, ok := s.services[name]
	if !ok {
		return nil, nil, platform.NotFound("service instance", name)
	}
	return s, svc, nil
}

func (o *operations) GetServiceInstance(ctx context.Context, name string) (*platform.ServiceInstance, error) {
	unlock, err := o.lock(OpGetService, name)
	if err != nil {
		return nil, err
	}
	defer unlock()
	_, svc, err := o.service(name)
	if err != nil {
		return nil, err
	}
	return &platform.ServiceInstance{
		ServiceInstanceSummary: serviceSummary(svc),
		Tags:                   append([]string(nil), svc.Tags...),
	}, nil
}

func (o *operations) ListServiceOfferings(ctx context.Context) ([]platform.ServiceOffering, error) {
	unlock, err := o.lock(OpListOfferings, "")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return append([]platform.ServiceOffering(nil), o.p.offerings...), nil
}

func (o *operations) BindService(ctx context.Context, instance, app string) error {
	unlock, err := o.lock(OpBind, instance)
	if err != nil {
		return err
	}
	defer unlock()
	s, svc, err := o.service(instance)
	if err != nil {
		return err
	}
	if _, ok := s.apps[app]; !ok {
		return platform.NotFound("application", app)
	}
	for _, b := range svc.Bound {
		if b == app {
			return platform.Errorf(platform.KindConflict, "application %s is already bound to service instance %s", app, instance)
		}
	}
	svc.Bound = append(svc.Bound, app)
	return nil
}

func (o *operations) UnbindService(ctx context.Context, instance, app string) error {
	unlock, err := o.lock(OpUnbind, instance)
	if err != nil {
		return err
	}
	defer unlock()
	_, svc, err := o.service(instance)
	if err != nil {
		return err
	}
	before := len(svc.Bound)
	svc.Bound = removeString(svc.Bound, app)
	if len(svc.Bound) == before {
		return platform.Errorf(platform.KindNotFound, "application %s is not bound to service instance %s", app, instance)
	}
	return nil
}

func (o *operations) DeleteServiceInstance(ctx context.Context, name string) error {
	unlock, err := o.lock(OpDeleteService, name)
	if err != nil {
		return err
	}
	defer unlock()
	s, svc, err := o.service(name)
	if err != nil {
		return err
	}
	if len(svc.Bound) > 0 {
		return platform.Errorf(platform.KindConflict, "service instance %s has bound applications", name)
	}
	delete(s.services, name)
	return nil
}

func (o *operations) CreateUserProvidedServiceInstance(ctx context.Context, req platform.UserProvidedRequest) error {
	unlock, err := o.lock(OpCreateUPS, req.Name)
	if err != nil {
		return err
	}
	defer unlock()
	s, err := o.space()
	if err != nil {
		return err
	}
	if _, exists := s.services[req.Name]; exists {
		return platform.Errorf(platform.KindConflict, "service instance name %s is already taken", req.Name)
	}
	creds := make(map[string]string, len(req.Credentials))
	for k, v := range req.Credentials {
		creds[k] = v
	}
	s.services[req.Name] = &Service{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Type:        "user-provided",
		Credentials: creds,
		Tags:        append([]string(nil), req.Tags...),
	}
	return nil
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// Seed fills the platform with a small demo foundation.
func Seed(p *Platform) {
	p.AddSpace("acme", "dev")
	p.AddSpace("acme", "prod")
	p.AddSpace("globex", "sandbox")
	p.AddApp("acme", "dev", App{Name: "joke", Instances: 1, MemoryMB: 1024, DiskMB: 1024, Buildpack: "java_buildpack_offline"})
	p.AddApp("acme", "dev", App{Name: "quotes", Instances: 2, MemoryMB: 512, DiskMB: 1024, State: "STOPPED"})
	p.AddService("acme", "dev", Service{Name: "jokes-db", Offering: "postgres", Plan: "small", Bound: []string{"joke"}})
	p.SetQuota("acme", "dev", platform.SpaceQuota{Name: "dev-quota", TotalMemoryMB: intPtr(10240), AppInstances: intPtr(25)})
	p.AddOffering(platform.ServiceOffering{
		Name:        "postgres",
		Description: "Managed PostgreSQL",
		Broker:      "data-broker",
		Plans:       []platform.ServicePlan{{Name: "small", Free: true}, {Name: "large"}},
	})
	p.AddOffering(platform.ServiceOffering{Name: "redis", Description: "In-memory cache", Plans: []platform.ServicePlan{{Name: "shared", Free: true}}})
}

func intPtr(n int) *int { return &n }

// String describes the fake for logs.
func (p *Platform) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("fake platform (%d orgs, default %s/%s)", len(p.orgs), p.defaultOrg, p.defaultSpace)
}
