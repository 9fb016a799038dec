// Package platform defines the contract between the gateway and the
// Cloud Foundry control plane. Implementations live in sub-packages.
package platform

import (
	"context"

	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// Client builds operation handles bound to a scope. Operations must be cheap
// and hold no state shared between calls, so the gateway builds a new handle
// for every dispatch.
type Client interface {
	Operations(s scope.Scope) Operations
}

// Operations is one handle per scope. Every method blocks until the platform
// has finished the operation, including any asynchronous job it started.
type Operations interface {
	ListApplications(ctx context.Context) ([]ApplicationSummary, error)
	GetApplication(ctx context.Context, name string) (*ApplicationDetail, error)
	// PushApplication creates or updates the application and uploads its
	// bits, leaving it stopped.
	PushApplication(ctx context.Context, req PushRequest) error
	SetEnvironmentVariable(ctx context.Context, app, name, value string) error
	ScaleApplication(ctx context.Context, req ScaleRequest) error
	StartApplication(ctx context.Context, name string) error
	StopApplication(ctx context.Context, name string) error
	RestartApplication(ctx context.Context, name string) error
	DeleteApplication(ctx context.Context, name string) error

	// ListOrganizations ignores the handle's scope; nameFilter narrows the
	// result to one organization when set.
	ListOrganizations(ctx context.Context, nameFilter string) ([]Organization, error)
	ListSpaces(ctx context.Context) ([]Space, error)
	GetSpaceQuota(ctx context.Context, spaceName string) (*SpaceQuota, error)

	ListServiceInstances(ctx context.Context) ([]ServiceInstanceSummary, error)
	GetServiceInstance(ctx context.Context, name string) (*ServiceInstance, error)
	ListServiceOfferings(ctx context.Context) ([]ServiceOffering, error)
	BindService(ctx context.Context, instance, app string) error
	UnbindService(ctx context.Context, instance, app string) error
	DeleteServiceInstance(ctx context.Context, name string) error
	CreateUserProvidedServiceInstance(ctx context.Context, req UserProvidedRequest) error
}

// PushRequest describes the bits and resources of an application push.
// Nil sizes leave the platform's current or default value in place.
type PushRequest struct {
	Name      string
	Path      string
	Buildpack string
	MemoryMB  *int
	DiskMB    *int
}

// ScaleRequest changes only the attributes that are non-nil.
type ScaleRequest struct {
	Name      string
	Instances *int
	MemoryMB  *int
	DiskMB    *int
}

// UserProvidedRequest creates a user provided service instance.
type UserProvidedRequest struct {
	Name        string
	Credentials map[string]string
	Tags        []string
}

// ApplicationSummary is one row of an application listing.
type ApplicationSummary struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	State            string   `json:"state"`
	Instances        int      `json:"instances"`
	RunningInstances int      `json:"running_instances"`
	MemoryMB         int      `json:"memory_mb"`
	DiskMB           int      `json:"disk_mb"`
	URLs             []string `json:"urls,omitempty"`
}

// InstanceDetail describes one running instance of an application.
type InstanceDetail struct {
	Index  int    `json:"index"`
	State  string `json:"state"`
	Uptime int64  `json:"uptime_seconds"`
}

// ApplicationDetail is the full view of one application.
type ApplicationDetail struct {
	ApplicationSummary
	Buildpacks    []string          `json:"buildpacks,omitempty"`
	Stack         string            `json:"stack,omitempty"`
	InstanceStats []InstanceDetail  `json:"instance_stats,omitempty"`
	Environment   map[string]string `json:"environment,omitempty"`
}

// Organization is a tenant on the platform.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Space partitions an organization.
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpaceQuota is a set of resource limits applied to a space. Nil limits are
// unlimited.
type SpaceQuota struct {
	Name                string `json:"name"`
	TotalMemoryMB       *int   `json:"total_memory_mb,omitempty"`
	InstanceMemoryMB    *int   `json:"instance_memory_mb,omitempty"`
	AppInstances        *int   `json:"app_instances,omitempty"`
	TotalRoutes         *int   `json:"total_routes,omitempty"`
	TotalServices       *int   `json:"total_services,omitempty"`
	PaidServicesAllowed bool   `json:"paid_services_allowed"`
}

// ServiceInstanceSummary is one row of a service instance listing.
type ServiceInstanceSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Service       string   `json:"service,omitempty"`
	Plan          string   `json:"plan,omitempty"`
	Applications  []string `json:"applications,omitempty"`
	LastOperation string   `json:"last_operation,omitempty"`
}

// ServiceInstance is the full view of one service instance.
type ServiceInstance struct {
	ServiceInstanceSummary
	Tags         []string `json:"tags,omitempty"`
	DashboardURL string   `json:"dashboard_url,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// ServicePlan is one plan of a marketplace offering.
type ServicePlan struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Free        bool   `json:"free"`
}

// ServiceOffering is a marketplace entry.
type ServiceOffering struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Broker      string        `json:"broker,omitempty"`
	Plans       []ServicePlan `json:"plans,omitempty"`
}
