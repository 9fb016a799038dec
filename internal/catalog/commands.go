package catalog

import "sync"

// Command names.
const (
	ApplicationsList       = "applications-list"
	ApplicationDetails     = "application-details"
	Push                   = "push"
	Scale                  = "scale"
	Start                  = "start"
	Stop                   = "stop"
	Restart                = "restart"
	ApplicationDelete      = "application-delete"
	OrganizationsList      = "organizations-list"
	SpacesList             = "spaces-list"
	SpaceQuota             = "space-quota"
	ServiceInstancesList   = "service-instances-list"
	ServiceInstanceDetails = "service-instance-details"
	ServiceOfferingsList   = "service-offerings-list"
	ServiceBind            = "service-bind"
	ServiceUnbind          = "service-unbind"
	ServiceInstanceDelete  = "service-instance-delete"
	UserProvidedCreate     = "user-provided-service-create"
)

// Parameter names.
const (
	ParamName            = "name"
	ParamPath            = "path"
	ParamNoStart         = "no_start"
	ParamInstances       = "instances"
	ParamMemory          = "memory_mb"
	ParamDisk            = "disk_mb"
	ParamOrgFilter       = "org_name"
	ParamSpaceName       = "space_name"
	ParamServiceInstance = "service_instance_name"
	ParamApplication     = "application_name"
	ParamCredentials     = "credentials"
	ParamTags            = "tags"
)

const (
	appNameDesc     = "Name of the Cloud Foundry application"
	siNameDesc      = "Name of the Cloud Foundry service instance"
	memoryDesc      = "The memory limit, in megabytes, of the Cloud Foundry application. Omit to leave unchanged."
	diskDesc        = "The disk size, in megabytes, of the Cloud Foundry application. Omit to leave unchanged."
	instancesDesc   = "The new number of instances of the Cloud Foundry application. Omit to leave unchanged."
	pathDesc        = "Fully qualified path to the compiled JAR file, a directory, or a glob matching exactly one file"
	noStartDesc     = "Set this flag to true to prevent the application from starting after being pushed"
	credentialsDesc = "Key/value pairs for credentials that will be part of the user provided service instance"
	tagsDesc        = "Tags that will be associated with the user provided service instance"
)

func appName() ParameterSpec {
	return ParameterSpec{Name: ParamName, Description: appNameDesc, Required: true, Type: TypeString}
}

func siName() ParameterSpec {
	return ParameterSpec{Name: ParamServiceInstance, Description: siNameDesc, Required: true, Type: TypeString}
}

func bindingParams() []ParameterSpec {
	return []ParameterSpec{
		siName(),
		{Name: ParamApplication, Description: appNameDesc, Required: true, Type: TypeString},
	}
}

// Definitions returns the gateway's command set in catalog order.
func Definitions() []CommandSpec {
	return []CommandSpec{
		// Applications
		{
			Name:        ApplicationsList,
			Description: "Return the applications (apps) in my Cloud Foundry space",
		},
		{
			Name:        ApplicationDetails,
			Description: "Get detailed information about a Cloud Foundry application",
			Parameters:  []ParameterSpec{appName()},
		},
		{
			Name:        Push,
			Description: "Push an application JAR file to the Cloud Foundry space",
			Parameters: []ParameterSpec{
				appName(),
				{Name: ParamPath, Description: pathDesc, Required: true, Type: TypeString},
				{Name: ParamNoStart, Description: noStartDesc, Type: TypeBoolean},
				{Name: ParamMemory, Description: memoryDesc, Type: TypeInteger},
				{Name: ParamDisk, Description: diskDesc, Type: TypeInteger},
			},
		},
		{
			Name:        Scale,
			Description: "Scale the number of instances, memory, or disk size of an application",
			Parameters: []ParameterSpec{
				appName(),
				{Name: ParamInstances, Description: instancesDesc, Type: TypeInteger},
				{Name: ParamMemory, Description: memoryDesc, Type: TypeInteger},
				{Name: ParamDisk, Description: diskDesc, Type: TypeInteger},
			},
		},
		{
			Name:        Start,
			Description: "Start a Cloud Foundry application",
			Parameters:  []ParameterSpec{appName()},
		},
		{
			Name:        Stop,
			Description: "Stop a running Cloud Foundry application",
			Parameters:  []ParameterSpec{appName()},
		},
		{
			Name:        Restart,
			Description: "Restart a running Cloud Foundry application",
			Parameters:  []ParameterSpec{appName()},
		},
		{
			Name:        ApplicationDelete,
			Description: "Delete a Cloud Foundry application",
			Parameters:  []ParameterSpec{appName()},
		},

		// Organizations
		{
			Name:        OrganizationsList,
			Description: "Return the organizations (orgs) in my Cloud Foundry foundation",
			Parameters: []ParameterSpec{
				{Name: ParamOrgFilter, Description: "Only return the organization with this name", Type: TypeString},
			},
		},

		// Spaces
		{
			Name:        SpacesList,
			Description: "Return the spaces in my Cloud Foundry organization (org)",
		},
		{
			Name:        SpaceQuota,
			Description: "Return the quota (set of resource limits) scoped to a Cloud Foundry space",
			Parameters: []ParameterSpec{
				{Name: ParamSpaceName, Description: "Name of the Cloud Foundry space whose quota to return", Required: true, Type: TypeString},
			},
		},

		// Services
		{
			Name:        ServiceInstancesList,
			Description: "Return the service instances (SIs) in my Cloud Foundry space",
		},
		{
			Name:        ServiceInstanceDetails,
			Description: "Get detailed information about a service instance in my Cloud Foundry space",
			Parameters:  []ParameterSpec{siName()},
		},
		{
			Name:        ServiceOfferingsList,
			Description: "Return the service offerings available to me in the Cloud Foundry marketplace",
		},
		{
			Name:        ServiceBind,
			Description: "Bind a service instance to a Cloud Foundry application",
			Parameters:  bindingParams(),
		},
		{
			Name:        ServiceUnbind,
			Description: "Unbind a service instance from a Cloud Foundry application",
			Parameters:  bindingParams(),
		},
		{
			Name:        ServiceInstanceDelete,
			Description: "Delete a service instance from a Cloud Foundry space",
			Parameters:  []ParameterSpec{siName()},
		},
		{
			Name:        UserProvidedCreate,
			Description: "Create a user provided service instance (cups) in the Cloud Foundry space",
			Parameters: []ParameterSpec{
				siName(),
				{Name: ParamCredentials, Description: credentialsDesc, Required: true, Type: TypeStringMap},
				{Name: ParamTags, Description: tagsDesc, Type: TypeStringList},
			},
		},
	}
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := New(Definitions()...)
	if err != nil {
		panic("catalog: invalid built-in definitions: " + err.Error())
	}
	return c
})

// Default returns the process-wide catalog, built on first use.
func Default() *Catalog { return defaultCatalog() }
