package cf

// Wire shapes of the v3 API. Only the fields the adapter reads are declared.

type apiError struct {
	Code   int    `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type link struct {
	Href string `json:"href"`
}

type page[T any] struct {
	Pagination struct {
		TotalResults int   `json:"total_results"`
		Next         *link `json:"next"`
	} `json:"pagination"`
	Resources []T      `json:"resources"`
	Included  included `json:"included"`
}

type included struct {
	Apps             []named           `json:"apps,omitempty"`
	ServicePlans     []servicePlan     `json:"service_plans,omitempty"`
	ServiceOfferings []serviceOffering `json:"service_offerings,omitempty"`
	ServiceBrokers   []named           `json:"service_brokers,omitempty"`
}

func (i *included) merge(o included) {
	i.Apps = append(i.Apps, o.Apps...)
	i.ServicePlans = append(i.ServicePlans, o.ServicePlans...)
	i.ServiceOfferings = append(i.ServiceOfferings, o.ServiceOfferings...)
	i.ServiceBrokers = append(i.ServiceBrokers, o.ServiceBrokers...)
}

type guidRef struct {
	GUID string `json:"guid"`
}

type relationship struct {
	Data *guidRef `json:"data"`
}

func (r relationship) guid() string {
	if r.Data == nil {
		return ""
	}
	return r.Data.GUID
}

func toOne(guid string) relationship {
	return relationship{Data: &guidRef{GUID: guid}}
}

type named struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type space struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Relationships struct {
		Quota relationship `json:"quota"`
	} `json:"relationships"`
}

type spaceQuota struct {
	Name string `json:"name"`
	Apps struct {
		TotalMemoryInMB      *int `json:"total_memory_in_mb"`
		PerProcessMemoryInMB *int `json:"per_process_memory_in_mb"`
		TotalInstances       *int `json:"total_instances"`
	} `json:"apps"`
	Services struct {
		PaidServicesAllowed   bool `json:"paid_services_allowed"`
		TotalServiceInstances *int `json:"total_service_instances"`
	} `json:"services"`
	Routes struct {
		TotalRoutes *int `json:"total_routes"`
	} `json:"routes"`
}

type lifecycle struct {
	Type string `json:"type"`
	Data struct {
		Buildpacks []string `json:"buildpacks,omitempty"`
		Stack      string   `json:"stack,omitempty"`
	} `json:"data"`
}

type app struct {
	GUID      string    `json:"guid"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Lifecycle lifecycle `json:"lifecycle"`
}

type process struct {
	GUID          string `json:"guid"`
	Type          string `json:"type"`
	Instances     int    `json:"instances"`
	MemoryInMB    int    `json:"memory_in_mb"`
	DiskInMB      int    `json:"disk_in_mb"`
	Relationships struct {
		App relationship `json:"app"`
	} `json:"relationships"`
}

type processStat struct {
	Index  int    `json:"index"`
	State  string `json:"state"`
	Uptime int64  `json:"uptime"`
}

type route struct {
	URL          string `json:"url"`
	Destinations []struct {
		App guidRef `json:"app"`
	} `json:"destinations"`
}

type envVars struct {
	Var map[string]any `json:"var"`
}

type pkg struct {
	GUID  string `json:"guid"`
	State string `json:"state"`
}

type build struct {
	GUID    string   `json:"guid"`
	State   string   `json:"state"`
	Error   string   `json:"error"`
	Droplet *guidRef `json:"droplet"`
}

type job struct {
	GUID   string     `json:"guid"`
	State  string     `json:"state"`
	Errors []apiError `json:"errors"`
}

type lastOperation struct {
	Type        string `json:"type"`
	State       string `json:"state"`
	Description string `json:"description"`
}

type serviceInstance struct {
	GUID          string         `json:"guid"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Tags          []string       `json:"tags"`
	DashboardURL  string         `json:"dashboard_url"`
	LastOperation *lastOperation `json:"last_operation"`
	Relationships struct {
		ServicePlan relationship `json:"service_plan"`
	} `json:"relationships"`
}

type servicePlan struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Free          bool   `json:"free"`
	Relationships struct {
		ServiceOffering relationship `json:"service_offering"`
	} `json:"relationships"`
}

type serviceOffering struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Relationships struct {
		ServiceBroker relationship `json:"service_broker"`
	} `json:"relationships"`
}

type credentialBinding struct {
	GUID          string `json:"guid"`
	Relationships struct {
		App             relationship `json:"app"`
		ServiceInstance relationship `json:"service_instance"`
	} `json:"relationships"`
}
