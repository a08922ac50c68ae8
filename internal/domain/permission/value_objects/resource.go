package value_objects

import "fmt"

type Resource string

const (
	ResourceSubscription Resource = "subscription"
	ResourcePool         Resource = "pool"
	ResourceEntitlement  Resource = "entitlement"
	ResourceCertificate  Resource = "certificate"
)

var validResources = map[Resource]bool{
	ResourceSubscription: true,
	ResourcePool:         true,
	ResourceEntitlement:  true,
	ResourceCertificate:  true,
}

func NewResource(resource string) (Resource, error) {
	if resource == "" {
		return "", fmt.Errorf("resource cannot be empty")
	}
	r := Resource(resource)
	if !validResources[r] {
		return "", fmt.Errorf("invalid resource: %s", resource)
	}
	return r, nil
}

func (r Resource) String() string {
	return string(r)
}
