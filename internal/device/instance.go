package device

import (
	"context"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// Instance returns the capability.Instance view of a registered device,
// which the capability mutator uses to grant capabilities.
func (r *Registry) Instance(ctx context.Context, id string) (capability.Instance, error) {
	d, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &instance{registry: r, id: d.ID, class: d.Class}, nil
}

type instance struct {
	registry *Registry
	id       string
	class    capability.Class
}

func (i *instance) ID() string { return i.id }

func (i *instance) Class() capability.Class { return i.class }

func (i *instance) HasCapability(c capability.Capability) bool {
	d, ok := i.registry.cached(i.id)
	return ok && d.HasCapability(c)
}

func (i *instance) AddCapability(ctx context.Context, c capability.Capability) error {
	return i.registry.AddCapability(ctx, i.id, c)
}
