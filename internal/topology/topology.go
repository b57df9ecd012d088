// Package topology derives gang count and controllable endpoints from a
// device's endpoint and cluster layout.
package topology

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// Cluster and endpoint ids used by the analyzer.
const (
	ClusterOnOff uint16 = 0x0006

	// CoordinatorEndpoint is the ZDO endpoint.
	CoordinatorEndpoint uint8 = 0
	// GreenPowerEndpoint is the reserved Green Power proxy endpoint.
	GreenPowerEndpoint uint8 = 242
)

// Endpoint is one entry of a device's simple-descriptor list.
// InClusters are server (provided) clusters; OutClusters are client
// (observed) clusters.
type Endpoint struct {
	ID          uint8    `json:"id"`
	InClusters  []uint16 `json:"in_clusters"`
	OutClusters []uint16 `json:"out_clusters"`
}

// Descriptor is the result of topology analysis.
type Descriptor struct {
	// GangCount is the number of independently controllable outputs.
	// Always >= 1.
	GangCount int `json:"gang_count"`

	// ControllableEndpoints lists qualifying endpoint ids in ascending order.
	ControllableEndpoints []uint8 `json:"controllable_endpoints"`
}

// descriptorJSON carries endpoint ids as numbers; a plain []uint8 would
// be encoded as a base64 string.
type descriptorJSON struct {
	GangCount             int   `json:"gang_count"`
	ControllableEndpoints []int `json:"controllable_endpoints"`
}

// MarshalJSON encodes endpoint ids as a JSON array of numbers.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := descriptorJSON{GangCount: d.GangCount, ControllableEndpoints: make([]int, len(d.ControllableEndpoints))}
	for i, ep := range d.ControllableEndpoints {
		out.ControllableEndpoints[i] = int(ep)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var in descriptorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	eps := make([]uint8, 0, len(in.ControllableEndpoints))
	for _, ep := range in.ControllableEndpoints {
		if ep < 0 || ep > 0xFF {
			return fmt.Errorf("topology: endpoint %d out of range", ep)
		}
		eps = append(eps, uint8(ep))
	}
	*d = Descriptor{GangCount: in.GangCount, ControllableEndpoints: eps}
	return nil
}

// Analyze returns the topology descriptor for eps.
//
// An endpoint is controllable when its server cluster list contains On/Off.
// Client On/Off clusters (remotes, buttons) do not count, and the
// coordinator and Green Power endpoints are never counted. Duplicate
// endpoint ids count once.
func Analyze(eps []Endpoint) Descriptor {
	seen := make(map[uint8]struct{}, len(eps))
	controllable := make([]uint8, 0, len(eps))

	for _, ep := range eps {
		if ep.ID == CoordinatorEndpoint || ep.ID == GreenPowerEndpoint {
			continue
		}
		if _, dup := seen[ep.ID]; dup {
			continue
		}
		if !slices.Contains(ep.InClusters, ClusterOnOff) {
			continue
		}
		seen[ep.ID] = struct{}{}
		controllable = append(controllable, ep.ID)
	}

	slices.Sort(controllable)

	return Descriptor{
		GangCount:             max(1, len(controllable)),
		ControllableEndpoints: controllable,
	}
}

// OnOffCapabilities returns the switching capabilities for the topology:
// onoff for the first gang and onoff.gangN for each further gang.
func (d Descriptor) OnOffCapabilities() []capability.Capability {
	caps := []capability.Capability{capability.OnOff}
	for n := 2; n <= d.GangCount; n++ {
		caps = append(caps, GangCapability(n))
	}
	return caps
}

// GangCapability returns the onoff capability for gang n (1-based).
func GangCapability(n int) capability.Capability {
	if n <= 1 {
		return capability.OnOff
	}
	return capability.OnOff.Sub(fmt.Sprintf("gang%d", n))
}

// EndpointForGang returns the endpoint serving gang n (1-based).
func (d Descriptor) EndpointForGang(n int) (uint8, bool) {
	if n < 1 || n > len(d.ControllableEndpoints) {
		return 0, false
	}
	return d.ControllableEndpoints[n-1], true
}
