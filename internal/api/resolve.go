package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

// ResolveRequest is the body of POST /resolve.
type ResolveRequest struct {
	Model        string              `json:"model"`
	Manufacturer string              `json:"manufacturer"`
	Endpoints    []topology.Endpoint `json:"endpoints"`
}

// handleResolve runs identity matching and topology analysis for an
// arbitrary identity without touching the registry.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Model = strings.TrimSpace(req.Model)
	req.Manufacturer = strings.TrimSpace(req.Manufacturer)
	if req.Model == "" && req.Manufacturer == "" {
		writeBadRequest(w, "model or manufacturer is required")
		return
	}

	res := s.resolver.Resolve(req.Model, req.Manufacturer, req.Endpoints)
	writeJSON(w, http.StatusOK, res.WithBlocked(s.denier))
}

// DatapointView is the JSON form of one profile field.
type DatapointView struct {
	ID          int                   `json:"id"`
	Name        string                `json:"name"`
	Capability  capability.Capability `json:"capability,omitempty"`
	Channel     string                `json:"channel,omitempty"`
	Quantity    string                `json:"quantity,omitempty"`
	Directional bool                  `json:"directional,omitempty"`
	Boolean     bool                  `json:"boolean,omitempty"`
}

// ProfileView is the JSON form of a profile.
type ProfileView struct {
	Name         profile.Name            `json:"name"`
	Fallback     bool                    `json:"fallback"`
	Capabilities []capability.Capability `json:"capabilities"`
	Datapoints   []DatapointView         `json:"datapoints,omitempty"`
}

func newProfileView(p *profile.Profile, withFields bool) ProfileView {
	v := ProfileView{
		Name:         p.Name,
		Fallback:     p.Fallback,
		Capabilities: p.Capabilities(),
	}
	if !withFields {
		return v
	}
	for _, id := range p.IDs() {
		f := p.Fields[id]
		dv := DatapointView{
			ID:          id,
			Name:        f.Name,
			Capability:  f.Capability,
			Channel:     f.Channel.String(),
			Directional: f.Directional,
			Boolean:     f.Boolean,
		}
		if f.Quantity != profile.QuantityNone {
			dv.Quantity = f.Quantity.String()
		}
		v.Datapoints = append(v.Datapoints, dv)
	}
	return v
}

func (s *Server) handleListProfiles(w http.ResponseWriter, _ *http.Request) {
	set := s.resolver.Profiles()
	names := set.Names()
	views := make([]ProfileView, 0, len(names))
	for _, n := range names {
		views = append(views, newProfileView(set.Lookup(n), false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": views, "count": len(views)})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p := s.resolver.Profiles().Lookup(profile.Name(chi.URLParam(r, "name")))
	if p == nil {
		writeNotFound(w, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p, true))
}
