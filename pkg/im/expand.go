package im

import "github.com/mkniffen/matterd/pkg/im/message"

// ConcreteAttributePath is a fully-resolved (endpoint, cluster, attribute)
// triple, the unit the router actually reads or writes.
type ConcreteAttributePath struct {
	Endpoint  EndpointID
	Cluster   ClusterID
	Attribute AttributeID
}

// expandAttributePath resolves a (possibly wildcard) AttributePathIB to
// the Cartesian product of matching endpoints x clusters x attributes
// (spec §4.9, "wildcards... expand to the Cartesian product").
func (r *Router) expandAttributePath(p message.AttributePathIB) []ConcreteAttributePath {
	var out []ConcreteAttributePath

	endpoints := r.endpointIDs()
	if p.Endpoint != nil {
		endpoints = []EndpointID{*p.Endpoint}
	}

	for _, ep := range endpoints {
		clusterIDs := r.clusterIDs(ep)
		if p.Cluster != nil {
			clusterIDs = []ClusterID{*p.Cluster}
		}
		for _, cid := range clusterIDs {
			c, ok := r.cluster(ep, cid)
			if !ok {
				continue
			}
			attrs := attributeIDs(c)
			if p.Attribute != nil {
				attrs = []AttributeID{*p.Attribute}
			}
			for _, aid := range attrs {
				if !hasAttribute(c, aid) {
					continue
				}
				out = append(out, ConcreteAttributePath{Endpoint: ep, Cluster: cid, Attribute: aid})
			}
		}
	}
	return out
}

func attributeIDs(c Cluster) []AttributeID {
	meta := c.Attributes()
	ids := make([]AttributeID, len(meta))
	for i, m := range meta {
		ids[i] = m.ID
	}
	return ids
}

func hasAttribute(c Cluster, id AttributeID) bool {
	for _, m := range c.Attributes() {
		if m.ID == id {
			return true
		}
	}
	return false
}

func attributeMeta(c Cluster, id AttributeID) (AttributeMetadata, bool) {
	for _, m := range c.Attributes() {
		if m.ID == id {
			return m, true
		}
	}
	return AttributeMetadata{}, false
}
