package im

import (
	"context"
	"sync"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
	"github.com/mkniffen/matterd/pkg/tlv"
)

// Type aliases let callers write im.EndpointID instead of reaching into
// the message package directly, mirroring how the wire types are shared
// between the codec and the dispatch layer.
type (
	EndpointID  = message.EndpointID
	ClusterID   = message.ClusterID
	AttributeID = message.AttributeID
	CommandID   = message.CommandID
)

// AttributeMetadata describes one attribute a Cluster exposes, enough for
// the router to pick a required privilege and fabric-scoping behavior
// without calling into the cluster itself.
type AttributeMetadata struct {
	ID           AttributeID
	Writable     bool
	FabricScoped bool
}

// Cluster is a server-side cluster instance: a fixed ID on a fixed
// endpoint, holding attribute state and handling commands. Data crosses
// the boundary as tlv.Value so a cluster never needs to know about wire
// framing.
type Cluster interface {
	ID() ClusterID
	DataVersion() message.DataVersion
	Attributes() []AttributeMetadata
	Commands() []CommandID

	ReadAttribute(ctx context.Context, reqCtx acl.Context, attr AttributeID) (tlv.Value, error)
	WriteAttribute(ctx context.Context, reqCtx acl.Context, attr AttributeID, data tlv.Value) error
	InvokeCommand(ctx context.Context, reqCtx acl.Context, cmd CommandID, fields tlv.Value) (*tlv.Value, error)
}

// Router maps (endpoint, cluster) to registered Cluster instances and
// expands wildcard paths against that tree (spec §4.9).
type Router struct {
	mu        sync.RWMutex
	endpoints map[EndpointID]map[ClusterID]Cluster
	// order preserves registration order per endpoint, since wildcard
	// expansion must walk the tree deterministically.
	order map[EndpointID][]ClusterID
}

func NewRouter() *Router {
	return &Router{
		endpoints: make(map[EndpointID]map[ClusterID]Cluster),
		order:     make(map[EndpointID][]ClusterID),
	}
}

// RegisterCluster attaches a cluster instance to an endpoint.
func (r *Router) RegisterCluster(endpoint EndpointID, c Cluster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endpoints[endpoint] == nil {
		r.endpoints[endpoint] = make(map[ClusterID]Cluster)
	}
	if _, exists := r.endpoints[endpoint][c.ID()]; !exists {
		r.order[endpoint] = append(r.order[endpoint], c.ID())
	}
	r.endpoints[endpoint][c.ID()] = c
}

func (r *Router) cluster(endpoint EndpointID, cluster ClusterID) (Cluster, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clusters, ok := r.endpoints[endpoint]
	if !ok {
		return nil, false
	}
	c, ok := clusters[cluster]
	return c, ok
}

// endpointIDs returns registered endpoint IDs in ascending order.
func (r *Router) endpointIDs() []EndpointID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]EndpointID, 0, len(r.endpoints))
	for id := range r.endpoints {
		ids = append(ids, id)
	}
	sortEndpointIDs(ids)
	return ids
}

func (r *Router) clusterIDs(endpoint EndpointID) []ClusterID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ClusterID(nil), r.order[endpoint]...)
}

func sortEndpointIDs(ids []EndpointID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
