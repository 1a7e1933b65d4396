// Package clusters groups the reference cluster implementations this
// repo ships against pkg/im.Cluster:
//
//   - clusters/descriptor: Descriptor Cluster (0x001D)
//   - clusters/onoff: On/Off Cluster (0x0006)
//   - clusters/accesscontrol: Access Control Cluster (0x001F)
//
// These three are enough to drive every Interaction Model and ACL
// invariant a server needs to exercise; a full appliance-cluster
// ecosystem is out of scope.
package clusters
