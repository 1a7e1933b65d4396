// Package acl implements Matter's Access Control List check (spec §4.11):
// a pure function from a requester's context and a fabric's ACL entries
// to an allow/deny decision, with no I/O and no mutable state of its own.
package acl

import "github.com/mkniffen/matterd/pkg/fabric"

// Privilege orders the access levels an ACL entry can grant. Each level
// subsumes every level below it.
type Privilege uint8

const (
	PrivilegeView Privilege = iota + 1
	PrivilegeProxyView
	PrivilegeOperate
	PrivilegeManage
	PrivilegeAdminister
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeView:
		return "View"
	case PrivilegeProxyView:
		return "ProxyView"
	case PrivilegeOperate:
		return "Operate"
	case PrivilegeManage:
		return "Manage"
	case PrivilegeAdminister:
		return "Administer"
	default:
		return "Unknown"
	}
}

// Grants reports whether holding p satisfies a requirement of required.
func (p Privilege) Grants(required Privilege) bool {
	return p >= required
}

// AuthMode is how a session authenticated, one of the three modes an ACL
// entry can be scoped to.
type AuthMode uint8

const (
	AuthModePASE AuthMode = iota + 1
	AuthModeCASE
	AuthModeGroup
)

// Target names a (endpoint, cluster) scope an entry grants access to;
// a nil component acts as a wildcard over that component (spec §4.11).
type Target struct {
	Endpoint *uint16
	Cluster  *uint32
}

func (t Target) matches(endpoint uint16, cluster uint32) bool {
	if t.Endpoint != nil && *t.Endpoint != endpoint {
		return false
	}
	if t.Cluster != nil && *t.Cluster != cluster {
		return false
	}
	return true
}

// Entry is one row of a fabric's Access Control List (cluster 0x001F,
// AccessControlEntryStruct).
type Entry struct {
	FabricIndex fabric.Index
	Privilege   Privilege
	AuthMode    AuthMode
	// Subjects lists the NodeIDs this entry applies to; nil means any
	// subject on a matching session.
	Subjects []uint64
	// Targets lists the (endpoint, cluster) scopes this entry applies
	// to; nil means every target.
	Targets []Target
}

func (e Entry) subjectMatches(subject uint64) bool {
	if e.Subjects == nil {
		return true
	}
	for _, s := range e.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func (e Entry) targetMatches(endpoint uint16, cluster uint32) bool {
	if e.Targets == nil {
		return true
	}
	for _, t := range e.Targets {
		if t.matches(endpoint, cluster) {
			return true
		}
	}
	return false
}

// Context describes the requester making an Interaction Model request.
type Context struct {
	FabricIndex fabric.Index
	AuthMode    AuthMode
	Subject     uint64
	// IsPASE marks a PASE session, which always has implicit Administer
	// access during commissioning regardless of stored ACL entries
	// (spec §4.9, "PASE always allows").
	IsPASE bool
}

// Check decides whether ctx may exercise required on (endpoint, cluster),
// given the fabric's ACL entries (spec §4.11). It allows iff ctx is a
// PASE session, or some entry in entries satisfies: same fabric, same
// auth mode, a matching subject, a matching target, and a privilege
// grant covering required.
func Check(ctx Context, entries []Entry, required Privilege, endpoint uint16, cluster uint32) bool {
	if ctx.IsPASE {
		return true
	}
	for _, e := range entries {
		if e.FabricIndex != ctx.FabricIndex {
			continue
		}
		if e.AuthMode != ctx.AuthMode {
			continue
		}
		if !e.subjectMatches(ctx.Subject) {
			continue
		}
		if !e.targetMatches(endpoint, cluster) {
			continue
		}
		if e.Privilege.Grants(required) {
			return true
		}
	}
	return false
}
