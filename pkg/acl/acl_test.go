package acl

import "testing"

func endpoint(v uint16) *uint16 { return &v }
func cluster(v uint32) *uint32  { return &v }

func TestCheckPASEAlwaysAllows(t *testing.T) {
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 42, IsPASE: true}
	if !Check(ctx, nil, PrivilegeAdminister, 1, 6) {
		t.Fatal("PASE session should always be allowed")
	}
}

func TestCheckFabricIsolation(t *testing.T) {
	entries := []Entry{
		{FabricIndex: 2, Privilege: PrivilegeAdminister, AuthMode: AuthModeCASE},
	}
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 42}
	if Check(ctx, entries, PrivilegeView, 1, 6) {
		t.Fatal("an entry on another fabric must not grant access")
	}
}

func TestCheckSubjectAndTargetWildcards(t *testing.T) {
	entries := []Entry{
		{FabricIndex: 1, Privilege: PrivilegeOperate, AuthMode: AuthModeCASE, Subjects: nil, Targets: nil},
	}
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 99}
	if !Check(ctx, entries, PrivilegeOperate, 3, 0x0006) {
		t.Fatal("nil subjects/targets should act as wildcards")
	}
}

func TestCheckSubjectListExcludesOthers(t *testing.T) {
	entries := []Entry{
		{FabricIndex: 1, Privilege: PrivilegeOperate, AuthMode: AuthModeCASE, Subjects: []uint64{7}},
	}
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 8}
	if Check(ctx, entries, PrivilegeView, 0, 6) {
		t.Fatal("subject 8 should not match an entry scoped to subject 7")
	}
}

func TestCheckTargetEndpointAndCluster(t *testing.T) {
	entries := []Entry{
		{FabricIndex: 1, Privilege: PrivilegeManage, AuthMode: AuthModeCASE,
			Targets: []Target{{Endpoint: endpoint(1), Cluster: cluster(6)}}},
	}
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 1}

	if !Check(ctx, entries, PrivilegeOperate, 1, 6) {
		t.Fatal("matching endpoint+cluster at a lower required privilege should be allowed")
	}
	if Check(ctx, entries, PrivilegeOperate, 2, 6) {
		t.Fatal("a different endpoint should not match")
	}
}

func TestCheckPrivilegeHierarchy(t *testing.T) {
	entries := []Entry{
		{FabricIndex: 1, Privilege: PrivilegeView, AuthMode: AuthModeCASE},
	}
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 1}
	if Check(ctx, entries, PrivilegeOperate, 0, 6) {
		t.Fatal("a View entry must not satisfy an Operate requirement")
	}
	if !Check(ctx, entries, PrivilegeView, 0, 6) {
		t.Fatal("a View entry should satisfy a View requirement")
	}
}

func TestCheckAuthModeMismatch(t *testing.T) {
	entries := []Entry{
		{FabricIndex: 1, Privilege: PrivilegeAdminister, AuthMode: AuthModeGroup},
	}
	ctx := Context{FabricIndex: 1, AuthMode: AuthModeCASE, Subject: 1}
	if Check(ctx, entries, PrivilegeView, 0, 6) {
		t.Fatal("a Group-scoped entry should not match a CASE session")
	}
}
