// Package im implements the Interaction Model (spec §4.9/§4.10): routing
// read, write, invoke and subscribe requests against a registered cluster
// tree, gated by the access control engine in pkg/acl.
package im
