package im

import "github.com/mkniffen/matterd/pkg/tlv"

// Global attribute IDs are present on every cluster instance regardless
// of what the cluster itself defines (spec §4.9, Matter spec §7.13).
const (
	GlobalAttrClusterRevision      AttributeID = 0xFFFD
	GlobalAttrFeatureMap           AttributeID = 0xFFFC
	GlobalAttrAttributeList        AttributeID = 0xFFFB
	GlobalAttrAcceptedCommandList  AttributeID = 0xFFF9
	GlobalAttrGeneratedCommandList AttributeID = 0xFFF8
)

// IsGlobalAttribute reports whether id is one of the always-present
// global attributes rather than a cluster-specific one.
func IsGlobalAttribute(id AttributeID) bool {
	return id == GlobalAttrClusterRevision ||
		id == GlobalAttrFeatureMap ||
		id == GlobalAttrAttributeList ||
		id == GlobalAttrAcceptedCommandList ||
		id == GlobalAttrGeneratedCommandList
}

// GlobalAttributeIDs lists the global attribute IDs, for a cluster to
// append to its own Attributes() list so wildcard expansion reaches them.
func GlobalAttributeIDs() []AttributeID {
	return []AttributeID{
		GlobalAttrClusterRevision,
		GlobalAttrFeatureMap,
		GlobalAttrAttributeList,
		GlobalAttrAcceptedCommandList,
		GlobalAttrGeneratedCommandList,
	}
}

// ReadGlobalAttribute reports the value of one of the five global
// attributes given a cluster's own metadata, or ok=false if id isn't one
// of them. revision and featureMap are the cluster's own fixed revision
// and feature bitmap; attrs/commands/generated list the cluster-specific
// IDs a cluster exposes (global IDs are added automatically).
func ReadGlobalAttribute(id AttributeID, revision uint16, featureMap uint32, attrs []AttributeMetadata, commands, generated []CommandID) (tlv.Value, bool) {
	switch id {
	case GlobalAttrClusterRevision:
		return tlv.Uint(tlv.AnonymousTag(), uint64(revision)), true
	case GlobalAttrFeatureMap:
		return tlv.Uint(tlv.AnonymousTag(), uint64(featureMap)), true
	case GlobalAttrAttributeList:
		ids := make([]tlv.Value, 0, len(attrs)+len(GlobalAttributeIDs()))
		for _, m := range attrs {
			ids = append(ids, tlv.Uint(tlv.AnonymousTag(), uint64(m.ID)))
		}
		for _, g := range GlobalAttributeIDs() {
			ids = append(ids, tlv.Uint(tlv.AnonymousTag(), uint64(g)))
		}
		return tlv.Array(tlv.AnonymousTag(), ids...), true
	case GlobalAttrAcceptedCommandList:
		ids := make([]tlv.Value, len(commands))
		for i, c := range commands {
			ids[i] = tlv.Uint(tlv.AnonymousTag(), uint64(c))
		}
		return tlv.Array(tlv.AnonymousTag(), ids...), true
	case GlobalAttrGeneratedCommandList:
		ids := make([]tlv.Value, len(generated))
		for i, c := range generated {
			ids[i] = tlv.Uint(tlv.AnonymousTag(), uint64(c))
		}
		return tlv.Array(tlv.AnonymousTag(), ids...), true
	default:
		return tlv.Value{}, false
	}
}
