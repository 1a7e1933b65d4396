package tlv

import "fmt"

// TagKind identifies the tag form carried in the upper three bits of a
// TLV control octet (Matter spec Appendix A.7.2).
type TagKind uint8

const (
	TagAnonymous TagKind = iota
	TagContext
	TagCommonProfile2
	TagCommonProfile4
	TagImplicitProfile2
	TagImplicitProfile4
	TagFullyQualified6
	TagFullyQualified8
)

// Tag is a TLV element tag. The zero Tag is anonymous.
type Tag struct {
	Kind    TagKind
	Vendor  uint16
	Profile uint16
	Number  uint32
}

// AnonymousTag returns the tag used for array elements and top-level values.
func AnonymousTag() Tag { return Tag{Kind: TagAnonymous} }

// ContextTag returns a context-specific tag (0..255), the form structs use.
func ContextTag(n uint8) Tag { return Tag{Kind: TagContext, Number: uint32(n)} }

// CommonProfileTag returns a Matter common-profile tag.
func CommonProfileTag(n uint32) Tag {
	k := TagCommonProfile2
	if n > 0xFFFF {
		k = TagCommonProfile4
	}
	return Tag{Kind: k, Number: n}
}

// ImplicitProfileTag returns a tag implicitly scoped to the enclosing protocol's profile.
func ImplicitProfileTag(n uint32) Tag {
	k := TagImplicitProfile2
	if n > 0xFFFF {
		k = TagImplicitProfile4
	}
	return Tag{Kind: k, Number: n}
}

// FullyQualifiedTag returns a vendor/profile-scoped tag.
func FullyQualifiedTag(vendor, profile uint16, n uint32) Tag {
	k := TagFullyQualified6
	if n > 0xFFFF {
		k = TagFullyQualified8
	}
	return Tag{Kind: k, Vendor: vendor, Profile: profile, Number: n}
}

// IsAnonymous reports whether t carries no tag.
func (t Tag) IsAnonymous() bool { return t.Kind == TagAnonymous }

// IsContext reports whether t is a context-specific tag, and if so its number.
func (t Tag) IsContext() (uint8, bool) {
	if t.Kind == TagContext {
		return uint8(t.Number), true
	}
	return 0, false
}

// byteLen returns the encoded size of the tag field for t's kind.
func (t Tag) byteLen() int {
	switch t.Kind {
	case TagAnonymous:
		return 0
	case TagContext:
		return 1
	case TagCommonProfile2, TagImplicitProfile2:
		return 2
	case TagCommonProfile4, TagImplicitProfile4:
		return 4
	case TagFullyQualified6:
		return 6
	case TagFullyQualified8:
		return 8
	default:
		return 0
	}
}

// sortKey orders tags the way a Matter struct canonicalizes its fields on
// encode: ascending by tag kind, then by vendor/profile/number.
func (t Tag) sortKey() (k, v, p uint64, n uint64) {
	return uint64(t.Kind), uint64(t.Vendor), uint64(t.Profile), uint64(t.Number)
}

func (t Tag) String() string {
	switch t.Kind {
	case TagAnonymous:
		return "anon"
	case TagContext:
		return fmt.Sprintf("ctx(%d)", t.Number)
	case TagCommonProfile2, TagCommonProfile4:
		return fmt.Sprintf("common(%d)", t.Number)
	case TagImplicitProfile2, TagImplicitProfile4:
		return fmt.Sprintf("implicit(%d)", t.Number)
	default:
		return fmt.Sprintf("fq(%04x:%04x:%d)", t.Vendor, t.Profile, t.Number)
	}
}
