package tlv

// ElementType is the wire-level element type in the lower 5 bits of a
// control octet (Matter spec Appendix A.7.1).
type ElementType uint8

const (
	ElementTypeInt8   ElementType = 0x00
	ElementTypeInt16  ElementType = 0x01
	ElementTypeInt32  ElementType = 0x02
	ElementTypeInt64  ElementType = 0x03
	ElementTypeUInt8  ElementType = 0x04
	ElementTypeUInt16 ElementType = 0x05
	ElementTypeUInt32 ElementType = 0x06
	ElementTypeUInt64 ElementType = 0x07
	ElementTypeFalse  ElementType = 0x08
	ElementTypeTrue   ElementType = 0x09
	ElementTypeFloat32 ElementType = 0x0A
	ElementTypeFloat64 ElementType = 0x0B
	ElementTypeUTF8_1 ElementType = 0x0C
	ElementTypeUTF8_2 ElementType = 0x0D
	ElementTypeUTF8_4 ElementType = 0x0E
	ElementTypeUTF8_8 ElementType = 0x0F
	ElementTypeBytes1 ElementType = 0x10
	ElementTypeBytes2 ElementType = 0x11
	ElementTypeBytes4 ElementType = 0x12
	ElementTypeBytes8 ElementType = 0x13
	ElementTypeNull   ElementType = 0x14
	ElementTypeStruct ElementType = 0x15
	ElementTypeArray  ElementType = 0x16
	ElementTypeList   ElementType = 0x17
	ElementTypeEnd    ElementType = 0x18
)

const (
	elementTypeMask = 0x1F
	tagKindMask     = 0xE0
	tagKindShift    = 5
)

func splitControlOctet(b byte) (ElementType, TagKind) {
	return ElementType(b & elementTypeMask), TagKind((b & tagKindMask) >> tagKindShift)
}

func buildControlOctet(et ElementType, tk TagKind) byte {
	return byte(et&elementTypeMask) | byte(tk<<tagKindShift)
}

func (e ElementType) isContainer() bool {
	return e == ElementTypeStruct || e == ElementTypeArray || e == ElementTypeList
}

func (e ElementType) intValueSize() int {
	switch e {
	case ElementTypeInt8, ElementTypeUInt8:
		return 1
	case ElementTypeInt16, ElementTypeUInt16:
		return 2
	case ElementTypeInt32, ElementTypeUInt32, ElementTypeFloat32:
		return 4
	case ElementTypeInt64, ElementTypeUInt64, ElementTypeFloat64:
		return 8
	default:
		return 0
	}
}

func (e ElementType) stringLenFieldSize() int {
	switch e {
	case ElementTypeUTF8_1, ElementTypeBytes1:
		return 1
	case ElementTypeUTF8_2, ElementTypeBytes2:
		return 2
	case ElementTypeUTF8_4, ElementTypeBytes4:
		return 4
	case ElementTypeUTF8_8, ElementTypeBytes8:
		return 8
	default:
		return 0
	}
}
