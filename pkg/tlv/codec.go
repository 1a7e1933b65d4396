package tlv

import (
	"encoding/binary"
	"math"
	"sort"
	"unicode/utf8"
)

// Encode serializes v to its canonical wire form. Struct fields are
// emitted in ascending tag order regardless of the order they were built
// in (spec §4.1: required so a struct's signed payload hashes stably).
func Encode(v Value) ([]byte, error) {
	w := make([]byte, 0, 64)
	w, err := appendValue(w, v)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func appendValue(w []byte, v Value) ([]byte, error) {
	switch v.Kind {
	case KindInt:
		et := minSignedWidth(v.i)
		w = append(w, buildControlOctet(et, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		return appendIntBytes(w, et, uint64(v.i)), nil

	case KindUint:
		et := minUnsignedWidth(v.u)
		w = append(w, buildControlOctet(et, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		return appendIntBytes(w, et, v.u), nil

	case KindBool:
		et := ElementTypeFalse
		if b, _ := v.AsBool(); b {
			et = ElementTypeTrue
		}
		w = append(w, buildControlOctet(et, v.Tag.Kind))
		return appendTag(w, v.Tag), nil

	case KindFloat32:
		w = append(w, buildControlOctet(ElementTypeFloat32, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v.f32))
		return append(w, buf[:]...), nil

	case KindFloat64:
		w = append(w, buildControlOctet(ElementTypeFloat64, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.f64))
		return append(w, buf[:]...), nil

	case KindString:
		data := []byte(v.s)
		et := utf8LenElementType(len(data))
		w = append(w, buildControlOctet(et, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		w = appendLength(w, et.stringLenFieldSize(), len(data))
		return append(w, data...), nil

	case KindBytes:
		et := bytesLenElementType(len(v.b))
		w = append(w, buildControlOctet(et, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		w = appendLength(w, et.stringLenFieldSize(), len(v.b))
		return append(w, v.b...), nil

	case KindNull:
		w = append(w, buildControlOctet(ElementTypeNull, v.Tag.Kind))
		return appendTag(w, v.Tag), nil

	case KindStruct:
		w = append(w, buildControlOctet(ElementTypeStruct, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		sorted := append([]Value(nil), v.elems...)
		sort.SliceStable(sorted, func(i, j int) bool {
			ki, vi, pi, ni := sorted[i].Tag.sortKey()
			kj, vj, pj, nj := sorted[j].Tag.sortKey()
			if ki != kj {
				return ki < kj
			}
			if vi != vj {
				return vi < vj
			}
			if pi != pj {
				return pi < pj
			}
			return ni < nj
		})
		var err error
		for _, f := range sorted {
			w, err = appendValue(w, f)
			if err != nil {
				return nil, err
			}
		}
		return append(w, buildControlOctet(ElementTypeEnd, TagAnonymous)), nil

	case KindArray:
		w = append(w, buildControlOctet(ElementTypeArray, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		var err error
		for _, e := range v.elems {
			anon := e
			anon.Tag = AnonymousTag()
			w, err = appendValue(w, anon)
			if err != nil {
				return nil, err
			}
		}
		return append(w, buildControlOctet(ElementTypeEnd, TagAnonymous)), nil

	case KindList:
		w = append(w, buildControlOctet(ElementTypeList, v.Tag.Kind))
		w = appendTag(w, v.Tag)
		var err error
		for _, e := range v.elems {
			w, err = appendValue(w, e)
			if err != nil {
				return nil, err
			}
		}
		return append(w, buildControlOctet(ElementTypeEnd, TagAnonymous)), nil

	default:
		return nil, ErrInvalidTLV
	}
}

func appendIntBytes(w []byte, et ElementType, u uint64) []byte {
	switch et.intValueSize() {
	case 1:
		return append(w, byte(u))
	case 2:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(u))
		return append(w, b[:]...)
	case 4:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(u))
		return append(w, b[:]...)
	default:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], u)
		return append(w, b[:]...)
	}
}

func appendLength(w []byte, size int, n int) []byte {
	switch size {
	case 1:
		return append(w, byte(n))
	case 2:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		return append(w, b[:]...)
	default:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		return append(w, b[:]...)
	}
}

func appendTag(w []byte, t Tag) []byte {
	switch t.Kind {
	case TagAnonymous:
		return w
	case TagContext:
		return append(w, byte(t.Number))
	case TagCommonProfile2, TagImplicitProfile2:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(t.Number))
		return append(w, b[:]...)
	case TagCommonProfile4, TagImplicitProfile4:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], t.Number)
		return append(w, b[:]...)
	case TagFullyQualified6:
		var b [6]byte
		binary.LittleEndian.PutUint16(b[0:2], t.Vendor)
		binary.LittleEndian.PutUint16(b[2:4], t.Profile)
		binary.LittleEndian.PutUint16(b[4:6], uint16(t.Number))
		return append(w, b[:]...)
	default: // TagFullyQualified8
		var b [8]byte
		binary.LittleEndian.PutUint16(b[0:2], t.Vendor)
		binary.LittleEndian.PutUint16(b[2:4], t.Profile)
		binary.LittleEndian.PutUint32(b[4:8], t.Number)
		return append(w, b[:]...)
	}
}

func utf8LenElementType(n int) ElementType {
	switch minLengthWidth(n) {
	case 1:
		return ElementTypeUTF8_1
	case 2:
		return ElementTypeUTF8_2
	default:
		return ElementTypeUTF8_4
	}
}

func bytesLenElementType(n int) ElementType {
	switch minLengthWidth(n) {
	case 1:
		return ElementTypeBytes1
	case 2:
		return ElementTypeBytes2
	default:
		return ElementTypeBytes4
	}
}

// Decode parses a single top-level TLV element from data, returning the
// value and the number of bytes consumed.
func Decode(data []byte) (Value, int, error) {
	return decodeOne(data)
}

func decodeOne(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ErrTruncated
	}
	et, tk := splitControlOctet(data[0])
	off := 1

	tag, n, err := readTag(data[off:], tk)
	if err != nil {
		return Value{}, 0, err
	}
	off += n

	switch {
	case et == ElementTypeInt8 || et == ElementTypeInt16 || et == ElementTypeInt32 || et == ElementTypeInt64:
		size := et.intValueSize()
		if len(data) < off+size {
			return Value{}, 0, ErrTruncated
		}
		u := readUintLE(data[off : off+size])
		off += size
		return Int(tag, signExtend(et, u)), off, nil

	case et == ElementTypeUInt8 || et == ElementTypeUInt16 || et == ElementTypeUInt32 || et == ElementTypeUInt64:
		size := et.intValueSize()
		if len(data) < off+size {
			return Value{}, 0, ErrTruncated
		}
		u := readUintLE(data[off : off+size])
		off += size
		return Uint(tag, u), off, nil

	case et == ElementTypeFalse || et == ElementTypeTrue:
		return Bool(tag, et == ElementTypeTrue), off, nil

	case et == ElementTypeFloat32:
		if len(data) < off+4 {
			return Value{}, 0, ErrTruncated
		}
		bits := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return Float32Val(tag, math.Float32frombits(bits)), off, nil

	case et == ElementTypeFloat64:
		if len(data) < off+8 {
			return Value{}, 0, ErrTruncated
		}
		bits := binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
		return Float64Val(tag, math.Float64frombits(bits)), off, nil

	case et == ElementTypeUTF8_1 || et == ElementTypeUTF8_2 || et == ElementTypeUTF8_4 || et == ElementTypeUTF8_8:
		str, consumed, err := readLengthPrefixed(data[off:], et.stringLenFieldSize())
		if err != nil {
			return Value{}, 0, err
		}
		if !utf8.Valid(str) {
			return Value{}, 0, ErrInvalidUTF8
		}
		off += consumed
		return String(tag, string(str)), off, nil

	case et == ElementTypeBytes1 || et == ElementTypeBytes2 || et == ElementTypeBytes4 || et == ElementTypeBytes8:
		raw, consumed, err := readLengthPrefixed(data[off:], et.stringLenFieldSize())
		if err != nil {
			return Value{}, 0, err
		}
		off += consumed
		return Bytes(tag, raw), off, nil

	case et == ElementTypeNull:
		return Null(tag), off, nil

	case et.isContainer():
		var elems []Value
		for {
			if off >= len(data) {
				return Value{}, 0, ErrContainerMissing
			}
			childET, _ := splitControlOctet(data[off])
			if childET == ElementTypeEnd {
				off++
				break
			}
			child, n, err := decodeOne(data[off:])
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, child)
			off += n
		}
		kind := KindStruct
		if et == ElementTypeArray {
			kind = KindArray
		} else if et == ElementTypeList {
			kind = KindList
		}
		return Value{Tag: tag, Kind: kind, elems: elems}, off, nil

	default:
		return Value{}, 0, ErrInvalidTLV
	}
}

func readTag(data []byte, tk TagKind) (Tag, int, error) {
	size := Tag{Kind: tk}.byteLen()
	if len(data) < size {
		return Tag{}, 0, ErrTruncated
	}
	switch tk {
	case TagAnonymous:
		return AnonymousTag(), 0, nil
	case TagContext:
		return ContextTag(data[0]), 1, nil
	case TagCommonProfile2:
		return Tag{Kind: tk, Number: uint32(binary.LittleEndian.Uint16(data[:2]))}, 2, nil
	case TagCommonProfile4:
		return Tag{Kind: tk, Number: binary.LittleEndian.Uint32(data[:4])}, 4, nil
	case TagImplicitProfile2:
		return Tag{Kind: tk, Number: uint32(binary.LittleEndian.Uint16(data[:2]))}, 2, nil
	case TagImplicitProfile4:
		return Tag{Kind: tk, Number: binary.LittleEndian.Uint32(data[:4])}, 4, nil
	case TagFullyQualified6:
		return Tag{
			Kind:    tk,
			Vendor:  binary.LittleEndian.Uint16(data[0:2]),
			Profile: binary.LittleEndian.Uint16(data[2:4]),
			Number:  uint32(binary.LittleEndian.Uint16(data[4:6])),
		}, 6, nil
	case TagFullyQualified8:
		return Tag{
			Kind:    tk,
			Vendor:  binary.LittleEndian.Uint16(data[0:2]),
			Profile: binary.LittleEndian.Uint16(data[2:4]),
			Number:  binary.LittleEndian.Uint32(data[4:8]),
		}, 8, nil
	default:
		return Tag{}, 0, ErrInvalidTLV
	}
}

func readLengthPrefixed(data []byte, lenSize int) ([]byte, int, error) {
	if len(data) < lenSize {
		return nil, 0, ErrTruncated
	}
	var n uint64
	switch lenSize {
	case 1:
		n = uint64(data[0])
	case 2:
		n = uint64(binary.LittleEndian.Uint16(data[:2]))
	case 4:
		n = uint64(binary.LittleEndian.Uint32(data[:4]))
	case 8:
		n = binary.LittleEndian.Uint64(data[:8])
	}
	if uint64(len(data)) < uint64(lenSize)+n {
		return nil, 0, ErrTruncated
	}
	return data[lenSize : lenSize+int(n)], lenSize + int(n), nil
}

func readUintLE(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func signExtend(et ElementType, u uint64) int64 {
	switch et {
	case ElementTypeInt8:
		return int64(int8(u))
	case ElementTypeInt16:
		return int64(int16(u))
	case ElementTypeInt32:
		return int64(int32(u))
	default:
		return int64(u)
	}
}
