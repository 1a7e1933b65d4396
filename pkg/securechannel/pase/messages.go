// Package pase implements Passcode-Authenticated Session Establishment
// (spec §4.5): the SPAKE2+ handshake a commissioner and commissionee run
// over a setup passcode to stand up the first secure session between
// them, before any fabric exists.
package pase

import (
	"github.com/mkniffen/matterd/pkg/tlv"
)

// RandomSize is the width of the InitiatorRandom/ResponderRandom nonces
// exchanged in the PBKDF parameter messages.
const RandomSize = 32

// MRPParameters carries a peer's MRP retry timing, optionally attached to
// PBKDFParamRequest/Response (spec §4.4.8, same shape CASE's Sigma
// messages use).
type MRPParameters struct {
	IdleRetransTimeoutMS   uint32
	ActiveRetransTimeoutMS uint32
	ActiveThresholdMS      uint16
}

func (m *MRPParameters) encode(tag tlv.Tag) tlv.Value {
	if m == nil {
		return tlv.Value{}
	}
	return tlv.Struct(tag,
		tlv.Uint(tlv.ContextTag(1), uint64(m.IdleRetransTimeoutMS)),
		tlv.Uint(tlv.ContextTag(2), uint64(m.ActiveRetransTimeoutMS)),
		tlv.Uint(tlv.ContextTag(4), uint64(m.ActiveThresholdMS)),
	)
}

func decodeMRPParameters(v tlv.Value) *MRPParameters {
	if v.Kind != tlv.KindStruct {
		return nil
	}
	m := &MRPParameters{}
	if f, ok := v.Field(1); ok {
		u, _ := f.AsUint()
		m.IdleRetransTimeoutMS = uint32(u)
	}
	if f, ok := v.Field(2); ok {
		u, _ := f.AsUint()
		m.ActiveRetransTimeoutMS = uint32(u)
	}
	if f, ok := v.Field(4); ok {
		u, _ := f.AsUint()
		m.ActiveThresholdMS = uint16(u)
	}
	return m
}

// PBKDFParameters is the (iterations, salt) pair the responder supplies
// when the initiator doesn't already know them (spec §4.5.1, §3.9).
type PBKDFParameters struct {
	Iterations uint32
	Salt       []byte
}

func (p *PBKDFParameters) encode(tag tlv.Tag) tlv.Value {
	if p == nil {
		return tlv.Value{}
	}
	return tlv.Struct(tag,
		tlv.Uint(tlv.ContextTag(1), uint64(p.Iterations)),
		tlv.Bytes(tlv.ContextTag(2), p.Salt),
	)
}

func decodePBKDFParameters(v tlv.Value) *PBKDFParameters {
	if v.Kind != tlv.KindStruct {
		return nil
	}
	p := &PBKDFParameters{}
	if f, ok := v.Field(1); ok {
		u, _ := f.AsUint()
		p.Iterations = uint32(u)
	}
	if f, ok := v.Field(2); ok {
		p.Salt, _ = f.AsBytes()
	}
	return p
}

// PBKDFParamRequest is the first PASE message, sent by the commissioner
// (spec §4.5.1.1).
type PBKDFParamRequest struct {
	InitiatorRandom     [RandomSize]byte
	InitiatorSessionID  uint16
	PasscodeID          uint16
	HasPBKDFParameters  bool
	MRPParams           *MRPParameters
}

func (r *PBKDFParamRequest) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bytes(tlv.ContextTag(1), r.InitiatorRandom[:]),
		tlv.Uint(tlv.ContextTag(2), uint64(r.InitiatorSessionID)),
		tlv.Uint(tlv.ContextTag(3), uint64(r.PasscodeID)),
		tlv.Bool(tlv.ContextTag(4), r.HasPBKDFParameters),
	}
	if r.MRPParams != nil {
		fields = append(fields, r.MRPParams.encode(tlv.ContextTag(5)))
	}
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodePBKDFParamRequest(data []byte) (*PBKDFParamRequest, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	r := &PBKDFParamRequest{}
	if f, ok := v.Field(1); ok {
		if b, _ := f.AsBytes(); len(b) == RandomSize {
			copy(r.InitiatorRandom[:], b)
		}
	}
	if f, ok := v.Field(2); ok {
		u, _ := f.AsUint()
		r.InitiatorSessionID = uint16(u)
	}
	if f, ok := v.Field(3); ok {
		u, _ := f.AsUint()
		r.PasscodeID = uint16(u)
	}
	if f, ok := v.Field(4); ok {
		r.HasPBKDFParameters, _ = f.AsBool()
	}
	if f, ok := v.Field(5); ok {
		r.MRPParams = decodeMRPParameters(f)
	}
	return r, nil
}

// PBKDFParamResponse is the commissionee's reply (spec §4.5.1.2).
type PBKDFParamResponse struct {
	InitiatorRandom    [RandomSize]byte
	ResponderRandom    [RandomSize]byte
	ResponderSessionID uint16
	PBKDFParams        *PBKDFParameters
	MRPParams          *MRPParameters
}

func (r *PBKDFParamResponse) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bytes(tlv.ContextTag(1), r.InitiatorRandom[:]),
		tlv.Bytes(tlv.ContextTag(2), r.ResponderRandom[:]),
		tlv.Uint(tlv.ContextTag(3), uint64(r.ResponderSessionID)),
	}
	if r.PBKDFParams != nil {
		fields = append(fields, r.PBKDFParams.encode(tlv.ContextTag(4)))
	}
	if r.MRPParams != nil {
		fields = append(fields, r.MRPParams.encode(tlv.ContextTag(5)))
	}
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodePBKDFParamResponse(data []byte) (*PBKDFParamResponse, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	r := &PBKDFParamResponse{}
	if f, ok := v.Field(1); ok {
		if b, _ := f.AsBytes(); len(b) == RandomSize {
			copy(r.InitiatorRandom[:], b)
		}
	}
	if f, ok := v.Field(2); ok {
		if b, _ := f.AsBytes(); len(b) == RandomSize {
			copy(r.ResponderRandom[:], b)
		}
	}
	if f, ok := v.Field(3); ok {
		u, _ := f.AsUint()
		r.ResponderSessionID = uint16(u)
	}
	if f, ok := v.Field(4); ok {
		r.PBKDFParams = decodePBKDFParameters(f)
	}
	if f, ok := v.Field(5); ok {
		r.MRPParams = decodeMRPParameters(f)
	}
	return r, nil
}

// Pake1 carries the commissioner's SPAKE2+ share pA (spec §4.5.1.3).
type Pake1 struct{ PA []byte }

func (p *Pake1) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), tlv.Bytes(tlv.ContextTag(1), p.PA)))
}

func DecodePake1(data []byte) (*Pake1, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	f, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	b, _ := f.AsBytes()
	return &Pake1{PA: b}, nil
}

// Pake2 carries the commissionee's share pB and confirmation cB.
type Pake2 struct{ PB, CB []byte }

func (p *Pake2) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Bytes(tlv.ContextTag(1), p.PB),
		tlv.Bytes(tlv.ContextTag(2), p.CB),
	))
}

func DecodePake2(data []byte) (*Pake2, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	pb, ok1 := v.Field(1)
	cb, ok2 := v.Field(2)
	if !ok1 || !ok2 {
		return nil, ErrInvalidMessage
	}
	pbb, _ := pb.AsBytes()
	cbb, _ := cb.AsBytes()
	return &Pake2{PB: pbb, CB: cbb}, nil
}

// Pake3 carries the commissioner's confirmation cA, closing the handshake.
type Pake3 struct{ CA []byte }

func (p *Pake3) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), tlv.Bytes(tlv.ContextTag(1), p.CA)))
}

func DecodePake3(data []byte) (*Pake3, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	f, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	b, _ := f.AsBytes()
	return &Pake3{CA: b}, nil
}
