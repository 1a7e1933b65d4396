package casesession

import (
	"github.com/mkniffen/matterd/pkg/tlv"
)

// Size constants (spec §4.14.2.3/§4.14.2.6).
const (
	RandomSize         = 32
	ResumptionIDSize   = 16
	MICSize            = 16
	DestinationIDSize  = 32
	SessionKeySize     = 16
	EphPubKeySize      = 65 // uncompressed P-256 point
	SignatureSize      = 64 // raw r||s
)

// AEAD nonces, literal ASCII strings per spec §4.14.2.6.
var (
	Sigma2Nonce  = []byte("NCASE_Sigma2N")
	Sigma3Nonce  = []byte("NCASE_Sigma3N")
	Resume1Nonce = []byte("NCASE_SigmaS1")
	Resume2Nonce = []byte("NCASE_SigmaS2")
)

// HKDF info strings for the various CASE key derivations.
var (
	S2KInfo    = []byte("Sigma2")
	S3KInfo    = []byte("Sigma3")
	S1RKInfo   = []byte("Sigma1_Resume")
	S2RKInfo   = []byte("Sigma2_Resume")
	SEKeysInfo = []byte("SessionKeys")
)

// MRPParameters mirrors pase.MRPParameters; CASE's Sigma messages attach
// the same SessionParameterStruct shape.
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

// Sigma1 is the first CASE message, sent by the initiator (spec §4.14.2.3).
// ResumptionID/InitiatorResumeMIC are both present or both absent.
type Sigma1 struct {
	InitiatorRandom    [RandomSize]byte
	InitiatorSessionID uint16
	DestinationID      [DestinationIDSize]byte
	InitiatorEphPubKey [EphPubKeySize]byte
	MRPParams          *MRPParameters

	ResumptionID       *[ResumptionIDSize]byte
	InitiatorResumeMIC *[MICSize]byte
}

// HasResumption reports whether this Sigma1 carries resumption fields.
func (s *Sigma1) HasResumption() bool {
	return s.ResumptionID != nil && s.InitiatorResumeMIC != nil
}

func (s *Sigma1) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bytes(tlv.ContextTag(1), s.InitiatorRandom[:]),
		tlv.Uint(tlv.ContextTag(2), uint64(s.InitiatorSessionID)),
		tlv.Bytes(tlv.ContextTag(3), s.DestinationID[:]),
		tlv.Bytes(tlv.ContextTag(4), s.InitiatorEphPubKey[:]),
	}
	if s.MRPParams != nil {
		fields = append(fields, s.MRPParams.encode(tlv.ContextTag(5)))
	}
	if s.HasResumption() {
		fields = append(fields,
			tlv.Bytes(tlv.ContextTag(6), s.ResumptionID[:]),
			tlv.Bytes(tlv.ContextTag(7), s.InitiatorResumeMIC[:]),
		)
	}
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeSigma1(data []byte) (*Sigma1, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	s := &Sigma1{}
	f, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	if b, _ := f.AsBytes(); len(b) == RandomSize {
		copy(s.InitiatorRandom[:], b)
	} else {
		return nil, ErrInvalidRandom
	}
	if f, ok := v.Field(2); ok {
		u, _ := f.AsUint()
		s.InitiatorSessionID = uint16(u)
	}
	if f, ok := v.Field(3); ok {
		b, _ := f.AsBytes()
		if len(b) != DestinationIDSize {
			return nil, ErrInvalidMessage
		}
		copy(s.DestinationID[:], b)
	} else {
		return nil, ErrInvalidMessage
	}
	if f, ok := v.Field(4); ok {
		b, _ := f.AsBytes()
		if len(b) != EphPubKeySize {
			return nil, ErrInvalidMessage
		}
		copy(s.InitiatorEphPubKey[:], b)
	} else {
		return nil, ErrInvalidMessage
	}
	if f, ok := v.Field(5); ok {
		s.MRPParams = decodeMRPParameters(f)
	}
	rid, okID := v.Field(6)
	mic, okMIC := v.Field(7)
	if okID && okMIC {
		idb, _ := rid.AsBytes()
		micb, _ := mic.AsBytes()
		if len(idb) != ResumptionIDSize || len(micb) != MICSize {
			return nil, ErrInvalidMessage
		}
		var id [ResumptionIDSize]byte
		var m [MICSize]byte
		copy(id[:], idb)
		copy(m[:], micb)
		s.ResumptionID = &id
		s.InitiatorResumeMIC = &m
	} else if okID != okMIC {
		return nil, ErrMissingResumptionField
	}
	return s, nil
}

// Sigma2 is the responder's reply (spec §4.14.2.3).
type Sigma2 struct {
	ResponderRandom    [RandomSize]byte
	ResponderSessionID uint16
	ResponderEphPubKey [EphPubKeySize]byte
	Encrypted2         []byte
	MRPParams          *MRPParameters
}

func (s *Sigma2) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bytes(tlv.ContextTag(1), s.ResponderRandom[:]),
		tlv.Uint(tlv.ContextTag(2), uint64(s.ResponderSessionID)),
		tlv.Bytes(tlv.ContextTag(3), s.ResponderEphPubKey[:]),
		tlv.Bytes(tlv.ContextTag(4), s.Encrypted2),
	}
	if s.MRPParams != nil {
		fields = append(fields, s.MRPParams.encode(tlv.ContextTag(5)))
	}
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeSigma2(data []byte) (*Sigma2, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	s := &Sigma2{}
	if f, ok := v.Field(1); ok {
		if b, _ := f.AsBytes(); len(b) == RandomSize {
			copy(s.ResponderRandom[:], b)
		}
	}
	if f, ok := v.Field(2); ok {
		u, _ := f.AsUint()
		s.ResponderSessionID = uint16(u)
	}
	if f, ok := v.Field(3); ok {
		b, _ := f.AsBytes()
		if len(b) != EphPubKeySize {
			return nil, ErrInvalidMessage
		}
		copy(s.ResponderEphPubKey[:], b)
	} else {
		return nil, ErrInvalidMessage
	}
	if f, ok := v.Field(4); ok {
		s.Encrypted2, _ = f.AsBytes()
	} else {
		return nil, ErrInvalidMessage
	}
	if f, ok := v.Field(5); ok {
		s.MRPParams = decodeMRPParameters(f)
	}
	return s, nil
}

// TBEData2 is the plaintext Sigma2 encrypts under S2K (spec §4.14.2.3).
type TBEData2 struct {
	ResponderNOC  []byte
	ResponderICAC []byte
	Signature     [SignatureSize]byte
	ResumptionID  [ResumptionIDSize]byte
}

func (t *TBEData2) Encode() ([]byte, error) {
	fields := []tlv.Value{tlv.Bytes(tlv.ContextTag(1), t.ResponderNOC)}
	if len(t.ResponderICAC) > 0 {
		fields = append(fields, tlv.Bytes(tlv.ContextTag(2), t.ResponderICAC))
	}
	fields = append(fields,
		tlv.Bytes(tlv.ContextTag(3), t.Signature[:]),
		tlv.Bytes(tlv.ContextTag(4), t.ResumptionID[:]),
	)
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeTBEData2(data []byte) (*TBEData2, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	t := &TBEData2{}
	f, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	t.ResponderNOC, _ = f.AsBytes()
	if f, ok := v.Field(2); ok {
		t.ResponderICAC, _ = f.AsBytes()
	}
	sig, ok := v.Field(3)
	if !ok {
		return nil, ErrInvalidMessage
	}
	sb, _ := sig.AsBytes()
	if len(sb) != SignatureSize {
		return nil, ErrInvalidMessage
	}
	copy(t.Signature[:], sb)
	rid, ok := v.Field(4)
	if !ok {
		return nil, ErrInvalidMessage
	}
	ridb, _ := rid.AsBytes()
	if len(ridb) != ResumptionIDSize {
		return nil, ErrInvalidMessage
	}
	copy(t.ResumptionID[:], ridb)
	return t, nil
}

// TBSData2 is signed, but never transmitted: the responder's operational
// signature over this structure authenticates Sigma2 (spec §4.14.2.3).
type TBSData2 struct {
	ResponderNOC       []byte
	ResponderICAC      []byte
	ResponderEphPubKey [EphPubKeySize]byte
	InitiatorEphPubKey [EphPubKeySize]byte
}

func (t *TBSData2) Encode() ([]byte, error) {
	fields := []tlv.Value{tlv.Bytes(tlv.ContextTag(1), t.ResponderNOC)}
	if len(t.ResponderICAC) > 0 {
		fields = append(fields, tlv.Bytes(tlv.ContextTag(2), t.ResponderICAC))
	}
	fields = append(fields,
		tlv.Bytes(tlv.ContextTag(3), t.ResponderEphPubKey[:]),
		tlv.Bytes(tlv.ContextTag(4), t.InitiatorEphPubKey[:]),
	)
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

// Sigma3 is the initiator's final message (spec §4.14.2.3).
type Sigma3 struct {
	Encrypted3 []byte
}

func (s *Sigma3) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), tlv.Bytes(tlv.ContextTag(1), s.Encrypted3)))
}

func DecodeSigma3(data []byte) (*Sigma3, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	f, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	b, _ := f.AsBytes()
	return &Sigma3{Encrypted3: b}, nil
}

// TBEData3 is the plaintext Sigma3 encrypts under S3K.
type TBEData3 struct {
	InitiatorNOC  []byte
	InitiatorICAC []byte
	Signature     [SignatureSize]byte
}

func (t *TBEData3) Encode() ([]byte, error) {
	fields := []tlv.Value{tlv.Bytes(tlv.ContextTag(1), t.InitiatorNOC)}
	if len(t.InitiatorICAC) > 0 {
		fields = append(fields, tlv.Bytes(tlv.ContextTag(2), t.InitiatorICAC))
	}
	fields = append(fields, tlv.Bytes(tlv.ContextTag(3), t.Signature[:]))
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeTBEData3(data []byte) (*TBEData3, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	t := &TBEData3{}
	f, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	t.InitiatorNOC, _ = f.AsBytes()
	if f, ok := v.Field(2); ok {
		t.InitiatorICAC, _ = f.AsBytes()
	}
	sig, ok := v.Field(3)
	if !ok {
		return nil, ErrInvalidMessage
	}
	sb, _ := sig.AsBytes()
	if len(sb) != SignatureSize {
		return nil, ErrInvalidMessage
	}
	copy(t.Signature[:], sb)
	return t, nil
}

// TBSData3 is signed, never transmitted: the initiator's operational
// signature over this structure authenticates Sigma3.
type TBSData3 struct {
	InitiatorNOC       []byte
	InitiatorICAC      []byte
	InitiatorEphPubKey [EphPubKeySize]byte
	ResponderEphPubKey [EphPubKeySize]byte
}

func (t *TBSData3) Encode() ([]byte, error) {
	fields := []tlv.Value{tlv.Bytes(tlv.ContextTag(1), t.InitiatorNOC)}
	if len(t.InitiatorICAC) > 0 {
		fields = append(fields, tlv.Bytes(tlv.ContextTag(2), t.InitiatorICAC))
	}
	fields = append(fields,
		tlv.Bytes(tlv.ContextTag(3), t.InitiatorEphPubKey[:]),
		tlv.Bytes(tlv.ContextTag(4), t.ResponderEphPubKey[:]),
	)
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

// Sigma2Resume is sent instead of Sigma2 when the responder accepts a
// Sigma1 resumption request (spec §4.14.2.3).
type Sigma2Resume struct {
	ResumptionID       [ResumptionIDSize]byte
	Resume2MIC         [MICSize]byte
	ResponderSessionID uint16
	MRPParams          *MRPParameters
}

func (s *Sigma2Resume) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bytes(tlv.ContextTag(1), s.ResumptionID[:]),
		tlv.Bytes(tlv.ContextTag(2), s.Resume2MIC[:]),
		tlv.Uint(tlv.ContextTag(3), uint64(s.ResponderSessionID)),
	}
	if s.MRPParams != nil {
		fields = append(fields, s.MRPParams.encode(tlv.ContextTag(4)))
	}
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeSigma2Resume(data []byte) (*Sigma2Resume, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tlv.KindStruct {
		return nil, ErrInvalidMessage
	}
	s := &Sigma2Resume{}
	rid, ok := v.Field(1)
	if !ok {
		return nil, ErrInvalidMessage
	}
	ridb, _ := rid.AsBytes()
	if len(ridb) != ResumptionIDSize {
		return nil, ErrInvalidMessage
	}
	copy(s.ResumptionID[:], ridb)
	mic, ok := v.Field(2)
	if !ok {
		return nil, ErrInvalidMessage
	}
	micb, _ := mic.AsBytes()
	if len(micb) != MICSize {
		return nil, ErrInvalidMessage
	}
	copy(s.Resume2MIC[:], micb)
	if f, ok := v.Field(3); ok {
		u, _ := f.AsUint()
		s.ResponderSessionID = uint16(u)
	}
	if f, ok := v.Field(4); ok {
		s.MRPParams = decodeMRPParameters(f)
	}
	return s, nil
}
