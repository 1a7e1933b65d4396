package message

import "github.com/mkniffen/matterd/pkg/tlv"

func encodeList[T any](tag tlv.Tag, items []T, enc func(T, tlv.Tag) tlv.Value) tlv.Value {
	elems := make([]tlv.Value, len(items))
	for i, it := range items {
		elems[i] = enc(it, tlv.AnonymousTag())
	}
	return tlv.Array(tag, elems...)
}

func decodeList[T any](v tlv.Value, dec func(tlv.Value) T) []T {
	elems := v.Elems()
	out := make([]T, len(elems))
	for i, e := range elems {
		out[i] = dec(e)
	}
	return out
}

// ReadRequestMessage is the payload of opcode 0x02 (spec §4.9).
type ReadRequestMessage struct {
	AttributeRequests  []AttributePathIB
	EventRequests      []EventPathIB
	EventFilters       []EventFilterIB
	FabricFiltered     bool
	DataVersionFilters []DataVersionFilterIB
}

const (
	readReqTagAttributeRequests  = 0
	readReqTagEventRequests      = 1
	readReqTagEventFilters       = 2
	readReqTagFabricFiltered     = 3
	readReqTagDataVersionFilters = 4
)

func (m ReadRequestMessage) Encode() ([]byte, error) {
	fields := []tlv.Value{}
	if len(m.AttributeRequests) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(readReqTagAttributeRequests), m.AttributeRequests, func(p AttributePathIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	if len(m.EventRequests) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(readReqTagEventRequests), m.EventRequests, func(p EventPathIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	if len(m.EventFilters) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(readReqTagEventFilters), m.EventFilters, func(p EventFilterIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	fields = append(fields, tlv.Bool(tlv.ContextTag(readReqTagFabricFiltered), m.FabricFiltered))
	if len(m.DataVersionFilters) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(readReqTagDataVersionFilters), m.DataVersionFilters, func(p DataVersionFilterIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	fields = append(fields, revisionField())
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeReadRequest(data []byte) (ReadRequestMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return ReadRequestMessage{}, err
	}
	var m ReadRequestMessage
	if f, ok := v.Field(readReqTagAttributeRequests); ok {
		m.AttributeRequests = decodeList(f, decodeAttributePath)
	}
	if f, ok := v.Field(readReqTagEventRequests); ok {
		m.EventRequests = decodeList(f, decodeEventPath)
	}
	if f, ok := v.Field(readReqTagEventFilters); ok {
		m.EventFilters = decodeList(f, decodeEventFilter)
	}
	if f, ok := v.Field(readReqTagFabricFiltered); ok {
		m.FabricFiltered, _ = f.AsBool()
	}
	if f, ok := v.Field(readReqTagDataVersionFilters); ok {
		m.DataVersionFilters = decodeList(f, decodeDataVersionFilter)
	}
	return m, nil
}

// SubscribeRequestMessage is the payload of opcode 0x03.
type SubscribeRequestMessage struct {
	KeepSubscriptions  bool
	MinIntervalFloor   uint16
	MaxIntervalCeiling uint16
	AttributeRequests  []AttributePathIB
	EventRequests      []EventPathIB
	EventFilters       []EventFilterIB
	FabricFiltered     bool
	DataVersionFilters []DataVersionFilterIB
}

const (
	subReqTagKeepSubscriptions  = 0
	subReqTagMinIntervalFloor   = 1
	subReqTagMaxIntervalCeiling = 2
	subReqTagAttributeRequests  = 3
	subReqTagEventRequests      = 4
	subReqTagEventFilters       = 5
	subReqTagFabricFiltered     = 7
	subReqTagDataVersionFilters = 8
)

func (m SubscribeRequestMessage) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bool(tlv.ContextTag(subReqTagKeepSubscriptions), m.KeepSubscriptions),
		tlv.Uint(tlv.ContextTag(subReqTagMinIntervalFloor), uint64(m.MinIntervalFloor)),
		tlv.Uint(tlv.ContextTag(subReqTagMaxIntervalCeiling), uint64(m.MaxIntervalCeiling)),
	}
	if len(m.AttributeRequests) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(subReqTagAttributeRequests), m.AttributeRequests, func(p AttributePathIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	if len(m.EventRequests) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(subReqTagEventRequests), m.EventRequests, func(p EventPathIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	if len(m.EventFilters) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(subReqTagEventFilters), m.EventFilters, func(p EventFilterIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	fields = append(fields, tlv.Bool(tlv.ContextTag(subReqTagFabricFiltered), m.FabricFiltered))
	if len(m.DataVersionFilters) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(subReqTagDataVersionFilters), m.DataVersionFilters, func(p DataVersionFilterIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	fields = append(fields, revisionField())
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeSubscribeRequest(data []byte) (SubscribeRequestMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return SubscribeRequestMessage{}, err
	}
	var m SubscribeRequestMessage
	if f, ok := v.Field(subReqTagKeepSubscriptions); ok {
		m.KeepSubscriptions, _ = f.AsBool()
	}
	if f, ok := v.Field(subReqTagMinIntervalFloor); ok {
		u, _ := f.AsUint()
		m.MinIntervalFloor = uint16(u)
	}
	if f, ok := v.Field(subReqTagMaxIntervalCeiling); ok {
		u, _ := f.AsUint()
		m.MaxIntervalCeiling = uint16(u)
	}
	if f, ok := v.Field(subReqTagAttributeRequests); ok {
		m.AttributeRequests = decodeList(f, decodeAttributePath)
	}
	if f, ok := v.Field(subReqTagEventRequests); ok {
		m.EventRequests = decodeList(f, decodeEventPath)
	}
	if f, ok := v.Field(subReqTagEventFilters); ok {
		m.EventFilters = decodeList(f, decodeEventFilter)
	}
	if f, ok := v.Field(subReqTagFabricFiltered); ok {
		m.FabricFiltered, _ = f.AsBool()
	}
	if f, ok := v.Field(subReqTagDataVersionFilters); ok {
		m.DataVersionFilters = decodeList(f, decodeDataVersionFilter)
	}
	return m, nil
}

// SubscribeResponseMessage is the payload of opcode 0x04.
type SubscribeResponseMessage struct {
	SubscriptionID SubscriptionID
	MaxInterval    uint16
}

const (
	subRespTagSubscriptionID = 0
	subRespTagMaxInterval    = 2
)

func (m SubscribeResponseMessage) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Uint(tlv.ContextTag(subRespTagSubscriptionID), uint64(m.SubscriptionID)),
		tlv.Uint(tlv.ContextTag(subRespTagMaxInterval), uint64(m.MaxInterval)),
		revisionField(),
	))
}

func DecodeSubscribeResponse(data []byte) (SubscribeResponseMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return SubscribeResponseMessage{}, err
	}
	var m SubscribeResponseMessage
	if f, ok := v.Field(subRespTagSubscriptionID); ok {
		u, _ := f.AsUint()
		m.SubscriptionID = SubscriptionID(u)
	}
	if f, ok := v.Field(subRespTagMaxInterval); ok {
		u, _ := f.AsUint()
		m.MaxInterval = uint16(u)
	}
	return m, nil
}

// ReportDataMessage is the payload of opcode 0x05, sent in response to a
// read or as an ongoing subscription update.
type ReportDataMessage struct {
	SubscriptionID      *SubscriptionID
	AttributeReports    []AttributeReportIB
	EventReports        []EventReportIB
	MoreChunkedMessages bool
	SuppressResponse    bool
}

const (
	reportTagSubscriptionID      = 0
	reportTagAttributeReports    = 1
	reportTagEventReports        = 2
	reportTagMoreChunkedMessages = 3
	reportTagSuppressResponse    = 4
)

func (m ReportDataMessage) Encode() ([]byte, error) {
	fields := []tlv.Value{}
	if m.SubscriptionID != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(reportTagSubscriptionID), uint64(*m.SubscriptionID)))
	}
	if len(m.AttributeReports) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(reportTagAttributeReports), m.AttributeReports, func(p AttributeReportIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	if len(m.EventReports) > 0 {
		fields = append(fields, encodeList(tlv.ContextTag(reportTagEventReports), m.EventReports, func(p EventReportIB, t tlv.Tag) tlv.Value { return p.encode(t) }))
	}
	if m.MoreChunkedMessages {
		fields = append(fields, tlv.Bool(tlv.ContextTag(reportTagMoreChunkedMessages), true))
	}
	if m.SuppressResponse {
		fields = append(fields, tlv.Bool(tlv.ContextTag(reportTagSuppressResponse), true))
	}
	fields = append(fields, revisionField())
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeReportData(data []byte) (ReportDataMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return ReportDataMessage{}, err
	}
	var m ReportDataMessage
	if f, ok := v.Field(reportTagSubscriptionID); ok {
		u, _ := f.AsUint()
		id := SubscriptionID(u)
		m.SubscriptionID = &id
	}
	if f, ok := v.Field(reportTagAttributeReports); ok {
		m.AttributeReports = decodeList(f, decodeAttributeReportIB)
	}
	if f, ok := v.Field(reportTagEventReports); ok {
		m.EventReports = decodeList(f, decodeEventReportIB)
	}
	if f, ok := v.Field(reportTagMoreChunkedMessages); ok {
		m.MoreChunkedMessages, _ = f.AsBool()
	}
	if f, ok := v.Field(reportTagSuppressResponse); ok {
		m.SuppressResponse, _ = f.AsBool()
	}
	return m, nil
}

// WriteRequestMessage is the payload of opcode 0x06.
type WriteRequestMessage struct {
	SuppressResponse    bool
	TimedRequest        bool
	WriteRequests       []AttributeDataIB
	MoreChunkedMessages bool
}

const (
	writeReqTagSuppressResponse    = 0
	writeReqTagTimedRequest        = 1
	writeReqTagWriteRequests       = 2
	writeReqTagMoreChunkedMessages = 3
)

func (m WriteRequestMessage) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bool(tlv.ContextTag(writeReqTagSuppressResponse), m.SuppressResponse),
		tlv.Bool(tlv.ContextTag(writeReqTagTimedRequest), m.TimedRequest),
		encodeList(tlv.ContextTag(writeReqTagWriteRequests), m.WriteRequests, func(p AttributeDataIB, t tlv.Tag) tlv.Value { return p.encode(t) }),
	}
	if m.MoreChunkedMessages {
		fields = append(fields, tlv.Bool(tlv.ContextTag(writeReqTagMoreChunkedMessages), true))
	}
	fields = append(fields, revisionField())
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeWriteRequest(data []byte) (WriteRequestMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return WriteRequestMessage{}, err
	}
	var m WriteRequestMessage
	if f, ok := v.Field(writeReqTagSuppressResponse); ok {
		m.SuppressResponse, _ = f.AsBool()
	}
	if f, ok := v.Field(writeReqTagTimedRequest); ok {
		m.TimedRequest, _ = f.AsBool()
	}
	if f, ok := v.Field(writeReqTagWriteRequests); ok {
		m.WriteRequests = decodeList(f, decodeAttributeDataIB)
	}
	if f, ok := v.Field(writeReqTagMoreChunkedMessages); ok {
		m.MoreChunkedMessages, _ = f.AsBool()
	}
	return m, nil
}

// WriteResponseMessage is the payload of opcode 0x07.
type WriteResponseMessage struct {
	WriteResponses []AttributeStatusIB
}

const writeRespTagWriteResponses = 0

func (m WriteResponseMessage) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		encodeList(tlv.ContextTag(writeRespTagWriteResponses), m.WriteResponses, func(p AttributeStatusIB, t tlv.Tag) tlv.Value { return p.encode(t) }),
		revisionField(),
	))
}

func DecodeWriteResponse(data []byte) (WriteResponseMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return WriteResponseMessage{}, err
	}
	var m WriteResponseMessage
	if f, ok := v.Field(writeRespTagWriteResponses); ok {
		m.WriteResponses = decodeList(f, decodeAttributeStatusIB)
	}
	return m, nil
}

// InvokeRequestMessage is the payload of opcode 0x08.
type InvokeRequestMessage struct {
	SuppressResponse bool
	TimedRequest     bool
	InvokeRequests   []CommandDataIB
}

const (
	invokeReqTagSuppressResponse = 0
	invokeReqTagTimedRequest     = 1
	invokeReqTagInvokeRequests   = 2
)

func (m InvokeRequestMessage) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Bool(tlv.ContextTag(invokeReqTagSuppressResponse), m.SuppressResponse),
		tlv.Bool(tlv.ContextTag(invokeReqTagTimedRequest), m.TimedRequest),
		encodeList(tlv.ContextTag(invokeReqTagInvokeRequests), m.InvokeRequests, func(p CommandDataIB, t tlv.Tag) tlv.Value { return p.encode(t) }),
		revisionField(),
	))
}

func DecodeInvokeRequest(data []byte) (InvokeRequestMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return InvokeRequestMessage{}, err
	}
	var m InvokeRequestMessage
	if f, ok := v.Field(invokeReqTagSuppressResponse); ok {
		m.SuppressResponse, _ = f.AsBool()
	}
	if f, ok := v.Field(invokeReqTagTimedRequest); ok {
		m.TimedRequest, _ = f.AsBool()
	}
	if f, ok := v.Field(invokeReqTagInvokeRequests); ok {
		m.InvokeRequests = decodeList(f, decodeCommandDataIB)
	}
	return m, nil
}

// InvokeResponseMessage is the payload of opcode 0x09.
type InvokeResponseMessage struct {
	SuppressResponse    bool
	InvokeResponses     []InvokeResponseIB
	MoreChunkedMessages bool
}

const (
	invokeRespTagSuppressResponse    = 0
	invokeRespTagInvokeResponses     = 1
	invokeRespTagMoreChunkedMessages = 2
)

func (m InvokeResponseMessage) Encode() ([]byte, error) {
	fields := []tlv.Value{
		tlv.Bool(tlv.ContextTag(invokeRespTagSuppressResponse), m.SuppressResponse),
		encodeList(tlv.ContextTag(invokeRespTagInvokeResponses), m.InvokeResponses, func(p InvokeResponseIB, t tlv.Tag) tlv.Value { return p.encode(t) }),
	}
	if m.MoreChunkedMessages {
		fields = append(fields, tlv.Bool(tlv.ContextTag(invokeRespTagMoreChunkedMessages), true))
	}
	fields = append(fields, revisionField())
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(), fields...))
}

func DecodeInvokeResponse(data []byte) (InvokeResponseMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return InvokeResponseMessage{}, err
	}
	var m InvokeResponseMessage
	if f, ok := v.Field(invokeRespTagSuppressResponse); ok {
		m.SuppressResponse, _ = f.AsBool()
	}
	if f, ok := v.Field(invokeRespTagInvokeResponses); ok {
		m.InvokeResponses = decodeList(f, decodeInvokeResponseIB)
	}
	if f, ok := v.Field(invokeRespTagMoreChunkedMessages); ok {
		m.MoreChunkedMessages, _ = f.AsBool()
	}
	return m, nil
}

// StatusResponseMessage is the payload of opcode 0x01, closing out an
// exchange that doesn't warrant a richer response.
type StatusResponseMessage struct {
	Status Status
}

const statusRespTagStatus = 0

func (m StatusResponseMessage) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Uint(tlv.ContextTag(statusRespTagStatus), uint64(m.Status)),
	))
}

func DecodeStatusResponse(data []byte) (StatusResponseMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return StatusResponseMessage{}, err
	}
	var m StatusResponseMessage
	if f, ok := v.Field(statusRespTagStatus); ok {
		u, _ := f.AsUint()
		m.Status = Status(u)
	}
	return m, nil
}

// TimedRequestMessage is the payload of opcode 0x0a, arming a timed-write
// or timed-invoke window before the real request follows.
type TimedRequestMessage struct {
	TimeoutMS uint16
}

const timedReqTagTimeout = 0

func (m TimedRequestMessage) Encode() ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Uint(tlv.ContextTag(timedReqTagTimeout), uint64(m.TimeoutMS)),
		revisionField(),
	))
}

func DecodeTimedRequest(data []byte) (TimedRequestMessage, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return TimedRequestMessage{}, err
	}
	var m TimedRequestMessage
	if f, ok := v.Field(timedReqTagTimeout); ok {
		u, _ := f.AsUint()
		m.TimeoutMS = uint16(u)
	}
	return m, nil
}
