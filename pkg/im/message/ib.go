package message

import "github.com/mkniffen/matterd/pkg/tlv"

// StatusIB carries an Interaction Model status, optionally refined by a
// cluster-specific code, for one path inside a multi-path request.
type StatusIB struct {
	Status        Status
	ClusterStatus *uint8
}

const (
	statusTagStatus        = 0
	statusTagClusterStatus = 1
)

func (s StatusIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{tlv.Uint(tlv.ContextTag(statusTagStatus), uint64(s.Status))}
	if s.ClusterStatus != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(statusTagClusterStatus), uint64(*s.ClusterStatus)))
	}
	return tlv.Struct(tag, fields...)
}

func decodeStatusIB(v tlv.Value) StatusIB {
	var s StatusIB
	if f, ok := v.Field(statusTagStatus); ok {
		u, _ := f.AsUint()
		s.Status = Status(u)
	}
	if f, ok := v.Field(statusTagClusterStatus); ok {
		u, _ := f.AsUint()
		cs := uint8(u)
		s.ClusterStatus = &cs
	}
	return s
}

// AttributeDataIB carries one attribute's value. Data holds the
// already-encoded TLV payload for the attribute's value, opaque to the
// Interaction Model layer itself - only the cluster implementation knows
// how to interpret it.
type AttributeDataIB struct {
	DataVersion DataVersion
	Path        AttributePathIB
	Data        tlv.Value
}

const (
	attrDataTagDataVersion = 0
	attrDataTagPath        = 1
	attrDataTagData        = 2
)

func (a AttributeDataIB) encode(tag tlv.Tag) tlv.Value {
	data := a.Data
	data.Tag = tlv.ContextTag(attrDataTagData)
	return tlv.Struct(tag,
		tlv.Uint(tlv.ContextTag(attrDataTagDataVersion), uint64(a.DataVersion)),
		a.Path.encode(tlv.ContextTag(attrDataTagPath)),
		data,
	)
}

func decodeAttributeDataIB(v tlv.Value) AttributeDataIB {
	var a AttributeDataIB
	if f, ok := v.Field(attrDataTagDataVersion); ok {
		u, _ := f.AsUint()
		a.DataVersion = DataVersion(u)
	}
	if f, ok := v.Field(attrDataTagPath); ok {
		a.Path = decodeAttributePath(f)
	}
	if f, ok := v.Field(attrDataTagData); ok {
		a.Data = f
	}
	return a
}

// AttributeStatusIB reports an error for one attribute path in a request
// that touched several.
type AttributeStatusIB struct {
	Path   AttributePathIB
	Status StatusIB
}

const (
	attrStatusTagPath   = 0
	attrStatusTagStatus = 1
)

func (a AttributeStatusIB) encode(tag tlv.Tag) tlv.Value {
	return tlv.Struct(tag,
		a.Path.encode(tlv.ContextTag(attrStatusTagPath)),
		a.Status.encode(tlv.ContextTag(attrStatusTagStatus)),
	)
}

func decodeAttributeStatusIB(v tlv.Value) AttributeStatusIB {
	var a AttributeStatusIB
	if f, ok := v.Field(attrStatusTagPath); ok {
		a.Path = decodeAttributePath(f)
	}
	if f, ok := v.Field(attrStatusTagStatus); ok {
		a.Status = decodeStatusIB(f)
	}
	return a
}

// AttributeReportIB is one element of a ReportData's attribute list:
// either a value or a per-path error, never both.
type AttributeReportIB struct {
	AttributeStatus *AttributeStatusIB
	AttributeData   *AttributeDataIB
}

const (
	attrReportTagStatus = 0
	attrReportTagData   = 1
)

func (a AttributeReportIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if a.AttributeStatus != nil {
		fields = append(fields, a.AttributeStatus.encode(tlv.ContextTag(attrReportTagStatus)))
	}
	if a.AttributeData != nil {
		fields = append(fields, a.AttributeData.encode(tlv.ContextTag(attrReportTagData)))
	}
	return tlv.Struct(tag, fields...)
}

func decodeAttributeReportIB(v tlv.Value) AttributeReportIB {
	var a AttributeReportIB
	if f, ok := v.Field(attrReportTagStatus); ok {
		s := decodeAttributeStatusIB(f)
		a.AttributeStatus = &s
	}
	if f, ok := v.Field(attrReportTagData); ok {
		d := decodeAttributeDataIB(f)
		a.AttributeData = &d
	}
	return a
}

// CommandDataIB carries one command invocation's fields.
type CommandDataIB struct {
	Path   CommandPathIB
	Fields tlv.Value
	Ref    *uint16
}

const (
	cmdDataTagPath   = 0
	cmdDataTagFields = 1
	cmdDataTagRef    = 2
)

func (c CommandDataIB) encode(tag tlv.Tag) tlv.Value {
	fields := c.Fields
	fields.Tag = tlv.ContextTag(cmdDataTagFields)
	out := []tlv.Value{c.Path.encode(tlv.ContextTag(cmdDataTagPath)), fields}
	if c.Ref != nil {
		out = append(out, tlv.Uint(tlv.ContextTag(cmdDataTagRef), uint64(*c.Ref)))
	}
	return tlv.Struct(tag, out...)
}

func decodeCommandDataIB(v tlv.Value) CommandDataIB {
	var c CommandDataIB
	if f, ok := v.Field(cmdDataTagPath); ok {
		c.Path = decodeCommandPath(f)
	}
	if f, ok := v.Field(cmdDataTagFields); ok {
		c.Fields = f
	}
	if f, ok := v.Field(cmdDataTagRef); ok {
		u, _ := f.AsUint()
		r := uint16(u)
		c.Ref = &r
	}
	return c
}

// CommandStatusIB reports the outcome of one invoked command.
type CommandStatusIB struct {
	Path   CommandPathIB
	Status StatusIB
	Ref    *uint16
}

const (
	cmdStatusTagPath   = 0
	cmdStatusTagStatus = 1
	cmdStatusTagRef    = 2
)

func (c CommandStatusIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{
		c.Path.encode(tlv.ContextTag(cmdStatusTagPath)),
		c.Status.encode(tlv.ContextTag(cmdStatusTagStatus)),
	}
	if c.Ref != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(cmdStatusTagRef), uint64(*c.Ref)))
	}
	return tlv.Struct(tag, fields...)
}

func decodeCommandStatusIB(v tlv.Value) CommandStatusIB {
	var c CommandStatusIB
	if f, ok := v.Field(cmdStatusTagPath); ok {
		c.Path = decodeCommandPath(f)
	}
	if f, ok := v.Field(cmdStatusTagStatus); ok {
		c.Status = decodeStatusIB(f)
	}
	if f, ok := v.Field(cmdStatusTagRef); ok {
		u, _ := f.AsUint()
		r := uint16(u)
		c.Ref = &r
	}
	return c
}

// InvokeResponseIB is one element of an InvokeResponse's response list:
// either the command's own response data, or a status.
type InvokeResponseIB struct {
	Command *CommandDataIB
	Status  *CommandStatusIB
}

const (
	invokeRespTagCommand = 0
	invokeRespTagStatus  = 1
)

func (r InvokeResponseIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if r.Command != nil {
		fields = append(fields, r.Command.encode(tlv.ContextTag(invokeRespTagCommand)))
	}
	if r.Status != nil {
		fields = append(fields, r.Status.encode(tlv.ContextTag(invokeRespTagStatus)))
	}
	return tlv.Struct(tag, fields...)
}

func decodeInvokeResponseIB(v tlv.Value) InvokeResponseIB {
	var r InvokeResponseIB
	if f, ok := v.Field(invokeRespTagCommand); ok {
		c := decodeCommandDataIB(f)
		r.Command = &c
	}
	if f, ok := v.Field(invokeRespTagStatus); ok {
		s := decodeCommandStatusIB(f)
		r.Status = &s
	}
	return r
}

// EventDataIB carries one event record.
type EventDataIB struct {
	Path           EventPathIB
	EventNumber    EventNumber
	Priority       uint8
	EpochTimestamp *uint64
	Data           tlv.Value
}

const (
	eventDataTagPath           = 0
	eventDataTagEventNumber    = 1
	eventDataTagPriority       = 2
	eventDataTagEpochTimestamp = 3
	eventDataTagData           = 7
)

func (e EventDataIB) encode(tag tlv.Tag) tlv.Value {
	data := e.Data
	data.Tag = tlv.ContextTag(eventDataTagData)
	fields := []tlv.Value{
		e.Path.encode(tlv.ContextTag(eventDataTagPath)),
		tlv.Uint(tlv.ContextTag(eventDataTagEventNumber), uint64(e.EventNumber)),
		tlv.Uint(tlv.ContextTag(eventDataTagPriority), uint64(e.Priority)),
	}
	if e.EpochTimestamp != nil {
		fields = append(fields, tlv.Uint(tlv.ContextTag(eventDataTagEpochTimestamp), *e.EpochTimestamp))
	}
	fields = append(fields, data)
	return tlv.Struct(tag, fields...)
}

func decodeEventDataIB(v tlv.Value) EventDataIB {
	var e EventDataIB
	if f, ok := v.Field(eventDataTagPath); ok {
		e.Path = decodeEventPath(f)
	}
	if f, ok := v.Field(eventDataTagEventNumber); ok {
		u, _ := f.AsUint()
		e.EventNumber = EventNumber(u)
	}
	if f, ok := v.Field(eventDataTagPriority); ok {
		u, _ := f.AsUint()
		e.Priority = uint8(u)
	}
	if f, ok := v.Field(eventDataTagEpochTimestamp); ok {
		u, _ := f.AsUint()
		e.EpochTimestamp = &u
	}
	if f, ok := v.Field(eventDataTagData); ok {
		e.Data = f
	}
	return e
}

// EventStatusIB reports an error for one event path.
type EventStatusIB struct {
	Path   EventPathIB
	Status StatusIB
}

const (
	eventStatusTagPath   = 0
	eventStatusTagStatus = 1
)

func (e EventStatusIB) encode(tag tlv.Tag) tlv.Value {
	return tlv.Struct(tag,
		e.Path.encode(tlv.ContextTag(eventStatusTagPath)),
		e.Status.encode(tlv.ContextTag(eventStatusTagStatus)),
	)
}

func decodeEventStatusIB(v tlv.Value) EventStatusIB {
	var e EventStatusIB
	if f, ok := v.Field(eventStatusTagPath); ok {
		e.Path = decodeEventPath(f)
	}
	if f, ok := v.Field(eventStatusTagStatus); ok {
		e.Status = decodeStatusIB(f)
	}
	return e
}

// EventReportIB is one element of a ReportData's event list.
type EventReportIB struct {
	EventStatus *EventStatusIB
	EventData   *EventDataIB
}

const (
	eventReportTagStatus = 0
	eventReportTagData   = 1
)

func (e EventReportIB) encode(tag tlv.Tag) tlv.Value {
	fields := []tlv.Value{}
	if e.EventStatus != nil {
		fields = append(fields, e.EventStatus.encode(tlv.ContextTag(eventReportTagStatus)))
	}
	if e.EventData != nil {
		fields = append(fields, e.EventData.encode(tlv.ContextTag(eventReportTagData)))
	}
	return tlv.Struct(tag, fields...)
}

func decodeEventReportIB(v tlv.Value) EventReportIB {
	var e EventReportIB
	if f, ok := v.Field(eventReportTagStatus); ok {
		s := decodeEventStatusIB(f)
		e.EventStatus = &s
	}
	if f, ok := v.Field(eventReportTagData); ok {
		d := decodeEventDataIB(f)
		e.EventData = &d
	}
	return e
}
