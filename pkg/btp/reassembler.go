package btp

// Reassembler rebuilds one message at a time out of consecutively
// numbered BTP fragments (spec §4.8/§8). A session owns exactly one:
// BTP has no concurrent in-flight messages per direction.
type Reassembler struct {
	active    bool
	expectSeq byte
	totalLen  uint16
	buf       []byte
}

// NewReassembler returns a Reassembler expecting its first fragment to
// carry sequence number firstSeq.
func NewReassembler(firstSeq byte) *Reassembler {
	return &Reassembler{expectSeq: firstSeq}
}

// Feed processes one fragment's payload (header already stripped) and
// header flags/metadata. It returns the completed message and true once
// the final (E-flagged) fragment arrives; otherwise message is nil.
func (r *Reassembler) Feed(h dataHeader, payload []byte) (message []byte, done bool, err error) {
	if h.SeqNum != r.expectSeq {
		return nil, false, ErrSequenceGap
	}

	if h.Flags.has(FlagBeginning) {
		r.active = true
		r.totalLen = h.TotalLen
		r.buf = make([]byte, 0, h.TotalLen)
	} else if !r.active {
		return nil, false, ErrUnexpectedContinuation
	}

	r.buf = append(r.buf, payload...)
	r.expectSeq++

	if h.Flags.has(FlagEnd) {
		r.active = false
		if uint16(len(r.buf)) != r.totalLen {
			return nil, false, ErrLengthMismatch
		}
		out := r.buf
		r.buf = nil
		return out, true, nil
	}

	return nil, false, nil
}
