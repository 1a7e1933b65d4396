package btp

// Fragment splits message into the wire packets a BTP session sends for
// it, given the negotiated mtu. The first fragment carries B and the
// total length; the last carries E; a single-fragment message carries
// both. seqStart is the sender's tx_seq at the time of the call; it
// wraps modulo 256 across fragments.
func Fragment(message []byte, mtu int, seqStart byte) [][]byte {
	if len(message) == 0 {
		h := dataHeader{Flags: FlagBeginning | FlagEnd, SeqNum: seqStart, TotalLen: 0}
		return [][]byte{h.encode()}
	}

	var packets [][]byte
	seq := seqStart
	offset := 0
	first := true

	for offset < len(message) {
		budget := mtu - 2 // flags + seq
		if first {
			budget = mtu - 4 // flags + seq + 2-byte total length
		}
		if budget < 1 {
			budget = 1
		}

		remaining := len(message) - offset
		size := remaining
		if size > budget {
			size = budget
		}

		flags := Flags(0)
		if first {
			flags |= FlagBeginning
		}
		last := offset+size >= len(message)
		if last {
			flags |= FlagEnd
		}

		h := dataHeader{Flags: flags, SeqNum: seq}
		if first {
			h.TotalLen = uint16(len(message))
		}

		packet := append(h.encode(), message[offset:offset+size]...)
		packets = append(packets, packet)

		offset += size
		seq++
		first = false
	}

	return packets
}
