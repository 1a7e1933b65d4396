//go:build mattertest

package credentials

import (
	"fmt"

	"github.com/mkniffen/matterd/pkg/tlv"
)

// Simplified TLV NOC field tags. This isn't a Matter certificate at all —
// it's a minimal stand-in so handshake tests can exercise CASE's
// certificate-validation path without generating real X.509 chains (spec
// §245). Only built into test binaries via the mattertest build tag;
// production code never links this file.
const (
	simplifiedTagNodeID    = 1
	simplifiedTagFabricID  = 2
	simplifiedTagPublicKey = 3
)

// EncodeSimplifiedNOC builds a simplified TLV NOC for tests. There is no
// signature and no chain: ParseSimplifiedNOC trusts the fields as given.
func EncodeSimplifiedNOC(info ChainInfo) ([]byte, error) {
	return tlv.Encode(tlv.Struct(tlv.AnonymousTag(),
		tlv.Uint(tlv.ContextTag(simplifiedTagNodeID), info.NodeID),
		tlv.Uint(tlv.ContextTag(simplifiedTagFabricID), info.FabricID),
		tlv.Bytes(tlv.ContextTag(simplifiedTagPublicKey), info.PublicKey[:]),
	))
}

// ParseSimplifiedNOC decodes a simplified TLV NOC produced by
// EncodeSimplifiedNOC. It performs no chain validation: the caller is a
// test harness that already trusts the data it generated.
func ParseSimplifiedNOC(data []byte) (*ChainInfo, error) {
	v, _, err := tlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrX509ParseFailed, err)
	}
	if v.Kind != tlv.KindStruct {
		return nil, fmt.Errorf("%w: simplified NOC must be a struct", ErrX509ParseFailed)
	}

	info := &ChainInfo{}
	nodeID, ok := v.Field(simplifiedTagNodeID)
	if !ok {
		return nil, ErrMissingNodeID
	}
	if info.NodeID, ok = nodeID.AsUint(); !ok {
		return nil, ErrMissingNodeID
	}

	fabricID, ok := v.Field(simplifiedTagFabricID)
	if !ok {
		return nil, ErrMissingFabricID
	}
	if info.FabricID, ok = fabricID.AsUint(); !ok {
		return nil, ErrMissingFabricID
	}

	pub, ok := v.Field(simplifiedTagPublicKey)
	if !ok {
		return nil, ErrInvalidPublicKey
	}
	pubBytes, ok := pub.AsBytes()
	if !ok || len(pubBytes) != PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	copy(info.PublicKey[:], pubBytes)

	return info, nil
}

// ValidateChainTest is a ValidatePeerCertChainFunc-shaped validator that
// accepts simplified TLV NOCs, for tests wiring a Session without real
// certificates. It ignores icac and trustedRootPubKey entirely.
func ValidateChainTest(noc, icac []byte, trustedRootPubKey [PublicKeySize]byte) (*ChainInfo, error) {
	return ParseSimplifiedNOC(noc)
}
