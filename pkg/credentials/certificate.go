package credentials

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"

	mattercrypto "github.com/mkniffen/matterd/pkg/crypto"
)

// PublicKeySize is the uncompressed P-256 public key size (spec §242).
const PublicKeySize = 65

// ChainInfo is what ValidateChain extracts from a peer's NOC once its
// chain is confirmed to lead to a trusted root: the identity CASE needs
// to bind a session to a node and fabric.
type ChainInfo struct {
	NodeID    uint64
	FabricID  uint64
	PublicKey [PublicKeySize]byte
}

// ParseNOC parses an X.509 DER-encoded Node Operational Certificate and
// extracts its node id, fabric id, and public key, without verifying any
// chain of trust. Use ValidateChain to also confirm the chain.
func ParseNOC(der []byte) (*ChainInfo, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrX509ParseFailed, err)
	}
	return extractChainInfo(cert)
}

// extractChainInfo pulls matter-node-id and matter-fabric-id out of the
// subject DN (spec §242: only these two OIDs and the SPKI are read —
// every other attribute is ignored) and the SPKI public key.
func extractChainInfo(cert *x509.Certificate) (*ChainInfo, error) {
	var nodeID, fabricID uint64
	var haveNode, haveFabric bool

	for _, atv := range cert.Subject.Names {
		switch {
		case atv.Type.Equal(OIDMatterNodeID):
			v, err := decodeMatterHexAttribute(atv.Value)
			if err != nil {
				return nil, fmt.Errorf("matter-node-id: %w", err)
			}
			nodeID, haveNode = v, true
		case atv.Type.Equal(OIDMatterFabricID):
			v, err := decodeMatterHexAttribute(atv.Value)
			if err != nil {
				return nil, fmt.Errorf("matter-fabric-id: %w", err)
			}
			fabricID, haveFabric = v, true
		}
	}
	if !haveNode {
		return nil, ErrMissingNodeID
	}
	if !haveFabric {
		return nil, ErrMissingFabricID
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedPublicKeyAlgo
	}
	point := mattercrypto.EncodePoint(mattercrypto.Point{X: pub.X, Y: pub.Y})
	if len(point) != PublicKeySize {
		return nil, ErrInvalidPublicKey
	}

	info := &ChainInfo{NodeID: nodeID, FabricID: fabricID}
	copy(info.PublicKey[:], point)
	return info, nil
}

// decodeMatterHexAttribute decodes the uppercase hex string X.509 carries
// for a Matter-specific DN attribute (spec §6.1.1) into its uint64 value.
func decodeMatterHexAttribute(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%w: expected hex string, got %T", ErrX509ParseFailed, v)
	}
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrX509ParseFailed, err)
	}
	var out uint64
	for _, b := range data {
		out = out<<8 | uint64(b)
	}
	return out, nil
}
