// Package credentials parses Matter Node Operational Certificates (NOCs)
// and extracts the node id, fabric id, and public key a CASE handshake
// needs (spec §4.6, §9). Real chains use X.509 DER; a simplified TLV NOC
// form exists for tests only and is gated behind the mattertest build tag.
package credentials

import "encoding/asn1"

// Matter-specific DN attribute OIDs under the CSA private enterprise arc
// 1.3.6.1.4.1.37244 (spec §242, Matter spec §6.1.1 Table 83). Only the two
// OIDs the spec calls out are recognized; everything else in a NOC's
// subject DN is ignored.
var (
	OIDMatterNodeID   = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 37244, 1, 1}
	OIDMatterFabricID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 37244, 1, 5}
)

// OIDPublicKeyECDSA identifies the EC public key algorithm NOCs must use.
var OIDPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

// OIDNamedCurvePrime256v1 identifies the NIST P-256 curve NOCs must use.
var OIDNamedCurvePrime256v1 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
