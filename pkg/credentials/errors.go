package credentials

import "errors"

var (
	// ErrX509ParseFailed indicates the NOC isn't a well-formed X.509 certificate.
	ErrX509ParseFailed = errors.New("credentials: failed to parse X.509 certificate")

	// ErrMissingNodeID indicates a NOC's subject DN has no matter-node-id attribute.
	ErrMissingNodeID = errors.New("credentials: NOC subject missing matter-node-id")

	// ErrMissingFabricID indicates a NOC's subject DN has no matter-fabric-id attribute.
	ErrMissingFabricID = errors.New("credentials: NOC subject missing matter-fabric-id")

	// ErrUnsupportedPublicKeyAlgo indicates the NOC's SPKI isn't EC/P-256.
	ErrUnsupportedPublicKeyAlgo = errors.New("credentials: NOC public key is not EC/P-256")

	// ErrInvalidPublicKey indicates the NOC's public key isn't a 65-byte
	// uncompressed point.
	ErrInvalidPublicKey = errors.New("credentials: NOC public key has unexpected length")

	// ErrChainVerificationFailed indicates the NOC doesn't chain to the
	// fabric's trusted root.
	ErrChainVerificationFailed = errors.New("credentials: NOC does not chain to trusted root")
)
