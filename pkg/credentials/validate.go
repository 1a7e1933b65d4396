package credentials

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"fmt"

	mattercrypto "github.com/mkniffen/matterd/pkg/crypto"
)

// ValidateChain verifies noc (and, if present, icac) chain to
// trustedRootPubKey and returns the NOC's identity. The signature matches
// casesession.ValidatePeerCertChainFunc so it can be handed to
// (*casesession.Session).WithCertValidator directly at bootstrap.
//
// Only signature chaining is checked here (spec §4.6's CASE handshake
// already confirms the peer holds the NOC's private key via Sigma2/
// Sigma3); certificate-authority services such as revocation and
// attestation are out of scope (spec §1 Non-goals).
func ValidateChain(noc, icac []byte, trustedRootPubKey [PublicKeySize]byte) (*ChainInfo, error) {
	nocCert, err := x509.ParseCertificate(noc)
	if err != nil {
		return nil, fmt.Errorf("%w: noc: %v", ErrX509ParseFailed, err)
	}

	root, err := syntheticRootCertificate(trustedRootPubKey)
	if err != nil {
		return nil, err
	}

	signer := root
	if len(icac) > 0 {
		icacCert, err := x509.ParseCertificate(icac)
		if err != nil {
			return nil, fmt.Errorf("%w: icac: %v", ErrX509ParseFailed, err)
		}
		if err := icacCert.CheckSignatureFrom(root); err != nil {
			return nil, fmt.Errorf("%w: icac: %v", ErrChainVerificationFailed, err)
		}
		signer = icacCert
	}

	if err := nocCert.CheckSignatureFrom(signer); err != nil {
		return nil, fmt.Errorf("%w: noc: %v", ErrChainVerificationFailed, err)
	}

	return extractChainInfo(nocCert)
}

// syntheticRootCertificate wraps a bare trusted public key in just enough
// of an x509.Certificate for CheckSignatureFrom to treat it as a CA: the
// fabric's trust anchor is the root's public key, not a certificate, so
// no root certificate itself is ever stored (spec §61's fabric record
// only carries "root public key").
func syntheticRootCertificate(pubKey [PublicKeySize]byte) (*x509.Certificate, error) {
	point, err := mattercrypto.DecodePoint(pubKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: root: %v", ErrInvalidPublicKey, err)
	}
	return &x509.Certificate{
		PublicKeyAlgorithm: x509.ECDSA,
		PublicKey:          &ecdsa.PublicKey{Curve: elliptic.P256(), X: point.X, Y: point.Y},
	}, nil
}
