package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
)

// P-256 sizes (Matter spec §3.5/§4.2).
const (
	P256ScalarSize    = 32
	P256PointSize     = 65 // 0x04 || X || Y
	P256SignatureSize = 64 // r || s, each 32 bytes
)

var p256 = elliptic.P256()

var (
	ErrNotOnCurve     = errors.New("crypto: point is not on P-256")
	ErrInvalidPoint   = errors.New("crypto: point must be 65-byte uncompressed SEC1")
	ErrInvalidScalar  = errors.New("crypto: scalar must be 32 bytes")
	ErrInvalidSigSize = errors.New("crypto: signature must be 64 bytes (r||s)")
)

// Point is an affine P-256 point. SPAKE2+ needs bare point arithmetic that
// crypto/ecdh does not expose, so this operates directly on big.Int
// coordinates rather than wrapping the high-level ECDH API.
type Point struct {
	X, Y *big.Int
}

// Infinity is the point at infinity (additive identity).
func Infinity() Point { return Point{X: new(big.Int), Y: new(big.Int)} }

// P256OrderBytes returns the P-256 group order n, big-endian, used by
// SPAKE2+ to reduce PBKDF2 output into a valid scalar.
func P256OrderBytes() []byte {
	return p256.Params().N.Bytes()
}

func (p Point) isInfinity() bool {
	return p.X.Sign() == 0 && p.Y.Sign() == 0
}

// OnCurve reports whether p satisfies the P-256 curve equation.
func (p Point) OnCurve() bool {
	if p.isInfinity() {
		return true
	}
	return p256.IsOnCurve(p.X, p.Y)
}

// Add returns p + q.
func Add(p, q Point) Point {
	if p.isInfinity() {
		return q
	}
	if q.isInfinity() {
		return p
	}
	x, y := p256.Add(p.X, p.Y, q.X, q.Y)
	return Point{X: x, Y: y}
}

// Double returns 2*p.
func Double(p Point) Point {
	if p.isInfinity() {
		return p
	}
	x, y := p256.Double(p.X, p.Y)
	return Point{X: x, Y: y}
}

// Negate returns -p (reflection over the X axis).
func Negate(p Point) Point {
	if p.isInfinity() {
		return p
	}
	y := new(big.Int).Sub(p256.Params().P, p.Y)
	return Point{X: new(big.Int).Set(p.X), Y: y}
}

// ScalarMult returns scalar*p.
func ScalarMult(p Point, scalar []byte) Point {
	x, y := p256.ScalarMult(p.X, p.Y, scalar)
	return Point{X: x, Y: y}
}

// ScalarBaseMult returns scalar*G for the P-256 generator G.
func ScalarBaseMult(scalar []byte) Point {
	x, y := p256.ScalarBaseMult(scalar)
	return Point{X: x, Y: y}
}

// EncodePoint serializes p as uncompressed SEC1 (0x04 || X || Y), 65 bytes.
func EncodePoint(p Point) []byte {
	return elliptic.Marshal(p256, p.X, p.Y)
}

// DecodePoint parses 65-byte uncompressed SEC1 and validates it lies on
// the curve.
func DecodePoint(b []byte) (Point, error) {
	if len(b) != P256PointSize || b[0] != 0x04 {
		return Point{}, ErrInvalidPoint
	}
	x, y := elliptic.Unmarshal(p256, b)
	if x == nil {
		return Point{}, ErrNotOnCurve
	}
	return Point{X: x, Y: y}, nil
}

// KeyPair is a P-256 signing/ECDH key pair.
type KeyPair struct {
	Private *ecdsa.PrivateKey
}

// GenerateKeyPair creates a fresh random P-256 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(p256, rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv}, nil
}

// KeyPairFromScalar rebuilds a key pair from a raw 32-byte private scalar.
func KeyPairFromScalar(scalar []byte) (*KeyPair, error) {
	if len(scalar) != P256ScalarSize {
		return nil, ErrInvalidScalar
	}
	d := new(big.Int).SetBytes(scalar)
	x, y := p256.ScalarBaseMult(scalar)
	return &KeyPair{Private: &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: p256, X: x, Y: y},
		D:         d,
	}}, nil
}

// PublicKeyBytes returns the 65-byte uncompressed public key.
func (k *KeyPair) PublicKeyBytes() []byte {
	return elliptic.Marshal(p256, k.Private.X, k.Private.Y)
}

// PrivateKeyBytes returns the raw 32-byte scalar, left-padded with zeros.
func (k *KeyPair) PrivateKeyBytes() []byte {
	out := make([]byte, P256ScalarSize)
	b := k.Private.D.Bytes()
	copy(out[P256ScalarSize-len(b):], b)
	return out
}

// ECDH computes the X-coordinate of scalar*peerPublic, the shared secret
// Matter's Z values are built from (SPAKE2+ and CASE's Sigma ECDH).
func (k *KeyPair) ECDH(peerPublic []byte) ([]byte, error) {
	peer, err := DecodePoint(peerPublic)
	if err != nil {
		return nil, err
	}
	shared := ScalarMult(peer, k.PrivateKeyBytes())
	out := make([]byte, P256ScalarSize)
	b := shared.X.Bytes()
	copy(out[P256ScalarSize-len(b):], b)
	return out, nil
}

// Sign produces a raw 64-byte (r||s) ECDSA-P256-SHA256 signature.
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	hash := SHA256(message)
	r, s, err := ecdsa.Sign(rand.Reader, k.Private, hash[:])
	if err != nil {
		return nil, err
	}
	return packSignature(r, s), nil
}

// VerifyRaw verifies a raw 64-byte (r||s) signature against a 65-byte
// uncompressed public key.
func VerifyRaw(publicKey, message, signature []byte) (bool, error) {
	if len(signature) != P256SignatureSize {
		return false, ErrInvalidSigSize
	}
	pub, err := DecodePoint(publicKey)
	if err != nil {
		return false, err
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	hash := SHA256(message)
	ok := ecdsa.Verify(&ecdsa.PublicKey{Curve: p256, X: pub.X, Y: pub.Y}, hash[:], r, s)
	return ok, nil
}

// VerifyDER verifies a DER/ASN.1-encoded signature, for the rare peer that
// does not follow Matter's raw-signature convention.
func VerifyDER(publicKey, message, der []byte) (bool, error) {
	pub, err := DecodePoint(publicKey)
	if err != nil {
		return false, err
	}
	hash := SHA256(message)
	ok := ecdsa.VerifyASN1(&ecdsa.PublicKey{Curve: p256, X: pub.X, Y: pub.Y}, hash[:], der)
	return ok, nil
}

func packSignature(r, s *big.Int) []byte {
	out := make([]byte, P256SignatureSize)
	rb, sb := r.Bytes(), s.Bytes()
	copy(out[32-len(rb):32], rb)
	copy(out[64-len(sb):64], sb)
	return out
}
