// Package spake2p implements SPAKE2+ (RFC 9383) over P-256 with Matter's
// fixed M/N generator points and HKDF/HMAC-SHA256 key schedule (Matter
// spec §3.10 / this repo's spec §4.2). It is hand-built because no Go
// ecosystem library exposes the bare point arithmetic an augmented PAKE
// needs; crypto/ecdh and crypto/ecdsa only expose complete ECDH/sign
// operations, not "scalar*M + scalar*G" combinations.
package spake2p

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"math/big"

	"github.com/mkniffen/matterd/pkg/crypto"
)

const (
	ScalarSize = 32
	PointSize  = 65
	// wsSize is PBKDF2's output width per Matter spec §3.10: 40 bytes of
	// bias-reduction headroom before folding into a 32-byte scalar mod n.
	wsSize = 40
)

var (
	ErrBadSize            = errors.New("spake2p: input has the wrong size")
	ErrNotOnCurve          = errors.New("spake2p: point is not on P-256")
	ErrConfirmationFailed = errors.New("spake2p: key confirmation failed")
)

// pointM and pointN are Matter's fixed SPAKE2+ generators (Matter spec
// §3.10, RFC 9383 §4 P-256 ciphersuite row). These coordinates are a
// protocol constant, not implementation-specific code.
var (
	pointMBytes = []byte{
		0x04, 0x88, 0x6e, 0x2f, 0x97, 0xac, 0xe4, 0x6e, 0x55, 0xba, 0x9d, 0xd7, 0x24, 0x25, 0x79, 0xf2, 0x99,
		0x3b, 0x64, 0xe1, 0x6e, 0xf3, 0xdc, 0xab, 0x95, 0xaf, 0xd4, 0x97, 0x33, 0x3d, 0x8f, 0xa1, 0x2f, 0x5f,
		0xf3, 0x55, 0x16, 0x3e, 0x43, 0xce, 0x22, 0x4e, 0x0b, 0x0e, 0x65, 0xff, 0x02, 0xac, 0x8e, 0x5c, 0x7b,
		0xe0, 0x94, 0x19, 0xc7, 0x85, 0xe0, 0xca, 0x54, 0x7d, 0x55, 0xa1, 0x2e, 0x2d, 0x20,
	}
	pointNBytes = []byte{
		0x04, 0xd8, 0xbb, 0xd6, 0xc6, 0x39, 0xc6, 0x29, 0x37, 0xb0, 0x4d, 0x99, 0x7f, 0x38, 0xc3, 0x77, 0x07,
		0x19, 0xc6, 0x29, 0xd7, 0x01, 0x4d, 0x49, 0xa2, 0x4b, 0x4f, 0x98, 0xba, 0xa1, 0x29, 0x2b, 0x49, 0x07,
		0xd6, 0x0a, 0xa6, 0xbf, 0xad, 0xe4, 0x50, 0x08, 0xa6, 0x36, 0x33, 0x7f, 0x51, 0x68, 0xc6, 0x4d, 0x9b,
		0xd3, 0x60, 0x34, 0x80, 0x8c, 0xd5, 0x64, 0x49, 0x0b, 0x1e, 0x65, 0x6e, 0xdb, 0xe7,
	}
)

func mustPoint(b []byte) crypto.Point {
	p, err := crypto.DecodePoint(b)
	if err != nil {
		panic(err)
	}
	return p
}

// KeySet is the {Ke, Ka, KcA, KcB} derived key map spec §4.2 describes.
type KeySet struct {
	Ka, Ke, KcA, KcB []byte
}

// ConfirmationA returns cA = HMAC(KcA, pB), the prover's confirmation MAC.
func (k KeySet) ConfirmationA(pB []byte) []byte { return hmacTag(k.KcA, pB) }

// ConfirmationB returns cB = HMAC(KcB, pA), the verifier's confirmation MAC.
func (k KeySet) ConfirmationB(pA []byte) []byte { return hmacTag(k.KcB, pA) }

func hmacTag(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// ComputeVerifier derives (w0, w1, L) from a passcode, the registration
// record a device stores so it never needs the plaintext passcode again.
func ComputeVerifier(passcode uint32, salt []byte, iterations int) (w0, w1, l []byte, err error) {
	var pcBytes [4]byte
	binary.LittleEndian.PutUint32(pcBytes[:], passcode)

	ws := crypto.PBKDF2SHA256(pcBytes[:], salt, iterations, 2*wsSize)
	w0 = reduceModN(ws[:wsSize])
	w1 = reduceModN(ws[wsSize:])

	lPoint := crypto.ScalarBaseMult(w1)
	return w0, w1, crypto.EncodePoint(lPoint), nil
}

func reduceModN(b []byte) []byte {
	n := new(big.Int).SetBytes(crypto.P256OrderBytes())
	v := new(big.Int).SetBytes(b)
	v.Mod(v, n)
	out := make([]byte, ScalarSize)
	v.FillBytes(out)
	return out
}

// Prover is the commissioner side of PASE: it knows the passcode directly.
type Prover struct {
	context, idP, idV []byte
	w0, w1            []byte
	x                 *big.Int
	pA                []byte
	rand              io.Reader
}

// NewProver builds a prover from the (w0, w1) registration scalars.
func NewProver(context, idProver, idVerifier, w0, w1 []byte, rand io.Reader) (*Prover, error) {
	if len(w0) != ScalarSize || len(w1) != ScalarSize {
		return nil, ErrBadSize
	}
	return &Prover{context: context, idP: idProver, idV: idVerifier, w0: w0, w1: w1, rand: rand}, nil
}

// Start generates pA = x*G + w0*M and returns it for transmission.
func (p *Prover) Start() ([]byte, error) {
	x, err := randomScalar(p.rand)
	if err != nil {
		return nil, err
	}
	p.x = x
	share := crypto.Add(crypto.ScalarBaseMult(x.Bytes()), crypto.ScalarMult(mustPoint(pointMBytes), p.w0))
	p.pA = crypto.EncodePoint(share)
	return p.pA, nil
}

// Finish processes the verifier's pB and derives the session KeySet.
func (p *Prover) Finish(pB []byte) (KeySet, error) {
	Y, err := crypto.DecodePoint(pB)
	if err != nil {
		return KeySet{}, ErrNotOnCurve
	}
	yMinusW0N := crypto.Add(Y, crypto.Negate(crypto.ScalarMult(mustPoint(pointNBytes), p.w0)))
	z := crypto.ScalarMult(yMinusW0N, p.x.Bytes())
	v := crypto.ScalarMult(yMinusW0N, p.w1)
	return deriveKeys(p.context, p.idP, p.idV, p.pA, pB, crypto.EncodePoint(z), crypto.EncodePoint(v), p.w0)
}

// Verifier is the commissionee side of PASE: it only stores (w0, L).
type Verifier struct {
	context, idP, idV []byte
	w0                []byte
	l                 crypto.Point
	y                 *big.Int
	pB                []byte
	rand              io.Reader
}

// NewVerifier builds a verifier from the registration record (w0, L).
func NewVerifier(context, idProver, idVerifier, w0, l []byte, rand io.Reader) (*Verifier, error) {
	if len(w0) != ScalarSize || len(l) != PointSize {
		return nil, ErrBadSize
	}
	lPoint, err := crypto.DecodePoint(l)
	if err != nil {
		return nil, ErrNotOnCurve
	}
	return &Verifier{context: context, idP: idProver, idV: idVerifier, w0: w0, l: lPoint, rand: rand}, nil
}

// Respond processes the prover's pA, generates pB = y*G + w0*N, and
// returns (pB, KeySet).
func (v *Verifier) Respond(pA []byte) ([]byte, KeySet, error) {
	X, err := crypto.DecodePoint(pA)
	if err != nil {
		return nil, KeySet{}, ErrNotOnCurve
	}
	y, err := randomScalar(v.rand)
	if err != nil {
		return nil, KeySet{}, err
	}
	v.y = y
	share := crypto.Add(crypto.ScalarBaseMult(y.Bytes()), crypto.ScalarMult(mustPoint(pointNBytes), v.w0))
	v.pB = crypto.EncodePoint(share)

	xMinusW0M := crypto.Add(X, crypto.Negate(crypto.ScalarMult(mustPoint(pointMBytes), v.w0)))
	z := crypto.ScalarMult(xMinusW0M, y.Bytes())
	vv := crypto.ScalarMult(v.l, y.Bytes())

	keys, err := deriveKeys(v.context, v.idP, v.idV, pA, v.pB, crypto.EncodePoint(z), crypto.EncodePoint(vv), v.w0)
	return v.pB, keys, err
}

func deriveKeys(context, idP, idV, pA, pB, z, vv, w0 []byte) (KeySet, error) {
	var tt []byte
	tt = appendLen64(tt, context)
	tt = appendLen64(tt, idP)
	tt = appendLen64(tt, idV)
	tt = appendLen64(tt, pointMBytes)
	tt = appendLen64(tt, pointNBytes)
	tt = appendLen64(tt, pA)
	tt = appendLen64(tt, pB)
	tt = appendLen64(tt, z)
	tt = appendLen64(tt, vv)
	tt = appendLen64(tt, w0)

	kae := sha256.Sum256(tt)
	ka := append([]byte(nil), kae[:16]...)
	ke := append([]byte(nil), kae[16:]...)

	kcab, err := crypto.HKDFSHA256(ka, nil, []byte("ConfirmationKeys"), 32)
	if err != nil {
		return KeySet{}, err
	}
	return KeySet{Ka: ka, Ke: ke, KcA: kcab[:16], KcB: kcab[16:]}, nil
}

func appendLen64(dst, data []byte) []byte {
	var l [8]byte
	binary.LittleEndian.PutUint64(l[:], uint64(len(data)))
	dst = append(dst, l[:]...)
	return append(dst, data...)
}

func randomScalar(r io.Reader) (*big.Int, error) {
	n := new(big.Int).SetBytes(crypto.P256OrderBytes())
	for {
		b := make([]byte, ScalarSize)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		k := new(big.Int).SetBytes(b)
		if k.Sign() > 0 && k.Cmp(n) < 0 {
			return k, nil
		}
	}
}

// VerifyConfirmation checks a peer's confirmation MAC in constant time.
func VerifyConfirmation(expected, got []byte) error {
	if !hmac.Equal(expected, got) {
		return ErrConfirmationFailed
	}
	return nil
}
