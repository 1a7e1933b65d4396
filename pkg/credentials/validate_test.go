package credentials

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"testing"
	"time"
)

// matterAttr builds a pkix.AttributeTypeAndValue carrying the uppercase
// hex string encoding spec §6.1.1 uses for Matter-specific DN attributes.
func matterAttr(oid asn1.ObjectIdentifier, value uint64) pkix.AttributeTypeAndValue {
	return pkix.AttributeTypeAndValue{Type: oid, Value: fmt.Sprintf("%016X", value)}
}

func issueCert(t *testing.T, tmpl *x509.Certificate, parent *x509.Certificate, signer *ecdsa.PrivateKey, subjectKey *ecdsa.PublicKey) []byte {
	t.Helper()
	if parent == nil {
		parent = tmpl
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, subjectKey, signer)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	return der
}

func TestValidateChainTwoLevel(t *testing.T) {
	rootKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	nocKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "root"},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER := issueCert(t, rootTmpl, nil, rootKey, &rootKey.PublicKey)
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parse root: %v", err)
	}

	nocTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			ExtraNames: []pkix.AttributeTypeAndValue{
				matterAttr(OIDMatterNodeID, 0x1122334455667788),
				matterAttr(OIDMatterFabricID, 0x0102030405060708),
			},
		},
		NotBefore: time.Unix(0, 0),
		NotAfter:  time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
	}
	nocDER := issueCert(t, nocTmpl, rootCert, rootKey, &nocKey.PublicKey)

	var rootPub [PublicKeySize]byte
	copy(rootPub[:], elliptic.Marshal(elliptic.P256(), rootKey.X, rootKey.Y))

	info, err := ValidateChain(nocDER, nil, rootPub)
	if err != nil {
		t.Fatalf("ValidateChain: %v", err)
	}
	if info.NodeID != 0x1122334455667788 {
		t.Fatalf("got NodeID %x", info.NodeID)
	}
	if info.FabricID != 0x0102030405060708 {
		t.Fatalf("got FabricID %x", info.FabricID)
	}
}

func TestValidateChainThreeLevelWithICAC(t *testing.T) {
	rootKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	icacKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	nocKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "root"},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER := issueCert(t, rootTmpl, nil, rootKey, &rootKey.PublicKey)
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parse root: %v", err)
	}

	icacTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "icac"},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	icacDER := issueCert(t, icacTmpl, rootCert, rootKey, &icacKey.PublicKey)
	icacCert, err := x509.ParseCertificate(icacDER)
	if err != nil {
		t.Fatalf("parse icac: %v", err)
	}

	nocTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject: pkix.Name{
			ExtraNames: []pkix.AttributeTypeAndValue{
				matterAttr(OIDMatterNodeID, 7),
				matterAttr(OIDMatterFabricID, 9),
			},
		},
		NotBefore: time.Unix(0, 0),
		NotAfter:  time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
	}
	nocDER := issueCert(t, nocTmpl, icacCert, icacKey, &nocKey.PublicKey)

	var rootPub [PublicKeySize]byte
	copy(rootPub[:], elliptic.Marshal(elliptic.P256(), rootKey.X, rootKey.Y))

	info, err := ValidateChain(nocDER, icacDER, rootPub)
	if err != nil {
		t.Fatalf("ValidateChain: %v", err)
	}
	if info.NodeID != 7 || info.FabricID != 9 {
		t.Fatalf("got %+v", info)
	}
}

func TestValidateChainRejectsWrongRoot(t *testing.T) {
	rootKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	otherKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	nocKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "root"},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER := issueCert(t, rootTmpl, nil, rootKey, &rootKey.PublicKey)
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parse root: %v", err)
	}

	nocTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			ExtraNames: []pkix.AttributeTypeAndValue{
				matterAttr(OIDMatterNodeID, 1),
				matterAttr(OIDMatterFabricID, 1),
			},
		},
		NotBefore: time.Unix(0, 0),
		NotAfter:  time.Unix(0, 0).Add(10 * 365 * 24 * time.Hour),
	}
	nocDER := issueCert(t, nocTmpl, rootCert, rootKey, &nocKey.PublicKey)

	var wrongRootPub [PublicKeySize]byte
	copy(wrongRootPub[:], elliptic.Marshal(elliptic.P256(), otherKey.X, otherKey.Y))

	if _, err := ValidateChain(nocDER, nil, wrongRootPub); err == nil {
		t.Fatal("expected chain verification to fail against an unrelated root key")
	}
}

func TestParseNOCMissingFabricID(t *testing.T) {
	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			ExtraNames: []pkix.AttributeTypeAndValue{
				matterAttr(OIDMatterNodeID, 1),
			},
		},
		NotBefore: time.Unix(0, 0),
		NotAfter:  time.Unix(0, 0).Add(time.Hour),
	}
	der := issueCert(t, tmpl, nil, key, &key.PublicKey)

	if _, err := ParseNOC(der); err != ErrMissingFabricID {
		t.Fatalf("got %v, want ErrMissingFabricID", err)
	}
}
