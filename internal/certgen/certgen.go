// Package certgen creates the development certificates of the web gateway:
// a local Certificate Authority and a server certificate signed by it. The
// gateway serves HTTPS with the server pair; clients trust the CA through
// the api_ca_file setting.
package certgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// File names written by WriteBundle.
const (
	CACertFile     = "ca.crt"
	CAKeyFile      = "ca.key"
	ServerCertFile = "server.crt"
	ServerKeyFile  = "server.key"
)

// Bundle is a CA and a server certificate it signed, all PEM-encoded.
type Bundle struct {
	CACert     []byte
	CAKey      []byte
	ServerCert []byte
	ServerKey  []byte
}

func serialNumber() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, errors.Wrap(err, "serial number")
	}
	return serial, nil
}

func encodeKey(priv *ecdsa.PrivateKey) ([]byte, error) {
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, errors.Wrap(err, "marshal priv key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), nil
}

// GenerateCA creates a self-signed ECDSA P-256 CA valid for validity.
func GenerateCA(commonName string, validity time.Duration) (certPEM, keyPEM []byte, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "gen key")
	}
	serial, err := serialNumber()
	if err != nil {
		return nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-1 * time.Minute),
		NotAfter:              time.Now().Add(validity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create ca cert")
	}
	keyPEM, err = encodeKey(priv)
	if err != nil {
		return nil, nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), keyPEM, nil
}

// ParseCA decodes a PEM CA certificate and its private key, either
// *ecdsa.PrivateKey or *rsa.PrivateKey.
func ParseCA(certPEM, keyPEM []byte) (*x509.Certificate, any, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return nil, nil, errors.New("invalid CA cert PEM")
	}
	caCert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse ca cert")
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, errors.New("invalid CA key PEM")
	}
	var caKey any
	switch keyBlock.Type {
	case "EC PRIVATE KEY":
		caKey, err = x509.ParseECPrivateKey(keyBlock.Bytes)
	case "RSA PRIVATE KEY":
		caKey, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	default:
		return nil, nil, errors.Newf("unsupported key type: %s", keyBlock.Type)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse ca key")
	}
	return caCert, caKey, nil
}

// LoadCACredentials reads a CA certificate and its private key from PEM
// files and parses them with ParseCA.
func LoadCACredentials(certPath, keyPath string) (*x509.Certificate, any, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read ca cert")
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read ca key")
	}
	return ParseCA(certPEM, keyPEM)
}

// GenerateServerCertificate generates an ECDSA P-256 server certificate for
// hosts, signed by caCert and caKey. Hosts that parse as IP addresses become
// IP SANs, the rest DNS SANs. The first host is the Common Name.
func GenerateServerCertificate(hosts []string, caCert *x509.Certificate, caKey any, validity time.Duration) ([]byte, []byte, error) {
	if len(hosts) == 0 {
		return nil, nil, errors.New("at least one host is required")
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "gen key")
	}
	serial, err := serialNumber()
	if err != nil {
		return nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: hosts[0]},
		NotBefore:    time.Now().Add(-1 * time.Minute),
		NotAfter:     time.Now().Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, caCert, &priv.PublicKey, caKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create cert")
	}
	keyPEM, err := encodeKey(priv)
	if err != nil {
		return nil, nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), keyPEM, nil
}

// NewBundle creates a fresh CA and a server certificate for hosts.
func NewBundle(hosts []string, validity time.Duration) (*Bundle, error) {
	caCertPEM, caKeyPEM, err := GenerateCA("JobBoard Development CA", validity)
	if err != nil {
		return nil, err
	}
	caCert, caKey, err := ParseCA(caCertPEM, caKeyPEM)
	if err != nil {
		return nil, err
	}
	certPEM, keyPEM, err := GenerateServerCertificate(hosts, caCert, caKey, validity)
	if err != nil {
		return nil, err
	}
	return &Bundle{CACert: caCertPEM, CAKey: caKeyPEM, ServerCert: certPEM, ServerKey: keyPEM}, nil
}

// WriteBundle writes b into dir, creating it if needed. Private keys are
// readable by the owner only.
func WriteBundle(dir string, b *Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{CACertFile, b.CACert, 0o644},
		{CAKeyFile, b.CAKey, 0o600},
		{ServerCertFile, b.ServerCert, 0o644},
		{ServerKeyFile, b.ServerKey, 0o600},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, f.perm); err != nil {
			return errors.Wrapf(err, "write %s", f.name)
		}
	}
	return nil
}
