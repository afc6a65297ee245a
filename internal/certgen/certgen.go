// Package certgen produces the self-signed certificate and RSA key the
// server terminates TLS with.
package certgen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Default output paths, relative to the working directory.
const (
	DefaultCertFile = "cert.pem"
	DefaultKeyFile  = "key.pem"
)

const (
	// DefaultSerial is stamped on every certificate. Two certificates made by
	// this package cannot be told apart by serial.
	DefaultSerial = 1000

	// KeyBits is the RSA modulus size.
	KeyBits = 2048

	// Validity is the span between NotBefore and NotAfter: 3650 days.
	Validity = 3650 * 24 * time.Hour
)

// Identity holds the subject attributes of the certificate. Issuer and
// subject are the same name.
type Identity struct {
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
	CommonName         string
}

// DefaultIdentity returns the development identity used by the generator.
func DefaultIdentity() Identity {
	return Identity{
		Country:            "US",
		State:              "Region",
		Locality:           "City",
		Organization:       "Organization",
		OrganizationalUnit: "Organizational Unit",
		CommonName:         "localhost",
	}
}

// Name converts the identity into an X.509 distinguished name.
func (id Identity) Name() pkix.Name {
	return pkix.Name{
		Country:            []string{id.Country},
		Province:           []string{id.State},
		Locality:           []string{id.Locality},
		Organization:       []string{id.Organization},
		OrganizationalUnit: []string{id.OrganizationalUnit},
		CommonName:         id.CommonName,
	}
}

// Material is a freshly generated key pair and its self-signed certificate.
type Material struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
	CertPEM     []byte
	KeyPEM      []byte
}

// Generate creates a new RSA key and a certificate for id, valid from now
// for Validity, signed by that same key with SHA-256.
func Generate(id Identity, now time.Time) (*Material, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, errors.Wrap(err, "generate rsa key")
	}

	notBefore := now.UTC().Truncate(time.Second)
	// The certificate is its own issuer, so it must be allowed to sign
	// certificates for its signature to verify.
	template := x509.Certificate{
		SerialNumber:          big.NewInt(DefaultSerial),
		Subject:               id.Name(),
		Issuer:                id.Name(),
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(Validity),
		SignatureAlgorithm:    x509.SHA256WithRSA,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	if id.CommonName != "" {
		// Go TLS clients ignore the CN for hostname checks.
		template.DNSNames = []string{id.CommonName}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(err, "parse generated certificate")
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "marshal private key")
	}

	return &Material{
		Certificate: cert,
		Key:         key,
		CertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:      pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// WriteFiles stores the certificate and key as PEM, replacing whatever is
// already at those paths. There is no locking; concurrent writers race.
func (m *Material) WriteFiles(certPath, keyPath string) error {
	if err := os.WriteFile(certPath, m.CertPEM, 0o644); err != nil {
		return errors.Wrapf(err, "write certificate %s", certPath)
	}
	if err := os.WriteFile(keyPath, m.KeyPEM, 0o600); err != nil {
		return errors.Wrapf(err, "write private key %s", keyPath)
	}
	return nil
}

// GenerateSelfSigned creates a certificate with the default identity and
// writes it with its key to certPath and keyPath. Empty paths fall back to
// DefaultCertFile and DefaultKeyFile.
func GenerateSelfSigned(certPath, keyPath string) error {
	if certPath == "" {
		certPath = DefaultCertFile
	}
	if keyPath == "" {
		keyPath = DefaultKeyFile
	}

	m, err := Generate(DefaultIdentity(), time.Now())
	if err != nil {
		return err
	}
	if err := m.WriteFiles(certPath, keyPath); err != nil {
		return err
	}

	slog.Info("Self-signed certificate generated",
		"cert_file", certPath,
		"key_file", keyPath,
		"not_after", m.Certificate.NotAfter)
	return nil
}

// Load reads a PEM certificate and key pair from disk.
func Load(certPath, keyPath string) (tls.Certificate, error) {
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, errors.Wrapf(err, "load key pair %s, %s", certPath, keyPath)
	}
	return pair, nil
}
