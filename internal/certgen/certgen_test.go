package certgen

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPEM(t *testing.T, path, wantType string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	block, rest := pem.Decode(data)
	require.NotNil(t, block, "no PEM block in %s", path)
	assert.Equal(t, wantType, block.Type)
	assert.Empty(t, rest)
	return block.Bytes
}

func TestGenerateSelfSigned_WritesValidPair(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, GenerateSelfSigned(certPath, keyPath))

	cert, err := x509.ParseCertificate(readPEM(t, certPath, "CERTIFICATE"))
	require.NoError(t, err)
	parsedKey, err := x509.ParsePKCS8PrivateKey(readPEM(t, keyPath, "PRIVATE KEY"))
	require.NoError(t, err)
	key, ok := parsedKey.(*rsa.PrivateKey)
	require.True(t, ok, "key is %T", parsedKey)

	assert.Equal(t, KeyBits, key.N.BitLen())
	assert.True(t, key.PublicKey.Equal(cert.PublicKey), "certificate does not carry the generated public key")
	assert.Equal(t, cert.Subject.String(), cert.Issuer.String())
	assert.NoError(t, cert.CheckSignatureFrom(cert))
	assert.Equal(t, x509.SHA256WithRSA, cert.SignatureAlgorithm)
	assert.Equal(t, int64(DefaultSerial), cert.SerialNumber.Int64())
	assert.Equal(t, 3650*24*time.Hour, cert.NotAfter.Sub(cert.NotBefore))

	_, err = Load(certPath, keyPath)
	assert.NoError(t, err)
}

func TestGenerate_VerifiesAsOwnRoot(t *testing.T) {
	m, err := Generate(DefaultIdentity(), time.Now())
	require.NoError(t, err)

	assert.True(t, m.Certificate.IsCA)
	assert.NotZero(t, m.Certificate.KeyUsage&x509.KeyUsageCertSign)
	require.NoError(t, m.Certificate.CheckSignatureFrom(m.Certificate))

	roots := x509.NewCertPool()
	roots.AddCert(m.Certificate)
	_, err = m.Certificate.Verify(x509.VerifyOptions{
		DNSName:   "localhost",
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	assert.NoError(t, err)
}

func TestGenerateSelfSigned_KeyFileMode(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, GenerateSelfSigned(filepath.Join(dir, "cert.pem"), keyPath))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestGenerate_SubjectFields(t *testing.T) {
	m, err := Generate(DefaultIdentity(), time.Now())
	require.NoError(t, err)

	s := m.Certificate.Subject
	assert.Equal(t, []string{"US"}, s.Country)
	assert.Equal(t, []string{"Region"}, s.Province)
	assert.Equal(t, []string{"City"}, s.Locality)
	assert.Equal(t, []string{"Organization"}, s.Organization)
	assert.Equal(t, []string{"Organizational Unit"}, s.OrganizationalUnit)
	assert.Equal(t, "localhost", s.CommonName)
	assert.Equal(t, []string{"localhost"}, m.Certificate.DNSNames)
}

func TestGenerate_ValidityStartsNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 45, 500, time.UTC)
	m, err := Generate(DefaultIdentity(), now)
	require.NoError(t, err)

	assert.True(t, m.Certificate.NotBefore.Equal(now.Truncate(time.Second)))
	assert.True(t, m.Certificate.NotAfter.Equal(now.Truncate(time.Second).AddDate(0, 0, 3650)))
}

func TestGenerate_FreshKeysSameSerial(t *testing.T) {
	first, err := Generate(DefaultIdentity(), time.Now())
	require.NoError(t, err)
	second, err := Generate(DefaultIdentity(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, first.Certificate.Subject.String(), second.Certificate.Subject.String())
	assert.Equal(t, 0, first.Certificate.SerialNumber.Cmp(second.Certificate.SerialNumber))
	assert.False(t, first.Key.Equal(second.Key), "two runs produced the same key")
}

func TestGenerateSelfSigned_Overwrites(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(keyPath, []byte("stale"), 0o600))

	require.NoError(t, GenerateSelfSigned(certPath, keyPath))

	_, err := Load(certPath, keyPath)
	assert.NoError(t, err)
}

func TestGenerateSelfSigned_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing", "cert.pem")

	err := GenerateSelfSigned(missing, filepath.Join(dir, "key.pem"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"))
	assert.Error(t, err)
}
