package certgen

import (
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeCA generates a CA and stores it under a temp dir, returning the paths.
func writeCA(t *testing.T) (*Credentials, string, string) {
	t.Helper()

	ca, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatalf("GenerateCA error: %v", err)
	}
	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")
	if err := ca.WriteFiles(certPath, keyPath); err != nil {
		t.Fatalf("WriteFiles error: %v", err)
	}
	return ca, certPath, keyPath
}

func TestGenerateCA(t *testing.T) {
	ca, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatalf("GenerateCA error: %v", err)
	}
	if !ca.Cert.IsCA || !ca.Cert.BasicConstraintsValid {
		t.Error("CA certificate should have IsCA and BasicConstraintsValid set")
	}
	if ca.Cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Errorf("CA KeyUsage = %v; want CertSign", ca.Cert.KeyUsage)
	}
	if dur := ca.Cert.NotAfter.Sub(ca.Cert.NotBefore); dur < 9*365*24*time.Hour {
		t.Errorf("CA validity too short: %v", dur)
	}
	if block, _ := pem.Decode(ca.CertPEM); block == nil || block.Type != "CERTIFICATE" {
		t.Error("cert PEM invalid")
	}
}

func TestLoadCACredentials_Success(t *testing.T) {
	want, certPath, keyPath := writeCA(t)

	certOut, keyOut, err := LoadCACredentials(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadCACredentials error: %v", err)
	}
	if certOut.Subject.CommonName != "Test CA" {
		t.Errorf("CommonName = %q; want %q", certOut.Subject.CommonName, "Test CA")
	}
	parsedKey, ok := keyOut.(*ecdsa.PrivateKey)
	if !ok {
		t.Fatalf("key type = %T; want *ecdsa.PrivateKey", keyOut)
	}
	if !parsedKey.PublicKey.Equal(&want.Key.PublicKey) {
		t.Error("public key mismatch")
	}
}

func TestLoadCACredentials_Errors(t *testing.T) {
	ca, certPath, keyPath := writeCA(t)
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	leaf, err := GenerateServerCertificate([]string{"localhost"}, ca.Cert, ca.Key)
	if err != nil {
		t.Fatal(err)
	}
	leafPath := filepath.Join(dir, "leaf.crt")
	if err := os.WriteFile(leafPath, leaf.CertPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		certPath string
		keyPath  string
		want     string
	}{
		{"missing cert", "/no/such/file.pem", keyPath, "read ca cert"},
		{"missing key", certPath, "/no/such/key.pem", "read ca key"},
		{"bad cert PEM", garbage, keyPath, "invalid CA cert PEM"},
		{"bad key PEM", certPath, garbage, "invalid CA key PEM"},
		{"not a CA", leafPath, keyPath, "not a CA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadCACredentials(tt.certPath, tt.keyPath)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v; want error containing %q", err, tt.want)
			}
		})
	}
}

func TestGenerateServerCertificate(t *testing.T) {
	ca, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}

	srv, err := GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, ca.Cert, ca.Key)
	if err != nil {
		t.Fatalf("GenerateServerCertificate error: %v", err)
	}
	if srv.Cert.Subject.CommonName != "localhost" {
		t.Errorf("CommonName = %q; want localhost", srv.Cert.Subject.CommonName)
	}
	if len(srv.Cert.DNSNames) != 1 || srv.Cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", srv.Cert.DNSNames)
	}
	if len(srv.Cert.IPAddresses) != 1 || srv.Cert.IPAddresses[0].String() != "127.0.0.1" {
		t.Errorf("IPAddresses = %v", srv.Cert.IPAddresses)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca.Cert)
	if _, err := srv.Cert.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: roots}); err != nil {
		t.Errorf("server cert does not verify against CA: %v", err)
	}

	if _, err := tls.X509KeyPair(srv.CertPEM, srv.KeyPEM); err != nil {
		t.Errorf("cert and key do not form a pair: %v", err)
	}
}

func TestGenerateServerCertificate_NoHosts(t *testing.T) {
	ca, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := GenerateServerCertificate(nil, ca.Cert, ca.Key); err == nil {
		t.Error("expected error for empty host list")
	}
}

func TestWriteFiles_KeyPermissions(t *testing.T) {
	_, _, keyPath := writeCA(t)
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key permissions = %v; want 0600", perm)
	}
}
