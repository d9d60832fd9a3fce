package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/updwatch/internal/config"
)

const (
	caCertName = "tls_ca.crt"
	certName   = "tls.crt"
	keyName    = "tls.key"
)

// Setup builds the server TLS configuration for the [serve] section. An
// explicit cert_file/key_file pair wins; otherwise [serve.tls] dir holds the
// pair, generated self-signed when auto_generate is set and none exists yet.
// Returns nil when neither is configured, meaning plain HTTP.
func Setup(serve config.ServeConfig) (*tls.Config, error) {
	minVer, maxVer := resolveVersions(serve.TLS)

	if serve.CertFile != "" && serve.KeyFile != "" {
		return newConfig(serve.CertFile, serve.KeyFile, minVer, maxVer), nil
	}

	t := serve.TLS
	if t == nil {
		return nil, nil
	}
	if t.Dir == "" {
		return nil, errors.New("serve.tls configured without dir or serve.cert_file/key_file")
	}

	certPath := filepath.Join(t.Dir, certName)
	keyPath := filepath.Join(t.Dir, keyName)
	if t.AutoGenerate && !pairExists(certPath, keyPath) {
		if err := generate(t); err != nil {
			return nil, fmt.Errorf("certificate generation failed: %w", err)
		}
	}
	return newConfig(certPath, keyPath, minVer, maxVer), nil
}

// parseVersion maps a config value to a TLS protocol version constant.
func parseVersion(v string) (uint16, bool) {
	switch v {
	case "1.2", "tls1.2", "TLS1.2":
		return tls.VersionTLS12, true
	case "1.3", "tls1.3", "TLS1.3":
		return tls.VersionTLS13, true
	default:
		return 0, false
	}
}

func resolveVersions(t *config.ServeTLSConfig) (minVer, maxVer uint16) {
	minVer, maxVer = tls.VersionTLS12, tls.VersionTLS13
	if t == nil {
		return minVer, maxVer
	}
	if v, ok := parseVersion(t.MinVersion); ok {
		minVer = v
	}
	if v, ok := parseVersion(t.MaxVersion); ok {
		maxVer = v
	}
	return minVer, maxVer
}

func newConfig(certPath, keyPath string, minVer, maxVer uint16) *tls.Config {
	// #nosec G402 -- the floor is TLS 1.2, operator-configurable upward
	return &tls.Config{
		GetCertificate: certificateLoader(certPath, keyPath),
		MinVersion:     minVer,
		MaxVersion:     maxVer,
	}
}

// certificateLoader re-reads the pair on each handshake so a rotated
// certificate takes effect without a restart.
func certificateLoader(certPath, keyPath string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	baseDir := filepath.Dir(certPath)
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		certPEM, err := readWithin(baseDir, certPath)
		if err != nil {
			return nil, err
		}
		keyPEM, err := readWithin(baseDir, keyPath)
		if err != nil {
			return nil, err
		}
		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, err
		}
		return &cert, nil
	}
}

// readWithin reads p, rejecting paths that escape baseDir.
func readWithin(baseDir, p string) ([]byte, error) {
	clean := filepath.Clean(p)
	absBase, _ := filepath.Abs(baseDir)
	absFile, _ := filepath.Abs(clean)
	if absFile != absBase && !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) {
		return nil, errors.New("certificate path escapes its directory")
	}
	return os.ReadFile(clean)
}

func pairExists(certPath, keyPath string) bool {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	return certErr == nil && keyErr == nil
}

func generate(t *config.ServeTLSConfig) error {
	if err := os.MkdirAll(t.Dir, 0o750); err != nil {
		return err
	}
	validDays := t.ValidDays
	if validDays <= 0 {
		validDays = 365
	}
	return GenerateSelfSigned(CertOptions{
		CommonName:   orDefault(t.CommonName, "localhost"),
		Organization: orDefault(t.Organization, "updwatch"),
		DNSNames:     orDefaultSlice(t.DNSNames, []string{"localhost"}),
		IPAddresses:  orDefaultSlice(t.IPAddresses, []string{"127.0.0.1"}),
		NotAfter:     time.Now().AddDate(0, 0, validDays),
		CertPath:     filepath.Join(t.Dir, certName),
		KeyPath:      filepath.Join(t.Dir, keyName),
		CACertPath:   filepath.Join(t.Dir, caCertName),
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func orDefaultSlice(value, fallback []string) []string {
	if len(value) == 0 {
		return fallback
	}
	return value
}
