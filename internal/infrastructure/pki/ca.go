package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePrivateKey  = "PRIVATE KEY"
)

// ParseCurve maps a configured curve name to its implementation.
func ParseCurve(name string) (elliptic.Curve, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "P256", "P-256":
		return elliptic.P256(), nil
	case "P384", "P-384":
		return elliptic.P384(), nil
	case "P521", "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported key curve: %s", name)
	}
}

// GenerateCA creates a self-signed signing CA and returns it PEM encoded.
func GenerateCA(commonName string, curve elliptic.Curve, validity time.Duration, now time.Time) (certPEM, keyPEM string, err error) {
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ca key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ca serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign ca certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal ca key: %w", err)
	}

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: keyDER}))
	return certPEM, keyPEM, nil
}

func loadCAFiles(certPath, keyPath string) (*x509.Certificate, crypto.Signer, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read ca certificate file: %w", err)
	}
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read ca private key file: %w", err)
	}
	return parseCA(certData, keyData)
}

func parseCA(certData, keyData []byte) (*x509.Certificate, crypto.Signer, error) {
	certBlock, _ := pem.Decode(certData)
	if certBlock == nil {
		return nil, nil, errors.New("failed to decode ca certificate pem")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse ca certificate: %w", err)
	}
	if !cert.IsCA {
		return nil, nil, errors.New("ca certificate is not marked as a CA")
	}

	keyBlock, _ := pem.Decode(keyData)
	if keyBlock == nil {
		return nil, nil, errors.New("failed to decode ca private key pem")
	}

	var key crypto.Signer
	switch keyBlock.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(keyBlock.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	case pemTypePrivateKey:
		parsed, perr := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if perr != nil {
			return nil, nil, fmt.Errorf("failed to parse pkcs8 private key: %w", perr)
		}
		signer, ok := parsed.(crypto.Signer)
		if !ok {
			return nil, nil, errors.New("ca private key cannot sign")
		}
		key = signer
	default:
		return nil, nil, fmt.Errorf("unsupported private key type: %s", keyBlock.Type)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse ca private key: %w", err)
	}

	return cert, key, nil
}
