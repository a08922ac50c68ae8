// Package pki signs entitlement certificates, revocation lists and OCSP
// responses with the configured certificate authority.
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
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/ocsp"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/config"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

const caCommonName = "Candlepin Entitlement CA"

var _ entitlement.Signer = (*Authority)(nil)

// Authority is safe for concurrent use; its state is fixed after Load.
type Authority struct {
	caCert      *x509.Certificate
	caKey       crypto.Signer
	caPEM       string
	curve       elliptic.Curve
	serials     *snowflake.Node
	crlValidity time.Duration
	logger      logger.Interface
}

// Load opens the CA named in cfg. With no paths configured an ephemeral CA is
// generated, which invalidates every certificate on restart.
func Load(cfg *config.PKIConfig, nodeID int64, log logger.Interface) (*Authority, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	curve, err := ParseCurve(cfg.KeyCurve)
	if err != nil {
		return nil, err
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("invalid serial node id %d: %w", nodeID, err)
	}

	var (
		caCert *x509.Certificate
		caKey  crypto.Signer
	)
	switch {
	case cfg.CACertPath == "" && cfg.CAKeyPath == "":
		validity := time.Duration(cfg.CAValidityDay) * 24 * time.Hour
		if validity <= 0 {
			validity = 3650 * 24 * time.Hour
		}
		certPEM, keyPEM, err := GenerateCA(caCommonName, curve, validity, biztime.NowUTC())
		if err != nil {
			return nil, err
		}
		caCert, caKey, err = parseCA([]byte(certPEM), []byte(keyPEM))
		if err != nil {
			return nil, err
		}
		log.Warnw("no CA configured, using an ephemeral signing CA")
	case cfg.CACertPath == "" || cfg.CAKeyPath == "":
		return nil, errors.New("pki.ca_cert_path and pki.ca_key_path must be set together")
	default:
		caCert, caKey, err = loadCAFiles(cfg.CACertPath, cfg.CAKeyPath)
		if err != nil {
			return nil, err
		}
		log.Infow("signing CA loaded", "subject", caCert.Subject.String(), "not_after", caCert.NotAfter)
	}

	return &Authority{
		caCert:      caCert,
		caKey:       caKey,
		caPEM:       string(pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: caCert.Raw})),
		curve:       curve,
		serials:     node,
		crlValidity: cfg.CRLValidityDuration(),
		logger:      log,
	}, nil
}

// NextSerial returns a positive serial unique across nodes.
func (a *Authority) NextSerial() int64 {
	return a.serials.Generate().Int64()
}

// CACertificatePEM returns the signing CA certificate.
func (a *Authority) CACertificatePEM() string {
	return a.caPEM
}

// Sign issues a leaf certificate and fresh key for req.
func (a *Authority) Sign(req entitlement.SigningRequest) (entitlement.Material, error) {
	if req.Serial <= 0 {
		return entitlement.Material{}, errors.New("serial must be positive")
	}
	if req.NotAfter.Before(req.NotBefore) {
		return entitlement.Material{}, errors.New("certificate window ends before it starts")
	}

	key, err := ecdsa.GenerateKey(a.curve, rand.Reader)
	if err != nil {
		return entitlement.Material{}, fmt.Errorf("failed to generate key: %w", err)
	}

	exts, err := entitlementExtensions(req)
	if err != nil {
		return entitlement.Material{}, err
	}

	commonName := req.ConsumerID
	if req.Kind == entitlement.KindPool {
		commonName = fmt.Sprintf("pool-%d", req.PoolID)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(req.Serial),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{req.OwnerKey},
		},
		NotBefore:       req.NotBefore,
		NotAfter:        req.NotAfter,
		KeyUsage:        x509.KeyUsageDigitalSignature,
		ExtKeyUsage:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		ExtraExtensions: exts,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.caCert, &key.PublicKey, a.caKey)
	if err != nil {
		return entitlement.Material{}, fmt.Errorf("failed to sign certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return entitlement.Material{}, fmt.Errorf("failed to marshal key: %w", err)
	}

	return entitlement.Material{
		CertificatePEM: string(pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: der})),
		PrivateKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: keyDER})),
	}, nil
}

// RevocationList signs a CRL. The CRL number is a fresh serial, so numbers
// increase across nodes.
func (a *Authority) RevocationList(revs []entitlement.Revocation, now time.Time) ([]byte, error) {
	entries := make([]x509.RevocationListEntry, 0, len(revs))
	for _, r := range revs {
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   big.NewInt(r.Serial),
			RevocationTime: r.RevokedAt,
			ReasonCode:     int(r.Reason),
		})
	}

	template := &x509.RevocationList{
		RevokedCertificateEntries: entries,
		Number:                    big.NewInt(a.NextSerial()),
		ThisUpdate:                now,
		NextUpdate:                now.Add(a.crlValidity),
	}

	der, err := x509.CreateRevocationList(rand.Reader, template, a.caCert, a.caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign revocation list: %w", err)
	}
	return der, nil
}

// OCSPResponse signs a status answer for serial directly with the CA.
func (a *Authority) OCSPResponse(serial int64, status entitlement.OCSPStatus, rev *entitlement.Revocation, now time.Time) ([]byte, error) {
	template := ocsp.Response{
		SerialNumber: big.NewInt(serial),
		ThisUpdate:   now,
		NextUpdate:   now.Add(a.crlValidity),
	}

	switch status {
	case entitlement.OCSPGood:
		template.Status = ocsp.Good
	case entitlement.OCSPRevoked:
		if rev == nil {
			return nil, errors.New("revoked status requires a revocation record")
		}
		template.Status = ocsp.Revoked
		template.RevokedAt = rev.RevokedAt
		template.RevocationReason = int(rev.Reason)
	default:
		template.Status = ocsp.Unknown
	}

	der, err := ocsp.CreateResponse(a.caCert, a.caCert, template, a.caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign ocsp response: %w", err)
	}
	return der, nil
}
