package pki

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strconv"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
)

// Entitlement data lives under the Red Hat entitlement arc so existing
// subscription-manager tooling can locate it.
var (
	oidProvided        = entitlementOID(1)
	oidOrderSKU        = entitlementOID(4, 3)
	oidOrderQuantity   = entitlementOID(4, 5)
	oidOrderSubscribed = entitlementOID(4, 11)
	oidOrderPool       = entitlementOID(4, 17)
	oidConsumer        = entitlementOID(5, 1)
	oidEntitlementKind = entitlementOID(8)
)

func entitlementOID(sub ...int) asn1.ObjectIdentifier {
	return append(asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 2312, 9}, sub...)
}

func stringExtension(id asn1.ObjectIdentifier, value string) (pkix.Extension, error) {
	der, err := asn1.MarshalWithParams(value, "utf8")
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("failed to encode extension %s: %w", id, err)
	}
	return pkix.Extension{Id: id, Value: der}, nil
}

func entitlementExtensions(req entitlement.SigningRequest) ([]pkix.Extension, error) {
	values := []struct {
		id    asn1.ObjectIdentifier
		value string
	}{
		{oidOrderSKU, req.ProductID},
		{oidOrderQuantity, strconv.FormatInt(req.Quantity, 10)},
		{oidOrderSubscribed, strconv.FormatUint(uint64(req.SubscriptionID), 10)},
		{oidOrderPool, strconv.FormatUint(uint64(req.PoolID), 10)},
		{oidEntitlementKind, req.Kind.String()},
	}
	if req.ConsumerID != "" {
		values = append(values, struct {
			id    asn1.ObjectIdentifier
			value string
		}{oidConsumer, req.ConsumerID})
	}

	exts := make([]pkix.Extension, 0, len(values)+1)
	for _, v := range values {
		ext, err := stringExtension(v.id, v.value)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(req.ProvidedProductIDs) > 0 {
		der, err := asn1.Marshal(req.ProvidedProductIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode provided products: %w", err)
		}
		exts = append(exts, pkix.Extension{Id: oidProvided, Value: der})
	}
	return exts, nil
}

// ExtensionValue returns a string extension from a parsed certificate's
// extension list, or "" when absent.
func ExtensionValue(exts []pkix.Extension, id asn1.ObjectIdentifier) string {
	for _, ext := range exts {
		if !ext.Id.Equal(id) {
			continue
		}
		var s string
		if _, err := asn1.Unmarshal(ext.Value, &s); err != nil {
			return ""
		}
		return s
	}
	return ""
}
