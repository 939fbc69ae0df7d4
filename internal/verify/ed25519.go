package verify

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/selimacar/frame-notifier/internal/domain"
)

// AppKeyRegistry answers whether a signing key is registered as an app key
// for a given fid.
type AppKeyRegistry interface {
	IsRegistered(ctx context.Context, fid uint64, key ed25519.PublicKey) (bool, error)
}

// Ed25519Verifier performs full cryptographic verification of a lifecycle
// signal: the signature must check out against the key named in the header,
// and the key must be registered to the claimed fid. Mandatory in production.
type Ed25519Verifier struct {
	registry AppKeyRegistry
}

func NewEd25519Verifier(registry AppKeyRegistry) (*Ed25519Verifier, error) {
	if registry == nil {
		return nil, fmt.Errorf("app key registry is required")
	}
	return &Ed25519Verifier{registry: registry}, nil
}

func (v *Ed25519Verifier) Verify(ctx context.Context, envelope SignedEnvelope) (*domain.LifecycleEvent, error) {
	header, payload, err := decodeEnvelope(envelope)
	if err != nil {
		return nil, err
	}

	publicKey, err := decodeAppKey(header.Key)
	if err != nil {
		return nil, err
	}

	signature, err := decodeSegment(envelope.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature: %v", domain.ErrValidation, err)
	}

	signedMessage := []byte(strings.TrimSpace(envelope.Header) + "." + strings.TrimSpace(envelope.Payload))
	if !ed25519.Verify(publicKey, signedMessage, signature) {
		return nil, fmt.Errorf("%w: signature verification failed", domain.ErrValidation)
	}

	registered, err := v.registry.IsRegistered(ctx, header.FID, publicKey)
	if err != nil {
		return nil, fmt.Errorf("app key registry lookup failed: %w", err)
	}
	if !registered {
		return nil, fmt.Errorf("%w: key is not registered for fid %d", domain.ErrValidation, header.FID)
	}

	return buildEvent(header, payload)
}

func decodeAppKey(key string) (ed25519.PublicKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(key), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		// Some clients ship the key base64url-encoded instead of hex.
		raw, err = base64.RawURLEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed app key", domain.ErrValidation)
		}
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: app key must be %d bytes, got %d", domain.ErrValidation, ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
