package verify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/selimacar/frame-notifier/internal/domain"
)

// SignedEnvelope is the wire form of an inbound lifecycle signal: three
// base64url segments, with the signature covering "header.payload".
type SignedEnvelope struct {
	Header    string `json:"header"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

type envelopeHeader struct {
	FID  uint64 `json:"fid"`
	Type string `json:"type"`
	Key  string `json:"key"`
}

type envelopePayload struct {
	Event               string                      `json:"event"`
	NotificationDetails *domain.NotificationDetails `json:"notificationDetails"`
}

// Verifier authenticates an inbound lifecycle signal and returns the parsed
// event. A verification failure must leave no trace in any store.
type Verifier interface {
	Verify(ctx context.Context, envelope SignedEnvelope) (*domain.LifecycleEvent, error)
}

// StructuralVerifier accepts any envelope whose identity header and payload
// are well formed. Suitable outside production only.
type StructuralVerifier struct{}

func NewStructuralVerifier() *StructuralVerifier {
	return &StructuralVerifier{}
}

func (v *StructuralVerifier) Verify(_ context.Context, envelope SignedEnvelope) (*domain.LifecycleEvent, error) {
	header, payload, err := decodeEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	return buildEvent(header, payload)
}

func decodeEnvelope(envelope SignedEnvelope) (*envelopeHeader, *envelopePayload, error) {
	headerBytes, err := decodeSegment(envelope.Header)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed header: %v", domain.ErrValidation, err)
	}

	var header envelopeHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed header json: %v", domain.ErrValidation, err)
	}
	if header.FID == 0 {
		return nil, nil, fmt.Errorf("%w: header is missing fid", domain.ErrValidation)
	}
	if !strings.EqualFold(strings.TrimSpace(header.Type), "app_key") {
		return nil, nil, fmt.Errorf("%w: unexpected header type %q", domain.ErrValidation, header.Type)
	}

	payloadBytes, err := decodeSegment(envelope.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed payload: %v", domain.ErrValidation, err)
	}

	var payload envelopePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed payload json: %v", domain.ErrValidation, err)
	}

	return &header, &payload, nil
}

func buildEvent(header *envelopeHeader, payload *envelopePayload) (*domain.LifecycleEvent, error) {
	eventType, err := domain.ParseEventTypeFromString(payload.Event)
	if err != nil {
		return nil, err
	}

	event := &domain.LifecycleEvent{
		Type:                eventType,
		FID:                 header.FID,
		NotificationDetails: payload.NotificationDetails,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func decodeSegment(segment string) ([]byte, error) {
	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return nil, fmt.Errorf("empty segment")
	}
	return base64.RawURLEncoding.DecodeString(trimmed)
}
