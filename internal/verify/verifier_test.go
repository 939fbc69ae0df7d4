package verify

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/selimacar/frame-notifier/internal/domain"
)

func encodeSegment(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal segment: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func signedEnvelope(t *testing.T, fid uint64, event string, details *domain.NotificationDetails) (SignedEnvelope, ed25519.PublicKey) {
	t.Helper()

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey() error = %v", err)
	}

	envelope := SignedEnvelope{
		Header: encodeSegment(t, map[string]any{
			"fid":  fid,
			"type": "app_key",
			"key":  "0x" + hex.EncodeToString(publicKey),
		}),
		Payload: encodeSegment(t, map[string]any{
			"event":               event,
			"notificationDetails": details,
		}),
	}

	signature := ed25519.Sign(privateKey, []byte(envelope.Header+"."+envelope.Payload))
	envelope.Signature = base64.RawURLEncoding.EncodeToString(signature)

	return envelope, publicKey
}

func TestStructuralVerifierAcceptsWellFormedEvent(t *testing.T) {
	t.Parallel()

	envelope, _ := signedEnvelope(t, 42, "frame_added", &domain.NotificationDetails{
		URL:   "https://push.example.com/v1",
		Token: "tok-1",
	})

	event, err := NewStructuralVerifier().Verify(context.Background(), envelope)
	if err != nil {
		t.Fatalf("Verify() unexpected error = %v", err)
	}
	if event.Type != domain.EventFrameAdded {
		t.Fatalf("event type = %s, want frame_added", event.Type)
	}
	if event.FID != 42 {
		t.Fatalf("fid = %d, want 42", event.FID)
	}
	if event.NotificationDetails == nil || event.NotificationDetails.Token != "tok-1" {
		t.Fatal("notification details should carry the token")
	}
}

func TestStructuralVerifierRejectsMalformedEnvelopes(t *testing.T) {
	t.Parallel()

	valid, _ := signedEnvelope(t, 42, "frame_added", nil)

	tests := []struct {
		name   string
		mutate func(*SignedEnvelope)
	}{
		{
			name:   "empty header",
			mutate: func(e *SignedEnvelope) { e.Header = "" },
		},
		{
			name:   "header not base64url",
			mutate: func(e *SignedEnvelope) { e.Header = "not/base64!" },
		},
		{
			name: "missing fid",
			mutate: func(e *SignedEnvelope) {
				e.Header = base64.RawURLEncoding.EncodeToString([]byte(`{"type":"app_key","key":"0x00"}`))
			},
		},
		{
			name: "wrong header type",
			mutate: func(e *SignedEnvelope) {
				e.Header = base64.RawURLEncoding.EncodeToString([]byte(`{"fid":42,"type":"custody","key":"0x00"}`))
			},
		},
		{
			name: "unrecognized event name",
			mutate: func(e *SignedEnvelope) {
				e.Payload = base64.RawURLEncoding.EncodeToString([]byte(`{"event":"frame_pinned"}`))
			},
		},
		{
			name: "notifications_enabled without details",
			mutate: func(e *SignedEnvelope) {
				e.Payload = base64.RawURLEncoding.EncodeToString([]byte(`{"event":"notifications_enabled"}`))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			envelope := valid
			tt.mutate(&envelope)

			_, err := NewStructuralVerifier().Verify(context.Background(), envelope)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Verify() error = %v, want ErrValidation", err)
			}
		})
	}
}

type fakeRegistry struct {
	registered bool
	err        error
	gotFID     uint64
	gotKey     ed25519.PublicKey
}

func (f *fakeRegistry) IsRegistered(_ context.Context, fid uint64, key ed25519.PublicKey) (bool, error) {
	f.gotFID = fid
	f.gotKey = key
	return f.registered, f.err
}

func TestEd25519VerifierAcceptsValidSignature(t *testing.T) {
	t.Parallel()

	envelope, publicKey := signedEnvelope(t, 42, "frame_removed", nil)

	registry := &fakeRegistry{registered: true}
	verifier, err := NewEd25519Verifier(registry)
	if err != nil {
		t.Fatalf("NewEd25519Verifier() error = %v", err)
	}

	event, err := verifier.Verify(context.Background(), envelope)
	if err != nil {
		t.Fatalf("Verify() unexpected error = %v", err)
	}
	if event.Type != domain.EventFrameRemoved {
		t.Fatalf("event type = %s, want frame_removed", event.Type)
	}
	if registry.gotFID != 42 {
		t.Fatalf("registry fid = %d, want 42", registry.gotFID)
	}
	if !publicKey.Equal(registry.gotKey) {
		t.Fatal("registry should be asked about the header key")
	}
}

func TestEd25519VerifierRejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	envelope, _ := signedEnvelope(t, 42, "frame_removed", nil)
	envelope.Payload = base64.RawURLEncoding.EncodeToString([]byte(`{"event":"frame_added"}`))

	verifier, err := NewEd25519Verifier(&fakeRegistry{registered: true})
	if err != nil {
		t.Fatalf("NewEd25519Verifier() error = %v", err)
	}

	_, err = verifier.Verify(context.Background(), envelope)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Verify() error = %v, want ErrValidation", err)
	}
}

func TestEd25519VerifierRejectsUnregisteredKey(t *testing.T) {
	t.Parallel()

	envelope, _ := signedEnvelope(t, 42, "frame_removed", nil)

	verifier, err := NewEd25519Verifier(&fakeRegistry{registered: false})
	if err != nil {
		t.Fatalf("NewEd25519Verifier() error = %v", err)
	}

	_, err = verifier.Verify(context.Background(), envelope)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Verify() error = %v, want ErrValidation", err)
	}
}

func TestHTTPKeyRegistryIsRegistered(t *testing.T) {
	t.Parallel()

	publicKey, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey() error = %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fid"); got != "42" {
			t.Errorf("fid query = %q, want 42", got)
		}
		if got := r.URL.Query().Get("key"); got != "0x"+hex.EncodeToString(publicKey) {
			t.Errorf("key query = %q, want header key", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"valid":true}`))
	}))
	defer server.Close()

	registry, err := NewHTTPKeyRegistry(server.URL)
	if err != nil {
		t.Fatalf("NewHTTPKeyRegistry() error = %v", err)
	}

	registered, err := registry.IsRegistered(context.Background(), 42, publicKey)
	if err != nil {
		t.Fatalf("IsRegistered() error = %v", err)
	}
	if !registered {
		t.Fatal("IsRegistered() = false, want true")
	}
}
