package relay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Kind names the sacrifice being relayed.
type Kind string

const (
	KindFirst  Kind = "first"
	KindSecond Kind = "second"
	KindThird  Kind = "third"
)

// Offering is what the workflow asks to have relayed.
type Offering struct {
	UserID      string
	DisplayName string
	Kind        Kind
	// Text is the submitted content. Unused for KindThird.
	Text string
}

// Envelope is the wire shape receivers see. Field order is the signed order.
type Envelope struct {
	SubjectID   string `json:"discord_user_id"`
	SubjectName string `json:"discord_username"`
	Kind        Kind   `json:"kind"`
	Payload     any    `json:"payload"`
	Timestamp   int64  `json:"ts"`
}

type firstPayload struct {
	First string `json:"first"`
}

type secondPayload struct {
	Second string `json:"second"`
}

type thirdPayload struct {
	Surrender bool `json:"surrender"`
}

// NewEnvelope builds the envelope for o stamped with at.
func NewEnvelope(o Offering, at time.Time) Envelope {
	var payload any
	switch o.Kind {
	case KindFirst:
		payload = firstPayload{First: o.Text}
	case KindSecond:
		payload = secondPayload{Second: o.Text}
	case KindThird:
		payload = thirdPayload{Surrender: true}
	default:
		payload = map[string]any{}
	}
	return Envelope{
		SubjectID:   o.UserID,
		SubjectName: o.DisplayName,
		Kind:        o.Kind,
		Payload:     payload,
		Timestamp:   at.Unix(),
	}
}

type signedEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// Canonical encodes v as compact JSON without HTML escaping or a trailing newline.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(secret string, body []byte, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Encode produces the request body for env. With an empty secret the body is
// the canonical envelope and the signature is empty. Otherwise the body wraps
// the canonical bytes verbatim alongside their signature.
func Encode(env Envelope, secret string) ([]byte, string, error) {
	canonical, err := Canonical(env)
	if err != nil {
		return nil, "", fmt.Errorf("encode envelope: %w", err)
	}
	if secret == "" {
		return canonical, "", nil
	}

	sig := Sign(secret, canonical)
	body, err := Canonical(signedEnvelope{Payload: canonical, Signature: sig})
	if err != nil {
		return nil, "", fmt.Errorf("encode signed envelope: %w", err)
	}
	return body, sig, nil
}
