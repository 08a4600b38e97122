package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"
)

var fixedTime = time.Unix(1700000000, 0)

func TestNewEnvelope_Payloads(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
		want string
	}{
		{KindFirst, "who I am", `{"discord_user_id":"42","discord_username":"seeker","kind":"first","payload":{"first":"who I am"},"ts":1700000000}`},
		{KindSecond, "the project", `{"discord_user_id":"42","discord_username":"seeker","kind":"second","payload":{"second":"the project"},"ts":1700000000}`},
		{KindThird, "ignored", `{"discord_user_id":"42","discord_username":"seeker","kind":"third","payload":{"surrender":true},"ts":1700000000}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			env := NewEnvelope(Offering{UserID: "42", DisplayName: "seeker", Kind: tt.kind, Text: tt.text}, fixedTime)
			got, err := Canonical(env)
			if err != nil {
				t.Fatalf("canonical: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCanonical_NoHTMLEscapeOrNewline(t *testing.T) {
	env := NewEnvelope(Offering{UserID: "1", DisplayName: "a<b>&c", Kind: KindFirst, Text: "fé → ✨"}, fixedTime)
	got, err := Canonical(env)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	want := `{"discord_user_id":"1","discord_username":"a<b>&c","kind":"first","payload":{"first":"fé → ✨"},"ts":1700000000}`
	if string(got) != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEncode_Unsigned(t *testing.T) {
	env := NewEnvelope(Offering{UserID: "1", DisplayName: "u", Kind: KindThird}, fixedTime)
	body, sig, err := Encode(env, "")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if sig != "" {
		t.Errorf("expected no signature, got %s", sig)
	}
	canonical, _ := Canonical(env)
	if string(body) != string(canonical) {
		t.Errorf("expected unwrapped envelope, got %s", body)
	}
}

func TestEncode_SignedVerifiesIndependently(t *testing.T) {
	env := NewEnvelope(Offering{UserID: "1", DisplayName: "u", Kind: KindFirst, Text: "ritual"}, fixedTime)
	body, sig, err := Encode(env, "k")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var wrapped struct {
		Payload   json.RawMessage `json:"payload"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		t.Fatalf("unmarshal wrapper: %v", err)
	}
	if wrapped.Signature != sig {
		t.Errorf("expected body signature %s, got %s", sig, wrapped.Signature)
	}

	canonical, _ := Canonical(env)
	if string(wrapped.Payload) != string(canonical) {
		t.Errorf("expected payload bytes to be the canonical envelope, got %s", wrapped.Payload)
	}

	mac := hmac.New(sha256.New, []byte("k"))
	mac.Write(canonical)
	if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
		t.Errorf("expected signature %s, got %s", want, sig)
	}
	if !Verify("k", wrapped.Payload, sig) {
		t.Error("expected signature to verify")
	}
}

func TestSign_AnyByteChangesSignature(t *testing.T) {
	body := []byte(`{"discord_user_id":"1","kind":"first"}`)
	base := Sign("k", body)
	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if Sign("k", mutated) == base {
			t.Fatalf("signature unchanged after flipping byte %d", i)
		}
	}
	if Sign("other", body) == base {
		t.Error("expected different secret to change signature")
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	body := []byte("{}")
	if Verify("k", body, "not-hex") {
		t.Error("expected non-hex signature to fail")
	}
	if Verify("k", body, Sign("other", body)) {
		t.Error("expected wrong-secret signature to fail")
	}
}
