package types

import (
	"testing"
	"time"
)

func TestVoiceValid(t *testing.T) {
	t.Parallel()

	for _, v := range Voices {
		if !v.Valid() {
			t.Fatalf("voice %q should be valid", v)
		}
	}
	// fable, onyx, and nova are TTS-only voices the realtime transport rejects.
	for _, v := range []Voice{"fable", "onyx", "nova", ""} {
		if v.Valid() {
			t.Fatalf("voice %q should be invalid", v)
		}
	}
}

func TestCredentialRecordExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rec := CredentialRecord{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)}
	if rec.Expired(now) {
		t.Fatal("future expiry should not be expired")
	}
	if !rec.Expired(now.Add(time.Hour)) {
		t.Fatal("record is expired exactly at ExpiresAt")
	}
	if !(CredentialRecord{ExpiresAt: now.Add(time.Hour)}).Expired(now) {
		t.Fatal("record without an access token is unusable")
	}
}

func TestToolResultShape(t *testing.T) {
	t.Parallel()

	res := AuthRequiredResult("session expired")
	if !res.IsError() || !res.RequiresAuth() {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.ErrorMessage() != "session expired" {
		t.Fatalf("unexpected message: %q", res.ErrorMessage())
	}

	plain := ErrorResult("boom")
	if plain.RequiresAuth() {
		t.Fatal("plain errors must not request re-auth")
	}

	ok := ToolResult{"success": true}
	if ok.IsError() {
		t.Fatal("success result misread as error")
	}
}

func TestScenarioGuardrailName(t *testing.T) {
	t.Parallel()

	s := Scenario{Key: "retail", DisplayName: "Snowy Peak Boards"}
	if got := s.GuardrailName(); got != "Snowy Peak Boards" {
		t.Fatalf("got %q", got)
	}
	s.GuardrailCompanyName = "NewTelco"
	if got := s.GuardrailName(); got != "NewTelco" {
		t.Fatalf("got %q", got)
	}
}
