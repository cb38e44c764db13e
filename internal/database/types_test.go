package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestDefaultProfile(t *testing.T) {
	now := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	p := DefaultProfile(&Identity{ID: "u-1", Email: "priya.sharma@example.com"}, now)

	if p.ID != "u-1" {
		t.Errorf("expected id u-1, got %q", p.ID)
	}
	if p.Name != "priya.sharma" {
		t.Errorf("expected name from local part, got %q", p.Name)
	}
	if !p.Eligible || p.Status != StatusVerified {
		t.Errorf("expected eligible verified profile, got %+v", p)
	}
	if !p.VerifiedAt.Equal(now) {
		t.Errorf("expected verifiedAt %v, got %v", now, p.VerifiedAt)
	}
	if p.Face != nil {
		t.Error("default profile must not carry face data")
	}
}

func TestUserProfile_Descriptor(t *testing.T) {
	var nilProfile *UserProfile
	if nilProfile.Descriptor() != "" {
		t.Error("nil profile should have empty descriptor")
	}
	if (&UserProfile{}).Descriptor() != "" {
		t.Error("profile without face should have empty descriptor")
	}
	p := &UserProfile{Face: &FaceRecord{Descriptor: "oval"}}
	if p.Descriptor() != "oval" {
		t.Errorf("expected oval, got %q", p.Descriptor())
	}
}

func TestUserProfile_JSONFieldNames(t *testing.T) {
	p := UserProfile{ID: "u-1", Eligible: true, Face: &FaceRecord{Descriptor: "d"}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"isFemale":true`, `"faceData":`, `"embedding":"d"`, `"verificationStatus"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in %s", field, data)
		}
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now}
	if !s.Expired(now) {
		t.Error("session expiring now should be expired")
	}
	if s.Expired(now.Add(-time.Second)) {
		t.Error("session should be valid before expiry")
	}
}

func TestIsAuthError(t *testing.T) {
	for _, err := range []error{ErrInvalidCredentials, ErrEmailTaken, fmt.Errorf("sign up: %w", ErrInvalidInput)} {
		if !IsAuthError(err) {
			t.Errorf("expected %v to be an auth error", err)
		}
	}
	if IsAuthError(errors.New("connection refused")) || IsAuthError(ErrProfileExists) {
		t.Error("unexpected auth error classification")
	}
}

func TestGetters_NotInitialized(t *testing.T) {
	if IsInitialized() {
		t.Skip("backend registered by another test")
	}
	if _, err := GetProfileWriter(t.Context()); err == nil {
		t.Error("expected error before registration")
	}
	if _, err := GetIdentityProvider(t.Context()); err == nil {
		t.Error("expected error before registration")
	}
	if _, err := GetSessionStore(t.Context()); err == nil {
		t.Error("expected error before registration")
	}
}
