package lead

import (
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	p := DefaultFieldPolicy()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"555-123-4567", "5551234567", true},
		{"(555) 123-4567", "5551234567", true},
		{"555.123.4567", "5551234567", true},
		{"+1 555 123 4567", "+15551234567", true},
		{"5551234", "5551234", true},
		{"abc", "", false},
		{"123", "", false},
		{"", "", false},
		{"12345678901234567890", "", false},
	}

	for _, tt := range tests {
		got, ok := p.NormalizePhone(tt.in)
		if ok != tt.wantOK {
			t.Errorf("NormalizePhone(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFill_CombinedTurn(t *testing.T) {
	p := DefaultFieldPolicy()
	required := []string{"name", "phone", "reason"}
	collected := make(map[string]string)

	filled := p.Fill("Jane Doe, 555-123-4567", required, collected, 0)

	if len(filled) != 2 {
		t.Fatalf("Expected 2 fields filled, got %d (%v)", len(filled), filled)
	}
	if collected["name"] != "Jane Doe" {
		t.Errorf("Expected name 'Jane Doe', got %q", collected["name"])
	}
	if collected["phone"] != "5551234567" {
		t.Errorf("Expected phone '5551234567', got %q", collected["phone"])
	}
}

func TestFill_PhoneLeadInStripped(t *testing.T) {
	p := DefaultFieldPolicy()
	required := []string{"name", "phone", "reason"}
	collected := make(map[string]string)

	filled := p.Fill("my number is 555-123-4567", required, collected, 0)

	if len(filled) != 1 || filled[0] != "phone" {
		t.Fatalf("Expected only phone filled, got %v", filled)
	}
	if _, ok := collected["name"]; ok {
		t.Errorf("Filler text must not fill the name field, got %q", collected["name"])
	}
}

func TestFill_NeverOverwrites(t *testing.T) {
	p := DefaultFieldPolicy()
	required := []string{"name", "phone", "reason"}
	collected := map[string]string{"name": "Jane Doe", "phone": "5551234567"}

	p.Fill("John Smith, 999-888-7777", required, collected, 2)

	if collected["name"] != "Jane Doe" {
		t.Errorf("Expected name preserved, got %q", collected["name"])
	}
	if collected["phone"] != "5551234567" {
		t.Errorf("Expected phone preserved, got %q", collected["phone"])
	}
}

func TestFill_InvalidPhoneFillsNothing(t *testing.T) {
	p := DefaultFieldPolicy()
	required := []string{"phone"}
	collected := make(map[string]string)

	filled := p.Fill("abc", required, collected, 0)

	if len(filled) != 0 {
		t.Errorf("Expected nothing filled, got %v", filled)
	}
	if len(collected) != 0 {
		t.Errorf("Expected collected to stay empty, got %v", collected)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf("phone") != KindPhone {
		t.Error("Expected 'phone' to be a phone field")
	}
	if KindOf("callback_phone") != KindPhone {
		t.Error("Expected 'callback_phone' to be a phone field")
	}
	if KindOf("name") != KindText {
		t.Error("Expected 'name' to be a text field")
	}
	if KindOf("reason") != KindText {
		t.Error("Expected 'reason' to be a text field")
	}
}
