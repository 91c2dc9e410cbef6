package randx

import (
	"strings"
	"testing"
)

func TestBase62(t *testing.T) {
	s, err := Base62(32)
	if err != nil {
		t.Fatalf("Base62: %v", err)
	}
	if len(s) != 32 {
		t.Fatalf("expected 32 characters, got %d", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(Base62Chars, r) {
			t.Fatalf("unexpected character %q in %q", r, s)
		}
	}
}

func TestDisplayName(t *testing.T) {
	name, err := DisplayName()
	if err != nil {
		t.Fatalf("DisplayName: %v", err)
	}
	if !strings.HasPrefix(name, "User_") || len(name) != len("User_")+DisplayNameRandomLength {
		t.Fatalf("unexpected display name %q", name)
	}
}

func TestIDsAreUnique(t *testing.T) {
	if AccountID() == AccountID() || MessageID() == MessageID() {
		t.Fatalf("expected distinct identifiers")
	}
}
