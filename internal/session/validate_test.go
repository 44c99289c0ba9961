package session

import (
	"testing"

	"github.com/avitalVissoky/ChatLibrary/internal/config"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "alice", false},
		{"valid mixed case", "demoUser", false},
		{"valid with numbers", "user123", false},
		{"valid with hyphen", "my-user", false},
		{"valid with dot", "a.b", false},
		{"valid max length", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"space", "my user", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"special chars", "my@user", true},
		{"slash", "my/user", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeUserID(t *testing.T) {
	got, err := NormalizeUserID("  alice \n")
	if err != nil || got != "alice" {
		t.Errorf("NormalizeUserID = %q, %v, want alice", got, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Error("blank input accepted")
	}
}

func TestResolve(t *testing.T) {
	cfg := &config.Config{DefaultUser: "bob"}
	tests := []struct {
		name string
		flag string
		cfg  *config.Config
		want string
	}{
		{"flag wins", "alice", cfg, "alice"},
		{"config default", "", cfg, "bob"},
		{"nothing", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.flag, tt.cfg); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
