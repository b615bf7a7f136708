package api

import (
	"strings"
	"testing"
)

func TestNewChatID(t *testing.T) {
	id := NewChatID()
	if !ValidateChatID(id) {
		t.Errorf("NewChatID() = %q, want valid chat ID", id)
	}
	if NewChatID() == id {
		t.Error("NewChatID() returned the same ID twice")
	}
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()
	if !ValidateMessageID(id) {
		t.Errorf("NewMessageID() = %q, want valid message ID", id)
	}
}

func TestValidateChatID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"uuid", "3f2b8c1e-9d4a-4b6f-8e2a-1c5d7f9a0b3c", true},
		{"client chosen", "my_chat-01", true},
		{"single char", "a", true},
		{"max length", strings.Repeat("x", 128), true},
		{"too long", strings.Repeat("x", 129), false},
		{"empty", "", false},
		{"slash", "a/b", false},
		{"space", "a b", false},
		{"dot", "a.b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateChatID(tt.id); got != tt.want {
				t.Errorf("ValidateChatID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidateMessageID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "msg_abcdefghijklmnopqrstuvwx", true},
		{"wrong prefix", "resp_abcdefghijklmnopqrstuvwx", false},
		{"too short", "msg_abc", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMessageID(tt.id); got != tt.want {
				t.Errorf("ValidateMessageID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
