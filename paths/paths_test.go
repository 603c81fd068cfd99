package paths_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tailored-agentic-units/persist/paths"
)

func TestCanonicalPaths(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "wallet", got: paths.Wallet("agent-42"), want: "wallets/agent-42.json"},
		{name: "agent state", got: paths.AgentState(7), want: "states/7_state.json"},
		{name: "negative user id", got: paths.AgentState(-100123), want: "states/-100123_state.json"},
		{name: "user agent", got: paths.UserAgent(7), want: "agents/users/7.json"},
		{name: "conversation", got: paths.Conversation(3, "alice", "bob"), want: "conversations/3_alice_bob.md"},
		{name: "conversation no participants", got: paths.Conversation(3), want: "conversations/3.md"},
		{name: "prompt", got: paths.Prompt("date_manager"), want: "prompts/date_manager.txt"},
		{name: "quarantine", got: paths.Quarantine("states/7_state.json"), want: "states/7_state.json.error"},
		{name: "registry", got: paths.TokenRegistry, want: "registry/tokens.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestWalletID(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{name: "agent-1.json", want: "agent-1", wantOK: true},
		{name: ".json", wantOK: false},
		{name: "agent-1.json.error", wantOK: false},
		{name: "notes.txt", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := paths.WalletID(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
