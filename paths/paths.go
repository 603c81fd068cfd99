// Package paths builds the canonical record paths for every persisted agent
// entity. The functions are pure and backend-independent.
package paths

import (
	"strconv"
	"strings"
)

// Top-level namespaces of the record hierarchy.
const (
	Wallets       = "wallets"
	States        = "states"
	UserAgents    = "agents/users"
	Conversations = "conversations"
	Prompts       = "prompts"
	TokenRegistry = "registry/tokens.json"
)

// QuarantineSuffix marks the diagnostic copy of a record that failed to decode.
const QuarantineSuffix = ".error"

// Wallet returns the path of an agent's wallet credential.
func Wallet(agentID string) string {
	return Wallets + "/" + agentID + ".json"
}

// AgentState returns the path of a user's persisted conversational state.
func AgentState(userID int64) string {
	return States + "/" + strconv.FormatInt(userID, 10) + "_state.json"
}

// UserAgent returns the path of a user's agent profile.
func UserAgent(userID int64) string {
	return UserAgents + "/" + strconv.FormatInt(userID, 10) + ".json"
}

// Conversation returns the transcript path for conversation seq between the
// given participants, in the order given.
func Conversation(seq int64, participants ...string) string {
	var b strings.Builder
	b.WriteString(Conversations)
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(seq, 10))
	for _, p := range participants {
		b.WriteByte('_')
		b.WriteString(p)
	}
	b.WriteString(".md")
	return b.String()
}

// Prompt returns the path of a named prompt template.
func Prompt(name string) string {
	return Prompts + "/" + name + ".txt"
}

// Quarantine returns the sibling path holding the raw bytes of a record that
// could not be decoded.
func Quarantine(path string) string {
	return path + QuarantineSuffix
}

// WalletID extracts the agent id from a wallet record name as returned by
// listing the Wallets namespace. It reports false for names that are not
// wallet records.
func WalletID(name string) (string, bool) {
	id, ok := strings.CutSuffix(name, ".json")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
