package manager

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/persist/paths"
)

// WalletCredential is the exported data of an agent's wallet.
type WalletCredential struct {
	WalletID  string `json:"wallet_id"`
	Seed      string `json:"seed"`
	NetworkID string `json:"network_id"`
}

// SaveUserAgent persists the agent profile of userID. profile must encode
// to JSON.
func (m *Manager) SaveUserAgent(ctx context.Context, userID int64, profile any) error {
	if err := m.backend.WriteJSON(ctx, paths.UserAgent(userID), profile); err != nil {
		return fmt.Errorf("save user agent %d: %w", userID, err)
	}
	return nil
}

// LoadUserAgent decodes the agent profile of userID into v. It reports
// false when no profile was saved.
func (m *Manager) LoadUserAgent(ctx context.Context, userID int64, v any) (bool, error) {
	found, err := m.loadJSON(ctx, paths.UserAgent(userID), v)
	if err != nil {
		return false, fmt.Errorf("load user agent %d: %w", userID, err)
	}
	return found, nil
}

// SaveWallet persists the wallet credential of agentID.
func (m *Manager) SaveWallet(ctx context.Context, agentID string, w WalletCredential) error {
	if err := m.backend.WriteJSON(ctx, paths.Wallet(agentID), w); err != nil {
		return fmt.Errorf("save wallet %s: %w", agentID, err)
	}
	return nil
}

// LoadWallet returns the wallet credential of agentID, reporting false when
// none was saved.
func (m *Manager) LoadWallet(ctx context.Context, agentID string) (WalletCredential, bool, error) {
	var w WalletCredential
	found, err := m.loadJSON(ctx, paths.Wallet(agentID), &w)
	if err != nil {
		return WalletCredential{}, false, fmt.Errorf("load wallet %s: %w", agentID, err)
	}
	return w, found, nil
}

// DeleteWallet removes the wallet credential of agentID. Missing wallets
// are ignored.
func (m *Manager) DeleteWallet(ctx context.Context, agentID string) error {
	if err := m.backend.Delete(ctx, paths.Wallet(agentID)); err != nil {
		return fmt.Errorf("delete wallet %s: %w", agentID, err)
	}
	return nil
}

// ListWallets returns the ids of all agents with a saved wallet, sorted.
func (m *Manager) ListWallets(ctx context.Context) ([]string, error) {
	names, err := m.backend.ListDir(ctx, paths.Wallets)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := paths.WalletID(name); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SaveConversation writes the transcript of conversation seq between
// participants, replacing any previous transcript.
func (m *Manager) SaveConversation(ctx context.Context, seq int64, participants []string, content string) error {
	path := paths.Conversation(seq, participants...)
	if err := m.backend.WriteText(ctx, path, content); err != nil {
		return fmt.Errorf("save conversation %s: %w", path, err)
	}
	return nil
}

// LoadConversation returns the transcript of conversation seq between
// participants, reporting false when none was saved.
func (m *Manager) LoadConversation(ctx context.Context, seq int64, participants []string) (string, bool, error) {
	path := paths.Conversation(seq, participants...)
	s, found, err := m.loadText(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("load conversation %s: %w", path, err)
	}
	return s, found, nil
}

// LoadPrompt returns the named prompt template, reporting false when it
// does not exist. Prompt templates are provisioned out of band and never
// written through the Manager.
func (m *Manager) LoadPrompt(ctx context.Context, name string) (string, bool, error) {
	s, found, err := m.loadText(ctx, paths.Prompt(name))
	if err != nil {
		return "", false, fmt.Errorf("load prompt %s: %w", name, err)
	}
	return s, found, nil
}

// SaveTokenRegistry persists the full token registry document.
func (m *Manager) SaveTokenRegistry(ctx context.Context, doc any) error {
	if err := m.backend.WriteJSON(ctx, paths.TokenRegistry, doc); err != nil {
		return fmt.Errorf("save token registry: %w", err)
	}
	return nil
}

// LoadTokenRegistry decodes the token registry document into v, reporting
// false when no registry was saved.
func (m *Manager) LoadTokenRegistry(ctx context.Context, v any) (bool, error) {
	found, err := m.loadJSON(ctx, paths.TokenRegistry, v)
	if err != nil {
		return false, fmt.Errorf("load token registry: %w", err)
	}
	return found, nil
}
