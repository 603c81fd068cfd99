package tokens

import (
	"context"
	"fmt"
)

// Attribute is one trait of an NFT metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// NFTMetadata is the marketplace-facing view of a token.
type NFTMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// NFT builds the marketplace view of token id. A token unknown to this
// process triggers one reload from the store, so tokens registered by
// another process become visible. It reports false if the token still
// does not exist.
func (r *Registry) NFT(ctx context.Context, id int) (NFTMetadata, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.tokens[id]
	if !ok {
		if err := r.load(ctx); err != nil {
			return NFTMetadata{}, false, err
		}
		if meta, ok = r.tokens[id]; !ok {
			return NFTMetadata{}, false, nil
		}
	}
	return nftView(meta), true, nil
}

func nftView(meta Metadata) NFTMetadata {
	var user, match string
	if len(meta.Participants) > 0 {
		user = meta.Participants[0]
	}
	if len(meta.Participants) > 1 {
		match = meta.Participants[1]
	}

	return NFTMetadata{
		Name:        fmt.Sprintf("Date Memory #%d", meta.TokenID),
		Description: fmt.Sprintf("Taken during a date between %s and %s", user, match),
		Image:       meta.ImageURL,
		Attributes: []Attribute{
			{TraitType: "User", Value: user},
			{TraitType: "Match", Value: match},
		},
	}
}
