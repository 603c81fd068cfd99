package service

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/persist/paths"
	"github.com/tailored-agentic-units/persist/storage"
)

// DefaultMigrateNamespaces are copied when Migrate is given none.
var DefaultMigrateNamespaces = []string{paths.Wallets}

// Migrate copies every record directly under each namespace from src into
// the Service's backend, overwriting existing records. It returns the number
// of records copied per namespace.
func (s *Service) Migrate(ctx context.Context, src storage.Backend, namespaces ...string) (map[string]int, error) {
	if len(namespaces) == 0 {
		namespaces = DefaultMigrateNamespaces
	}

	counts := make(map[string]int, len(namespaces))
	for _, ns := range namespaces {
		copied, err := storage.Copy(ctx, src, s.manager.Backend(), ns)
		counts[ns] = len(copied)
		if err != nil {
			return counts, fmt.Errorf("failed to migrate %s: %w", ns, err)
		}
		s.logger.Info("migrated namespace", "namespace", ns, "records", len(copied))
	}
	return counts, nil
}
