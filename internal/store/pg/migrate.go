package pg

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	migrations "github.com/dropDatabas3/authkit/migrations/postgres"
)

// Migrate aplica las migraciones embebidas en orden lexicográfico.
// Las sentencias son idempotentes (IF NOT EXISTS), así que correr esto en
// cada arranque es seguro.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := migrations.FS.ReadDir(migrations.Dir)
	if err != nil {
		return fmt.Errorf("pg: read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := migrations.FS.ReadFile(path.Join(migrations.Dir, name))
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
	}
	return nil
}
