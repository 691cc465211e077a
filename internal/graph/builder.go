package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"lineparse/internal/parsers"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Builder records which patterns matched in which files:
//
//	(:File {path, kind})-[:MATCHED {count}]->(:Pattern {ruleset, name})
type Builder struct {
	driver neo4j.DriverWithContext
}

// NewBuilder creates a new graph builder.
func NewBuilder(driver neo4j.DriverWithContext) *Builder {
	return &Builder{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (b *Builder) EnsureSchema(ctx context.Context) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (f:File) REQUIRE f.path IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Pattern) REQUIRE (p.ruleset, p.name) IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// DeclarePatterns makes sure a Pattern node exists for every name, so
// patterns that never matched still show up in queries.
func (b *Builder) DeclarePatterns(ctx context.Context, ruleset string, names []string) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		UNWIND $names AS name
		MERGE (:Pattern {ruleset: $ruleset, name: name})
	`, map[string]any{
		"ruleset": ruleset,
		"names":   toAny(names),
	})
	if err != nil {
		return fmt.Errorf("declare patterns: %w", err)
	}
	return nil
}

// LinkFile replaces the MATCHED edges of one file with its current hits.
func (b *Builder) LinkFile(ctx context.Context, ruleset string, res *parsers.Result) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (f:File {path: $path})
		SET f.kind = $kind, f.records = $records
		WITH f
		OPTIONAL MATCH (f)-[old:MATCHED]->()
		DELETE old
		WITH DISTINCT f
		UNWIND $hits AS hit
		MERGE (p:Pattern {ruleset: $ruleset, name: hit.pattern})
		MERGE (f)-[m:MATCHED]->(p)
		SET m.count = hit.count
	`, linkParams(ruleset, res))
	if err != nil {
		return fmt.Errorf("link file %s: %w", res.FilePath, err)
	}
	return nil
}

// linkParams builds the LinkFile parameters. Hits are sorted by pattern
// name.
func linkParams(ruleset string, res *parsers.Result) map[string]any {
	counts := res.Hits()
	hits := make([]any, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		hits = append(hits, map[string]any{
			"pattern": name,
			"count":   int64(counts[name]),
		})
	}
	return map[string]any{
		"path":    res.FilePath,
		"kind":    res.Kind,
		"records": int64(len(res.Records)),
		"ruleset": ruleset,
		"hits":    hits,
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
