package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// PatternStat summarizes how often one pattern matched across files.
type PatternStat struct {
	Name  string `json:"name"`
	Files int64  `json:"files"`
	Lines int64  `json:"lines"`
}

// Querier reads pattern statistics back from the graph.
type Querier struct {
	driver neo4j.DriverWithContext
}

// NewQuerier creates a new graph querier.
func NewQuerier(driver neo4j.DriverWithContext) *Querier {
	return &Querier{driver: driver}
}

// PatternStats returns every pattern of ruleset with its file and line
// counts, most frequent first. Patterns that never matched have zero counts.
func (q *Querier) PatternStats(ctx context.Context, ruleset string) ([]PatternStat, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (p:Pattern {ruleset: $ruleset})
		OPTIONAL MATCH (f:File)-[m:MATCHED]->(p)
		RETURN p.name AS name, count(f) AS files, coalesce(sum(m.count), 0) AS lines
		ORDER BY lines DESC, name
	`, map[string]any{"ruleset": ruleset})
	if err != nil {
		return nil, fmt.Errorf("query pattern stats: %w", err)
	}

	var stats []PatternStat
	for result.Next(ctx) {
		record := result.Record()
		name, _, err := neo4j.GetRecordValue[string](record, "name")
		if err != nil {
			return nil, fmt.Errorf("read name: %w", err)
		}
		files, _, _ := neo4j.GetRecordValue[int64](record, "files")
		lines, _, _ := neo4j.GetRecordValue[int64](record, "lines")
		stats = append(stats, PatternStat{Name: name, Files: files, Lines: lines})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read pattern stats: %w", err)
	}

	log.Debug().Str("ruleset", ruleset).Int("patterns", len(stats)).Msg("Graph query complete")
	return stats, nil
}

// FilesMatching maps each file in which pattern matched to its match
// count.
func (q *Querier) FilesMatching(ctx context.Context, ruleset, pattern string) (map[string]int64, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (f:File)-[m:MATCHED]->(:Pattern {ruleset: $ruleset, name: $pattern})
		RETURN f.path AS path, m.count AS count
	`, map[string]any{"ruleset": ruleset, "pattern": pattern})
	if err != nil {
		return nil, fmt.Errorf("query files matching %s: %w", pattern, err)
	}

	files := make(map[string]int64)
	for result.Next(ctx) {
		record := result.Record()
		path, _ := record.Get("path")
		count, _ := record.Get("count")
		n, _ := count.(int64)
		files[fmt.Sprintf("%v", path)] = n
	}
	return files, result.Err()
}
