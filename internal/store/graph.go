package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgallion1/treeindex/internal/graphsync"
)

// Graph is the local graph collaborator backed by the graph_* tables of a Store.
type Graph struct {
	s *Store
}

// Graph returns the graph view over the same database.
func (s *Store) Graph() *Graph {
	return &Graph{s: s}
}

func (g *Graph) AddNode(ctx context.Context, n graphsync.Node) error {
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	props, err := json.Marshal(nonNil(n.Properties))
	if err != nil {
		return fmt.Errorf("marshal node properties: %w", err)
	}
	docID, _ := n.Properties["documentId"].(string)
	_, err = g.s.db.ExecContext(ctx,
		`INSERT INTO graph_nodes (id, label, document_id, properties, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET label = excluded.label, document_id = excluded.document_id,
		     properties = excluded.properties, updated_at = excluded.updated_at`,
		n.ID, n.Label, docID, string(props), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.ID, err)
	}
	return nil
}

func (g *Graph) AddEdge(ctx context.Context, e graphsync.Edge) error {
	if e.From == "" || e.To == "" || e.Type == "" {
		return fmt.Errorf("edge requires from, to and type")
	}
	props, err := json.Marshal(nonNil(e.Properties))
	if err != nil {
		return fmt.Errorf("marshal edge properties: %w", err)
	}
	_, err = g.s.db.ExecContext(ctx,
		`INSERT INTO graph_edges (from_id, to_id, edge_type, properties, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(from_id, to_id, edge_type) DO UPDATE SET properties = excluded.properties, updated_at = excluded.updated_at`,
		e.From, e.To, e.Type, string(props), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert edge %s-[%s]->%s: %w", e.From, e.Type, e.To, err)
	}
	return nil
}

// GraphCounts summarizes the local graph for one document.
type GraphCounts struct {
	Sections    int `json:"sections"`
	Containment int `json:"containment"`
	EntityLinks int `json:"entityLinks"`
}

// Counts reports how many sections and edges the local graph holds for documentID.
func (g *Graph) Counts(ctx context.Context, documentID string) (GraphCounts, error) {
	var c GraphCounts
	err := g.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM graph_nodes WHERE document_id = ? AND label = ?`,
		documentID, graphsync.LabelSection,
	).Scan(&c.Sections)
	if err != nil {
		return c, fmt.Errorf("count sections: %w", err)
	}
	rows, err := g.s.db.QueryContext(ctx,
		`SELECT e.edge_type, COUNT(*) FROM graph_edges e
		 JOIN graph_nodes n ON n.id = e.to_id
		 WHERE n.document_id = ? GROUP BY e.edge_type`, documentID)
	if err != nil {
		return c, fmt.Errorf("count edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return c, fmt.Errorf("scan edge count: %w", err)
		}
		switch typ {
		case graphsync.EdgeContains:
			c.Containment = n
		case graphsync.EdgeDerivedFrom:
			c.EntityLinks = n
		}
	}
	return c, rows.Err()
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
