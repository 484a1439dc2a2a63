package storage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/metrics"
)

// Neo4jExporter writes annotated documents into Neo4j for corpus
// exploration: mentions become nodes, relations become statement nodes
// with one ARGUMENT edge per filler, chains become COREFERS edges. All
// node IDs are document-scoped.
type Neo4jExporter struct {
	driver  neo4j.Driver
	uri     string
	auth    neo4j.AuthToken
	session neo4j.Session
}

// NewNeo4jExporter creates a new Neo4j exporter instance
func NewNeo4jExporter(uri, username, password string) (*Neo4jExporter, error) {
	auth := neo4j.BasicAuth(username, password, "")
	driver, err := neo4j.NewDriver(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %v", err)
	}

	return &Neo4jExporter{
		driver: driver,
		uri:    uri,
		auth:   auth,
	}, nil
}

// Connect opens the working session.
func (e *Neo4jExporter) Connect(ctx context.Context) error {
	session := e.driver.NewSession(neo4j.SessionConfig{})
	e.session = session
	return nil
}

// Close releases the session and the driver.
func (e *Neo4jExporter) Close() error {
	if e.session != nil {
		e.session.Close()
	}
	if e.driver != nil {
		return e.driver.Close()
	}
	return nil
}

// ExportCorpus exports every document of a corpus.
func (e *Neo4jExporter) ExportCorpus(ctx context.Context, corpus *epop.Corpus) error {
	for _, doc := range corpus.Documents() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.ExportDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// ExportDocument writes one document's annotations in a single
// transaction. Relations are created innermost-first so a nested filler
// node always exists before the edge pointing at it.
func (e *Neo4jExporter) ExportDocument(ctx context.Context, doc *epop.Document) error {
	session := e.driver.NewSession(neo4j.SessionConfig{})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		for i := range doc.Entities {
			ent := &doc.Entities[i]
			params := map[string]interface{}{
				"id":      scopedID(doc.ID, ent.ID),
				"doc_id":  doc.ID,
				"type":    string(ent.Type),
				"mention": ent.Mention,
				"start":   ent.Span.Start,
				"end":     ent.Span.End,
			}
			if ent.Linked() {
				params["authority"] = string(ent.Linking.Authority)
				params["value"] = ent.Linking.Value
			} else {
				params["authority"] = ""
				params["value"] = ""
			}

			_, err := tx.Run(`
				CREATE (m:Mention {
					id: $id,
					doc_id: $doc_id,
					type: $type,
					mention: $mention,
					start: $start,
					end: $end,
					authority: $authority,
					value: $value,
					created_at: datetime()
				})
			`, params)
			if err != nil {
				return nil, err
			}
		}

		for _, relID := range doc.RelationOrder() {
			rel, _ := doc.RelationByID(relID)
			_, err := tx.Run(`
				CREATE (s:Statement {
					id: $id,
					doc_id: $doc_id,
					type: $type,
					modality: $modality,
					created_at: datetime()
				})
			`, map[string]interface{}{
				"id":       scopedID(doc.ID, rel.ID),
				"doc_id":   doc.ID,
				"type":     string(rel.Type),
				"modality": string(rel.Modality),
			})
			if err != nil {
				return nil, err
			}

			for _, arg := range rel.Arguments {
				query := `
					MATCH (s:Statement {id: $from})
					MATCH (f:Mention {id: $to})
					CREATE (s)-[r:ARGUMENT {role: $role}]->(f)
				`
				fillerID := arg.Entity
				if arg.IsRelation() {
					query = `
						MATCH (s:Statement {id: $from})
						MATCH (f:Statement {id: $to})
						CREATE (s)-[r:ARGUMENT {role: $role}]->(f)
					`
					fillerID = arg.Relation
				}
				_, err := tx.Run(query, map[string]interface{}{
					"from": scopedID(doc.ID, rel.ID),
					"to":   scopedID(doc.ID, fillerID),
					"role": arg.Role,
				})
				if err != nil {
					return nil, err
				}
			}
		}

		for i := range doc.Chains {
			ch := &doc.Chains[i]
			for j := 1; j < len(ch.Members); j++ {
				_, err := tx.Run(`
					MATCH (a:Mention {id: $from})
					MATCH (b:Mention {id: $to})
					CREATE (a)-[r:COREFERS {chain: $chain}]->(b)
				`, map[string]interface{}{
					"from":  scopedID(doc.ID, ch.Members[j-1]),
					"to":    scopedID(doc.ID, ch.Members[j]),
					"chain": scopedID(doc.ID, ch.ID),
				})
				if err != nil {
					return nil, err
				}
			}
		}

		return nil, nil
	})
	if err != nil {
		return err
	}

	metrics.DocumentsExported.Inc()
	return nil
}

func scopedID(docID, id string) string {
	return docID + "/" + id
}
