package epop

import (
	"fmt"
	"sort"
)

// Document is one news item with its annotation set. Index must run before
// lookups; after that the document is treated as immutable.
type Document struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Entities  []Entity   `json:"entities"`
	Chains    []Chain    `json:"chains,omitempty"`
	Relations []Relation `json:"relations,omitempty"`

	entityByID    map[string]*Entity
	relationByID  map[string]*Relation
	chainByMember map[string]*Chain
	relationOrder []string // innermost-first along the nesting graph
}

// EntityByID retrieves a mention by ID.
func (d *Document) EntityByID(id string) (*Entity, bool) {
	e, ok := d.entityByID[id]
	return e, ok
}

// RelationByID retrieves a relation by ID.
func (d *Document) RelationByID(id string) (*Relation, bool) {
	r, ok := d.relationByID[id]
	return r, ok
}

// ChainOf returns the coreference chain containing the given mention, if any.
// Mentions outside every chain are implicit singletons.
func (d *Document) ChainOf(entityID string) (*Chain, bool) {
	c, ok := d.chainByMember[entityID]
	return c, ok
}

// Coreferent reports whether two mentions refer to the same thing: either
// the same mention or two members of one chain.
func (d *Document) Coreferent(a, b string) bool {
	if a == b {
		return true
	}
	ca, ok := d.chainByMember[a]
	if !ok {
		return false
	}
	cb, ok := d.chainByMember[b]
	return ok && ca == cb
}

// RelationOrder returns relation IDs innermost-first: a relation appears
// after every relation it references as an argument.
func (d *Document) RelationOrder() []string { return d.relationOrder }

// Corpus is an ID-addressable collection of documents in load order.
type Corpus struct {
	docs []*Document
	byID map[string]*Document
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{byID: make(map[string]*Document)}
}

// Add appends a document, rejecting duplicate IDs.
func (c *Corpus) Add(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("cannot add nil document")
	}
	if _, exists := c.byID[doc.ID]; exists {
		return fmt.Errorf("duplicate document ID: %s", doc.ID)
	}
	c.docs = append(c.docs, doc)
	c.byID[doc.ID] = doc
	return nil
}

// Get retrieves a document by ID.
func (c *Corpus) Get(id string) (*Document, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Documents returns the documents in load order.
func (c *Corpus) Documents() []*Document { return c.docs }

// IDs returns the document IDs in sorted order.
func (c *Corpus) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }
