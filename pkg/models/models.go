package models

import (
	"time"
)

// Curator represents a registered user allowed to modify the evidence store
type Curator struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InteractionEvidence is the display form of one MITAB evidence record
type InteractionEvidence struct {
	InteractorA      string   `json:"interactor_a"`
	InteractorB      string   `json:"interactor_b"`
	UniprotA         string   `json:"uniprot_a,omitempty"`
	UniprotB         string   `json:"uniprot_b,omitempty"`
	DetectionMethod  string   `json:"detection_method"`
	DetectionName    string   `json:"detection_name,omitempty"`
	FirstAuthor      string   `json:"first_author,omitempty"`
	Publication      string   `json:"publication"`
	TaxonA           []string `json:"taxon_a,omitempty"`
	TaxonB           []string `json:"taxon_b,omitempty"`
	InteractionTypes []string `json:"interaction_types,omitempty"`
	Source           string   `json:"source"`
	InteractionIDs   []string `json:"interaction_ids,omitempty"`
	Confidence       []string `json:"confidence,omitempty"`
}

// HomologyHit is one row of a candidate link as exchanged over the API
type HomologyHit struct {
	Low  []string `json:"low"`
	High []string `json:"high"`
}

// Link represents a candidate interaction between two query proteins
type Link struct {
	ID        string    `json:"id"`
	QueryLow  string    `json:"query_low"`
	QueryHigh string    `json:"query_high"`
	CreatedBy string    `json:"created_by,omitempty"`
	Depth     int       `json:"depth"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
}

// TopologyEdge is one edge of the interaction graph with its evidence count
type TopologyEdge struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Evidence int    `json:"evidence"`
}

// Topology is the node/edge view of the stored evidence
type Topology struct {
	Nodes      []string       `json:"nodes"`
	Edges      []TopologyEdge `json:"edges"`
	Components [][]string     `json:"components,omitempty"`
}

// SimilarHit is a stored homology hit close to a queried score profile
type SimilarHit struct {
	LinkID     string  `json:"link_id"`
	Row        int     `json:"row"`
	Side       string  `json:"side"`
	Template   string  `json:"template"`
	Similarity float64 `json:"similarity"`
}

// HitOutlier scores how far one hit's profile lies from the other hits of
// its link
type HitOutlier struct {
	Row      int     `json:"row"`
	Side     string  `json:"side"`
	Template string  `json:"template"`
	Score    float64 `json:"score"`
}
