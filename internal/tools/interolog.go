// Package tools exposes the interolog service as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/todmy/interolog/internal/homology"
	"github.com/todmy/interolog/internal/interolog"
	"github.com/todmy/interolog/pkg/models"
)

// InterologTools holds references needed by the tool handlers.
type InterologTools struct {
	Service *interolog.Service
}

// --- Input types ---

type LoadMITABInput struct {
	Text string `json:"text,omitempty" jsonschema:"PSI-MITAB 2.5 lines, tab separated"`
	Path string `json:"path,omitempty" jsonschema:"Path of a local PSI-MITAB file, used when text is empty"`
}

type GetPairInput struct {
	A string `json:"a" jsonschema:"First interactor identifier"`
	B string `json:"b" jsonschema:"Second interactor identifier"`
}

type GetPartnersInput struct {
	ID string `json:"id,omitempty" jsonschema:"Interactor identifier; all interactors when empty"`
}

type CreateLinkInput struct {
	QueryLow  string               `json:"query_low" jsonschema:"First query protein"`
	QueryHigh string               `json:"query_high" jsonschema:"Second query protein"`
	Hits      []models.HomologyHit `json:"hits" jsonschema:"Homology hit pairs; each side is the 10-field hit vector (template, template length, query start, query end, template start, template end, similar, identical, e-value, query length)"`
}

type TrimLinkInput struct {
	LinkID           string   `json:"link_id" jsonschema:"Link identifier"`
	SimilarityMin    *float64 `json:"similarity_min,omitempty" jsonschema:"Minimum similarity percentage"`
	IdentityMin      *float64 `json:"identity_min,omitempty" jsonschema:"Minimum identity percentage"`
	CoverageMin      *float64 `json:"coverage_min,omitempty" jsonschema:"Minimum query coverage percentage"`
	EValueMax        *float64 `json:"evalue_max,omitempty" jsonschema:"Maximum e-value (default 1)"`
	DetectionMethods []string `json:"detection_methods,omitempty" jsonschema:"Accepted PSI-MI detection method codes, e.g. MI:0018"`
	Taxons           []string `json:"taxons,omitempty" jsonschema:"Accepted NCBI taxon ids"`
	TaxonMode        string   `json:"taxon_mode,omitempty" jsonschema:"every or some: whether every or at least one taxon of a record must be accepted"`
	Compact          bool     `json:"compact,omitempty" jsonschema:"Remove rejected rows"`
	Explain          bool     `json:"explain,omitempty" jsonschema:"Report the failed criteria of every row"`
	Dedupe           bool     `json:"dedupe,omitempty" jsonschema:"Reject rows repeating an earlier row"`
}

type LinkInput struct {
	LinkID string `json:"link_id" jsonschema:"Link identifier"`
}

type SimilarHitsInput struct {
	LinkID    string  `json:"link_id" jsonschema:"Link identifier"`
	Row       int     `json:"row" jsonschema:"Row index in the link snapshot"`
	Side      string  `json:"side,omitempty" jsonschema:"low or high (default low)"`
	Limit     int     `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Minimum cosine similarity"`
}

// --- Handlers ---

func (t *InterologTools) LoadMITAB(ctx context.Context, _ *mcp.CallToolRequest, input LoadMITABInput) (*mcp.CallToolResult, any, error) {
	var r io.Reader
	source := "mcp"
	switch {
	case input.Text != "":
		r = strings.NewReader(input.Text)
	case input.Path != "":
		f, err := os.Open(input.Path)
		if err != nil {
			return toolError("Failed to open %s: %v", input.Path, err), nil, nil
		}
		defer f.Close()
		r = f
		source = filepath.Base(input.Path)
	default:
		return toolError("Either text or path is required"), nil, nil
	}

	result, err := t.Service.Ingest(ctx, r, source)
	if err != nil {
		return toolError("Failed to load MITAB: %v", err), nil, nil
	}
	return toolJSON(result)
}

func (t *InterologTools) GetPair(_ context.Context, _ *mcp.CallToolRequest, input GetPairInput) (*mcp.CallToolResult, any, error) {
	if input.A == "" || input.B == "" {
		return toolError("Both a and b are required"), nil, nil
	}
	return toolJSON(t.Service.EvidencePair(input.A, input.B))
}

func (t *InterologTools) GetPartners(_ context.Context, _ *mcp.CallToolRequest, input GetPartnersInput) (*mcp.CallToolResult, any, error) {
	partners := t.Service.Partners()
	if input.ID == "" {
		return toolJSON(partners)
	}
	list, ok := partners[input.ID]
	if !ok {
		list = []string{}
	}
	return toolJSON(list)
}

func (t *InterologTools) GetTopology(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Service.Topology())
}

func (t *InterologTools) CreateLink(ctx context.Context, _ *mcp.CallToolRequest, input CreateLinkInput) (*mcp.CallToolResult, any, error) {
	if input.QueryLow == "" || input.QueryHigh == "" {
		return toolError("query_low and query_high are required"), nil, nil
	}

	view, err := t.Service.CreateLink(ctx, interolog.LinkQuery{
		QueryLow:  input.QueryLow,
		QueryHigh: input.QueryHigh,
		Hits:      input.Hits,
	})
	if err != nil {
		return serviceError("create link", err), nil, nil
	}
	return toolJSON(view)
}

func (t *InterologTools) TrimLink(ctx context.Context, _ *mcp.CallToolRequest, input TrimLinkInput) (*mcp.CallToolResult, any, error) {
	id, errResult := parseLinkID(input.LinkID)
	if errResult != nil {
		return errResult, nil, nil
	}

	opts, err := input.options(t.Service.DefaultTrimOptions())
	if err != nil {
		return toolError("Invalid trim options: %v", err), nil, nil
	}

	view, err := t.Service.TrimLink(ctx, id, opts)
	if err != nil {
		return serviceError("trim link", err), nil, nil
	}
	return toolJSON(view)
}

func (in TrimLinkInput) options(opts homology.TrimOptions) (homology.TrimOptions, error) {
	if in.SimilarityMin != nil {
		opts.SimilarityMin = *in.SimilarityMin
	}
	if in.IdentityMin != nil {
		opts.IdentityMin = *in.IdentityMin
	}
	if in.CoverageMin != nil {
		opts.CoverageMin = *in.CoverageMin
	}
	if in.EValueMax != nil {
		opts.EValueMax = *in.EValueMax
	}
	if in.TaxonMode != "" {
		mode, err := homology.ParseTaxonMode(in.TaxonMode)
		if err != nil {
			return opts, err
		}
		opts.TaxonMode = mode
	}
	opts.DetectionMethods = in.DetectionMethods
	opts.Taxons = in.Taxons
	opts.Compact = in.Compact
	opts.Explain = in.Explain
	opts.Dedupe = in.Dedupe
	return opts, nil
}

func (t *InterologTools) GetLink(ctx context.Context, _ *mcp.CallToolRequest, input LinkInput) (*mcp.CallToolResult, any, error) {
	id, errResult := parseLinkID(input.LinkID)
	if errResult != nil {
		return errResult, nil, nil
	}

	view, err := t.Service.GetLink(ctx, id)
	if err != nil {
		return serviceError("get link", err), nil, nil
	}
	return toolJSON(view)
}

func (t *InterologTools) ListLinks(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Service.ListLinks())
}

func (t *InterologTools) SimilarHits(ctx context.Context, _ *mcp.CallToolRequest, input SimilarHitsInput) (*mcp.CallToolResult, any, error) {
	id, errResult := parseLinkID(input.LinkID)
	if errResult != nil {
		return errResult, nil, nil
	}

	side := input.Side
	if side == "" {
		side = interolog.SideLow
	}

	hits, err := t.Service.SimilarHits(ctx, id, input.Row, side, input.Limit, input.Threshold)
	if err != nil {
		return serviceError("find similar hits", err), nil, nil
	}
	return toolJSON(hits)
}

// --- Helpers ---

func parseLinkID(s string) (uuid.UUID, *mcp.CallToolResult) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, toolError("Invalid link_id %q", s)
	}
	return id, nil
}

func serviceError(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, interolog.ErrLinkNotFound) {
		return toolError("Link not found")
	}
	return toolError("Failed to %s: %v", action, err)
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
