package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/todmy/interolog/internal/interolog"
)

// NewServer creates an MCP server with every interolog tool registered.
func NewServer(svc *interolog.Service) *mcp.Server {
	it := &InterologTools{Service: svc}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "interolog-mcp",
		Version: "0.1.0",
	}, nil)

	// Evidence tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "load_mitab",
		Description: "Load PSI-MITAB interaction evidence from text or a local file; duplicates are ignored",
	}, it.LoadMITAB)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_pair",
		Description: "Get the evidence stored for two interactors, in either order",
	}, it.GetPair)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_partners",
		Description: "Get the interaction partners of one interactor, or of all interactors",
	}, it.GetPartners)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_topology",
		Description: "Get the interaction graph over UniProt accessions with its connected components",
	}, it.GetTopology)

	// Link tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_link",
		Description: "Create a candidate interaction between two query proteins from pairs of homology hits",
	}, it.CreateLink)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "trim_link",
		Description: "Reject the hits and evidence of a link that fail the given thresholds and filters",
	}, it.TrimLink)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_link",
		Description: "Get a candidate link with its valid hits, evidence and summary",
	}, it.GetLink)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_links",
		Description: "List every candidate link",
	}, it.ListLinks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "similar_hits",
		Description: "Find hits of other links whose similarity, identity, coverage and e-value profile is close to a given hit",
	}, it.SimilarHits)

	return srv
}
