// Package interolog maps interactions between query proteins onto known
// interactions between their homologs.
package interolog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/todmy/interolog/internal/evidence"
	"github.com/todmy/interolog/internal/homology"
	"github.com/todmy/interolog/internal/interaction"
	"github.com/todmy/interolog/internal/mitab"
	"github.com/todmy/interolog/internal/storage"
	"github.com/todmy/interolog/pkg/models"
)

var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrNoHits        = errors.New("link has no homology hits")
	ErrUnknownFormat = errors.New("unknown dump format")
)

// ServiceConfig holds service configuration. Both repositories are
// optional; without them the service keeps everything in memory.
type ServiceConfig struct {
	Evidence  storage.EvidenceRepository
	Links     storage.LinkRepository
	TaxonMode homology.TaxonMode
	Logger    *log.Logger
}

// Service owns the interaction store and the candidate links built on it.
// It is safe for concurrent use.
type Service struct {
	mu    sync.RWMutex
	store *interaction.Store
	links map[uuid.UUID]*Link

	evidenceRepo storage.EvidenceRepository
	linkRepo     storage.LinkRepository
	taxonMode    homology.TaxonMode
	logger       *log.Logger
}

// NewService creates a new interolog service
func NewService(config ServiceConfig) *Service {
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "interolog: ", log.LstdFlags)
	}

	return &Service{
		store:        interaction.NewStore(),
		links:        make(map[uuid.UUID]*Link),
		evidenceRepo: config.Evidence,
		linkRepo:     config.Links,
		taxonMode:    config.TaxonMode,
		logger:       logger,
	}
}

// IngestResult reports the outcome of one Ingest call.
type IngestResult struct {
	Source    string                             `json:"source"`
	Parsed    int                                `json:"parsed"`
	Added     int                                `json:"added"`
	Errors    []string                           `json:"errors,omitempty"`
	Conflicts []*interaction.PublicationConflict `json:"conflicts,omitempty"`
}

// Ingest parses MITAB text from r and adds every new record to the store.
// Malformed lines and publication conflicts are reported, never fatal.
// source labels the upload in logs and in the result.
func (s *Service) Ingest(ctx context.Context, r io.Reader, source string) (IngestResult, error) {
	records, failures, err := mitab.ParseReader(ctx, r)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{Source: source, Parsed: len(records)}
	for _, f := range failures {
		result.Errors = append(result.Errors, f.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Publications are policed against the live registry while the batch
	// is staged; the batch is then merged in one step.
	staged := interaction.NewStore()
	for _, rec := range records {
		if ok, conflict := s.store.CheckPublication(rec); !ok {
			s.logger.Printf("%s: %v", source, conflict)
			result.Conflicts = append(result.Conflicts, conflict)
		}
		staged.Add(rec)
	}

	var added []evidence.Record
	for rec := range staged.All() {
		if !s.store.Contains(rec) {
			added = append(added, rec)
		}
	}
	result.Added = s.store.Merge(staged)

	if s.evidenceRepo != nil && len(added) > 0 {
		if err := s.evidenceRepo.SaveEvidence(ctx, added); err != nil {
			return result, fmt.Errorf("persist evidence: %w", err)
		}
	}

	s.logger.Printf("%s: parsed %d records, added %d, %d malformed lines", source, result.Parsed, result.Added, len(failures))
	return result, nil
}

// RestoreResult reports what Restore loaded.
type RestoreResult struct {
	Evidence int `json:"evidence"`
	Links    int `json:"links"`
}

// Restore reloads persisted evidence and links into memory. Restored links
// get their evidence groups from the store.
func (s *Service) Restore(ctx context.Context) (RestoreResult, error) {
	var result RestoreResult

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evidenceRepo != nil {
		lines, err := s.evidenceRepo.LoadEvidence(ctx)
		if err != nil {
			return result, fmt.Errorf("load evidence: %w", err)
		}
		for i, line := range lines {
			rec, err := mitab.ParseLine(line)
			if err != nil {
				s.logger.Printf("restore: skipping stored line %d: %v", i+1, err)
				continue
			}
			s.store.CheckPublication(rec)
			result.Evidence += s.store.Add(rec)
		}
	}

	if s.linkRepo != nil {
		stored, err := s.linkRepo.ListLinks(ctx)
		if err != nil {
			return result, fmt.Errorf("load links: %w", err)
		}
		for _, sl := range stored {
			if _, ok := s.links[sl.ID]; ok {
				continue
			}
			link, err := linkFromStorage(sl)
			if err != nil {
				s.logger.Printf("restore: skipping link %s: %v", sl.ID, err)
				continue
			}
			s.reattach(link)
			s.links[link.ID] = link
			result.Links++
		}
	}

	return result, nil
}

// Stats describes the current contents of the service.
type Stats struct {
	Records        int  `json:"records"`
	Pairs          int  `json:"pairs"`
	Links          int  `json:"links"`
	RetainsRawText bool `json:"retains_raw_text"`
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Records:        s.store.Len(),
		Pairs:          s.store.PairCount(),
		Links:          len(s.links),
		RetainsRawText: s.store.RetainsRawText(),
	}
}

// Evidence returns the display forms of every record involving id.
func (s *Service) Evidence(id string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return displayForms(s.store.Get(id))
}

// EvidencePair returns the display forms of every record for the pair a, b.
func (s *Service) EvidencePair(a, b string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return displayForms(s.store.GetPair(a, b))
}

// Partners returns each interactor's sorted partner list.
func (s *Service) Partners() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partners := make(map[string][]string)
	for id, set := range s.store.PartnersOf() {
		list := make([]string, 0, len(set))
		for p := range set {
			list = append(list, p)
		}
		sort.Strings(list)
		partners[id] = list
	}
	return partners
}

// PairedLines returns the text of every record, indexed by both
// participants.
func (s *Service) PairedLines() map[string]map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.PairedLines()
}

// Topology returns the interaction graph over normalized identifiers with
// its connected components, largest first.
func (s *Service) Topology() models.Topology {
	s.mu.RLock()
	t := s.store.Topology()
	s.mu.RUnlock()

	out := models.Topology{
		Nodes:      t.SortedNodes(),
		Edges:      []models.TopologyEdge{},
		Components: t.Components(),
	}
	for _, key := range t.SortedEdges() {
		out.Edges = append(out.Edges, models.TopologyEdge{A: key.A, B: key.B, Evidence: len(t.Edges[key])})
	}
	return out
}

// Filter returns an independent store with the evidence whose normalized
// pair includes one of ids. When methods is non-empty only records detected
// by one of them are kept; with no ids every such record is kept.
func (s *Service) Filter(ids, methods []string) *interaction.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(methods) == 0 {
		return s.store.Filter(ids, nil)
	}

	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	byMethod := func(rec evidence.Record) bool {
		_, ok := allowed[rec.DetectionMethod()]
		return ok
	}

	if len(ids) == 0 {
		return s.store.Filter(nil, byMethod)
	}
	return s.store.Filter(ids, nil).Filter(nil, byMethod)
}

// FlushRawText drops the raw text of every stored record, now and for all
// later inserts.
func (s *Service) FlushRawText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.FlushRawText()
}

// Clear empties the store and, when persistence is configured, the stored
// evidence. Links are kept.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	if s.evidenceRepo != nil {
		if err := s.evidenceRepo.ClearEvidence(ctx); err != nil {
			return fmt.Errorf("clear evidence: %w", err)
		}
	}
	return nil
}

// Dump renders the store as "text" (one line per record) or "json" (the
// mitabResult envelope).
func (s *Service) Dump(format string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch format {
	case "", "text":
		return []byte(s.store.String()), nil
	case "json":
		return s.store.MarshalJSON()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func displayForms(records []evidence.Record) []any {
	out := make([]any, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.DisplayForm())
	}
	return out
}
