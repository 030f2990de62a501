package interolog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/interolog/internal/homology"
	"github.com/todmy/interolog/internal/similarity"
	"github.com/todmy/interolog/internal/storage"
	"github.com/todmy/interolog/pkg/models"
)

var (
	ErrHitNotFound     = errors.New("hit not found")
	ErrInvalidTrimOpts = errors.New("invalid trim options")
)

// Hit sides as stored with each profile.
const (
	SideLow  = "low"
	SideHigh = "high"
)

// Link is a candidate interaction between two query proteins together with
// the homology hits supporting it.
type Link struct {
	ID        uuid.UUID
	QueryLow  string
	QueryHigh string
	CreatedBy string
	CreatedAt time.Time

	set *homology.SupportSet
}

// LinkQuery describes a link to create. Each hit pairs a homolog of
// QueryLow with a homolog of QueryHigh. When Trim is set the new link is
// trimmed before being stored, with Trim's fields decoded over
// DefaultTrimOptions. CreatedBy names the curator the link is attributed to.
type LinkQuery struct {
	QueryLow  string               `json:"query_low"`
	QueryHigh string               `json:"query_high"`
	Hits      []models.HomologyHit `json:"hits"`
	Trim      json.RawMessage      `json:"trim,omitempty"`
	CreatedBy string               `json:"-"`
}

// trimOptions returns the inline trim of q over the service defaults, or
// nil when q carries none.
func (s *Service) trimOptions(q LinkQuery) (*homology.TrimOptions, error) {
	if len(q.Trim) == 0 || string(q.Trim) == "null" {
		return nil, nil
	}
	opts := s.DefaultTrimOptions()
	if err := json.Unmarshal(q.Trim, &opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrimOpts, err)
	}
	return &opts, nil
}

// LinkView is a read-only rendering of a link.
type LinkView struct {
	models.Link
	Snapshot     homology.Snapshot      `json:"snapshot"`
	Summary      homology.Summary       `json:"summary"`
	Explanations []homology.Explanation `json:"explanations,omitempty"`
}

func (l *Link) model() models.Link {
	return models.Link{
		ID:        l.ID.String(),
		QueryLow:  l.QueryLow,
		QueryHigh: l.QueryHigh,
		CreatedBy: l.CreatedBy,
		Depth:     l.set.Depth(),
		Visible:   l.set.Visible(),
		CreatedAt: l.CreatedAt,
	}
}

func (l *Link) view() LinkView {
	return LinkView{
		Link:     l.model(),
		Snapshot: l.set.Snapshot(),
		Summary:  l.set.Summarize(),
	}
}

// linkFromStorage rebuilds a link from its saved rows, falling back to the
// snapshot for links saved without them.
func linkFromStorage(sl *storage.Link) (*Link, error) {
	var set *homology.SupportSet
	if len(sl.Rows) > 0 {
		set = homology.FromState(sl.Rows, sl.Snapshot.Visible)
	} else {
		var err error
		if set, err = homology.FromSnapshot(sl.Snapshot); err != nil {
			return nil, err
		}
	}
	return &Link{
		ID:        sl.ID,
		QueryLow:  sl.QueryLow,
		QueryHigh: sl.QueryHigh,
		CreatedBy: sl.CreatedBy,
		CreatedAt: sl.CreatedAt,
		set:       set,
	}, nil
}

// DefaultTrimOptions returns the homology defaults with the configured
// taxon mode.
func (s *Service) DefaultTrimOptions() homology.TrimOptions {
	opts := homology.DefaultTrimOptions()
	opts.TaxonMode = s.taxonMode
	return opts
}

// CreateLink builds a support set from the query hits, attaching to each
// row the stored evidence between its two templates.
func (s *Service) CreateLink(ctx context.Context, query LinkQuery) (LinkView, error) {
	if len(query.Hits) == 0 {
		return LinkView{}, ErrNoHits
	}
	trim, err := s.trimOptions(query)
	if err != nil {
		return LinkView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link := &Link{
		ID:        uuid.New(),
		QueryLow:  query.QueryLow,
		QueryHigh: query.QueryHigh,
		CreatedBy: query.CreatedBy,
		CreatedAt: time.Now(),
		set:       homology.NewSupportSet(),
	}
	for _, h := range query.Hits {
		i := link.set.Add(h.Low, h.High)
		s.attachEvidence(link.set, i)
	}

	var explanations []homology.Explanation
	if trim != nil {
		explanations = link.set.Trim(*trim)
	}

	if err := s.saveLink(ctx, link); err != nil {
		return LinkView{}, err
	}
	s.links[link.ID] = link

	view := link.view()
	view.Explanations = explanations
	return view, nil
}

// attachEvidence attaches the stored evidence between the templates of
// row i.
func (s *Service) attachEvidence(set *homology.SupportSet, i int) {
	row := set.Row(i)
	if row == nil {
		return
	}
	low, high := row.Low.Template(), row.High.Template()
	if low == "" || high == "" {
		return
	}
	set.Attach(i, s.store.GetPair(low, high)...)
}

// TrimLink trims the link's hits and evidence with opts.
func (s *Service) TrimLink(ctx context.Context, id uuid.UUID, opts homology.TrimOptions) (LinkView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.lookup(ctx, id)
	if err != nil {
		return LinkView{}, err
	}

	explanations := link.set.Trim(opts)
	if err := s.saveLink(ctx, link); err != nil {
		return LinkView{}, err
	}

	view := link.view()
	view.Explanations = explanations
	return view, nil
}

// GetLink returns the link with the given id, loading it from the link
// repository when it is not in memory.
func (s *Service) GetLink(ctx context.Context, id uuid.UUID) (LinkView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.lookup(ctx, id)
	if err != nil {
		return LinkView{}, err
	}
	return link.view(), nil
}

// RemoveLink drops every hit of the link and forgets it.
func (s *Service) RemoveLink(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	link.set.Remove()
	delete(s.links, id)

	if s.linkRepo != nil {
		if err := s.linkRepo.DeleteLink(ctx, id); err != nil {
			return fmt.Errorf("delete link: %w", err)
		}
	}
	return nil
}

// ListLinks returns every link held in memory, oldest first.
func (s *Service) ListLinks() []models.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Link, 0, len(s.links))
	for _, link := range s.links {
		out = append(out, link.model())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SimilarHits finds hits of other links whose score profile is close to
// the profile of the given hit. row indexes the link's snapshot rows.
func (s *Service) SimilarHits(ctx context.Context, id uuid.UUID, row int, side string, limit int, threshold float64) ([]models.SimilarHit, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := hitProfile(link.set, row, side)
	if err != nil {
		return nil, err
	}

	var hits []models.SimilarHit
	if s.linkRepo != nil {
		hits, err = s.linkRepo.FindSimilarHits(ctx, profile, limit+1, threshold)
		if err != nil {
			return nil, fmt.Errorf("find similar hits: %w", err)
		}
	} else {
		hits = s.rankInMemory(profile, limit+1, threshold)
	}

	out := []models.SimilarHit{}
	for _, h := range hits {
		if h.LinkID == id.String() && h.Row == row && h.Side == side {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, h)
	}
	return out, nil
}

// Outliers scores every hit of the link against the link's other hits by
// mean distance to its k nearest score profiles, most unusual first.
func (s *Service) Outliers(ctx context.Context, id uuid.UUID, k int) ([]models.HitOutlier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	var out []models.HitOutlier
	var profiles [][]float32
	for i, h := range slices.Collect(link.set.Hits(true)) {
		for _, side := range []string{SideLow, SideHigh} {
			rec := hitSide(h, side)
			out = append(out, models.HitOutlier{Row: i, Side: side, Template: rec.Template()})
			profiles = append(profiles, rec.Profile())
		}
	}
	if out == nil {
		out = []models.HitOutlier{}
	}

	for i, score := range similarity.Outliers(profiles, k) {
		out[i].Score = score
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// hitProfile returns the profile of one side of a valid row. row counts
// valid rows only, as the snapshot does.
func hitProfile(set *homology.SupportSet, row int, side string) ([]float32, error) {
	if side != SideLow && side != SideHigh {
		return nil, fmt.Errorf("%w: unknown side %q", ErrHitNotFound, side)
	}
	hits := slices.Collect(set.Hits(true))
	if row < 0 || row >= len(hits) {
		return nil, ErrHitNotFound
	}
	return hitSide(hits[row], side).Profile(), nil
}

func hitSide(h homology.Hit, side string) *homology.Record {
	if side == SideHigh {
		return h.High
	}
	return h.Low
}

func (s *Service) rankInMemory(profile []float32, limit int, threshold float64) []models.SimilarHit {
	byKey := make(map[string]models.SimilarHit)
	var candidates []similarity.Candidate
	for _, link := range s.links {
		for i, h := range slices.Collect(link.set.Hits(true)) {
			for _, side := range []string{SideLow, SideHigh} {
				rec := hitSide(h, side)
				key := link.ID.String() + "/" + strconv.Itoa(i) + "/" + side
				byKey[key] = models.SimilarHit{LinkID: link.ID.String(), Row: i, Side: side, Template: rec.Template()}
				candidates = append(candidates, similarity.Candidate{Key: key, Profile: rec.Profile()})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Key < candidates[j].Key })

	var out []models.SimilarHit
	for _, m := range similarity.Rank(profile, candidates, threshold, limit) {
		hit := byKey[m.Key]
		hit.Similarity = m.Similarity
		out = append(out, hit)
	}
	return out
}

// lookup returns the in-memory link or loads it from the repository.
// Callers hold the write lock.
func (s *Service) lookup(ctx context.Context, id uuid.UUID) (*Link, error) {
	if link, ok := s.links[id]; ok {
		return link, nil
	}
	if s.linkRepo == nil {
		return nil, ErrLinkNotFound
	}

	stored, err := s.linkRepo.GetLink(ctx, id)
	if errors.Is(err, storage.ErrLinkNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}

	link, err := linkFromStorage(stored)
	if err != nil {
		return nil, fmt.Errorf("restore link %s: %w", id, err)
	}
	s.reattach(link)
	s.links[id] = link
	return link, nil
}

// reattach fills the evidence groups of a restored link from the store.
func (s *Service) reattach(link *Link) {
	for i := 0; i < link.set.Total(); i++ {
		s.attachEvidence(link.set, i)
	}
}

func (s *Service) saveLink(ctx context.Context, link *Link) error {
	if s.linkRepo == nil {
		return nil
	}
	err := s.linkRepo.SaveLink(ctx, &storage.Link{
		ID:        link.ID,
		QueryLow:  link.QueryLow,
		QueryHigh: link.QueryHigh,
		CreatedBy: link.CreatedBy,
		Snapshot:  link.set.Snapshot(),
		Rows:      link.set.State(),
		CreatedAt: link.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("persist link: %w", err)
	}
	return nil
}
