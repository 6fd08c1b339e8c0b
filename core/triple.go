package core

// Triple is a (subject, predicate, object) relation statement with type
// metadata, a confidence score, and the chunk ids that evidence it.
type Triple struct {
	Subject     string
	SubjectType EntityType
	Predicate   string
	Object      string
	ObjectType  EntityType
	Confidence  float64
	ChunkIds    []ID
}

// Key returns the identity of the logical relation. Triples with the same
// key describe the same fact and merge their evidence.
func (t *Triple) Key() string {
	return t.Subject + "|" + t.Predicate + "|" + t.Object
}

// TripleSet accumulates triples across chunks, merging duplicates.
// Triples with identical (subject, predicate, object) merge their
// source-chunk-id sets; confidence becomes the arithmetic mean over all
// merged observations. This is the system's only conflict-resolution rule.
type TripleSet struct {
	order   []string
	triples map[string]*Triple
	sums    map[string]float64
	counts  map[string]int
	chunks  map[string]map[ID]struct{}
}

// NewTripleSet creates an empty triple set.
func NewTripleSet() *TripleSet {
	return &TripleSet{
		triples: make(map[string]*Triple),
		sums:    make(map[string]float64),
		counts:  make(map[string]int),
		chunks:  make(map[string]map[ID]struct{}),
	}
}

// Add merges a triple into the set. Triples with empty subject or object are
// ignored: they cannot form a graph edge.
func (s *TripleSet) Add(t Triple) {
	if t.Subject == "" || t.Object == "" {
		return
	}

	key := t.Key()
	existing, ok := s.triples[key]
	if !ok {
		copied := t
		copied.ChunkIds = nil
		s.triples[key] = &copied
		s.order = append(s.order, key)
		s.chunks[key] = make(map[ID]struct{})
		existing = &copied
	}

	s.sums[key] += t.Confidence
	s.counts[key]++
	existing.Confidence = s.sums[key] / float64(s.counts[key])

	for _, id := range t.ChunkIds {
		if _, seen := s.chunks[key][id]; seen {
			continue
		}
		s.chunks[key][id] = struct{}{}
		existing.ChunkIds = append(existing.ChunkIds, id)
	}
}

// Get returns the merged triple for a key.
func (s *TripleSet) Get(key string) (Triple, bool) {
	t, ok := s.triples[key]
	if !ok {
		return Triple{}, false
	}
	return *t, true
}

// Len returns the number of distinct logical triples.
func (s *TripleSet) Len() int {
	return len(s.order)
}

// Triples returns the merged triples in first-seen order.
func (s *TripleSet) Triples() []Triple {
	out := make([]Triple, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.triples[key])
	}
	return out
}
