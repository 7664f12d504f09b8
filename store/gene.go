package store

import "github.com/HIM72/ExpressionMatrix2/mm"

// AddGene interns name as a gene, if not already present. It returns
// inserted=true if this call created the gene, false if it already existed
// (duplicate AddGene is idempotent, per spec §7).
func (s *Store) AddGene(name string) (id GeneId, inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireWritable()

	existing := s.geneNames.Lookup(name)
	if existing != mm.InvalidStringId {
		return GeneId(existing), false, nil
	}
	raw, err := s.geneNames.Intern(name)
	if err != nil {
		return 0, false, err
	}
	return GeneId(raw), true, nil
}

// addGeneLocked is AddGene's body without locking or the writability check,
// for use from AddCell which already holds the lock.
func (s *Store) addGeneLocked(name string) (GeneId, error) {
	id, err := s.geneNames.Intern(name)
	return GeneId(id), err
}
