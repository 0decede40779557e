/*
catalog.go - Phase catalog contract and static implementation

PURPOSE:
  The catalog is process-wide reference data loaded once from configuration.
  It is modeled as an injected read-only interface (not ambient global
  state) so the engine can be tested against fixture catalogs.

INVARIANTS (enforced at construction, never at read time):
  - Non-empty
  - Fase ids unique
  - Ordine values unique (they totally order the catalog)
  - At least one fase marked Chiusura
  - Every closure fase carries a valid EsitoDefault

SEE ALSO:
  - factory/catalog.go: JSON configuration -> Catalog
  - engine.go: The only consumer inside the domain
*/
package pratica

import (
	"fmt"
	"sort"
)

// =============================================================================
// CATALOG - Read-only phase catalog
// =============================================================================

// Catalog exposes the ordered, immutable-at-runtime phase definitions.
// No method has side effects.
type Catalog interface {
	// ListOrdered returns all fasi sorted by Ordine, ascending.
	ListOrdered() []Fase

	// Get returns the fase with the given id, or ErrFaseNotFound.
	Get(id FaseID) (Fase, error)

	// ClosurePhases returns the subset with Chiusura == true.
	ClosurePhases() []Fase

	// First returns the lowest-ordine fase. New pratiche start here.
	First() Fase
}

// =============================================================================
// STATIC CATALOG - Slice-backed implementation
// =============================================================================

// StaticCatalog is an immutable Catalog built from a slice of fasi.
type StaticCatalog struct {
	ordered []Fase
	byID    map[FaseID]Fase
}

// NewStaticCatalog validates the fasi and builds a catalog.
func NewStaticCatalog(fasi []Fase) (*StaticCatalog, error) {
	if len(fasi) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrValidation)
	}

	byID := make(map[FaseID]Fase, len(fasi))
	byOrdine := make(map[int]FaseID, len(fasi))
	hasChiusura := false

	for _, f := range fasi {
		if f.ID == "" || f.Nome == "" {
			return nil, fmt.Errorf("%w: fase without id or nome", ErrValidation)
		}
		if _, dup := byID[f.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate fase id %q", ErrValidation, f.ID)
		}
		if prev, dup := byOrdine[f.Ordine]; dup {
			return nil, fmt.Errorf("%w: fasi %q and %q share ordine %d", ErrValidation, prev, f.ID, f.Ordine)
		}
		if f.Chiusura && !f.EsitoDefault.Valid() {
			return nil, fmt.Errorf("%w: closure fase %q without esito default", ErrValidation, f.ID)
		}
		if !f.Chiusura && f.EsitoDefault != EsitoNone {
			return nil, fmt.Errorf("%w: non-closure fase %q carries esito default", ErrValidation, f.ID)
		}
		byID[f.ID] = f
		byOrdine[f.Ordine] = f.ID
		if f.Chiusura {
			hasChiusura = true
		}
	}

	if !hasChiusura {
		return nil, fmt.Errorf("%w: catalog has no closure fase", ErrValidation)
	}

	ordered := make([]Fase, len(fasi))
	copy(ordered, fasi)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordine < ordered[j].Ordine })

	return &StaticCatalog{ordered: ordered, byID: byID}, nil
}

func (c *StaticCatalog) ListOrdered() []Fase {
	out := make([]Fase, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *StaticCatalog) Get(id FaseID) (Fase, error) {
	f, ok := c.byID[id]
	if !ok {
		return Fase{}, fmt.Errorf("%w: %s", ErrFaseNotFound, id)
	}
	return f, nil
}

func (c *StaticCatalog) ClosurePhases() []Fase {
	var out []Fase
	for _, f := range c.ordered {
		if f.Chiusura {
			out = append(out, f)
		}
	}
	return out
}

func (c *StaticCatalog) First() Fase {
	return c.ordered[0]
}
