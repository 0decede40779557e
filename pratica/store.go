/*
store.go - Persistence interface between the engine and the database

PURPOSE:
  Defines what the engine needs from storage: load/save of the full Pratica
  aggregate (including storico) and a transactional closure so a transition
  is never observed half-applied.

CONCURRENCY CONTRACT:
  Advance is read-then-write on the aggregate (current fase, aperta flag,
  open storico entry). Implementations must serialize concurrent WithTx
  calls touching the same pratica; advances on different pratiche are
  independent.

IMPLEMENTATIONS:
  - store/sqlite: production storage (WAL, single-writer mutex)
  - store/memory: in-memory, for tests and demos
*/
package pratica

import "context"

// Store handles persistence of the Pratica aggregate.
type Store interface {
	// GetPratica loads the full aggregate, storico included.
	// Returns ErrPraticaNotFound when the id is unknown.
	GetPratica(ctx context.Context, id PraticaID) (*Pratica, error)

	// SavePratica writes the full aggregate. Creates or replaces.
	SavePratica(ctx context.Context, p *Pratica) error
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction is rolled back, otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// RegistryStore extends Store with cliente/debitore lookups, needed at
// intake. Implementations return ErrClienteNotFound / ErrDebitoreNotFound
// on unknown ids.
type RegistryStore interface {
	Store

	// ClienteAttivo reports whether the cliente exists and is active.
	ClienteAttivo(ctx context.Context, id ClienteID) (bool, error)

	// DebitoreAttivo reports whether the debitore exists and is active.
	DebitoreAttivo(ctx context.Context, id DebitoreID) (bool, error)
}
