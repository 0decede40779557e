/*
Package pratica provides the core case-lifecycle engine.

PURPOSE:
  This package contains the domain types and the state machine that drive a
  debt-recovery case (Pratica) from intake to closure: the ordered phase
  catalog, the append-only phase history (storico), and the transition,
  reopen and visibility operations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Fase: An ordered phase definition from the catalog
  - Pratica: The case aggregate (current phase, financials, lifecycle flags)
  - StoricoFase: One phase-history entry (immutable once closed)
  - Importi: Per-category assigned/recovered amounts

DESIGN PRINCIPLES:
  1. Two independent axes: Attivo (visibility) and Aperta (lifecycle) are
     separate booleans, never collapsed into one enum.
  2. Precision: decimal.Decimal for all monetary amounts, never float.
  3. History over joins: StoricoFase snapshots the phase name at write time
     so history reads correctly even if the catalog is later renamed.

SEE ALSO:
  - catalog.go: Phase catalog contract and static implementation
  - engine.go: The transition engine mutating these types
  - errors.go: Domain error taxonomy
*/
package pratica

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PraticaID string
type FaseID string
type ClienteID string
type DebitoreID string

// =============================================================================
// ESITO - Outcome recorded when a Pratica closes
// =============================================================================

type Esito string

const (
	EsitoPositivo Esito = "positivo"
	EsitoNegativo Esito = "negativo"

	// EsitoNone is the zero value: the case is still open (or reopened).
	EsitoNone Esito = ""
)

func (e Esito) Valid() bool {
	return e == EsitoPositivo || e == EsitoNegativo
}

// =============================================================================
// FASE - Phase definition (catalog entry, read-only to the engine)
// =============================================================================

// Fase is a single entry of the phase catalog. The catalog is configuration:
// created and edited outside case activity, read-only to the engine.
type Fase struct {
	ID     FaseID
	Nome   string
	Ordine int // unique across the catalog, totally orders the phases

	// Chiusura marks a terminal phase: advancing into it closes the case.
	Chiusura bool

	// EsitoDefault is the outcome persisted on closure. Required when
	// Chiusura is true so a closed case never ends up without an esito.
	EsitoDefault Esito

	Colore string // presentation only
}

// =============================================================================
// STORICO - Append-only phase history
// =============================================================================

// StoricoFase records one stay in a phase. FaseNome is denormalized at
// write time: history must not change retroactively when the catalog does.
// Once DataFine is set the entry is immutable.
type StoricoFase struct {
	FaseID     FaseID
	FaseNome   string
	DataInizio time.Time
	DataFine   *time.Time // nil while the phase is current
	Note       string     // entered at the moment of leaving the phase
}

func (s StoricoFase) Chiusa() bool { return s.DataFine != nil }

// =============================================================================
// IMPORTI - Financial fields, four parallel category pairs
// =============================================================================

// ImportiCategoria pairs the amount assigned for recovery with the amount
// recovered so far in one category. Recuperato is NOT constrained to stay
// below Assegnato: overpayments and interest adjustments are legitimate.
type ImportiCategoria struct {
	Assegnato  decimal.Decimal
	Recuperato decimal.Decimal
}

// Importi holds the four financial categories of a Pratica.
type Importi struct {
	Capitale       ImportiCategoria
	Anticipazioni  ImportiCategoria
	CompensiLegali ImportiCategoria
	Interessi      ImportiCategoria
}

// =============================================================================
// PRATICA - The case aggregate
// =============================================================================

// Pratica is a legal debt-collection case linking exactly one cliente and
// one debitore. It is the single source of truth read by both the engine
// and the ledger; only the engine appends to Storico.
type Pratica struct {
	ID         PraticaID
	ClienteID  ClienteID
	DebitoreID DebitoreID

	FaseID  FaseID // current phase
	Importi Importi

	// Aperta is the lifecycle axis: true while the case is progressing,
	// false once it has entered a closure phase (until reopened).
	Aperta bool
	Esito  Esito // set only while closed

	// Attivo is the visibility axis (soft delete). Orthogonal to Aperta:
	// a deactivated-but-open case is still logically open.
	Attivo bool

	Note            string
	DataAffidamento time.Time
	Storico         []StoricoFase

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoricoAperto returns the open history entry (DataFine == nil), or nil.
// Under normal flow exactly one entry is open while the case is aperta; a
// reopened-but-not-yet-advanced case has none. That gap is an accepted
// exception, not a bug to mask.
func (p *Pratica) StoricoAperto() *StoricoFase {
	for i := range p.Storico {
		if p.Storico[i].DataFine == nil {
			return &p.Storico[i]
		}
	}
	return nil
}

// StoricoCorrente returns the last history entry, open or not.
func (p *Pratica) StoricoCorrente() *StoricoFase {
	if len(p.Storico) == 0 {
		return nil
	}
	return &p.Storico[len(p.Storico)-1]
}
