/*
Package movimenti provides the financial movement ledger.

PURPOSE:
  A log of dated, typed monetary entries attributed to a pratica. Unlike
  the storico, entries can be edited and deleted; the ledger has no
  cross-entry invariants. Its recupero_* entries are the authoritative
  source from which per-category recovered totals can be reconstructed,
  independent of whatever value sits in the pratica's denormalized fields.

TIPO DISPATCH:
  The 8 movement types form a closed enum with exhaustive matching in
  Somma(): adding a ninth category is a compile-surface change here, not a
  scattered string comparison.

SEE ALSO:
  - pratica: error taxonomy and PraticaID
  - store/sqlite: persistence
*/
package movimenti

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alexromano87/recupero-crediti-sub000/pratica"
)

// =============================================================================
// TIPO - Closed enum of movement types
// =============================================================================

type MovimentoID string

type Tipo string

const (
	TipoCapitale      Tipo = "capitale"
	TipoAnticipazione Tipo = "anticipazione"
	TipoCompenso      Tipo = "compenso"
	TipoInteressi     Tipo = "interessi"

	TipoRecuperoCapitale      Tipo = "recupero_capitale"
	TipoRecuperoAnticipazione Tipo = "recupero_anticipazione"
	TipoRecuperoCompenso      Tipo = "recupero_compenso"
	TipoRecuperoInteressi     Tipo = "recupero_interessi"
)

// Tipi lists every valid tipo, in display order.
var Tipi = []Tipo{
	TipoCapitale, TipoAnticipazione, TipoCompenso, TipoInteressi,
	TipoRecuperoCapitale, TipoRecuperoAnticipazione, TipoRecuperoCompenso, TipoRecuperoInteressi,
}

func (t Tipo) Valid() bool {
	switch t {
	case TipoCapitale, TipoAnticipazione, TipoCompenso, TipoInteressi,
		TipoRecuperoCapitale, TipoRecuperoAnticipazione, TipoRecuperoCompenso, TipoRecuperoInteressi:
		return true
	}
	return false
}

// Recupero reports whether the tipo contributes to a recovered total
// rather than an assigned one.
func (t Tipo) Recupero() bool {
	switch t {
	case TipoRecuperoCapitale, TipoRecuperoAnticipazione, TipoRecuperoCompenso, TipoRecuperoInteressi:
		return true
	}
	return false
}

// =============================================================================
// MOVIMENTO - A single ledger entry
// =============================================================================

type Movimento struct {
	ID        MovimentoID
	PraticaID pratica.PraticaID
	Tipo      Tipo
	Importo   decimal.Decimal // strictly positive
	Data      time.Time
	Oggetto   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store handles movimento persistence. Per-row atomicity is enough: the
// ledger has no cross-entry invariants and needs no extra locking.
type Store interface {
	InsertMovimento(ctx context.Context, m Movimento) error
	GetMovimento(ctx context.Context, id MovimentoID) (*Movimento, error) // ErrMovimentoNotFound on miss
	UpdateMovimento(ctx context.Context, m Movimento) error
	DeleteMovimento(ctx context.Context, id MovimentoID) error // ErrMovimentoNotFound on miss
	ListByPratica(ctx context.Context, id pratica.PraticaID) ([]Movimento, error)

	// PraticaExists guards Record against orphan entries.
	PraticaExists(ctx context.Context, id pratica.PraticaID) (bool, error)
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger exposes the movimento operations over a Store.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Record creates an entry. Fails with ErrValidation when the importo is
// not strictly positive or the tipo is unknown, ErrPraticaNotFound when
// the pratica does not exist.
func (l *Ledger) Record(ctx context.Context, praticaID pratica.PraticaID, tipo Tipo, importo decimal.Decimal, data time.Time, oggetto string) (*Movimento, error) {
	if !tipo.Valid() {
		return nil, fmt.Errorf("%w: unknown tipo %q", pratica.ErrValidation, tipo)
	}
	if !importo.IsPositive() {
		return nil, fmt.Errorf("%w: importo must be positive, got %s", pratica.ErrValidation, importo)
	}
	if data.IsZero() {
		return nil, fmt.Errorf("%w: data is required", pratica.ErrValidation)
	}

	exists, err := l.store.PraticaExists(ctx, praticaID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("pratica %s: %w", praticaID, pratica.ErrPraticaNotFound)
	}

	now := l.now().UTC()
	m := Movimento{
		ID:        MovimentoID(uuid.NewString()),
		PraticaID: praticaID,
		Tipo:      tipo,
		Importo:   importo,
		Data:      data,
		Oggetto:   oggetto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.InsertMovimento(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Patch is a partial update of an entry. Nil pointers leave fields alone.
type Patch struct {
	Tipo    *Tipo
	Importo *decimal.Decimal
	Data    *time.Time
	Oggetto *string
}

// Update mutates an existing entry. Same validation rules as Record.
func (l *Ledger) Update(ctx context.Context, id MovimentoID, patch Patch) (*Movimento, error) {
	m, err := l.store.GetMovimento(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Tipo != nil {
		if !patch.Tipo.Valid() {
			return nil, fmt.Errorf("%w: unknown tipo %q", pratica.ErrValidation, *patch.Tipo)
		}
		m.Tipo = *patch.Tipo
	}
	if patch.Importo != nil {
		if !patch.Importo.IsPositive() {
			return nil, fmt.Errorf("%w: importo must be positive, got %s", pratica.ErrValidation, patch.Importo)
		}
		m.Importo = *patch.Importo
	}
	if patch.Data != nil {
		m.Data = *patch.Data
	}
	if patch.Oggetto != nil {
		m.Oggetto = *patch.Oggetto
	}
	m.UpdatedAt = l.now().UTC()

	if err := l.store.UpdateMovimento(ctx, *m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes an entry. ErrMovimentoNotFound on miss.
func (l *Ledger) Delete(ctx context.Context, id MovimentoID) error {
	return l.store.DeleteMovimento(ctx, id)
}

// ListByPratica returns all entries for a pratica, in no implied order.
// Callers sort by Data for display.
func (l *Ledger) ListByPratica(ctx context.Context, id pratica.PraticaID) ([]Movimento, error) {
	return l.store.ListByPratica(ctx, id)
}

// Totali returns the per-category sums derived from the ledger entries.
func (l *Ledger) Totali(ctx context.Context, id pratica.PraticaID) (Totali, error) {
	movs, err := l.store.ListByPratica(ctx, id)
	if err != nil {
		return Totali{}, err
	}
	return Somma(movs), nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

// TotaliCategoria pairs assigned and recovered sums for one category.
type TotaliCategoria struct {
	Assegnato  decimal.Decimal
	Recuperato decimal.Decimal
}

// Totali holds the ledger-derived sums for the four categories.
type Totali struct {
	Capitale       TotaliCategoria
	Anticipazioni  TotaliCategoria
	CompensiLegali TotaliCategoria
	Interessi      TotaliCategoria
}

// Somma folds the entries into per-category totals. The switch is
// exhaustive over the closed tipo enum; unknown tipi cannot get past
// Record/Update validation.
func Somma(movs []Movimento) Totali {
	var t Totali
	for _, m := range movs {
		switch m.Tipo {
		case TipoCapitale:
			t.Capitale.Assegnato = t.Capitale.Assegnato.Add(m.Importo)
		case TipoAnticipazione:
			t.Anticipazioni.Assegnato = t.Anticipazioni.Assegnato.Add(m.Importo)
		case TipoCompenso:
			t.CompensiLegali.Assegnato = t.CompensiLegali.Assegnato.Add(m.Importo)
		case TipoInteressi:
			t.Interessi.Assegnato = t.Interessi.Assegnato.Add(m.Importo)
		case TipoRecuperoCapitale:
			t.Capitale.Recuperato = t.Capitale.Recuperato.Add(m.Importo)
		case TipoRecuperoAnticipazione:
			t.Anticipazioni.Recuperato = t.Anticipazioni.Recuperato.Add(m.Importo)
		case TipoRecuperoCompenso:
			t.CompensiLegali.Recuperato = t.CompensiLegali.Recuperato.Add(m.Importo)
		case TipoRecuperoInteressi:
			t.Interessi.Recuperato = t.Interessi.Recuperato.Add(m.Importo)
		}
	}
	return t
}
