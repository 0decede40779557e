/*
engine.go - The phase transition engine

PURPOSE:
  The state machine driving a Pratica through the phase catalog. States are
  the catalog's fase ids; a tagged subset closes the case. The engine owns
  every storico mutation: history entries are appended here and nowhere
  else.

OPERATIONS:
  Open        Intake: create the pratica in the first-ordered fase
  Advance     Close the open storico entry, append a new one, move FaseID;
              closure fasi also flip Aperta and persist the esito
  Reopen      Inverse of closure: Aperta back to true, esito cleared
  Deactivate  Visibility toggle only (Attivo), lifecycle untouched
  Reactivate  Inverse of Deactivate
  UpdateFields Direct field edits bypassing the state machine and storico

ATOMICITY:
  Each operation runs inside a single store transaction when the store
  supports it. On failure the operation fails outright: no domain-level
  retry, no partial effect.

ORDERING NOTE:
  Advance does NOT require the target fase's ordine to exceed the current
  one. The UI restricts selectable targets to forward phases; the engine
  accepts backward moves as an operator escape hatch. Confirmed product
  decision, do not tighten here.
*/
package pratica

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine validates and executes lifecycle operations on pratiche.
// The catalog is read-only reference data; the store provides atomicity.
type Engine struct {
	catalog Catalog
	store   Store
	now     func() time.Time
}

// NewEngine creates an engine over the given catalog and store.
func NewEngine(catalog Catalog, store Store) *Engine {
	return &Engine{catalog: catalog, store: store, now: time.Now}
}

// NewEngineWithClock is NewEngine with an injectable clock, for tests.
func NewEngineWithClock(catalog Catalog, store Store, clock func() time.Time) *Engine {
	return &Engine{catalog: catalog, store: store, now: clock}
}

// withTx runs fn transactionally when the store supports it.
func (e *Engine) withTx(ctx context.Context, fn func(Store) error) error {
	if txs, ok := e.store.(TxStore); ok {
		return txs.WithTx(ctx, fn)
	}
	return fn(e.store)
}

// =============================================================================
// INTAKE
// =============================================================================

// OpenParams carries the intake data for a new pratica.
type OpenParams struct {
	ClienteID       ClienteID
	DebitoreID      DebitoreID
	DataAffidamento time.Time
	Note            string
	Importi         Importi // assigned amounts; recovered normally start at zero
}

// Open creates a pratica in the catalog's first-ordered fase with a single
// open storico entry starting at DataAffidamento.
func (e *Engine) Open(ctx context.Context, params OpenParams) (*Pratica, error) {
	if params.ClienteID == "" || params.DebitoreID == "" {
		return nil, fmt.Errorf("%w: cliente and debitore are required", ErrValidation)
	}
	if params.DataAffidamento.IsZero() {
		return nil, fmt.Errorf("%w: data affidamento is required", ErrValidation)
	}

	// Registry checks when the store knows about clienti/debitori.
	if reg, ok := e.store.(RegistryStore); ok {
		attivo, err := reg.ClienteAttivo(ctx, params.ClienteID)
		if err != nil {
			return nil, err
		}
		if !attivo {
			return nil, fmt.Errorf("cliente %s: %w", params.ClienteID, ErrInactiveEntity)
		}
		attivo, err = reg.DebitoreAttivo(ctx, params.DebitoreID)
		if err != nil {
			return nil, err
		}
		if !attivo {
			return nil, fmt.Errorf("debitore %s: %w", params.DebitoreID, ErrInactiveEntity)
		}
	}

	first := e.catalog.First()
	now := e.now().UTC()

	p := &Pratica{
		ID:              PraticaID(uuid.NewString()),
		ClienteID:       params.ClienteID,
		DebitoreID:      params.DebitoreID,
		FaseID:          first.ID,
		Importi:         params.Importi,
		Aperta:          true,
		Esito:           EsitoNone,
		Attivo:          true,
		Note:            params.Note,
		DataAffidamento: params.DataAffidamento,
		Storico: []StoricoFase{{
			FaseID:     first.ID,
			FaseNome:   first.Nome,
			DataInizio: params.DataAffidamento,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.withTx(ctx, func(s Store) error {
		return s.SavePratica(ctx, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// ADVANCE - The core transition
// =============================================================================

// Advance moves the pratica into nuovaFase. Preconditions, all checked
// before any effect:
//   - the pratica is attivo (ErrInactiveEntity)
//   - the pratica is aperta (ErrAlreadyClosed)
//   - nuovaFase is in the catalog (ErrFaseNotFound)
//   - nuovaFase differs from the current fase (ErrNoOpTransition)
//
// Effect, atomic: the open storico entry is closed (DataFine = now, note
// attached), a new entry is appended with the fase name snapshotted from
// the catalog, and FaseID moves. If nuovaFase is a closure fase the case
// flips to closed, its EsitoDefault is persisted as the esito, and the new
// entry is closed immediately.
func (e *Engine) Advance(ctx context.Context, id PraticaID, nuovaFase FaseID, note string) (*Pratica, error) {
	var out *Pratica
	err := e.withTx(ctx, func(s Store) error {
		p, err := s.GetPratica(ctx, id)
		if err != nil {
			return err
		}

		if !p.Attivo {
			return &TransitionError{PraticaID: id, Da: p.FaseID, A: nuovaFase, Reason: ErrInactiveEntity}
		}
		if !p.Aperta {
			return &TransitionError{PraticaID: id, Da: p.FaseID, A: nuovaFase, Reason: ErrAlreadyClosed}
		}
		target, err := e.catalog.Get(nuovaFase)
		if err != nil {
			return &TransitionError{PraticaID: id, Da: p.FaseID, A: nuovaFase, Reason: ErrFaseNotFound}
		}
		if nuovaFase == p.FaseID {
			return &TransitionError{PraticaID: id, Da: p.FaseID, A: nuovaFase, Reason: ErrNoOpTransition}
		}

		now := e.now().UTC()

		if open := p.StoricoAperto(); open != nil {
			fine := now
			open.DataFine = &fine
			if note != "" {
				open.Note = note
			}
		}
		entry := StoricoFase{
			FaseID:     target.ID,
			FaseNome:   target.Nome,
			DataInizio: now,
		}
		p.FaseID = target.ID
		if target.Chiusura {
			// A closure fase is terminal: its entry opens and closes in
			// the same instant, leaving no open entry on a closed case.
			fine := now
			entry.DataFine = &fine
			p.Aperta = false
			p.Esito = target.EsitoDefault
		}
		p.Storico = append(p.Storico, entry)
		p.UpdatedAt = now

		if err := s.SavePratica(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// REOPEN
// =============================================================================

// Reopen puts a closed pratica back in progress: Aperta true, esito
// cleared. Storico and FaseID are untouched; the previously closed history
// entry stays closed and no new entry opens until the next Advance. Until
// then the case has no open storico entry, an accepted exception to the
// one-open-entry invariant.
func (e *Engine) Reopen(ctx context.Context, id PraticaID) (*Pratica, error) {
	var out *Pratica
	err := e.withTx(ctx, func(s Store) error {
		p, err := s.GetPratica(ctx, id)
		if err != nil {
			return err
		}
		if !p.Attivo {
			return fmt.Errorf("pratica %s: %w", id, ErrInactiveEntity)
		}
		if p.Aperta {
			return fmt.Errorf("pratica %s: %w", id, ErrAlreadyOpen)
		}

		p.Aperta = true
		p.Esito = EsitoNone
		p.UpdatedAt = e.now().UTC()

		if err := s.SavePratica(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// VISIBILITY - Deactivate / Reactivate
// =============================================================================

// Deactivate hides the pratica from default listings. Aperta, FaseID,
// storico and financial fields are untouched: a deactivated-but-open case
// is still logically open for reporting.
func (e *Engine) Deactivate(ctx context.Context, id PraticaID) (*Pratica, error) {
	return e.setAttivo(ctx, id, false)
}

// Reactivate is the inverse of Deactivate, equally side-effect-free on
// lifecycle fields.
func (e *Engine) Reactivate(ctx context.Context, id PraticaID) (*Pratica, error) {
	return e.setAttivo(ctx, id, true)
}

func (e *Engine) setAttivo(ctx context.Context, id PraticaID, attivo bool) (*Pratica, error) {
	var out *Pratica
	err := e.withTx(ctx, func(s Store) error {
		p, err := s.GetPratica(ctx, id)
		if err != nil {
			return err
		}
		p.Attivo = attivo
		p.UpdatedAt = e.now().UTC()
		if err := s.SavePratica(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// DIRECT FIELD EDITS
// =============================================================================

// FieldPatch is a partial update of the directly editable fields. Nil
// pointers leave the field alone. These edits bypass the state machine
// entirely and never touch storico.
type FieldPatch struct {
	Note            *string
	DataAffidamento *time.Time

	CapitaleAssegnato        *decimal.Decimal
	CapitaleRecuperato       *decimal.Decimal
	AnticipazioniAssegnato   *decimal.Decimal
	AnticipazioniRecuperato  *decimal.Decimal
	CompensiLegaliAssegnato  *decimal.Decimal
	CompensiLegaliRecuperato *decimal.Decimal
	InteressiAssegnato       *decimal.Decimal
	InteressiRecuperato      *decimal.Decimal
}

// UpdateFields applies a direct patch to the pratica. The pratica must be
// attivo; aperta does not matter (closed cases stay editable).
func (e *Engine) UpdateFields(ctx context.Context, id PraticaID, patch FieldPatch) (*Pratica, error) {
	var out *Pratica
	err := e.withTx(ctx, func(s Store) error {
		p, err := s.GetPratica(ctx, id)
		if err != nil {
			return err
		}
		if !p.Attivo {
			return fmt.Errorf("pratica %s: %w", id, ErrInactiveEntity)
		}

		if patch.Note != nil {
			p.Note = *patch.Note
		}
		if patch.DataAffidamento != nil {
			p.DataAffidamento = *patch.DataAffidamento
		}
		applyImporto(&p.Importi.Capitale, patch.CapitaleAssegnato, patch.CapitaleRecuperato)
		applyImporto(&p.Importi.Anticipazioni, patch.AnticipazioniAssegnato, patch.AnticipazioniRecuperato)
		applyImporto(&p.Importi.CompensiLegali, patch.CompensiLegaliAssegnato, patch.CompensiLegaliRecuperato)
		applyImporto(&p.Importi.Interessi, patch.InteressiAssegnato, patch.InteressiRecuperato)

		p.UpdatedAt = e.now().UTC()
		if err := s.SavePratica(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyImporto(c *ImportiCategoria, assegnato, recuperato *decimal.Decimal) {
	if assegnato != nil {
		c.Assegnato = *assegnato
	}
	if recuperato != nil {
		c.Recuperato = *recuperato
	}
}
