package pratica_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexromano87/recupero-crediti-sub000/factory"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
	"github.com/alexromano87/recupero-crediti-sub000/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*pratica.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog, err := factory.DefaultCatalog()
	require.NoError(t, err)

	seedRegistry(t, store)

	return pratica.NewEngine(catalog, store), store
}

func seedRegistry(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveCliente(ctx, pratica.Cliente{
		ID: "cli-1", Denominazione: "Banca Test S.p.A.", Attivo: true, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.SaveDebitore(ctx, pratica.Debitore{
		ID: "deb-1", Denominazione: "Debitore Test S.r.l.", Attivo: true, CreatedAt: time.Now().UTC(),
	}))
}

func openTestPratica(t *testing.T, engine *pratica.Engine) *pratica.Pratica {
	t.Helper()
	p, err := engine.Open(context.Background(), pratica.OpenParams{
		ClienteID:       "cli-1",
		DebitoreID:      "deb-1",
		DataAffidamento: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Importi: pratica.Importi{
			Capitale: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(10000)},
		},
	})
	require.NoError(t, err)
	return p
}

// =============================================================================
// INTAKE TESTS
// =============================================================================

func TestEngine_Open_StartsInFirstFase(t *testing.T) {
	// GIVEN: An active cliente and debitore
	// WHEN: A new pratica is opened
	// THEN: It sits in the first catalog fase, aperta and attiva, with one
	//       open storico entry starting at the data affidamento

	engine, store := newTestEngine(t)
	p := openTestPratica(t, engine)

	assert.Equal(t, pratica.FaseID("affidamento"), p.FaseID)
	assert.True(t, p.Aperta)
	assert.True(t, p.Attivo)
	assert.Equal(t, pratica.EsitoNone, p.Esito)

	require.Len(t, p.Storico, 1)
	assert.Equal(t, pratica.FaseID("affidamento"), p.Storico[0].FaseID)
	assert.Equal(t, "Affidamento", p.Storico[0].FaseNome)
	assert.Nil(t, p.Storico[0].DataFine)
	assert.Equal(t, p.DataAffidamento, p.Storico[0].DataInizio)

	// The aggregate persists and round-trips
	loaded, err := store.GetPratica(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.FaseID, loaded.FaseID)
	require.Len(t, loaded.Storico, 1)
	assert.True(t, loaded.Importi.Capitale.Assegnato.Equal(decimal.NewFromInt(10000)))
}

func TestEngine_Open_MissingCliente_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Open(context.Background(), pratica.OpenParams{
		DebitoreID:      "deb-1",
		DataAffidamento: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, pratica.ErrValidation)
}

func TestEngine_Open_UnknownCliente_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Open(context.Background(), pratica.OpenParams{
		ClienteID:       "cli-ghost",
		DebitoreID:      "deb-1",
		DataAffidamento: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, pratica.ErrClienteNotFound)
}

func TestEngine_Open_InactiveCliente_Rejected(t *testing.T) {
	// GIVEN: A deactivated cliente
	// WHEN: Opening a pratica for it
	// THEN: Intake is refused

	engine, store := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCliente(ctx, pratica.Cliente{
		ID: "cli-off", Denominazione: "Ex Cliente", Attivo: false, CreatedAt: time.Now().UTC(),
	}))

	_, err := engine.Open(ctx, pratica.OpenParams{
		ClienteID:       "cli-off",
		DebitoreID:      "deb-1",
		DataAffidamento: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, pratica.ErrInactiveEntity)
}

// =============================================================================
// ADVANCE TESTS
// =============================================================================

func TestEngine_Advance_ClosesOldEntryOpensNew(t *testing.T) {
	// GIVEN: A pratica in affidamento
	// WHEN: Advanced to diffida with a note
	// THEN: The affidamento entry closes carrying the note, a diffida
	//       entry opens, and FaseID moves

	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)

	updated, err := engine.Advance(context.Background(), p.ID, "diffida", "PEC inviata")
	require.NoError(t, err)

	assert.Equal(t, pratica.FaseID("diffida"), updated.FaseID)
	assert.True(t, updated.Aperta)

	require.Len(t, updated.Storico, 2)
	closed := updated.Storico[0]
	require.NotNil(t, closed.DataFine)
	assert.Equal(t, "PEC inviata", closed.Note)

	open := updated.Storico[1]
	assert.Equal(t, pratica.FaseID("diffida"), open.FaseID)
	assert.Equal(t, "Diffida", open.FaseNome)
	assert.Nil(t, open.DataFine)
	// The new entry starts when the old one ends
	assert.Equal(t, *closed.DataFine, open.DataInizio)
}

func TestEngine_Advance_OneOpenEntryAlways(t *testing.T) {
	// GIVEN: A pratica advanced through several phases
	// THEN: Exactly one storico entry stays open at every step

	engine, store := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	for _, fase := range []pratica.FaseID{"diffida", "piano-rientro", "decreto", "esecuzione"} {
		_, err := engine.Advance(ctx, p.ID, fase, "")
		require.NoError(t, err)

		loaded, err := store.GetPratica(ctx, p.ID)
		require.NoError(t, err)

		open := 0
		for _, entry := range loaded.Storico {
			if entry.DataFine == nil {
				open++
			}
		}
		assert.Equal(t, 1, open, "fase %s", fase)
	}
}

func TestEngine_Advance_SkippingPhases_Allowed(t *testing.T) {
	// Phase order is advisory: an escalation can jump straight from
	// affidamento to decreto ingiuntivo.

	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)

	updated, err := engine.Advance(context.Background(), p.ID, "decreto", "")
	require.NoError(t, err)
	assert.Equal(t, pratica.FaseID("decreto"), updated.FaseID)
}

func TestEngine_Advance_Backwards_Allowed(t *testing.T) {
	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	_, err := engine.Advance(ctx, p.ID, "decreto", "")
	require.NoError(t, err)

	// Back to a negotiation phase
	updated, err := engine.Advance(ctx, p.ID, "piano-rientro", "Accordo raggiunto in udienza")
	require.NoError(t, err)
	assert.Equal(t, pratica.FaseID("piano-rientro"), updated.FaseID)
	assert.Len(t, updated.Storico, 3)
}

func TestEngine_Advance_SameFase_NoOp(t *testing.T) {
	engine, store := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	_, err := engine.Advance(ctx, p.ID, "affidamento", "")
	assert.ErrorIs(t, err, pratica.ErrNoOpTransition)

	// No history grew
	loaded, err := store.GetPratica(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Storico, 1)
}

func TestEngine_Advance_UnknownFase_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)

	_, err := engine.Advance(context.Background(), p.ID, "fase-inventata", "")
	assert.ErrorIs(t, err, pratica.ErrFaseNotFound)

	var terr *pratica.TransitionError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, pratica.FaseID("affidamento"), terr.Da)
}

func TestEngine_Advance_UnknownPratica_NotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Advance(context.Background(), "nope", "diffida", "")
	assert.ErrorIs(t, err, pratica.ErrPraticaNotFound)
}

// =============================================================================
// CLOSURE TESTS
// =============================================================================

func TestEngine_Advance_ClosureFase_ClosesWithEsito(t *testing.T) {
	// GIVEN: An open pratica
	// WHEN: Advanced into a closure fase
	// THEN: Aperta flips false and the fase's default esito is recorded

	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)

	updated, err := engine.Advance(context.Background(), p.ID, "chiusa-positiva", "Saldo ricevuto")
	require.NoError(t, err)

	assert.False(t, updated.Aperta)
	assert.Equal(t, pratica.EsitoPositivo, updated.Esito)
	assert.Equal(t, pratica.FaseID("chiusa-positiva"), updated.FaseID)
}

func TestEngine_Advance_ClosedPratica_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	_, err := engine.Advance(ctx, p.ID, "chiusa-negativa", "")
	require.NoError(t, err)

	_, err = engine.Advance(ctx, p.ID, "diffida", "")
	assert.ErrorIs(t, err, pratica.ErrAlreadyClosed)
}

// =============================================================================
// REOPEN TESTS
// =============================================================================

func TestEngine_Reopen_ClearsEsitoKeepsStorico(t *testing.T) {
	// GIVEN: A pratica closed with esito negativo
	// WHEN: Reopened
	// THEN: Aperta true, esito cleared, storico untouched; the closed
	//       history entry stays closed until the next advance

	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	closed, err := engine.Advance(ctx, p.ID, "chiusa-negativa", "Nullatenente")
	require.NoError(t, err)
	require.Equal(t, pratica.EsitoNegativo, closed.Esito)
	historyLen := len(closed.Storico)

	reopened, err := engine.Reopen(ctx, p.ID)
	require.NoError(t, err)

	assert.True(t, reopened.Aperta)
	assert.Equal(t, pratica.EsitoNone, reopened.Esito)
	assert.Equal(t, pratica.FaseID("chiusa-negativa"), reopened.FaseID)
	assert.Len(t, reopened.Storico, historyLen)
	assert.Nil(t, reopened.StoricoAperto())

	// The next advance resumes normal history bookkeeping
	resumed, err := engine.Advance(ctx, p.ID, "esecuzione", "Nuovi beni pignorabili")
	require.NoError(t, err)
	require.NotNil(t, resumed.StoricoAperto())
	assert.Equal(t, pratica.FaseID("esecuzione"), resumed.StoricoAperto().FaseID)
}

func TestEngine_Reopen_OpenPratica_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)

	_, err := engine.Reopen(context.Background(), p.ID)
	assert.ErrorIs(t, err, pratica.ErrAlreadyOpen)
}

// =============================================================================
// VISIBILITY TESTS
// =============================================================================

func TestEngine_Deactivate_OrthogonalToLifecycle(t *testing.T) {
	// Attivo and Aperta are independent axes: hiding an open pratica does
	// not close it, and restoring it does not reopen anything.

	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	hidden, err := engine.Deactivate(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, hidden.Attivo)
	assert.True(t, hidden.Aperta)
	assert.Equal(t, p.FaseID, hidden.FaseID)

	restored, err := engine.Reactivate(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, restored.Attivo)
	assert.True(t, restored.Aperta)
}

func TestEngine_Advance_InactivePratica_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	_, err := engine.Deactivate(ctx, p.ID)
	require.NoError(t, err)

	_, err = engine.Advance(ctx, p.ID, "diffida", "")
	assert.ErrorIs(t, err, pratica.ErrInactiveEntity)

	_, err = engine.UpdateFields(ctx, p.ID, pratica.FieldPatch{})
	assert.ErrorIs(t, err, pratica.ErrInactiveEntity)
}

func TestEngine_Deactivate_HiddenFromDefaultListing(t *testing.T) {
	engine, store := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	_, err := engine.Deactivate(ctx, p.ID)
	require.NoError(t, err)

	visible, err := store.ListPratiche(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := store.ListPratiche(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// =============================================================================
// FIELD EDIT TESTS
// =============================================================================

func TestEngine_UpdateFields_PartialPatch(t *testing.T) {
	// Nil pointers leave fields alone; set pointers overwrite.

	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	note := "Pratica rinegoziata"
	recuperato := decimal.NewFromInt(2500)
	updated, err := engine.UpdateFields(ctx, p.ID, pratica.FieldPatch{
		Note:               &note,
		CapitaleRecuperato: &recuperato,
	})
	require.NoError(t, err)

	assert.Equal(t, "Pratica rinegoziata", updated.Note)
	assert.True(t, updated.Importi.Capitale.Recuperato.Equal(decimal.NewFromInt(2500)))
	// Untouched fields survive
	assert.True(t, updated.Importi.Capitale.Assegnato.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, p.DataAffidamento, updated.DataAffidamento)
}

func TestEngine_UpdateFields_ClosedPraticaStillEditable(t *testing.T) {
	engine, _ := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	_, err := engine.Advance(ctx, p.ID, "chiusa-positiva", "")
	require.NoError(t, err)

	note := "Nota post chiusura"
	updated, err := engine.UpdateFields(ctx, p.ID, pratica.FieldPatch{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, "Nota post chiusura", updated.Note)
	assert.False(t, updated.Aperta)
}

// =============================================================================
// FULL LIFECYCLE SCENARIO
// =============================================================================

func TestEngine_FullRecoveryArc(t *testing.T) {
	// A pratica walks the whole happy path and its storico reads back as
	// a contiguous, append-only timeline.

	engine, store := newTestEngine(t)
	p := openTestPratica(t, engine)
	ctx := context.Background()

	steps := []pratica.FaseID{"diffida", "piano-rientro", "chiusa-positiva"}
	for _, fase := range steps {
		_, err := engine.Advance(ctx, p.ID, fase, "")
		require.NoError(t, err)
	}

	final, err := store.GetPratica(ctx, p.ID)
	require.NoError(t, err)

	assert.False(t, final.Aperta)
	assert.Equal(t, pratica.EsitoPositivo, final.Esito)
	require.Len(t, final.Storico, 4)

	// Every entry but the last is closed, and each close matches the next
	// entry's start
	for i := 0; i < len(final.Storico)-1; i++ {
		require.NotNil(t, final.Storico[i].DataFine, "entry %d", i)
		assert.Equal(t, *final.Storico[i].DataFine, final.Storico[i+1].DataInizio)
	}
	require.NotNil(t, final.Storico[3].DataFine, "closure entry is closed too")
	assert.Equal(t, "Chiusa Positiva", final.Storico[3].FaseNome)
}
