/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates clienti, debitori,
	pratiche at various lifecycle stages, and ledger movimenti.

AVAILABLE SCENARIOS:

	portafoglio-base:   A few fresh pratiche just after intake
	recupero-completo:  A full recovery arc closed with esito positivo
	contenzioso:        Escalated cases, one closed negative and reopened

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Re-seed the fase catalog
 3. Create clienti and debitori
 4. Open pratiche via the engine and advance them through phases
 5. Record movimenti on the ledger

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "recupero-completo"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to the loadScenario dispatch

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Reset handler
  - factory/catalog.go: Default fase catalog
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alexromano87/recupero-crediti-sub000/movimenti"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "portafoglio-base",
		Name:        "Portafoglio Base",
		Description: "Fresh pratiche just after intake, nothing advanced yet",
	},
	{
		ID:          "recupero-completo",
		Name:        "Recupero Completo",
		Description: "Full recovery arc: diffida, piano di rientro, closed with esito positivo",
	},
	{
		ID:          "contenzioso",
		Name:        "Contenzioso",
		Description: "Escalated cases: decreto ingiuntivo, esecuzione, one closed negative and reopened",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

var errUnknownScenario = errors.New("unknown scenario")

// loadScenario wipes the store, re-seeds the fase catalog (Reset takes the
// fasi table with it) and replays the named scenario.
func (h *Handler) loadScenario(ctx context.Context, id string) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.currentScenario = ""

	if err := h.Store.SaveFasi(ctx, h.Catalog.ListOrdered()); err != nil {
		return err
	}

	var err error
	switch id {
	case "portafoglio-base":
		err = h.loadPortafoglioBaseScenario(ctx)
	case "recupero-completo":
		err = h.loadRecuperoCompletoScenario(ctx)
	case "contenzioso":
		err = h.loadContenziosoScenario(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownScenario, id)
	}
	if err != nil {
		return err
	}

	h.currentScenario = id
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) seedRegistry(ctx context.Context) error {
	now := time.Now().UTC()
	clienti := []pratica.Cliente{
		{ID: "cli-banca-lombarda", Denominazione: "Banca Lombarda S.p.A.", Email: "recupero@bancalombarda.example", Telefono: "02 1234567", Attivo: true, CreatedAt: now},
		{ID: "cli-energia-piu", Denominazione: "Energia Più S.r.l.", Email: "amministrazione@energiapiu.example", Attivo: true, CreatedAt: now},
	}
	for _, c := range clienti {
		if err := h.Store.SaveCliente(ctx, c); err != nil {
			return err
		}
	}

	debitori := []pratica.Debitore{
		{ID: "deb-rossi", Denominazione: "Rossi Costruzioni S.r.l.", CodiceFiscale: "04857210963", Attivo: true, CreatedAt: now},
		{ID: "deb-bianchi", Denominazione: "Bianchi Mario", CodiceFiscale: "BNCMRA75T10F205X", Telefono: "333 9876543", Attivo: true, CreatedAt: now},
		{ID: "deb-verdi", Denominazione: "Verdi Trasporti S.n.c.", CodiceFiscale: "09184520157", Attivo: true, CreatedAt: now},
	}
	for _, d := range debitori {
		if err := h.Store.SaveDebitore(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadPortafoglioBaseScenario(ctx context.Context) error {
	if err := h.seedRegistry(ctx); err != nil {
		return err
	}

	// Three fresh pratiche, still in the intake phase
	intakes := []pratica.OpenParams{
		{
			ClienteID:       "cli-banca-lombarda",
			DebitoreID:      "deb-rossi",
			DataAffidamento: time.Now().UTC().AddDate(0, 0, -7),
			Note:            "Scoperto di conto corrente",
			Importi: pratica.Importi{
				Capitale: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(15000)},
			},
		},
		{
			ClienteID:       "cli-banca-lombarda",
			DebitoreID:      "deb-bianchi",
			DataAffidamento: time.Now().UTC().AddDate(0, 0, -3),
			Importi: pratica.Importi{
				Capitale:  pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(4200)},
				Interessi: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(310)},
			},
		},
		{
			ClienteID:       "cli-energia-piu",
			DebitoreID:      "deb-verdi",
			DataAffidamento: time.Now().UTC().AddDate(0, 0, -1),
			Note:            "Fatture insolute 2025",
			Importi: pratica.Importi{
				Capitale: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(8750)},
			},
		},
	}

	for _, params := range intakes {
		if _, err := h.Engine.Open(ctx, params); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadRecuperoCompletoScenario(ctx context.Context) error {
	if err := h.seedRegistry(ctx); err != nil {
		return err
	}

	// One pratica walked through the whole happy path
	p, err := h.Engine.Open(ctx, pratica.OpenParams{
		ClienteID:       "cli-banca-lombarda",
		DebitoreID:      "deb-bianchi",
		DataAffidamento: time.Now().UTC().AddDate(0, -6, 0),
		Note:            "Prestito personale in sofferenza",
		Importi: pratica.Importi{
			Capitale:  pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(12000)},
			Interessi: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(840)},
		},
	})
	if err != nil {
		return err
	}

	steps := []struct {
		fase pratica.FaseID
		note string
	}{
		{"diffida", "Diffida inviata a mezzo PEC"},
		{"piano-rientro", "Accordo: 6 rate mensili da 2.140"},
		{"chiusa-positiva", "Saldo integrale ricevuto"},
	}
	for _, step := range steps {
		if _, err := h.Engine.Advance(ctx, p.ID, step.fase, step.note); err != nil {
			return err
		}
	}

	// Ledger: assigned amounts plus the staged recoveries
	entries := []struct {
		tipo    movimenti.Tipo
		importo int64
		daysAgo int
		oggetto string
	}{
		{movimenti.TipoCapitale, 12000, 180, "Capitale affidato"},
		{movimenti.TipoInteressi, 840, 180, "Interessi moratori"},
		{movimenti.TipoAnticipazione, 120, 150, "Spese notifica diffida"},
		{movimenti.TipoRecuperoCapitale, 6000, 90, "Rate 1-3 piano di rientro"},
		{movimenti.TipoRecuperoCapitale, 6000, 15, "Rate 4-6 piano di rientro"},
		{movimenti.TipoRecuperoInteressi, 840, 15, "Interessi a saldo"},
		{movimenti.TipoRecuperoAnticipazione, 120, 15, "Rimborso spese"},
	}
	for _, e := range entries {
		data := time.Now().UTC().AddDate(0, 0, -e.daysAgo)
		if _, err := h.Ledger.Record(ctx, p.ID, e.tipo, decimal.NewFromInt(e.importo), data, e.oggetto); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadContenziosoScenario(ctx context.Context) error {
	if err := h.seedRegistry(ctx); err != nil {
		return err
	}

	// First pratica: escalated into enforcement, still open
	p1, err := h.Engine.Open(ctx, pratica.OpenParams{
		ClienteID:       "cli-energia-piu",
		DebitoreID:      "deb-rossi",
		DataAffidamento: time.Now().UTC().AddDate(-1, 0, 0),
		Note:            "Forniture non pagate, debitore irreperibile",
		Importi: pratica.Importi{
			Capitale:       pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(47500)},
			CompensiLegali: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(3200)},
		},
	})
	if err != nil {
		return err
	}
	escalation := []struct {
		fase pratica.FaseID
		note string
	}{
		{"diffida", "Nessun riscontro alla diffida"},
		{"decreto", "Decreto ingiuntivo n. 1842/2026"},
		{"esecuzione", "Pignoramento presso terzi"},
	}
	for _, step := range escalation {
		if _, err := h.Engine.Advance(ctx, p1.ID, step.fase, step.note); err != nil {
			return err
		}
	}
	if _, err := h.Ledger.Record(ctx, p1.ID, movimenti.TipoAnticipazione,
		decimal.NewFromInt(980), time.Now().UTC().AddDate(0, -2, 0), "Contributo unificato e notifiche"); err != nil {
		return err
	}

	// Second pratica: closed negative, then reopened after new assets surfaced
	p2, err := h.Engine.Open(ctx, pratica.OpenParams{
		ClienteID:       "cli-banca-lombarda",
		DebitoreID:      "deb-verdi",
		DataAffidamento: time.Now().UTC().AddDate(-2, 0, 0),
		Importi: pratica.Importi{
			Capitale: pratica.ImportiCategoria{Assegnato: decimal.NewFromInt(22000)},
		},
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.Advance(ctx, p2.ID, "diffida", ""); err != nil {
		return err
	}
	if _, err := h.Engine.Advance(ctx, p2.ID, "chiusa-negativa", "Nullatenenza accertata"); err != nil {
		return err
	}
	if _, err := h.Engine.Reopen(ctx, p2.ID); err != nil {
		return err
	}
	return nil
}
