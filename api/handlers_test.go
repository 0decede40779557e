/*
handlers_test.go - HTTP-level tests for the REST API

Exercises the full stack (router, handlers, engine, ledger, sqlite store)
through httptest, with a focus on the status code mapping of domain errors.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexromano87/recupero-crediti-sub000/factory"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
	"github.com/alexromano87/recupero-crediti-sub000/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog, err := factory.DefaultCatalog()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.SaveCliente(ctx, pratica.Cliente{
		ID: "cli-1", Denominazione: "Banca Test", Attivo: true, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.SaveDebitore(ctx, pratica.Debitore{
		ID: "deb-1", Denominazione: "Debitore Test", Attivo: true, CreatedAt: time.Now().UTC(),
	}))

	return NewRouter(NewHandler(store, catalog))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func openPraticaHTTP(t *testing.T, h http.Handler) PraticaDTO {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/pratiche", OpenPraticaRequest{
		ClienteID:       "cli-1",
		DebitoreID:      "deb-1",
		DataAffidamento: "2026-03-01",
		Importi: ImportiRequest{
			CapitaleAssegnato: strPtr("10000.00"),
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[PraticaDTO](t, rec)
}

func strPtr(s string) *string { return &s }

// =============================================================================
// PRATICA LIFECYCLE OVER HTTP
// =============================================================================

func TestAPI_OpenAdvanceClose(t *testing.T) {
	// GIVEN: A fresh intake
	// WHEN: The pratica is advanced to diffida and then to a closure phase
	// THEN: Every response reflects the lifecycle and the storico grows

	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	assert.Equal(t, "affidamento", p.FaseID)
	assert.Equal(t, "Affidamento", p.FaseNome)
	assert.True(t, p.Aperta)
	assert.True(t, p.Attivo)
	assert.Equal(t, "10000.00", p.Importi.Capitale.Assegnato)
	require.Len(t, p.Storico, 1)
	assert.Nil(t, p.Storico[0].DataFine)

	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "diffida", Note: "PEC inviata"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	advanced := decode[PraticaDTO](t, rec)
	assert.Equal(t, "diffida", advanced.FaseID)
	require.Len(t, advanced.Storico, 2)
	assert.NotNil(t, advanced.Storico[0].DataFine)
	assert.Equal(t, "PEC inviata", advanced.Storico[0].Note)

	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "chiusa-positiva"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[PraticaDTO](t, rec)
	assert.False(t, closed.Aperta)
	assert.Equal(t, "positivo", closed.Esito)

	// GET returns the same terminal state
	rec = doJSON(t, h, http.MethodGet, "/api/pratiche/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[PraticaDTO](t, rec)
	assert.Equal(t, "chiusa-positiva", got.FaseID)
	assert.Len(t, got.Storico, 3)
}

func TestAPI_Reopen(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "chiusa-negativa"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/riapri", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reopened := decode[PraticaDTO](t, rec)
	assert.True(t, reopened.Aperta)
	assert.Empty(t, reopened.Esito)

	// Reopening an open pratica conflicts
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/riapri", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_VisibilityToggle(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/disattiva", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Hidden from the default listing
	rec = doJSON(t, h, http.MethodGet, "/api/pratiche", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]PraticaDTO](t, rec))

	rec = doJSON(t, h, http.MethodGet, "/api/pratiche?include_inactive=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]PraticaDTO](t, rec), 1)

	// A hidden pratica cannot advance
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "diffida"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/riattiva", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[PraticaDTO](t, rec).Attivo)
}

func TestAPI_UpdatePratica(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodPatch, "/api/pratiche/"+p.ID, UpdatePraticaRequest{
		Note: strPtr("Rinegoziata"),
		ImportiRequest: ImportiRequest{
			CapitaleRecuperato: strPtr("2500.00"),
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[PraticaDTO](t, rec)
	assert.Equal(t, "Rinegoziata", updated.Note)
	assert.Equal(t, "2500.00", updated.Importi.Capitale.Recuperato)
	assert.Equal(t, "10000.00", updated.Importi.Capitale.Assegnato)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_StatusCodes(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	// Unknown pratica -> 404
	rec := doJSON(t, h, http.MethodGet, "/api/pratiche/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown fase -> 404
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "fase-inventata"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing fase_id -> 400
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza", AdvanceRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Transition to the current fase -> 400
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "affidamento"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Intake without a cliente -> 400
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche", OpenPraticaRequest{
		DebitoreID: "deb-1", DataAffidamento: "2026-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad date format -> 400
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche", OpenPraticaRequest{
		ClienteID: "cli-1", DebitoreID: "deb-1", DataAffidamento: "01/03/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Advancing a closed pratica -> 409
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "chiusa-negativa"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/avanza",
		AdvanceRequest{FaseID: "diffida"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, body.Error)
}

func TestAPI_DeletePratica_Guarded(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/movimenti",
		RecordMovimentoRequest{Tipo: "anticipazione", Importo: "120.00", Data: "2026-03-05"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mov := decode[MovimentoDTO](t, rec)

	// Blocked while ledger entries exist
	rec = doJSON(t, h, http.MethodDelete, "/api/pratiche/"+p.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/movimenti/"+mov.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/pratiche/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/pratiche/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// MOVIMENTI OVER HTTP
// =============================================================================

func TestAPI_MovimentiAndTotali(t *testing.T) {
	// GIVEN: Assignments and partial recoveries recorded over HTTP
	// WHEN: Totals are requested
	// THEN: The ledger-derived sums come back per category

	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	entries := []RecordMovimentoRequest{
		{Tipo: "capitale", Importo: "12000.00", Data: "2026-03-01", Oggetto: "Capitale affidato"},
		{Tipo: "recupero_capitale", Importo: "4000.00", Data: "2026-04-01", Oggetto: "Prima rata"},
		{Tipo: "recupero_capitale", Importo: "4000.00", Data: "2026-05-01", Oggetto: "Seconda rata"},
		{Tipo: "anticipazione", Importo: "150.00", Data: "2026-03-10"},
	}
	for _, e := range entries {
		rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/movimenti", e)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodGet, "/api/pratiche/"+p.ID+"/movimenti", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]MovimentoDTO](t, rec)
	require.Len(t, listed, 4)
	// Sorted by movement date
	assert.Equal(t, "Capitale affidato", listed[0].Oggetto)
	assert.Equal(t, "Seconda rata", listed[3].Oggetto)

	rec = doJSON(t, h, http.MethodGet, "/api/pratiche/"+p.ID+"/totali", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totali := decode[TotaliDTO](t, rec)
	assert.Equal(t, p.ID, totali.PraticaID)
	assert.Equal(t, "12000.00", totali.Capitale.Assegnato)
	assert.Equal(t, "8000.00", totali.Capitale.Recuperato)
	assert.Equal(t, "150.00", totali.Anticipazioni.Assegnato)
	assert.Equal(t, "0", totali.Interessi.Recuperato)
}

func TestAPI_UpdateMovimento(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/movimenti",
		RecordMovimentoRequest{Tipo: "compenso", Importo: "500.00", Data: "2026-03-05"})
	require.Equal(t, http.StatusCreated, rec.Code)
	mov := decode[MovimentoDTO](t, rec)

	rec = doJSON(t, h, http.MethodPut, "/api/movimenti/"+mov.ID, UpdateMovimentoRequest{
		Importo: strPtr("550.00"),
		Oggetto: strPtr("Compenso rettificato"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[MovimentoDTO](t, rec)
	assert.Equal(t, "550.00", updated.Importo)
	assert.Equal(t, "Compenso rettificato", updated.Oggetto)
	assert.Equal(t, "compenso", updated.Tipo)

	// Invalid tipo on update -> 400
	rec = doJSON(t, h, http.MethodPut, "/api/movimenti/"+mov.ID, UpdateMovimentoRequest{
		Tipo: strPtr("storno"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown movimento -> 404
	rec = doJSON(t, h, http.MethodPut, "/api/movimenti/mov-ghost", UpdateMovimentoRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_RecordMovimento_Validation(t *testing.T) {
	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	tests := []struct {
		name string
		req  RecordMovimentoRequest
		want int
	}{
		{"unknown tipo", RecordMovimentoRequest{Tipo: "bonus", Importo: "10", Data: "2026-03-01"}, http.StatusBadRequest},
		{"zero importo", RecordMovimentoRequest{Tipo: "capitale", Importo: "0", Data: "2026-03-01"}, http.StatusBadRequest},
		{"bad importo", RecordMovimentoRequest{Tipo: "capitale", Importo: "dieci", Data: "2026-03-01"}, http.StatusBadRequest},
		{"bad date", RecordMovimentoRequest{Tipo: "capitale", Importo: "10", Data: "marzo"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/movimenti", tc.req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	// Unknown pratica -> 404
	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/pra-ghost/movimenti",
		RecordMovimentoRequest{Tipo: "capitale", Importo: "10", Data: "2026-03-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REGISTRY OVER HTTP
// =============================================================================

func TestAPI_ClientiCRUD(t *testing.T) {
	h := newTestAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/api/clienti", SaveClienteRequest{
		Denominazione: "Energia Più S.p.A.",
		Email:         "crediti@energiapiu.example",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ClienteDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Attivo, "attivo defaults to true")

	rec = doJSON(t, h, http.MethodPut, "/api/clienti/"+created.ID, SaveClienteRequest{
		Telefono: "02 1234567",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[ClienteDTO](t, rec)
	assert.Equal(t, "Energia Più S.p.A.", updated.Denominazione, "empty denominazione keeps the old one")
	assert.Equal(t, "02 1234567", updated.Telefono)

	rec = doJSON(t, h, http.MethodGet, "/api/clienti", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// The seeded cliente plus the created one
	assert.Len(t, decode[[]ClienteDTO](t, rec), 2)

	rec = doJSON(t, h, http.MethodDelete, "/api/clienti/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/clienti/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_DeleteCliente_WithOpenPratica(t *testing.T) {
	h := newTestAPI(t)
	openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodDelete, "/api/clienti/cli-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// DEPENDENT ROWS
// =============================================================================

func TestAPI_DocumentiAlertsTickets(t *testing.T) {
	// Dependent rows attach to a pratica and block its deletion.

	h := newTestAPI(t)
	p := openPraticaHTTP(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/documenti",
		CreateDocumentoRequest{Titolo: "Diffida PEC.pdf"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/alerts",
		CreateAlertRequest{Messaggio: "Scadenza termini opposizione", Scadenza: "2026-04-15"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alert := decode[AlertDTO](t, rec)
	require.NotNil(t, alert.Scadenza)
	assert.Equal(t, "2026-04-15", *alert.Scadenza)

	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/tickets",
		CreateTicketRequest{Oggetto: "Richiedere visura aggiornata"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "aperto", decode[TicketDTO](t, rec).Stato)

	rec = doJSON(t, h, http.MethodGet, "/api/pratiche/"+p.ID+"/documenti", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decode[[]DocumentoDTO](t, rec)
	require.Len(t, docs, 1)
	assert.Equal(t, "Diffida PEC.pdf", docs[0].Titolo)

	// All three block deletion
	rec = doJSON(t, h, http.MethodDelete, "/api/pratiche/"+p.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Missing required fields -> 400
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/"+p.ID+"/documenti", CreateDocumentoRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown pratica -> 404
	rec = doJSON(t, h, http.MethodPost, "/api/pratiche/pra-ghost/tickets",
		CreateTicketRequest{Oggetto: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ListFasi(t *testing.T) {
	h := newTestAPI(t)

	rec := doJSON(t, h, http.MethodGet, "/api/fasi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fasi := decode[[]FaseDTO](t, rec)
	require.Len(t, fasi, 7)
	assert.Equal(t, "affidamento", fasi[0].ID)
	assert.Equal(t, 1, fasi[0].Ordine)
	last := fasi[len(fasi)-1]
	assert.True(t, last.Chiusura)
	assert.Equal(t, "negativo", last.EsitoDefault)
}

func TestAPI_InvalidBody(t *testing.T) {
	h := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/pratiche", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
