/*
handlers.go - HTTP API handlers for the case management engine

PURPOSE:
  Exposes the pratica lifecycle engine and the financial ledger via REST
  API. Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Pratiche:
    GET    /api/pratiche                    List (active only by default)
    POST   /api/pratiche                    Open a new pratica (intake)
    GET    /api/pratiche/{id}               Get full aggregate
    PATCH  /api/pratiche/{id}               Update descriptive fields
    DELETE /api/pratiche/{id}               Physical delete (guarded)
    POST   /api/pratiche/{id}/avanza        Advance to a new phase
    POST   /api/pratiche/{id}/riapri        Reopen a closed pratica
    POST   /api/pratiche/{id}/disattiva     Hide (soft delete)
    POST   /api/pratiche/{id}/riattiva      Restore visibility
    GET    /api/pratiche/{id}/storico       Phase history
    GET    /api/pratiche/{id}/movimenti     Ledger entries
    POST   /api/pratiche/{id}/movimenti     Record a ledger entry
    GET    /api/pratiche/{id}/totali        Ledger aggregation

  Movimenti:
    PUT    /api/movimenti/{id}              Update a ledger entry
    DELETE /api/movimenti/{id}              Delete a ledger entry

  Registry:
    GET/POST       /api/clienti             List / create
    GET/PUT/DELETE /api/clienti/{id}
    GET/POST       /api/debitori            List / create
    GET/PUT/DELETE /api/debitori/{id}

  Configuration:
    GET    /api/fasi                        Phase catalog, ordered

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario
    POST   /api/reset                       Wipe the database (dev only)

ERROR HANDLING:
  Domain errors map to HTTP status via statusFor:
  - 400: Validation errors, no-op transitions, bad input
  - 404: Unknown pratica / fase / cliente / debitore / movimento
  - 409: Already closed, already open, referential conflicts
  - 422: Transition attempted on a deactivated pratica
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alexromano87/recupero-crediti-sub000/movimenti"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
	"github.com/alexromano87/recupero-crediti-sub000/store/sqlite"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *pratica.Engine
	Ledger  *movimenti.Ledger
	Catalog pratica.Catalog

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler wired to the given store and catalog.
func NewHandler(store *sqlite.Store, catalog pratica.Catalog) *Handler {
	return &Handler{
		Store:   store,
		Engine:  pratica.NewEngine(catalog, store),
		Ledger:  movimenti.NewLedger(store),
		Catalog: catalog,
	}
}

// =============================================================================
// PRATICA HANDLERS
// =============================================================================

// ListPratiche returns all pratiche. Deactivated ones are included only
// with ?include_inactive=true.
func (h *Handler) ListPratiche(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	pratiche, err := h.Store.ListPratiche(r.Context(), includeInactive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pratiche", err)
		return
	}

	dtos := make([]PraticaDTO, len(pratiche))
	for i, p := range pratiche {
		dtos[i] = h.toPraticaDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPratica returns a single pratica with its full phase history.
func (h *Handler) GetPratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	p, err := h.Store.GetPratica(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPraticaDTO(p))
}

// OpenPratica performs intake: creates the pratica in the first catalog
// phase with one open history entry.
func (h *Handler) OpenPratica(w http.ResponseWriter, r *http.Request) {
	var req OpenPraticaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dataAffidamento, err := time.Parse(dateLayout, req.DataAffidamento)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data_affidamento format (use YYYY-MM-DD)", err)
		return
	}

	var importi pratica.Importi
	if err := applyImportiRequest(&importi, req.Importi); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid importo value", err)
		return
	}

	p, err := h.Engine.Open(r.Context(), pratica.OpenParams{
		ClienteID:       pratica.ClienteID(req.ClienteID),
		DebitoreID:      pratica.DebitoreID(req.DebitoreID),
		DataAffidamento: dataAffidamento,
		Note:            req.Note,
		Importi:         importi,
	})
	if err != nil {
		writeError(w, statusFor(err), "Failed to open pratica", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toPraticaDTO(p))
}

// UpdatePratica patches descriptive fields. Phase and lifecycle changes
// go through their dedicated endpoints.
func (h *Handler) UpdatePratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	var req UpdatePraticaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var patch pratica.FieldPatch
	patch.Note = req.Note
	if req.DataAffidamento != nil {
		t, err := time.Parse(dateLayout, *req.DataAffidamento)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid data_affidamento format (use YYYY-MM-DD)", err)
			return
		}
		patch.DataAffidamento = &t
	}
	if err := fillImportiPatch(&patch, req.ImportiRequest); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid importo value", err)
		return
	}

	p, err := h.Engine.UpdateFields(r.Context(), id, patch)
	if err != nil {
		writeError(w, statusFor(err), "Failed to update pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPraticaDTO(p))
}

// DeletePratica physically removes a pratica. Refused while dependent
// rows (movimenti, documenti, alerts, tickets) still reference it.
func (h *Handler) DeletePratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	if err := h.Store.DeletePratica(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete pratica", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdvancePratica moves a pratica to a new phase.
func (h *Handler) AdvancePratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FaseID) == "" {
		writeError(w, http.StatusBadRequest, "fase_id is required", nil)
		return
	}

	p, err := h.Engine.Advance(r.Context(), id, pratica.FaseID(req.FaseID), req.Note)
	if err != nil {
		writeError(w, statusFor(err), "Failed to advance pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPraticaDTO(p))
}

// ReopenPratica reopens a closed pratica, clearing its esito. The phase
// history is left untouched.
func (h *Handler) ReopenPratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	p, err := h.Engine.Reopen(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to reopen pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPraticaDTO(p))
}

// DeactivatePratica hides a pratica from normal views.
func (h *Handler) DeactivatePratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	p, err := h.Engine.Deactivate(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to deactivate pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPraticaDTO(p))
}

// ReactivatePratica restores a hidden pratica.
func (h *Handler) ReactivatePratica(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	p, err := h.Engine.Reactivate(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to reactivate pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPraticaDTO(p))
}

// GetStorico returns the phase history of a pratica, oldest first.
func (h *Handler) GetStorico(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	p, err := h.Store.GetPratica(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get pratica", err)
		return
	}
	writeJSON(w, http.StatusOK, toStoricoDTOs(p.Storico))
}

// =============================================================================
// MOVIMENTI HANDLERS
// =============================================================================

// ListMovimenti returns the ledger entries of a pratica.
func (h *Handler) ListMovimenti(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	movs, err := h.Ledger.ListByPratica(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to list movimenti", err)
		return
	}

	dtos := make([]MovimentoDTO, len(movs))
	for i, m := range movs {
		dtos[i] = toMovimentoDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordMovimento records a new ledger entry for a pratica.
func (h *Handler) RecordMovimento(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	var req RecordMovimentoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	importo, err := decimal.NewFromString(req.Importo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid importo (use a decimal string)", err)
		return
	}
	data, err := time.Parse(dateLayout, req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format (use YYYY-MM-DD)", err)
		return
	}

	m, err := h.Ledger.Record(r.Context(), id, movimenti.Tipo(req.Tipo), importo, data, req.Oggetto)
	if err != nil {
		writeError(w, statusFor(err), "Failed to record movimento", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovimentoDTO(*m))
}

// UpdateMovimento patches an existing ledger entry.
func (h *Handler) UpdateMovimento(w http.ResponseWriter, r *http.Request) {
	id := movimenti.MovimentoID(chi.URLParam(r, "id"))

	var req UpdateMovimentoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var patch movimenti.Patch
	if req.Tipo != nil {
		tipo := movimenti.Tipo(*req.Tipo)
		patch.Tipo = &tipo
	}
	if req.Importo != nil {
		importo, err := decimal.NewFromString(*req.Importo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid importo (use a decimal string)", err)
			return
		}
		patch.Importo = &importo
	}
	if req.Data != nil {
		data, err := time.Parse(dateLayout, *req.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid data format (use YYYY-MM-DD)", err)
			return
		}
		patch.Data = &data
	}
	patch.Oggetto = req.Oggetto

	m, err := h.Ledger.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, statusFor(err), "Failed to update movimento", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovimentoDTO(*m))
}

// DeleteMovimento removes a ledger entry.
func (h *Handler) DeleteMovimento(w http.ResponseWriter, r *http.Request) {
	id := movimenti.MovimentoID(chi.URLParam(r, "id"))

	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete movimento", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTotali returns the per-category aggregation of a pratica's ledger.
// These are derived from the movimenti and are independent from the
// amounts stored on the pratica itself.
func (h *Handler) GetTotali(w http.ResponseWriter, r *http.Request) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	totali, err := h.Ledger.Totali(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to compute totali", err)
		return
	}

	writeJSON(w, http.StatusOK, TotaliDTO{
		PraticaID:      string(id),
		Capitale:       toTotaliCategoriaDTO(totali.Capitale),
		Anticipazioni:  toTotaliCategoriaDTO(totali.Anticipazioni),
		CompensiLegali: toTotaliCategoriaDTO(totali.CompensiLegali),
		Interessi:      toTotaliCategoriaDTO(totali.Interessi),
	})
}

// =============================================================================
// REGISTRY HANDLERS - CLIENTI
// =============================================================================

// ListClienti returns all clienti.
func (h *Handler) ListClienti(w http.ResponseWriter, r *http.Request) {
	clienti, err := h.Store.ListClienti(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clienti", err)
		return
	}

	dtos := make([]ClienteDTO, len(clienti))
	for i, c := range clienti {
		dtos[i] = toClienteDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCliente returns a single cliente.
func (h *Handler) GetCliente(w http.ResponseWriter, r *http.Request) {
	id := pratica.ClienteID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCliente(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get cliente", err)
		return
	}
	writeJSON(w, http.StatusOK, toClienteDTO(*c))
}

// CreateCliente creates a new cliente.
func (h *Handler) CreateCliente(w http.ResponseWriter, r *http.Request) {
	var req SaveClienteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Denominazione) == "" {
		writeError(w, http.StatusBadRequest, "denominazione is required", nil)
		return
	}

	c := pratica.Cliente{
		ID:            pratica.ClienteID(uuid.NewString()),
		Denominazione: req.Denominazione,
		Email:         req.Email,
		Telefono:      req.Telefono,
		Attivo:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if req.Attivo != nil {
		c.Attivo = *req.Attivo
	}

	if err := h.Store.SaveCliente(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create cliente", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClienteDTO(c))
}

// UpdateCliente updates an existing cliente.
func (h *Handler) UpdateCliente(w http.ResponseWriter, r *http.Request) {
	id := pratica.ClienteID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetCliente(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get cliente", err)
		return
	}

	var req SaveClienteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.Denominazione) != "" {
		existing.Denominazione = req.Denominazione
	}
	existing.Email = req.Email
	existing.Telefono = req.Telefono
	if req.Attivo != nil {
		existing.Attivo = *req.Attivo
	}

	if err := h.Store.SaveCliente(r.Context(), *existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update cliente", err)
		return
	}
	writeJSON(w, http.StatusOK, toClienteDTO(*existing))
}

// DeleteCliente removes a cliente. Refused while open pratiche reference it.
func (h *Handler) DeleteCliente(w http.ResponseWriter, r *http.Request) {
	id := pratica.ClienteID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteCliente(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete cliente", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REGISTRY HANDLERS - DEBITORI
// =============================================================================

// ListDebitori returns all debitori.
func (h *Handler) ListDebitori(w http.ResponseWriter, r *http.Request) {
	debitori, err := h.Store.ListDebitori(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list debitori", err)
		return
	}

	dtos := make([]DebitoreDTO, len(debitori))
	for i, d := range debitori {
		dtos[i] = toDebitoreDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDebitore returns a single debitore.
func (h *Handler) GetDebitore(w http.ResponseWriter, r *http.Request) {
	id := pratica.DebitoreID(chi.URLParam(r, "id"))

	d, err := h.Store.GetDebitore(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get debitore", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebitoreDTO(*d))
}

// CreateDebitore creates a new debitore.
func (h *Handler) CreateDebitore(w http.ResponseWriter, r *http.Request) {
	var req SaveDebitoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Denominazione) == "" {
		writeError(w, http.StatusBadRequest, "denominazione is required", nil)
		return
	}

	d := pratica.Debitore{
		ID:            pratica.DebitoreID(uuid.NewString()),
		Denominazione: req.Denominazione,
		CodiceFiscale: req.CodiceFiscale,
		Telefono:      req.Telefono,
		Attivo:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if req.Attivo != nil {
		d.Attivo = *req.Attivo
	}

	if err := h.Store.SaveDebitore(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create debitore", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebitoreDTO(d))
}

// UpdateDebitore updates an existing debitore.
func (h *Handler) UpdateDebitore(w http.ResponseWriter, r *http.Request) {
	id := pratica.DebitoreID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetDebitore(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get debitore", err)
		return
	}

	var req SaveDebitoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.Denominazione) != "" {
		existing.Denominazione = req.Denominazione
	}
	existing.CodiceFiscale = req.CodiceFiscale
	existing.Telefono = req.Telefono
	if req.Attivo != nil {
		existing.Attivo = *req.Attivo
	}

	if err := h.Store.SaveDebitore(r.Context(), *existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update debitore", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebitoreDTO(*existing))
}

// DeleteDebitore removes a debitore. Refused while open pratiche reference it.
func (h *Handler) DeleteDebitore(w http.ResponseWriter, r *http.Request) {
	id := pratica.DebitoreID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteDebitore(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete debitore", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DEPENDENT ROW HANDLERS (documenti, alerts, tickets)
// =============================================================================

// praticaExists resolves the pratica referenced in the URL, writing the
// error response on a miss.
func (h *Handler) praticaExists(w http.ResponseWriter, r *http.Request) (pratica.PraticaID, bool) {
	id := pratica.PraticaID(chi.URLParam(r, "id"))

	exists, err := h.Store.PraticaExists(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check pratica", err)
		return id, false
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Pratica not found", pratica.ErrPraticaNotFound)
		return id, false
	}
	return id, true
}

// ListDocumenti returns the document records attached to a pratica.
func (h *Handler) ListDocumenti(w http.ResponseWriter, r *http.Request) {
	id, ok := h.praticaExists(w, r)
	if !ok {
		return
	}

	docs, err := h.Store.ListDocumenti(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documenti", err)
		return
	}

	dtos := make([]DocumentoDTO, len(docs))
	for i, d := range docs {
		dtos[i] = DocumentoDTO{
			ID:        d.ID,
			PraticaID: string(d.PraticaID),
			Titolo:    d.Titolo,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDocumento attaches a document record to a pratica.
func (h *Handler) CreateDocumento(w http.ResponseWriter, r *http.Request) {
	id, ok := h.praticaExists(w, r)
	if !ok {
		return
	}

	var req CreateDocumentoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Titolo == "" {
		writeError(w, http.StatusBadRequest, "titolo is required", nil)
		return
	}

	d := sqlite.Documento{
		ID:        uuid.NewString(),
		PraticaID: id,
		Titolo:    req.Titolo,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveDocumento(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save documento", err)
		return
	}
	writeJSON(w, http.StatusCreated, DocumentoDTO{
		ID: d.ID, PraticaID: string(d.PraticaID), Titolo: d.Titolo,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	})
}

// ListAlerts returns the deadline reminders on a pratica.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.praticaExists(w, r)
	if !ok {
		return
	}

	alerts, err := h.Store.ListAlerts(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts", err)
		return
	}

	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dto := AlertDTO{
			ID:        a.ID,
			PraticaID: string(a.PraticaID),
			Messaggio: a.Messaggio,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		}
		if a.Scadenza != nil {
			s := a.Scadenza.Format(dateLayout)
			dto.Scadenza = &s
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAlert creates a deadline reminder on a pratica.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.praticaExists(w, r)
	if !ok {
		return
	}

	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Messaggio == "" {
		writeError(w, http.StatusBadRequest, "messaggio is required", nil)
		return
	}

	a := sqlite.Alert{
		ID:        uuid.NewString(),
		PraticaID: id,
		Messaggio: req.Messaggio,
		CreatedAt: time.Now().UTC(),
	}
	if req.Scadenza != "" {
		scadenza, err := time.Parse(dateLayout, req.Scadenza)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid scadenza format (use YYYY-MM-DD)", err)
			return
		}
		a.Scadenza = &scadenza
	}
	if err := h.Store.SaveAlert(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save alert", err)
		return
	}

	dto := AlertDTO{
		ID: a.ID, PraticaID: string(a.PraticaID), Messaggio: a.Messaggio,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.Scadenza != nil {
		s := a.Scadenza.Format(dateLayout)
		dto.Scadenza = &s
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListTickets returns the work items on a pratica.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.praticaExists(w, r)
	if !ok {
		return
	}

	tickets, err := h.Store.ListTickets(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tickets", err)
		return
	}

	dtos := make([]TicketDTO, len(tickets))
	for i, tk := range tickets {
		dtos[i] = TicketDTO{
			ID:        tk.ID,
			PraticaID: string(tk.PraticaID),
			Oggetto:   tk.Oggetto,
			Stato:     tk.Stato,
			CreatedAt: tk.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTicket creates a work item on a pratica.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.praticaExists(w, r)
	if !ok {
		return
	}

	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Oggetto == "" {
		writeError(w, http.StatusBadRequest, "oggetto is required", nil)
		return
	}
	if req.Stato == "" {
		req.Stato = "aperto"
	}

	tk := sqlite.Ticket{
		ID:        uuid.NewString(),
		PraticaID: id,
		Oggetto:   req.Oggetto,
		Stato:     req.Stato,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveTicket(r.Context(), tk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save ticket", err)
		return
	}
	writeJSON(w, http.StatusCreated, TicketDTO{
		ID: tk.ID, PraticaID: string(tk.PraticaID), Oggetto: tk.Oggetto,
		Stato: tk.Stato, CreatedAt: tk.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// ListFasi returns the phase catalog in workflow order.
func (h *Handler) ListFasi(w http.ResponseWriter, r *http.Request) {
	fasi := h.Catalog.ListOrdered()

	dtos := make([]FaseDTO, len(fasi))
	for i, f := range fasi {
		dtos[i] = FaseDTO{
			ID:           string(f.ID),
			Nome:         f.Nome,
			Ordine:       f.Ordine,
			Chiusura:     f.Chiusura,
			EsitoDefault: string(f.EsitoDefault),
			Colore:       f.Colore,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Reset wipes the database. Dev only.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// statusFor maps domain errors to HTTP status codes. Transition errors
// unwrap to their precondition sentinel, so errors.Is sees through them.
func statusFor(err error) int {
	switch {
	case pratica.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, pratica.ErrInactiveEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pratica.ErrAlreadyClosed),
		errors.Is(err, pratica.ErrAlreadyOpen),
		errors.Is(err, pratica.ErrReferentialConflict):
		return http.StatusConflict
	case errors.Is(err, pratica.ErrValidation),
		errors.Is(err, pratica.ErrNoOpTransition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func (h *Handler) toPraticaDTO(p *pratica.Pratica) PraticaDTO {
	dto := PraticaDTO{
		ID:              string(p.ID),
		ClienteID:       string(p.ClienteID),
		DebitoreID:      string(p.DebitoreID),
		FaseID:          string(p.FaseID),
		Aperta:          p.Aperta,
		Esito:           string(p.Esito),
		Attivo:          p.Attivo,
		Note:            p.Note,
		DataAffidamento: p.DataAffidamento.Format(dateLayout),
		Importi: ImportiDTO{
			Capitale:       toImportiCategoriaDTO(p.Importi.Capitale),
			Anticipazioni:  toImportiCategoriaDTO(p.Importi.Anticipazioni),
			CompensiLegali: toImportiCategoriaDTO(p.Importi.CompensiLegali),
			Interessi:      toImportiCategoriaDTO(p.Importi.Interessi),
		},
		Storico:   toStoricoDTOs(p.Storico),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
	if f, err := h.Catalog.Get(p.FaseID); err == nil {
		dto.FaseNome = f.Nome
	}
	return dto
}

func toStoricoDTOs(storico []pratica.StoricoFase) []StoricoFaseDTO {
	dtos := make([]StoricoFaseDTO, len(storico))
	for i, s := range storico {
		dtos[i] = StoricoFaseDTO{
			FaseID:     string(s.FaseID),
			FaseNome:   s.FaseNome,
			DataInizio: s.DataInizio.Format(time.RFC3339),
			Note:       s.Note,
		}
		if s.DataFine != nil {
			fine := s.DataFine.Format(time.RFC3339)
			dtos[i].DataFine = &fine
		}
	}
	return dtos
}

func toImportiCategoriaDTO(c pratica.ImportiCategoria) ImportiCategoriaDTO {
	return ImportiCategoriaDTO{
		Assegnato:  c.Assegnato.String(),
		Recuperato: c.Recuperato.String(),
	}
}

func toTotaliCategoriaDTO(c movimenti.TotaliCategoria) TotaliCategoriaDTO {
	return TotaliCategoriaDTO{
		Assegnato:  c.Assegnato.String(),
		Recuperato: c.Recuperato.String(),
	}
}

func toMovimentoDTO(m movimenti.Movimento) MovimentoDTO {
	return MovimentoDTO{
		ID:        string(m.ID),
		PraticaID: string(m.PraticaID),
		Tipo:      string(m.Tipo),
		Importo:   m.Importo.String(),
		Data:      m.Data.Format(dateLayout),
		Oggetto:   m.Oggetto,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}

func toClienteDTO(c pratica.Cliente) ClienteDTO {
	return ClienteDTO{
		ID:            string(c.ID),
		Denominazione: c.Denominazione,
		Email:         c.Email,
		Telefono:      c.Telefono,
		Attivo:        c.Attivo,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

func toDebitoreDTO(d pratica.Debitore) DebitoreDTO {
	return DebitoreDTO{
		ID:            string(d.ID),
		Denominazione: d.Denominazione,
		CodiceFiscale: d.CodiceFiscale,
		Telefono:      d.Telefono,
		Attivo:        d.Attivo,
		CreatedAt:     d.CreatedAt.Format(time.RFC3339),
	}
}

// applyImportiRequest parses intake amounts into the stored Importi.
func applyImportiRequest(importi *pratica.Importi, req ImportiRequest) error {
	set := func(dst *decimal.Decimal, src *string) error {
		if src == nil {
			return nil
		}
		d, err := decimal.NewFromString(*src)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	if err := set(&importi.Capitale.Assegnato, req.CapitaleAssegnato); err != nil {
		return err
	}
	if err := set(&importi.Capitale.Recuperato, req.CapitaleRecuperato); err != nil {
		return err
	}
	if err := set(&importi.Anticipazioni.Assegnato, req.AnticipazioniAssegnato); err != nil {
		return err
	}
	if err := set(&importi.Anticipazioni.Recuperato, req.AnticipazioniRecuperato); err != nil {
		return err
	}
	if err := set(&importi.CompensiLegali.Assegnato, req.CompensiAssegnato); err != nil {
		return err
	}
	if err := set(&importi.CompensiLegali.Recuperato, req.CompensiRecuperato); err != nil {
		return err
	}
	if err := set(&importi.Interessi.Assegnato, req.InteressiAssegnato); err != nil {
		return err
	}
	return set(&importi.Interessi.Recuperato, req.InteressiRecuperato)
}

// fillImportiPatch parses patch amounts into the engine's FieldPatch.
func fillImportiPatch(patch *pratica.FieldPatch, req ImportiRequest) error {
	parse := func(src *string) (*decimal.Decimal, error) {
		if src == nil {
			return nil, nil
		}
		d, err := decimal.NewFromString(*src)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}

	var err error
	if patch.CapitaleAssegnato, err = parse(req.CapitaleAssegnato); err != nil {
		return err
	}
	if patch.CapitaleRecuperato, err = parse(req.CapitaleRecuperato); err != nil {
		return err
	}
	if patch.AnticipazioniAssegnato, err = parse(req.AnticipazioniAssegnato); err != nil {
		return err
	}
	if patch.AnticipazioniRecuperato, err = parse(req.AnticipazioniRecuperato); err != nil {
		return err
	}
	if patch.CompensiLegaliAssegnato, err = parse(req.CompensiAssegnato); err != nil {
		return err
	}
	if patch.CompensiLegaliRecuperato, err = parse(req.CompensiRecuperato); err != nil {
		return err
	}
	if patch.InteressiAssegnato, err = parse(req.InteressiAssegnato); err != nil {
		return err
	}
	patch.InteressiRecuperato, err = parse(req.InteressiRecuperato)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
