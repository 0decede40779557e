/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Pratica:
    PraticaDTO, StoricoFaseDTO, ImportiDTO, OpenPraticaRequest,
    AdvanceRequest, UpdatePraticaRequest
  Registry:
    ClienteDTO, DebitoreDTO and their Save requests
  Fasi:
    FaseDTO (wraps factory.FaseJSON for configuration endpoints)
  Movimenti:
    MovimentoDTO, RecordMovimentoRequest, UpdateMovimentoRequest,
    TotaliDTO
  Dependent rows:
    DocumentoDTO, AlertDTO, TicketDTO and their Create requests
  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts travel as JSON strings ("1234.56"), never floats. They are
  parsed into decimal.Decimal at the handler boundary.

VALIDATION:
  Validation is done in handlers and in the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: FaseJSON type
*/
package api

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PRATICA TYPES
// =============================================================================

// ImportiCategoriaDTO carries the assigned/recovered pair for one category.
type ImportiCategoriaDTO struct {
	Assegnato  string `json:"assegnato"`
	Recuperato string `json:"recuperato"`
}

// ImportiDTO carries the stored amounts of a pratica, per category.
type ImportiDTO struct {
	Capitale       ImportiCategoriaDTO `json:"capitale"`
	Anticipazioni  ImportiCategoriaDTO `json:"anticipazioni"`
	CompensiLegali ImportiCategoriaDTO `json:"compensi_legali"`
	Interessi      ImportiCategoriaDTO `json:"interessi"`
}

// StoricoFaseDTO is one phase history entry.
type StoricoFaseDTO struct {
	FaseID     string  `json:"fase_id"`
	FaseNome   string  `json:"fase_nome"`
	DataInizio string  `json:"data_inizio"`
	DataFine   *string `json:"data_fine,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// PraticaDTO represents a pratica in API responses.
type PraticaDTO struct {
	ID              string           `json:"id"`
	ClienteID       string           `json:"cliente_id"`
	DebitoreID      string           `json:"debitore_id"`
	FaseID          string           `json:"fase_id"`
	FaseNome        string           `json:"fase_nome,omitempty"`
	Aperta          bool             `json:"aperta"`
	Esito           string           `json:"esito,omitempty"`
	Attivo          bool             `json:"attivo"`
	Note            string           `json:"note,omitempty"`
	DataAffidamento string           `json:"data_affidamento"`
	Importi         ImportiDTO       `json:"importi"`
	Storico         []StoricoFaseDTO `json:"storico"`
	CreatedAt       string           `json:"created_at,omitempty"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}

// ImportiRequest carries optional assigned/recovered amounts as strings.
// Missing fields are left untouched.
type ImportiRequest struct {
	CapitaleAssegnato        *string `json:"capitale_assegnato,omitempty"`
	CapitaleRecuperato       *string `json:"capitale_recuperato,omitempty"`
	AnticipazioniAssegnato   *string `json:"anticipazioni_assegnato,omitempty"`
	AnticipazioniRecuperato  *string `json:"anticipazioni_recuperato,omitempty"`
	CompensiAssegnato        *string `json:"compensi_assegnato,omitempty"`
	CompensiRecuperato       *string `json:"compensi_recuperato,omitempty"`
	InteressiAssegnato       *string `json:"interessi_assegnato,omitempty"`
	InteressiRecuperato      *string `json:"interessi_recuperato,omitempty"`
}

// OpenPraticaRequest is the intake request.
type OpenPraticaRequest struct {
	ClienteID       string         `json:"cliente_id"`
	DebitoreID      string         `json:"debitore_id"`
	DataAffidamento string         `json:"data_affidamento"` // YYYY-MM-DD
	Note            string         `json:"note,omitempty"`
	Importi         ImportiRequest `json:"importi"`
}

// AdvanceRequest moves a pratica to a new phase.
type AdvanceRequest struct {
	FaseID string `json:"fase_id"`
	Note   string `json:"note,omitempty"`
}

// UpdatePraticaRequest patches descriptive fields of a pratica.
// Phase, lifecycle and visibility are driven by their own endpoints.
type UpdatePraticaRequest struct {
	Note            *string `json:"note,omitempty"`
	DataAffidamento *string `json:"data_affidamento,omitempty"` // YYYY-MM-DD
	ImportiRequest
}

// =============================================================================
// REGISTRY TYPES
// =============================================================================

// ClienteDTO represents a cliente in API responses.
type ClienteDTO struct {
	ID            string `json:"id"`
	Denominazione string `json:"denominazione"`
	Email         string `json:"email,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	Attivo        bool   `json:"attivo"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SaveClienteRequest creates or updates a cliente.
type SaveClienteRequest struct {
	Denominazione string `json:"denominazione"`
	Email         string `json:"email,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	Attivo        *bool  `json:"attivo,omitempty"`
}

// DebitoreDTO represents a debitore in API responses.
type DebitoreDTO struct {
	ID            string `json:"id"`
	Denominazione string `json:"denominazione"`
	CodiceFiscale string `json:"codice_fiscale,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	Attivo        bool   `json:"attivo"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SaveDebitoreRequest creates or updates a debitore.
type SaveDebitoreRequest struct {
	Denominazione string `json:"denominazione"`
	CodiceFiscale string `json:"codice_fiscale,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	Attivo        *bool  `json:"attivo,omitempty"`
}

// =============================================================================
// FASE TYPES
// =============================================================================

// FaseDTO represents a catalog phase in API responses.
type FaseDTO struct {
	ID           string `json:"id"`
	Nome         string `json:"nome"`
	Ordine       int    `json:"ordine"`
	Chiusura     bool   `json:"chiusura"`
	EsitoDefault string `json:"esito_default,omitempty"`
	Colore       string `json:"colore,omitempty"`
}

// =============================================================================
// MOVIMENTI TYPES
// =============================================================================

// MovimentoDTO represents a ledger entry in API responses.
type MovimentoDTO struct {
	ID        string `json:"id"`
	PraticaID string `json:"pratica_id"`
	Tipo      string `json:"tipo"`
	Importo   string `json:"importo"`
	Data      string `json:"data"`
	Oggetto   string `json:"oggetto,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// RecordMovimentoRequest records a new ledger entry.
type RecordMovimentoRequest struct {
	Tipo    string `json:"tipo"`
	Importo string `json:"importo"`
	Data    string `json:"data"` // YYYY-MM-DD
	Oggetto string `json:"oggetto,omitempty"`
}

// UpdateMovimentoRequest patches an existing ledger entry.
type UpdateMovimentoRequest struct {
	Tipo    *string `json:"tipo,omitempty"`
	Importo *string `json:"importo,omitempty"`
	Data    *string `json:"data,omitempty"` // YYYY-MM-DD
	Oggetto *string `json:"oggetto,omitempty"`
}

// TotaliCategoriaDTO carries aggregated amounts for one category.
type TotaliCategoriaDTO struct {
	Assegnato  string `json:"assegnato"`
	Recuperato string `json:"recuperato"`
}

// TotaliDTO is the per-category aggregation of a pratica's movimenti.
type TotaliDTO struct {
	PraticaID      string             `json:"pratica_id"`
	Capitale       TotaliCategoriaDTO `json:"capitale"`
	Anticipazioni  TotaliCategoriaDTO `json:"anticipazioni"`
	CompensiLegali TotaliCategoriaDTO `json:"compensi_legali"`
	Interessi      TotaliCategoriaDTO `json:"interessi"`
}

// =============================================================================
// DEPENDENT ROW TYPES (documenti, alerts, tickets)
// =============================================================================

// DocumentoDTO is a document record attached to a pratica. Metadata only;
// file contents live elsewhere.
type DocumentoDTO struct {
	ID        string `json:"id"`
	PraticaID string `json:"pratica_id"`
	Titolo    string `json:"titolo"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateDocumentoRequest attaches a document record.
type CreateDocumentoRequest struct {
	Titolo string `json:"titolo"`
}

// AlertDTO is a deadline reminder on a pratica.
type AlertDTO struct {
	ID        string  `json:"id"`
	PraticaID string  `json:"pratica_id"`
	Messaggio string  `json:"messaggio"`
	Scadenza  *string `json:"scadenza,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// CreateAlertRequest creates an alert.
type CreateAlertRequest struct {
	Messaggio string `json:"messaggio"`
	Scadenza  string `json:"scadenza,omitempty"` // YYYY-MM-DD
}

// TicketDTO is a work item on a pratica.
type TicketDTO struct {
	ID        string `json:"id"`
	PraticaID string `json:"pratica_id"`
	Oggetto   string `json:"oggetto"`
	Stato     string `json:"stato"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateTicketRequest creates a ticket. Stato defaults to "aperto".
type CreateTicketRequest struct {
	Oggetto string `json:"oggetto"`
	Stato   string `json:"stato,omitempty"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
