/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts a JSON phase-catalog definition into a validated
  pratica.Catalog. The catalog is configuration, not case data: the firm
  defines its phases in JSON (or seeds the default below) and the factory
  builds the immutable catalog the engine runs against.

JSON SCHEMA:
  {
    "fasi": [
      {"id": "affidamento", "nome": "Affidamento", "ordine": 1, "colore": "#2563eb"},
      {"id": "diffida", "nome": "Diffida", "ordine": 2, "colore": "#d97706"},
      {"id": "chiusa-positiva", "nome": "Chiusa Positiva", "ordine": 90,
       "chiusura": true, "esito_default": "positivo", "colore": "#16a34a"}
    ]
  }

VALIDATION:
  Structural checks happen here (well-formed JSON, fasi present); the
  catalog invariants (unique ordine, at least one closure phase, esito
  defaults) are enforced by pratica.NewStaticCatalog.

USAGE:
  cat, err := factory.ParseCatalog(jsonString)
  engine := pratica.NewEngine(cat, store)

SEE ALSO:
  - pratica/catalog.go: Catalog contract and invariants
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/alexromano87/recupero-crediti-sub000/pratica"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of the phase catalog.
type CatalogJSON struct {
	Fasi []FaseJSON `json:"fasi"`
}

// FaseJSON is the JSON representation of one phase.
type FaseJSON struct {
	ID           string `json:"id"`
	Nome         string `json:"nome"`
	Ordine       int    `json:"ordine"`
	Chiusura     bool   `json:"chiusura,omitempty"`
	EsitoDefault string `json:"esito_default,omitempty"`
	Colore       string `json:"colore,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCatalog builds a validated catalog from its JSON definition.
func ParseCatalog(raw string) (*pratica.StaticCatalog, error) {
	var cfg CatalogJSON
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: malformed catalog json: %v", pratica.ErrValidation, err)
	}
	return BuildCatalog(cfg)
}

// BuildCatalog converts the decoded configuration into a catalog.
func BuildCatalog(cfg CatalogJSON) (*pratica.StaticCatalog, error) {
	fasi := make([]pratica.Fase, 0, len(cfg.Fasi))
	for _, f := range cfg.Fasi {
		fasi = append(fasi, pratica.Fase{
			ID:           pratica.FaseID(f.ID),
			Nome:         f.Nome,
			Ordine:       f.Ordine,
			Chiusura:     f.Chiusura,
			EsitoDefault: pratica.Esito(f.EsitoDefault),
			Colore:       f.Colore,
		})
	}
	return pratica.NewStaticCatalog(fasi)
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

// DefaultCatalogJSON is the stock recovery pipeline seeded on first run:
// intake, formal notice, payment plan, litigation, enforcement, and the
// two closure phases.
func DefaultCatalogJSON() string {
	return `{
  "fasi": [
    {"id": "affidamento",     "nome": "Affidamento",     "ordine": 1,  "colore": "#2563eb"},
    {"id": "diffida",         "nome": "Diffida",         "ordine": 2,  "colore": "#d97706"},
    {"id": "piano-rientro",   "nome": "Piano di Rientro","ordine": 3,  "colore": "#0891b2"},
    {"id": "decreto",         "nome": "Decreto Ingiuntivo", "ordine": 4, "colore": "#7c3aed"},
    {"id": "esecuzione",      "nome": "Esecuzione",      "ordine": 5,  "colore": "#be123c"},
    {"id": "chiusa-positiva", "nome": "Chiusa Positiva", "ordine": 90, "chiusura": true, "esito_default": "positivo", "colore": "#16a34a"},
    {"id": "chiusa-negativa", "nome": "Chiusa Negativa", "ordine": 91, "chiusura": true, "esito_default": "negativo", "colore": "#6b7280"}
  ]
}`
}

// DefaultCatalog builds the stock catalog. Panics are impossible here as
// the JSON above always validates; the error return keeps callers honest.
func DefaultCatalog() (*pratica.StaticCatalog, error) {
	return ParseCatalog(DefaultCatalogJSON())
}
