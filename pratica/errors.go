/*
errors.go - Centralized error taxonomy for the case engine

PURPOSE:
  All domain errors in one place. Every violated precondition aborts the
  whole operation with no partial effect; nothing is retried or swallowed
  inside the core. The API layer maps these to HTTP statuses.

ERROR CATEGORIES:
  1. Not-found errors - Unknown pratica, fase, movimento, cliente, debitore
  2. Validation errors - Non-positive amounts, malformed input
  3. Lifecycle errors - State-machine precondition violations
  4. Referential errors - Deletes blocked by dependent rows

USAGE:
  if errors.Is(err, pratica.ErrAlreadyClosed) { ... }
  if pratica.IsNotFound(err) { ... }
*/
package pratica

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPraticaNotFound is returned when a referenced pratica doesn't exist.
	ErrPraticaNotFound = errors.New("pratica not found")

	// ErrFaseNotFound is returned when a fase id is not in the catalog.
	ErrFaseNotFound = errors.New("fase not found")

	// ErrMovimentoNotFound is returned when a referenced movimento doesn't exist.
	ErrMovimentoNotFound = errors.New("movimento not found")

	// ErrClienteNotFound is returned when a referenced cliente doesn't exist.
	ErrClienteNotFound = errors.New("cliente not found")

	// ErrDebitoreNotFound is returned when a referenced debitore doesn't exist.
	ErrDebitoreNotFound = errors.New("debitore not found")

	// ErrValidation is returned for invalid input (e.g. importo <= 0).
	ErrValidation = errors.New("validation error")

	// ErrInactiveEntity is returned when an operation targets a
	// soft-deleted (attivo == false) record.
	ErrInactiveEntity = errors.New("entity is deactivated")

	// ErrAlreadyClosed is returned when advancing a closed pratica.
	// A closed case must be reopened before it can advance again.
	ErrAlreadyClosed = errors.New("pratica already closed")

	// ErrAlreadyOpen is returned when reopening an open pratica.
	ErrAlreadyOpen = errors.New("pratica already open")

	// ErrNoOpTransition is returned when advancing to the current phase.
	// Same-phase transitions are rejected, not silently accepted.
	ErrNoOpTransition = errors.New("transition to current fase")

	// ErrReferentialConflict is returned when a delete is blocked because
	// dependent rows exist.
	ErrReferentialConflict = errors.New("referential conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports a rejected phase transition with both endpoints.
type TransitionError struct {
	PraticaID PraticaID
	Da        FaseID
	A         FaseID
	Reason    error // one of the sentinel errors above
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s: %s -> %s: %v", e.PraticaID, e.Da, e.A, e.Reason)
}

func (e *TransitionError) Unwrap() error { return e.Reason }

// ReferentialConflictError reports which dependents block a delete.
type ReferentialConflictError struct {
	Entity     string // "pratica", "cliente", "debitore"
	ID         string
	Dipendenze []string // e.g. ["movimenti", "documenti"]
}

func (e *ReferentialConflictError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: referenced by %v", e.Entity, e.ID, e.Dipendenze)
}

func (e *ReferentialConflictError) Unwrap() error { return ErrReferentialConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPraticaNotFound) ||
		errors.Is(err, ErrFaseNotFound) ||
		errors.Is(err, ErrMovimentoNotFound) ||
		errors.Is(err, ErrClienteNotFound) ||
		errors.Is(err, ErrDebitoreNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNoOpTransition)
}

// IsConflict returns true for lifecycle and referential conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClosed) ||
		errors.Is(err, ErrAlreadyOpen) ||
		errors.Is(err, ErrReferentialConflict)
}
