// Package memory provides in-memory Store implementations (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexromano87/recupero-crediti-sub000/movimenti"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
)

// =============================================================================
// MEMORY STORE - Implements pratica.TxStore, pratica.RegistryStore,
// movimenti.Store
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serializes WithTx sections; transition read-then-write must not interleave

	pratiche map[pratica.PraticaID]*pratica.Pratica
	clienti  map[pratica.ClienteID]pratica.Cliente
	debitori map[pratica.DebitoreID]pratica.Debitore
	movs     map[movimenti.MovimentoID]movimenti.Movimento
}

func New() *Memory {
	return &Memory{
		pratiche: make(map[pratica.PraticaID]*pratica.Pratica),
		clienti:  make(map[pratica.ClienteID]pratica.Cliente),
		debitori: make(map[pratica.DebitoreID]pratica.Debitore),
		movs:     make(map[movimenti.MovimentoID]movimenti.Movimento),
	}
}

// =============================================================================
// PRATICA STORE
// =============================================================================

func (m *Memory) GetPratica(_ context.Context, id pratica.PraticaID) (*pratica.Pratica, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pratiche[id]
	if !ok {
		return nil, fmt.Errorf("pratica %s: %w", id, pratica.ErrPraticaNotFound)
	}
	return clonePratica(p), nil
}

func (m *Memory) SavePratica(_ context.Context, p *pratica.Pratica) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pratiche[p.ID] = clonePratica(p)
	return nil
}

// WithTx runs fn against the store, restoring the pratiche map on error so
// a failed operation leaves no partial effect.
func (m *Memory) WithTx(ctx context.Context, fn func(pratica.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshotPratiche()
	if err := fn(m); err != nil {
		m.restorePratiche(snapshot)
		return err
	}
	return nil
}

func (m *Memory) snapshotPratiche() map[pratica.PraticaID]*pratica.Pratica {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := make(map[pratica.PraticaID]*pratica.Pratica, len(m.pratiche))
	for id, p := range m.pratiche {
		snap[id] = clonePratica(p)
	}
	return snap
}

func (m *Memory) restorePratiche(snap map[pratica.PraticaID]*pratica.Pratica) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pratiche = snap
}

func clonePratica(p *pratica.Pratica) *pratica.Pratica {
	cp := *p
	cp.Storico = make([]pratica.StoricoFase, len(p.Storico))
	copy(cp.Storico, p.Storico)
	for i := range cp.Storico {
		if p.Storico[i].DataFine != nil {
			fine := *p.Storico[i].DataFine
			cp.Storico[i].DataFine = &fine
		}
	}
	return &cp
}

// =============================================================================
// REGISTRY
// =============================================================================

func (m *Memory) SaveCliente(_ context.Context, c pratica.Cliente) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clienti[c.ID] = c
	return nil
}

func (m *Memory) SaveDebitore(_ context.Context, d pratica.Debitore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debitori[d.ID] = d
	return nil
}

func (m *Memory) ClienteAttivo(_ context.Context, id pratica.ClienteID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clienti[id]
	if !ok {
		return false, fmt.Errorf("cliente %s: %w", id, pratica.ErrClienteNotFound)
	}
	return c.Attivo, nil
}

func (m *Memory) DebitoreAttivo(_ context.Context, id pratica.DebitoreID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.debitori[id]
	if !ok {
		return false, fmt.Errorf("debitore %s: %w", id, pratica.ErrDebitoreNotFound)
	}
	return d.Attivo, nil
}

// =============================================================================
// MOVIMENTI STORE
// =============================================================================

func (m *Memory) InsertMovimento(_ context.Context, mov movimenti.Movimento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movs[mov.ID] = mov
	return nil
}

func (m *Memory) GetMovimento(_ context.Context, id movimenti.MovimentoID) (*movimenti.Movimento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mov, ok := m.movs[id]
	if !ok {
		return nil, fmt.Errorf("movimento %s: %w", id, pratica.ErrMovimentoNotFound)
	}
	return &mov, nil
}

func (m *Memory) UpdateMovimento(_ context.Context, mov movimenti.Movimento) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.movs[mov.ID]; !ok {
		return fmt.Errorf("movimento %s: %w", mov.ID, pratica.ErrMovimentoNotFound)
	}
	m.movs[mov.ID] = mov
	return nil
}

func (m *Memory) DeleteMovimento(_ context.Context, id movimenti.MovimentoID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.movs[id]; !ok {
		return fmt.Errorf("movimento %s: %w", id, pratica.ErrMovimentoNotFound)
	}
	delete(m.movs, id)
	return nil
}

func (m *Memory) ListByPratica(_ context.Context, id pratica.PraticaID) ([]movimenti.Movimento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []movimenti.Movimento
	for _, mov := range m.movs {
		if mov.PraticaID == id {
			out = append(out, mov)
		}
	}
	return out, nil
}

func (m *Memory) PraticaExists(_ context.Context, id pratica.PraticaID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.pratiche[id]
	return ok, nil
}
