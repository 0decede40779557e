/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements pratica.TxStore, pratica.RegistryStore and movimenti.Store,
  plus the registry tables (clienti, debitori), the fase catalog table and
  the dependent workflow tables (documenti, alerts, tickets) whose rows
  block physical deletion of a pratica.

KEY TABLES:
  fasi:          Phase catalog (configuration, seeded at startup)
  clienti:       Client registry
  debitori:      Debtor registry
  pratiche:      Case aggregate scalar fields
  storico_fasi:  Phase history, ordered child rows of a pratica
  movimenti:     Financial ledger entries
  documenti / alerts / tickets: dependent rows (delete guards)

ATOMICITY & CONCURRENCY:
  WithTx wraps a closure in a single SQL transaction, and sync.RWMutex
  around the connection serializes whole transition sections, so two
  advances on the same pratica can never both observe it open. The
  three-part advance effect (close the open history entry, append the new
  one, flip the aggregate fields) commits or rolls back as one unit.

MONEY:
  Decimal values are stored as TEXT and parsed back through
  shopspring/decimal. Never floats.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/pratiche.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - pratica/store.go: Interface contracts
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/alexromano87/recupero-crediti-sub000/movimenti"
	"github.com/alexromano87/recupero-crediti-sub000/pratica"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Phase catalog (configuration, read-only to the engine)
	CREATE TABLE IF NOT EXISTS fasi (
		id TEXT PRIMARY KEY,
		nome TEXT NOT NULL,
		ordine INTEGER NOT NULL UNIQUE,
		chiusura BOOLEAN NOT NULL DEFAULT FALSE,
		esito_default TEXT NOT NULL DEFAULT '',
		colore TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Registry
	CREATE TABLE IF NOT EXISTS clienti (
		id TEXT PRIMARY KEY,
		denominazione TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		telefono TEXT NOT NULL DEFAULT '',
		attivo BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS debitori (
		id TEXT PRIMARY KEY,
		denominazione TEXT NOT NULL,
		codice_fiscale TEXT NOT NULL DEFAULT '',
		telefono TEXT NOT NULL DEFAULT '',
		attivo BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Case aggregate
	CREATE TABLE IF NOT EXISTS pratiche (
		id TEXT PRIMARY KEY,
		cliente_id TEXT NOT NULL,
		debitore_id TEXT NOT NULL,
		fase_id TEXT NOT NULL,
		capitale_assegnato TEXT NOT NULL DEFAULT '0',
		capitale_recuperato TEXT NOT NULL DEFAULT '0',
		anticipazioni_assegnato TEXT NOT NULL DEFAULT '0',
		anticipazioni_recuperato TEXT NOT NULL DEFAULT '0',
		compensi_assegnato TEXT NOT NULL DEFAULT '0',
		compensi_recuperato TEXT NOT NULL DEFAULT '0',
		interessi_assegnato TEXT NOT NULL DEFAULT '0',
		interessi_recuperato TEXT NOT NULL DEFAULT '0',
		aperta BOOLEAN NOT NULL DEFAULT TRUE,
		esito TEXT NOT NULL DEFAULT '',
		attivo BOOLEAN NOT NULL DEFAULT TRUE,
		note TEXT NOT NULL DEFAULT '',
		data_affidamento TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pratiche_cliente ON pratiche(cliente_id);
	CREATE INDEX IF NOT EXISTS idx_pratiche_debitore ON pratiche(debitore_id);
	CREATE INDEX IF NOT EXISTS idx_pratiche_attivo ON pratiche(attivo);

	-- Phase history: ordered child rows, rewritten with the aggregate
	CREATE TABLE IF NOT EXISTS storico_fasi (
		pratica_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		fase_id TEXT NOT NULL,
		fase_nome TEXT NOT NULL,
		data_inizio TEXT NOT NULL,
		data_fine TEXT,
		note TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (pratica_id, seq)
	);

	-- Financial ledger
	CREATE TABLE IF NOT EXISTS movimenti (
		id TEXT PRIMARY KEY,
		pratica_id TEXT NOT NULL,
		tipo TEXT NOT NULL,
		importo TEXT NOT NULL,
		data TEXT NOT NULL,
		oggetto TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movimenti_pratica ON movimenti(pratica_id);
	CREATE INDEX IF NOT EXISTS idx_movimenti_tipo ON movimenti(tipo);

	-- Dependent workflow rows. Thin on purpose: their existence is what
	-- matters to the deletion guard.
	CREATE TABLE IF NOT EXISTS documenti (
		id TEXT PRIMARY KEY,
		pratica_id TEXT NOT NULL,
		titolo TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documenti_pratica ON documenti(pratica_id);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		pratica_id TEXT NOT NULL,
		messaggio TEXT NOT NULL,
		scadenza TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_pratica ON alerts(pratica_id);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		pratica_id TEXT NOT NULL,
		oggetto TEXT NOT NULL,
		stato TEXT NOT NULL DEFAULT 'aperto',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_pratica ON tickets(pratica_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PRATICA STORE (pratica.TxStore interface)
// =============================================================================

// GetPratica loads the full aggregate including the phase history.
func (s *Store) GetPratica(ctx context.Context, id pratica.PraticaID) (*pratica.Pratica, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPratica(ctx, s.db, id)
}

func getPratica(ctx context.Context, db dbtx, id pratica.PraticaID) (*pratica.Pratica, error) {
	var (
		p                pratica.Pratica
		capA, capR       string
		antA, antR       string
		comA, comR       string
		intA, intR       string
		dataAffidamento  string
		created, updated string
	)

	err := db.QueryRowContext(ctx, `
		SELECT id, cliente_id, debitore_id, fase_id,
		       capitale_assegnato, capitale_recuperato,
		       anticipazioni_assegnato, anticipazioni_recuperato,
		       compensi_assegnato, compensi_recuperato,
		       interessi_assegnato, interessi_recuperato,
		       aperta, esito, attivo, note, data_affidamento, created_at, updated_at
		FROM pratiche WHERE id = ?`, id,
	).Scan(
		&p.ID, &p.ClienteID, &p.DebitoreID, &p.FaseID,
		&capA, &capR, &antA, &antR, &comA, &comR, &intA, &intR,
		&p.Aperta, &p.Esito, &p.Attivo, &p.Note, &dataAffidamento, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pratica %s: %w", id, pratica.ErrPraticaNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pratica: %w", err)
	}

	p.Importi = pratica.Importi{
		Capitale:       pratica.ImportiCategoria{Assegnato: parseDecimal(capA), Recuperato: parseDecimal(capR)},
		Anticipazioni:  pratica.ImportiCategoria{Assegnato: parseDecimal(antA), Recuperato: parseDecimal(antR)},
		CompensiLegali: pratica.ImportiCategoria{Assegnato: parseDecimal(comA), Recuperato: parseDecimal(comR)},
		Interessi:      pratica.ImportiCategoria{Assegnato: parseDecimal(intA), Recuperato: parseDecimal(intR)},
	}
	p.DataAffidamento = parseTime(dataAffidamento)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)

	rows, err := db.QueryContext(ctx, `
		SELECT fase_id, fase_nome, data_inizio, data_fine, note
		FROM storico_fasi WHERE pratica_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load storico: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry      pratica.StoricoFase
			dataInizio string
			dataFine   sql.NullString
		)
		if err := rows.Scan(&entry.FaseID, &entry.FaseNome, &dataInizio, &dataFine, &entry.Note); err != nil {
			return nil, fmt.Errorf("failed to scan storico entry: %w", err)
		}
		entry.DataInizio = parseTime(dataInizio)
		if dataFine.Valid {
			t := parseTime(dataFine.String)
			entry.DataFine = &t
		}
		p.Storico = append(p.Storico, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

// SavePratica writes the full aggregate. The storico child rows are
// rewritten wholesale: they are few per pratica and only the engine
// mutates them, inside WithTx.
func (s *Store) SavePratica(ctx context.Context, p *pratica.Pratica) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePratica(ctx, s.db, p)
}

func savePratica(ctx context.Context, db dbtx, p *pratica.Pratica) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pratiche
		(id, cliente_id, debitore_id, fase_id,
		 capitale_assegnato, capitale_recuperato,
		 anticipazioni_assegnato, anticipazioni_recuperato,
		 compensi_assegnato, compensi_recuperato,
		 interessi_assegnato, interessi_recuperato,
		 aperta, esito, attivo, note, data_affidamento, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cliente_id = excluded.cliente_id,
			debitore_id = excluded.debitore_id,
			fase_id = excluded.fase_id,
			capitale_assegnato = excluded.capitale_assegnato,
			capitale_recuperato = excluded.capitale_recuperato,
			anticipazioni_assegnato = excluded.anticipazioni_assegnato,
			anticipazioni_recuperato = excluded.anticipazioni_recuperato,
			compensi_assegnato = excluded.compensi_assegnato,
			compensi_recuperato = excluded.compensi_recuperato,
			interessi_assegnato = excluded.interessi_assegnato,
			interessi_recuperato = excluded.interessi_recuperato,
			aperta = excluded.aperta,
			esito = excluded.esito,
			attivo = excluded.attivo,
			note = excluded.note,
			data_affidamento = excluded.data_affidamento,
			updated_at = excluded.updated_at`,
		p.ID, p.ClienteID, p.DebitoreID, p.FaseID,
		p.Importi.Capitale.Assegnato.String(), p.Importi.Capitale.Recuperato.String(),
		p.Importi.Anticipazioni.Assegnato.String(), p.Importi.Anticipazioni.Recuperato.String(),
		p.Importi.CompensiLegali.Assegnato.String(), p.Importi.CompensiLegali.Recuperato.String(),
		p.Importi.Interessi.Assegnato.String(), p.Importi.Interessi.Recuperato.String(),
		p.Aperta, string(p.Esito), p.Attivo, p.Note,
		formatTime(p.DataAffidamento), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save pratica: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM storico_fasi WHERE pratica_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to rewrite storico: %w", err)
	}
	for i, entry := range p.Storico {
		var dataFine *string
		if entry.DataFine != nil {
			f := formatTime(*entry.DataFine)
			dataFine = &f
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO storico_fasi (pratica_id, seq, fase_id, fase_nome, data_inizio, data_fine, note)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, entry.FaseID, entry.FaseNome, formatTime(entry.DataInizio), dataFine, entry.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to save storico entry: %w", err)
		}
	}
	return nil
}

// WithTx executes fn within a database transaction. The store mutex is
// held for the whole section: transition preconditions are read-then-write
// and must not interleave.
func (s *Store) WithTx(ctx context.Context, fn func(pratica.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetPratica(ctx context.Context, id pratica.PraticaID) (*pratica.Pratica, error) {
	return getPratica(ctx, ts.tx, id)
}

func (ts *txStore) SavePratica(ctx context.Context, p *pratica.Pratica) error {
	return savePratica(ctx, ts.tx, p)
}

// ListPratiche returns all pratiche, newest first. Deactivated ones are
// hidden unless includeInactive is set.
func (s *Store) ListPratiche(ctx context.Context, includeInactive bool) ([]*pratica.Pratica, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id FROM pratiche"
	if !includeInactive {
		query += " WHERE attivo = TRUE"
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []pratica.PraticaID
	for rows.Next() {
		var id pratica.PraticaID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*pratica.Pratica, 0, len(ids))
	for _, id := range ids {
		p, err := getPratica(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// DeletePratica physically removes a pratica and its storico. Rejected
// with ReferentialConflictError while movimenti, documenti, alerts or
// tickets still reference it.
func (s *Store) DeletePratica(ctx context.Context, id pratica.PraticaID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pratiche WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("pratica %s: %w", id, pratica.ErrPraticaNotFound)
	}

	var dipendenze []string
	for _, table := range []string{"movimenti", "documenti", "alerts", "tickets"} {
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE pratica_id = ?", table)
		if err := s.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			dipendenze = append(dipendenze, table)
		}
	}
	if len(dipendenze) > 0 {
		return &pratica.ReferentialConflictError{Entity: "pratica", ID: string(id), Dipendenze: dipendenze}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM storico_fasi WHERE pratica_id = ?", id); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM pratiche WHERE id = ?", id); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// REGISTRY STORE (pratica.RegistryStore interface)
// =============================================================================

// SaveCliente creates or updates a cliente.
func (s *Store) SaveCliente(ctx context.Context, c pratica.Cliente) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clienti (id, denominazione, email, telefono, attivo, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			denominazione = excluded.denominazione,
			email = excluded.email,
			telefono = excluded.telefono,
			attivo = excluded.attivo`,
		c.ID, c.Denominazione, c.Email, c.Telefono, c.Attivo, formatTime(c.CreatedAt),
	)
	return err
}

// GetCliente retrieves a cliente by id.
func (s *Store) GetCliente(ctx context.Context, id pratica.ClienteID) (*pratica.Cliente, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c pratica.Cliente
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, denominazione, email, telefono, attivo, created_at FROM clienti WHERE id = ?", id,
	).Scan(&c.ID, &c.Denominazione, &c.Email, &c.Telefono, &c.Attivo, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cliente %s: %w", id, pratica.ErrClienteNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}

// ListClienti returns all clienti ordered by denominazione.
func (s *Store) ListClienti(ctx context.Context) ([]pratica.Cliente, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, denominazione, email, telefono, attivo, created_at FROM clienti ORDER BY denominazione")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pratica.Cliente
	for rows.Next() {
		var c pratica.Cliente
		var created string
		if err := rows.Scan(&c.ID, &c.Denominazione, &c.Email, &c.Telefono, &c.Attivo, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCliente removes a cliente. Rejected while open pratiche reference it.
func (s *Store) DeleteCliente(ctx context.Context, id pratica.ClienteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clienti WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("cliente %s: %w", id, pratica.ErrClienteNotFound)
	}

	var open int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pratiche WHERE cliente_id = ? AND aperta = TRUE", id).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return &pratica.ReferentialConflictError{Entity: "cliente", ID: string(id), Dipendenze: []string{"pratiche"}}
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM clienti WHERE id = ?", id)
	return err
}

// SaveDebitore creates or updates a debitore.
func (s *Store) SaveDebitore(ctx context.Context, d pratica.Debitore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO debitori (id, denominazione, codice_fiscale, telefono, attivo, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			denominazione = excluded.denominazione,
			codice_fiscale = excluded.codice_fiscale,
			telefono = excluded.telefono,
			attivo = excluded.attivo`,
		d.ID, d.Denominazione, d.CodiceFiscale, d.Telefono, d.Attivo, formatTime(d.CreatedAt),
	)
	return err
}

// GetDebitore retrieves a debitore by id.
func (s *Store) GetDebitore(ctx context.Context, id pratica.DebitoreID) (*pratica.Debitore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d pratica.Debitore
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, denominazione, codice_fiscale, telefono, attivo, created_at FROM debitori WHERE id = ?", id,
	).Scan(&d.ID, &d.Denominazione, &d.CodiceFiscale, &d.Telefono, &d.Attivo, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debitore %s: %w", id, pratica.ErrDebitoreNotFound)
	}
	if err != nil {
		return nil, err
	}
	d.CreatedAt = parseTime(created)
	return &d, nil
}

// ListDebitori returns all debitori ordered by denominazione.
func (s *Store) ListDebitori(ctx context.Context) ([]pratica.Debitore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, denominazione, codice_fiscale, telefono, attivo, created_at FROM debitori ORDER BY denominazione")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pratica.Debitore
	for rows.Next() {
		var d pratica.Debitore
		var created string
		if err := rows.Scan(&d.ID, &d.Denominazione, &d.CodiceFiscale, &d.Telefono, &d.Attivo, &created); err != nil {
			return nil, err
		}
		d.CreatedAt = parseTime(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDebitore removes a debitore. Rejected while open pratiche reference it.
func (s *Store) DeleteDebitore(ctx context.Context, id pratica.DebitoreID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM debitori WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("debitore %s: %w", id, pratica.ErrDebitoreNotFound)
	}

	var open int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pratiche WHERE debitore_id = ? AND aperta = TRUE", id).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return &pratica.ReferentialConflictError{Entity: "debitore", ID: string(id), Dipendenze: []string{"pratiche"}}
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM debitori WHERE id = ?", id)
	return err
}

// ClienteAttivo reports whether the cliente exists and is active.
func (s *Store) ClienteAttivo(ctx context.Context, id pratica.ClienteID) (bool, error) {
	c, err := s.GetCliente(ctx, id)
	if err != nil {
		return false, err
	}
	return c.Attivo, nil
}

// DebitoreAttivo reports whether the debitore exists and is active.
func (s *Store) DebitoreAttivo(ctx context.Context, id pratica.DebitoreID) (bool, error) {
	d, err := s.GetDebitore(ctx, id)
	if err != nil {
		return false, err
	}
	return d.Attivo, nil
}

// =============================================================================
// FASE CATALOG PERSISTENCE
// =============================================================================

// SaveFasi replaces the stored catalog. Used at seed time only.
func (s *Store) SaveFasi(ctx context.Context, fasi []pratica.Fase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM fasi"); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, f := range fasi {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO fasi (id, nome, ordine, chiusura, esito_default, colore, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Nome, f.Ordine, f.Chiusura, string(f.EsitoDefault), f.Colore, now,
		)
		if err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// LoadFasi returns the stored catalog ordered by ordine. Empty result when
// nothing has been seeded yet.
func (s *Store) LoadFasi(ctx context.Context) ([]pratica.Fase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, nome, ordine, chiusura, esito_default, colore FROM fasi ORDER BY ordine ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fasi []pratica.Fase
	for rows.Next() {
		var f pratica.Fase
		var esito string
		if err := rows.Scan(&f.ID, &f.Nome, &f.Ordine, &f.Chiusura, &esito, &f.Colore); err != nil {
			return nil, err
		}
		f.EsitoDefault = pratica.Esito(esito)
		fasi = append(fasi, f)
	}
	return fasi, rows.Err()
}

// =============================================================================
// MOVIMENTI STORE (movimenti.Store interface)
// =============================================================================

func (s *Store) InsertMovimento(ctx context.Context, m movimenti.Movimento) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO movimenti (id, pratica_id, tipo, importo, data, oggetto, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.PraticaID, string(m.Tipo), m.Importo.String(),
		formatTime(m.Data), m.Oggetto, formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert movimento: %w", err)
	}
	return nil
}

func (s *Store) GetMovimento(ctx context.Context, id movimenti.MovimentoID) (*movimenti.Movimento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movs, err := s.queryMovimenti(ctx, `
		SELECT id, pratica_id, tipo, importo, data, oggetto, created_at, updated_at
		FROM movimenti WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(movs) == 0 {
		return nil, fmt.Errorf("movimento %s: %w", id, pratica.ErrMovimentoNotFound)
	}
	return &movs[0], nil
}

func (s *Store) UpdateMovimento(ctx context.Context, m movimenti.Movimento) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE movimenti SET tipo = ?, importo = ?, data = ?, oggetto = ?, updated_at = ?
		WHERE id = ?`,
		string(m.Tipo), m.Importo.String(), formatTime(m.Data), m.Oggetto, formatTime(m.UpdatedAt), m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update movimento: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("movimento %s: %w", m.ID, pratica.ErrMovimentoNotFound)
	}
	return nil
}

func (s *Store) DeleteMovimento(ctx context.Context, id movimenti.MovimentoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM movimenti WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("movimento %s: %w", id, pratica.ErrMovimentoNotFound)
	}
	return nil
}

func (s *Store) ListByPratica(ctx context.Context, id pratica.PraticaID) ([]movimenti.Movimento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryMovimenti(ctx, `
		SELECT id, pratica_id, tipo, importo, data, oggetto, created_at, updated_at
		FROM movimenti WHERE pratica_id = ? ORDER BY data ASC, created_at ASC`, id)
}

func (s *Store) PraticaExists(ctx context.Context, id pratica.PraticaID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pratiche WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

func (s *Store) queryMovimenti(ctx context.Context, query string, args ...any) ([]movimenti.Movimento, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movimenti: %w", err)
	}
	defer rows.Close()

	var out []movimenti.Movimento
	for rows.Next() {
		var (
			m                      movimenti.Movimento
			tipo, importo          string
			data, created, updated string
		)
		if err := rows.Scan(&m.ID, &m.PraticaID, &tipo, &importo, &data, &m.Oggetto, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan movimento: %w", err)
		}
		m.Tipo = movimenti.Tipo(tipo)
		m.Importo = parseDecimal(importo)
		m.Data = parseTime(data)
		m.CreatedAt = parseTime(created)
		m.UpdatedAt = parseTime(updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// DEPENDENT WORKFLOW ROWS - documenti / alerts / tickets
// =============================================================================

// Documento is a document reference attached to a pratica. File storage
// lives elsewhere; only the row matters to the deletion guard.
type Documento struct {
	ID        string
	PraticaID pratica.PraticaID
	Titolo    string
	CreatedAt time.Time
}

// Alert is a dated reminder attached to a pratica.
type Alert struct {
	ID        string
	PraticaID pratica.PraticaID
	Messaggio string
	Scadenza  *time.Time
	CreatedAt time.Time
}

// Ticket is a work item attached to a pratica.
type Ticket struct {
	ID        string
	PraticaID pratica.PraticaID
	Oggetto   string
	Stato     string
	CreatedAt time.Time
}

func (s *Store) SaveDocumento(ctx context.Context, d Documento) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documenti (id, pratica_id, titolo, created_at) VALUES (?, ?, ?, ?)",
		d.ID, d.PraticaID, d.Titolo, formatTime(d.CreatedAt))
	return err
}

func (s *Store) ListDocumenti(ctx context.Context, id pratica.PraticaID) ([]Documento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pratica_id, titolo, created_at FROM documenti WHERE pratica_id = ? ORDER BY created_at", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Documento
	for rows.Next() {
		var d Documento
		var created string
		if err := rows.Scan(&d.ID, &d.PraticaID, &d.Titolo, &created); err != nil {
			return nil, err
		}
		d.CreatedAt = parseTime(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveAlert(ctx context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scadenza *string
	if a.Scadenza != nil {
		v := formatTime(*a.Scadenza)
		scadenza = &v
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO alerts (id, pratica_id, messaggio, scadenza, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.PraticaID, a.Messaggio, scadenza, formatTime(a.CreatedAt))
	return err
}

func (s *Store) ListAlerts(ctx context.Context, id pratica.PraticaID) ([]Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pratica_id, messaggio, scadenza, created_at FROM alerts WHERE pratica_id = ? ORDER BY created_at", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var scadenza sql.NullString
		var created string
		if err := rows.Scan(&a.ID, &a.PraticaID, &a.Messaggio, &scadenza, &created); err != nil {
			return nil, err
		}
		if scadenza.Valid {
			t := parseTime(scadenza.String)
			a.Scadenza = &t
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveTicket(ctx context.Context, t Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tickets (id, pratica_id, oggetto, stato, created_at) VALUES (?, ?, ?, ?, ?)",
		t.ID, t.PraticaID, t.Oggetto, t.Stato, formatTime(t.CreatedAt))
	return err
}

func (s *Store) ListTickets(ctx context.Context, id pratica.PraticaID) ([]Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pratica_id, oggetto, stato, created_at FROM tickets WHERE pratica_id = ? ORDER BY created_at", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var t Ticket
		var created string
		if err := rows.Scan(&t.ID, &t.PraticaID, &t.Oggetto, &t.Stato, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"storico_fasi", "movimenti", "documenti", "alerts", "tickets", "pratiche", "clienti", "debitori", "fasi"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
