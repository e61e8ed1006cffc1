package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/loteamento/internal/domain"
)

// ErrNotFound is returned when the addressed block or lot does not exist.
var ErrNotFound = errors.New("not found")

// BlockStore persists block documents. Blocks are listed in creation order
// and lots in insertion order.
type BlockStore struct {
	db *sql.DB
}

func NewBlockStore(db *sql.DB) *BlockStore {
	return &BlockStore{db: db}
}

const lotColumns = `quadra_id, numero, status, has_owner, nome, cpf, telefone, email, observacoes`

func (s *BlockStore) List(ctx context.Context) ([]domain.Block, error) {
	ids, err := s.listIDs(ctx)
	if err != nil {
		return nil, err
	}

	lots, err := s.lotsByBlock(ctx, `SELECT `+lotColumns+` FROM lotes ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}

	blocks := make([]domain.Block, 0, len(ids))
	for _, id := range ids {
		b := domain.Block{ID: id, Lots: lots[id]}
		if b.Lots == nil {
			b.Lots = []domain.Lot{}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (s *BlockStore) listIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM quadras ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocks: %w", err)
	}
	return ids, nil
}

// Get returns the block with the given id or ErrNotFound.
func (s *BlockStore) Get(ctx context.Context, id string) (domain.Block, error) {
	return get(ctx, s.db, id)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func get(ctx context.Context, q queryer, id string) (domain.Block, error) {
	var found string
	err := q.QueryRowContext(ctx, `SELECT id FROM quadras WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Block{}, fmt.Errorf("block %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Block{}, fmt.Errorf("failed to get block: %w", err)
	}

	rows, err := q.QueryContext(ctx, `SELECT `+lotColumns+` FROM lotes WHERE quadra_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return domain.Block{}, fmt.Errorf("failed to list lots: %w", err)
	}
	defer closeRows(rows)

	b := domain.Block{ID: found, Lots: []domain.Lot{}}
	for rows.Next() {
		_, lot, err := scanLot(rows)
		if err != nil {
			return domain.Block{}, err
		}
		b.Lots = append(b.Lots, lot)
	}
	if err := rows.Err(); err != nil {
		return domain.Block{}, fmt.Errorf("error iterating lots: %w", err)
	}
	return b, nil
}

func (s *BlockStore) lotsByBlock(ctx context.Context, query string) (map[string][]domain.Lot, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer closeRows(rows)

	out := make(map[string][]domain.Lot)
	for rows.Next() {
		blockID, lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out[blockID] = append(out[blockID], lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}
	return out, nil
}

func scanLot(rows *sql.Rows) (string, domain.Lot, error) {
	var (
		blockID  string
		lot      domain.Lot
		hasOwner bool
		o        domain.Owner
	)
	if err := rows.Scan(&blockID, &lot.Number, &lot.Status, &hasOwner, &o.Name, &o.TaxID, &o.Phone, &o.Email, &o.Notes); err != nil {
		return "", domain.Lot{}, fmt.Errorf("failed to scan lot: %w", err)
	}
	if hasOwner {
		lot.Owner = &o
	}
	return blockID, lot, nil
}

// Save creates the block, or replaces its whole lot list if it exists, and
// returns the stored document.
func (s *BlockStore) Save(ctx context.Context, b domain.Block) (domain.Block, error) {
	var out domain.Block
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quadras (id) VALUES (?)
			ON CONFLICT(id) DO UPDATE SET updated_at = datetime('now')
		`, b.ID); err != nil {
			return fmt.Errorf("failed to save block: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lotes WHERE quadra_id = ?`, b.ID); err != nil {
			return fmt.Errorf("failed to clear lots: %w", err)
		}
		for _, lot := range b.Lots {
			if err := insertLot(ctx, tx, b.ID, lot); err != nil {
				return err
			}
		}
		var err error
		out, err = get(ctx, tx, b.ID)
		return err
	})
	return out, err
}

func (s *BlockStore) Delete(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lotes WHERE quadra_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete lots: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM quadras WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete block: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("block %q: %w", id, ErrNotFound)
		}
		return nil
	})
}

// AddLot appends lot to the block. Lot numbers are not checked for
// uniqueness.
func (s *BlockStore) AddLot(ctx context.Context, id string, lot domain.Lot) (domain.Block, error) {
	var out domain.Block
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, id); err != nil {
			return err
		}
		if err := insertLot(ctx, tx, id, lot); err != nil {
			return err
		}
		var err error
		out, err = get(ctx, tx, id)
		return err
	})
	return out, err
}

func (s *BlockStore) UpdateLotStatus(ctx context.Context, id string, number int, status domain.Status) (domain.Block, error) {
	return s.updateLot(ctx, id, number, `UPDATE lotes SET status = ? WHERE quadra_id = ? AND numero = ?`, status, id, number)
}

func (s *BlockStore) UpdateOwner(ctx context.Context, id string, number int, o domain.Owner) (domain.Block, error) {
	return s.updateLot(ctx, id, number, `
		UPDATE lotes SET has_owner = 1, nome = ?, cpf = ?, telefone = ?, email = ?, observacoes = ?
		WHERE quadra_id = ? AND numero = ?
	`, o.Name, o.TaxID, o.Phone, o.Email, o.Notes, id, number)
}

func (s *BlockStore) updateLot(ctx context.Context, id string, number int, query string, args ...any) (domain.Block, error) {
	var out domain.Block
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update lot: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("lot %d of block %q: %w", number, id, ErrNotFound)
		}
		out, err = get(ctx, tx, id)
		return err
	})
	return out, err
}

// Count returns the number of stored blocks.
func (s *BlockStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quadras`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return n, nil
}

func touch(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, `UPDATE quadras SET updated_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to touch block: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("block %q: %w", id, ErrNotFound)
	}
	return nil
}

func insertLot(ctx context.Context, tx *sql.Tx, blockID string, lot domain.Lot) error {
	var o domain.Owner
	hasOwner := lot.Owner != nil
	if hasOwner {
		o = *lot.Owner
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO lotes (`+lotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, blockID, lot.Number, lot.Status, hasOwner, o.Name, o.TaxID, o.Phone, o.Email, o.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert lot %d: %w", lot.Number, err)
	}
	return nil
}

func (s *BlockStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("failed to roll back transaction", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
