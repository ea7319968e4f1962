package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type CharacterRow struct {
	ID          int32  `db:"id"`
	AccountName string `db:"account_name"`
	Name        string `db:"name"`
	X           int32  `db:"x"`
	Y           int32  `db:"y"`
	MapID       int16  `db:"map_id"`
	Heading     int16  `db:"heading"`
	RunEnergy   int32  `db:"run_energy"`
	Gfx         int32  `db:"gfx"`
	UpdatedAt   int64  `db:"updated_at"`
}

const characterColumns = `id, account_name, name, x, y, map_id, heading, run_energy, gfx, updated_at`

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// LoadByAccount returns the account's character, ErrNotFound if it has none.
func (r *CharacterRepo) LoadByAccount(ctx context.Context, accountName string) (*CharacterRow, error) {
	row := &CharacterRow{}
	err := r.db.X.GetContext(ctx, row, r.db.rebind(
		`SELECT `+characterColumns+` FROM characters WHERE account_name = ? ORDER BY id LIMIT 1`), accountName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load character of %s: %w", accountName, err)
	}
	return row, nil
}

func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	row := &CharacterRow{}
	err := r.db.X.GetContext(ctx, row, r.db.rebind(
		`SELECT `+characterColumns+` FROM characters WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load character %s: %w", name, err)
	}
	return row, nil
}

// Create inserts c and fills in its generated id.
func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	c.UpdatedAt = time.Now().Unix()
	err := r.db.X.QueryRowxContext(ctx, r.db.rebind(
		`INSERT INTO characters (account_name, name, x, y, map_id, heading, run_energy, gfx, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		c.AccountName, c.Name, c.X, c.Y, c.MapID, c.Heading, c.RunEnergy, c.Gfx, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create character %s: %w", c.Name, err)
	}
	return nil
}

const saveCharacterSQL = `UPDATE characters SET x = ?, y = ?, map_id = ?, heading = ?, run_energy = ?, updated_at = ? WHERE id = ?`

// SaveCharacter updates the mutable fields (position, heading, run energy).
func (r *CharacterRepo) SaveCharacter(ctx context.Context, c *CharacterRow) error {
	c.UpdatedAt = time.Now().Unix()
	_, err := r.db.X.ExecContext(ctx, r.db.rebind(saveCharacterSQL),
		c.X, c.Y, c.MapID, c.Heading, c.RunEnergy, c.UpdatedAt, c.ID)
	return err
}

// SaveBatch saves rows in one transaction.
func (r *CharacterRepo) SaveBatch(ctx context.Context, rows []CharacterRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.X.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(saveCharacterSQL))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i := range rows {
		c := &rows[i]
		c.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, c.X, c.Y, c.MapID, c.Heading, c.RunEnergy, c.UpdatedAt, c.ID); err != nil {
			return fmt.Errorf("save character %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}
