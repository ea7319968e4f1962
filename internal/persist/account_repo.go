package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadPassword = errors.New("bad password")
	ErrBanned      = errors.New("account banned")
)

type AccountRow struct {
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	AccessLevel  int16  `db:"access_level"`
	Banned       bool   `db:"banned"`
	Online       bool   `db:"online"`
	IP           string `db:"ip"`
	CreatedAt    int64  `db:"created_at"`  // unix seconds
	LastActive   int64  `db:"last_active"` // unix seconds
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Load(ctx context.Context, name string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.X.GetContext(ctx, row, r.db.rebind(
		`SELECT name, password_hash, access_level, banned, online, ip, created_at, last_active
		 FROM accounts WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", name, err)
	}
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, name, rawPassword, ip string) (*AccountRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	row := &AccountRow{
		Name:         name,
		PasswordHash: string(hash),
		IP:           ip,
		CreatedAt:    now,
		LastActive:   now,
	}
	_, err = r.db.X.NamedExecContext(ctx,
		`INSERT INTO accounts (name, password_hash, ip, created_at, last_active)
		 VALUES (:name, :password_hash, :ip, :created_at, :last_active)`, row)
	if err != nil {
		return nil, fmt.Errorf("create account %s: %w", name, err)
	}
	return row, nil
}

func (r *AccountRepo) ValidatePassword(hash string, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

// Authenticate loads the account and checks the password. With autoCreate
// an unknown name is registered with the given password.
func (r *AccountRepo) Authenticate(ctx context.Context, name, rawPassword, ip string, autoCreate bool) (*AccountRow, error) {
	row, err := r.Load(ctx, name)
	if errors.Is(err, ErrNotFound) && autoCreate {
		return r.Create(ctx, name, rawPassword, ip)
	}
	if err != nil {
		return nil, err
	}
	if !r.ValidatePassword(row.PasswordHash, rawPassword) {
		return nil, ErrBadPassword
	}
	if row.Banned {
		return nil, ErrBanned
	}
	return row, nil
}

func (r *AccountRepo) UpdateLastActive(ctx context.Context, name, ip string) error {
	_, err := r.db.X.ExecContext(ctx, r.db.rebind(
		`UPDATE accounts SET last_active = ?, ip = ? WHERE name = ?`),
		time.Now().Unix(), ip, name)
	return err
}

func (r *AccountRepo) SetOnline(ctx context.Context, name string, online bool) error {
	_, err := r.db.X.ExecContext(ctx, r.db.rebind(
		`UPDATE accounts SET online = ? WHERE name = ?`), online, name)
	return err
}

// ResetOnline clears every online flag; run at boot after an unclean stop.
func (r *AccountRepo) ResetOnline(ctx context.Context) (int64, error) {
	res, err := r.db.X.ExecContext(ctx, r.db.rebind(`UPDATE accounts SET online = ? WHERE online = ?`), false, true)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
