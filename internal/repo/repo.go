package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

type Users interface {
	CreateUser(ctx context.Context, login, email, passwordHash string) (int, error)
	GetByLogin(ctx context.Context, login string) (int, string, error)
}

type StoredDataset struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Valid     bool      `json:"valid"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Datasets interface {
	SaveDataset(ctx context.Context, userID int, name, payload string, valid bool) (int, error)
	ListDatasets(ctx context.Context, userID int) ([]StoredDataset, error)
	GetDataset(ctx context.Context, userID, id int) (StoredDataset, error)
	DeleteDataset(ctx context.Context, userID, id int) error
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	login TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS datasets (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	payload TEXT NOT NULL,
	valid BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Open connects to Postgres, requiring TLS unless the connection string
// already picks an sslmode.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	if !strings.Contains(connStr, "sslmode=") {
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			sep := "?"
			if strings.Contains(connStr, "?") {
				sep = "&"
			}
			connStr = connStr + sep + "sslmode=require"
		} else {
			connStr = connStr + " sslmode=require"
		}
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) CreateUser(ctx context.Context, login, email, passwordHash string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, passwordHash).Scan(&id)
	return id, err
}

// GetByLogin returns the user id and password hash, or ErrNotFound.
func (r *Postgres) GetByLogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string

	query := "SELECT id, password FROM users WHERE login=$1"
	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", err
	}
	return id, hash, nil
}

func (r *Postgres) SaveDataset(ctx context.Context, userID int, name, payload string, valid bool) (int, error) {
	var id int
	query := "INSERT INTO datasets (user_id, name, payload, valid) VALUES ($1, $2, $3, $4) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, userID, name, payload, valid).Scan(&id)
	return id, err
}

func (r *Postgres) ListDatasets(ctx context.Context, userID int) ([]StoredDataset, error) {
	query := "SELECT id, user_id, name, valid, created_at FROM datasets WHERE user_id=$1 ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredDataset{}
	for rows.Next() {
		var d StoredDataset
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Valid, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Postgres) GetDataset(ctx context.Context, userID, id int) (StoredDataset, error) {
	var d StoredDataset
	query := "SELECT id, user_id, name, valid, payload, created_at FROM datasets WHERE id=$1 AND user_id=$2"
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&d.ID, &d.UserID, &d.Name, &d.Valid, &d.Payload, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredDataset{}, ErrNotFound
	}
	return d, err
}

func (r *Postgres) DeleteDataset(ctx context.Context, userID, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM datasets WHERE id=$1 AND user_id=$2", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
