package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ohmage/mobility-store/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	query := `SELECT id, username, created_at FROM users WHERE username = $1`

	err := r.db.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, &model.StorageError{Op: "get user by username", Key: username, Err: err}
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, username string) (model.User, error) {
	query := `INSERT INTO users (username) VALUES ($1) RETURNING id, username, created_at`

	var user model.User
	err := r.db.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		return model.User{}, &model.StorageError{Op: "create user", Key: username, Err: err}
	}

	return user, nil
}
