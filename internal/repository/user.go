package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	UpdateEtsyShopID(ctx context.Context, id string, shopID string) error
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE email = $1
	`, email)
	return HandleNotFound(&user, err)
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (email)
		VALUES ($1)
		RETURNING *
	`, params.Email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateEtsyShopID(ctx context.Context, id string, shopID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET etsy_shop_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, shopID)
	return err
}
