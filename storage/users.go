package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c360studio/specgen/entity"
)

// Users persists user accounts. Raw passwords are hashed on every write.
type Users struct {
	db *sql.DB
}

const userColumns = `id, username, email, password, created_at`

func scanUser(row scanner) (*entity.User, error) {
	var u entity.User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// Create inserts u and sets its ID and CreatedAt.
func (r *Users) Create(ctx context.Context, u *entity.User) error {
	if err := u.HashPassword(); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.CreatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.Password, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

// Get returns the user with the given id.
func (r *Users) Get(ctx context.Context, id int64) (*entity.User, error) {
	return queryOne(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// List returns every user in id order.
func (r *Users) List(ctx context.Context) ([]*entity.User, error) {
	return queryAll(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

// Update writes username, email and password.
func (r *Users) Update(ctx context.Context, u *entity.User) error {
	if err := u.HashPassword(); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return execAffected(ctx, r.db,
		`UPDATE users SET username = ?, email = ?, password = ? WHERE id = ?`,
		u.Username, u.Email, u.Password, u.ID)
}

// Delete removes a user and, through the foreign key, its orders.
func (r *Users) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM users WHERE id = ?`, id)
}

// Orders persists orders.
type Orders struct {
	db *sql.DB
}

const orderColumns = `id, user_id, product_name, amount, status, created_at`

func scanOrder(row scanner) (*entity.Order, error) {
	var o entity.Order
	var created string
	if err := row.Scan(&o.ID, &o.UserID, &o.ProductName, &o.Amount, &o.Status, &created); err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(created)
	return &o, nil
}

// Create inserts o. An empty status is stored as pending.
func (r *Orders) Create(ctx context.Context, o *entity.Order) error {
	if o.Status == "" {
		o.Status = entity.OrderPending
	}
	o.CreatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO orders (user_id, product_name, amount, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.UserID, o.ProductName, o.Amount, o.Status, formatTime(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID = id
	return nil
}

// Get returns the order with the given id.
func (r *Orders) Get(ctx context.Context, id int64) (*entity.Order, error) {
	return queryOne(ctx, r.db, scanOrder, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// List returns every order, newest first.
func (r *Orders) List(ctx context.Context) ([]*entity.Order, error) {
	return queryAll(ctx, r.db, scanOrder,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

// Update writes every mutable column, including the owning user.
func (r *Orders) Update(ctx context.Context, o *entity.Order) error {
	if o.Status == "" {
		o.Status = entity.OrderPending
	}
	return execAffected(ctx, r.db,
		`UPDATE orders SET user_id = ?, product_name = ?, amount = ?, status = ? WHERE id = ?`,
		o.UserID, o.ProductName, o.Amount, o.Status, o.ID)
}

// Delete removes an order.
func (r *Orders) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM orders WHERE id = ?`, id)
}
