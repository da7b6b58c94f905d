package entity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// PasswordIterations is the PBKDF2 work factor for newly hashed passwords.
var PasswordIterations = 260000

const (
	hashAlgorithm = "pbkdf2_sha256"
	saltChars     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	saltLen       = 22
)

// User is an account that places orders.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the required fields.
func (u *User) Validate() error {
	return firstErr(
		required("username", u.Username),
		maxLen("username", u.Username, 64),
		required("email", u.Email),
		maxLen("email", u.Email, 128),
		required("password", u.Password),
	)
}

// HashPassword replaces a raw password with its PBKDF2 encoding.
// Passwords that are already encoded are left untouched.
func (u *User) HashPassword() error {
	if u.Password == "" || strings.HasPrefix(u.Password, "pbkdf2_") {
		return nil
	}
	encoded, err := EncodePassword(u.Password, PasswordIterations)
	if err != nil {
		return err
	}
	u.Password = encoded
	return nil
}

// EncodePassword hashes raw as pbkdf2_sha256$<iterations>$<salt>$<base64 key>.
func EncodePassword(raw string, iterations int) (string, error) {
	salt, err := randomSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encode(raw, salt, iterations), nil
}

// CheckPassword reports whether raw matches an encoded password.
func CheckPassword(raw, encoded string) bool {
	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 || parts[0] != hashAlgorithm {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	candidate := encode(raw, parts[2], iterations)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(encoded)) == 1
}

func encode(raw, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(raw), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", hashAlgorithm, iterations, salt,
		base64.StdEncoding.EncodeToString(key))
}

func randomSalt() (string, error) {
	buf := make([]byte, saltLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = saltChars[int(b)%len(saltChars)]
	}
	return string(buf), nil
}

// Order statuses.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
)

// Order is a purchase placed by a user. Deleting the user deletes its orders.
type Order struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProductName string    `json:"product_name"`
	Amount      int       `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the product, amount and status. An empty status is
// treated as pending.
func (o *Order) Validate() error {
	if err := firstErr(
		required("product_name", o.ProductName),
		maxLen("product_name", o.ProductName, 128),
	); err != nil {
		return err
	}
	if o.Amount <= 0 {
		return invalid("amount", "amount must be greater than 0")
	}
	switch o.Status {
	case "", OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return nil
	default:
		return invalid("status", "status must be one of pending, processing, completed, cancelled")
	}
}
