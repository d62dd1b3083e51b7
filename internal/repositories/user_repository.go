package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

// UserRepository exposes the minimal user lookups the messaging core needs:
// existence checks for authorization and name search for peer discovery.
type UserRepository interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	AllExist(ctx context.Context, userIDs []int64) (bool, error)
	Search(ctx context.Context, terms []string, excludeIDs []int64, limit, offset int) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Exists reports whether the user id is known.
func (r *UserRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID)
	return exists, err
}

// AllExist reports whether every id in the set references a known user.
func (r *UserRepo) AllExist(ctx context.Context, userIDs []int64) (bool, error) {
	if len(userIDs) == 0 {
		return true, nil
	}
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(DISTINCT id) FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return false, err
	}
	distinct := map[int64]struct{}{}
	for _, id := range userIDs {
		distinct[id] = struct{}{}
	}
	return count == len(distinct), nil
}

// Search finds users whose first or last name matches any of the terms,
// case-insensitively. Conditions are composed as a predicate list with
// positional parameters; no user input is ever interpolated into SQL.
func (r *UserRepo) Search(ctx context.Context, terms []string, excludeIDs []int64, limit, offset int) ([]models.User, error) {
	conditions := make([]string, 0, len(terms)+1)
	args := make([]interface{}, 0, len(terms)+3)

	nameConds := make([]string, 0, len(terms))
	for _, term := range terms {
		args = append(args, "%"+term+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		nameConds = append(nameConds, fmt.Sprintf("(first_name ILIKE %s OR last_name ILIKE %s)", placeholder, placeholder))
	}
	if len(nameConds) > 0 {
		conditions = append(conditions, "("+strings.Join(nameConds, " OR ")+")")
	}
	if len(excludeIDs) > 0 {
		args = append(args, pq.Array(excludeIDs))
		conditions = append(conditions, fmt.Sprintf("id <> ALL($%d)", len(args)))
	}

	query := `SELECT id, email, first_name, last_name, photo_url FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY first_name, last_name, id LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var users []models.User
	err := r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}
