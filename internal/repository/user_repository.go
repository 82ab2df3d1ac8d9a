package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

// UserRepository defines persistence access for every actor.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByNIC(ctx context.Context, nic string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	Search(ctx context.Context, role domain.Role, term string, limit int) ([]domain.User, error)
	Delete(ctx context.Context, id int64) error
}

const userColumns = `id, nic, name, email, password_hash, role, address, phone, backup_phone, created_at`

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (nic, name, email, password_hash, role, address, phone, backup_phone)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		user.NIC,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Address,
		user.Phone,
		user.BackupPhone,
	).Scan(&user.ID, &user.CreatedAt)
}

// Update persists the mutable profile fields. NIC and role never change here.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, address=$4, phone=$5, backup_phone=$6
        WHERE id=$7`

	cmd, err := r.db.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Address,
		user.Phone,
		user.BackupPhone,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByNIC(ctx context.Context, nic string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE nic=$1`, nic)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role=$1 ORDER BY name, id`
	return r.fetchMany(ctx, query, string(role))
}

func (r *userRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, string(role)).Scan(&count); err != nil {
		return 0, err
	}
	return int(count), nil
}

// Search matches term against NIC, name and email of users with the given role.
func (r *userRepository) Search(ctx context.Context, role domain.Role, term string, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	query := `SELECT ` + userColumns + ` FROM users
        WHERE role=$1 AND (nic ILIKE $2 OR name ILIKE $2 OR email ILIKE $2)
        ORDER BY name, id
        LIMIT $3`
	return r.fetchMany(ctx, query, string(role), pattern, limit)
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.NIC,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Address,
		&user.Phone,
		&user.BackupPhone,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
