package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/overload/internal/sqlite"
)

// sqliteUserRepository implements userRepository.
type sqliteUserRepository struct {
	baseRepository
}

func newSQLiteUserRepository(db *sqlite.Database, logger *slog.Logger) *sqliteUserRepository {
	return &sqliteUserRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

const userColumns = `id, display_name, telegram_chat_id, goal, level, equipment`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		chatID    sql.NullInt64
		equipment string
	)
	if err := row.Scan(&u.ID, &u.DisplayName, &chatID, &u.Goal, &u.Level, &equipment); err != nil {
		return User{}, err //nolint:wrapcheck // callers add context.
	}
	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}
	u.Equipment = splitEquipment(equipment)
	return u, nil
}

func splitEquipment(s string) []string {
	var equipment []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			equipment = append(equipment, item)
		}
	}
	return equipment
}

func joinEquipment(equipment []string) string {
	return strings.Join(splitEquipment(strings.Join(equipment, ",")), ",")
}

// Get retrieves a user by ID.
func (r *sqliteUserRepository) Get(ctx context.Context, id int) (User, error) {
	u, err := scanUser(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return User{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

// GetByTelegramChatID retrieves the user linked to a Telegram chat.
func (r *sqliteUserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (User, error) {
	u, err := scanUser(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_chat_id = ?`, chatID))
	if err != nil {
		return User{}, notFound(err, fmt.Sprintf("user with chat %d", chatID))
	}
	return u, nil
}

// List returns all users ordered by ID.
func (r *sqliteUserRepository) List(ctx context.Context) (_ []User, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var users []User
	for rows.Next() {
		var u User
		if u, err = scanUser(rows); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

// Create inserts a user and returns it with its ID.
func (r *sqliteUserRepository) Create(ctx context.Context, u User) (User, error) {
	err := r.db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO users (display_name, telegram_chat_id, goal, level, equipment)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		u.DisplayName, u.TelegramChatID, u.Goal, u.Level, joinEquipment(u.Equipment),
	).Scan(&u.ID)
	if sqlite.IsUniqueViolation(err) {
		return User{}, fmt.Errorf("create user: telegram chat already linked: %w", ErrConflict)
	}
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update modifies an existing user. updateFn reports whether anything changed.
func (r *sqliteUserRepository) Update(
	ctx context.Context,
	id int,
	updateFn func(u *User) (bool, error),
) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		if err != nil {
			return notFound(err, fmt.Sprintf("user %d", id))
		}

		updated, err := updateFn(&u)
		if err != nil {
			return fmt.Errorf("update function: %w", err)
		}
		if !updated {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET display_name = ?, telegram_chat_id = ?, goal = ?, level = ?, equipment = ?
			WHERE id = ?`,
			u.DisplayName, u.TelegramChatID, u.Goal, u.Level, joinEquipment(u.Equipment), id)
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("update user: telegram chat already linked: %w", ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
}
