package repo

import (
	"context"
	"errors"
	"fmt"

	"boardkit-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BoardRepository struct {
	pool *pgxpool.Pool
}

func NewBoardRepository(pool *pgxpool.Pool) *BoardRepository {
	return &BoardRepository{pool: pool}
}

// BeginTx starts a transaction. Pair with defer tx.Rollback(ctx) and tx.Commit(ctx).
func (r *BoardRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const boardColumns = `id, owner_id, name, description, icon, visibility, created_at, updated_at`

func scanBoard(row pgx.Row) (*domain.Board, error) {
	var (
		b           domain.Board
		description pgtype.Text
		icon        pgtype.Text
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &description, &icon, &b.Visibility, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Description = toStrPtr(description)
	b.Icon = toStrPtr(icon)
	return &b, nil
}

func (r *BoardRepository) GetBoard(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`

	b, err := scanBoard(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query board: %w", err)
	}
	return b, nil
}

// CreateBoard inserts the board and its owner membership row in one transaction.
func (r *BoardRepository) CreateBoard(ctx context.Context, b *domain.Board) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO boards (id, owner_id, name, description, icon, visibility)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, b.ID, b.OwnerID, b.Name, b.Description, b.Icon, b.Visibility).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert board: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO board_members (board_id, user_id, role, added_by)
		VALUES ($1, $2, 'owner', $2)
	`, b.ID, b.OwnerID); err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *BoardRepository) UpdateBoard(ctx context.Context, b *domain.Board) (*domain.Board, error) {
	query := `
		UPDATE boards
		SET name = $2, description = $3, icon = $4, visibility = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + boardColumns

	updated, err := scanBoard(r.pool.QueryRow(ctx, query, b.ID, b.Name, b.Description, b.Icon, b.Visibility))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	return updated, nil
}

// DeleteBoard removes the board. Memberships and invitations cascade.
func (r *BoardRepository) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// ListBoardsForUser returns boards the user owns or holds a membership row on.
func (r *BoardRepository) ListBoardsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Board, error) {
	query := `
		SELECT b.id, b.owner_id, b.name, b.description, b.icon, b.visibility, b.created_at, b.updated_at
		FROM boards b
		WHERE b.owner_id = $1
		   OR EXISTS (SELECT 1 FROM board_members m WHERE m.board_id = b.id AND m.user_id = $1)
		ORDER BY b.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return boards, nil
}

// TransferOwnership moves the owner pointer from -> to and rewrites the
// membership rows in one transaction: to becomes owner, from becomes admin,
// and any other stale owner row is demoted to admin.
func (r *BoardRepository) TransferOwnership(ctx context.Context, boardID, from, to uuid.UUID) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE boards SET owner_id = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
	`, boardID, from, to)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update board owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOwnershipChanged
	}

	if _, err := tx.Exec(ctx, `
		UPDATE board_members SET role = 'admin'
		WHERE board_id = $1 AND role = 'owner' AND user_id <> $2
	`, boardID, to); err != nil {
		return fmt.Errorf("demote owner rows: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO board_members (board_id, user_id, role, added_by)
		VALUES ($1, $2, 'owner', $3)
		ON CONFLICT (board_id, user_id) DO UPDATE SET role = 'owner'
	`, boardID, to, from); err != nil {
		return fmt.Errorf("upsert new owner row: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO board_members (board_id, user_id, role, added_by)
		VALUES ($1, $2, 'admin', $3)
		ON CONFLICT (board_id, user_id) DO UPDATE SET role = 'admin'
	`, boardID, from, to); err != nil {
		return fmt.Errorf("upsert former owner row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
