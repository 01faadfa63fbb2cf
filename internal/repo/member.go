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

type MemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = `board_id, user_id, role, added_by, added_at`

func scanMember(row pgx.Row) (*domain.BoardMember, error) {
	var (
		m       domain.BoardMember
		addedBy pgtype.UUID
	)
	if err := row.Scan(&m.BoardID, &m.UserID, &m.Role, &addedBy, &m.AddedAt); err != nil {
		return nil, err
	}
	m.AddedBy = toUUIDPtr(addedBy)
	return &m, nil
}

func (r *MemberRepository) GetMember(ctx context.Context, boardID, userID uuid.UUID) (*domain.BoardMember, error) {
	query := `SELECT ` + memberColumns + ` FROM board_members WHERE board_id = $1 AND user_id = $2`

	m, err := scanMember(r.pool.QueryRow(ctx, query, boardID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// UpsertMember inserts or updates the (board, user) row. An existing owner
// row keeps its role; only ownership transfer may change it.
func (r *MemberRepository) UpsertMember(ctx context.Context, m *domain.BoardMember) (*domain.BoardMember, error) {
	query := `
		INSERT INTO board_members (board_id, user_id, role, added_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (board_id, user_id) DO UPDATE
		SET role = CASE WHEN board_members.role = 'owner' THEN board_members.role ELSE EXCLUDED.role END
		RETURNING ` + memberColumns

	out, err := scanMember(r.pool.QueryRow(ctx, query, m.BoardID, m.UserID, m.Role, uuidArg(m.AddedBy)))
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("upsert member: %w", err)
	}
	return out, nil
}

// EnsureOwner makes ownerID the only owner row on the board. Calling it
// repeatedly leaves exactly one row for (board, owner).
func (r *MemberRepository) EnsureOwner(ctx context.Context, boardID, ownerID uuid.UUID) (*domain.BoardMember, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE board_members SET role = 'admin'
		WHERE board_id = $1 AND role = 'owner' AND user_id <> $2
	`, boardID, ownerID); err != nil {
		return nil, fmt.Errorf("demote stale owner rows: %w", err)
	}

	m, err := scanMember(tx.QueryRow(ctx, `
		INSERT INTO board_members (board_id, user_id, role, added_by)
		VALUES ($1, $2, 'owner', $2)
		ON CONFLICT (board_id, user_id) DO UPDATE SET role = 'owner'
		RETURNING `+memberColumns, boardID, ownerID))
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("upsert owner row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return m, nil
}

// UpdateMemberRole changes a non-owner row's role.
func (r *MemberRepository) UpdateMemberRole(ctx context.Context, boardID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error) {
	query := `
		UPDATE board_members SET role = $3
		WHERE board_id = $1 AND user_id = $2 AND role <> 'owner'
		RETURNING ` + memberColumns

	m, err := scanMember(r.pool.QueryRow(ctx, query, boardID, userID, role))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) DeleteMember(ctx context.Context, boardID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM board_members WHERE board_id = $1 AND user_id = $2 AND role <> 'owner'
	`, boardID, userID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListMembers returns members with their profile, owner first.
func (r *MemberRepository) ListMembers(ctx context.Context, boardID uuid.UUID) ([]domain.MemberWithUser, error) {
	query := `
		SELECT m.board_id, m.user_id, m.role, m.added_by, m.added_at, u.email, u.name
		FROM board_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.board_id = $1
		ORDER BY CASE m.role WHEN 'owner' THEN 0 WHEN 'admin' THEN 1 WHEN 'editor' THEN 2 ELSE 3 END, m.added_at
	`

	rows, err := r.pool.Query(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []domain.MemberWithUser{}
	for rows.Next() {
		var (
			m       domain.MemberWithUser
			addedBy pgtype.UUID
		)
		if err := rows.Scan(&m.BoardID, &m.UserID, &m.Role, &addedBy, &m.AddedAt, &m.Email, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.AddedBy = toUUIDPtr(addedBy)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
