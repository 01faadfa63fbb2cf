package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardkit-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvitationRepository struct {
	pool *pgxpool.Pool
}

func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

const invitationColumns = `id, board_id, email, role, invited_by, status, token, expires_at, accepted_at, declined_at, created_at`

func scanInvitation(row pgx.Row) (*domain.BoardInvitation, error) {
	var (
		inv        domain.BoardInvitation
		acceptedAt pgtype.Timestamptz
		declinedAt pgtype.Timestamptz
	)
	err := row.Scan(&inv.ID, &inv.BoardID, &inv.Email, &inv.Role, &inv.InvitedBy, &inv.Status,
		&inv.Token, &inv.ExpiresAt, &acceptedAt, &declinedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if declinedAt.Valid {
		t := declinedAt.Time
		inv.DeclinedAt = &t
	}
	return &inv, nil
}

func collectInvitations(rows pgx.Rows) ([]domain.BoardInvitation, error) {
	defer rows.Close()

	out := []domain.BoardInvitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return out, nil
}

// CreateInvitation inserts a pending invitation. A pending row for the same
// (board, email) whose expiry has passed is marked expired first so the
// partial unique index only rejects invitations that are still active.
func (r *InvitationRepository) CreateInvitation(ctx context.Context, inv *domain.BoardInvitation, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE board_invitations SET status = 'expired'
		WHERE board_id = $1 AND email = $2 AND status = 'pending' AND expires_at <= $3
	`, inv.BoardID, inv.Email, now); err != nil {
		return fmt.Errorf("expire stale invitations: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO board_invitations (id, board_id, email, role, invited_by, status, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8)
		RETURNING created_at
	`, inv.ID, inv.BoardID, inv.Email, inv.Role, inv.InvitedBy, inv.Token, inv.ExpiresAt, now).Scan(&inv.CreatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return ErrInvitationConflict
		}
		if isPgCode(err, pgForeignKeyViolation) {
			return ErrBoardNotFound
		}
		return fmt.Errorf("insert invitation: %w", err)
	}
	inv.Status = domain.InvitationPending

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetInvitation(ctx context.Context, id uuid.UUID) (*domain.BoardInvitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM board_invitations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query invitation: %w", err)
	}
	return inv, nil
}

// DeletePendingInvitation removes a pending invitation of the board.
// Answered invitations are reported as not found.
func (r *InvitationRepository) DeletePendingInvitation(ctx context.Context, boardID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM board_invitations WHERE id = $1 AND board_id = $2 AND status = 'pending'
	`, id, boardID)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepository) ListActiveForBoard(ctx context.Context, boardID uuid.UUID, now time.Time) ([]domain.BoardInvitation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invitationColumns+` FROM board_invitations
		WHERE board_id = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC
	`, boardID, now)
	if err != nil {
		return nil, fmt.Errorf("query board invitations: %w", err)
	}
	return collectInvitations(rows)
}

func (r *InvitationRepository) ListActiveForEmail(ctx context.Context, email string, now time.Time) ([]domain.BoardInvitation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invitationColumns+` FROM board_invitations
		WHERE email = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC
	`, domain.NormalizeEmail(email), now)
	if err != nil {
		return nil, fmt.Errorf("query invitations for email: %w", err)
	}
	return collectInvitations(rows)
}

// AcceptInvitation marks the matching active invitation accepted and
// upserts the caller's membership in one transaction. The match is on id,
// email and active state; anything else is ErrInvitationNotFound.
func (r *InvitationRepository) AcceptInvitation(ctx context.Context, id uuid.UUID, email string, userID uuid.UUID, now time.Time) (*domain.BoardInvitation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := answer(ctx, tx, id, email, domain.InvitationAccepted, now)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO board_members (board_id, user_id, role, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (board_id, user_id) DO UPDATE
		SET role = CASE WHEN board_members.role = 'owner' THEN board_members.role ELSE EXCLUDED.role END
	`, inv.BoardID, userID, inv.Role, inv.InvitedBy, now); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("upsert member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return inv, nil
}

// DeclineInvitation marks the matching active invitation declined.
func (r *InvitationRepository) DeclineInvitation(ctx context.Context, id uuid.UUID, email string, now time.Time) (*domain.BoardInvitation, error) {
	return answer(ctx, r.pool, id, email, domain.InvitationDeclined, now)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// answer performs the conditional pending -> status write. Zero affected rows
// covers wrong id, wrong email, expired and already answered alike.
func answer(ctx context.Context, q queryRower, id uuid.UUID, email string, status domain.InvitationStatus, now time.Time) (*domain.BoardInvitation, error) {
	column := "accepted_at"
	if status == domain.InvitationDeclined {
		column = "declined_at"
	}

	query := `
		UPDATE board_invitations SET status = $3, ` + column + ` = $4
		WHERE id = $1 AND email = $2 AND status = 'pending' AND expires_at > $4
		RETURNING ` + invitationColumns

	inv, err := scanInvitation(q.QueryRow(ctx, query, id, domain.NormalizeEmail(email), status, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("answer invitation: %w", err)
	}
	return inv, nil
}

// PurgeAnswered deletes invitations that are no longer pending, or that
// expired, before cutoff.
func (r *InvitationRepository) PurgeAnswered(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM board_invitations
		WHERE (status <> 'pending' AND COALESCE(accepted_at, declined_at, expires_at) < $1)
		   OR (status = 'pending' AND expires_at < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}
