package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrBoardNotFound      = errors.New("board not found")
	ErrMemberNotFound     = errors.New("board member not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationConflict means an active invitation already exists for
	// the same board and email.
	ErrInvitationConflict = errors.New("active invitation already exists")
	// ErrOwnershipChanged means the board owner moved under a concurrent write.
	ErrOwnershipChanged = errors.New("board owner changed concurrently")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
