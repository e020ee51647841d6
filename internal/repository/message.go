package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vendor-request-system/internal/domain/message"
)

const (
	messageSelect = `SELECT m.id, m.sender_id, m.receiver_id, m.content, m.is_read,
			COALESCE(m.related_order_id, ''), COALESCE(m.related_product_id, ''), m.created_at,
			s.email, s.role, r.email, r.role
		FROM messages m
		JOIN users s ON s.id = m.sender_id
		JOIN users r ON r.id = m.receiver_id`

	createMessageSQL = `INSERT INTO messages
			(id, sender_id, receiver_id, content, related_order_id, related_product_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING is_read, created_at`

	getMessageSQL = messageSelect + ` WHERE m.id = $1`

	listUserMessagesSQL = messageSelect + `
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.created_at DESC`

	markMessageReadSQL = `UPDATE messages SET is_read = TRUE WHERE id = $1`

	unreadCountSQL = `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT is_read`
)

var _ message.Repository = (*MessageRepository)(nil)

// MessageRepository implements message.Repository backed by PostgreSQL.
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	err := r.pool.QueryRow(ctx, createMessageSQL,
		m.ID, m.SenderID, m.ReceiverID, m.Content, m.RelatedOrderID, m.RelatedProductID,
	).Scan(&m.Read, &m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return message.ErrReceiverNotFound
		}
		return errors.Wrap(err, "insert message")
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*message.Message, error) {
	rows, err := r.pool.Query(ctx, getMessageSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "query message")
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, message.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan message")
	}
	return &m, nil
}

func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]message.Message, error) {
	rows, err := r.pool.Query(ctx, listUserMessagesSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	return pgx.CollectRows(rows, scanMessage)
}

func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, markMessageReadSQL, id)
	if err != nil {
		return errors.Wrapf(err, "mark message %q read", id)
	}
	if tag.RowsAffected() == 0 {
		return message.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, unreadCountSQL, userID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count unread messages")
	}
	return n, nil
}

func scanMessage(row pgx.CollectableRow) (message.Message, error) {
	var m message.Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Read,
		&m.RelatedOrderID, &m.RelatedProductID, &m.CreatedAt,
		&m.Sender.Email, &m.Sender.Role, &m.Receiver.Email, &m.Receiver.Role,
	)
	m.Sender.ID = m.SenderID
	m.Receiver.ID = m.ReceiverID
	return m, err
}
