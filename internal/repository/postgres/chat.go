package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
)

type conversationRepository struct {
	q queryer
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, a, b string, at time.Time) (*entity.Conversation, bool, error) {
	pair := entity.ParticipantPair(a, b)

	// The unique (participant_a, participant_b) constraint on the canonical
	// pair makes concurrent creations converge on one row.
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (participant_a, participant_b) DO NOTHING`,
		uuid.NewString(), pair[0], pair[1], at,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert conversation: %w", err)
	}
	created, err := affected(res)
	if err != nil {
		return nil, false, err
	}

	conv, err := r.Find(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

func (r *conversationRepository) Find(ctx context.Context, a, b string) (*entity.Conversation, error) {
	pair := entity.ParticipantPair(a, b)
	var c entity.Conversation
	err := r.q.QueryRowContext(ctx,
		"SELECT id, participant_a, participant_b, created_at, updated_at FROM conversations WHERE participant_a = $1 AND participant_b = $2",
		pair[0], pair[1],
	).Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	var c entity.Conversation
	err := r.q.QueryRowContext(ctx,
		"SELECT id, participant_a, participant_b, created_at, updated_at FROM conversations WHERE id = $1",
		id,
	).Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string) ([]entity.Conversation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.participant_a, c.participant_b, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM chat_messages m
				WHERE m.conversation_id = c.id AND m.receiver_id = $1 AND m.read_at IS NULL)
		FROM conversations c
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []entity.Conversation
	for rows.Next() {
		var c entity.Conversation
		if err := rows.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt, &c.UpdatedAt, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	for i := range convs {
		row := r.q.QueryRowContext(ctx,
			"SELECT "+messageColumns+" FROM chat_messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT 1",
			convs[i].ID,
		)
		msg, err := scanMessage(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load last message: %w", err)
		}
		convs[i].LastMessage = msg
	}
	return convs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, "UPDATE conversations SET updated_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return requireAffected(res)
}

const messageColumns = `id, conversation_id, sender_id, receiver_id, body, message_type,
	pr_font_id, pr_order_id, pr_amount, pr_status, read_at, created_at, updated_at`

type messageRepository struct {
	q queryer
}

func scanMessage(row rowScanner) (*entity.ChatMessage, error) {
	var (
		m        entity.ChatMessage
		fontID   sql.NullString
		orderID  sql.NullString
		amount   decimal.NullDecimal
		prStatus sql.NullString
		readAt   sql.NullTime
	)
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Body, &m.Type,
		&fontID, &orderID, &amount, &prStatus, &readAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if prStatus.Valid {
		m.PaymentRequest = &entity.PaymentRequest{
			FontID:  fontID.String,
			OrderID: orderID.String,
			Amount:  amount.Decimal,
			Status:  entity.PaymentRequestStatus(prStatus.String),
		}
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return &m, nil
}

func (r *messageRepository) Create(ctx context.Context, m *entity.ChatMessage) error {
	var fontID, orderID, amount, status any
	if pr := m.PaymentRequest; pr != nil {
		fontID, amount, status = pr.FontID, pr.Amount, string(pr.Status)
		if pr.OrderID != "" {
			orderID = pr.OrderID
		}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, sender_id, receiver_id, body, message_type,
			pr_font_id, pr_order_id, pr_amount, pr_status, read_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.Type,
		fontID, orderID, amount, status, m.ReadAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

func (r *messageRepository) Get(ctx context.Context, id string) (*entity.ChatMessage, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM chat_messages WHERE id = $1", id)
	m, err := scanMessage(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]entity.ChatMessage, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []entity.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, receiverID string, at time.Time) (int, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE chat_messages SET read_at = $1 WHERE conversation_id = $2 AND receiver_id = $3 AND read_at IS NULL",
		at, conversationID, receiverID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

func (r *messageRepository) TransitionPaymentStatus(ctx context.Context, id string, from, to entity.PaymentRequestStatus, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE chat_messages SET pr_status = $1, updated_at = $2 WHERE id = $3 AND message_type = $4 AND pr_status = $5",
		to, at, id, entity.MessagePaymentRequest, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update payment request: %w", err)
	}
	return affected(res)
}

func (r *messageRepository) FindPaymentRequestByOrder(ctx context.Context, orderID string) (*entity.ChatMessage, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE pr_order_id = $1 AND message_type = $2 ORDER BY created_at ASC LIMIT 1",
		orderID, entity.MessagePaymentRequest,
	)
	m, err := scanMessage(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}


