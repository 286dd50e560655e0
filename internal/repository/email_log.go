package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/otel"
)

type InsertEmailLogParams struct {
	UserID    uuid.UUID
	OrderID   uuid.UUID
	EmailType string
	Recipient string
	Subject   string
	Content   string
	Status    string
	SentAt    time.Time
}

func (q *Queries) InsertEmailLog(c context.Context, p InsertEmailLogParams) (uuid.UUID, error) {
	c, span := otel.Tracer.Start(c, "Queries InsertEmailLog")
	defer span.End()

	row, err := q.tables.Insert(c, TableEmailLogs, backend.Row{
		"user_id":    p.UserID,
		"order_id":   p.OrderID,
		"email_type": p.EmailType,
		"recipient":  p.Recipient,
		"subject":    p.Subject,
		"content":    p.Content,
		"status":     p.Status,
		"sent_at":    p.SentAt,
	})
	if err != nil {
		otel.RecordError(err, span)
		return uuid.Nil, err
	}
	return toUUID(row["id"])
}
