package appointments

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StatusEvent is one recorded lifecycle move.
type StatusEvent struct {
	AppointmentID string    `json:"appointmentId"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"at"`
}

// StatusAudit writes status events to appointment_status_events.
type StatusAudit struct {
	db *sql.DB
}

func NewStatusAudit(db *sql.DB) *StatusAudit {
	if db == nil {
		panic("appointments: sql db required")
	}
	return &StatusAudit{db: db}
}

func (a *StatusAudit) RecordTransition(ctx context.Context, event StatusEvent) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO appointment_status_events (appointment_id, from_status, to_status, actor, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.AppointmentID, string(event.From), string(event.To), event.Actor, event.At)
	if err != nil {
		return fmt.Errorf("appointments: record transition: %w", err)
	}
	return nil
}

// History returns the events of one appointment, oldest first.
func (a *StatusAudit) History(ctx context.Context, appointmentID string) ([]StatusEvent, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT appointment_id, from_status, to_status, actor, created_at
		FROM appointment_status_events
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("appointments: status history: %w", err)
	}
	defer rows.Close()

	var events []StatusEvent
	for rows.Next() {
		var e StatusEvent
		var from, to string
		if err := rows.Scan(&e.AppointmentID, &from, &to, &e.Actor, &e.At); err != nil {
			return nil, fmt.Errorf("appointments: scan status event: %w", err)
		}
		e.From = Status(from)
		e.To = Status(to)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: status history: %w", err)
	}
	return events, nil
}
