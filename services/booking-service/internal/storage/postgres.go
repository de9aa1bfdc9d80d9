package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	otelx "github.com/md-rashed-zaman/slotdesk/libs/otel"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/outbox"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema files for db.Migrator.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	uniqueViolation = "23505"

	slotConstraint  = "appointments_active_slot_key"
	slugConstraint  = "providers_slug_key"
	emailConstraint = "providers_email_key"
)

const providerColumns = `id, slug, name, business_name, business_type, email, password_hash,
	trial_ends_at, active, logo_url, header_color, notifications, availability, created_at`

const appointmentColumns = `id, provider_id, client_name, client_phone, date, time, note,
	status, reminder_sent, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (model.Provider, error) {
	var (
		p     model.Provider
		btype string
		prefs PrefsColumn
		slots SlotsColumn
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.BusinessName, &btype, &p.Email, &p.PasswordHash,
		&p.TrialEndsAt, &p.Active, &p.LogoURL, &p.HeaderColor, &prefs, &slots, &p.CreatedAt)
	if err != nil {
		return model.Provider{}, err
	}
	p.BusinessType = model.BusinessType(btype)
	p.Notifications = model.NotificationPrefs(prefs)
	p.Availability = []model.RecurringSlot(slots)
	return p, nil
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.ProviderID, &a.ClientName, &a.ClientPhone, &a.Date, &a.Time, &a.Note,
		&status, &a.ReminderSent, &a.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	return a, nil
}

func (s *PostgresStore) ListProviders(ctx context.Context) ([]model.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) providerWhere(ctx context.Context, where string, arg any) (model.Provider, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE `+where, arg)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Provider{}, ErrNotFound
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("query provider: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ProviderByID(ctx context.Context, id string) (model.Provider, error) {
	return s.providerWhere(ctx, `id = $1`, id)
}

func (s *PostgresStore) ProviderBySlug(ctx context.Context, slug string) (model.Provider, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Provider{}, ErrNotFound
	}
	return s.providerWhere(ctx, `lower(slug) = lower($1)`, slug)
}

func (s *PostgresStore) ProviderByEmail(ctx context.Context, email string) (model.Provider, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Provider{}, ErrNotFound
	}
	return s.providerWhere(ctx, `lower(email) = lower($1)`, email)
}

func (s *PostgresStore) CreateProvider(ctx context.Context, p model.Provider) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.Slug, p.Name, p.BusinessName, string(p.BusinessType), p.Email, p.PasswordHash,
		p.TrialEndsAt, p.Active, p.LogoURL, p.HeaderColor, PrefsColumn(p.Notifications), SlotsColumn(p.Availability), p.CreatedAt)
	if err != nil {
		return providerWriteError(err, p.Slug)
	}
	return nil
}

func (s *PostgresStore) UpdateProvider(ctx context.Context, p model.Provider) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE providers
		SET slug = $2, name = $3, business_name = $4, business_type = $5, email = $6, password_hash = $7,
			logo_url = $8, header_color = $9, notifications = $10, availability = $11
		WHERE id = $1
	`, p.ID, p.Slug, p.Name, p.BusinessName, string(p.BusinessType), p.Email, p.PasswordHash,
		p.LogoURL, p.HeaderColor, PrefsColumn(p.Notifications), SlotsColumn(p.Availability))
	if err != nil {
		return providerWriteError(err, p.Slug)
	}
	return requireRow(res)
}

func (s *PostgresStore) SetProviderActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE providers SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set provider active: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ProviderAppointments(ctx context.Context, providerID string) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		ORDER BY created_at, id
	`, providerID)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClaimSlot(ctx context.Context, appt model.Appointment, evt outbox.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, appt.ID, appt.ProviderID, appt.ClientName, appt.ClientPhone, appt.Date, appt.Time, appt.Note,
			string(appt.Status), appt.ReminderSent, appt.CreatedAt)
		if err != nil {
			if constraintViolated(err, slotConstraint) {
				return booking.ErrSlotTaken
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		return insertEvent(ctx, tx, evt)
	})
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, id string, from, to model.Status, evt outbox.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE appointments SET status = $3 WHERE id = $1 AND status = $2
		`, id, string(from), string(to))
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return s.missingOrConflict(ctx, tx, id)
		}
		return insertEvent(ctx, tx, evt)
	})
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, id string, evt outbox.Event) (bool, error) {
	var changed bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE appointments SET reminder_sent = true WHERE id = $1 AND NOT reminder_sent
		`, id)
		if err != nil {
			return fmt.Errorf("mark reminder: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			if err := s.missingOrConflict(ctx, tx, id); !errors.Is(err, ErrConflict) {
				return err
			}
			return nil
		}
		changed = true
		return insertEvent(ctx, tx, evt)
	})
	return changed, err
}

// missingOrConflict tells a vanished row from one whose guard no longer matched.
func (s *PostgresStore) missingOrConflict(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM appointments WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query appointment: %w", err)
	}
	return ErrConflict
}

// WithPending locks up to limit unpublished rows, hands them to publish and marks
// them published in the same transaction. Concurrent publishers skip locked rows.
func (s *PostgresStore) WithPending(ctx context.Context, limit int, publish func([]outbox.Record) error) (int, error) {
	var count int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at
			FROM outbox_events
			WHERE published_at IS NULL
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		var batch []outbox.Record
		for rows.Next() {
			var r outbox.Record
			if err := rows.Scan(&r.EventID, &r.AggregateType, &r.AggregateID, &r.EventType, &r.Payload,
				&r.Traceparent, &r.Tracestate, &r.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox: %w", err)
			}
			batch = append(batch, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := publish(batch); err != nil {
			return err
		}
		for _, r := range batch {
			if _, err := tx.ExecContext(ctx, `UPDATE outbox_events SET published_at = now() WHERE event_id = $1`, r.EventID); err != nil {
				return fmt.Errorf("mark published: %w", err)
			}
		}
		count = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, evt outbox.Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.EventID, evt.AggregateType, evt.AggregateID, evt.EventType, string(evt.Payload), traceparent, tracestate)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func constraintViolated(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

func providerWriteError(err error, slug string) error {
	switch {
	case constraintViolated(err, slugConstraint):
		return &directory.DuplicateSlugError{Slug: slug}
	case constraintViolated(err, emailConstraint):
		return directory.ErrEmailTaken
	}
	return fmt.Errorf("write provider: %w", err)
}

var _ Store = (*PostgresStore)(nil)
