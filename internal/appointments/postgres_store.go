package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/careconnect-ai/platform/pkg/logging"
)

// pgxDB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in Postgres and re-delivers full
// collection snapshots over Redis pub/sub so every API instance observes
// every change.
type PostgresStore struct {
	db      pgxDB
	rdb     *redis.Client
	appID   string
	channel string
	logger  *logging.Logger

	mu        sync.Mutex
	subs      map[int]chan []Appointment
	next      int
	listening bool
	stop      context.CancelFunc
}

// NewPostgresStore creates a store backed by a pgx pool. rdb may be nil, in
// which case snapshots only reach subscribers on this instance.
func NewPostgresStore(pool *pgxpool.Pool, rdb *redis.Client, appID string, logger *logging.Logger) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return newPostgresStore(pool, rdb, appID, logger)
}

// NewPostgresStoreWithDB allows injecting mocks for tests.
func NewPostgresStoreWithDB(db pgxDB, rdb *redis.Client, appID string, logger *logging.Logger) *PostgresStore {
	return newPostgresStore(db, rdb, appID, logger)
}

func newPostgresStore(db pgxDB, rdb *redis.Client, appID string, logger *logging.Logger) *PostgresStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresStore{
		db:      db,
		rdb:     rdb,
		appID:   appID,
		channel: "appointments:" + appID,
		logger:  logger,
		subs:    make(map[int]chan []Appointment),
	}
}

const insertAppointmentSQL = `
	INSERT INTO appointments (
		id, app_id, user_id, patient_name, patient_age, symptoms, priority,
		appointment_type, appointment_type_name, doctor_id, doctor_name,
		preferred_date, time_slot, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING requested_at
`

// Create inserts a row; the database assigns the request timestamp.
func (s *PostgresStore) Create(ctx context.Context, appt Appointment) (string, error) {
	id := uuid.NewString()
	var requestedAt time.Time
	err := s.db.QueryRow(ctx, insertAppointmentSQL,
		id,
		s.appID,
		appt.UserID,
		appt.PatientName,
		appt.PatientAge,
		appt.Symptoms,
		int(appt.Priority),
		string(appt.AppointmentType),
		appt.AppointmentTypeName,
		appt.DoctorID,
		appt.DoctorName,
		appt.PreferredDate,
		appt.TimeSlot,
		appt.Status,
	).Scan(&requestedAt)
	if err != nil {
		return "", fmt.Errorf("appointments: insert failed: %w", err)
	}

	s.publish(ctx)
	return id, nil
}

// Delete removes a row scoped to this deployment's partition.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM appointments WHERE id = $1 AND app_id = $2`, id, s.appID)
	if err != nil {
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.publish(ctx)
	return nil
}

const selectAppointmentsSQL = `
	SELECT id, user_id, patient_name, patient_age, symptoms, priority,
	       appointment_type, appointment_type_name, doctor_id, doctor_name,
	       preferred_date, time_slot, status, requested_at
	FROM appointments
	WHERE app_id = $1
`

// Snapshot loads the full current set of records for this partition.
// Rows missing a request timestamp fall back to "now" rather than being
// rejected.
func (s *PostgresStore) Snapshot(ctx context.Context) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, selectAppointmentsSQL, s.appID)
	if err != nil {
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			appt        Appointment
			priority    int
			apptType    string
			requestedAt *time.Time
		)
		if err := rows.Scan(
			&appt.ID,
			&appt.UserID,
			&appt.PatientName,
			&appt.PatientAge,
			&appt.Symptoms,
			&priority,
			&apptType,
			&appt.AppointmentTypeName,
			&appt.DoctorID,
			&appt.DoctorName,
			&appt.PreferredDate,
			&appt.TimeSlot,
			&appt.Status,
			&requestedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		appt.Priority = Priority(priority)
		appt.AppointmentType = Type(apptType)
		appt.AppID = s.appID
		if requestedAt != nil {
			appt.RequestedAt = requestedAt.UTC().Format(time.RFC3339)
		} else {
			appt.RequestedAt = time.Now().UTC().Format(time.RFC3339)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: row iteration failed: %w", err)
	}
	return out, nil
}

// Subscribe registers a snapshot channel and starts the Redis listener on
// first use.
func (s *PostgresStore) Subscribe(ctx context.Context) (<-chan []Appointment, func(), error) {
	initial, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []Appointment, 8)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.ensureListenerLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Close stops the Redis listener.
func (s *PostgresStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.listening = false
}

// publish reloads the collection and delivers it to every subscriber. With
// Redis configured the snapshot travels through pub/sub so other instances
// see it too; our own subscription loops it back locally.
func (s *PostgresStore) publish(ctx context.Context) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Error("appointments: snapshot after write failed", "error", err)
		return
	}

	if s.rdb != nil {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			s.logger.Error("appointments: snapshot marshal failed", "error", err)
			return
		}
		if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
			s.logger.Error("appointments: snapshot publish failed", "error", err)
			// Fall back to local delivery so this instance stays live.
			s.fanOut(snapshot)
		}
		return
	}

	s.fanOut(snapshot)
}

func (s *PostgresStore) fanOut(snapshot []Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		cp := make([]Appointment, len(snapshot))
		copy(cp, snapshot)
		select {
		case ch <- cp:
		default:
		}
	}
}

// ensureListenerLocked starts the pub/sub consumer once. Caller holds s.mu.
func (s *PostgresStore) ensureListenerLocked() {
	if s.rdb == nil || s.listening {
		return
	}
	s.listening = true

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	pubsub := s.rdb.Subscribe(ctx, s.channel)

	go func() {
		defer func() { _ = pubsub.Close() }()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("appointments: pubsub receive failed", "error", err)
				continue
			}
			var snapshot []Appointment
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				s.logger.Warn("appointments: pubsub payload malformed", "error", err)
				continue
			}
			s.fanOut(snapshot)
		}
	}()
}
