package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Gateway on top of database/sql. Queries are written
// with "?" placeholders and rebound for Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     Clock

	mu      sync.Mutex
	entropy *rand.Rand
}

// OpenSQLite opens or creates a SQLite database at path and migrates it.
func OpenSQLite(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newStore(db, DialectSQLite)
}

// OpenPostgres connects to dsn, verifies the connection and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return newStore(db, DialectPostgres)
}

// Open picks the dialect by driver name ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch Dialect(driver) {
	case DialectSQLite, "":
		return OpenSQLite(dsn)
	case DialectPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func newStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if err := Migrate(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// SetClock overrides the time source used for slot suggestions and
// timestamps.
func (s *SQLStore) SetClock(c Clock) { s.now = c }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const doctorColumns = `id, nombre, especialidad, disponible, telefono, email`

func scanDoctor(row interface{ Scan(...any) error }) (Doctor, error) {
	var d Doctor
	var phone, email sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.Available, &phone, &email); err != nil {
		return Doctor{}, err
	}
	d.Phone = phone.String
	d.Email = email.String
	return d, nil
}

func (s *SQLStore) FindDoctors(ctx context.Context, specialty string) ([]Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctores WHERE disponible = ?`
	args := []any{true}
	if specialty = strings.TrimSpace(specialty); specialty != "" {
		query += ` AND LOWER(especialidad) LIKE LOWER(?)`
		args = append(args, "%"+specialty+"%")
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) FindDoctorByName(ctx context.Context, name, specialty string) (*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctores WHERE LOWER(nombre) LIKE LOWER(?) AND disponible = ?`
	args := []any{"%" + strings.TrimSpace(name) + "%", true}
	if specialty = strings.TrimSpace(specialty); specialty != "" {
		query += ` AND LOWER(especialidad) LIKE LOWER(?)`
		args = append(args, "%"+specialty+"%")
	}
	query += ` ORDER BY id LIMIT 1`

	d, err := scanDoctor(s.db.QueryRowContext(ctx, s.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("doctor %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query doctor by name: %w", err)
	}
	return &d, nil
}

func (s *SQLStore) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	d, err := scanDoctor(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+doctorColumns+` FROM doctores WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("doctor %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query doctor: %w", err)
	}
	return &d, nil
}

func (s *SQLStore) RegisterPatient(ctx context.Context, p Patient) (string, error) {
	if p.ID == "" {
		return "", errors.New("patient id is required")
	}
	registered := p.RegisteredAt
	if registered.IsZero() {
		registered = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO pacientes (id, nombre, edad, telefono, email, sintomas, urgencia, fecha_registro)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Name, p.Age, nullable(p.Phone), nullable(p.Email), nullable(p.Symptoms), nullable(p.Urgency),
		registered.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("patient %s: %w", p.ID, ErrDuplicate)
		}
		return "", fmt.Errorf("insert patient: %w", err)
	}
	return p.ID, nil
}

func (s *SQLStore) CreateAppointment(ctx context.Context, a NewAppointment) (*Appointment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var patientName string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT nombre FROM pacientes WHERE id = ?`), a.PatientID).Scan(&patientName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", a.PatientID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query patient: %w", err)
	}

	var doctorName, specialty string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT nombre, especialidad FROM doctores WHERE id = ? AND disponible = ?`),
		a.DoctorID, true).Scan(&doctorName, &specialty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("doctor %d unavailable: %w", a.DoctorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query doctor: %w", err)
	}

	appt := &Appointment{
		ID:              s.newID(),
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		Date:            a.Date,
		Time:            a.Time,
		Reason:          a.Reason,
		Urgency:         a.Urgency,
		Status:          StatusScheduled,
		CreatedAt:       s.now().UTC(),
		PatientName:     patientName,
		DoctorName:      doctorName,
		DoctorSpecialty: specialty,
	}
	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO citas (id, paciente_id, doctor_id, fecha, hora, motivo, urgencia, estado, fecha_creacion)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		appt.ID, appt.PatientID, appt.DoctorID, appt.Date, appt.Time, nullable(appt.Reason), nullable(appt.Urgency),
		appt.Status, appt.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("appointment %s: %w", appt.ID, ErrDuplicate)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return appt, nil
}

const appointmentSelect = `
	SELECT c.id, c.paciente_id, c.doctor_id, c.fecha, c.hora, c.motivo, c.urgencia, c.estado, c.fecha_creacion,
	       p.nombre, d.nombre, d.especialidad
	FROM citas c
	JOIN pacientes p ON c.paciente_id = p.id
	JOIN doctores d ON c.doctor_id = d.id`

func scanAppointment(row interface{ Scan(...any) error }) (Appointment, error) {
	var a Appointment
	var reason, urgency sql.NullString
	var created string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time, &reason, &urgency, &a.Status, &created,
		&a.PatientName, &a.DoctorName, &a.DoctorSpecialty)
	if err != nil {
		return Appointment{}, err
	}
	a.Reason = reason.String
	a.Urgency = urgency.String
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return a, nil
}

func (s *SQLStore) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(s.db.QueryRowContext(ctx, s.rebind(appointmentSelect+` WHERE c.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query appointment: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) ListAppointments(ctx context.Context, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(appointmentSelect+` ORDER BY c.fecha_creacion DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) IsSlotFree(ctx context.Context, doctorID int64, date, hour string) (bool, error) {
	if !bookable(s.now(), date, hour) {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM citas WHERE doctor_id = ? AND fecha = ? AND hora = ? AND estado = ?`),
		doctorID, date, hour, StatusScheduled).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count appointments: %w", err)
	}
	return n == 0, nil
}

func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{PatientsByUrgency: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pacientes`).Scan(&st.TotalPatients); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citas`).Scan(&st.TotalAppointments); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM doctores WHERE disponible = ?`), true).
		Scan(&st.AvailableDoctors); err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(urgencia, 'SIN_CLASIFICAR'), COUNT(*) FROM pacientes GROUP BY COALESCE(urgencia, 'SIN_CLASIFICAR')`)
	if err != nil {
		return nil, fmt.Errorf("group patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var urgency string
		var n int
		if err := rows.Scan(&urgency, &n); err != nil {
			return nil, fmt.Errorf("scan urgency: %w", err)
		}
		st.PatientsByUrgency[urgency] = n
	}
	return st, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}
