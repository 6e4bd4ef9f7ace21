package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// ReservationRepo stores reservations, their lines and their status
// history.  Every write that can create an overlap locks the involved
// resources rows with SELECT ... FOR UPDATE, in ascending id order, and
// re-checks overlap before writing, all inside one transaction.
type ReservationRepo struct {
	db *sqlx.DB
}

var _ booking.ReservationStore = (*ReservationRepo)(nil)

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// reservationRecord mirrors reservations joined with customers.
type reservationRecord struct {
	ID                uint64    `db:"id"`
	CustomerID        uint64    `db:"customer_id"`
	CustomerName      string    `db:"customer_name"`
	CustomerEmail     string    `db:"customer_email"`
	CustomerPhone     string    `db:"customer_phone"`
	StartDate         time.Time `db:"start_date"`
	EndDate           time.Time `db:"end_date"`
	StartMinute       int       `db:"start_minute"`
	EndMinute         int       `db:"end_minute"`
	Status            string    `db:"status"`
	BillableDays      int       `db:"billable_days"`
	PromoApplied      bool      `db:"promo_applied"`
	TotalPriceCents   int64     `db:"total_price_cents"`
	DepositTotalCents int64     `db:"deposit_total_cents"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r reservationRecord) toModel() model.Reservation {
	return model.Reservation{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Customer: model.CustomerInfo{
			Name:  r.CustomerName,
			Email: r.CustomerEmail,
			Phone: r.CustomerPhone,
		},
		Window: model.TimeWindow{
			StartDate: model.DateOf(r.StartDate),
			EndDate:   model.DateOf(r.EndDate),
			StartTime: model.TimeOfDay(r.StartMinute),
			EndTime:   model.TimeOfDay(r.EndMinute),
		},
		Status:            model.Status(r.Status),
		BillableDays:      r.BillableDays,
		PromoApplied:      r.PromoApplied,
		TotalPriceCents:   r.TotalPriceCents,
		DepositTotalCents: r.DepositTotalCents,
		Lines:             []model.LineItem{},
		Services:          []model.ServiceLine{},
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// itemRecord mirrors reservation_items.
type itemRecord struct {
	ReservationID      uint64        `db:"reservation_id"`
	ResourceID         uint64        `db:"resource_id"`
	ResourceName       string        `db:"resource_name"`
	Quantity           int           `db:"quantity"`
	PricePerDayCents   int64         `db:"price_per_day_cents"`
	StandardPriceCents int64         `db:"standard_price_cents"`
	PromoPriceCents    sql.NullInt64 `db:"promo_price_cents"`
	DepositCents       int64         `db:"deposit_cents"`
}

func (r itemRecord) toModel() model.LineItem {
	l := model.LineItem{
		ReservationID:      r.ReservationID,
		ResourceID:         r.ResourceID,
		ResourceName:       r.ResourceName,
		Quantity:           r.Quantity,
		PricePerDayCents:   r.PricePerDayCents,
		StandardPriceCents: r.StandardPriceCents,
		DepositCents:       r.DepositCents,
	}
	if r.PromoPriceCents.Valid {
		p := r.PromoPriceCents.Int64
		l.PromoPriceCents = &p
	}
	return l
}

type serviceLineRecord struct {
	ReservationID  uint64 `db:"reservation_id"`
	ServiceID      uint64 `db:"service_id"`
	Name           string `db:"name"`
	Quantity       int    `db:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents"`
}

type historyRecord struct {
	ReservationID uint64    `db:"reservation_id"`
	FromStatus    string    `db:"from_status"`
	ToStatus      string    `db:"to_status"`
	ChangedAt     time.Time `db:"changed_at"`
	Actor         string    `db:"actor"`
	Comment       string    `db:"comment"`
	IsOverride    bool      `db:"is_override"`
}

type spanRecord struct {
	ReservationID uint64    `db:"reservation_id"`
	ResourceID    uint64    `db:"resource_id"`
	Quantity      int       `db:"quantity"`
	Status        string    `db:"status"`
	StartDate     time.Time `db:"start_date"`
	EndDate       time.Time `db:"end_date"`
	StartMinute   int       `db:"start_minute"`
	EndMinute     int       `db:"end_minute"`
	CustomerName  string    `db:"customer_name"`
}

const reservationColumns = `
	r.id, r.customer_id, c.name AS customer_name, c.email AS customer_email, c.phone AS customer_phone,
	r.start_date, r.end_date, r.start_minute, r.end_minute, r.status, r.billable_days,
	r.promo_applied, r.total_price_cents, r.deposit_total_cents, r.created_at, r.updated_at`

func activeStatusArgs() []string {
	out := make([]string, len(model.ActiveStatuses))
	for i, s := range model.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

// ActiveSpans returns active reservation lines of the given resources whose
// window intersects [from, to].  A zero to leaves the range open-ended.
func (r *ReservationRepo) ActiveSpans(ctx context.Context, resourceIDs []uint64, from, to model.Date) ([]booking.Span, error) {
	if len(resourceIDs) == 0 {
		return []booking.Span{}, nil
	}
	q := `
		SELECT ri.reservation_id, ri.resource_id, ri.quantity, r.status,
		       r.start_date, r.end_date, r.start_minute, r.end_minute, c.name AS customer_name
		FROM reservation_items ri
		JOIN reservations r ON r.id = ri.reservation_id
		JOIN customers c ON c.id = r.customer_id
		WHERE ri.resource_id IN (?) AND r.status IN (?) AND r.end_date >= ?`
	args := []interface{}{resourceIDs, activeStatusArgs(), from.Time()}
	if !to.IsZero() {
		q += ` AND r.start_date <= ?`
		args = append(args, to.Time())
	}
	q += ` ORDER BY ri.resource_id, r.start_date, r.id`

	query, qargs, err := sqlx.In(q, args...)
	if err != nil {
		return nil, fmt.Errorf("build span query: %w", err)
	}
	var rows []spanRecord
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), qargs...); err != nil {
		return nil, fmt.Errorf("select active spans: %w", err)
	}
	out := make([]booking.Span, 0, len(rows))
	for _, row := range rows {
		out = append(out, booking.Span{
			ReservationID: row.ReservationID,
			ResourceID:    row.ResourceID,
			Quantity:      row.Quantity,
			Status:        model.Status(row.Status),
			Window: model.TimeWindow{
				StartDate: model.DateOf(row.StartDate),
				EndDate:   model.DateOf(row.EndDate),
				StartTime: model.TimeOfDay(row.StartMinute),
				EndTime:   model.TimeOfDay(row.EndMinute),
			},
			CustomerName: row.CustomerName,
		})
	}
	return out, nil
}

// lockResourcesTx takes row locks on the given resources in ascending id
// order so that concurrent bookings of the same resource serialize here.
func (r *ReservationRepo) lockResourcesTx(ctx context.Context, tx *sqlx.Tx, ids []uint64) error {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	query, args, err := sqlx.In(`SELECT id FROM resources WHERE id IN (?) ORDER BY id FOR UPDATE`, sorted)
	if err != nil {
		return fmt.Errorf("build lock query: %w", err)
	}
	var locked []uint64
	if err := tx.SelectContext(ctx, &locked, tx.Rebind(query), args...); err != nil {
		return err
	}
	if len(locked) != len(sorted) {
		return fmt.Errorf("%w: unknown resource in reservation", booking.ErrInvalidRequest)
	}
	return nil
}

// takenResourceTx returns the first of ids booked by an active reservation
// other than exclude during w, or 0.  It runs after lockResourcesTx, so its
// snapshot includes every booking committed by earlier lock holders.
func (r *ReservationRepo) takenResourceTx(ctx context.Context, tx *sqlx.Tx, ids []uint64, w model.TimeWindow, exclude uint64) (uint64, error) {
	query, args, err := sqlx.In(`
		SELECT ri.resource_id
		FROM reservation_items ri
		JOIN reservations r ON r.id = ri.reservation_id
		WHERE ri.resource_id IN (?) AND r.status IN (?) AND r.id <> ?
		  AND r.start_date <= ? AND r.end_date >= ?
		ORDER BY ri.resource_id
		LIMIT 1`, ids, activeStatusArgs(), exclude, w.EndDate.Time(), w.StartDate.Time())
	if err != nil {
		return 0, fmt.Errorf("build overlap query: %w", err)
	}
	var taken uint64
	err = tx.GetContext(ctx, &taken, tx.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return taken, nil
}

// insertItemsTx inserts all lines of a reservation in one statement.
func (r *ReservationRepo) insertItemsTx(ctx context.Context, tx *sqlx.Tx, id uint64, lines []model.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO reservation_items
		(reservation_id, resource_id, resource_name, quantity, price_per_day_cents,
		 standard_price_cents, promo_price_cents, deposit_cents) VALUES `)
	args := make([]interface{}, 0, len(lines)*8)
	for i, l := range lines {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		var promo sql.NullInt64
		if l.PromoPriceCents != nil {
			promo = sql.NullInt64{Int64: *l.PromoPriceCents, Valid: true}
		}
		args = append(args, id, l.ResourceID, l.ResourceName, l.Quantity, l.PricePerDayCents,
			l.StandardPriceCents, promo, l.DepositCents)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *ReservationRepo) insertServicesTx(ctx context.Context, tx *sqlx.Tx, id uint64, services []model.ServiceLine) error {
	if len(services) == 0 {
		return nil
	}
	rows := make([]serviceLineRecord, len(services))
	for i, s := range services {
		rows[i] = serviceLineRecord{
			ReservationID:  id,
			ServiceID:      s.ServiceID,
			Name:           s.Name,
			Quantity:       s.Quantity,
			UnitPriceCents: s.UnitPriceCents,
		}
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO reservation_services (reservation_id, service_id, name, quantity, unit_price_cents)
		VALUES (:reservation_id, :service_id, :name, :quantity, :unit_price_cents)`, rows)
	return err
}

func (r *ReservationRepo) appendHistoryTx(ctx context.Context, tx *sqlx.Tx, e model.HistoryEntry) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO reservation_history
			(reservation_id, from_status, to_status, changed_at, actor, comment, is_override)
		VALUES (:reservation_id, :from_status, :to_status, :changed_at, :actor, :comment, :is_override)`,
		historyRecord{
			ReservationID: e.ReservationID,
			FromStatus:    string(e.From),
			ToStatus:      string(e.To),
			ChangedAt:     e.At.UTC(),
			Actor:         e.Actor,
			Comment:       e.Comment,
			IsOverride:    e.Override,
		})
	return err
}

// lockConflict maps lock failures to booking.ErrWindowTaken so the engine
// re-runs the booking.
func lockConflict(step string, err error) error {
	if isLockConflict(err) {
		return fmt.Errorf("%s: %w", step, booking.ErrWindowTaken)
	}
	return fmt.Errorf("%s: %w", step, err)
}

// Reserve inserts the reservation, its lines, its services and the first
// history entry after re-checking overlap under the resource locks.
func (r *ReservationRepo) Reserve(ctx context.Context, res *model.Reservation, entry model.HistoryEntry) (uint64, error) {
	ids := res.ResourceIDs()
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: reservation has no lines", booking.ErrInvalidRequest)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reserve: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.lockResourcesTx(ctx, tx, ids); err != nil {
		return 0, lockConflict("lock resources", err)
	}
	taken, err := r.takenResourceTx(ctx, tx, ids, res.Window, 0)
	if err != nil {
		return 0, lockConflict("overlap check", err)
	}
	if taken != 0 {
		return 0, &booking.WindowTakenError{ResourceID: taken}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations
			(customer_id, start_date, end_date, start_minute, end_minute, status, billable_days,
			 promo_applied, total_price_cents, deposit_total_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.CustomerID, res.Window.StartDate.Time(), res.Window.EndDate.Time(),
		int(res.Window.StartTime), int(res.Window.EndTime), string(res.Status), res.BillableDays,
		res.PromoApplied, res.TotalPriceCents, res.DepositTotalCents,
		res.CreatedAt.UTC(), res.UpdatedAt.UTC())
	if err != nil {
		return 0, lockConflict("insert reservation", err)
	}
	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reservation id: %w", err)
	}
	id := uint64(lastID)

	if err := r.insertItemsTx(ctx, tx, id, res.Lines); err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("%w: resource listed twice", booking.ErrInvalidRequest)
		}
		return 0, lockConflict("insert items", err)
	}
	if err := r.insertServicesTx(ctx, tx, id, res.Services); err != nil {
		return 0, lockConflict("insert services", err)
	}
	entry.ReservationID = id
	if err := r.appendHistoryTx(ctx, tx, entry); err != nil {
		return 0, lockConflict("insert history", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, lockConflict("commit reserve", err)
	}
	committed = true
	return id, nil
}

// resourceIDsOf returns the resources of a reservation.  Lines never change
// resource after booking, so a plain read is enough.
func (r *ReservationRepo) resourceIDsOf(ctx context.Context, id uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT resource_id FROM reservation_items WHERE reservation_id = ? ORDER BY resource_id`, id)
	if err != nil {
		return nil, fmt.Errorf("select reservation resources: %w", err)
	}
	return ids, nil
}

// lockReservationTx locks the reservation row and returns its status and
// window.
func (r *ReservationRepo) lockReservationTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Status, model.TimeWindow, error) {
	var row struct {
		Status      string    `db:"status"`
		StartDate   time.Time `db:"start_date"`
		EndDate     time.Time `db:"end_date"`
		StartMinute int       `db:"start_minute"`
		EndMinute   int       `db:"end_minute"`
	}
	err := tx.GetContext(ctx, &row, `
		SELECT status, start_date, end_date, start_minute, end_minute
		FROM reservations WHERE id = ? FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.TimeWindow{}, booking.ErrNotFound
	}
	if err != nil {
		return "", model.TimeWindow{}, err
	}
	return model.Status(row.Status), model.TimeWindow{
		StartDate: model.DateOf(row.StartDate),
		EndDate:   model.DateOf(row.EndDate),
		StartTime: model.TimeOfDay(row.StartMinute),
		EndTime:   model.TimeOfDay(row.EndMinute),
	}, nil
}

// Reschedule moves a reservation to a new window and stores the re-priced
// lines.
func (r *ReservationRepo) Reschedule(ctx context.Context, change booking.WindowChange) error {
	ids, err := r.resourceIDsOf(ctx, change.ReservationID)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reschedule: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if len(ids) > 0 {
		if err := r.lockResourcesTx(ctx, tx, ids); err != nil {
			return lockConflict("lock resources", err)
		}
	}
	status, _, err := r.lockReservationTx(ctx, tx, change.ReservationID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return err
		}
		return lockConflict("lock reservation", err)
	}
	if status != change.ExpectedStatus {
		return booking.ErrStaleStatus
	}
	if len(ids) > 0 {
		taken, err := r.takenResourceTx(ctx, tx, ids, change.Window, change.ReservationID)
		if err != nil {
			return lockConflict("overlap check", err)
		}
		if taken != 0 {
			return &booking.WindowTakenError{ResourceID: taken}
		}
	}

	var deposit int64
	for _, l := range change.Lines {
		deposit += l.DepositCents * int64(l.Quantity)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE reservations
		SET start_date = ?, end_date = ?, start_minute = ?, end_minute = ?, billable_days = ?,
		    promo_applied = ?, total_price_cents = ?, deposit_total_cents = ?, updated_at = ?
		WHERE id = ?`,
		change.Window.StartDate.Time(), change.Window.EndDate.Time(),
		int(change.Window.StartTime), int(change.Window.EndTime), change.BillableDays,
		change.PromoApplied, change.TotalPriceCents, deposit, change.Entry.At.UTC(), change.ReservationID)
	if err != nil {
		return lockConflict("update reservation window", err)
	}
	for _, l := range change.Lines {
		_, err := tx.ExecContext(ctx,
			`UPDATE reservation_items SET price_per_day_cents = ? WHERE reservation_id = ? AND resource_id = ?`,
			l.PricePerDayCents, change.ReservationID, l.ResourceID)
		if err != nil {
			return lockConflict("update item price", err)
		}
	}
	change.Entry.ReservationID = change.ReservationID
	if err := r.appendHistoryTx(ctx, tx, change.Entry); err != nil {
		return lockConflict("insert history", err)
	}
	if err := tx.Commit(); err != nil {
		return lockConflict("commit reschedule", err)
	}
	committed = true
	return nil
}

// UpdateStatus applies a compare-and-set status change.  Reactivations
// re-check overlap under the resource locks first.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, change booking.StatusChange) error {
	var ids []uint64
	if change.CheckOverlap {
		var err error
		if ids, err = r.resourceIDsOf(ctx, change.ReservationID); err != nil {
			return err
		}
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if len(ids) > 0 {
		if err := r.lockResourcesTx(ctx, tx, ids); err != nil {
			return lockConflict("lock resources", err)
		}
	}
	status, w, err := r.lockReservationTx(ctx, tx, change.ReservationID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return err
		}
		return lockConflict("lock reservation", err)
	}
	if status != change.From {
		return booking.ErrStaleStatus
	}
	if len(ids) > 0 {
		taken, err := r.takenResourceTx(ctx, tx, ids, w, change.ReservationID)
		if err != nil {
			return lockConflict("overlap check", err)
		}
		if taken != 0 {
			return &booking.WindowTakenError{ResourceID: taken}
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(change.To), change.Entry.At.UTC(), change.ReservationID, string(change.From))
	if err != nil {
		return lockConflict("update status", err)
	}
	change.Entry.ReservationID = change.ReservationID
	if err := r.appendHistoryTx(ctx, tx, change.Entry); err != nil {
		return lockConflict("insert history", err)
	}
	if err := tx.Commit(); err != nil {
		return lockConflict("commit status update", err)
	}
	committed = true
	return nil
}

// Get loads one reservation with its lines and services.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	var row reservationRecord
	err := r.db.GetContext(ctx, &row, `
		SELECT `+reservationColumns+`
		FROM reservations r
		JOIN customers c ON c.id = r.customer_id
		WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select reservation %d: %w", id, err)
	}
	list, err := r.attachLines(ctx, []reservationRecord{row})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// attachLines converts rows to models and loads their lines and services
// with one query each.
func (r *ReservationRepo) attachLines(ctx context.Context, rows []reservationRecord) ([]model.Reservation, error) {
	out := make([]model.Reservation, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	pos := make(map[uint64]int, len(rows))
	ids := make([]uint64, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
		pos[row.ID] = i
		ids[i] = row.ID
	}

	query, args, err := sqlx.In(`
		SELECT reservation_id, resource_id, resource_name, quantity, price_per_day_cents,
		       standard_price_cents, promo_price_cents, deposit_cents
		FROM reservation_items
		WHERE reservation_id IN (?)
		ORDER BY reservation_id, resource_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	var items []itemRecord
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select reservation items: %w", err)
	}
	for _, it := range items {
		i := pos[it.ReservationID]
		out[i].Lines = append(out[i].Lines, it.toModel())
	}

	query, args, err = sqlx.In(`
		SELECT reservation_id, service_id, name, quantity, unit_price_cents
		FROM reservation_services
		WHERE reservation_id IN (?)
		ORDER BY reservation_id, service_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build service query: %w", err)
	}
	var services []serviceLineRecord
	if err := r.db.SelectContext(ctx, &services, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select reservation services: %w", err)
	}
	for _, s := range services {
		i := pos[s.ReservationID]
		out[i].Services = append(out[i].Services, model.ServiceLine{
			ReservationID:  s.ReservationID,
			ServiceID:      s.ServiceID,
			Name:           s.Name,
			Quantity:       s.Quantity,
			UnitPriceCents: s.UnitPriceCents,
		})
	}
	return out, nil
}

// History returns the status log of a reservation, oldest first.
func (r *ReservationRepo) History(ctx context.Context, id uint64) ([]model.HistoryEntry, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = ?)`, id); err != nil {
		return nil, fmt.Errorf("check reservation %d: %w", id, err)
	}
	if !exists {
		return nil, booking.ErrNotFound
	}
	var rows []historyRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT reservation_id, from_status, to_status, changed_at, actor, comment, is_override
		FROM reservation_history
		WHERE reservation_id = ?
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	out := make([]model.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.HistoryEntry{
			ReservationID: row.ReservationID,
			From:          model.Status(row.FromStatus),
			To:            model.Status(row.ToStatus),
			At:            row.ChangedAt,
			Actor:         row.Actor,
			Comment:       row.Comment,
			Override:      row.IsOverride,
		})
	}
	return out, nil
}

// ListByStatus returns reservations in the given statuses ordered by
// start date.
func (r *ReservationRepo) ListByStatus(ctx context.Context, statuses []model.Status, limit int) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return []model.Reservation{}, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	q := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN customers c ON c.id = r.customer_id
		WHERE r.status IN (?)
		ORDER BY r.start_date, r.id`
	args := []interface{}{names}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.selectReservations(ctx, q, args...)
}

// ListRetired returns completed and cancelled reservations not updated
// since before.
func (r *ReservationRepo) ListRetired(ctx context.Context, before time.Time, limit int) ([]model.Reservation, error) {
	q := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN customers c ON c.id = r.customer_id
		WHERE r.status IN (?) AND r.updated_at < ?
		ORDER BY r.updated_at, r.id`
	args := []interface{}{
		[]string{string(model.StatusCompleted), string(model.StatusCancelled)},
		before.UTC(),
	}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.selectReservations(ctx, q, args...)
}

func (r *ReservationRepo) selectReservations(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	query, qargs, err := sqlx.In(q, args...)
	if err != nil {
		return nil, fmt.Errorf("build reservation query: %w", err)
	}
	var rows []reservationRecord
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), qargs...); err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}
	return r.attachLines(ctx, rows)
}
