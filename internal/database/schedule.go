package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stationhours/internal/availability"
)

// DefaultHours is used by EnsureDefaultSchedules for stations with no rules at all.
var DefaultHours = struct {
	OpenTime  string
	CloseTime string
}{
	OpenTime:  "07:00",
	CloseTime: "21:00",
}

// LoadAvailability assembles the availability configuration of a station.
// The schedule is normalized to seven rules; days without a stored rule are closed.
func (db *DB) LoadAvailability(ctx context.Context, stationID int64) (availability.AvailabilityConfig, error) {
	var cfg availability.AvailabilityConfig

	if err := db.stationExists(ctx, stationID); err != nil {
		return cfg, err
	}

	rules, err := db.GetSchedule(ctx, stationID)
	if err != nil {
		return cfg, fmt.Errorf("load schedule: %w", err)
	}
	if missing := availability.MissingDays(rules); len(missing) > 0 && len(missing) < availability.DaysPerWeek {
		db.logger.Debug().Int64("station_id", stationID).Int("missing_days", len(missing)).Msg("backfilling missing weekdays as closed")
	}
	cfg.Schedule = availability.Normalize(rules)

	if cfg.Exceptions, err = db.ListExceptions(ctx, stationID); err != nil {
		return cfg, fmt.Errorf("load exceptions: %w", err)
	}

	if cfg.Override, err = db.GetOverride(ctx, stationID); err != nil {
		return cfg, fmt.Errorf("load override: %w", err)
	}

	return cfg, nil
}

// GetSchedule returns the stored weekly rules of a station ordered by weekday.
func (db *DB) GetSchedule(ctx context.Context, stationID int64) ([]availability.WeekdayRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day_of_week, closed, open_time, close_time
		FROM weekly_rules
		WHERE station_id = ?
		ORDER BY day_of_week`,
		stationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []availability.WeekdayRule
	for rows.Next() {
		var r availability.WeekdayRule
		var day int
		if err := rows.Scan(&day, &r.Closed, &r.OpenTime, &r.CloseTime); err != nil {
			return nil, err
		}
		r.Day = availability.Weekday(day)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ReplaceSchedule stores a complete weekly schedule for a station in one transaction.
func (db *DB) ReplaceSchedule(ctx context.Context, stationID int64, rules []availability.WeekdayRule) error {
	if err := db.stationExists(ctx, stationID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weekly_rules WHERE station_id = ?`, stationID); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}

	now := time.Now()
	for _, r := range availability.Normalize(rules) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_rules (station_id, day_of_week, closed, open_time, close_time, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			stationID, int(r.Day), r.Closed, r.OpenTime, r.CloseTime, now,
		)
		if err != nil {
			return fmt.Errorf("insert rule for %s: %w", r.Day, err)
		}
	}

	return tx.Commit()
}

// EnsureDefaultSchedules gives every station without any weekly rule the default hours.
func (db *DB) EnsureDefaultSchedules(ctx context.Context) error {
	stations, err := db.ListStations(ctx, false)
	if err != nil {
		return fmt.Errorf("list stations: %w", err)
	}

	for _, st := range stations {
		var count int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM weekly_rules WHERE station_id = ?`, st.ID).Scan(&count); err != nil {
			return fmt.Errorf("check schedule: %w", err)
		}
		if count > 0 {
			continue
		}

		rules := make([]availability.WeekdayRule, 0, availability.DaysPerWeek)
		for day := availability.Monday; day <= availability.Sunday; day++ {
			rules = append(rules, availability.WeekdayRule{Day: day, OpenTime: DefaultHours.OpenTime, CloseTime: DefaultHours.CloseTime})
		}
		if err := db.ReplaceSchedule(ctx, st.ID, rules); err != nil {
			return fmt.Errorf("create schedule for station %d: %w", st.ID, err)
		}
	}
	return nil
}

// ListExceptions returns all exceptions of a station ordered by date.
func (db *DB) ListExceptions(ctx context.Context, stationID int64) ([]availability.Exception, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date, closed, open_time, close_time, reason
		FROM station_exceptions
		WHERE station_id = ?
		ORDER BY date`,
		stationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exceptions []availability.Exception
	for rows.Next() {
		var e availability.Exception
		var date string
		if err := rows.Scan(&date, &e.Closed, &e.OpenTime, &e.CloseTime, &e.Reason); err != nil {
			return nil, err
		}
		if e.Date, err = availability.ParseDate(date); err != nil {
			db.logger.Warn().Int64("station_id", stationID).Str("date", date).Msg("skipping exception with malformed date")
			continue
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}

// UpsertException creates or replaces the exception for its date.
func (db *DB) UpsertException(ctx context.Context, stationID int64, e availability.Exception) error {
	if err := db.stationExists(ctx, stationID); err != nil {
		return err
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO station_exceptions (station_id, date, closed, open_time, close_time, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id, date) DO UPDATE SET
			closed = excluded.closed,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		stationID, e.Date.String(), e.Closed, e.OpenTime, e.CloseTime, e.Reason, now, now,
	)
	return err
}

// DeleteException removes the exception for a date. It reports whether one existed.
func (db *DB) DeleteException(ctx context.Context, stationID int64, date availability.Date) (bool, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM station_exceptions WHERE station_id = ? AND date = ?`,
		stationID, date.String(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetOverride returns the manual override of a station, or mode none.
func (db *DB) GetOverride(ctx context.Context, stationID int64) (availability.ManualOverride, error) {
	var mode string
	var until sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT mode, until FROM manual_overrides WHERE station_id = ?`, stationID,
	).Scan(&mode, &until)
	if err == sql.ErrNoRows {
		return availability.ManualOverride{Mode: availability.OverrideNone}, nil
	}
	if err != nil {
		return availability.ManualOverride{}, err
	}

	o := availability.ManualOverride{Mode: availability.OverrideMode(mode)}
	if until.Valid {
		t := until.Time
		o.Until = &t
	}
	return o, nil
}

// SetOverride stores the manual override of a station. Mode none clears it.
func (db *DB) SetOverride(ctx context.Context, stationID int64, o availability.ManualOverride) error {
	if o.Mode == availability.OverrideNone || o.Mode == "" {
		return db.ClearOverride(ctx, stationID)
	}
	if err := db.stationExists(ctx, stationID); err != nil {
		return err
	}

	var until sql.NullTime
	if o.Until != nil {
		until = sql.NullTime{Time: *o.Until, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO manual_overrides (station_id, mode, until, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			mode = excluded.mode,
			until = excluded.until,
			updated_at = excluded.updated_at`,
		stationID, string(o.Mode), until, time.Now(),
	)
	return err
}

// ClearOverride removes the manual override of a station.
func (db *DB) ClearOverride(ctx context.Context, stationID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM manual_overrides WHERE station_id = ?`, stationID)
	return err
}

// ClearExpiredOverrides deletes overrides whose until is not after now and
// returns the affected station ids. The scan and the deletes share one transaction.
func (db *DB) ClearExpiredOverrides(ctx context.Context, now time.Time) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT station_id, until FROM manual_overrides WHERE until IS NOT NULL`)
	if err != nil {
		return nil, err
	}

	var expired []int64
	for rows.Next() {
		var id int64
		var until time.Time
		if err := rows.Scan(&id, &until); err != nil {
			rows.Close()
			return nil, err
		}
		if !until.After(now) {
			expired = append(expired, id)
		}
	}
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return nil, iterErr
	}

	for _, id := range expired {
		if _, err := tx.ExecContext(ctx, `DELETE FROM manual_overrides WHERE station_id = ?`, id); err != nil {
			return nil, fmt.Errorf("clear override for station %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return expired, nil
}
