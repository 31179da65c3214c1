package database

import (
	"context"
	"fmt"
	"time"

	"stationhours/internal/availability"
	"stationhours/internal/config"
	"stationhours/internal/model"
)

// SyncStationsFromConfig applies stations.yaml to the database.
// It upserts stations and their weekly schedules, marks stations missing from
// the file inactive, and records holidays as closed exceptions.
func (db *DB) SyncStationsFromConfig(ctx context.Context, cfg *config.StationsConfig) error {
	if cfg == nil {
		return fmt.Errorf("stations config is nil")
	}

	seen := make(map[int64]struct{}, len(cfg.Stations))

	for i := range cfg.Stations {
		st := &cfg.Stations[i]
		station := &model.Station{
			ID:          int64(st.ID),
			Name:        st.Name,
			Address:     st.Address,
			Description: st.Description,
			IsActive:    st.IsActive,
		}
		if err := db.UpsertStation(ctx, station); err != nil {
			return err
		}
		seen[station.ID] = struct{}{}

		// Stations without configured hours keep what is stored; EnsureDefaultSchedules fills empty ones.
		rules := cfg.Rules(st)
		if rules == nil {
			continue
		}
		if err := db.ReplaceSchedule(ctx, station.ID, rules); err != nil {
			return fmt.Errorf("sync station %d schedule: %w", st.ID, err)
		}
	}

	stations, err := db.ListStations(ctx, true)
	if err != nil {
		return err
	}
	for _, st := range stations {
		if _, ok := seen[st.ID]; ok {
			continue
		}
		st.IsActive = false
		if err := db.UpsertStation(ctx, &st); err != nil {
			return fmt.Errorf("deactivate station %d: %w", st.ID, err)
		}
	}

	// Each holiday is offered to a station once. It never replaces an exception
	// staff already set, and one staff deleted is not brought back.
	holidays := cfg.HolidayExceptions()
	for id := range seen {
		if err := db.applyHolidays(ctx, id, holidays); err != nil {
			return fmt.Errorf("apply holidays to station %d: %w", id, err)
		}
	}

	db.logger.Info().Int("stations", len(cfg.Stations)).Int("holidays", len(holidays)).Msg("stations config applied")
	return nil
}

func (db *DB) applyHolidays(ctx context.Context, stationID int64, holidays []availability.Exception) error {
	existing, err := db.ListExceptions(ctx, stationID)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[e.Date.String()] = true
	}

	applied, err := db.appliedHolidays(ctx, stationID)
	if err != nil {
		return err
	}

	for _, h := range holidays {
		date := h.Date.String()
		if applied[date] {
			continue
		}
		if !taken[date] {
			if err := db.UpsertException(ctx, stationID, h); err != nil {
				db.logger.Warn().Err(err).Int64("station_id", stationID).Str("date", date).Msg("failed to apply holiday")
				continue
			}
		}
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO holiday_applied (station_id, date, applied_at) VALUES (?, ?, ?)`,
			stationID, date, time.Now(),
		); err != nil {
			return fmt.Errorf("mark holiday %s: %w", date, err)
		}
	}
	return nil
}

func (db *DB) appliedHolidays(ctx context.Context, stationID int64) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT date FROM holiday_applied WHERE station_id = ?`, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		applied[date] = true
	}
	return applied, rows.Err()
}
