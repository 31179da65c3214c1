package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stationhours/internal/model"
)

const stationColumns = `id, name, address, description, is_active, created_at, updated_at`

// UpsertStation creates or updates a station, preserving created_at.
func (db *DB) UpsertStation(ctx context.Context, st *model.Station) error {
	if st == nil {
		return fmt.Errorf("station is nil")
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO stations (id, name, address, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			description = excluded.description,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		st.ID, st.Name, st.Address, st.Description, st.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert station %d: %w", st.ID, err)
	}
	return nil
}

// GetStation returns a station by id.
func (db *DB) GetStation(ctx context.Context, id int64) (*model.Station, error) {
	row := db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = ?`, id)
	st, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	return st, err
}

// ListStations returns stations ordered by id.
func (db *DB) ListStations(ctx context.Context, activeOnly bool) ([]model.Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []model.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *st)
	}
	return stations, rows.Err()
}

func (db *DB) stationExists(ctx context.Context, id int64) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stations WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrStationNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(s scanner) (*model.Station, error) {
	var st model.Station
	if err := s.Scan(&st.ID, &st.Name, &st.Address, &st.Description, &st.IsActive, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}
