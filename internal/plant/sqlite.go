package plant

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteProvider reads the snapshot from the pumps, pots and plants tables.
type SQLiteProvider struct {
	db     *sql.DB
	logger Logger
}

// NewSQLiteProvider creates a provider over an open, migrated database.
func NewSQLiteProvider(db *sql.DB) *SQLiteProvider {
	return &SQLiteProvider{db: db, logger: noopLogger{}}
}

// SetLogger sets the logger used for data quality warnings.
func (p *SQLiteProvider) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.logger = logger
}

const listPlantsQuery = `
	SELECT pl.id, pl.name, pl.ideal_moisture, pl.current_moisture, pl.moisture_state, pl.updated_at,
		po.id, po.name,
		pu.id, pu.channel, pu.model, pu.lifetime_hours, pu.temperature
	FROM plants pl
	LEFT JOIN pots po ON po.id = pl.pot_id
	LEFT JOIN pumps pu ON pu.id = po.pump_id
	ORDER BY pl.id`

// ListPlants returns every plant with its pot and pump resolved.
//
// Plants sharing a pot share the same *Pot value. Moisture states that are
// not one of the four known values are reported as UNKNOWN.
func (p *SQLiteProvider) ListPlants(ctx context.Context) ([]Plant, error) {
	rows, err := p.db.QueryContext(ctx, listPlantsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying plants: %w", err)
	}
	defer rows.Close()

	pots := make(map[string]*Pot)
	pumps := make(map[string]*Pump)

	var plants []Plant
	for rows.Next() {
		var (
			pl                         Plant
			rawState, updatedAt        string
			potID, potName             sql.NullString
			pumpID, channel, model     sql.NullString
			lifetimeHours, temperature sql.NullFloat64
		)
		if err := rows.Scan(
			&pl.ID, &pl.Name, &pl.IdealMoisture, &pl.CurrentMoisture, &rawState, &updatedAt,
			&potID, &potName,
			&pumpID, &channel, &model, &lifetimeHours, &temperature,
		); err != nil {
			return nil, fmt.Errorf("scanning plant: %w", err)
		}

		state, err := ParseMoistureState(rawState)
		if err != nil {
			p.logger.Warn("unrecognised moisture state, treating as UNKNOWN",
				"plant_id", pl.ID,
				"state", rawState,
			)
			state = StateUnknown
		}
		pl.MoistureState = state
		pl.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // zero time on malformed stamps

		if potID.Valid {
			pot, ok := pots[potID.String]
			if !ok {
				pot = &Pot{ID: potID.String, Name: potName.String}
				if pumpID.Valid {
					pump, seen := pumps[pumpID.String]
					if !seen {
						pump = &Pump{
							ID:            pumpID.String,
							Channel:       channel.String,
							Model:         model.String,
							LifetimeHours: lifetimeHours.Float64,
							Temperature:   temperature.Float64,
						}
						pumps[pumpID.String] = pump
					}
					pot.Pump = pump
				}
				pots[potID.String] = pot
			}
			pl.Pot = pot
		}

		plants = append(plants, pl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plants: %w", err)
	}
	return plants, nil
}
