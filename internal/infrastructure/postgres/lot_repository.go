package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, farm_id, year, crop_type, storage_location, COALESCE(field_id, ''), unit,
	initial_quantity, current_quantity, reserved_quantity, available_quantity,
	quality, cost_basis, status, COALESCE(notes, ''),
	contracts, sales, shrinkage, additions, market_prices, sliding_scale,
	version, COALESCE(close_reason, ''), closed_at,
	created_at, COALESCE(created_by, ''), updated_at, COALESCE(updated_by, '')`

// lotJSON columnas JSONB ya serializadas.
type lotJSON struct {
	quality, costBasis, contracts, sales, shrinkage, additions, marketPrices, slidingScale []byte
}

func marshalLot(l *entity.InventoryLot) (*lotJSON, error) {
	var (
		out lotJSON
		err error
	)
	fields := []struct {
		dst *[]byte
		v   any
	}{
		{&out.quality, l.Quality},
		{&out.costBasis, l.CostBasis},
		{&out.contracts, nonNil(l.Contracts)},
		{&out.sales, nonNil(l.Sales)},
		{&out.shrinkage, nonNil(l.Shrinkage)},
		{&out.additions, nonNil(l.Additions)},
		{&out.marketPrices, nonNil(l.MarketPrices)},
	}
	for _, f := range fields {
		if *f.dst, err = json.Marshal(f.v); err != nil {
			return nil, fmt.Errorf("serializar lote: %w", err)
		}
	}
	if l.SlidingScale != nil {
		if out.slidingScale, err = json.Marshal(l.SlidingScale); err != nil {
			return nil, fmt.Errorf("serializar escala: %w", err)
		}
	}
	return &out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Create inserta un lote nuevo con version 1.
func (r *LotRepo) Create(ctx context.Context, lot *entity.InventoryLot) error {
	js, err := marshalLot(lot)
	if err != nil {
		return err
	}
	if lot.Version == 0 {
		lot.Version = 1
	}
	query := `
		INSERT INTO grain_lots (
			id, farm_id, year, crop_type, storage_location, field_id, unit,
			initial_quantity, current_quantity, reserved_quantity, available_quantity,
			quality, cost_basis, status, notes,
			contracts, sales, shrinkage, additions, market_prices, sliding_scale,
			version, close_reason, closed_at, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''),
			$16, $17, $18, $19, $20, $21, $22, NULLIF($23, ''), $24, $25, $26, $27, $28)`
	_, err = r.q.Exec(ctx, query,
		lot.ID, lot.FarmID, lot.Year, lot.CropType, lot.StorageLocation, lot.FieldID, lot.Unit,
		lot.InitialQuantity, lot.CurrentQuantity, lot.ReservedQuantity, lot.AvailableQuantity,
		js.quality, js.costBasis, string(lot.Status), lot.Notes,
		js.contracts, js.sales, js.shrinkage, js.additions, js.marketPrices, js.slidingScale,
		lot.Version, lot.CloseReason, lot.ClosedAt, lot.CreatedAt, lot.CreatedBy, lot.UpdatedAt, lot.UpdatedBy,
	)
	return wrapErr("create lot", err)
}

// GetByID obtiene un lote por ID. (nil, nil) si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.InventoryLot, error) {
	return r.getOne(ctx, `SELECT `+lotColumns+` FROM grain_lots WHERE id = $1`, id)
}

// GetForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *LotRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryLot, error) {
	return r.getOne(ctx, `SELECT `+lotColumns+` FROM grain_lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *LotRepo) getOne(ctx context.Context, query, id string) (*entity.InventoryLot, error) {
	lot, err := scanLot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get lot", err)
	}
	return lot, nil
}

// Update reescribe el lote si la versión almacenada coincide e incrementa lot.Version.
func (r *LotRepo) Update(ctx context.Context, lot *entity.InventoryLot) error {
	js, err := marshalLot(lot)
	if err != nil {
		return err
	}
	query := `
		UPDATE grain_lots SET
			crop_type = $3, storage_location = $4, field_id = NULLIF($5, ''), unit = $6,
			initial_quantity = $7, current_quantity = $8, reserved_quantity = $9, available_quantity = $10,
			quality = $11, cost_basis = $12, status = $13, notes = NULLIF($14, ''),
			contracts = $15, sales = $16, shrinkage = $17, additions = $18, market_prices = $19,
			sliding_scale = $20, close_reason = NULLIF($21, ''), closed_at = $22,
			updated_at = $23, updated_by = $24, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		lot.ID, lot.Version,
		lot.CropType, lot.StorageLocation, lot.FieldID, lot.Unit,
		lot.InitialQuantity, lot.CurrentQuantity, lot.ReservedQuantity, lot.AvailableQuantity,
		js.quality, js.costBasis, string(lot.Status), lot.Notes,
		js.contracts, js.sales, js.shrinkage, js.additions, js.marketPrices,
		js.slidingScale, lot.CloseReason, lot.ClosedAt,
		lot.UpdatedAt, lot.UpdatedBy,
	)
	if err != nil {
		return wrapErr("update lot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewTransientConflict("lote "+lot.ID+" modificado por otra operación", nil)
	}
	lot.Version++
	return nil
}

// List lotes según filtro, ordenados por año, cultivo y ubicación.
func (r *LotRepo) List(ctx context.Context, f repository.LotFilter) ([]*entity.InventoryLot, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FarmID != "" {
		add("farm_id = $%d", f.FarmID)
	}
	if f.Year != 0 {
		add("year = $%d", f.Year)
	}
	if f.CropType != "" {
		add("crop_type = $%d", f.CropType)
	}
	if f.StorageLocation != "" {
		add("storage_location = $%d", f.StorageLocation)
	}
	if f.FieldID != "" {
		add("field_id = $%d", f.FieldID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		add("status = ANY($%d)", statuses)
	}
	query := `SELECT ` + lotColumns + ` FROM grain_lots`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY year, crop_type, storage_location, created_at`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list lots", err)
	}
	defer rows.Close()
	var list []*entity.InventoryLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, lot)
	}
	return list, rows.Err()
}

func scanLot(row pgx.Row) (*entity.InventoryLot, error) {
	var (
		l      entity.InventoryLot
		status string
		js     lotJSON
	)
	err := row.Scan(
		&l.ID, &l.FarmID, &l.Year, &l.CropType, &l.StorageLocation, &l.FieldID, &l.Unit,
		&l.InitialQuantity, &l.CurrentQuantity, &l.ReservedQuantity, &l.AvailableQuantity,
		&js.quality, &js.costBasis, &status, &l.Notes,
		&js.contracts, &js.sales, &js.shrinkage, &js.additions, &js.marketPrices, &js.slidingScale,
		&l.Version, &l.CloseReason, &l.ClosedAt,
		&l.CreatedAt, &l.CreatedBy, &l.UpdatedAt, &l.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LotStatus(status)
	targets := []struct {
		src []byte
		dst any
	}{
		{js.quality, &l.Quality},
		{js.costBasis, &l.CostBasis},
		{js.contracts, &l.Contracts},
		{js.sales, &l.Sales},
		{js.shrinkage, &l.Shrinkage},
		{js.additions, &l.Additions},
		{js.marketPrices, &l.MarketPrices},
	}
	for _, t := range targets {
		if len(t.src) == 0 {
			continue
		}
		if err := json.Unmarshal(t.src, t.dst); err != nil {
			return nil, fmt.Errorf("decodificar lote %s: %w", l.ID, err)
		}
	}
	if len(js.slidingScale) > 0 && string(js.slidingScale) != "null" {
		l.SlidingScale = &entity.SlidingScaleConfig{}
		if err := json.Unmarshal(js.slidingScale, l.SlidingScale); err != nil {
			return nil, fmt.Errorf("decodificar escala %s: %w", l.ID, err)
		}
	}
	return &l, nil
}
