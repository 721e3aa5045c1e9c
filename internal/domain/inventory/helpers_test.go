package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/inventory"
)

var testNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// assertDec compara decimales por valor ("2500" == "2500.00").
func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msgAndArgs)
}

// assertInvariant Available = Current - Reserved, Current >= 0 y Reserved <= Current.
func assertInvariant(t *testing.T, lot *entity.InventoryLot) {
	t.Helper()
	assert.True(t, lot.AvailableQuantity.Equal(lot.CurrentQuantity.Sub(lot.ReservedQuantity)),
		"available %s != current %s - reserved %s", lot.AvailableQuantity, lot.CurrentQuantity, lot.ReservedQuantity)
	assert.False(t, lot.CurrentQuantity.IsNegative(), "current negativo")
	assert.True(t, lot.ReservedQuantity.LessThanOrEqual(lot.CurrentQuantity), "reserved supera current")
}

func newLot(t *testing.T, crop, qty string) *entity.InventoryLot {
	t.Helper()
	lot, err := inventory.NewLot(inventory.NewLotParams{
		ID:              "lot-" + crop,
		FarmID:          "farm-1",
		Year:            2025,
		CropType:        crop,
		StorageLocation: "bin-1",
		InitialQuantity: d(qty),
		Now:             testNow,
	})
	require.NoError(t, err)
	return lot
}

func sale(qty, price string) *entity.Sale {
	return &entity.Sale{ID: "sale-" + qty, Date: testNow, Buyer: "elevador", Quantity: d(qty), PricePerUnit: d(price)}
}
