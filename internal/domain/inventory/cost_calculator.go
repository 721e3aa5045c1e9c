package inventory

import "github.com/shopspring/decimal"

// CostCalculator costo promedio ponderado por unidad tras una entrada de grano.
// NuevoCosto = ((Existencia * CostoActual) + (CantEntrada * CostoEntrada)) / (Existencia + CantEntrada)
func CostCalculator(existencia, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := existencia.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := existencia.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum).Round(4)
}
