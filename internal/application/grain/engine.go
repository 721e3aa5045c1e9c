// Package grain casos de uso del inventario de grano y de la escala deslizante de comercialización.
// Toda mutación de un lote pasa por la misma sección crítica (lock por lote + transacción +
// chequeo de versión), de modo que dos operaciones concurrentes sobre el mismo lote nunca
// comprometen la misma cantidad.
package grain

// Engine fachada con todos los casos de uso, para colaboradores (API, scheduler, CLI).
type Engine struct {
	Ledger       *LedgerUseCase
	Contracts    *ContractUseCase
	Transactions *TransactionUseCase
	SlidingScale *SlidingScaleUseCase
	Reporting    *ReportingUseCase
}

// NewEngine construye todos los casos de uso sobre las mismas dependencias.
func NewEngine(d Deps) *Engine {
	d = d.withDefaults()
	return &Engine{
		Ledger:       NewLedgerUseCase(d),
		Contracts:    NewContractUseCase(d),
		Transactions: NewTransactionUseCase(d),
		SlidingScale: NewSlidingScaleUseCase(d),
		Reporting:    NewReportingUseCase(d),
	}
}
