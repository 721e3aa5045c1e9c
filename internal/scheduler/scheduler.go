package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

// Config programación del barrido.
type Config struct {
	Spec        string // expresión cron estándar de 5 campos
	AutoExecute bool
	Timeout     time.Duration
}

// Scheduler tareas periódicas del motor: tramos por fecha vencidos y contratos vencidos.
type Scheduler struct {
	cron   *cron.Cron
	engine *grain.Engine
	cfg    Config
	log    *logger.Logger
	now    func() time.Time
}

// New crea el scheduler (sin arrancar).
func New(cfg Config, engine *grain.Engine, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		engine: engine,
		cfg:    cfg,
		log:    log.Named("scheduler"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start registra el barrido y arranca cron.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.runSweep); err != nil {
		return err
	}
	s.log.Info().Str("spec", s.cfg.Spec).Bool("auto_execute", s.cfg.AutoExecute).Msg("scheduler iniciado")
	s.cron.Start()
	return nil
}

// Stop detiene cron y espera a que termine el barrido en curso.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("deteniendo scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if _, err := s.Sweep(ctx, s.now()); err != nil {
		s.log.Error().Err(err).Msg("barrido con errores")
	}
}

// SweepReport resultado de un barrido.
type SweepReport struct {
	ExpiredContracts int
	DueTiers         int
	ExecutedTiers    int
	SkippedTiers     int
}

// Sweep vence contratos y revisa tramos por fecha a asOf. Ambas tareas corren aunque la primera falle.
func (s *Scheduler) Sweep(ctx context.Context, asOf time.Time) (SweepReport, error) {
	var rep SweepReport
	expired, expErr := s.engine.Contracts.ExpireContracts(ctx, "", asOf)
	rep.ExpiredContracts = expired

	res, sweepErr := s.engine.SlidingScale.SweepDateTriggers(ctx, asOf, s.cfg.AutoExecute)
	if res != nil {
		rep.DueTiers = len(res.Due)
		rep.ExecutedTiers = res.Executed
		rep.SkippedTiers = res.Skipped
	}
	s.log.Info().
		Time("as_of", asOf).
		Int("expired_contracts", rep.ExpiredContracts).
		Int("due_tiers", rep.DueTiers).
		Int("executed_tiers", rep.ExecutedTiers).
		Int("skipped_tiers", rep.SkippedTiers).
		Msg("barrido completado")
	if expErr != nil {
		return rep, expErr
	}
	return rep, sweepErr
}
