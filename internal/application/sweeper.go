package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/pkg/logging"
	"github.com/retail-platform/inventory-service/pkg/metrics"
)

// ReservationSweeper reclaims expired ACTIVE reservations in the background.
// Each reservation is processed in its own transaction so one failure never
// blocks the rest of the batch; the expiry predicate (state ACTIVE and
// expiresAt in the past) makes re-processing after a crash a no-op.
type ReservationSweeper struct {
	inventories  domain.InventoryRepository
	reservations domain.ReservationRepository
	store        domain.Store
	tx           domain.TransactionManager
	logger       *logging.Logger
	metrics      *metrics.Metrics
	interval     time.Duration
	batchSize    int

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	reclaimed int
	failed    int
}

// SweeperConfig holds configuration for the reservation sweeper
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:  60 * time.Second,
		BatchSize: 100,
	}
}

// NewReservationSweeper creates a new reservation sweeper
func NewReservationSweeper(
	inventories domain.InventoryRepository,
	reservations domain.ReservationRepository,
	store domain.Store,
	tx domain.TransactionManager,
	logger *logging.Logger,
	m *metrics.Metrics,
	config *SweeperConfig,
) *ReservationSweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}

	return &ReservationSweeper{
		inventories:  inventories,
		reservations: reservations,
		store:        store,
		tx:           tx,
		logger:       logger,
		metrics:      m,
		interval:     config.Interval,
		batchSize:    config.BatchSize,
	}
}

// Start starts the sweeper loop. The stop channels are created per run so a
// stopped sweeper can be started again.
func (s *ReservationSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	stopCh, stoppedCh := s.stopCh, s.stoppedCh
	s.mu.Unlock()

	s.logger.Info("Starting reservation sweeper", "interval", s.interval, "batchSize", s.batchSize)

	go s.run(ctx, stopCh, stoppedCh)
	return nil
}

// Stop stops the sweeper loop
func (s *ReservationSweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper not running")
	}
	stopCh, stoppedCh := s.stopCh, s.stoppedCh
	s.mu.Unlock()

	s.logger.Info("Stopping reservation sweeper")
	close(stopCh)
	<-stoppedCh

	s.mu.Lock()
	s.running = false
	reclaimed, failed := s.reclaimed, s.failed
	s.mu.Unlock()

	s.logger.Info("Reservation sweeper stopped", "reclaimed", reclaimed, "failed", failed)
	return nil
}

func (s *ReservationSweeper) run(ctx context.Context, stopCh, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-stopCh:
			s.logger.Info("Sweeper received stop signal")
			return
		case <-ctx.Done():
			s.logger.Info("Sweeper context cancelled")
			return
		}
	}
}

// Sweep runs one pass over expired reservations. Exported so an operator
// command can trigger a pass outside the ticker loop.
func (s *ReservationSweeper) Sweep(ctx context.Context) {
	expired, err := s.reservations.FindExpired(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find expired reservations")
		if s.metrics != nil {
			s.metrics.RecordSweepRun(false)
		}
		return
	}

	if s.metrics != nil {
		s.metrics.RecordSweepRun(true)
	}

	if len(expired) == 0 {
		return
	}

	s.logger.Info("Sweeping expired reservations", "count", len(expired))

	// Counters are shared with Stats and the ticker goroutine; Sweep is also
	// reachable from the operator endpoint
	for _, reservation := range expired {
		if err := s.expireOne(ctx, reservation); err != nil {
			s.mu.Lock()
			s.failed++
			s.mu.Unlock()
			s.logger.WithError(err).Error("Failed to expire reservation",
				"reservationId", reservation.ReservationID,
				"inventoryId", reservation.InventoryID.Hex(),
			)
			continue
		}

		s.mu.Lock()
		s.reclaimed++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordReservationReclaimed()
			s.metrics.RecordReservationResolved(string(domain.ReservationStateExpired))
		}
	}
}

// expireOne reclaims a single reservation in its own transaction
func (s *ReservationSweeper) expireOne(ctx context.Context, reservation *domain.Reservation) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Reload inside the transaction; another writer may have resolved
		// the reservation since the batch query ran
		current, err := s.reservations.FindByReservationID(txCtx, reservation.ReservationID)
		if err != nil {
			return err
		}
		if current == nil || !current.IsActive() {
			return nil
		}

		inv, err := s.inventories.FindByID(txCtx, current.InventoryID)
		if err != nil {
			return err
		}
		if inv == nil {
			return &domain.NotFoundError{Entity: "inventory", ID: current.InventoryID.Hex()}
		}

		movement, err := inv.ExpireReservation(current)
		if err != nil {
			return err
		}

		return s.store.Apply(txCtx, &domain.UnitOfWork{
			Inventory:           inv,
			UpdatedReservations: []*domain.Reservation{current},
			Movements:           []*domain.Movement{movement},
		})
	})
}

// IsRunning returns whether the sweeper is running
func (s *ReservationSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns sweeper statistics
func (s *ReservationSweeper) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"reclaimed": s.reclaimed,
		"failed":    s.failed,
	}
}
