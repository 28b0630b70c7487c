// Package reserve implements the premium/normal reserve pair: creation,
// custodial withdrawals and the 1:1 swap engine.
//
// Every operation runs inside one storage.UnitOfWork. A failed check or a
// failed transfer leg discards the whole unit; nothing is partially applied.
package reserve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reserve-swap/internal/clock"
	"reserve-swap/internal/domain"
	"reserve-swap/internal/idhash"
	"reserve-swap/internal/observability"
	"reserve-swap/internal/pda"
	"reserve-swap/internal/storage"
	"reserve-swap/internal/token"
)

// Options configures a Service.
type Options struct {
	UnitOfWork storage.UnitOfWork
	Deriver    *pda.Deriver
	Clock      clock.Clock
	Journal    storage.TransferJournal // optional
	Logger     logrus.FieldLogger      // optional
}

// Service exposes the reserve operations.
type Service struct {
	uow     storage.UnitOfWork
	deriver *pda.Deriver
	ledger  *token.Ledger
	clock   clock.Clock
	journal storage.TransferJournal
	logger  logrus.FieldLogger
}

// Receipt describes the transfers committed by one operation.
type Receipt struct {
	OperationID string
	Transfers   []*domain.Transfer
}

// NewService creates a Service. UnitOfWork is required.
func NewService(opts Options) (*Service, error) {
	if opts.UnitOfWork == nil {
		return nil, errors.New("reserve: unit of work is required")
	}
	if opts.Deriver == nil {
		d, err := pda.NewDeriver("")
		if err != nil {
			return nil, err
		}
		opts.Deriver = d
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Service{
		uow:     opts.UnitOfWork,
		deriver: opts.Deriver,
		ledger:  token.NewLedger(opts.Deriver),
		clock:   opts.Clock,
		journal: opts.Journal,
		logger:  opts.Logger.WithField("component", "reserve"),
	}, nil
}

// Deriver returns the address deriver used for reserves and accounts.
func (s *Service) Deriver() *pda.Deriver {
	return s.deriver
}

// operation tracks one unit of work: its ID, clock snapshot and the legs it executed.
type operation struct {
	id        string
	name      string
	now       int64
	start     time.Time
	transfers []*domain.Transfer
	custodial []bool
}

// restart drops the legs of an aborted attempt when the unit of work retries fn.
func (op *operation) restart() {
	op.transfers = op.transfers[:0]
	op.custodial = op.custodial[:0]
}

func (s *Service) begin(name string) *operation {
	return &operation{
		id:    uuid.NewString(),
		name:  name,
		now:   s.clock.Now(),
		start: time.Now(),
	}
}

// transfer executes one leg inside tx and remembers it for the journal.
func (s *Service) transfer(ctx context.Context, tx storage.Tx, op *operation, from, to string, auth token.Authority, amount uint64) error {
	leg := len(op.transfers)
	rec, err := s.ledger.Transfer(ctx, tx.Accounts(), from, to, auth, amount)
	if err != nil {
		if errors.Is(err, token.ErrTransfer) {
			return fmt.Errorf("%w: leg %d: %w", ErrTransferFailure, leg, err)
		}
		return fmt.Errorf("transfer leg %d: %w", leg, err)
	}

	rec.ID = idhash.ComputeTransferID(op.id, leg, from, to, amount)
	rec.OperationID = op.id
	rec.Operation = op.name
	rec.Leg = leg
	rec.ExecutedAt = op.now
	op.transfers = append(op.transfers, rec)
	op.custodial = append(op.custodial, auth.Custodial())
	return nil
}

// finish records metrics, logs the outcome and journals committed transfers.
func (s *Service) finish(ctx context.Context, op *operation, err error) *Receipt {
	status := "ok"
	if err != nil {
		status = Kind(err)
	}
	observability.RecordOperation(op.name, status, time.Since(op.start).Seconds())

	log := s.logger.WithFields(logrus.Fields{
		"operation":    op.name,
		"operation_id": op.id,
	})
	if err != nil {
		log.WithError(err).WithField("kind", status).Info("operation rejected")
		return nil
	}

	for _, custodial := range op.custodial {
		observability.RecordTransfer(custodial)
	}
	if s.journal != nil && len(op.transfers) > 0 {
		if jerr := s.journal.AppendBulk(ctx, op.transfers); jerr != nil {
			observability.RecordJournalError()
			log.WithError(jerr).Warn("journal transfers")
		}
	}
	log.WithField("transfers", len(op.transfers)).Debug("operation committed")

	return &Receipt{OperationID: op.id, Transfers: op.transfers}
}

func loadPremium(ctx context.Context, tx storage.Tx, id string) (*domain.PremiumReserve, error) {
	r, err := tx.Reserves().GetPremium(ctx, id)
	if err != nil {
		return nil, recordError("premium reserve", id, err)
	}
	return r, nil
}

func loadNormal(ctx context.Context, tx storage.Tx, id string) (*domain.NormalReserve, error) {
	r, err := tx.Reserves().GetNormal(ctx, id)
	if err != nil {
		return nil, recordError("normal reserve", id, err)
	}
	return r, nil
}

// recordError reports a missing or mistyped record as an account mismatch
// while keeping the storage cause visible to errors.Is.
func recordError(what, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrTypeMismatch) {
		return fmt.Errorf("%w: %s %s: %w", ErrAccountMismatch, what, id, err)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}
