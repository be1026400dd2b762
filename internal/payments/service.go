package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

// Service records and voids down payments. Every mutation re-syncs the parent
// sale in the same transaction.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*RecordResult, error)
	Void(ctx context.Context, input VoidInput) (*models.Sale, error)
}

type service struct {
	client     *db.Client
	repo       Repository
	aggregator sales.Aggregator
	tolerance  decimal.Decimal
	retry      db.RetryPolicy
}

// NewService wires a payments service.
func NewService(client *db.Client, repo Repository, aggregator sales.Aggregator, cfg config.Config) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("sale aggregator required")
	}
	tolerance, err := decimal.NewFromString(cfg.Pricing.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("invalid tolerance %q: %w", cfg.Pricing.Tolerance, err)
	}
	retry := db.RetryPolicy{Attempts: cfg.Stock.ConflictRetries, Delay: cfg.Stock.ConflictRetryDelay}
	if retry.Attempts <= 0 {
		retry = db.DefaultRetryPolicy
	}
	return &service{
		client:     client,
		repo:       repo,
		aggregator: aggregator,
		tolerance:  tolerance,
		retry:      retry,
	}, nil
}

// RecordInput is one down payment toward a sale.
type RecordInput struct {
	TenantID uuid.UUID
	SaleID   uuid.UUID
	Amount   decimal.Decimal
	Method   string
	ActorID  uuid.UUID
	PaidAt   time.Time
}

// RecordResult carries the created record and the re-synced sale.
type RecordResult struct {
	Payment *models.PaymentRecord
	Sale    *models.Sale
}

func (s *service) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	if input.TenantID == uuid.Nil || input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and sale ids are required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var result *RecordResult
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := repo.GetSaleForUpdate(ctx, input.TenantID, input.SaleID)
		if err != nil {
			if db.NotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock sale")
		}

		// Paid total may never exceed the patient-responsible amount
		// beyond tolerance.
		newPaid := sale.PaidAmount.Add(input.Amount)
		if newPaid.GreaterThan(sale.FinalAmount.Add(s.tolerance)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds outstanding balance").
				WithDetails(map[string]any{
					"final_amount": sale.FinalAmount,
					"paid_amount":  sale.PaidAmount,
					"amount":       input.Amount,
				})
		}

		payment := &models.PaymentRecord{
			TenantID: input.TenantID,
			SaleID:   input.SaleID,
			Amount:   input.Amount.Round(2),
			Method:   input.Method,
			Status:   enums.PaymentStatusActive,
			ActorID:  input.ActorID,
			PaidAt:   paidAt,
		}
		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		synced, err := s.aggregator.Sync(ctx, tx, input.TenantID, input.SaleID)
		if err != nil {
			return err
		}
		result = &RecordResult{Payment: payment, Sale: synced}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VoidInput flips one payment to void, keeping it on file.
type VoidInput struct {
	TenantID  uuid.UUID
	PaymentID uuid.UUID
	ActorID   uuid.UUID
}

func (s *service) Void(ctx context.Context, input VoidInput) (*models.Sale, error) {
	if input.TenantID == uuid.Nil || input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and payment ids are required")
	}

	var sale *models.Sale
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.Get(ctx, input.TenantID, input.PaymentID)
		if err != nil {
			if db.NotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status == enums.PaymentStatusVoid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is already void")
		}

		payment.Status = enums.PaymentStatusVoid
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void payment")
		}

		synced, err := s.aggregator.Sync(ctx, tx, input.TenantID, payment.SaleID)
		if err != nil {
			return err
		}
		sale = synced
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}
