package sales

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

// Aggregator keeps a sale's totals and status consistent with its
// assignments and payments. Sync runs inside the caller's transaction so the
// recompute commits atomically with whatever mutation triggered it.
type Aggregator interface {
	Sync(ctx context.Context, tx *gorm.DB, tenantID, saleID uuid.UUID) (*models.Sale, error)
	Create(ctx context.Context, tx *gorm.DB, input CreateSaleInput) (*models.Sale, error)
	Get(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
}

type aggregator struct {
	repo      Repository
	tolerance decimal.Decimal
}

// NewAggregator wires a sale aggregator with the payment matching tolerance.
func NewAggregator(repo Repository, tolerance decimal.Decimal) (Aggregator, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance must not be negative")
	}
	return &aggregator{repo: repo, tolerance: tolerance}, nil
}

// CreateSaleInput opens an empty sale aggregate for a patient.
type CreateSaleInput struct {
	TenantID  uuid.UUID
	BranchID  uuid.UUID
	PatientID uuid.UUID
}

func (a *aggregator) Create(ctx context.Context, tx *gorm.DB, input CreateSaleInput) (*models.Sale, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}
	if input.PatientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient id is required")
	}

	repo := a.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	sale := &models.Sale{
		TenantID:  input.TenantID,
		BranchID:  input.BranchID,
		PatientID: input.PatientID,
		Status:    enums.SaleStatusPending,
	}
	if err := repo.Create(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}
	return sale, nil
}

func (a *aggregator) Sync(ctx context.Context, tx *gorm.DB, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if tenantID == uuid.Nil || saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and sale ids are required")
	}

	repo := a.repo.WithTx(tx)
	sale, err := repo.GetForUpdate(ctx, tenantID, saleID)
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock sale")
	}

	assignments, err := repo.ListAssignments(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	payments, err := repo.ListActivePayments(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}

	listTotal := decimal.Zero
	discountTotal := decimal.Zero
	coverageTotal := decimal.Zero
	finalTotal := decimal.Zero
	activeCount := 0
	deliveredCount := 0
	for _, assignment := range assignments {
		if assignment.Status != enums.AssignmentStatusActive {
			continue
		}
		activeCount++
		if assignment.DeliveryStatus == enums.DeliveryStatusDelivered {
			deliveredCount++
		}
		// Snapshots are per unit; bilateral fittings count twice.
		units := decimal.NewFromInt(int64(assignment.StockQuantity()))
		listTotal = listTotal.Add(assignment.ListPrice.Mul(units))
		discountTotal = discountTotal.Add(assignment.ListPrice.Sub(assignment.SalePrice).Mul(units))
		coverageTotal = coverageTotal.Add(assignment.SGKSupport.Mul(units))
		finalTotal = finalTotal.Add(assignment.NetPayable.Mul(units))
	}

	paidTotal := decimal.Zero
	for _, payment := range payments {
		paidTotal = paidTotal.Add(payment.Amount)
	}

	sale.ListPriceTotal = listTotal.Round(2)
	sale.DiscountAmount = discountTotal.Round(2)
	sale.SGKCoverage = coverageTotal.Round(2)
	sale.FinalAmount = finalTotal.Round(2)
	sale.PaidAmount = paidTotal.Round(2)
	sale.Status = a.deriveStatus(sale, len(assignments), activeCount, deliveredCount)

	if err := repo.Save(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sale")
	}
	return sale, nil
}

// deriveStatus maps the recomputed totals to a sale status. A sale whose
// every assignment was cancelled or returned is cancelled; a fully delivered
// and fully paid sale is completed; otherwise the status follows the paid
// amount within tolerance.
func (a *aggregator) deriveStatus(sale *models.Sale, totalAssignments, activeCount, deliveredCount int) enums.SaleStatus {
	if totalAssignments > 0 && activeCount == 0 {
		return enums.SaleStatusCancelled
	}
	if activeCount == 0 {
		return enums.SaleStatusPending
	}

	paidInFull := sale.PaidAmount.GreaterThanOrEqual(sale.FinalAmount.Sub(a.tolerance))
	if paidInFull {
		if deliveredCount == activeCount {
			return enums.SaleStatusCompleted
		}
		return enums.SaleStatusPaid
	}
	if sale.PaidAmount.GreaterThan(decimal.Zero) {
		return enums.SaleStatusPartial
	}
	return enums.SaleStatusPending
}

func (a *aggregator) Get(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	if tenantID == uuid.Nil || saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and sale ids are required")
	}
	sale, err := a.repo.GetWithDetails(ctx, tenantID, saleID)
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}
