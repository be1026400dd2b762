package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
)

// Repository exposes the persistence operations for sales and the rows the
// aggregator derives totals from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	Get(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	GetWithDetails(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	GetForUpdate(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
	Save(ctx context.Context, sale *models.Sale) error
	ListAssignments(ctx context.Context, saleID uuid.UUID) ([]models.DeviceAssignment, error)
	ListActivePayments(ctx context.Context, saleID uuid.UUID) ([]models.PaymentRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) Get(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, saleID).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) GetWithDetails(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Preload("Payments").
		Where("tenant_id = ? AND id = ?", tenantID, saleID).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) GetForUpdate(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, saleID).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) Save(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *repository) ListAssignments(ctx context.Context, saleID uuid.UUID) ([]models.DeviceAssignment, error) {
	var assignments []models.DeviceAssignment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) ListActivePayments(ctx context.Context, saleID uuid.UUID) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("sale_id = ? AND status = ?", saleID, enums.PaymentStatusActive).
		Order("paid_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
