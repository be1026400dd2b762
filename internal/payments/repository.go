package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odyomed/clinic-backend/pkg/db/models"
)

// Repository exposes the persistence operations for payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.PaymentRecord) error
	Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.PaymentRecord, error)
	Save(ctx context.Context, payment *models.PaymentRecord) error
	GetSaleForUpdate(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository backed by the provided DB.
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

func (r *repository) Create(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.PaymentRecord, error) {
	var payment models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, paymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Save(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) GetSaleForUpdate(ctx context.Context, tenantID, saleID uuid.UUID) (*models.Sale, error) {
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
