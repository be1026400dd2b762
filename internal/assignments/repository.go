package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/pagination"
)

// Repository exposes the persistence operations for device assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.DeviceAssignment) error
	Get(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error)
	GetForUpdate(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error)
	Save(ctx context.Context, assignment *models.DeviceAssignment) error
	ListByPatient(ctx context.Context, params ListByPatientParams) ([]models.DeviceAssignment, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignment repository backed by the provided DB.
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

func (r *repository) Create(ctx context.Context, assignment *models.DeviceAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) Get(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error) {
	var assignment models.DeviceAssignment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, assignmentID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) GetForUpdate(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error) {
	var assignment models.DeviceAssignment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, assignmentID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) Save(ctx context.Context, assignment *models.DeviceAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

// ListByPatientParams filters and paginates a patient's assignments.
type ListByPatientParams struct {
	TenantID  uuid.UUID
	PatientID uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repository) ListByPatient(ctx context.Context, params ListByPatientParams) ([]models.DeviceAssignment, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.DeviceAssignment{}).
		Where("tenant_id = ? AND patient_id = ?", params.TenantID, params.PatientID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var assignments []models.DeviceAssignment
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.FetchLimit(params.Limit)).Find(&assignments).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.TrimPage(assignments, params.Limit)
	return page, next, nil
}
