package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	"github.com/odyomed/clinic-backend/pkg/pagination"
)

// Repository exposes the persistence operations for inventory accounts, their
// serial pools, and the movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAccount(ctx context.Context, account *models.InventoryAccount) error
	GetAccount(ctx context.Context, tenantID, inventoryID uuid.UUID) (*models.InventoryAccount, error)
	GetAccountForUpdate(ctx context.Context, tenantID, inventoryID uuid.UUID) (*models.InventoryAccount, error)
	SaveAccount(ctx context.Context, account *models.InventoryAccount) error
	ListAccounts(ctx context.Context, params ListAccountsParams) ([]models.InventoryAccount, *pagination.Cursor, error)
	AddSerials(ctx context.Context, inventoryID uuid.UUID, serials []string) error
	GetSerialForUpdate(ctx context.Context, inventoryID uuid.UUID, serial string) (*models.InventorySerial, error)
	SaveSerial(ctx context.Context, serial *models.InventorySerial) error
	CountSerials(ctx context.Context, inventoryID uuid.UUID, status enums.SerialStatus) (int64, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, params ListMovementsParams) ([]models.StockMovement, *pagination.Cursor, error)
	SumMovements(ctx context.Context, inventoryID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository backed by the provided DB.
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

func (r *repository) CreateAccount(ctx context.Context, account *models.InventoryAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) GetAccount(ctx context.Context, tenantID, inventoryID uuid.UUID) (*models.InventoryAccount, error) {
	var account models.InventoryAccount
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, inventoryID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetAccountForUpdate(ctx context.Context, tenantID, inventoryID uuid.UUID) (*models.InventoryAccount, error) {
	var account models.InventoryAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, inventoryID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) SaveAccount(ctx context.Context, account *models.InventoryAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// ListAccountsParams filters and paginates the account listing.
type ListAccountsParams struct {
	TenantID uuid.UUID
	BranchID uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repository) ListAccounts(ctx context.Context, params ListAccountsParams) ([]models.InventoryAccount, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryAccount{}).
		Where("tenant_id = ?", params.TenantID)
	if params.BranchID != uuid.Nil {
		query = query.Where("branch_id = ?", params.BranchID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var accounts []models.InventoryAccount
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.FetchLimit(params.Limit)).Find(&accounts).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.TrimPage(accounts, params.Limit)
	return page, next, nil
}

func (r *repository) AddSerials(ctx context.Context, inventoryID uuid.UUID, serials []string) error {
	if len(serials) == 0 {
		return nil
	}
	rows := make([]models.InventorySerial, 0, len(serials))
	for _, serial := range serials {
		rows = append(rows, models.InventorySerial{
			InventoryID:  inventoryID,
			SerialNumber: serial,
			Status:       enums.SerialStatusInStock,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) GetSerialForUpdate(ctx context.Context, inventoryID uuid.UUID, serial string) (*models.InventorySerial, error) {
	var row models.InventorySerial
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("inventory_id = ? AND serial_number = ?", inventoryID, serial).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) SaveSerial(ctx context.Context, serial *models.InventorySerial) error {
	return r.db.WithContext(ctx).Save(serial).Error
}

func (r *repository) CountSerials(ctx context.Context, inventoryID uuid.UUID, status enums.SerialStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InventorySerial{}).
		Where("inventory_id = ? AND status = ?", inventoryID, status).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovementsParams filters and paginates the ledger listing.
type ListMovementsParams struct {
	TenantID    uuid.UUID
	InventoryID uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

func (r *repository) ListMovements(ctx context.Context, params ListMovementsParams) ([]models.StockMovement, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{}).
		Where("tenant_id = ? AND inventory_id = ?", params.TenantID, params.InventoryID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var movements []models.StockMovement
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.FetchLimit(params.Limit)).Find(&movements).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.TrimPage(movements, params.Limit)
	return page, next, nil
}

func (r *repository) SumMovements(ctx context.Context, inventoryID uuid.UUID) (int64, error) {
	var total struct {
		Sum int64
	}
	err := r.db.WithContext(ctx).Model(&models.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0) AS sum").
		Where("inventory_id = ?", inventoryID).
		Scan(&total).Error
	return total.Sum, err
}
