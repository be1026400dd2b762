package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/metrics"
	"github.com/odyomed/clinic-backend/pkg/pagination"
)

// Service defines the stock ledger operations. ApplyMovement is the single
// write path for inventory counts: every successful call appends ledger rows
// and updates the account inside the caller's transaction.
type Service interface {
	ApplyMovement(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*MovementResult, error)
	CreateAccount(ctx context.Context, input CreateAccountInput) (*models.InventoryAccount, error)
	Adjust(ctx context.Context, input AdjustInput) (*MovementResult, error)
	GetAccount(ctx context.Context, tenantID, inventoryID uuid.UUID) (*AccountDetail, error)
	ListAccounts(ctx context.Context, input ListAccountsInput) (*AccountPage, error)
	ListMovements(ctx context.Context, input ListMovementsInput) (*MovementPage, error)
}

type service struct {
	client  *db.Client
	repo    Repository
	metrics *metrics.EngineMetrics
	retry   db.RetryPolicy
}

// NewService wires an inventory service. Metrics may be nil.
func NewService(client *db.Client, repo Repository, m *metrics.EngineMetrics, cfg config.StockConfig) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	retry := db.RetryPolicy{Attempts: cfg.ConflictRetries, Delay: cfg.ConflictRetryDelay}
	if retry.Attempts <= 0 {
		retry = db.DefaultRetryPolicy
	}
	return &service{client: client, repo: repo, metrics: m, retry: retry}, nil
}

// ApplyMovementInput describes one signed stock delta. Quantity is negative
// for deductions. Serials, when present, must cover the full quantity; each
// serial produces its own ledger row.
type ApplyMovementInput struct {
	TenantID      uuid.UUID
	InventoryID   uuid.UUID
	Type          enums.MovementType
	Quantity      int
	Serials       []string
	TransactionID uuid.UUID
	ActorID       uuid.UUID
	Note          string
	AllowNegative bool
}

// MovementResult is the account snapshot after the movement plus any non-fatal
// warnings the caller must surface.
type MovementResult struct {
	Account  *models.InventoryAccount
	Warnings []string
}

func (s *service) ApplyMovement(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*MovementResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateMovementInput(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.GetAccountForUpdate(ctx, input.TenantID, input.InventoryID)
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory account")
	}

	var warnings []string
	newAvailable := account.Available + input.Quantity
	if newAvailable < 0 {
		if !input.AllowNegative {
			s.metrics.IncInsufficientStock(string(input.Type))
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"inventory_id": input.InventoryID,
					"available":    account.Available,
					"requested":    -input.Quantity,
					"shortfall":    -newAvailable,
				})
		}
		warnings = append(warnings, fmt.Sprintf(
			"stock for %s went negative (%d), movement proceeded", input.InventoryID, newAvailable))
	}

	if len(input.Serials) > 0 {
		if err := s.flipSerials(ctx, repo, account, input); err != nil {
			return nil, err
		}
	}

	applyCounters(account, input.Type, input.Quantity)

	if err := s.appendLedger(ctx, repo, input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stock movement")
	}
	if err := repo.SaveAccount(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory account")
	}

	s.metrics.IncMovement(string(input.Type))
	return &MovementResult{Account: account, Warnings: warnings}, nil
}

// flipSerials moves each named serial between the pool and its allocated
// state. Deductions demand the serial be in stock; restorations demand it be
// currently out.
func (s *service) flipSerials(ctx context.Context, repo Repository, account *models.InventoryAccount, input ApplyMovementInput) error {
	target := serialTargetStatus(input.Type, input.Quantity)
	for _, serialNumber := range input.Serials {
		row, err := repo.GetSerialForUpdate(ctx, account.ID, serialNumber)
		if err != nil {
			if db.NotFound(err) {
				if input.Type == enums.MovementTypeAdjustment && input.Quantity > 0 {
					if err := repo.AddSerials(ctx, account.ID, []string{serialNumber}); err != nil {
						// A concurrent intake can win the insert between the
						// lock miss and here.
						if db.IsUniqueViolation(err, "") {
							return serialUnavailable(serialNumber, "already tracked for this item")
						}
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add serial")
					}
					continue
				}
				return serialUnavailable(serialNumber, "not tracked for this item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock serial")
		}

		deducting := input.Quantity < 0
		if deducting && row.Status != enums.SerialStatusInStock {
			return serialUnavailable(serialNumber, fmt.Sprintf("currently %s", row.Status))
		}
		if !deducting && row.Status == enums.SerialStatusInStock {
			return serialUnavailable(serialNumber, "already in stock")
		}

		row.Status = target
		if err := repo.SaveSerial(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update serial")
		}
	}
	return nil
}

// appendLedger writes one row per serial, or a single aggregate row for
// anonymous quantities.
func (s *service) appendLedger(ctx context.Context, repo Repository, input ApplyMovementInput) error {
	note := optional(input.Note)
	if len(input.Serials) == 0 {
		return repo.CreateMovement(ctx, &models.StockMovement{
			TenantID:      input.TenantID,
			InventoryID:   input.InventoryID,
			Type:          input.Type,
			Quantity:      input.Quantity,
			TransactionID: input.TransactionID,
			ActorID:       input.ActorID,
			Note:          note,
		})
	}

	unit := 1
	if input.Quantity < 0 {
		unit = -1
	}
	for _, serialNumber := range input.Serials {
		serial := serialNumber
		err := repo.CreateMovement(ctx, &models.StockMovement{
			TenantID:      input.TenantID,
			InventoryID:   input.InventoryID,
			Type:          input.Type,
			Quantity:      unit,
			SerialNumber:  &serial,
			TransactionID: input.TransactionID,
			ActorID:       input.ActorID,
			Note:          note,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateAccountInput onboards an inventory item. An initial quantity is
// recorded as an adjustment movement so the ledger stays conserved.
type CreateAccountInput struct {
	TenantID     uuid.UUID
	BranchID     uuid.UUID
	Name         string
	Brand        string
	Model        string
	Serialized   bool
	Serials      []string
	InitialQty   int
	ReorderLevel int
	ActorID      uuid.UUID
}

func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.InventoryAccount, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.InitialQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial quantity must not be negative")
	}
	if input.Serialized && len(input.Serials) > 0 && input.InitialQty == 0 {
		input.InitialQty = len(input.Serials)
	}
	if !input.Serialized && len(input.Serials) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serials given for a non-serialized item")
	}

	account := &models.InventoryAccount{
		TenantID:     input.TenantID,
		BranchID:     input.BranchID,
		Name:         input.Name,
		Brand:        input.Brand,
		Model:        input.Model,
		Serialized:   input.Serialized,
		ReorderLevel: input.ReorderLevel,
		Active:       true,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateAccount(ctx, account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory account")
		}
		if input.InitialQty == 0 {
			return nil
		}
		_, err := s.ApplyMovement(ctx, tx, ApplyMovementInput{
			TenantID:      input.TenantID,
			InventoryID:   account.ID,
			Type:          enums.MovementTypeAdjustment,
			Quantity:      input.InitialQty,
			Serials:       input.Serials,
			TransactionID: account.ID,
			ActorID:       input.ActorID,
			Note:          "initial stock",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// AdjustInput is a manual stock correction outside the assignment flows.
type AdjustInput struct {
	TenantID    uuid.UUID
	InventoryID uuid.UUID
	Quantity    int
	Serials     []string
	ActorID     uuid.UUID
	Note        string
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*MovementResult, error) {
	var result *MovementResult
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		applied, err := s.ApplyMovement(ctx, tx, ApplyMovementInput{
			TenantID:      input.TenantID,
			InventoryID:   input.InventoryID,
			Type:          enums.MovementTypeAdjustment,
			Quantity:      input.Quantity,
			Serials:       input.Serials,
			TransactionID: uuid.New(),
			ActorID:       input.ActorID,
			Note:          input.Note,
		})
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AccountDetail is an account plus its current serial pool size.
type AccountDetail struct {
	Account       *models.InventoryAccount
	SerialsInPool int64
}

func (s *service) GetAccount(ctx context.Context, tenantID, inventoryID uuid.UUID) (*AccountDetail, error) {
	if tenantID == uuid.Nil || inventoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and inventory ids are required")
	}
	account, err := s.repo.GetAccount(ctx, tenantID, inventoryID)
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory account")
	}

	detail := &AccountDetail{Account: account}
	if account.Serialized {
		count, err := s.repo.CountSerials(ctx, account.ID, enums.SerialStatusInStock)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count serial pool")
		}
		detail.SerialsInPool = count
	}
	return detail, nil
}

// ListAccountsInput paginates the account listing for one tenant.
type ListAccountsInput struct {
	TenantID uuid.UUID
	BranchID uuid.UUID
	Limit    int
	Cursor   string
}

// AccountPage is one page of accounts plus the next cursor, if any.
type AccountPage struct {
	Accounts   []models.InventoryAccount
	NextCursor string
}

func (s *service) ListAccounts(ctx context.Context, input ListAccountsInput) (*AccountPage, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	accounts, next, err := s.repo.ListAccounts(ctx, ListAccountsParams{
		TenantID: input.TenantID,
		BranchID: input.BranchID,
		Limit:    input.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory accounts")
	}

	page := &AccountPage{Accounts: accounts}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// ListMovementsInput paginates the ledger for one inventory item.
type ListMovementsInput struct {
	TenantID    uuid.UUID
	InventoryID uuid.UUID
	Limit       int
	Cursor      string
}

// MovementPage is one page of ledger rows plus the next cursor, if any.
type MovementPage struct {
	Movements  []models.StockMovement
	NextCursor string
}

func (s *service) ListMovements(ctx context.Context, input ListMovementsInput) (*MovementPage, error) {
	if input.TenantID == uuid.Nil || input.InventoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and inventory ids are required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	movements, next, err := s.repo.ListMovements(ctx, ListMovementsParams{
		TenantID:    input.TenantID,
		InventoryID: input.InventoryID,
		Limit:       input.Limit,
		Cursor:      cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}

	page := &MovementPage{Movements: movements}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func validateMovementInput(input ApplyMovementInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.InventoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	if input.TransactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if input.Quantity == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be zero")
	}
	if input.Type.Deducts() && input.Quantity > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s movements must carry a negative quantity", input.Type))
	}
	if (input.Type == enums.MovementTypeReturn || input.Type == enums.MovementTypeLoanerReturn) && input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s movements must carry a positive quantity", input.Type))
	}
	if n := len(input.Serials); n > 0 && n != abs(input.Quantity) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%d serials given for a quantity of %d", n, abs(input.Quantity)))
	}
	return nil
}

func applyCounters(account *models.InventoryAccount, movementType enums.MovementType, quantity int) {
	account.Available += quantity
	switch movementType {
	case enums.MovementTypeSale, enums.MovementTypeDelivery:
		account.Used += -quantity
	case enums.MovementTypeReturn:
		account.Used -= quantity
	case enums.MovementTypeLoanerOut:
		account.OnLoan += -quantity
	case enums.MovementTypeLoanerReturn:
		account.OnLoan -= quantity
	}
	if account.Used < 0 {
		account.Used = 0
	}
	if account.OnLoan < 0 {
		account.OnLoan = 0
	}
}

func serialTargetStatus(movementType enums.MovementType, quantity int) enums.SerialStatus {
	if quantity > 0 {
		return enums.SerialStatusInStock
	}
	if movementType == enums.MovementTypeLoanerOut {
		return enums.SerialStatusOnLoan
	}
	return enums.SerialStatusAssigned
}

func serialUnavailable(serialNumber, reason string) error {
	return pkgerrors.New(pkgerrors.CodeSerialUnavailable,
		fmt.Sprintf("serial %s is not available: %s", serialNumber, reason)).
		WithDetails(map[string]any{"serial_number": serialNumber, "reason": reason})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
