package assignments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/internal/inventory"
	"github.com/odyomed/clinic-backend/internal/pricing"
	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

type pricingInputs struct {
	listPrice     decimal.Decimal
	discountType  enums.DiscountType
	discountValue decimal.Decimal
	sgkScheme     string
	override      *PricingOverride
}

type priceSnapshot struct {
	scheme     string
	salePrice  decimal.Decimal
	sgkSupport decimal.Decimal
	netPayable decimal.Decimal
}

// priceSnapshot computes the per-unit pricing snapshot for an assignment. An
// explicit override wins and skips the engine entirely.
func (s *service) priceSnapshot(ctx context.Context, tenantID uuid.UUID, in pricingInputs) (priceSnapshot, []string, error) {
	if in.override != nil {
		return priceSnapshot{
			scheme:     in.sgkScheme,
			salePrice:  in.override.SalePrice.Round(2),
			sgkSupport: in.override.SGKSupport.Round(2),
			netPayable: in.override.NetPayable.Round(2),
		}, nil, nil
	}

	settings, err := s.settings.SettingsFor(ctx, tenantID)
	if err != nil {
		return priceSnapshot{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing settings")
	}

	result, err := s.engine.Calculate(pricing.CalculationInput{
		Items: []pricing.LineItem{{
			Category:      enums.ItemCategoryDevice,
			BasePrice:     in.listPrice,
			DiscountType:  in.discountType,
			DiscountValue: in.discountValue,
		}},
		Scheme: in.sgkScheme,
	}, settings)
	if err != nil {
		return priceSnapshot{}, nil, err
	}

	item := result.Items[0]
	return priceSnapshot{
		scheme:     result.SchemeCode,
		salePrice:  item.SalePrice,
		sgkSupport: item.SGKSupport,
		netPayable: item.NetPayable,
	}, result.Warnings, nil
}

// resolveSale loads the target sale under lock, or opens a new one when the
// command carries no sale id.
func (s *service) resolveSale(ctx context.Context, tx *gorm.DB, cmd CreateAssignmentCommand) (*models.Sale, error) {
	if cmd.SaleID == nil {
		return s.aggregator.Create(ctx, tx, sales.CreateSaleInput{
			TenantID:  cmd.TenantID,
			BranchID:  cmd.BranchID,
			PatientID: cmd.PatientID,
		})
	}

	var sale models.Sale
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", cmd.TenantID, *cmd.SaleID).
		First(&sale).Error
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return &sale, nil
}

func (s *service) lockAssignment(ctx context.Context, repo Repository, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error) {
	assignment, err := repo.GetForUpdate(ctx, tenantID, assignmentID)
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock assignment")
	}
	return assignment, nil
}

type stockMove struct {
	tenantID      uuid.UUID
	inventoryID   uuid.UUID
	movementType  enums.MovementType
	units         int
	direction     int
	serials       []string
	transactionID uuid.UUID
	actorID       uuid.UUID
	allowNegative bool
}

// moveStock applies one logical stock change, splitting it into a serial part
// and an anonymous remainder when only some serials are known.
func (s *service) moveStock(ctx context.Context, tx *gorm.DB, move stockMove) ([]string, error) {
	if move.units <= 0 {
		return nil, nil
	}
	serials := move.serials
	if len(serials) > move.units {
		serials = serials[:move.units]
	}

	var warnings []string
	if len(serials) > 0 {
		applied, err := s.stock.ApplyMovement(ctx, tx, inventory.ApplyMovementInput{
			TenantID:      move.tenantID,
			InventoryID:   move.inventoryID,
			Type:          move.movementType,
			Quantity:      move.direction * len(serials),
			Serials:       serials,
			TransactionID: move.transactionID,
			ActorID:       move.actorID,
			AllowNegative: move.allowNegative,
		})
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, applied.Warnings...)
	}

	if remainder := move.units - len(serials); remainder > 0 {
		applied, err := s.stock.ApplyMovement(ctx, tx, inventory.ApplyMovementInput{
			TenantID:      move.tenantID,
			InventoryID:   move.inventoryID,
			Type:          move.movementType,
			Quantity:      move.direction * remainder,
			TransactionID: move.transactionID,
			ActorID:       move.actorID,
			AllowNegative: move.allowNegative,
		})
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, applied.Warnings...)
	}
	return warnings, nil
}

// moveAssignmentStock moves the purchased device's stock for the assignment.
// Manual entries without an inventory account are a no-op.
func (s *service) moveAssignmentStock(ctx context.Context, tx *gorm.DB, assignment *models.DeviceAssignment, movementType enums.MovementType, direction int, actorID uuid.UUID, allowNegative bool) ([]string, error) {
	if assignment.InventoryID == nil {
		return nil, nil
	}
	return s.moveStock(ctx, tx, stockMove{
		tenantID:      assignment.TenantID,
		inventoryID:   *assignment.InventoryID,
		movementType:  movementType,
		units:         assignment.StockQuantity(),
		direction:     direction,
		serials:       assignment.Serials(),
		transactionID: assignment.ID,
		actorID:       actorID,
		allowNegative: allowNegative,
	})
}

// returnLoaner restores the loaner inventory currently attached.
func (s *service) returnLoaner(ctx context.Context, tx *gorm.DB, assignment *models.DeviceAssignment, actorID uuid.UUID) ([]string, error) {
	if assignment.LoanerInventoryID == nil {
		return nil, nil
	}
	return s.moveStock(ctx, tx, stockMove{
		tenantID:      assignment.TenantID,
		inventoryID:   *assignment.LoanerInventoryID,
		movementType:  enums.MovementTypeLoanerReturn,
		units:         assignment.StockQuantity(),
		direction:     1,
		serials:       assignment.LoanerSerials(),
		transactionID: assignment.ID,
		actorID:       actorID,
	})
}

func clearLoaner(assignment *models.DeviceAssignment) {
	assignment.IsLoaner = false
	assignment.LoanerInventoryID = nil
	assignment.LoanerSerialNumber = nil
	assignment.LoanerSerialNumberLeft = nil
	assignment.LoanerSerialNumberRight = nil
	assignment.LoanerBrand = ""
	assignment.LoanerModel = ""
}

func validateCreate(cmd CreateAssignmentCommand) error {
	if cmd.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if cmd.BranchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}
	if cmd.PatientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "patient id is required")
	}
	if cmd.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !cmd.Ear.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ear side %q", cmd.Ear))
	}
	if cmd.ListPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "list price must not be negative")
	}
	if cmd.DiscountType != "" && !cmd.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", cmd.DiscountType))
	}
	if cmd.Ear == enums.EarSideBoth && cmd.SerialNumber != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bilateral assignments use left/right serial fields")
	}
	if cmd.Ear != enums.EarSideBoth && (cmd.SerialNumberLeft != nil || cmd.SerialNumberRight != nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "left/right serial fields require a bilateral assignment")
	}
	return nil
}

func normalizeDiscountType(discountType enums.DiscountType) enums.DiscountType {
	if discountType == "" {
		return enums.DiscountTypeNone
	}
	return discountType
}

// noteConflict records lock/serialization conflicts that survived retries.
func (s *service) noteConflict(operation string, err error) {
	if db.IsConflict(err) {
		s.metrics.IncConflict(operation)
	}
}

func invalidTransition(current enums.AssignmentStatus, operation string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot %s a %s assignment", operation, current)).
		WithDetails(map[string]any{"status": current})
}
