package assignments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/internal/inventory"
	"github.com/odyomed/clinic-backend/internal/pricing"
	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/metrics"
	"github.com/odyomed/clinic-backend/pkg/pagination"
)

// Service drives the assignment state machine. Every transition applies all
// of its side effects — stock movements, loaner flips, sale re-sync — inside
// one retried transaction, so a failed transition leaves nothing behind.
type Service interface {
	Create(ctx context.Context, cmd CreateAssignmentCommand) (*Result, error)
	Update(ctx context.Context, cmd UpdateAssignmentCommand) (*Result, error)
	Deliver(ctx context.Context, cmd DeliverCommand) (*Result, error)
	Cancel(ctx context.Context, cmd CloseCommand) (*Result, error)
	Return(ctx context.Context, cmd CloseCommand) (*Result, error)
	AttachLoaner(ctx context.Context, cmd AttachLoanerCommand) (*Result, error)
	DetachLoaner(ctx context.Context, cmd DetachLoanerCommand) (*Result, error)
	Get(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error)
	ListByPatient(ctx context.Context, input ListByPatientInput) (*AssignmentPage, error)
}

type service struct {
	client     *db.Client
	repo       Repository
	stock      inventory.Service
	engine     *pricing.Engine
	settings   pricing.SettingsProvider
	aggregator sales.Aggregator
	metrics    *metrics.EngineMetrics
	retry      db.RetryPolicy
}

// NewService wires the assignment lifecycle service.
func NewService(
	client *db.Client,
	repo Repository,
	stock inventory.Service,
	engine *pricing.Engine,
	settings pricing.SettingsProvider,
	aggregator sales.Aggregator,
	m *metrics.EngineMetrics,
	cfg config.StockConfig,
) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if settings == nil {
		return nil, fmt.Errorf("pricing settings provider required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("sale aggregator required")
	}
	retry := db.RetryPolicy{Attempts: cfg.ConflictRetries, Delay: cfg.ConflictRetryDelay}
	if retry.Attempts <= 0 {
		retry = db.DefaultRetryPolicy
	}
	return &service{
		client:     client,
		repo:       repo,
		stock:      stock,
		engine:     engine,
		settings:   settings,
		aggregator: aggregator,
		metrics:    m,
		retry:      retry,
	}, nil
}

func (s *service) Create(ctx context.Context, cmd CreateAssignmentCommand) (*Result, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	// Pricing is pure and needs no lock, so it runs before the
	// transaction opens.
	snapshot, warnings, err := s.priceSnapshot(ctx, cmd.TenantID, pricingInputs{
		listPrice:     cmd.ListPrice,
		discountType:  cmd.DiscountType,
		discountValue: cmd.DiscountValue,
		sgkScheme:     cmd.SGKScheme,
		override:      cmd.Override,
	})
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := s.resolveSale(ctx, tx, cmd)
		if err != nil {
			return err
		}

		assignment := &models.DeviceAssignment{
			TenantID:          cmd.TenantID,
			BranchID:          cmd.BranchID,
			PatientID:         cmd.PatientID,
			SaleID:            sale.ID,
			InventoryID:       cmd.InventoryID,
			DeviceID:          cmd.DeviceID,
			Brand:             cmd.Brand,
			Model:             cmd.Model,
			Ear:               cmd.Ear,
			ListPrice:         cmd.ListPrice.Round(2),
			DiscountType:      normalizeDiscountType(cmd.DiscountType),
			DiscountValue:     cmd.DiscountValue.Round(2),
			SGKScheme:         snapshot.scheme,
			SGKSupport:        snapshot.sgkSupport,
			SalePrice:         snapshot.salePrice,
			NetPayable:        snapshot.netPayable,
			SerialNumber:      cmd.SerialNumber,
			SerialNumberLeft:  cmd.SerialNumberLeft,
			SerialNumberRight: cmd.SerialNumberRight,
			DeliveryStatus:    enums.DeliveryStatusPending,
			ReportStatus:      cmd.ReportStatus,
			Status:            enums.AssignmentStatusActive,
		}

		if err := repo.Create(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		stockWarnings := []string(nil)
		if cmd.DeliverNow {
			// The in-branch hand-over path deducts as part of
			// creation, recorded as a sale movement.
			stockWarnings, err = s.moveAssignmentStock(ctx, tx, assignment, enums.MovementTypeSale, -1, cmd.ActorID, cmd.AllowNegative)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			assignment.DeliveryStatus = enums.DeliveryStatusDelivered
			assignment.DeliveredAt = &now
			if err := repo.Save(ctx, assignment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark delivered")
			}
		}

		synced, err := s.aggregator.Sync(ctx, tx, cmd.TenantID, sale.ID)
		if err != nil {
			return err
		}
		result = &Result{
			Assignment: assignment,
			Sale:       synced,
			Warnings:   append(warnings, stockWarnings...),
		}
		return nil
	})
	if err != nil {
		s.noteConflict("assignment_create", err)
		return nil, err
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, cmd UpdateAssignmentCommand) (*Result, error) {
	if cmd.TenantID == uuid.Nil || cmd.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and assignment ids are required")
	}

	var result *Result
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.lockAssignment(ctx, repo, cmd.TenantID, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.Status.Terminal() {
			return invalidTransition(assignment.Status, "update")
		}

		if cmd.Brand != nil {
			assignment.Brand = *cmd.Brand
		}
		if cmd.Model != nil {
			assignment.Model = *cmd.Model
		}
		if cmd.ReportStatus != nil {
			assignment.ReportStatus = *cmd.ReportStatus
		}

		repricingNeeded := cmd.ListPrice != nil || cmd.DiscountType != nil ||
			cmd.DiscountValue != nil || cmd.SGKScheme != nil
		if cmd.ListPrice != nil {
			assignment.ListPrice = cmd.ListPrice.Round(2)
		}
		if cmd.DiscountType != nil {
			assignment.DiscountType = normalizeDiscountType(*cmd.DiscountType)
		}
		if cmd.DiscountValue != nil {
			assignment.DiscountValue = cmd.DiscountValue.Round(2)
		}
		if cmd.SGKScheme != nil {
			assignment.SGKScheme = *cmd.SGKScheme
		}

		var warnings []string
		if repricingNeeded || cmd.Override != nil {
			snapshot, priceWarnings, err := s.priceSnapshot(ctx, cmd.TenantID, pricingInputs{
				listPrice:     assignment.ListPrice,
				discountType:  assignment.DiscountType,
				discountValue: assignment.DiscountValue,
				sgkScheme:     assignment.SGKScheme,
				override:      cmd.Override,
			})
			if err != nil {
				return err
			}
			assignment.SGKScheme = snapshot.scheme
			assignment.SGKSupport = snapshot.sgkSupport
			assignment.SalePrice = snapshot.salePrice
			assignment.NetPayable = snapshot.netPayable
			warnings = priceWarnings
		}

		if err := repo.Save(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save assignment")
		}

		synced, err := s.aggregator.Sync(ctx, tx, cmd.TenantID, assignment.SaleID)
		if err != nil {
			return err
		}
		result = &Result{Assignment: assignment, Sale: synced, Warnings: warnings}
		return nil
	})
	if err != nil {
		s.noteConflict("assignment_update", err)
		return nil, err
	}
	return result, nil
}

func (s *service) Deliver(ctx context.Context, cmd DeliverCommand) (*Result, error) {
	if cmd.TenantID == uuid.Nil || cmd.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and assignment ids are required")
	}

	var result *Result
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.lockAssignment(ctx, repo, cmd.TenantID, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentStatusActive {
			return invalidTransition(assignment.Status, "deliver")
		}
		if assignment.DeliveryStatus == enums.DeliveryStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is already delivered")
		}

		warnings, err := s.moveAssignmentStock(ctx, tx, assignment, enums.MovementTypeDelivery, -1, cmd.ActorID, cmd.AllowNegative)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		assignment.DeliveryStatus = enums.DeliveryStatusDelivered
		assignment.DeliveredAt = &now
		if err := repo.Save(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark delivered")
		}

		synced, err := s.aggregator.Sync(ctx, tx, cmd.TenantID, assignment.SaleID)
		if err != nil {
			return err
		}
		result = &Result{Assignment: assignment, Sale: synced, Warnings: warnings}
		return nil
	})
	if err != nil {
		s.noteConflict("assignment_deliver", err)
		return nil, err
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, cmd CloseCommand) (*Result, error) {
	return s.close(ctx, cmd, enums.AssignmentStatusCancelled)
}

func (s *service) Return(ctx context.Context, cmd CloseCommand) (*Result, error) {
	return s.close(ctx, cmd, enums.AssignmentStatusReturned)
}

// close cancels or returns an assignment. Stock deducted by the delivery is
// restored with a compensating return movement; a loaner still out comes
// back too. A pending assignment that never deducted stock needs no
// movement at all.
func (s *service) close(ctx context.Context, cmd CloseCommand, target enums.AssignmentStatus) (*Result, error) {
	if cmd.TenantID == uuid.Nil || cmd.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and assignment ids are required")
	}

	var result *Result
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.lockAssignment(ctx, repo, cmd.TenantID, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.Status.Terminal() {
			return invalidTransition(assignment.Status, string(target))
		}

		var warnings []string
		if assignment.DeliveryStatus == enums.DeliveryStatusDelivered {
			restored, err := s.moveAssignmentStock(ctx, tx, assignment, enums.MovementTypeReturn, 1, cmd.ActorID, false)
			if err != nil {
				return err
			}
			warnings = append(warnings, restored...)
		}
		if assignment.IsLoaner {
			returned, err := s.returnLoaner(ctx, tx, assignment, cmd.ActorID)
			if err != nil {
				return err
			}
			warnings = append(warnings, returned...)
			clearLoaner(assignment)
		}

		now := time.Now().UTC()
		assignment.Status = target
		if target == enums.AssignmentStatusCancelled {
			assignment.CancelledAt = &now
		}
		if err := repo.Save(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close assignment")
		}

		synced, err := s.aggregator.Sync(ctx, tx, cmd.TenantID, assignment.SaleID)
		if err != nil {
			return err
		}
		result = &Result{Assignment: assignment, Sale: synced, Warnings: warnings}
		return nil
	})
	if err != nil {
		s.noteConflict("assignment_close", err)
		return nil, err
	}
	return result, nil
}

func (s *service) AttachLoaner(ctx context.Context, cmd AttachLoanerCommand) (*Result, error) {
	if cmd.TenantID == uuid.Nil || cmd.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and assignment ids are required")
	}
	if cmd.LoanerInventoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loaner inventory id is required")
	}

	var result *Result
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.lockAssignment(ctx, repo, cmd.TenantID, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentStatusActive {
			return invalidTransition(assignment.Status, "attach loaner")
		}

		var warnings []string
		if assignment.IsLoaner {
			// Swap: detach-old then attach-new, all or nothing.
			returned, err := s.returnLoaner(ctx, tx, assignment, cmd.ActorID)
			if err != nil {
				return err
			}
			warnings = append(warnings, returned...)
		}

		assignment.IsLoaner = true
		loanerID := cmd.LoanerInventoryID
		assignment.LoanerInventoryID = &loanerID
		assignment.LoanerBrand = cmd.LoanerBrand
		assignment.LoanerModel = cmd.LoanerModel
		assignment.LoanerSerialNumber = cmd.LoanerSerialNumber
		assignment.LoanerSerialNumberLeft = cmd.LoanerSerialNumberLeft
		assignment.LoanerSerialNumberRight = cmd.LoanerSerialNumberRight

		attached, err := s.moveStock(ctx, tx, stockMove{
			tenantID:      cmd.TenantID,
			inventoryID:   cmd.LoanerInventoryID,
			movementType:  enums.MovementTypeLoanerOut,
			units:         assignment.StockQuantity(),
			direction:     -1,
			serials:       assignment.LoanerSerials(),
			transactionID: assignment.ID,
			actorID:       cmd.ActorID,
			allowNegative: cmd.AllowNegative,
		})
		if err != nil {
			return err
		}
		warnings = append(warnings, attached...)

		if err := repo.Save(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach loaner")
		}

		synced, err := s.aggregator.Sync(ctx, tx, cmd.TenantID, assignment.SaleID)
		if err != nil {
			return err
		}
		result = &Result{Assignment: assignment, Sale: synced, Warnings: warnings}
		return nil
	})
	if err != nil {
		s.noteConflict("loaner_attach", err)
		return nil, err
	}
	return result, nil
}

func (s *service) DetachLoaner(ctx context.Context, cmd DetachLoanerCommand) (*Result, error) {
	if cmd.TenantID == uuid.Nil || cmd.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and assignment ids are required")
	}

	var result *Result
	err := s.client.WithTxRetry(ctx, s.retry, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.lockAssignment(ctx, repo, cmd.TenantID, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if !assignment.IsLoaner {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment has no loaner attached")
		}

		warnings, err := s.returnLoaner(ctx, tx, assignment, cmd.ActorID)
		if err != nil {
			return err
		}
		clearLoaner(assignment)

		if err := repo.Save(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach loaner")
		}

		synced, err := s.aggregator.Sync(ctx, tx, cmd.TenantID, assignment.SaleID)
		if err != nil {
			return err
		}
		result = &Result{Assignment: assignment, Sale: synced, Warnings: warnings}
		return nil
	})
	if err != nil {
		s.noteConflict("loaner_detach", err)
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.DeviceAssignment, error) {
	if tenantID == uuid.Nil || assignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and assignment ids are required")
	}
	assignment, err := s.repo.Get(ctx, tenantID, assignmentID)
	if err != nil {
		if db.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	return assignment, nil
}

// ListByPatientInput paginates one patient's assignments.
type ListByPatientInput struct {
	TenantID  uuid.UUID
	PatientID uuid.UUID
	Limit     int
	Cursor    string
}

// AssignmentPage is one page of assignments plus the next cursor, if any.
type AssignmentPage struct {
	Assignments []models.DeviceAssignment
	NextCursor  string
}

func (s *service) ListByPatient(ctx context.Context, input ListByPatientInput) (*AssignmentPage, error) {
	if input.TenantID == uuid.Nil || input.PatientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and patient ids are required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	assignments, next, err := s.repo.ListByPatient(ctx, ListByPatientParams{
		TenantID:  input.TenantID,
		PatientID: input.PatientID,
		Limit:     input.Limit,
		Cursor:    cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}

	page := &AssignmentPage{Assignments: assignments}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}
