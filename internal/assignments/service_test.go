package assignments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/internal/inventory"
	"github.com/odyomed/clinic-backend/internal/pricing"
	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

type staticSettings struct {
	settings pricing.Settings
}

func (s staticSettings) SettingsFor(context.Context, uuid.UUID) (pricing.Settings, error) {
	return s.settings, nil
}

func (s staticSettings) Invalidate(context.Context, uuid.UUID) {}

type testEnv struct {
	svc    Service
	stock  inventory.Service
	client *db.Client
	conn   *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:assignments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	err = conn.AutoMigrate(
		&models.InventoryAccount{}, &models.InventorySerial{}, &models.StockMovement{},
		&models.Sale{}, &models.DeviceAssignment{}, &models.PaymentRecord{},
	)
	require.NoError(t, err)

	client := db.FromGorm(conn)
	stock, err := inventory.NewService(client, inventory.NewRepository(conn), nil, config.StockConfig{ConflictRetries: 3})
	require.NoError(t, err)

	aggregator, err := sales.NewAggregator(sales.NewRepository(conn), decimal.NewFromFloat(0.01))
	require.NoError(t, err)

	settings := staticSettings{settings: pricing.Settings{
		DefaultScheme: "standard",
		Tolerance:     decimal.NewFromFloat(0.01),
		Schemes: map[string]pricing.Scheme{
			"standard": {Code: "standard", CoverageAmount: decimal.NewFromInt(300)},
		},
	}}

	svc, err := NewService(client, NewRepository(conn), stock, pricing.NewEngine(nil), settings, aggregator, nil, config.StockConfig{ConflictRetries: 3})
	require.NoError(t, err)

	return &testEnv{svc: svc, stock: stock, client: client, conn: conn}
}

func (e *testEnv) seedInventory(t *testing.T, tenantID uuid.UUID, qty int, serials []string) *models.InventoryAccount {
	t.Helper()
	account, err := e.stock.CreateAccount(context.Background(), inventory.CreateAccountInput{
		TenantID:   tenantID,
		BranchID:   uuid.New(),
		Name:       "Hearing Aid X2",
		Brand:      "Acme",
		Model:      "X2",
		Serialized: len(serials) > 0,
		Serials:    serials,
		InitialQty: qty,
		ActorID:    uuid.New(),
	})
	require.NoError(t, err)
	return account
}

func (e *testEnv) available(t *testing.T, tenantID, inventoryID uuid.UUID) int {
	t.Helper()
	detail, err := e.stock.GetAccount(context.Background(), tenantID, inventoryID)
	require.NoError(t, err)
	return detail.Account.Available
}

func (e *testEnv) movements(t *testing.T, tenantID, inventoryID uuid.UUID) []models.StockMovement {
	t.Helper()
	page, err := e.stock.ListMovements(context.Background(), inventory.ListMovementsInput{
		TenantID:    tenantID,
		InventoryID: inventoryID,
		Limit:       100,
	})
	require.NoError(t, err)
	return page.Movements
}

func countMovements(movements []models.StockMovement, movementType enums.MovementType) int {
	n := 0
	for _, m := range movements {
		if m.Type == movementType {
			n++
		}
	}
	return n
}

func str(s string) *string { return &s }

func TestCreateBilateralDeliverNow(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	account := env.seedInventory(t, tenantID, 0, []string{"L1", "R1", "S3"})

	result, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:          tenantID,
		BranchID:          uuid.New(),
		PatientID:         uuid.New(),
		ActorID:           uuid.New(),
		InventoryID:       &account.ID,
		Brand:             "Acme",
		Model:             "X2",
		Ear:               enums.EarSideBoth,
		ListPrice:         decimal.NewFromInt(1000),
		DiscountType:      enums.DiscountTypePercentage,
		DiscountValue:     decimal.NewFromInt(10),
		SGKScheme:         "standard",
		SerialNumberLeft:  str("L1"),
		SerialNumberRight: str("R1"),
		DeliverNow:        true,
	})
	require.NoError(t, err)

	// Per-side snapshot: 1000 list, 10% discount, 300 coverage.
	assert.True(t, result.Assignment.SalePrice.Equal(decimal.NewFromInt(900)), "sale price %s", result.Assignment.SalePrice)
	assert.True(t, result.Assignment.SGKSupport.Equal(decimal.NewFromInt(300)))
	assert.True(t, result.Assignment.NetPayable.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, enums.DeliveryStatusDelivered, result.Assignment.DeliveryStatus)
	require.NotNil(t, result.Assignment.DeliveredAt)

	// Sale totals cover both units.
	assert.True(t, result.Sale.ListPriceTotal.Equal(decimal.NewFromInt(2000)), "total %s", result.Sale.ListPriceTotal)
	assert.True(t, result.Sale.DiscountAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Sale.SGKCoverage.Equal(decimal.NewFromInt(600)))
	assert.True(t, result.Sale.FinalAmount.Equal(decimal.NewFromInt(1200)))

	// Both serials consumed, one anonymous unit untouched.
	assert.Equal(t, 1, env.available(t, tenantID, account.ID))
	movements := env.movements(t, tenantID, account.ID)
	assert.Equal(t, 2, countMovements(movements, enums.MovementTypeSale))

	var left models.InventorySerial
	require.NoError(t, env.conn.Where("inventory_id = ? AND serial_number = ?", account.ID, "L1").First(&left).Error)
	assert.Equal(t, enums.SerialStatusAssigned, left.Status)
}

func TestDeliverInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	account := env.seedInventory(t, tenantID, 0, nil)

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:    tenantID,
		BranchID:    uuid.New(),
		PatientID:   uuid.New(),
		ActorID:     uuid.New(),
		InventoryID: &account.ID,
		Ear:         enums.EarSideRight,
		ListPrice:   decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPending, created.Assignment.DeliveryStatus)

	_, err = env.svc.Deliver(context.Background(), DeliverCommand{
		TenantID:     tenantID,
		AssignmentID: created.Assignment.ID,
		ActorID:      uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	// Nothing deducted, assignment untouched.
	reloaded, err := env.svc.Get(context.Background(), tenantID, created.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPending, reloaded.DeliveryStatus)
	assert.Equal(t, 0, countMovements(env.movements(t, tenantID, account.ID), enums.MovementTypeDelivery))
}

func TestDeliverThenDeliverAgain(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	account := env.seedInventory(t, tenantID, 2, nil)

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:    tenantID,
		BranchID:    uuid.New(),
		PatientID:   uuid.New(),
		ActorID:     uuid.New(),
		InventoryID: &account.ID,
		Ear:         enums.EarSideLeft,
		ListPrice:   decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.Deliver(context.Background(), DeliverCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.available(t, tenantID, account.ID))

	_, err = env.svc.Deliver(context.Background(), DeliverCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	// The second attempt must not double-deduct.
	assert.Equal(t, 1, env.available(t, tenantID, account.ID))
}

func TestCancelDeliveredRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	account := env.seedInventory(t, tenantID, 0, []string{"S1"})

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:     tenantID,
		BranchID:     uuid.New(),
		PatientID:    uuid.New(),
		ActorID:      uuid.New(),
		InventoryID:  &account.ID,
		Ear:          enums.EarSideLeft,
		ListPrice:    decimal.NewFromInt(500),
		SerialNumber: str("S1"),
		DeliverNow:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, env.available(t, tenantID, account.ID))

	result, err := env.svc.Cancel(context.Background(), CloseCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusCancelled, result.Assignment.Status)
	require.NotNil(t, result.Assignment.CancelledAt)

	// Compensating return puts the serial back in the pool.
	assert.Equal(t, 1, env.available(t, tenantID, account.ID))
	assert.Equal(t, 1, countMovements(env.movements(t, tenantID, account.ID), enums.MovementTypeReturn))
	var serial models.InventorySerial
	require.NoError(t, env.conn.Where("inventory_id = ? AND serial_number = ?", account.ID, "S1").First(&serial).Error)
	assert.Equal(t, enums.SerialStatusInStock, serial.Status)

	// Cancelled assignment no longer counts toward the sale.
	assert.True(t, result.Sale.FinalAmount.IsZero())
	assert.Equal(t, enums.SaleStatusCancelled, result.Sale.Status)
}

func TestCancelPendingSkipsStock(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	account := env.seedInventory(t, tenantID, 3, nil)

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:    tenantID,
		BranchID:    uuid.New(),
		PatientID:   uuid.New(),
		ActorID:     uuid.New(),
		InventoryID: &account.ID,
		Ear:         enums.EarSideLeft,
		ListPrice:   decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), CloseCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	// Never delivered, so no movement beyond the initial stock row.
	assert.Equal(t, 3, env.available(t, tenantID, account.ID))
	assert.Equal(t, 0, countMovements(env.movements(t, tenantID, account.ID), enums.MovementTypeReturn))
}

func TestCancelTerminalRejected(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), CloseCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), CloseCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = env.svc.Deliver(context.Background(), DeliverCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestLoanerSwap(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	loanerA := env.seedInventory(t, tenantID, 0, []string{"A1"})
	loanerB := env.seedInventory(t, tenantID, 0, []string{"B1"})

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.AttachLoaner(context.Background(), AttachLoanerCommand{
		TenantID:           tenantID,
		AssignmentID:       created.Assignment.ID,
		ActorID:            uuid.New(),
		LoanerInventoryID:  loanerA.ID,
		LoanerBrand:        "Acme",
		LoanerModel:        "Loan1",
		LoanerSerialNumber: str("A1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, env.available(t, tenantID, loanerA.ID))

	result, err := env.svc.AttachLoaner(context.Background(), AttachLoanerCommand{
		TenantID:           tenantID,
		AssignmentID:       created.Assignment.ID,
		ActorID:            uuid.New(),
		LoanerInventoryID:  loanerB.ID,
		LoanerBrand:        "Acme",
		LoanerModel:        "Loan2",
		LoanerSerialNumber: str("B1"),
	})
	require.NoError(t, err)

	// Exactly one return of A1 and one out of B1.
	movementsA := env.movements(t, tenantID, loanerA.ID)
	assert.Equal(t, 1, countMovements(movementsA, enums.MovementTypeLoanerOut))
	assert.Equal(t, 1, countMovements(movementsA, enums.MovementTypeLoanerReturn))
	movementsB := env.movements(t, tenantID, loanerB.ID)
	assert.Equal(t, 1, countMovements(movementsB, enums.MovementTypeLoanerOut))
	assert.Equal(t, 0, countMovements(movementsB, enums.MovementTypeLoanerReturn))

	assert.Equal(t, 1, env.available(t, tenantID, loanerA.ID))
	assert.Equal(t, 0, env.available(t, tenantID, loanerB.ID))
	require.NotNil(t, result.Assignment.LoanerInventoryID)
	assert.Equal(t, loanerB.ID, *result.Assignment.LoanerInventoryID)
	assert.Equal(t, "Loan2", result.Assignment.LoanerModel)
}

func TestDetachLoaner(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	loaner := env.seedInventory(t, tenantID, 0, []string{"A1"})

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.DetachLoaner(context.Background(), DetachLoanerCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = env.svc.AttachLoaner(context.Background(), AttachLoanerCommand{
		TenantID:           tenantID,
		AssignmentID:       created.Assignment.ID,
		ActorID:            uuid.New(),
		LoanerInventoryID:  loaner.ID,
		LoanerSerialNumber: str("A1"),
	})
	require.NoError(t, err)

	result, err := env.svc.DetachLoaner(context.Background(), DetachLoanerCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.False(t, result.Assignment.IsLoaner)
	assert.Nil(t, result.Assignment.LoanerInventoryID)
	assert.Equal(t, 1, env.available(t, tenantID, loaner.ID))
}

func TestCloseReturnsLoaner(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	loaner := env.seedInventory(t, tenantID, 0, []string{"A1"})

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.AttachLoaner(context.Background(), AttachLoanerCommand{
		TenantID:           tenantID,
		AssignmentID:       created.Assignment.ID,
		ActorID:            uuid.New(),
		LoanerInventoryID:  loaner.ID,
		LoanerSerialNumber: str("A1"),
	})
	require.NoError(t, err)

	result, err := env.svc.Return(context.Background(), CloseCommand{
		TenantID: tenantID, AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusReturned, result.Assignment.Status)
	assert.False(t, result.Assignment.IsLoaner)
	assert.Equal(t, 1, env.available(t, tenantID, loaner.ID))
}

func TestUpdateReprices(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(1000),
		SGKScheme: "standard",
	})
	require.NoError(t, err)
	assert.True(t, created.Assignment.NetPayable.Equal(decimal.NewFromInt(700)))

	newPrice := decimal.NewFromInt(800)
	result, err := env.svc.Update(context.Background(), UpdateAssignmentCommand{
		TenantID:     tenantID,
		AssignmentID: created.Assignment.ID,
		ActorID:      uuid.New(),
		ListPrice:    &newPrice,
	})
	require.NoError(t, err)
	assert.True(t, result.Assignment.SalePrice.Equal(decimal.NewFromInt(800)))
	assert.True(t, result.Assignment.NetPayable.Equal(decimal.NewFromInt(500)))
	assert.True(t, result.Sale.FinalAmount.Equal(decimal.NewFromInt(500)))
}

func TestUpdateWithoutPriceFieldsKeepsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(1000),
		Override: &PricingOverride{
			SalePrice:  decimal.NewFromInt(950),
			SGKSupport: decimal.NewFromInt(100),
			NetPayable: decimal.NewFromInt(850),
		},
	})
	require.NoError(t, err)
	assert.True(t, created.Assignment.NetPayable.Equal(decimal.NewFromInt(850)))

	brand := "Phonak"
	result, err := env.svc.Update(context.Background(), UpdateAssignmentCommand{
		TenantID:     tenantID,
		AssignmentID: created.Assignment.ID,
		ActorID:      uuid.New(),
		Brand:        &brand,
	})
	require.NoError(t, err)
	// Brand-only edit must not rerun the engine over the override.
	assert.Equal(t, "Phonak", result.Assignment.Brand)
	assert.True(t, result.Assignment.SalePrice.Equal(decimal.NewFromInt(950)))
	assert.True(t, result.Assignment.NetPayable.Equal(decimal.NewFromInt(850)))
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		cmd  CreateAssignmentCommand
	}{
		{"missing tenant", CreateAssignmentCommand{
			BranchID: uuid.New(), PatientID: uuid.New(), ActorID: uuid.New(),
			Ear: enums.EarSideLeft, ListPrice: decimal.NewFromInt(100),
		}},
		{"invalid ear", CreateAssignmentCommand{
			TenantID: uuid.New(), BranchID: uuid.New(), PatientID: uuid.New(), ActorID: uuid.New(),
			Ear: enums.EarSide("middle"), ListPrice: decimal.NewFromInt(100),
		}},
		{"negative list price", CreateAssignmentCommand{
			TenantID: uuid.New(), BranchID: uuid.New(), PatientID: uuid.New(), ActorID: uuid.New(),
			Ear: enums.EarSideLeft, ListPrice: decimal.NewFromInt(-1),
		}},
		{"single serial on bilateral", CreateAssignmentCommand{
			TenantID: uuid.New(), BranchID: uuid.New(), PatientID: uuid.New(), ActorID: uuid.New(),
			Ear: enums.EarSideBoth, ListPrice: decimal.NewFromInt(100), SerialNumber: str("S1"),
		}},
		{"side serials on unilateral", CreateAssignmentCommand{
			TenantID: uuid.New(), BranchID: uuid.New(), PatientID: uuid.New(), ActorID: uuid.New(),
			Ear: enums.EarSideLeft, ListPrice: decimal.NewFromInt(100), SerialNumberLeft: str("L1"),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Create(context.Background(), tc.cmd)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestTenantScoping(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()

	created, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: uuid.New(),
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = env.svc.Get(context.Background(), uuid.New(), created.Assignment.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = env.svc.Deliver(context.Background(), DeliverCommand{
		TenantID: uuid.New(), AssignmentID: created.Assignment.ID, ActorID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestAppendToExistingSale(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	patientID := uuid.New()

	first, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: patientID,
		ActorID:   uuid.New(),
		Ear:       enums.EarSideLeft,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	second, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
		TenantID:  tenantID,
		BranchID:  uuid.New(),
		PatientID: patientID,
		ActorID:   uuid.New(),
		SaleID:    &first.Sale.ID,
		Ear:       enums.EarSideRight,
		ListPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	assert.Equal(t, first.Sale.ID, second.Assignment.SaleID)

	// No scheme given, so each side is priced under the default scheme and
	// gets its 300 coverage: 2*500 list - 2*300 coverage.
	assert.True(t, second.Sale.ListPriceTotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, second.Sale.SGKCoverage.Equal(decimal.NewFromInt(600)))
	assert.True(t, second.Sale.FinalAmount.Equal(decimal.NewFromInt(400)))
}

func TestListByPatientPagination(t *testing.T) {
	env := newTestEnv(t)
	tenantID := uuid.New()
	patientID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := env.svc.Create(context.Background(), CreateAssignmentCommand{
			TenantID:  tenantID,
			BranchID:  uuid.New(),
			PatientID: patientID,
			ActorID:   uuid.New(),
			Ear:       enums.EarSideLeft,
			ListPrice: decimal.NewFromInt(100),
		})
		require.NoError(t, err)
	}

	page, err := env.svc.ListByPatient(context.Background(), ListByPatientInput{
		TenantID:  tenantID,
		PatientID: patientID,
		Limit:     3,
	})
	require.NoError(t, err)
	assert.Len(t, page.Assignments, 3)
	require.NotEmpty(t, page.NextCursor)

	rest, err := env.svc.ListByPatient(context.Background(), ListByPatientInput{
		TenantID:  tenantID,
		PatientID: patientID,
		Limit:     3,
		Cursor:    page.NextCursor,
	})
	require.NoError(t, err)
	assert.Len(t, rest.Assignments, 2)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, a := range append(page.Assignments, rest.Assignments...) {
		assert.False(t, seen[a.ID], "assignment %s served twice", a.ID)
		seen[a.ID] = true
	}
	assert.Len(t, seen, 5)
}
