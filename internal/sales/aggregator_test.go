package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

func newTestAggregator(t *testing.T) (Aggregator, *db.Client) {
	t.Helper()
	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(&models.Sale{}, &models.DeviceAssignment{}, &models.PaymentRecord{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	agg, err := NewAggregator(NewRepository(conn), decimal.NewFromFloat(0.01))
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	return agg, db.FromGorm(conn)
}

func seedSale(t *testing.T, client *db.Client, agg Aggregator, tenantID uuid.UUID) *models.Sale {
	t.Helper()
	var sale *models.Sale
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		created, err := agg.Create(context.Background(), tx, CreateSaleInput{
			TenantID:  tenantID,
			BranchID:  uuid.New(),
			PatientID: uuid.New(),
		})
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	require.NoError(t, err)
	return sale
}

func seedAssignment(t *testing.T, client *db.Client, sale *models.Sale, ear enums.EarSide, status enums.AssignmentStatus, delivery enums.DeliveryStatus) *models.DeviceAssignment {
	t.Helper()
	assignment := &models.DeviceAssignment{
		TenantID:       sale.TenantID,
		BranchID:       sale.BranchID,
		PatientID:      sale.PatientID,
		SaleID:         sale.ID,
		Ear:            ear,
		ListPrice:      decimal.NewFromInt(1000),
		DiscountType:   enums.DiscountTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		SGKSupport:     decimal.NewFromInt(300),
		SalePrice:      decimal.NewFromInt(900),
		NetPayable:     decimal.NewFromInt(600),
		DeliveryStatus: delivery,
		Status:         status,
	}
	require.NoError(t, client.DB().Create(assignment).Error)
	return assignment
}

func seedPayment(t *testing.T, client *db.Client, sale *models.Sale, amount int64, status enums.PaymentStatus) *models.PaymentRecord {
	t.Helper()
	payment := &models.PaymentRecord{
		TenantID: sale.TenantID,
		SaleID:   sale.ID,
		Amount:   decimal.NewFromInt(amount),
		Method:   "cash",
		Status:   status,
		ActorID:  uuid.New(),
		PaidAt:   time.Now().UTC(),
	}
	require.NoError(t, client.DB().Create(payment).Error)
	return payment
}

func sync(t *testing.T, client *db.Client, agg Aggregator, tenantID, saleID uuid.UUID) (*models.Sale, error) {
	t.Helper()
	var sale *models.Sale
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		synced, err := agg.Sync(context.Background(), tx, tenantID, saleID)
		if err != nil {
			return err
		}
		sale = synced
		return nil
	})
	return sale, err
}

func TestSyncAggregatesBilateralAssignment(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideBoth, enums.AssignmentStatusActive, enums.DeliveryStatusPending)

	synced, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)

	assert.True(t, synced.ListPriceTotal.Equal(decimal.NewFromInt(2000)), "list %s", synced.ListPriceTotal)
	assert.True(t, synced.DiscountAmount.Equal(decimal.NewFromInt(200)), "discount %s", synced.DiscountAmount)
	assert.True(t, synced.SGKCoverage.Equal(decimal.NewFromInt(600)), "coverage %s", synced.SGKCoverage)
	assert.True(t, synced.FinalAmount.Equal(decimal.NewFromInt(1200)), "final %s", synced.FinalAmount)
	assert.True(t, synced.PaidAmount.IsZero())
	assert.Equal(t, enums.SaleStatusPending, synced.Status)
}

func TestSyncDerivesPaymentStatus(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideLeft, enums.AssignmentStatusActive, enums.DeliveryStatusPending)

	// Nothing paid yet.
	synced, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPending, synced.Status)

	// Partially paid.
	seedPayment(t, client, sale, 200, enums.PaymentStatusActive)
	synced, err = sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPartial, synced.Status)
	assert.True(t, synced.PaidAmount.Equal(decimal.NewFromInt(200)))

	// Fully paid but not delivered.
	seedPayment(t, client, sale, 400, enums.PaymentStatusActive)
	synced, err = sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPaid, synced.Status)
}

func TestSyncIgnoresVoidPayments(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideLeft, enums.AssignmentStatusActive, enums.DeliveryStatusPending)
	seedPayment(t, client, sale, 600, enums.PaymentStatusVoid)

	synced, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.True(t, synced.PaidAmount.IsZero())
	assert.Equal(t, enums.SaleStatusPending, synced.Status)
}

func TestSyncCompletedWhenDeliveredAndPaid(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideLeft, enums.AssignmentStatusActive, enums.DeliveryStatusDelivered)
	seedPayment(t, client, sale, 600, enums.PaymentStatusActive)

	synced, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCompleted, synced.Status)
}

func TestSyncExcludesCancelledAssignments(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideLeft, enums.AssignmentStatusActive, enums.DeliveryStatusPending)
	seedAssignment(t, client, sale, enums.EarSideRight, enums.AssignmentStatusCancelled, enums.DeliveryStatusPending)

	synced, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.True(t, synced.FinalAmount.Equal(decimal.NewFromInt(600)), "final %s", synced.FinalAmount)
}

func TestSyncCancelledWhenNoActiveAssignmentsRemain(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideLeft, enums.AssignmentStatusCancelled, enums.DeliveryStatusPending)

	synced, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCancelled, synced.Status)
	assert.True(t, synced.FinalAmount.IsZero())
}

func TestSyncIsIdempotent(t *testing.T) {
	agg, client := newTestAggregator(t)
	tenantID := uuid.New()
	sale := seedSale(t, client, agg, tenantID)
	seedAssignment(t, client, sale, enums.EarSideBoth, enums.AssignmentStatusActive, enums.DeliveryStatusPending)
	seedPayment(t, client, sale, 500, enums.PaymentStatusActive)

	first, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)
	second, err := sync(t, client, agg, tenantID, sale.ID)
	require.NoError(t, err)

	assert.True(t, first.ListPriceTotal.Equal(second.ListPriceTotal))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	assert.True(t, first.SGKCoverage.Equal(second.SGKCoverage))
	assert.True(t, first.FinalAmount.Equal(second.FinalAmount))
	assert.True(t, first.PaidAmount.Equal(second.PaidAmount))
	assert.Equal(t, first.Status, second.Status)
}

func TestSyncIsTenantScoped(t *testing.T) {
	agg, client := newTestAggregator(t)
	sale := seedSale(t, client, agg, uuid.New())

	_, err := sync(t, client, agg, uuid.New(), sale.ID)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}
