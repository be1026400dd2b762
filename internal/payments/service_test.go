package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, sales.Aggregator, *db.Client) {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(&models.Sale{}, &models.DeviceAssignment{}, &models.PaymentRecord{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := db.FromGorm(conn)
	aggregator, err := sales.NewAggregator(sales.NewRepository(conn), decimal.NewFromFloat(0.01))
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	cfg := config.Config{
		Pricing: config.PricingConfig{DefaultScheme: "standard", Tolerance: "0.01"},
		Stock:   config.StockConfig{ConflictRetries: 3},
	}
	svc, err := NewService(client, NewRepository(conn), aggregator, cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, aggregator, client
}

// seedSaleWithBalance creates a sale whose final amount is the given value.
func seedSaleWithBalance(t *testing.T, client *db.Client, aggregator sales.Aggregator, tenantID uuid.UUID, netPayable int64) *models.Sale {
	t.Helper()
	ctx := context.Background()
	var sale *models.Sale
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := aggregator.Create(ctx, tx, sales.CreateSaleInput{
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

	assignment := &models.DeviceAssignment{
		TenantID:   sale.TenantID,
		BranchID:   sale.BranchID,
		PatientID:  sale.PatientID,
		SaleID:     sale.ID,
		Ear:        enums.EarSideLeft,
		ListPrice:  decimal.NewFromInt(netPayable),
		SalePrice:  decimal.NewFromInt(netPayable),
		NetPayable: decimal.NewFromInt(netPayable),
		Status:     enums.AssignmentStatusActive,
	}
	require.NoError(t, client.DB().Create(assignment).Error)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		synced, err := aggregator.Sync(ctx, tx, tenantID, sale.ID)
		if err != nil {
			return err
		}
		sale = synced
		return nil
	})
	require.NoError(t, err)
	return sale
}

func TestRecordPaymentSyncsSale(t *testing.T) {
	svc, agg, client := newTestService(t)
	tenantID := uuid.New()
	sale := seedSaleWithBalance(t, client, agg, tenantID, 600)

	result, err := svc.Record(context.Background(), RecordInput{
		TenantID: tenantID,
		SaleID:   sale.ID,
		Amount:   decimal.NewFromInt(200),
		Method:   "cash",
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, result.Sale.PaidAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, enums.SaleStatusPartial, result.Sale.Status)

	result, err = svc.Record(context.Background(), RecordInput{
		TenantID: tenantID,
		SaleID:   sale.ID,
		Amount:   decimal.NewFromInt(400),
		Method:   "card",
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, result.Sale.PaidAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, enums.SaleStatusPaid, result.Sale.Status)
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	svc, agg, client := newTestService(t)
	tenantID := uuid.New()
	sale := seedSaleWithBalance(t, client, agg, tenantID, 600)

	_, err := svc.Record(context.Background(), RecordInput{
		TenantID: tenantID,
		SaleID:   sale.ID,
		Amount:   decimal.NewFromInt(601),
		ActorID:  uuid.New(),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestRecordPaymentValidatesAmount(t *testing.T) {
	svc, agg, client := newTestService(t)
	tenantID := uuid.New()
	sale := seedSaleWithBalance(t, client, agg, tenantID, 600)

	_, err := svc.Record(context.Background(), RecordInput{
		TenantID: tenantID,
		SaleID:   sale.ID,
		Amount:   decimal.Zero,
		ActorID:  uuid.New(),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestRecordPaymentIsTenantScoped(t *testing.T) {
	svc, agg, client := newTestService(t)
	sale := seedSaleWithBalance(t, client, agg, uuid.New(), 600)

	_, err := svc.Record(context.Background(), RecordInput{
		TenantID: uuid.New(),
		SaleID:   sale.ID,
		Amount:   decimal.NewFromInt(100),
		ActorID:  uuid.New(),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestVoidPaymentRestoresBalance(t *testing.T) {
	svc, agg, client := newTestService(t)
	tenantID := uuid.New()
	sale := seedSaleWithBalance(t, client, agg, tenantID, 600)

	recorded, err := svc.Record(context.Background(), RecordInput{
		TenantID: tenantID,
		SaleID:   sale.ID,
		Amount:   decimal.NewFromInt(600),
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPaid, recorded.Sale.Status)

	synced, err := svc.Void(context.Background(), VoidInput{
		TenantID:  tenantID,
		PaymentID: recorded.Payment.ID,
		ActorID:   uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, synced.PaidAmount.IsZero())
	assert.Equal(t, enums.SaleStatusPending, synced.Status)

	// Voiding twice is a state conflict.
	_, err = svc.Void(context.Background(), VoidInput{
		TenantID:  tenantID,
		PaymentID: recorded.Payment.ID,
		ActorID:   uuid.New(),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeStateConflict, coded.Code())
}
