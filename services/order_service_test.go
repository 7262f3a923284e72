package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/devforge-studio/devforge-api/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Project{},
		&models.Order{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createClient(t *testing.T, db *gorm.DB) models.User {
	user := models.User{Auth0ID: "auth0|client", Name: "Client", Email: "client@example.com", Role: models.RoleClient}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return user
}

func serviceRequirements() models.Requirements {
	return models.Requirements{
		Service: &models.ServiceRequirements{Summary: "Build a booking system"},
	}
}

func projectRequirements() models.Requirements {
	return models.Requirements{
		Project: &models.ProjectRequirements{License: "single-site"},
	}
}

func ledgerSum(t *testing.T, db *gorm.DB, orderID uint) int64 {
	var sum int64
	if err := db.Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		t.Fatalf("Failed to sum ledger: %v", err)
	}
	return sum
}

func TestPayableAmountGating(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		total   int64
		deposit int64
		paid    int64
		want    int64
	}{
		{"pending order has no quote, nothing payable", models.StatusPending, 50000, 15000, 0, 0},
		{"quoted order owes the deposit first", models.StatusAccepted, 50000, 15000, 0, 15000},
		{"partial deposit owes the deposit shortfall", models.StatusAccepted, 50000, 15000, 5000, 10000},
		{"deposit met owes the balance", models.StatusAccepted, 50000, 15000, 15000, 35000},
		{"partial balance owes the balance shortfall", models.StatusInProgress, 50000, 15000, 40000, 10000},
		{"fully paid owes nothing", models.StatusMockupReady, 50000, 15000, 50000, 0},
		{"free completed item owes nothing", models.StatusCompleted, 0, 0, 0, 0},
		{"gating follows status even when moved back to pending", models.StatusPending, 50000, 15000, 15000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &models.Order{
				Status:        tt.status,
				TotalAmount:   tt.total,
				DepositAmount: tt.deposit,
				AmountPaid:    tt.paid,
			}
			assert.Equal(t, tt.want, PayableAmount(order))
		})
	}
}

func TestCreateUnquotedServiceOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, int64(0), order.TotalAmount)
	assert.Equal(t, int64(0), order.AmountPaid)
	assert.Equal(t, int64(0), ledgerSum(t, db, order.ID))
}

func TestCreateFreeProjectOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	project := models.Project{Title: "Starter template", Price: 0, FileURL: "https://files.example.com/starter.zip"}
	db.Create(&project)

	svc := NewOrderService(db)
	order, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeProject,
		ProjectID:    &project.ID,
		Requirements: projectRequirements(),
	})

	// Free item: fulfilled on creation, no gateway contact, no ledger entry
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, order.Status)
	assert.Equal(t, int64(0), order.TotalAmount)
	assert.Equal(t, int64(0), ledgerSum(t, db, order.ID))
}

func TestCreatePaidProjectOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	project := models.Project{Title: "SaaS boilerplate", Price: 40000, FileURL: "https://files.example.com/saas.zip"}
	db.Create(&project)

	svc := NewOrderService(db)
	order, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeProject,
		ProjectID:    &project.ID,
		Requirements: projectRequirements(),
		TotalAmount:  40000,
		Charge: &VerifiedCharge{
			GatewayOrderID:   "gw_order_1",
			GatewayPaymentID: "gw_pay_1",
			Receipt:          "rcpt_1",
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, order.Status)
	assert.Equal(t, int64(40000), order.AmountPaid)

	// A persisted paid order implies a ledger entry immediately after creation
	var payments []models.Payment
	db.Where("order_id = ?", order.ID).Find(&payments)
	assert.Len(t, payments, 1)
	assert.Equal(t, int64(40000), payments[0].Amount)
	assert.Equal(t, models.PaymentPurposeFull, payments[0].Purpose)
	assert.Equal(t, "gw_pay_1", payments[0].GatewayPaymentID)

	// Purchase counter moved, guarding listing deletion
	var reloaded models.Project
	db.First(&reloaded, project.ID)
	assert.Equal(t, 1, reloaded.Purchases)
}

func TestCreatePaidOrderRequiresCharge(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	project := models.Project{Title: "SaaS boilerplate", Price: 40000, FileURL: "https://files.example.com/saas.zip"}
	db.Create(&project)

	svc := NewOrderService(db)
	_, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeProject,
		ProjectID:    &project.ID,
		Requirements: projectRequirements(),
		TotalAmount:  40000,
	})

	assert.ErrorIs(t, err, ErrChargeRequired)

	// Nothing persisted without a confirmed charge
	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateOrderRequirementsMustMatchType(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	_, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: projectRequirements(),
	})
	assert.Error(t, err)
}

func TestCreatePaidOrderPersistenceFailureIsFlagged(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	project := models.Project{Title: "SaaS boilerplate", Price: 40000, FileURL: "https://files.example.com/saas.zip"}
	db.Create(&project)

	// Charge confirmed, then the record store fails: the flagged critical
	// path, surfaced explicitly and never retried.
	if err := db.Migrator().DropTable(&models.Order{}); err != nil {
		t.Fatalf("Failed to drop orders table: %v", err)
	}

	svc := NewOrderService(db)
	_, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeProject,
		ProjectID:    &project.ID,
		Requirements: projectRequirements(),
		TotalAmount:  40000,
		Charge: &VerifiedCharge{
			GatewayOrderID:   "gw_order_1",
			GatewayPaymentID: "gw_pay_1",
			Receipt:          "rcpt_1",
		},
	})

	assert.ErrorIs(t, err, ErrCriticalPersistence)
}

func TestQuoteThenDepositThenBalance(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, err := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, int64(0), PayableAmount(order))

	// Staff quotes 500.00 with a 150.00 deposit: status becomes accepted
	order, err = svc.IssueQuote(order.ID, 50000, 15000)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, order.Status)
	assert.Equal(t, int64(15000), PayableAmount(order))

	// Client attempts to pay the full 500.00: clamped to the deposit shortfall
	order, recorded, err := svc.RecordPayment(order.ID, 50000, VerifiedCharge{
		GatewayOrderID: "gw_order_1", GatewayPaymentID: "gw_pay_1", Receipt: "rcpt_1",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(15000), recorded)
	assert.Equal(t, int64(15000), order.AmountPaid)
	assert.Equal(t, int64(15000), ledgerSum(t, db, order.ID))
	assert.Equal(t, int64(35000), PayableAmount(order))

	// Paying the balance completes the money side
	order, recorded, err = svc.RecordPayment(order.ID, 35000, VerifiedCharge{
		GatewayOrderID: "gw_order_2", GatewayPaymentID: "gw_pay_2", Receipt: "rcpt_2",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(35000), recorded)
	assert.Equal(t, int64(50000), order.AmountPaid)
	assert.Equal(t, int64(50000), ledgerSum(t, db, order.ID))
	assert.Equal(t, int64(0), PayableAmount(order))

	// Status was never advanced by payments
	assert.Equal(t, models.StatusAccepted, order.Status)

	// Ledger purposes reflect the deposit-then-balance split
	var payments []models.Payment
	db.Where("order_id = ?", order.ID).Order("created_at ASC").Find(&payments)
	assert.Len(t, payments, 2)
	assert.Equal(t, models.PaymentPurposeDeposit, payments[0].Purpose)
	assert.Equal(t, models.PaymentPurposeBalance, payments[1].Purpose)
}

func TestRecordPaymentRejectsWhenNothingPayable(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, _ := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})

	// Pending: no quote yet, nothing payable
	_, _, err := svc.RecordPayment(order.ID, 10000, VerifiedCharge{GatewayOrderID: "o", GatewayPaymentID: "p"})
	assert.ErrorIs(t, err, ErrNothingPayable)

	// Fully paid: nothing payable either
	order, _ = svc.IssueQuote(order.ID, 20000, 0)
	_, _, err = svc.RecordPayment(order.ID, 20000, VerifiedCharge{GatewayOrderID: "o1", GatewayPaymentID: "p1"})
	assert.NoError(t, err)
	_, _, err = svc.RecordPayment(order.ID, 1, VerifiedCharge{GatewayOrderID: "o2", GatewayPaymentID: "p2"})
	assert.ErrorIs(t, err, ErrNothingPayable)
}

func TestRecordPaymentRejectsDuplicateCharge(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, _ := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})
	order, _ = svc.IssueQuote(order.ID, 50000, 15000)

	charge := VerifiedCharge{GatewayOrderID: "gw_order_1", GatewayPaymentID: "gw_pay_1", Receipt: "rcpt_1"}
	_, _, err := svc.RecordPayment(order.ID, 15000, charge)
	assert.NoError(t, err)

	// One charge credits the ledger exactly once
	_, _, err = svc.RecordPayment(order.ID, 15000, charge)
	assert.ErrorIs(t, err, ErrDuplicateCharge)

	reloaded, _ := svc.GetOrder(order.ID)
	assert.Equal(t, int64(15000), reloaded.AmountPaid)
	assert.Equal(t, int64(15000), ledgerSum(t, db, order.ID))
}

func TestCreateOrderRejectsDuplicateCharge(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	project := models.Project{Title: "SaaS boilerplate", Price: 40000, FileURL: "https://files.example.com/saas.zip"}
	db.Create(&project)

	svc := NewOrderService(db)
	charge := &VerifiedCharge{GatewayOrderID: "gw_order_1", GatewayPaymentID: "gw_pay_1", Receipt: "rcpt_1"}
	in := CreateOrderInput{
		Type:         models.OrderTypeProject,
		ProjectID:    &project.ID,
		Requirements: projectRequirements(),
		TotalAmount:  40000,
		Charge:       charge,
	}

	_, err := svc.CreateOrder(client.ID, in)
	assert.NoError(t, err)

	// The same charge cannot place a second order
	_, err = svc.CreateOrder(client.ID, in)
	assert.ErrorIs(t, err, ErrDuplicateCharge)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReconcileRepairsAggregateDrift(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, _ := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})
	order, _ = svc.IssueQuote(order.ID, 50000, 15000)
	_, _, err := svc.RecordPayment(order.ID, 15000, VerifiedCharge{GatewayOrderID: "o1", GatewayPaymentID: "p1"})
	assert.NoError(t, err)

	// Simulate the ledger-written-but-aggregate-missed failure mode
	err = db.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumn("amount_paid", 0).Error
	assert.NoError(t, err)

	previous, corrected, err := svc.Reconcile(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), previous)
	assert.Equal(t, int64(15000), corrected)

	reloaded, _ := svc.GetOrder(order.ID)
	assert.Equal(t, int64(15000), reloaded.AmountPaid)

	// Reconciling a consistent order is a no-op
	previous, corrected, err = svc.Reconcile(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, previous, corrected)
}

func TestChangeStatus(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, _ := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})

	// Staff may move status freely, including backward
	order, err := svc.ChangeStatus(order.ID, models.StatusInProgress)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, order.Status)

	order, err = svc.ChangeStatus(order.ID, models.StatusAccepted)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, order.Status)

	_, err = svc.ChangeStatus(order.ID, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// Terminal statuses reject further changes
	order, err = svc.ChangeStatus(order.ID, models.StatusCancelled)
	assert.NoError(t, err)
	_, err = svc.ChangeStatus(order.ID, models.StatusAccepted)
	assert.ErrorIs(t, err, ErrTerminalStatus)
	_, err = svc.IssueQuote(order.ID, 10000, 0)
	assert.ErrorIs(t, err, ErrTerminalStatus)
}

func TestRateOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	other := models.User{Auth0ID: "auth0|other", Name: "Other", Email: "other@example.com", Role: models.RoleClient}
	db.Create(&other)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, _ := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})

	_, err := svc.Rate(client.ID, order.ID, 5, "great work")
	assert.ErrorIs(t, err, ErrOrderNotCompleted)

	order, _ = svc.ChangeStatus(order.ID, models.StatusCompleted)

	_, err = svc.Rate(other.ID, order.ID, 5, "not mine")
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	_, err = svc.Rate(client.ID, order.ID, 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)

	order, err = svc.Rate(client.ID, order.ID, 4, "solid delivery")
	assert.NoError(t, err)
	assert.Equal(t, 4, order.Rating)

	// First submission is final
	_, err = svc.Rate(client.ID, order.ID, 5, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyRated)
}

func TestAttachDeliverable(t *testing.T) {
	db := setupOrderTestDB(t)
	client := createClient(t, db)
	catalogService := models.Service{Title: "Custom web app", Active: true}
	db.Create(&catalogService)

	svc := NewOrderService(db)
	order, _ := svc.CreateOrder(client.ID, CreateOrderInput{
		Type:         models.OrderTypeService,
		ServiceID:    &catalogService.ID,
		Requirements: serviceRequirements(),
	})

	order, err := svc.AttachDeliverable(order.ID, "https://files.example.com/mockup-v1.pdf")
	assert.NoError(t, err)
	order, err = svc.AttachDeliverable(order.ID, "https://files.example.com/final.zip")
	assert.NoError(t, err)

	assert.Equal(t, models.URLList{
		"https://files.example.com/mockup-v1.pdf",
		"https://files.example.com/final.zip",
	}, order.Deliverables)
}
