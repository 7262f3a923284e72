package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/devforge-studio/devforge-api/models"
)

// Sentinel errors raised by the order lifecycle. Controllers map these onto
// response codes; ErrCriticalPersistence and ErrAggregateDrift mark the
// flagged money-moved-but-record-failed states that must reach the user as a
// "contact support" message and must never trigger a blind retry.
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotOrderOwner       = errors.New("order belongs to another client")
	ErrNothingPayable      = errors.New("no payment is currently due on this order")
	ErrChargeRequired      = errors.New("a confirmed gateway charge is required before a paid order can be created")
	ErrCriticalPersistence = errors.New("payment captured but the order record could not be written")
	ErrAggregateDrift      = errors.New("payment recorded in ledger but the order aggregate was not updated")
	ErrDuplicateCharge     = errors.New("this gateway charge has already been recorded")
	ErrTerminalStatus      = errors.New("order is in a terminal status")
	ErrInvalidStatus       = errors.New("unknown order status")
	ErrOrderNotCompleted   = errors.New("order is not completed yet")
	ErrAlreadyRated        = errors.New("order has already been rated")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

// VerifiedCharge carries the identifiers of a gateway charge whose signature
// has already been verified by the payment gateway adapter.
type VerifiedCharge struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Receipt          string
}

// CreateOrderInput is the checkout payload after pricing. TotalAmount and
// DiscountAmount are cents of the base currency; Charge must be set whenever
// TotalAmount > 0 because the charge is confirmed before anything persists.
type CreateOrderInput struct {
	Type           string
	ServiceID      *uint
	ProjectID      *uint
	Requirements   models.Requirements
	TotalAmount    int64
	DiscountAmount int64
	OfferCode      *string
	Charge         *VerifiedCharge
}

// OrderService owns the order state machine. It is the only component that
// mutates financial fields after creation.
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates an order service over the given database handle
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// PayableAmount derives how many cents the client may pay right now. The
// rule is authoritative and recomputed on every request, never stored:
//
//	pending                      -> 0 (no quote yet)
//	paid below deposit           -> deposit shortfall
//	deposit met, below total     -> balance shortfall
//	fully paid (total > 0)       -> 0
func PayableAmount(o *models.Order) int64 {
	if o.Status == models.StatusPending {
		return 0
	}
	if o.TotalAmount > 0 && o.AmountPaid >= o.TotalAmount {
		return 0
	}
	if o.AmountPaid < o.DepositAmount {
		return o.DepositAmount - o.AmountPaid
	}
	if o.AmountPaid < o.TotalAmount {
		return o.TotalAmount - o.AmountPaid
	}
	return 0
}

// initialStatus implements the creation matrix: paid service work starts at
// accepted, project purchases and free items are fulfilled on creation, and
// an unpriced service request waits for a quote.
func initialStatus(orderType string, totalAmount int64) string {
	if totalAmount > 0 {
		if orderType == models.OrderTypeService {
			return models.StatusAccepted
		}
		return models.StatusCompleted
	}
	if orderType == models.OrderTypeProject {
		return models.StatusCompleted
	}
	return models.StatusPending
}

// CreateOrder persists a new order for the client. For paid orders the
// gateway charge happens first and in.Charge proves it: the gateway is the
// source of truth for "money moved" and the record store is written only
// after funds are confirmed. The creation path records the charge fully (the
// ledger row and amount_paid on the new order) since the order row is new
// and no concurrent writer can race the aggregate yet.
//
// A persistence failure after a verified charge is returned as
// ErrCriticalPersistence and is never retried here.
func (s *OrderService) CreateOrder(clientID uint, in CreateOrderInput) (*models.Order, error) {
	if err := in.Requirements.Validate(in.Type); err != nil {
		return nil, err
	}
	switch in.Type {
	case models.OrderTypeService:
		if in.ServiceID == nil || in.ProjectID != nil {
			return nil, errors.New("service order requires exactly a service_id")
		}
	case models.OrderTypeProject:
		if in.ProjectID == nil || in.ServiceID != nil {
			return nil, errors.New("project order requires exactly a project_id")
		}
	default:
		return nil, fmt.Errorf("unknown order type %q", in.Type)
	}
	if in.TotalAmount > 0 && in.Charge == nil {
		return nil, ErrChargeRequired
	}
	if in.Charge != nil {
		if err := s.checkDuplicateCharge(in.Charge.GatewayPaymentID); err != nil {
			return nil, err
		}
	}

	order := models.Order{
		Type:             in.Type,
		ServiceID:        in.ServiceID,
		ProjectID:        in.ProjectID,
		Status:           initialStatus(in.Type, in.TotalAmount),
		TotalAmount:      in.TotalAmount,
		DiscountAmount:   in.DiscountAmount,
		AppliedOfferCode: in.OfferCode,
		Requirements:     in.Requirements,
		Deliverables:     models.URLList{},
		ClientID:         clientID,
	}
	if in.TotalAmount > 0 {
		order.AmountPaid = in.TotalAmount
	}

	if err := s.db.Create(&order).Error; err != nil {
		if in.Charge != nil {
			log.Error().Err(err).
				Str("gateway_payment_id", in.Charge.GatewayPaymentID).
				Str("receipt", in.Charge.Receipt).
				Int64("amount", in.TotalAmount).
				Msg("CRITICAL: charge captured but order row was not created")
			return nil, fmt.Errorf("persisting paid order: %w", ErrCriticalPersistence)
		}
		return nil, fmt.Errorf("persisting order: %w", err)
	}

	if in.TotalAmount > 0 {
		payment := models.Payment{
			OrderID:          order.ID,
			Amount:           in.TotalAmount,
			Purpose:          models.PaymentPurposeFull,
			GatewayOrderID:   in.Charge.GatewayOrderID,
			GatewayPaymentID: in.Charge.GatewayPaymentID,
			Receipt:          in.Charge.Receipt,
		}
		if err := s.db.Create(&payment).Error; err != nil {
			log.Error().Err(err).
				Uint("order_id", order.ID).
				Str("gateway_payment_id", in.Charge.GatewayPaymentID).
				Msg("CRITICAL: order created but ledger row was not written")
			return nil, fmt.Errorf("recording creation payment: %w", ErrCriticalPersistence)
		}
	}

	if in.Type == models.OrderTypeProject {
		// Purchase counter guards listing deletion; drift here is harmless
		// enough to log and move on.
		if err := s.db.Model(&models.Project{}).
			Where("id = ?", *in.ProjectID).
			UpdateColumn("purchases", gorm.Expr("purchases + 1")).Error; err != nil {
			log.Warn().Err(err).Uint("project_id", *in.ProjectID).Msg("failed to bump project purchase count")
		}
	}

	if err := s.db.Preload("Client").First(&order, order.ID).Error; err != nil {
		return nil, fmt.Errorf("loading created order: %w", err)
	}
	return &order, nil
}

// GetOrder loads one order with its client
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Client").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("loading order: %w", err)
	}
	return &order, nil
}

// ListOrdersForClient returns the client's orders, newest first
func (s *OrderService) ListOrdersForClient(clientID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.Where("client_id = ?", clientID).
		Preload("Client").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// ListAllOrders returns every order, newest first (staff console)
func (s *OrderService) ListAllOrders() ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.Preload("Client").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// IssueQuote sets the quoted total and deposit and moves the order to
// accepted unconditionally, even from pending. Callers are expected to
// validate deposit <= total before calling.
//
// There is deliberately no optimistic-concurrency check against a client
// payment in flight: the confirm path re-clamps against current gating, and
// the remaining window is an accepted limitation of the single-row store.
func (s *OrderService) IssueQuote(orderID uint, totalAmount, depositAmount int64) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if models.TerminalStatus(order.Status) {
		return nil, ErrTerminalStatus
	}

	if err := s.db.Model(order).Updates(map[string]interface{}{
		"total_amount":   totalAmount,
		"deposit_amount": depositAmount,
		"status":         models.StatusAccepted,
	}).Error; err != nil {
		return nil, fmt.Errorf("issuing quote: %w", err)
	}
	return s.GetOrder(orderID)
}

// RecordPayment appends a ledger entry and increments amount_paid. The store
// offers single-row atomicity only, so the ledger row is written first and
// the aggregate second; if the second step fails the ledger remains the
// truth and the drift is repairable via Reconcile. The requested amount is
// clamped to the currently payable shortfall. Status is never touched here;
// advancing fulfillment is a separate staff action.
func (s *OrderService) RecordPayment(orderID uint, amount int64, charge VerifiedCharge) (*models.Order, int64, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, 0, err
	}

	payable := PayableAmount(order)
	if payable == 0 {
		return nil, 0, ErrNothingPayable
	}
	if amount <= 0 || amount > payable {
		amount = payable
	}

	if err := s.checkDuplicateCharge(charge.GatewayPaymentID); err != nil {
		return nil, 0, err
	}

	purpose := models.PaymentPurposeBalance
	if order.AmountPaid < order.DepositAmount {
		purpose = models.PaymentPurposeDeposit
	}

	payment := models.Payment{
		OrderID:          orderID,
		Amount:           amount,
		Purpose:          purpose,
		GatewayOrderID:   charge.GatewayOrderID,
		GatewayPaymentID: charge.GatewayPaymentID,
		Receipt:          charge.Receipt,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, 0, fmt.Errorf("writing payment ledger entry: %w", err)
	}

	if err := s.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("amount_paid", gorm.Expr("amount_paid + ?", amount)).Error; err != nil {
		log.Error().Err(err).
			Uint("order_id", orderID).
			Int64("amount", amount).
			Str("gateway_payment_id", charge.GatewayPaymentID).
			Msg("CRITICAL: ledger entry written but amount_paid was not updated; reconcile required")
		return nil, 0, fmt.Errorf("updating amount_paid: %w", ErrAggregateDrift)
	}

	updated, err := s.GetOrder(orderID)
	if err != nil {
		return nil, 0, err
	}
	return updated, amount, nil
}

// checkDuplicateCharge rejects a gateway payment id that already has a
// ledger row. One verified charge credits the ledger exactly once: the
// accepted double-charge window covers a retrying user creating a second
// charge, never a replayed callback crediting the same charge twice. The
// unique index on gateway_payment_id backstops this check.
func (s *OrderService) checkDuplicateCharge(gatewayPaymentID string) error {
	var existing models.Payment
	if err := s.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&existing).Error; err == nil {
		return ErrDuplicateCharge
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking for duplicate charge: %w", err)
	}
	return nil
}

// Reconcile recomputes amount_paid as the sum of the order's ledger entries
// and corrects any drift left by a failed aggregate update. Exposed to staff
// as an on-demand operational tool.
func (s *OrderService) Reconcile(orderID uint) (previous, corrected int64, err error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return 0, 0, err
	}

	var ledgerSum int64
	if err := s.db.Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&ledgerSum).Error; err != nil {
		return 0, 0, fmt.Errorf("summing ledger: %w", err)
	}

	if ledgerSum != order.AmountPaid {
		if err := s.db.Model(&models.Order{}).
			Where("id = ?", orderID).
			UpdateColumn("amount_paid", ledgerSum).Error; err != nil {
			return 0, 0, fmt.Errorf("correcting amount_paid: %w", err)
		}
		log.Info().
			Uint("order_id", orderID).
			Int64("previous", order.AmountPaid).
			Int64("corrected", ledgerSum).
			Msg("reconciled amount_paid from payment ledger")
	}
	return order.AmountPaid, ledgerSum, nil
}

// ChangeStatus sets the order status. Staff may move status backward or
// sideways; only completed and cancelled are terminal.
func (s *OrderService) ChangeStatus(orderID uint, status string) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if models.TerminalStatus(order.Status) {
		return nil, ErrTerminalStatus
	}

	if err := s.db.Model(order).UpdateColumn("status", status).Error; err != nil {
		return nil, fmt.Errorf("changing status: %w", err)
	}
	return s.GetOrder(orderID)
}

// AttachDeliverable appends an uploaded file URL to the order's deliverables
func (s *OrderService) AttachDeliverable(orderID uint, url string) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	deliverables := append(order.Deliverables, url)
	if err := s.db.Model(order).UpdateColumn("deliverables", deliverables).Error; err != nil {
		return nil, fmt.Errorf("attaching deliverable: %w", err)
	}
	return s.GetOrder(orderID)
}

// Rate records the client's one-time rating on a completed order
func (s *OrderService) Rate(clientID, orderID uint, rating int, review string) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, ErrNotOrderOwner
	}
	if order.Status != models.StatusCompleted {
		return nil, ErrOrderNotCompleted
	}
	if order.Rating != 0 {
		return nil, ErrAlreadyRated
	}

	if err := s.db.Model(order).Updates(map[string]interface{}{
		"rating": rating,
		"review": review,
	}).Error; err != nil {
		return nil, fmt.Errorf("saving rating: %w", err)
	}
	return s.GetOrder(orderID)
}

// ListPayments returns the order's ledger entries, oldest first
func (s *OrderService) ListPayments(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return payments, nil
}
