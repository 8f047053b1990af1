package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/domain/customer"
	"github.com/tably/ordercore/internal/domain/discount"
	"github.com/tably/ordercore/internal/domain/menu"
	"github.com/tably/ordercore/internal/domain/tenant"
	"github.com/tably/ordercore/internal/event"
)

// DiscountEvaluator prices an order context against the active rule set.
type DiscountEvaluator interface {
	Evaluate(c discount.Context) discount.Result
}

// LineInput is one requested order line. PriceAtOrder overrides the
// current menu price when set, which keeps idempotent retries from
// repricing against a menu that changed in between.
type LineInput struct {
	MenuItemID          string
	Quantity            int
	PriceAtOrder        *decimal.Decimal
	SpecialInstructions string
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	TableNumber    int
	CustomerID     string
	Lines          []LineInput
	PaymentMethod  string
	DeliveryCharge decimal.Decimal
	Notes          string
}

// Service orchestrates order creation and status transitions, and emits
// the lifecycle events that drive inventory, payment, and notification
// side effects.
type Service struct {
	tenants   tenant.Repository
	menu      menu.Repository
	customers customer.Repository
	orders    Repository
	discounts DiscountEvaluator
	publisher event.Publisher

	lg  *zap.Logger
	now func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	tenants tenant.Repository,
	menuRepo menu.Repository,
	customers customer.Repository,
	orders Repository,
	discounts DiscountEvaluator,
	publisher event.Publisher,
	lg *zap.Logger,
) *Service {
	return &Service{
		tenants:   tenants,
		menu:      menuRepo,
		customers: customers,
		orders:    orders,
		discounts: discounts,
		publisher: publisher,
		lg:        lg,
		now:       time.Now,
	}
}

// Create validates the request, prices it through the discount engine,
// persists the order with its lines atomically, and then emits
// order.created, inventory.reserved, and payment.requested in that
// order. Validation failures abort before anything is persisted; no
// events are emitted unless the order row exists.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{MenuItemID: line.MenuItemID}
		}
	}

	ok, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "check tenant")
	}
	if !ok {
		return nil, ErrUnknownTenant
	}

	items, err := s.fetchMenuItems(ctx, tenantID, req.Lines)
	if err != nil {
		return nil, err
	}

	cust, err := s.resolveCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Order{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		TableNumber: req.TableNumber,
		CustomerID:  cust.ID,
		Status:      StatusPending,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	subtotal := decimal.Zero
	for _, line := range req.Lines {
		item := items[line.MenuItemID]
		unitPrice := item.Price
		if line.PriceAtOrder != nil {
			unitPrice = *line.PriceAtOrder
		}
		lineSubtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineSubtotal)

		o.Lines = append(o.Lines, Line{
			ID:              uuid.New().String(),
			MenuItemID:      line.MenuItemID,
			Quantity:        line.Quantity,
			UnitPrice:       unitPrice,
			Subtotal:        lineSubtotal,
			SpecialRequests: line.SpecialInstructions,
		})
	}

	result := s.discounts.Evaluate(discount.Context{
		TenantID:      tenantID,
		OrderID:       o.ID,
		CustomerID:    cust.ID,
		CustomerType:  discount.CustomerType(cust.Type),
		Items:         discountItems(o.Lines),
		TotalAmount:   subtotal,
		OrderTime:     now,
		PaymentMethod: req.PaymentMethod,
	})

	o.Subtotal = subtotal
	o.DiscountAmount = result.TotalDiscountAmount
	if applied := result.AppliedDiscount; applied != nil {
		o.DiscountRuleID = applied.RuleID
		o.DiscountReason = applied.RuleName
	}
	o.TaxAmount = subtotal.Mul(TaxRate)
	o.DeliveryCharge = req.DeliveryCharge
	o.Total = subtotal.Sub(o.DiscountAmount).Add(o.TaxAmount).Add(o.DeliveryCharge)

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.publishCreated(ctx, o, req.PaymentMethod); err != nil {
		// The order row is already the source of truth; surface the
		// publish failure so the caller can reconcile instead of
		// dropping it.
		return o, errors.Wrap(err, "publish order events")
	}

	s.lg.Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("tenant_id", tenantID),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}

func (s *Service) fetchMenuItems(ctx context.Context, tenantID string, lines []LineInput) (map[string]menu.Item, error) {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.MenuItemID
	}

	fetched, err := s.menu.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}

	items := make(map[string]menu.Item, len(fetched))
	for _, item := range fetched {
		items[item.ID] = item
	}
	for _, line := range lines {
		if _, ok := items[line.MenuItemID]; !ok {
			return nil, &UnknownMenuItemError{MenuItemID: line.MenuItemID}
		}
	}
	return items, nil
}

// resolveCustomer validates an existing customer or creates a walk-in
// record for anonymous orders.
func (s *Service) resolveCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	if id != "" {
		cust, err := s.customers.Get(ctx, id)
		if err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				return nil, ErrUnknownCustomer
			}
			return nil, errors.Wrap(err, "get customer")
		}
		return cust, nil
	}

	walkIn := &customer.Customer{
		ID:          uuid.New().String(),
		PhoneNumber: fmt.Sprintf("walk-in-%d", s.now().UnixMilli()),
		Name:        "Walk-in Customer",
		Type:        customer.TypeNew,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.customers.Create(ctx, walkIn); err != nil {
		return nil, errors.Wrap(err, "create walk-in customer")
	}
	return walkIn, nil
}

func (s *Service) publishCreated(ctx context.Context, o *Order, method string) error {
	key := event.Key(o.TenantID, o.ID)

	if err := s.publisher.Publish(ctx, event.TopicOrderCreated, key, event.OrderCreated{
		OrderID:     o.ID,
		TenantID:    o.TenantID,
		TableNumber: o.TableNumber,
		CustomerID:  o.CustomerID,
		Total:       o.Total,
		ItemCount:   o.ItemCount(),
		Timestamp:   o.CreatedAt,
	}); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, event.TopicInventoryReserved, key, event.InventoryReserved{
		OrderID:   o.ID,
		TenantID:  o.TenantID,
		Items:     reservedItems(o.Lines),
		Timestamp: o.CreatedAt,
	}); err != nil {
		return err
	}

	if method == "" {
		method = "CASH"
	}
	return s.publisher.Publish(ctx, event.TopicPaymentRequested, key, event.PaymentEvent{
		OrderID:   o.ID,
		TenantID:  o.TenantID,
		Amount:    o.Total,
		Method:    method,
		Timestamp: o.CreatedAt,
	})
}

// Get loads a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List returns a page of a tenant's orders and the total match count.
func (s *Service) List(ctx context.Context, tenantID string, f ListFilter) ([]Order, int, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return s.orders.List(ctx, tenantID, f)
}

// UpdateStatus advances an order through the state machine and emits the
// resulting events. Publish failures after the persist are logged, not
// rolled back: the persisted status is the source of truth, delivery is
// at-least-once, and consumers are expected to be idempotent.
func (s *Service) UpdateStatus(ctx context.Context, orderID, tenantID string, to Status, notes string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.TenantID != tenantID {
		return nil, &TenantMismatchError{OrderID: orderID, TenantID: tenantID}
	}

	oldStatus := o.Status
	effects, err := o.Transition(to)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, notes); err != nil {
		return nil, errors.Wrap(err, "persist status")
	}
	o.Notes = notes
	o.UpdatedAt = s.now().UTC()

	key := event.Key(tenantID, orderID)
	for _, effect := range effects {
		var publishErr error
		switch effect {
		case EmitStatusChanged:
			publishErr = s.publisher.Publish(ctx, event.TopicOrderStatusChanged, key, event.OrderStatusChanged{
				OrderID:   orderID,
				TenantID:  tenantID,
				OldStatus: string(oldStatus),
				NewStatus: string(o.Status),
				Notes:     notes,
				Timestamp: o.UpdatedAt,
			})
		case EmitCompleted:
			publishErr = s.publisher.Publish(ctx, event.TopicOrderCompleted, key, event.OrderCompleted{
				OrderID:     orderID,
				TenantID:    tenantID,
				Status:      string(o.Status),
				TotalAmount: o.Total,
				Items:       reservedItems(o.Lines),
				Timestamp:   o.UpdatedAt,
			})
		}
		if publishErr != nil {
			s.lg.Error("Failed to publish order event",
				zap.String("order_id", orderID),
				zap.String("tenant_id", tenantID),
				zap.Error(publishErr),
			)
		}
	}

	s.lg.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(o.Status)),
	)
	return o, nil
}

// Cancel transitions the order to CANCELLED through the ordinary state
// machine path.
func (s *Service) Cancel(ctx context.Context, orderID, tenantID, reason string) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, tenantID, StatusCancelled, reason)
}

func discountItems(lines []Line) []discount.LineItem {
	items := make([]discount.LineItem, len(lines))
	for i, line := range lines {
		items[i] = discount.LineItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
		}
	}
	return items
}

func reservedItems(lines []Line) []event.ReservedItem {
	items := make([]event.ReservedItem, len(lines))
	for i, line := range lines {
		items[i] = event.ReservedItem{
			InventoryItemID: line.MenuItemID,
			Quantity:        line.Quantity,
		}
	}
	return items
}
