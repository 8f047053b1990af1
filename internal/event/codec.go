package event

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Consumers decode payloads with jx so that unknown fields from newer
// producers are skipped instead of failing the message.

// DecodeOrderCompleted parses an order.completed payload.
func DecodeOrderCompleted(data []byte) (OrderCompleted, error) {
	var out OrderCompleted
	d := jx.DecodeBytes(data)

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderId":
			return decodeString(d, &out.OrderID)
		case "tenantId":
			return decodeString(d, &out.TenantID)
		case "status":
			return decodeString(d, &out.Status)
		case "totalAmount":
			return decodeDecimal(d, &out.TotalAmount)
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeReservedItem(d)
				if err != nil {
					return err
				}
				out.Items = append(out.Items, item)
				return nil
			})
		case "timestamp":
			return decodeTime(d, &out.Timestamp)
		default:
			return d.Skip()
		}
	}); err != nil {
		return OrderCompleted{}, errors.Wrap(err, "decode order.completed")
	}

	if out.OrderID == "" {
		return OrderCompleted{}, errors.New("order.completed: orderId is required")
	}
	return out, nil
}

// DecodePaymentEvent parses any payment.* payload.
func DecodePaymentEvent(data []byte) (PaymentEvent, error) {
	var out PaymentEvent
	d := jx.DecodeBytes(data)

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "paymentId":
			return decodeString(d, &out.PaymentID)
		case "orderId":
			return decodeString(d, &out.OrderID)
		case "tenantId":
			return decodeString(d, &out.TenantID)
		case "amount":
			return decodeDecimal(d, &out.Amount)
		case "method":
			return decodeString(d, &out.Method)
		case "razorpayOrderId":
			return decodeString(d, &out.RazorpayOrderID)
		case "razorpayPaymentId":
			return decodeString(d, &out.RazorpayPaymentID)
		case "reason":
			return decodeString(d, &out.Reason)
		case "timestamp":
			return decodeTime(d, &out.Timestamp)
		default:
			return d.Skip()
		}
	}); err != nil {
		return PaymentEvent{}, errors.Wrap(err, "decode payment event")
	}

	if out.OrderID == "" {
		return PaymentEvent{}, errors.New("payment event: orderId is required")
	}
	return out, nil
}

func decodeReservedItem(d *jx.Decoder) (ReservedItem, error) {
	var item ReservedItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "inventoryItemId":
			return decodeString(d, &item.InventoryItemID)
		case "quantity":
			n, err := d.Int()
			if err != nil {
				return err
			}
			item.Quantity = n
			return nil
		default:
			return d.Skip()
		}
	})
	return item, err
}

func decodeString(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

// decodeDecimal accepts both JSON numbers and strings, since producers
// differ in how they serialize money.
func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	raw, err := d.Raw()
	if err != nil {
		return err
	}
	s := raw.String()
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, "parse decimal %q", s)
	}
	*dst = v
	return nil
}

func decodeTime(d *jx.Decoder, dst *time.Time) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return errors.Wrapf(err, "parse timestamp %q", s)
	}
	*dst = t
	return nil
}
