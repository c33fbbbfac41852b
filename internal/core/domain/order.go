package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OrderRef identifies one payment attempt for a booking: {prefix}-{booking_id}-{attempt_unix_ms}.
type OrderRef struct {
	Prefix    string
	BookingID int64
	Attempt   time.Time
}

func NewOrderRef(prefix string, bookingID int64, at time.Time) OrderRef {
	return OrderRef{Prefix: prefix, BookingID: bookingID, Attempt: at.Truncate(time.Millisecond)}
}

func (o OrderRef) String() string {
	return fmt.Sprintf("%s-%d-%d", o.Prefix, o.BookingID, o.Attempt.UnixMilli())
}

var errMalformedOrderID = errors.New("malformed order id")

// ParseOrderRef resolves an order id back to its booking.
func ParseOrderRef(orderID, prefix string) (OrderRef, error) {
	rest, ok := strings.CutPrefix(orderID, prefix+"-")
	if !ok || prefix == "" {
		return OrderRef{}, errMalformedOrderID
	}
	parts := strings.Split(rest, "-")
	if len(parts) != 2 {
		return OrderRef{}, errMalformedOrderID
	}
	bookingID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || bookingID <= 0 {
		return OrderRef{}, errMalformedOrderID
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return OrderRef{}, errMalformedOrderID
	}
	return OrderRef{Prefix: prefix, BookingID: bookingID, Attempt: time.UnixMilli(ts).UTC()}, nil
}
