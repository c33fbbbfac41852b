package domain

// Gateway status codes.
const (
	GatewayCodeSuccess    = "RP00"
	GatewayCodeProcessing = "RP09"
)

// PaymentOutcome is what a gateway status code means for a booking.
type PaymentOutcome string

const (
	OutcomeSuccess    PaymentOutcome = "success"
	OutcomeProcessing PaymentOutcome = "processing"
	OutcomeFailed     PaymentOutcome = "failed"
)

// OutcomeFor maps a gateway status code to exactly one outcome.
func OutcomeFor(statusCode string) PaymentOutcome {
	switch statusCode {
	case GatewayCodeSuccess:
		return OutcomeSuccess
	case GatewayCodeProcessing:
		return OutcomeProcessing
	default:
		return OutcomeFailed
	}
}

// PaymentResult is a signed status message from the gateway, delivered by webhook,
// browser return, or enquiry.
type PaymentResult struct {
	AppID          string
	Currency       string
	Amount         string
	StatusCode     string
	OrderID        string
	TransactionRef string
	Checksum       string
}

// PaymentForm is what a client posts to the gateway's hosted payment page.
type PaymentForm struct {
	Action  string            `json:"action"`
	Fields  map[string]string `json:"fields"`
	OrderID string            `json:"order_id"`
}

// ApplyResult reports what ApplyPaymentResult did.
type ApplyResult struct {
	BookingID     int64          `json:"booking_id"`
	Outcome       PaymentOutcome `json:"outcome"`
	Status        BookingStatus  `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	Changed       bool           `json:"changed"`
}
