package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusFulfilled: true, StatusCancelled: true},
	StatusFulfilled: {StatusClosed: true},
	StatusClosed:    {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// CheckoutState tracks one checkout attempt. Validating and reserving happen
// before the order row exists.
type CheckoutState string

const (
	StateValidating      CheckoutState = "validating"
	StateReserving       CheckoutState = "reserving"
	StateAwaitingPayment CheckoutState = "awaiting_payment"
	StateCommitting      CheckoutState = "committing"
	StateCompleted       CheckoutState = "completed"
	StateFailed          CheckoutState = "failed"
	StateReleased        CheckoutState = "released"
)

var checkoutNext = map[CheckoutState]map[CheckoutState]bool{
	StateValidating:      {StateReserving: true, StateFailed: true},
	StateReserving:       {StateAwaitingPayment: true, StateFailed: true},
	StateAwaitingPayment: {StateCommitting: true, StateFailed: true, StateReleased: true},
	StateCommitting:      {StateCompleted: true, StateFailed: true},
	StateCompleted:       {},
	StateFailed:          {},
	StateReleased:        {},
}

func CanAdvance(from, to CheckoutState) bool {
	return from == to || checkoutNext[from][to]
}

// Phase is the (status, checkout state) pair stored on an order.
type Phase struct {
	Status Status
	State  CheckoutState
}

// Allowed reports whether the move is legal for both machines.
func (p Phase) Allowed(to Phase) bool {
	statusOK := p.Status == to.Status || CanTransition(p.Status, to.Status)
	return statusOK && CanAdvance(p.State, to.State)
}

type TxStatus string

const (
	TxPending        TxStatus = "pending"
	TxSucceeded      TxStatus = "succeeded"
	TxFailed         TxStatus = "failed"
	TxExpired        TxStatus = "expired"
	TxRefundRequired TxStatus = "refund_required"
)

func (s TxStatus) Terminal() bool { return s != TxPending }
