package orders

type Status int

const (
	StatusAwaitingPayment  Status = 1
	StatusAwaitingDelivery Status = 2
	StatusDelivering       Status = 3
	StatusCompleted        Status = 4
	StatusCancelled        Status = 5
)

var statusNames = map[Status]string{
	StatusAwaitingPayment:  "AWAITING_PAYMENT",
	StatusAwaitingDelivery: "AWAITING_DELIVERY",
	StatusDelivering:       "DELIVERING",
	StatusCompleted:        "COMPLETED",
	StatusCancelled:        "CANCELLED",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

func (s Status) Valid() bool { _, ok := statusNames[s]; return ok }

var validNext = map[Status]map[Status]bool{
	StatusAwaitingPayment:  {StatusAwaitingDelivery: true, StatusCancelled: true},
	StatusAwaitingDelivery: {StatusDelivering: true, StatusCancelled: true},
	StatusDelivering:       {StatusCompleted: true},
	StatusCompleted:        {},
	StatusCancelled:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
