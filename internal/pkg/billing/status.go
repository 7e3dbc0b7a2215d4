package billing

// PaymentStatus is the outcome shown to a user after a pay attempt.
type PaymentStatus uint8

const (
	PaymentOK PaymentStatus = iota
	PaymentAlreadyPaid
	PaymentNoMoney
	PaymentFail
)

func (s PaymentStatus) Message() string {
	switch s {
	case PaymentOK:
		return "Paid"
	case PaymentAlreadyPaid:
		return "Already purchased"
	case PaymentNoMoney:
		return "Not enough funds"
	default:
		return "Payment failed"
	}
}

// FlashType is the flash message type matching the status.
func (s PaymentStatus) FlashType() string {
	switch s {
	case PaymentOK:
		return "success"
	case PaymentAlreadyPaid:
		return "info"
	default:
		return "error"
	}
}

func PaymentStatusFromError(err error) PaymentStatus {
	if err == nil {
		return PaymentOK
	}
	switch KindOf(err) {
	case KindCourseAlreadyPaid:
		return PaymentAlreadyPaid
	case KindNotEnoughMoney:
		return PaymentNoMoney
	default:
		return PaymentFail
	}
}

// TransactionTypeName returns the display name of a transaction type.
func TransactionTypeName(t string) string {
	switch t {
	case TransactionPayment:
		return "Payment"
	case TransactionDeposit:
		return "Deposit"
	default:
		return t
	}
}

// CourseTypeName returns the display name of a course type.
func CourseTypeName(t CourseType) string {
	switch t {
	case CourseTypeFree:
		return "Free"
	case CourseTypeRent:
		return "Rent"
	case CourseTypeBuy:
		return "Buy"
	default:
		return ""
	}
}
