package ledger

import "errors"

// ValidationKind tags which field of a line item was rejected
type ValidationKind int

const (
	EmptyDescription ValidationKind = iota + 1
	InvalidPrice
	InvalidQuantity
	InvalidWeight
)

func (k ValidationKind) String() string {
	switch k {
	case EmptyDescription:
		return "EMPTY_DESCRIPTION"
	case InvalidPrice:
		return "INVALID_PRICE"
	case InvalidQuantity:
		return "INVALID_QUANTITY"
	case InvalidWeight:
		return "INVALID_WEIGHT"
	default:
		return "UNKNOWN"
	}
}

// ValidationError is returned by the composer; Message is meant for the shopkeeper.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrEmptyDescription = &ValidationError{Kind: EmptyDescription, Message: "Debe ingresar una descripción del producto"}
	ErrInvalidPrice     = &ValidationError{Kind: InvalidPrice, Message: "El precio unitario debe ser mayor a cero"}
	ErrInvalidQuantity  = &ValidationError{Kind: InvalidQuantity, Message: "La cantidad debe ser mayor a cero"}
	ErrInvalidWeight    = &ValidationError{Kind: InvalidWeight, Message: "El peso debe ser mayor a cero"}
)

var (
	ErrIndexOutOfRange = errors.New("line item index out of range")
	ErrEmptyCart       = errors.New("Debe agregar al menos un producto")
	ErrSubmitInFlight  = errors.New("a submission for this entry is already in progress")
	ErrSessionClosed   = errors.New("entry session is closed")
	ErrInvalidType     = errors.New("transaction type must be deuda or pago")
)

// DefaultPersistenceMessage is shown when the store gave no usable message
const DefaultPersistenceMessage = "Error al registrar transacción"

// PersistenceError wraps a failure reported by the store while submitting a cart.
// The cart that was being submitted is left untouched.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		return DefaultPersistenceMessage
	}
	return e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
