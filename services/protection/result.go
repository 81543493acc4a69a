package protection

type resultState int

const (
	stateOk resultState = iota
	stateNotFound
	stateCryptoError
)

// Result is the single explicit outcome type of every protection
// operation: Ok carries the value, NotFound covers malformed or
// unresolvable input, CryptoError covers provider failures. Callers at the
// API boundary treat both failure states as "not found" so cryptographic
// error detail never leaks to a TPP; the distinction exists for
// server-side logging and tests.
type Result[T any] struct {
	value  T
	state  resultState
	detail error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, state: stateOk}
}

func NotFound[T any]() Result[T] {
	return Result[T]{state: stateNotFound}
}

func CryptoError[T any](detail error) Result[T] {
	return Result[T]{state: stateCryptoError, detail: detail}
}

func (r Result[T]) Ok() bool {
	return r.state == stateOk
}

func (r Result[T]) NotFound() bool {
	return r.state == stateNotFound
}

func (r Result[T]) CryptoFailed() bool {
	return r.state == stateCryptoError
}

// Value returns the zero value unless the result is Ok.
func (r Result[T]) Value() T {
	return r.value
}

// Detail is the server-side failure cause. Never surface it to clients.
func (r Result[T]) Detail() error {
	return r.detail
}
