package domain

// Result is the tagged outcome handed to presentation layers: either Value is
// set and Kind is empty, or Kind and Message describe the failure.
type Result[T any] struct {
	Value   T
	Kind    ErrorKind
	Message string
	// Err keeps the original error for logging. It is never rendered.
	Err error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps an error. Storage failures get an opaque message.
func Fail[T any](err error) Result[T] {
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindStorage {
		msg = ErrStorage.Error()
	}
	return Result[T]{Kind: kind, Message: msg, Err: err}
}

// ResultOf builds a Result from a conventional (value, error) pair.
func ResultOf[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// IsOK reports whether the result carries a value.
func (r Result[T]) IsOK() bool {
	return r.Kind == ""
}
