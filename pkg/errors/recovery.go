package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError はrecoverしたpanicをエラー値として表す。
// gonum/plotの描画やgonum/matの行列演算はpanicで失敗を通知するため、
// 公開APIの境界でこの型に変換する。
type PanicError struct {
	Operation  string
	PanicValue interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap exposes the panic value when it is itself an error (mat.ErrShape etc).
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// Format prints the captured stack for %+v.
func (e *PanicError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n%s", e.Error(), e.StackTrace)
		return
	}
	fmt.Fprint(s, e.Error())
}

func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic", fmt.Sprint(e.PanicValue))
}

// NewPanicError captures the current goroutine stack.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

// Recover は defer で呼び出し、panic を *err に変換する。
//
//	func CountPlot(...) (p *plot.Plot, err error) {
//	    defer errors.Recover(&err, "CountPlot")
//	    ...
//	}
//
// 既に *err が設定されている場合は、そのエラーを保持したまま panic 情報を付与する。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err == nil {
		*err = NewPanicError(operation, r)
		return
	}
	*err = Wrapf(*err, "panic in %s: %v", operation, r)
}

// SafeExecute runs fn, returning its error or the PanicError of a panic.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
