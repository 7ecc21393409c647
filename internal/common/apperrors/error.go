// Package apperrors provides the application error type used across the
// engine. It extends the standard error interface with wrapping, status
// codes, and message derivation so packages can declare error taxonomies
// as var blocks and refine them at the point of failure.
package apperrors

// Error is the interface implemented by all application errors. Methods
// return Error so call sites can chain refinements onto a declared base
// error without mutating it.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a fresh error using the current one as template
	Msg(msg string) Error                  // derives an error with a new message, wrapping the original
	MsgErr(msg string, err ...error) Error // derives an error with a message and extra wrapped errors
	Err(err ...error) Error                // attaches additional errors, keeping the message
	SetExpandError(bool) Error             // controls whether ErrorAll expands wrapped errors
	SetStatusCode(int) Error               // sets the status code reported for this error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // full message including wrapped errors
	UnwrapAll() []error                    // all wrapped errors in attachment order
}
