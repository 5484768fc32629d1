package engine

import "fmt"

// Error codes a Realm's public API can return, mirroring the teacher's own
// CLIError taxonomy (internal/core/errorfmt.go): a stable code plus a
// human message plus optional wrapped detail.
const (
	ErrParse       = "ERR_PARSE"
	ErrCompile     = "ERR_COMPILE"
	ErrUncaught    = "ERR_UNCAUGHT_EXCEPTION"
	ErrJobQueue    = "ERR_JOB_QUEUE"
	ErrModuleLoad  = "ERR_MODULE_LOAD"
	ErrReentrant   = "ERR_REENTRANT_EVAL"
	ErrStackDepth  = "ERR_STACK_DEPTH_EXCEEDED"
	ErrCompileDeny = "ERR_COMPILE_FROM_STRING_DENIED"
)

// RealmError is the uniform error value every Realm method returns on
// failure. Script holds the text of the wrapped inner error (for
// ErrUncaught, the JS-level thrown value's string rendering); it is empty
// only when no inner error was wrapped.
type RealmError struct {
	Code    string
	Message string
	Script  string
}

func (e *RealmError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Script)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func wrapErr(code, msg string, inner error) *RealmError {
	e := &RealmError{Code: code, Message: msg}
	if inner != nil {
		e.Script = inner.Error()
	}
	return e
}
