package errreg

import "errors"

// DefaultGuardMessage is recorded when a guarded call fails without a caller supplied message.
const DefaultGuardMessage = "حدث خطأ غير متوقع"

// ErrPanic wraps values recovered from panics.
var ErrPanic = errors.New("panic")
