package lang

import "errors"

// ErrInvalid indicates a language code the recognizer does not support.
var ErrInvalid = errors.New("invalid language code")
