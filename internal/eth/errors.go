package eth

import "errors"

// ErrMalformedSignature is returned for signatures that cannot be parsed or recovered
var ErrMalformedSignature = errors.New("malformed signature")
