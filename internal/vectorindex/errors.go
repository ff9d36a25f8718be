package vectorindex

import "errors"

var (
	ErrBadDimension = errors.New("vectorindex: embedding must have exactly 512 dimensions")
	ErrBadNorm      = errors.New("vectorindex: embedding has a non-finite L2 norm")
)
