package weights

import "errors"

// Sentinel kinds for weight vector errors.
var (
	ErrEmptyVector     = errors.New("empty weight vector")
	ErrNegativeWeight  = errors.New("negative weight")
	ErrZeroSum         = errors.New("weight vector sums to zero")
	ErrUnstableWeights = errors.New("weight vector contains NaN or Inf")
)
