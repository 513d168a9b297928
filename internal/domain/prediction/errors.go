package prediction

import "errors"

var (
	// ErrUnusableResponse is returned when no score can be read from a model response.
	ErrUnusableResponse = errors.New("unusable prediction response")
	// ErrPredictFailed wraps transport or endpoint failures.
	ErrPredictFailed = errors.New("prediction call failed")
)
