package insights

import (
	"errors"
	"fmt"
)

// ErrNonFinite в ряду встретились NaN или Inf
var ErrNonFinite = errors.New("series contains non-finite values")

// ValidationError некорректный входной ряд
type ValidationError struct {
	Metric string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s series: %v", e.Metric, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CategoryComputationError сбой в расчете одной категории.
// Не выходит за пределы движка: категория заменяется значением по умолчанию.
type CategoryComputationError struct {
	Category string
	Err      error
}

func (e *CategoryComputationError) Error() string {
	return fmt.Sprintf("category %s: %v", e.Category, e.Err)
}

func (e *CategoryComputationError) Unwrap() error { return e.Err }

// InsightsGenerationError сбой всего вызова Generate, частичный результат не возвращается
type InsightsGenerationError struct {
	Stage string
	Err   error
}

func (e *InsightsGenerationError) Error() string {
	return fmt.Sprintf("insights generation failed at %s: %v", e.Stage, e.Err)
}

func (e *InsightsGenerationError) Unwrap() error { return e.Err }
