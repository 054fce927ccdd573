package fusion

import (
	"context"
	"errors"
	"fmt"
)

// Warning records a detector stage which failed without aborting the run.
type Warning struct {
	Stage   string `json:"stage"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s/%s: %s", w.Stage, w.Name, w.Message)
}

// Isolate runs fn, converting a returned error or a panic in to a Warning. Context cancellation is not a warning: it is returned as an error so the caller can abort.
func Isolate[T any](ctx context.Context, stage, name string, fn func(ctx context.Context) (T, error)) (out T, warn *Warning, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = nil
			warn = &Warning{
				Stage:   stage,
				Name:    name,
				Message: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	out, err = fn(ctx)
	if err == nil {
		return out, nil, nil
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		var zero T
		return zero, nil, err
	}
	var zero T
	return zero, &Warning{Stage: stage, Name: name, Message: err.Error()}, nil
}
