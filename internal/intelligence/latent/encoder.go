// Package latent maps encoded sequence tensors to latent vectors through
// pretrained encoders, one per encoding strategy.
package latent

import (
	"context"
	"fmt"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Encoder produces one latent vector per batch item. Implementations must be
// safe for concurrent Infer calls.
type Encoder interface {
	Infer(ctx context.Context, batch polymer.BatchTensor) ([][]float32, error)
	Name() string
	Close() error
}

func emptyBatchError(name string) error {
	return errors.New(errors.ErrCodeEmptyInferenceBatch, "inference batch is empty").WithDetail(name)
}

func checkOutputRows(name string, want, got int) error {
	if want == got {
		return nil
	}
	return errors.New(errors.ErrCodeInferenceFailed, "encoder returned wrong number of vectors").
		WithDetail(fmt.Sprintf("%s: %d inputs, %d outputs", name, want, got))
}

// FuncEncoder adapts a function to Encoder.
type FuncEncoder struct {
	EncoderName string
	Fn          func(ctx context.Context, batch polymer.BatchTensor) ([][]float32, error)
}

func (f *FuncEncoder) Infer(ctx context.Context, batch polymer.BatchTensor) ([][]float32, error) {
	return f.Fn(ctx, batch)
}

func (f *FuncEncoder) Name() string { return f.EncoderName }

func (f *FuncEncoder) Close() error { return nil }
