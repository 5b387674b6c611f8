// Package simulate provides the stand-in work used by nodes whose integration
// is not performed for real.
package simulate

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const (
	DefaultDelay       = 1500 * time.Millisecond
	DefaultSuccessRate = 0.8
	DefaultMessage     = "Connection timeout: Failed to reach external service."
)

// Policy waits Delay and then succeeds with probability SuccessRate.
type Policy struct {
	Delay       time.Duration
	SuccessRate float64
	Message     string

	// Draw returns a number in [0, 1). Defaults to math/rand.
	Draw func() float64
}

func Default() *Policy {
	return &Policy{
		Delay:       DefaultDelay,
		SuccessRate: DefaultSuccessRate,
		Message:     DefaultMessage,
	}
}

// Always returns a policy that succeeds immediately.
func Always() *Policy {
	return &Policy{SuccessRate: 1}
}

// Never returns a policy that fails immediately with message.
func Never(message string) *Policy {
	return &Policy{SuccessRate: 0, Message: message}
}

// Sequence returns a policy whose outcomes follow results in order, then
// keep succeeding once exhausted.
func Sequence(results ...bool) *Policy {
	i := 0

	return &Policy{
		SuccessRate: 0.5,
		Message:     DefaultMessage,
		Draw: func() float64 {
			if i >= len(results) {
				return 0
			}

			ok := results[i]
			i++

			if ok {
				return 0
			}

			return 0.99
		},
	}
}

func (p *Policy) Simulate(ctx context.Context) error {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	draw := rand.Float64
	if p.Draw != nil {
		draw = p.Draw
	}

	if draw() < p.SuccessRate {
		return nil
	}

	message := p.Message
	if message == "" {
		message = DefaultMessage
	}

	return errors.New(message)
}
