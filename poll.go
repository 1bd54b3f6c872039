// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"context"
	"time"
)

// Poller bounds the busy-waits on chip status bits: oscillator running, ranging done, FIFO
// space, modem supply ready and radio idle.
//
// The zero value spins without a timeout, which is what the chip documentation describes. A
// non-zero Timeout turns a stuck bit into ErrTimeout, and Interval yields the CPU between polls.
type Poller struct {
	Timeout  time.Duration // give up after this long, 0 waits forever
	Interval time.Duration // pause between polls, 0 polls back to back
}

// Until calls cond until it reports true, returns an error, the timeout expires or ctx is done.
// It returns the number of polls made.
func (p Poller) Until(ctx context.Context, what string, cond func() (bool, error)) (int, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	n := 0
	for start := time.Now(); ; {
		n++
		done, err := cond()
		if err != nil {
			return n, err
		}
		if done {
			return n, nil
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if p.Timeout > 0 && time.Since(start) >= p.Timeout {
			return n, &timeoutError{what: what}
		}
		if p.Interval <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(p.Interval)
		} else {
			timer.Reset(p.Interval)
		}
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case <-timer.C:
		}
	}
}

// waitFor polls cond with the radio's poller and logs how long it took.
func (r *Radio) waitFor(ctx context.Context, what string, cond func() bool) error {
	n, err := r.poll.Until(ctx, what, func() (bool, error) {
		ok := cond()
		return ok, r.takeErr()
	})
	if err != nil {
		return err
	}
	r.log("%s in %d cycles", what, n)
	return nil
}
