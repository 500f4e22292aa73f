package storefront

import (
	"context"
	"log/slog"
	"stationery-storefront/internal/dto"
	"time"
)

const StatusUnknownMessage = "Payment status unknown, please contact support"

type StatusAPI interface {
	CheckStatus(ctx context.Context, merchantOrderID string) (*dto.CheckStatusResponse, error)
}

type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	MaxElapsed  time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 3 * time.Second, MaxAttempts: 20, MaxElapsed: 2 * time.Minute}
}

// Attempt is one status check. The last Attempt on a channel has Final set.
type Attempt struct {
	N      int
	Result *dto.StatusResult
	Err    error
	Final  bool
}

type Poller struct {
	api    StatusAPI
	policy PollPolicy
	logger *slog.Logger
}

func NewPoller(api StatusAPI, policy PollPolicy, logger *slog.Logger) *Poller {
	def := DefaultPollPolicy()
	if policy.Interval <= 0 {
		policy.Interval = def.Interval
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.MaxElapsed <= 0 {
		policy.MaxElapsed = def.MaxElapsed
	}
	return &Poller{api: api, policy: policy, logger: logger}
}

// Watch checks merchantOrderID until a terminal verdict arrives or a bound is
// hit, reporting each attempt on the returned channel. Failed checks count as
// attempts and polling goes on. Past either bound a final "status unknown"
// attempt is sent. The channel is closed when watching ends or ctx is done.
func (p *Poller) Watch(ctx context.Context, merchantOrderID string) <-chan Attempt {
	out := make(chan Attempt, 1)

	go func() {
		defer close(out)

		start := time.Now()
		timer := time.NewTimer(0)
		defer timer.Stop()

		for n := 1; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			at := Attempt{N: n}
			resp, err := p.api.CheckStatus(ctx, merchantOrderID)
			switch {
			case err != nil:
				at.Err = err
				p.logger.Warn("payment status check failed", "order_id", merchantOrderID, "attempt", n, "err", err)
			case resp.Result != nil:
				at.Result = resp.Result
				at.Final = resp.Result.Terminal
			}

			if !at.Final && (n >= p.policy.MaxAttempts || time.Since(start)+p.policy.Interval > p.policy.MaxElapsed) {
				if !send(ctx, out, at) {
					return
				}
				send(ctx, out, Attempt{N: n, Result: unknownResult(merchantOrderID), Final: true})
				return
			}
			if !send(ctx, out, at) || at.Final {
				return
			}
			timer.Reset(p.policy.Interval)
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- Attempt, at Attempt) bool {
	select {
	case out <- at:
		return true
	case <-ctx.Done():
		return false
	}
}

func unknownResult(merchantOrderID string) *dto.StatusResult {
	return &dto.StatusResult{
		MerchantOrderID: merchantOrderID,
		Outcome:         "UNKNOWN",
		Status:          "PENDING",
		Message:         StatusUnknownMessage,
		Terminal:        true,
	}
}
