package ratelimit

import (
	invoicedomain "github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
	fx.Provide(func(l *Limiter) invoicedomain.AllocationLocker { return l }),
)
