package responder

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BuildSchedule splits target into parts equal chunks rounded to precision
// decimal places. The rounding residue is folded into the last chunk so the
// schedule sums exactly to target.
func BuildSchedule(target decimal.Decimal, parts int, precision int32) ([]decimal.Decimal, error) {
	if parts <= 0 {
		return nil, fmt.Errorf("chunk count must be positive, got %d", parts)
	}
	if target.Sign() <= 0 {
		return nil, fmt.Errorf("schedule target must be positive, got %s", target)
	}

	per := target.Div(decimal.NewFromInt(int64(parts))).Round(precision)
	schedule := make([]decimal.Decimal, parts)
	for i := range schedule {
		schedule[i] = per
	}

	residue := target.Sub(per.Mul(decimal.NewFromInt(int64(parts))))
	if !residue.IsZero() {
		schedule[parts-1] = schedule[parts-1].Add(residue)
	}

	if last := schedule[parts-1]; last.Sign() <= 0 {
		return nil, fmt.Errorf("schedule too fine: last chunk is %s", last)
	}
	return schedule, nil
}
