package order

import (
	"context"
	"fmt"
	"time"
)

// NextNumber allocates a date-prefixed sequential number such as "ORD-250314-0007".
// A taken number gets a suffix from the clock; any lookup failure falls back to a
// timestamp-only number. It never returns an error.
func NextNumber(ctx context.Context, lookup NumberLookup, prefix string, now time.Time) string {
	day := fmt.Sprintf("%s-%s-", prefix, now.Format("060102"))
	n, err := lookup.CountByNumberPrefix(ctx, day)
	if err != nil {
		return FallbackNumber(prefix, now)
	}
	number := fmt.Sprintf("%s%04d", day, n+1)

	taken, err := lookup.NumberExists(ctx, number)
	if err != nil {
		return FallbackNumber(prefix, now)
	}
	if taken {
		return SuffixedNumber(number, now)
	}
	return number
}

// SuffixedNumber disambiguates a taken number with the last four millisecond digits.
func SuffixedNumber(number string, now time.Time) string {
	return fmt.Sprintf("%s-%04d", number, now.UnixMilli()%10000)
}

func FallbackNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixMilli())
}

// Alternatives lists the numbers to try, in order, when number was taken by a
// concurrent insert. The last one embeds the order id and cannot collide.
func Alternatives(number, prefix, orderID string, now time.Time) []string {
	short := orderID
	if len(short) > 8 {
		short = short[:8]
	}
	fallback := FallbackNumber(prefix, now)
	return []string{SuffixedNumber(number, now), fallback, fallback + "-" + short}
}
