// Package dashboard aggregates platform activity into overview analytics.
//
// The weekly chart is anchored to the most recent transaction timestamp, not
// wall-clock time, so seeded or historical datasets still render a meaningful
// trailing window.
package dashboard

import (
	"time"

	"github.com/mbd888/finsights/internal/alert"
	"github.com/mbd888/finsights/internal/transaction"
)

// WindowDays is the fixed size of the trailing window.
const WindowDays = 7

// TimeBucket is one day of aggregated activity.
type TimeBucket struct {
	Date       string  `json:"date"` // ISO day
	Volume     float64 `json:"volume"`
	AlertCount int     `json:"alertCount"`
	IsToday    bool    `json:"isToday"`
	IsAnchor   bool    `json:"isAnchor"`
}

// Bucket aggregates transactions and alerts into exactly 7 contiguous day
// buckets ending at the anchor. A zero anchor resolves to the maximum
// transaction timestamp, falling back to the current day when there are no
// transactions. Records dated outside the window are dropped.
func Bucket(txs []*transaction.Transaction, alerts []*alert.Alert, anchor time.Time) []TimeBucket {
	if anchor.IsZero() {
		anchor = resolveAnchor(txs)
	}
	anchorDay := day(anchor)
	today := day(time.Now())

	buckets := make([]TimeBucket, WindowDays)
	index := make(map[string]int, WindowDays)
	for i := 0; i < WindowDays; i++ {
		d := anchorDay.AddDate(0, 0, i-(WindowDays-1))
		key := d.Format("2006-01-02")
		buckets[i] = TimeBucket{
			Date:     key,
			IsToday:  d.Equal(today),
			IsAnchor: d.Equal(anchorDay),
		}
		index[key] = i
	}

	for _, tx := range txs {
		i, ok := index[day(tx.Timestamp).Format("2006-01-02")]
		if !ok {
			continue
		}
		buckets[i].Volume += tx.Amount
		if tx.IsFlagged {
			buckets[i].AlertCount++
		}
	}
	for _, a := range alerts {
		i, ok := index[day(a.CreatedAt).Format("2006-01-02")]
		if !ok {
			continue
		}
		buckets[i].AlertCount++
	}
	return buckets
}

// resolveAnchor returns the latest transaction timestamp, or now when the
// dataset is empty.
func resolveAnchor(txs []*transaction.Transaction) time.Time {
	anchor := time.Time{}
	for _, tx := range txs {
		if tx.Timestamp.After(anchor) {
			anchor = tx.Timestamp
		}
	}
	if anchor.IsZero() {
		return time.Now()
	}
	return anchor
}

// day truncates a timestamp to its calendar day in UTC.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
