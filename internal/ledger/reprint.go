package ledger

import (
	"regexp"
	"strconv"
)

// Older node builds answer some endpoints with the SDK object's informal
// string form instead of JSON. These scrapers pull the interesting fields out
// of those dumps so the client can degrade gracefully.
var (
	availableRe = regexp.MustCompile(`available='(\d+)'`)
	amountRe    = regexp.MustCompile(`'amount': '(\d+)'`)
	timestampRe = regexp.MustCompile(`timestamp='(\d+)'`)
	txIDRe      = regexp.MustCompile(`'transactionId': '(0x[0-9a-fA-F]+)'|transactionId='(0x[0-9a-fA-F]+)'`)
)

// ParseAvailableBalance extracts the available base-coin amount from a balance
// dump. Returns 0 when the field is absent.
func ParseAvailableBalance(s string) int64 {
	m := availableRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseTransactionDump extracts transaction ids and amounts from a textual
// transaction listing.
func ParseTransactionDump(s string) (ids []string, amounts []int64) {
	for _, m := range txIDRe.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			ids = append(ids, m[1])
		} else if m[2] != "" {
			ids = append(ids, m[2])
		}
	}
	for _, m := range amountRe.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, v)
	}
	return ids, amounts
}

// ParseTransferReprint extracts amount and timestamp from a single transfer
// dump. ok is false when neither field is present.
func ParseTransferReprint(s string) (amount, timestamp int64, ok bool) {
	if m := amountRe.FindStringSubmatch(s); m != nil {
		amount, _ = strconv.ParseInt(m[1], 10, 64)
		ok = true
	}
	if m := timestampRe.FindStringSubmatch(s); m != nil {
		timestamp, _ = strconv.ParseInt(m[1], 10, 64)
		ok = true
	}
	return amount, timestamp, ok
}
