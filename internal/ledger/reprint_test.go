package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAvailableBalance(t *testing.T) {
	dump := "BalanceDump(baseCoin=CoinBalance(total='5000000', available='4750000'))"
	assert.Equal(t, int64(4750000), ParseAvailableBalance(dump))

	assert.Equal(t, int64(0), ParseAvailableBalance("no balance here"))
	assert.Equal(t, int64(0), ParseAvailableBalance(""))
}

func TestParseTransactionDump(t *testing.T) {
	dump := `[{'transactionId': '0xabc123', 'amount': '1000000'}, {'transactionId': '0xdef456', 'amount': '2500000'}]`

	ids, amounts := ParseTransactionDump(dump)
	require.Equal(t, []string{"0xabc123", "0xdef456"}, ids)
	assert.Equal(t, []int64{1000000, 2500000}, amounts)
}

func TestParseTransactionDump_AttributeStyle(t *testing.T) {
	dump := `Transaction(transactionId='0xBEEF01', timestamp='1700000000')`

	ids, amounts := ParseTransactionDump(dump)
	assert.Equal(t, []string{"0xBEEF01"}, ids)
	assert.Empty(t, amounts)
}

func TestParseTransactionDump_Empty(t *testing.T) {
	ids, amounts := ParseTransactionDump("nothing recognizable")
	assert.Empty(t, ids)
	assert.Empty(t, amounts)
}

func TestParseTransferReprint(t *testing.T) {
	dump := `Transfer({'amount': '750000'}, timestamp='1699999999')`

	amount, ts, ok := ParseTransferReprint(dump)
	require.True(t, ok)
	assert.Equal(t, int64(750000), amount)
	assert.Equal(t, int64(1699999999), ts)
}

func TestParseTransferReprint_AmountOnly(t *testing.T) {
	amount, ts, ok := ParseTransferReprint(`{'amount': '42'}`)
	require.True(t, ok)
	assert.Equal(t, int64(42), amount)
	assert.Equal(t, int64(0), ts)
}

func TestParseTransferReprint_NotATransfer(t *testing.T) {
	_, _, ok := ParseTransferReprint("some unrelated text")
	assert.False(t, ok)
}
