package lots

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestFromSnapshot(t *testing.T) {
	t.Run("accepts numbers and strings", func(t *testing.T) {
		input := `{
			"ETH": [{"quantity": 2, "price": 10}, {"quantity": "3", "price": "20.5", "date": "2018-02-01"}],
			"BTC": [{"quantity": 0.25, "price": 6500}]
		}`

		snap, err := DecodeSnapshot(strings.NewReader(input))
		assert.NoError(t, err)

		l, err := FromSnapshot(snap)
		assert.NoError(t, err)

		assert.Equal(t, []string{"BTC", "ETH"}, l.Assets())
		assert.Equal(t, "5", l.Holdings("ETH").String())
		assert.Equal(t, []string{"2@10 ETH", "3@20.5 ETH"}, lotStrings(l.Lots("ETH")))
		assert.Equal(t, time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC), l.Lots("ETH")[1].Acquired)
	})

	t.Run("rejects zero quantity lots", func(t *testing.T) {
		snap, err := DecodeSnapshot(strings.NewReader(`{"ETH": [{"quantity": 0, "price": 10}]}`))
		assert.NoError(t, err)

		_, err = FromSnapshot(snap)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Contains(t, err.Error(), "ETH lot 1")
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		snap, err := DecodeSnapshot(strings.NewReader(`{"ETH": [{"quantity": 1, "price": 10, "date": "01/02/18"}]}`))
		assert.NoError(t, err)

		_, err = FromSnapshot(snap)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("rejects malformed decimals", func(t *testing.T) {
		_, err := DecodeSnapshot(strings.NewReader(`{"ETH": [{"quantity": "lots", "price": 10}]}`))
		assert.Error(t, err)
	})
}

func TestLedger_Snapshot(t *testing.T) {
	l := New()
	assert.NoError(t, l.AcquireAt("ETH", d("2"), d("10"), time.Date(2018, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, l.Acquire("ETH", d("3"), d("20")))
	_, err := l.Dispose("ETH", d("4"), d("15"))
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, EncodeSnapshot(&buf, l.Snapshot()))

	expected := `{
  "ETH": [
    {
      "quantity": "1",
      "price": "20"
    }
  ]
}
`
	assert.Equal(t, expected, buf.String())

	// Round trip keeps the ledger state.
	snap, err := DecodeSnapshot(&buf)
	assert.NoError(t, err)
	restored, err := FromSnapshot(snap)
	assert.NoError(t, err)
	assert.Equal(t, l.String(), restored.String())
}

func TestSnapshot_Clone(t *testing.T) {
	snap := Snapshot{"ETH": {{Quantity: d("1"), Price: d("2")}}}
	clone := snap.Clone()
	clone["ETH"][0].Quantity = d("5")

	assert.Equal(t, "1", snap["ETH"][0].Quantity.String())
	assert.Equal(t, "1", snap.Total("ETH").String())
	assert.Equal(t, "0", snap.Total("BTC").String())
}
