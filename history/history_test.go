package history

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestRead(t *testing.T) {
	input := `timestamp,asset,quantity,price,from,to,value_in,value_out,fee
180105-142300,ETH,2,1000.50,ex-coinbase,self,,,
,,,,,,,,
180210-090000, BTC ,0.1,9000,self,ex-gdax,900,,1.5
`
	records, err := Read(strings.NewReader(input), "history.csv")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))

	assert.Equal(t, Record{
		Filename:  "history.csv",
		Line:      2,
		Timestamp: "180105-142300",
		Asset:     "ETH",
		Quantity:  "2",
		Price:     "1000.50",
		From:      "ex-coinbase",
		To:        "self",
	}, records[0])

	assert.Equal(t, 4, records[1].Line)
	assert.Equal(t, "BTC", records[1].Asset)
	assert.Equal(t, "900", records[1].ValueIn)
	assert.Equal(t, "1.5", records[1].Fee)
	assert.Equal(t, "history.csv:4", records[1].Position())
}

func TestRead_ColumnOrderAndCase(t *testing.T) {
	input := "To,From,Price,Quantity,Asset,Timestamp\nentity-acme,self,5,1,DAI,180301\n"

	records, err := Read(strings.NewReader(input), "h.csv")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, "entity-acme", records[0].To)
	assert.Equal(t, "180301", records[0].Timestamp)
	assert.Equal(t, "", records[0].Fee)
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("timestamp,asset,quantity,from,to\n"), "h.csv")

	var missing *MissingColumnError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "price", missing.Column)
	assert.Equal(t, `h.csv: missing required column "price"`, err.Error())
}

func TestRead_Empty(t *testing.T) {
	records, err := Read(strings.NewReader(""), "h.csv")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"180105-142300", time.Date(2018, 1, 5, 14, 23, 0, 0, time.UTC)},
		{"180105", time.Date(2018, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2018-01-05", time.Date(2018, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2018-01-05 14:23:00", time.Date(2018, 1, 5, 14, 23, 0, 0, time.UTC)},
		{"2018-01-05T16:23:00+02:00", time.Date(2018, 1, 5, 14, 23, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			assert.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestSort(t *testing.T) {
	records := []Record{
		{Line: 2, Timestamp: "180301"},
		{Line: 3, Timestamp: "garbage"},
		{Line: 4, Timestamp: "180101"},
		{Line: 5, Timestamp: "2018-03-01"},
		{Line: 6, Timestamp: "180201-120000"},
	}

	Sort(records)

	lines := make([]int, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Line)
	}
	assert.Equal(t, []int{4, 6, 2, 5, 3}, lines)
}

func TestClassifier_Classify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		from, to string
		expected Kind
	}{
		{"ex-coinbase", "self", Acquisition},
		{"coinbase", "self", Acquisition},
		{"entity-employer", "me", Acquisition},
		{"self", "ex-kraken", Disposal},
		{"self", "Entity-Shop", Disposal},
		{"ex-gdax", "ex-coinbase", Acquisition},
		{"self", "cold-wallet", Transfer},
		{"", "", Transfer},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(Record{From: tt.from, To: tt.to}))
		})
	}

	assert.True(t, c.IsSelf("Me"))
	assert.False(t, c.IsSelf("ex-coinbase"))
	assert.Equal(t, "disposal", Disposal.String())
}

func TestAddressBook(t *testing.T) {
	ab, err := LoadAddressBook(strings.NewReader(`{
		"0x52908400098527886e0f7030069857d2e4169ee7": "self",
		"0xde709f2102306220921060314715629080e2fb77": "ex-coinbase",
		"hot-wallet": "self"
	}`))
	assert.NoError(t, err)
	assert.Equal(t, 3, ab.Len())

	assert.Equal(t, "self", ab.Resolve("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.Equal(t, "ex-coinbase", ab.Resolve("0xDe709F2102306220921060314715629080e2fB77"))
	assert.Equal(t, "self", ab.Resolve("hot-wallet"))
	assert.Equal(t, "unknown", ab.Resolve("unknown"))

	records := []Record{{
		From: "0xde709f2102306220921060314715629080e2fb77",
		To:   "0x52908400098527886e0f7030069857d2e4169ee7",
	}}
	ab.Apply(records)
	assert.Equal(t, "ex-coinbase", records[0].From)
	assert.Equal(t, "self", records[0].To)

	var none *AddressBook
	assert.Equal(t, "x", none.Resolve("x"))
}
