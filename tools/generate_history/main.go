// Large History File Generator
//
// This tool generates a large transaction history CSV for performance testing
// and profiling. Holdings are tracked while generating so the file replays
// without running out of lots.
//
// Usage:
//
//	go run main.go > large.csv
//	go run main.go 20000000 > large.csv  # Specify target size in bytes
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTargetSize = 10 * 1024 * 1024 // 10MB
	timestampLayout   = "060102-150405"
)

var (
	assets = map[string]float64{
		"BTC": 9000,
		"ETH": 700,
		"LTC": 150,
		"XRP": 1,
	}

	exchanges = []string{"ex-coinbase", "ex-kraken", "ex-binance", "entity-otc"}
	wallets   = []string{"self", "self-ledger", "self-paper"}
)

func main() {
	targetSize := defaultTargetSize
	if len(os.Args) > 1 {
		if size, err := strconv.Atoi(os.Args[1]); err == nil {
			targetSize = size
		}
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	bytesWritten, _ := fmt.Fprintln(w, "timestamp,asset,quantity,price,from,to,value_in,value_out,fee")

	holdings := make(map[string]decimal.Decimal, len(assets))
	prices := make(map[string]float64, len(assets))
	var names []string
	for name, price := range assets {
		names = append(names, name)
		prices[name] = price
		holdings[name] = decimal.Zero
	}

	current := time.Date(2017, 1, 1, 9, 0, 0, 0, time.UTC)
	counts := map[string]int{}

	for bytesWritten < targetSize {
		asset := names[rand.Intn(len(names))]
		prices[asset] = drift(prices[asset])
		price := decimal.NewFromFloat(prices[asset]).Round(2)

		var line string
		switch n := rand.Intn(10); {
		case n < 5: // 50% - Buy from an exchange
			qty := randQuantity()
			holdings[asset] = holdings[asset].Add(qty)
			line = row(current, asset, qty, price, pick(exchanges), pick(wallets))
			counts["acquisitions"]++

		case n < 8 && holdings[asset].IsPositive(): // 30% - Sell part of the holdings
			qty := holdings[asset].Mul(decimal.NewFromFloat(rand.Float64())).Round(4)
			if !qty.IsPositive() {
				continue
			}
			holdings[asset] = holdings[asset].Sub(qty)
			line = row(current, asset, qty, price, pick(wallets), pick(exchanges))
			counts["disposals"]++

		default: // Move between own wallets
			line = row(current, asset, randQuantity(), price, pick(wallets), pick(wallets))
			counts["transfers"]++
		}

		n, _ := w.WriteString(line)
		bytesWritten += n

		// Advance by up to a day
		current = current.Add(time.Duration(rand.Intn(24*60)+1) * time.Minute)
	}

	fmt.Fprintf(os.Stderr, "\nGenerated %d bytes: %d acquisitions, %d disposals, %d transfers\n",
		bytesWritten, counts["acquisitions"], counts["disposals"], counts["transfers"])
}

func row(at time.Time, asset string, qty, price decimal.Decimal, from, to string) string {
	value := qty.Mul(price).Round(2)
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,\n",
		at.Format(timestampLayout), asset, qty.String(), price.StringFixed(2), from, to, value.String(), value.String())
}

func randQuantity() decimal.Decimal {
	return decimal.NewFromFloat(0.01 + rand.Float64()*5).Round(4)
}

// drift moves a price by up to 3% either way, never below one cent.
func drift(price float64) float64 {
	return max(price*(1+(rand.Float64()-0.5)*0.06), 0.01)
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
