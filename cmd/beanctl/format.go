package main

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"beanchain/core/types"
)

var beanUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(types.BeanDecimals), nil)

// formatBeans renders a raw six-decimal amount with thousands separators and
// trailing zeros trimmed.
func formatBeans(v *big.Int) string {
	if v == nil {
		return "0"
	}
	abs := new(big.Int).Abs(v)
	whole, frac := new(big.Int).QuoRem(abs, beanUnit, new(big.Int))
	out := humanize.BigComma(whole)
	if frac.Sign() != 0 {
		digits := frac.String()
		digits = strings.Repeat("0", types.BeanDecimals-len(digits)) + digits
		out += "." + strings.TrimRight(digits, "0")
	}
	if v.Sign() < 0 {
		out = "-" + out
	}
	return out
}

func humanInt(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return humanize.BigComma(v)
}

func formatRaw(raw string) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return raw
	}
	return formatBeans(v)
}

// formatPercent renders percent points held at six-decimal precision.
func formatPercent(v *big.Int) string {
	return formatBeans(v) + "%"
}

func formatUnix(sec uint64, now time.Time) string {
	if sec == 0 {
		return "-"
	}
	at := time.Unix(int64(sec), 0).UTC()
	return fmt.Sprintf("%s (%s)", at.Format(time.RFC3339), humanize.RelTime(at, now, "ago", "from now"))
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
