package types

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BeanToken is the protocol stablecoin. One Bean is always worth one BDV.
const BeanToken = "BEAN"

// BeanDecimals is the fixed precision of BeanToken.
const BeanDecimals = 6

// NormalizeToken canonicalises a token symbol: NFKC folded, trimmed and upper
// case so "bean:weth" and "BEAN:WETH" address the same asset.
func NormalizeToken(symbol string) string {
	folded := norm.NFKC.String(strings.TrimSpace(symbol))
	return strings.ToUpper(folded)
}
