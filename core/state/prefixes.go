package state

import (
	"encoding/binary"
	"fmt"
	"strings"

	"beanchain/crypto"
)

var (
	bankBalancePrefix     = []byte("bank/balance/")
	bankSupplyPrefix      = []byte("bank/supply/")
	siloAssetPrefix       = []byte("silo/asset/")
	siloAssetListKey      = []byte("silo/assets")
	siloAccountPrefix     = []byte("silo/account/")
	siloCratePrefix       = []byte("silo/crate/")
	siloStemIndexPrefix   = []byte("silo/stems/")
	siloMowPrefix         = []byte("silo/mow/")
	siloTotalsKey         = []byte("silo/totals")
	siloAllowancePrefix   = []byte("silo/allowance/")
	siloGerminatingKeyFmt = "silo/germinating/%d"
	seasonStatusKey       = []byte("season/status")
	seasonWeatherKey      = []byte("season/weather")
	seasonCapacityKey     = []byte("season/convert-capacity")
	fieldStatusKey        = []byte("field/status")
	fieldPlotPrefix       = []byte("field/plot/")
	fieldPlotIndexPrefix  = []byte("field/plots/")
	gaugeParamsKey        = []byte("gauge/params")
	wellPoolPrefix        = []byte("well/pool/")
	wellPoolListKey       = []byte("well/pools")
)

func normalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

func joinKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part) + 1
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for i, part := range parts {
		if i > 0 {
			key = append(key, '/')
		}
		key = append(key, part...)
	}
	return key
}

func tokenKey(prefix []byte, token string) []byte {
	return joinKey(prefix, []byte(normalizeToken(token)))
}

func addrTokenKey(prefix []byte, addr crypto.Address, token string) []byte {
	return joinKey(prefix, addr.Bytes(), []byte(normalizeToken(token)))
}

func int64Bytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func germinatingKey(bucket int) []byte {
	return []byte(fmt.Sprintf(siloGerminatingKeyFmt, bucket%2))
}
