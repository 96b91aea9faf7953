package eastmoney

// quoteFields maps Eastmoney's f-field codes for the single-stock quote
// endpoint. Field numbers are undocumented and opaque by design on
// Eastmoney's side; the mapping below is reverse-engineered and stable
// in practice.
type quoteFields struct {
	F43  float64 `json:"f43"`  // price
	F44  float64 `json:"f44"`  // high
	F45  float64 `json:"f45"`  // low
	F46  float64 `json:"f46"`  // open
	F47  float64 `json:"f47"`  // volume
	F48  float64 `json:"f48"`  // turnover
	F50  float64 `json:"f50"`  // volume ratio
	F57  string  `json:"f57"`  // symbol
	F58  string  `json:"f58"`  // name
	F60  float64 `json:"f60"`  // prev close
	F116 float64 `json:"f116"` // market cap
	F170 float64 `json:"f170"` // change percent (fallback when prev close is 0)
}

// limitListFields maps the f-field codes used by the limit-up/limit-down
// scan endpoint, a different field layout than the single-quote endpoint.
type limitListFields struct {
	F2  float64 `json:"f2"`  // price
	F3  float64 `json:"f3"`  // change percent
	F4  float64 `json:"f4"`  // change
	F5  float64 `json:"f5"`  // volume
	F6  float64 `json:"f6"`  // turnover
	F7  float64 `json:"f7"`  // volume ratio
	F12 string  `json:"f12"` // symbol
	F14 string  `json:"f14"` // name
	F15 float64 `json:"f15"` // high
	F16 float64 `json:"f16"` // low
	F17 float64 `json:"f17"` // open
	F18 float64 `json:"f18"` // prev close
}
