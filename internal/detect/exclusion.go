package detect

// MinTokenLen is the shortest base (suffix excluded) a candidate may have.
const MinTokenLen = 2

// commonWords are uppercase English words that show up in headlines and
// shouted prose far more often than as tickers.
var commonWords = []string{
	"AN", "AND", "ANY", "ARE", "AS", "AT", "BE", "BUT", "BY", "CAN",
	"DID", "DO", "FOR", "FROM", "GET", "GO", "GOT", "HAD", "HAS", "HE",
	"HER", "HIM", "HIS", "HOW", "IF", "IN", "INTO", "IS", "IT", "ITS",
	"JUST", "LIKE", "ME", "MORE", "MOST", "MY", "NEW", "NO", "NOR", "NOT",
	"NOW", "OF", "OFF", "ON", "ONE", "ONLY", "OR", "OUR", "OUT", "OVER",
	"SAID", "SEE", "SHE", "SO", "SOME", "THAN", "THAT", "THE", "THEM",
	"THEN", "THEY", "THIS", "TO", "TOO", "TWO", "UP", "US", "WAS", "WE",
	"WERE", "WHAT", "WHEN", "WHO", "WHY", "WILL", "WITH", "YES", "YET",
	"YOU", "YOUR", "ALL", "ALSO", "BACK", "BEEN", "BEST", "BIG", "BUY",
	"CALL", "DAY", "DOWN", "EACH", "EVEN", "EVER", "HIGH", "HOLD", "HERE",
	"KEEP", "LAST", "LONG", "LOW", "MAKE", "MUCH", "MUST", "NEXT", "OPEN",
	"PUT", "SELL", "SHORT", "STILL", "TAKE", "VERY", "WEEK", "WELL", "YEAR",
	"NEWS", "NOTE", "READ", "PLUS", "LOSS", "GAIN", "RISK", "RATE",
	"HUGE", "MOON", "YOLO", "LOL", "OMG", "WTF", "IMO", "IMHO", "FYI",
	"ASAP", "TLDR", "EDIT",
}

// acronyms are business, technology, and government abbreviations.
var acronyms = []string{
	"CEO", "CFO", "COO", "CTO", "CIO", "CMO", "VP", "SVP", "EVP", "IPO",
	"ETF", "ETFS", "EPS", "PE", "ROI", "ROE", "YOY", "QOQ", "YTD", "MTD",
	"ATH", "ATL", "DD", "OTC", "LLC", "INC", "LTD", "CORP", "PLC", "NYSE",
	"AMEX", "SEC", "FDA", "FED", "FOMC", "GDP", "CPI", "PPI", "PMI", "IRS",
	"DOJ", "FBI", "CIA", "NASA", "EU", "UK", "USA", "UN", "NATO", "OPEC",
	"IMF", "ECB", "BOE", "BOJ", "PBOC", "API", "URL", "HTML", "HTTP",
	"HTTPS", "CSS", "JSON", "XML", "PDF", "FAQ", "AI", "ML", "AR", "VR",
	"TV", "PC", "OS", "CPU", "GPU", "RAM", "SSD", "USB", "ID", "HR",
	"PR", "QA", "IQ", "AM", "PM", "EST", "EDT", "PST", "PDT", "CST", "CDT",
	"UTC", "GMT", "ET", "PT", "OK", "DM", "PS", "RE", "FW", "TBD", "TBA",
	"NA", "ESG", "SPAC", "REIT", "ADR", "NAV", "AUM", "EV", "EVS",
	"EBIT", "CAGR", "FCF", "GAAP", "LBO", "MA", "NFT", "DAO", "DEFI", "IOU",
	"FY", "CEOS", "ICYMI", "RSS", "CNBC",
	"WSJ", "NYT", "BBC", "CNN", "AP",
}

// currencyCodes are ISO 4217 codes plus the common crypto symbols.
var currencyCodes = []string{
	"USD", "EUR", "GBP", "JPY", "CNY", "RMB", "CAD", "AUD", "NZD", "CHF",
	"HKD", "SGD", "INR", "KRW", "TWD", "SEK", "NOK", "DKK", "PLN", "CZK",
	"HUF", "RUB", "TRY", "ZAR", "BRL", "MXN", "ARS", "CLP", "COP", "PEN",
	"IDR", "MYR", "PHP", "THB", "VND", "ILS", "AED", "SAR", "QAR", "KWD",
	"EGP", "NGN", "KES", "UAH", "BTC", "ETH", "USDT", "USDC", "XRP", "SOL",
	"DOGE", "LTC", "BNB", "ADA", "DOT",
}

// Policy decides which raw candidates are never surfaced.
type Policy struct {
	excluded map[string]struct{}
	minLen   int
}

// DefaultPolicy returns the policy built from the static exclusion sets.
func DefaultPolicy() *Policy {
	return NewPolicy()
}

// NewPolicy returns the default policy extended with extra exclusions.
// Extra tokens are matched case-sensitively, like everything else here.
func NewPolicy(extra ...string) *Policy {
	p := &Policy{
		excluded: make(map[string]struct{}, len(commonWords)+len(acronyms)+len(currencyCodes)+len(extra)),
		minLen:   MinTokenLen,
	}
	for _, set := range [][]string{commonWords, acronyms, currencyCodes, extra} {
		for _, w := range set {
			p.excluded[w] = struct{}{}
		}
	}
	return p
}

// Excluded reports whether the raw candidate token must be dropped.
func (p *Policy) Excluded(raw string) bool {
	if _, ok := p.excluded[raw]; ok {
		return true
	}
	return baseLen(raw) < p.minLen
}

// Len returns the number of tokens on the exclusion set.
func (p *Policy) Len() int {
	return len(p.excluded)
}

// baseLen is the length of the token before any exchange-class suffix.
func baseLen(raw string) int {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			return i
		}
	}
	return len(raw)
}
