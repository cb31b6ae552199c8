package usecase

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"quote_backend/internal/feature/symbols/domain/entity"
)

// knownCryptoTickers maps exchange-style tickers (BTC-USD) onto CoinGecko ids.
var knownCryptoTickers = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"ADA":  "cardano",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"LTC":  "litecoin",
}

// fiatCodes は6文字コードをFXとして判定するための通貨一覧です。
var fiatCodes = map[string]bool{
	"USD": true, "EUR": true, "BRL": true, "JPY": true, "GBP": true,
	"CHF": true, "CAD": true, "AUD": true, "CNY": true, "MXN": true, "ARS": true,
}

// equitySuffixes は Yahoo 形式のサフィックスと取引所名の対応です。
var equitySuffixes = map[string]string{
	".SA": "B3",
	".T":  "TSE",
	".L":  "LSE",
	".TO": "TSX",
}

var (
	fxPairPattern   = regexp.MustCompile(`^[A-Z]{6}$`)
	cryptoIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// ParseTrackedSymbol は TRACKED_SYMBOLS の1要素を銘柄に変換します。
//
// 受け付ける形式:
//
//	AAPL, PETR4.SA         株式
//	USDBRL, USDBRL=X       為替
//	bitcoin, BTC-USD       暗号資産
//	solana:crypto          カテゴリを明示
func ParseTrackedSymbol(raw string) (entity.Symbol, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.Symbol{}, fmt.Errorf("%w: empty code", ErrInvalidSymbol)
	}

	if code, cat, ok := strings.Cut(raw, ":"); ok {
		c, valid := entity.ParseCategory(cat)
		if !valid {
			return entity.Symbol{}, fmt.Errorf("%w: unknown category %q", ErrInvalidSymbol, cat)
		}
		return Normalize(entity.Symbol{Code: code, Category: c})
	}

	s := entity.Symbol{Code: raw}
	switch {
	case strings.HasSuffix(raw, "=X"):
		s.Category = entity.CategoryFX
	case cryptoPair(raw) != "":
		s.Category = entity.CategoryCrypto
	case cryptoIDPattern.MatchString(raw):
		s.Category = entity.CategoryCrypto
	case isFXPair(raw):
		s.Category = entity.CategoryFX
	default:
		s.Category = entity.CategoryEquity
	}
	return Normalize(s)
}

// Normalize は銘柄コードを正規化し、未設定の項目をカテゴリごとの既定値で埋めます。
func Normalize(s entity.Symbol) (entity.Symbol, error) {
	s.Code = strings.TrimSpace(s.Code)
	s.Name = strings.TrimSpace(s.Name)
	s.Exchange = strings.TrimSpace(s.Exchange)
	if s.Code == "" {
		return entity.Symbol{}, fmt.Errorf("%w: empty code", ErrInvalidSymbol)
	}
	if !s.Category.Valid() {
		return entity.Symbol{}, fmt.Errorf("%w: unknown category %q", ErrInvalidSymbol, s.Category)
	}

	switch s.Category {
	case entity.CategoryFX:
		s.Code = strings.ToUpper(strings.TrimSuffix(strings.ReplaceAll(s.Code, "/", ""), "=X"))
		if !fxPairPattern.MatchString(s.Code) {
			return entity.Symbol{}, fmt.Errorf("%w: fx code must be a six letter pair, got %q", ErrInvalidSymbol, s.Code)
		}
		if s.Name == "" {
			s.Name = s.Code[:3] + "/" + s.Code[3:]
		}
		s.QuoteCurrency = s.Code[3:]

	case entity.CategoryCrypto:
		if id := cryptoPair(s.Code); id != "" {
			_, quote, _ := strings.Cut(s.Code, "-")
			s.Code = id
			if s.QuoteCurrency == "" {
				s.QuoteCurrency = quote
			}
		}
		s.Code = strings.ToLower(s.Code)
		if !cryptoIDPattern.MatchString(s.Code) {
			return entity.Symbol{}, fmt.Errorf("%w: invalid crypto id %q", ErrInvalidSymbol, s.Code)
		}
		if s.QuoteCurrency == "" {
			s.QuoteCurrency = "usd"
		}
		s.QuoteCurrency = strings.ToLower(s.QuoteCurrency)
		if s.Name == "" {
			s.Name = strings.ToUpper(s.Code[:1]) + s.Code[1:]
		}

	case entity.CategoryEquity:
		s.Code = strings.ToUpper(s.Code)
		// 取引所はサフィックスから分かる場合のみ埋め、それ以外は空（OTHER）のままにする
		if s.Exchange == "" {
			for suffix, ex := range equitySuffixes {
				if strings.HasSuffix(s.Code, suffix) {
					s.Exchange = ex
					break
				}
			}
		}
		if s.Name == "" {
			s.Name = s.Code
		}
		s.QuoteCurrency = strings.ToUpper(s.QuoteCurrency)
	}

	s.IsActive = true
	return s, nil
}

// cryptoPair returns the CoinGecko id for "BTC-USD" style codes, or "".
func cryptoPair(code string) string {
	base, quote, ok := strings.Cut(code, "-")
	if !ok || len(quote) != 3 || !fiatCodes[strings.ToUpper(quote)] {
		return ""
	}
	return knownCryptoTickers[strings.ToUpper(base)]
}

func isFXPair(code string) bool {
	return fxPairPattern.MatchString(code) && fiatCodes[code[:3]] && fiatCodes[code[3:]]
}

// ParseTrackedSymbols は TRACKED_SYMBOLS 全体を解釈します。
// 解釈できない要素はエラーとして返し、残りは有効な銘柄として返します。
func ParseTrackedSymbols(raw []string) ([]entity.Symbol, []error) {
	out := make([]entity.Symbol, 0, len(raw))
	var errs []error
	seen := map[string]bool{}
	for _, r := range raw {
		s, err := ParseTrackedSymbol(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.Code] {
			continue
		}
		seen[s.Code] = true
		out = append(out, s)
	}
	return out, errs
}

type seedFile struct {
	Symbols []seedEntry `yaml:"symbols"`
}

type seedEntry struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Category      string `yaml:"category"`
	Exchange      string `yaml:"exchange"`
	QuoteCurrency string `yaml:"quote_currency"`
}

// LoadSeedFile は YAML の銘柄定義ファイルを読み込みます。
//
//	symbols:
//	  - code: PETR4.SA
//	    name: Petrobras PN
//	    category: equity
//	  - code: bitcoin
//	    category: crypto
//	    quote_currency: brl
func LoadSeedFile(path string) ([]entity.Symbol, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]entity.Symbol, 0, len(f.Symbols))
	for i, e := range f.Symbols {
		var s entity.Symbol
		if e.Category == "" {
			s, err = ParseTrackedSymbol(e.Code)
			if err == nil {
				// 明示された項目を優先する
				if e.Name != "" {
					s.Name = e.Name
				}
				if e.Exchange != "" {
					s.Exchange = e.Exchange
				}
				if e.QuoteCurrency != "" && s.Category == entity.CategoryCrypto {
					s.QuoteCurrency = strings.ToLower(e.QuoteCurrency)
				}
			}
		} else {
			s, err = Normalize(entity.Symbol{
				Code:          e.Code,
				Name:          e.Name,
				Category:      entity.Category(strings.ToLower(e.Category)),
				Exchange:      e.Exchange,
				QuoteCurrency: e.QuoteCurrency,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("%s: symbols[%d]: %w", path, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
