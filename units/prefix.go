package units

import "math"

// Prefix scales a stem symbol by Radix**Exponent.
type Prefix struct {
	Name     string
	Symbol   string
	Radix    int
	Exponent int
}

// Factor returns the prefix scale raised to the dimensional power n, so that
// "k" applied to "m**2" scales by 10**6.
func (p Prefix) Factor(n int) float64 {
	if p.Radix == 10 {
		return math.Pow10(p.Exponent * n)
	}
	return math.Pow(float64(p.Radix), float64(p.Exponent*n))
}

// Metric prefixes, largest first. "u" stands in for micro.
var (
	Exa   = Prefix{Name: "exa", Symbol: "E", Radix: 10, Exponent: 18}
	Peta  = Prefix{Name: "peta", Symbol: "P", Radix: 10, Exponent: 15}
	Tera  = Prefix{Name: "tera", Symbol: "T", Radix: 10, Exponent: 12}
	Giga  = Prefix{Name: "giga", Symbol: "G", Radix: 10, Exponent: 9}
	Mega  = Prefix{Name: "mega", Symbol: "M", Radix: 10, Exponent: 6}
	Kilo  = Prefix{Name: "kilo", Symbol: "k", Radix: 10, Exponent: 3}
	One   = Prefix{Name: "", Symbol: "", Radix: 10, Exponent: 0}
	Centi = Prefix{Name: "centi", Symbol: "c", Radix: 10, Exponent: -2}
	Milli = Prefix{Name: "milli", Symbol: "m", Radix: 10, Exponent: -3}
	Micro = Prefix{Name: "micro", Symbol: "u", Radix: 10, Exponent: -6}
	Nano  = Prefix{Name: "nano", Symbol: "n", Radix: 10, Exponent: -9}
	Pico  = Prefix{Name: "pico", Symbol: "p", Radix: 10, Exponent: -12}
	Femto = Prefix{Name: "femto", Symbol: "f", Radix: 10, Exponent: -15}
	Atto  = Prefix{Name: "atto", Symbol: "a", Radix: 10, Exponent: -18}
	Zepto = Prefix{Name: "zepto", Symbol: "z", Radix: 10, Exponent: -21}
	Yocto = Prefix{Name: "yocto", Symbol: "y", Radix: 10, Exponent: -24}
)

// Binary prefixes. JEDEC reuses the metric letters with a 1024 radix.
var (
	Unit2 = Prefix{Name: "", Symbol: "", Radix: 1024, Exponent: 0}

	Kilo2 = Prefix{Name: "kilo", Symbol: "k", Radix: 1024, Exponent: 1}
	Mega2 = Prefix{Name: "mega", Symbol: "M", Radix: 1024, Exponent: 2}
	Giga2 = Prefix{Name: "giga", Symbol: "G", Radix: 1024, Exponent: 3}

	Kibi = Prefix{Name: "kibi", Symbol: "Ki", Radix: 1024, Exponent: 1}
	Mebi = Prefix{Name: "mebi", Symbol: "Mi", Radix: 1024, Exponent: 2}
	Gibi = Prefix{Name: "gibi", Symbol: "Gi", Radix: 1024, Exponent: 3}
	Tebi = Prefix{Name: "tebi", Symbol: "Ti", Radix: 1024, Exponent: 4}
	Pebi = Prefix{Name: "pebi", Symbol: "Pi", Radix: 1024, Exponent: 5}
	Exbi = Prefix{Name: "exbi", Symbol: "Ei", Radix: 1024, Exponent: 6}
	Zebi = Prefix{Name: "zebi", Symbol: "Zi", Radix: 1024, Exponent: 7}
	Yobi = Prefix{Name: "yobi", Symbol: "Yi", Radix: 1024, Exponent: 8}
)

// MetricPrefixes is applied to every metric quantity.
var MetricPrefixes = []Prefix{
	Exa, Peta, Tera, Giga, Mega, Kilo, One,
	Centi, Milli, Micro, Nano, Pico, Femto, Atto, Zepto, Yocto,
}

// JEDECPrefixes and IECPrefixes are applied to binary quantities.
var (
	JEDECPrefixes = []Prefix{Kilo2, Mega2, Giga2}
	IECPrefixes   = []Prefix{Kibi, Mebi, Gibi, Tebi, Pebi, Exbi, Zebi, Yobi}
)
