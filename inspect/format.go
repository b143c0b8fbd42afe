package inspect

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en_US"

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_pt": monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_nl": monday.LocaleNlNL,
	"ja":    monday.LocaleJaJP,
	"ja_jp": monday.LocaleJaJP,
}

// dateLayouts holds the date-time layout per locale; others use the
// day-first default.
var dateLayouts = map[monday.Locale]string{
	monday.LocaleEnUS: "Jan 2, 2006 3:04 PM",
	monday.LocaleEnGB: "2 Jan 2006 15:04",
	monday.LocaleDeDE: "2. Jan. 2006 15:04",
	monday.LocaleJaJP: "2006年1月2日 15:04",
}

const defaultDateLayout = "2 Jan 2006 15:04"

type formatter struct {
	printer  *message.Printer
	locale   monday.Locale
	location *time.Location
}

func newFormatter(locale string, location *time.Location) formatter {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		tag = language.AmericanEnglish
	}
	if location == nil {
		location = time.UTC
	}
	return formatter{
		printer:  message.NewPrinter(tag),
		locale:   mondayLocale(locale),
		location: location,
	}
}

func mondayLocale(locale string) monday.Locale {
	key := strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
	if loc, ok := mondayLocales[key]; ok {
		return loc
	}
	if i := strings.Index(key, "_"); i > 0 {
		if loc, ok := mondayLocales[key[:i]]; ok {
			return loc
		}
	}
	return monday.LocaleEnUS
}

// currency renders a money amount with two decimals, e.g. $1,234.50.
func (f formatter) currency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + f.printer.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func (f formatter) number(v float64) string {
	return f.printer.Sprintf("%v", number.Decimal(v))
}

func (f formatter) date(t time.Time) string {
	layout, ok := dateLayouts[f.locale]
	if !ok {
		layout = defaultDateLayout
	}
	return monday.Format(t.In(f.location), layout, f.locale)
}
