package report

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/warp/store-ledger/ledger"
)

// =============================================================================
// MONEY
// =============================================================================

// FormatMoney renders whole rupiah with "." thousands separators:
// 1500000 -> "Rp 1.500.000", -500 -> "-Rp 500".
func FormatMoney(v int64) string {
	sign := ""
	abs := uint64(v)
	if v < 0 {
		sign = "-"
		abs = uint64(-(v + 1)) + 1
	}
	return sign + "Rp " + groupThousands(strconv.FormatUint(abs, 10))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// DisplayMoney renders an amount for on-screen display in the Indonesian
// locale, with two decimals: "Rp 1.500.000,00".
func DisplayMoney(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	p := message.NewPrinter(language.Indonesian)
	return sign + "Rp " + p.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// =============================================================================
// DATES
// =============================================================================

// FormatDate renders ts as DD.MM.YYYY in loc.
func FormatDate(ts ledger.Timestamp, loc *time.Location) string {
	return ts.Time(loc).Format("02.01.2006")
}

// FormatTime renders ts as HH:MM in loc.
func FormatTime(ts ledger.Timestamp, loc *time.Location) string {
	return ts.Time(loc).Format("15:04")
}
