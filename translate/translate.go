// Package translate formats user-facing messages for the locale of the
// host operating system.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/message"
)

// DefaultLocale is used when the operating system reports no locale.
const DefaultLocale = "en-US"

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("mini6502: locale: %v", err)
	}
	SetLocales(locales...)
}

// SetLocales replaces the message printer with one matching the first
// supported locale in the list.
func SetLocales(locales ...string) {
	if len(locales) == 0 {
		locales = []string{DefaultLocale}
	}
	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From formats an en-US Sprintf-style message key in the current locale.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
