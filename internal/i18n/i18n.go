// Package i18n selects a language per request or terminal and formats
// user-facing messages with golang.org/x/text.
package i18n

import (
	"context"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
	language.Italian,
}

var matcher = language.NewMatcher(SupportedLangs)

// Message keys used by the HTTP API and the CLI.
const (
	MsgSourceAdded = "Source added (it will expire at %s)."
	MsgGrantCount  = "%d grants in %d zones\n"
	MsgRevoked     = "Revoked %s from zone %s\n"
	MsgConfigValid = "Configuration %s is valid\n"
	MsgNoDrift     = "No drift in zone %s\n"
)

func init() {
	set := func(tag language.Tag, key, msg string) {
		if err := message.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.German, MsgSourceAdded, "Quelle hinzugefügt (läuft ab am %s).")
	set(language.German, MsgGrantCount, "%d Freigaben in %d Zonen\n")
	set(language.German, MsgRevoked, "%s aus Zone %s entfernt\n")
	set(language.German, MsgConfigValid, "Konfiguration %s ist gültig\n")
	set(language.German, MsgNoDrift, "Keine Abweichung in Zone %s\n")

	set(language.Italian, MsgSourceAdded, "Sorgente aggiunta (scadrà il %s).")
	set(language.Italian, MsgGrantCount, "%d autorizzazioni in %d zone\n")
	set(language.Italian, MsgRevoked, "%s rimosso dalla zona %s\n")
	set(language.Italian, MsgConfigValid, "La configurazione %s è valida\n")
	set(language.Italian, MsgNoDrift, "Nessuna differenza nella zona %s\n")
}

// timeLayouts approximate each locale's short date-time rendering.
var timeLayouts = map[language.Base]string{
	mustBase(language.English): "1/2/2006, 3:04:05 PM",
	mustBase(language.German):  "2.1.2006, 15:04:05",
	mustBase(language.Italian): "2/1/2006, 15:04:05",
}

func mustBase(tag language.Tag) language.Base {
	b, _ := tag.Base()
	return b
}

type contextKey int

const (
	printerKey contextKey = iota
	languageKey
)

// MatchLanguage returns the supported language that best matches an
// Accept-Language header value.
func MatchLanguage(acceptLang string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(acceptLang)
	_, idx, _ := matcher.Match(tags...)
	return SupportedLangs[idx]
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// WithPrinter returns a new context with the printer injected
func WithPrinter(ctx context.Context, p *message.Printer) context.Context {
	return context.WithValue(ctx, printerKey, p)
}

// GetPrinter returns the printer from the context, or a default one
func GetPrinter(ctx context.Context) *message.Printer {
	p, ok := ctx.Value(printerKey).(*message.Printer)
	if !ok {
		return message.NewPrinter(DefaultLang)
	}
	return p
}

// WithLanguage stores the negotiated language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey, tag)
}

// GetLanguage returns the negotiated language, or DefaultLang.
func GetLanguage(ctx context.Context) language.Tag {
	tag, ok := ctx.Value(languageKey).(language.Tag)
	if !ok {
		return DefaultLang
	}
	return tag
}

// FormatTime renders t in local time the way tag's users expect.
func FormatTime(tag language.Tag, t time.Time) string {
	base, _ := tag.Base()
	layout, ok := timeLayouts[base]
	if !ok {
		layout = timeLayouts[mustBase(DefaultLang)]
	}
	return t.Local().Format(layout)
}

// NewCLIPrinter returns a printer for the system's locale (from env vars)
func NewCLIPrinter() *message.Printer {
	return message.NewPrinter(CLILanguage())
}

// CLILanguage resolves LC_ALL or LANG (e.g. "de_DE.UTF-8") to a supported tag.
func CLILanguage() language.Tag {
	lang := os.Getenv("LC_ALL")
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return DefaultLang
	}

	if i := strings.Index(lang, "."); i != -1 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")

	tag, err := language.Parse(lang)
	if err != nil {
		return MatchLanguage(lang)
	}
	_, idx, _ := matcher.Match(tag)
	return SupportedLangs[idx]
}
