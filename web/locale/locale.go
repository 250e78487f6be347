// Package locale renders the translated copy of outgoing emails.
package locale

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/dicoevent/dicoevent/logger"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed translation/*
var i18nFS embed.FS

// DefaultLanguage is used when a requested language has no translation.
const DefaultLanguage = "id-ID"

var (
	i18nBundle *i18n.Bundle
	initOnce   sync.Once
	initErr    error
)

// InitLocalizer parses the embedded translation files. It is safe to call
// more than once.
func InitLocalizer() error {
	initOnce.Do(func() {
		bundle := i18n.NewBundle(language.MustParse(DefaultLanguage))
		bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		if err := parseTranslationFiles(i18nFS, bundle); err != nil {
			initErr = err
			return
		}
		i18nBundle = bundle
	})
	return initErr
}

// Localizer translates message ids for one language.
type Localizer struct {
	localizer *i18n.Localizer
}

func NewLocalizer(lang string) (*Localizer, error) {
	if err := InitLocalizer(); err != nil {
		return nil, err
	}
	return &Localizer{localizer: i18n.NewLocalizer(i18nBundle, lang, DefaultLanguage)}, nil
}

// T returns the translation of key, or key itself when it is missing.
func (l *Localizer) T(key string, data map[string]any) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		logger.Errorf("Failed to localize message %s: %v", key, err)
		return key
	}
	return msg
}

func parseTranslationFiles(i18nFS fs.FS, i18nBundle *i18n.Bundle) error {
	return fs.WalkDir(i18nFS, "translation",
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(i18nFS, path)
			if err != nil {
				return err
			}
			_, err = i18nBundle.ParseMessageFileBytes(data, path)
			return err
		})
}
