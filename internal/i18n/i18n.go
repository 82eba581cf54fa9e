package i18n

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gin-gonic/gin"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const (
	LocaleEN = "en"
	LocaleZH = "zh-CN"

	// DefaultLocale 未识别语言时的回退语言
	DefaultLocale = LocaleEN
)

//go:embed locales/*.toml
var localeFS embed.FS

var (
	bundleOnce sync.Once
	bundle     *goi18n.Bundle
	bundleErr  error

	localizersMu sync.RWMutex
	localizers   = map[string]*goi18n.Localizer{}

	supportedTags = []language.Tag{
		language.English,
		language.SimplifiedChinese,
	}
	matcher = language.NewMatcher(supportedTags)
)

// Init 加载内嵌的翻译文件，可重复调用
func Init() error {
	bundleOnce.Do(func() {
		b := goi18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		for _, file := range []string{"locales/active.en.toml", "locales/active.zh-CN.toml"} {
			if _, err := b.LoadMessageFileFS(localeFS, file); err != nil {
				bundleErr = fmt.Errorf("load %s failed: %w", file, err)
				return
			}
		}
		bundle = b
	})
	return bundleErr
}

// T 返回指定语言下的文案，缺失时返回 key 本身
func T(locale, key string) string {
	localizer := localizerFor(locale)
	if localizer == nil {
		return key
	}
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: key})
	if err != nil || msg == "" {
		return key
	}
	return msg
}

// Sprintf 使用翻译文案作为格式串
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// ResolveLocale 从请求中解析语言：lang 参数优先，其次 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	if header := strings.TrimSpace(c.GetHeader("Accept-Language")); header != "" {
		return NormalizeLocale(header)
	}
	return DefaultLocale
}

// NormalizeLocale 将任意语言标识归一到受支持的语言
func NormalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLocale
	}
	_, index := language.MatchStrings(matcher, raw)
	switch supportedTags[index] {
	case language.SimplifiedChinese:
		return LocaleZH
	default:
		return LocaleEN
	}
}

func localizerFor(locale string) *goi18n.Localizer {
	if err := Init(); err != nil {
		return nil
	}
	locale = NormalizeLocale(locale)

	localizersMu.RLock()
	localizer, ok := localizers[locale]
	localizersMu.RUnlock()
	if ok {
		return localizer
	}

	localizer = goi18n.NewLocalizer(bundle, locale, DefaultLocale)
	localizersMu.Lock()
	localizers[locale] = localizer
	localizersMu.Unlock()
	return localizer
}
