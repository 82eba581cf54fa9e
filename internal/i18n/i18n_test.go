package i18n

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoadsBundles(t *testing.T) {
	require.NoError(t, Init())
	assert.Equal(t, "Model not found", T(LocaleEN, "error.model_not_found"))
	assert.Equal(t, "模型不存在", T(LocaleZH, "error.model_not_found"))
}

func TestTFallsBackToKey(t *testing.T) {
	assert.Equal(t, "error.does_not_exist", T(LocaleEN, "error.does_not_exist"))
	assert.Equal(t, "Model not found", T("fr-FR", "error.model_not_found"))
}

func TestSprintf(t *testing.T) {
	assert.Equal(t, "Password must be at least 8 characters", Sprintf(LocaleEN, "error.password_min_length", 8))
	assert.Equal(t, "登录尝试过多，请 30 秒后重试", Sprintf(LocaleZH, "error.login_too_many", 30))
}

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":               LocaleEN,
		"en-US":          LocaleEN,
		"zh":             LocaleZH,
		"zh-CN,zh;q=0.9": LocaleZH,
		"de-DE":          LocaleEN,
		"zh-Hans":        LocaleZH,
		"en-GB,en;q=0.8": LocaleEN,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeLocale(raw), "raw=%q", raw)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newContext := func(target, header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			c.Request.Header.Set("Accept-Language", header)
		}
		return c
	}

	assert.Equal(t, LocaleZH, ResolveLocale(newContext("/?lang=zh-CN", "en-US")))
	assert.Equal(t, LocaleZH, ResolveLocale(newContext("/", "zh-CN,zh;q=0.9")))
	assert.Equal(t, LocaleEN, ResolveLocale(newContext("/", "")))
	assert.Equal(t, DefaultLocale, ResolveLocale(nil))
}

func TestLocaleFilesShareKeys(t *testing.T) {
	load := func(name string) []string {
		raw, err := localeFS.ReadFile(name)
		require.NoError(t, err)
		var messages map[string]string
		require.NoError(t, toml.Unmarshal(raw, &messages))
		keys := make([]string, 0, len(messages))
		for key := range messages {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return keys
	}

	en := load("locales/active.en.toml")
	zh := load("locales/active.zh-CN.toml")
	require.NotEmpty(t, en)
	assert.Equal(t, en, zh)
}
