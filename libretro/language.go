package libretro

import "golang.org/x/text/language"

// Core language identifiers reported through GET_LANGUAGE.
const (
	LanguageEnglish            uint32 = 0
	LanguageJapanese           uint32 = 1
	LanguageFrench             uint32 = 2
	LanguageSpanish            uint32 = 3
	LanguageGerman             uint32 = 4
	LanguageItalian            uint32 = 5
	LanguageDutch              uint32 = 6
	LanguagePortugueseBrazil   uint32 = 7
	LanguagePortuguesePortugal uint32 = 8
	LanguageRussian            uint32 = 9
	LanguageKorean             uint32 = 10
	LanguageChineseTraditional uint32 = 11
	LanguageChineseSimplified  uint32 = 12
	LanguageEsperanto          uint32 = 13
	LanguagePolish             uint32 = 14
	LanguageVietnamese         uint32 = 15
	LanguageArabic             uint32 = 16
	LanguageGreek              uint32 = 17
	LanguageTurkish            uint32 = 18
	LanguageSlovak             uint32 = 19
	LanguagePersian            uint32 = 20
	LanguageHebrew             uint32 = 21
	LanguageAsturian           uint32 = 22
	LanguageFinnish            uint32 = 23
	LanguageIndonesian         uint32 = 24
	LanguageSwedish            uint32 = 25
	LanguageUkrainian          uint32 = 26
	LanguageCzech              uint32 = 27
	LanguageCatalan            uint32 = 29
	LanguageBritishEnglish     uint32 = 30
	LanguageHungarian          uint32 = 31
)

// Index 0 is the matcher's fallback.
var languageTags = []struct {
	tag language.Tag
	id  uint32
}{
	{language.AmericanEnglish, LanguageEnglish},
	{language.BritishEnglish, LanguageBritishEnglish},
	{language.Japanese, LanguageJapanese},
	{language.French, LanguageFrench},
	{language.Spanish, LanguageSpanish},
	{language.German, LanguageGerman},
	{language.Italian, LanguageItalian},
	{language.Dutch, LanguageDutch},
	{language.BrazilianPortuguese, LanguagePortugueseBrazil},
	{language.EuropeanPortuguese, LanguagePortuguesePortugal},
	{language.Russian, LanguageRussian},
	{language.Korean, LanguageKorean},
	{language.TraditionalChinese, LanguageChineseTraditional},
	{language.SimplifiedChinese, LanguageChineseSimplified},
	{language.MustParse("eo"), LanguageEsperanto},
	{language.Polish, LanguagePolish},
	{language.Vietnamese, LanguageVietnamese},
	{language.Arabic, LanguageArabic},
	{language.Greek, LanguageGreek},
	{language.Turkish, LanguageTurkish},
	{language.Slovak, LanguageSlovak},
	{language.Persian, LanguagePersian},
	{language.Hebrew, LanguageHebrew},
	{language.MustParse("ast"), LanguageAsturian},
	{language.Finnish, LanguageFinnish},
	{language.Indonesian, LanguageIndonesian},
	{language.Swedish, LanguageSwedish},
	{language.Ukrainian, LanguageUkrainian},
	{language.Czech, LanguageCzech},
	{language.MustParse("ca"), LanguageCatalan},
	{language.Hungarian, LanguageHungarian},
}

var languageMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(languageTags))
	for i, l := range languageTags {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// LanguageFromTag maps a BCP 47 tag such as "pt-BR" to the closest core
// language. Unparseable or unmatched tags give English.
func LanguageFromTag(tag string) uint32 {
	if tag == "" {
		return LanguageEnglish
	}
	t, err := language.Parse(tag)
	if err != nil {
		return LanguageEnglish
	}
	_, idx, conf := languageMatcher.Match(t)
	if conf == language.No {
		return LanguageEnglish
	}
	return languageTags[idx].id
}
