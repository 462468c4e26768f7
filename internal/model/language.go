package model

// Language enumerates the languages the code runner accepts.
type Language string

const (
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
)

var supportedLanguages = map[Language]struct{}{
	LanguageC:          {},
	LanguageCpp:        {},
	LanguageGo:         {},
	LanguageJava:       {},
	LanguageJavaScript: {},
	LanguagePython:     {},
}

// ParseLanguage returns the Language for the given identifier, or false
// if the language is not supported.
func ParseLanguage(s string) (Language, bool) {
	l := Language(s)
	_, ok := supportedLanguages[l]
	return l, ok
}
