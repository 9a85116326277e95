package alignment

// languageMeta holds family/script metadata for the cultural sub-score.
type languageMeta struct {
	family string
	script string
}

// languageTable is a fixed table of known ISO 639-1 codes. Languages absent
// from the table are still valid opaque keys everywhere else in the engine;
// only the cultural lookup falls back to a neutral score for them.
var languageTable = map[string]languageMeta{
	"en": {family: "Indo-European", script: "Latin"},
	"de": {family: "Indo-European", script: "Latin"},
	"nl": {family: "Indo-European", script: "Latin"},
	"fr": {family: "Indo-European", script: "Latin"},
	"es": {family: "Indo-European", script: "Latin"},
	"pt": {family: "Indo-European", script: "Latin"},
	"it": {family: "Indo-European", script: "Latin"},
	"ru": {family: "Indo-European", script: "Cyrillic"},
	"hi": {family: "Indo-European", script: "Devanagari"},
	"id": {family: "Austronesian", script: "Latin"},
	"ms": {family: "Austronesian", script: "Latin"},
	"jv": {family: "Austronesian", script: "Latin"},
	"tl": {family: "Austronesian", script: "Latin"},
	"zh": {family: "Sino-Tibetan", script: "Han"},
	"ja": {family: "Japonic", script: "Kana"},
	"ko": {family: "Koreanic", script: "Hangul"},
	"ar": {family: "Afro-Asiatic", script: "Arabic"},
	"he": {family: "Afro-Asiatic", script: "Hebrew"},
	"tr": {family: "Turkic", script: "Latin"},
	"vi": {family: "Austroasiatic", script: "Latin"},
	"th": {family: "Kra-Dai", script: "Thai"},
	"fi": {family: "Uralic", script: "Latin"},
	"hu": {family: "Uralic", script: "Latin"},
	"sw": {family: "Niger-Congo", script: "Latin"},
}

// neutralCulturalScore is used when either language is outside the table.
const neutralCulturalScore = 0.5

// culturalScore is a lookup-based similarity over language family and
// script. Identical languages score 1; known pairs score on shared family
// and script; unknown languages default to the neutral mid-range score.
func culturalScore(sourceLang, targetLang string) float64 {
	if sourceLang == targetLang {
		return 1
	}
	src, srcOK := languageTable[sourceLang]
	dst, dstOK := languageTable[targetLang]
	if !srcOK || !dstOK {
		return neutralCulturalScore
	}

	score := 0.2
	if src.family == dst.family {
		score += 0.4
	}
	if src.script == dst.script {
		score += 0.4
	}
	return score
}
