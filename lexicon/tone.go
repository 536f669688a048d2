package lexicon

// Tone classes.
const (
	ToneA   = "a"
	ToneI   = "i"
	ToneU   = "u"
	ToneE   = "e"
	ToneO   = "o"
	ToneXtu = "xtu" // sokuon ッ
	ToneN   = "n"   // moraic ン
)

const longVowel = 'ー'

var kanaTones = map[rune]string{}

func init() {
	groups := []struct {
		tone string
		kana string
	}{
		{ToneA, "アカサタナハマヤラワガザダバパャァ"},
		{ToneI, "イキシチニヒミリギジヂビピィ"},
		{ToneU, "ウクスツヌフムユルグズヅブプュゥヴ"},
		{ToneE, "エケセテネヘメレゲゼデベペェ"},
		{ToneO, "オコソトノホモヨロヲゴゾドボポョォ"},
		{ToneXtu, "ッ"},
		{ToneN, "ン"},
	}
	for _, g := range groups {
		for _, r := range g.kana {
			kanaTones[r] = g.tone
		}
	}
}

// small kana fold into the preceding mora.
var smallKana = map[rune]bool{
	'ァ': true, 'ィ': true, 'ゥ': true, 'ェ': true, 'ォ': true,
	'ャ': true, 'ュ': true, 'ョ': true,
}

// ConvertTones converts katakana into one tone per mora and returns the
// morae it split the input into. A small kana replaces the tone of the mora
// before it and joins that mora; ー repeats the previous tone. Runes with no
// tone, including hiragana and latin letters, are dropped.
func ConvertTones(kana string) (tones, morae []string) {
	for _, r := range kana {
		if r == longVowel {
			if len(tones) > 0 {
				morae = append(morae, string(r))
				tones = append(tones, tones[len(tones)-1])
			}
			continue
		}
		t, ok := kanaTones[r]
		if !ok {
			continue
		}
		if smallKana[r] && len(tones) > 0 {
			tones = tones[:len(tones)-1]
		}
		if smallKana[r] && len(morae) > 0 {
			morae[len(morae)-1] += string(r)
		} else {
			morae = append(morae, string(r))
		}
		tones = append(tones, t)
	}
	return tones, morae
}
