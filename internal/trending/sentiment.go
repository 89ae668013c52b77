package trending

import "strings"

// Polarity is the sentiment of one text sample.
type Polarity struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// Sentiment labels.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// Score rates text with a small opinion lexicon. Polarity is in [-1, 1];
// subjectivity is the share of opinion words among all words, capped at 1.
// A negator directly before an opinion word flips it.
func Score(text string) Polarity {
	words := strings.Fields(punctRe.ReplaceAllString(strings.ToLower(text), " "))
	if len(words) == 0 {
		return Polarity{}
	}

	var sum float64
	var hits int
	for i, w := range words {
		v, ok := lexicon[w]
		if !ok {
			continue
		}
		if i > 0 {
			if _, neg := negators[words[i-1]]; neg {
				v = -v
			}
		}
		sum += v
		hits++
	}
	if hits == 0 {
		return Polarity{}
	}
	p := sum / float64(hits)
	s := float64(hits) * 4 / float64(len(words))
	return Polarity{Polarity: clamp(p, -1, 1), Subjectivity: clamp(s, 0, 1)}
}

// Label maps an average polarity to a sentiment label.
func Label(polarity float64) string {
	switch {
	case polarity > 0.1:
		return LabelPositive
	case polarity < -0.1:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

var negators = toSet("not", "no", "never", "dont", "don", "isnt", "wasnt", "cant")

var lexicon = map[string]float64{
	"good": 0.7, "great": 0.8, "excellent": 1, "amazing": 0.6, "awesome": 1, "love": 0.5,
	"best": 1, "better": 0.5, "nice": 0.6, "cool": 0.35, "happy": 0.8, "wonderful": 1,
	"fantastic": 0.4, "impressive": 1, "helpful": 0.5, "useful": 0.3, "easy": 0.43,
	"fast": 0.2, "beautiful": 0.85, "perfect": 1, "interesting": 0.5, "exciting": 0.3,
	"success": 0.3, "successful": 0.75, "win": 0.8, "growth": 0.3, "innovative": 0.5,
	"breakthrough": 0.5, "recommend": 0.4, "thanks": 0.2, "glad": 0.5, "strong": 0.43,
	"bad": -0.7, "terrible": -1, "awful": -1, "worst": -1, "worse": -0.4, "hate": -0.8,
	"poor": -0.4, "sad": -0.5, "angry": -0.5, "horrible": -1, "broken": -0.4, "fail": -0.5,
	"failed": -0.5, "failure": -0.3, "slow": -0.3, "difficult": -0.5, "hard": -0.29,
	"crisis": -0.3, "disaster": -0.7, "scam": -0.8, "crash": -0.6, "risk": -0.2,
	"dangerous": -0.6, "wrong": -0.5, "problem": -0.2, "issue": -0.1, "boring": -1,
	"annoying": -0.8, "useless": -0.5, "expensive": -0.5, "loss": -0.4, "decline": -0.3,
}
