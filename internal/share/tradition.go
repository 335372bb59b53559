package share

// MaxTraditions is the largest number of traditions one snapshot may carry.
const MaxTraditions = 7

// Traditions is the closed vocabulary of scholar traditions, in display order.
var Traditions = []string{
	"Buddhist",
	"Taoist",
	"Hindu",
	"Christian",
	"Muslim",
	"Jewish",
	"Sikh",
	"Shinto",
	"Confucian",
	"Baha'i",
	"Jain",
	"Zoroastrian",
}

var knownTraditions = func() map[string]struct{} {
	out := make(map[string]struct{}, len(Traditions))
	for _, name := range Traditions {
		out[name] = struct{}{}
	}
	return out
}()

// IsTradition reports whether name belongs to the vocabulary.
func IsTradition(name string) bool {
	_, ok := knownTraditions[name]
	return ok
}
