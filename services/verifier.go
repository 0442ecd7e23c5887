package services

import (
	"regexp"
	"strings"

	"shower-scraper/models"
	"shower-scraper/utils"
)

// DefaultShowerKeywords are the phrases whose mention in a review confirms a shower.
var DefaultShowerKeywords = []string{
	"shower",
	"outdoor shower",
	"beach shower",
	"rinse station",
	"rinse off",
	"foot wash",
	"change room",
	"changing room",
	"bathhouse",
}

// DefaultWeakTerms hint at amenities without naming a shower.
var DefaultWeakTerms = []string{
	"facilities",
	"amenities",
	"toilet",
	"restroom",
	"bathroom",
	"washroom",
	"public bath",
	"amenities block",
}

var (
	// negators may precede a keyword within negationWindow tokens.
	negators = map[string]struct{}{
		"no": {}, "not": {}, "without": {}, "never": {}, "none": {}, "nor": {},
		"dont": {}, "doesnt": {}, "didnt": {}, "isnt": {}, "arent": {}, "wasnt": {},
		"werent": {}, "cant": {}, "couldnt": {}, "lack": {}, "lacks": {}, "missing": {},
	}
	// conjunctions let a negator reach past a coordinated modifier, as in
	// "no outdoor or indoor showers".
	conjunctions = map[string]struct{}{"or": {}, "and": {}, "nor": {}}
	// outOfService may follow a keyword within afterWindow tokens.
	outOfService = regexp.MustCompile(`\b(closed|broken|removed|shut|disabled|unavailable|gone|out of order|out of service|(not|isnt|wasnt|arent|werent) (working|open|available|usable)|(dont|doesnt|didnt) work)\b`)

	freeRegexp    = regexp.MustCompile(`\b(free|free of charge|no charge|no cost|complimentary)\b`)
	notFreeRegexp = regexp.MustCompile(`\b(not|isnt|arent|wasnt) free\b`)
	paidRegexp    = regexp.MustCompile(`\b(paid|coin operated|coins?|tokens?|fee|fees|costs?|charged?|cents|\d+ dollars?)\b`)
)

const (
	negationWindow = 2
	afterWindow    = 4
)

// VerifierConfig controls the shower classifier.
type VerifierConfig struct {
	// Keywords confirm a shower; nil means DefaultShowerKeywords.
	Keywords []string
	// WeakTerms make an otherwise negative sample UNCERTAIN; nil means DefaultWeakTerms.
	WeakTerms []string
	// MinReviewsForRejection is the smallest review sample that may produce REJECTED.
	MinReviewsForRejection int
}

type keyword struct {
	label string
	re    *regexp.Regexp
}

// Verifier classifies candidates as CONFIRMED, REJECTED or UNCERTAIN from
// their review sample. It is deterministic and holds no per-call state.
type Verifier struct {
	cfg       VerifierConfig
	keywords  []keyword
	weakTerms []keyword
	logger    *utils.Logger
}

// NewVerifier compiles the keyword sets.
func NewVerifier(cfg VerifierConfig, logger *utils.Logger) *Verifier {
	if cfg.Keywords == nil {
		cfg.Keywords = DefaultShowerKeywords
	}
	if cfg.WeakTerms == nil {
		cfg.WeakTerms = DefaultWeakTerms
	}
	if cfg.MinReviewsForRejection < 1 {
		cfg.MinReviewsForRejection = 1
	}
	return &Verifier{
		cfg:       cfg,
		keywords:  compileKeywords(cfg.Keywords),
		weakTerms: compileKeywords(cfg.WeakTerms),
		logger:    logger.With("verifier"),
	}
}

// compileKeywords turns phrases into word-bounded patterns whose last word
// also matches its plural.
func compileKeywords(phrases []string) []keyword {
	out := make([]keyword, 0, len(phrases))
	seen := make(map[string]struct{})
	for _, p := range phrases {
		norm := utils.NormaliseKey(p)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		words := strings.Fields(norm)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		pattern := `\b` + strings.Join(words, " ") + `(?:s|es)?\b`
		out = append(out, keyword{label: norm, re: regexp.MustCompile(pattern)})
	}
	return out
}

// Verify classifies one candidate:
//   - a non-negated keyword in any review clause → CONFIRMED
//   - no reviews, too few reviews, a weak amenity term, or a keyword in the
//     name/category → UNCERTAIN
//   - otherwise → REJECTED, with any negated mentions as evidence
func (v *Verifier) Verify(c models.CandidatePlace) models.VerificationResult {
	res := models.VerificationResult{ExternalID: c.ExternalID}

	var (
		confirmed []string
		negated   []string
		weak      []string
		free      int
		paid      int
	)
	labels := utils.NewSeenSet()
	negLabels := utils.NewSeenSet()
	weakLabels := utils.NewSeenSet()

	for _, review := range c.Reviews {
		for _, clause := range clauses(review) {
			hit := false
			for _, kw := range v.keywords {
				for _, loc := range kw.re.FindAllStringIndex(clause, -1) {
					if phrase, neg := negation(clause, loc); neg {
						if negLabels.Add(phrase) {
							negated = append(negated, phrase)
						}
						continue
					}
					hit = true
					if labels.Add(kw.label) {
						res.Evidence = append(res.Evidence, kw.label)
					}
				}
			}
			if hit {
				confirmed = append(confirmed, clause)
				if f := freeHint(clause); f != nil {
					if *f {
						free++
					} else {
						paid++
					}
				}
				continue
			}
			for _, w := range v.weakTerms {
				for _, loc := range w.re.FindAllStringIndex(clause, -1) {
					if _, neg := negation(clause, loc); neg {
						continue
					}
					if weakLabels.Add(w.label) {
						weak = append(weak, w.label)
					}
				}
			}
		}
	}

	meta := v.metadataMentions(c)
	switch {
	case len(confirmed) > 0:
		res.Verdict = models.VerdictConfirmed
		res.Snippets = confirmed
		switch {
		case free > 0 && paid == 0:
			t := true
			res.Free = &t
		case paid > 0 && free == 0:
			f := false
			res.Free = &f
		}

	case len(c.Reviews) == 0:
		res.Verdict = models.VerdictUncertain
		res.Evidence = []string{"no reviews"}

	case len(c.Reviews) < v.cfg.MinReviewsForRejection:
		res.Verdict = models.VerdictUncertain
		res.Evidence = append([]string{"too few reviews"}, negated...)

	case len(weak) > 0:
		res.Verdict = models.VerdictUncertain
		res.Evidence = append(weak, negated...)

	case meta != "":
		res.Verdict = models.VerdictUncertain
		res.Evidence = append([]string{"name: " + meta}, negated...)

	default:
		res.Verdict = models.VerdictRejected
		res.Evidence = negated
	}

	v.logger.Debug("%s (%s): %s %v", c.Name, c.ExternalID, res.Verdict, res.Evidence)
	return res
}

// metadataMentions returns the first keyword found in the name or category.
func (v *Verifier) metadataMentions(c models.CandidatePlace) string {
	text := utils.NormaliseKey(c.Name + " " + c.Category)
	for _, kw := range v.keywords {
		if kw.re.MatchString(text) {
			return kw.label
		}
	}
	return ""
}

// clauses splits a review into normalised sentences and comma clauses.
func clauses(review string) []string {
	var out []string
	for _, sentence := range utils.SplitSentences(review) {
		for _, part := range strings.Split(sentence, ",") {
			if norm := utils.NormaliseKey(part); norm != "" {
				out = append(out, norm)
			}
		}
	}
	return out
}

// negation reports whether the keyword at loc is negated, returning the
// negated phrase for evidence.
func negation(clause string, loc []int) (string, bool) {
	before := strings.Fields(clause[:loc[0]])
	after := strings.Fields(clause[loc[1]:])
	kw := clause[loc[0]:loc[1]]

	budget := negationWindow
	for i := len(before) - 1; i >= 0 && budget > 0; i-- {
		if _, ok := negators[before[i]]; ok {
			return strings.Join(append(before[i:], kw), " "), true
		}
		if _, ok := conjunctions[before[i]]; ok {
			budget += 2
		}
		budget--
	}

	if len(after) > afterWindow {
		after = after[:afterWindow]
	}
	tail := strings.Join(after, " ")
	if m := outOfService.FindString(tail); m != "" {
		return kw + " " + tail[:strings.Index(tail, m)+len(m)], true
	}
	return "", false
}

// freeHint reads a free/paid mention from a confirming clause.
func freeHint(clause string) *bool {
	if notFreeRegexp.MatchString(clause) {
		f := false
		return &f
	}
	isFree := freeRegexp.MatchString(clause)
	isPaid := paidRegexp.MatchString(freeRegexp.ReplaceAllString(clause, " "))
	switch {
	case isFree && !isPaid:
		t := true
		return &t
	case isPaid && !isFree:
		f := false
		return &f
	}
	return nil
}
