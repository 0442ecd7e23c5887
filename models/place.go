package models

import "strconv"

// CandidatePlace holds an unverified place as read from the results list and
// its detail view. It lives only for the duration of a run.
type CandidatePlace struct {
	ExternalID  string
	URL         string
	Name        string
	Address     string
	Category    string
	Coordinates *Coordinates
	// Reviews is the bounded review sample in source order.
	Reviews  []string
	Position int
	Query    string
}

// Verdict is the tri-state outcome of shower verification.
type Verdict string

const (
	VerdictConfirmed Verdict = "CONFIRMED"
	VerdictRejected  Verdict = "REJECTED"
	VerdictUncertain Verdict = "UNCERTAIN"
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictConfirmed, VerdictRejected, VerdictUncertain:
		return true
	}
	return false
}

// VerificationResult pairs a candidate with its verdict and the evidence that produced it.
type VerificationResult struct {
	ExternalID string
	Verdict    Verdict
	// Evidence lists the matched keywords or qualifier phrases.
	Evidence []string
	// Snippets are the normalised sentences the evidence came from.
	Snippets []string
	// Free is a best-effort free/paid hint; nil when unknown or conflicting.
	Free *bool
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 5, 64)
}
