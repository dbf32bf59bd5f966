// Package detect recognises ticker-like tokens in plain text.
//
// A token is 1-5 uppercase ASCII letters, optionally followed by an
// exchange-class suffix of "." plus 1-2 uppercase letters (BRK.A). Matches
// sit on word boundaries: a letter, digit, or underscore of any script on
// either side disqualifies the run. Candidates on the exclusion policy, or
// whose base is shorter than MinTokenLen, are never surfaced.
package detect

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

const (
	maxBaseLen   = 5
	maxSuffixLen = 2
)

// Candidate is a raw token match and its byte offsets in the scanned text.
type Candidate struct {
	Token string
	Start int
	End   int
}

// Matcher applies the token grammar and an exclusion policy. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	policy *Policy
}

// NewMatcher returns a Matcher using policy, or DefaultPolicy when nil.
func NewMatcher(policy *Policy) *Matcher {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Matcher{policy: policy}
}

// Policy returns the exclusion policy in use.
func (m *Matcher) Policy() *Policy {
	return m.policy
}

// Matches lazily yields candidates in text from left to right.
func (m *Matcher) Matches(text string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		i := 0
		for i < len(text) {
			if !isUpper(text[i]) {
				_, size := utf8.DecodeRuneInString(text[i:])
				i += size
				continue
			}
			if i > 0 && wordRuneBefore(text, i) {
				i = skipWord(text, i)
				continue
			}

			j := i
			for j < len(text) && isUpper(text[j]) {
				j++
			}
			if j-i > maxBaseLen || wordRuneAt(text, j) {
				i = skipWord(text, j)
				continue
			}

			end := j
			if j+1 < len(text) && text[j] == '.' && isUpper(text[j+1]) {
				k := j + 1
				for k < len(text) && isUpper(text[k]) {
					k++
				}
				if k-(j+1) <= maxSuffixLen && !wordRuneAt(text, k) {
					end = k
				}
			}

			start := i
			i = end
			raw := text[start:end]
			if m.policy.Excluded(raw) {
				continue
			}
			if !yield(Candidate{Token: raw, Start: start, End: end}) {
				return
			}
		}
	}
}

// FindAll collects every candidate in text.
func (m *Matcher) FindAll(text string) []Candidate {
	var out []Candidate
	for c := range m.Matches(text) {
		out = append(out, c)
	}
	return out
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordRuneAt reports whether a word rune starts at byte offset i.
func wordRuneAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isWordRune(r)
}

// wordRuneBefore reports whether the rune ending at byte offset i is a word rune.
func wordRuneBefore(text string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return isWordRune(r)
}

// skipWord advances past the word that contains byte offset i.
func skipWord(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			return i
		}
		i += size
	}
	return i
}
