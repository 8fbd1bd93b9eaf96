package translation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkChars keeps fragments under MyMemory's 500-character
// query limit with headroom for URL encoding.
const DefaultMaxChunkChars = 420

const (
	sepParagraph = "\n\n"
	sepSentence  = " "
)

// Fragment is one provider-sized piece of a longer text. Sep is the
// separator that preceded the fragment in the source and is restored by
// Join, so reassembly is lossless modulo whitespace normalization.
type Fragment struct {
	Text string
	Sep  string
}

var (
	paragraphBoundary = regexp.MustCompile(`\n[\t ]*\n+`)
	sentenceBoundary  = regexp.MustCompile(`([.!?…]["')\]]?)[\t ]+`)
)

// Chunk splits text into ordered fragments of at most maxChars runes,
// preferring paragraph boundaries, then sentence boundaries, with hard
// character cuts only for single words exceeding the budget. It never
// produces an empty fragment and is deterministic for a given input.
func Chunk(text string, maxChars int) []Fragment {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil
	}

	var fragments []Fragment
	for _, para := range paragraphBoundary.Split(normalized, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		parts := chunkParagraph(para, maxChars)
		if len(parts) == 0 {
			continue
		}
		if len(fragments) > 0 {
			parts[0].Sep = sepParagraph
		}
		fragments = append(fragments, parts...)
	}
	return fragments
}

// Join concatenates fragment texts with their recorded separators. The
// first fragment's separator is always empty.
func Join(fragments []Fragment) string {
	var b strings.Builder
	for i, fragment := range fragments {
		if i > 0 {
			b.WriteString(fragment.Sep)
		}
		b.WriteString(fragment.Text)
	}
	return b.String()
}

func chunkParagraph(para string, maxChars int) []Fragment {
	if utf8.RuneCountInString(para) <= maxChars {
		return []Fragment{{Text: para}}
	}

	// Sentences first; a sentence over budget falls back to its words.
	tokens := make([]string, 0, 8)
	for _, sentence := range splitSentences(para) {
		if utf8.RuneCountInString(sentence) > maxChars {
			tokens = append(tokens, strings.Fields(sentence)...)
			continue
		}
		tokens = append(tokens, sentence)
	}

	var fragments []Fragment
	var current strings.Builder
	currentRunes := 0
	flush := func() {
		if current.Len() == 0 {
			return
		}
		fragments = append(fragments, Fragment{Text: current.String(), Sep: sepSentence})
		current.Reset()
		currentRunes = 0
	}

	for _, token := range tokens {
		tokenRunes := utf8.RuneCountInString(token)
		if tokenRunes > maxChars {
			// Single word longer than the budget: hard rune cuts, glued
			// back together on reassembly with empty separators.
			flush()
			runes := []rune(token)
			first := true
			for len(runes) > 0 {
				n := maxChars
				if n > len(runes) {
					n = len(runes)
				}
				sep := ""
				if first {
					sep = sepSentence
					first = false
				}
				fragments = append(fragments, Fragment{Text: string(runes[:n]), Sep: sep})
				runes = runes[n:]
			}
			continue
		}
		if currentRunes > 0 && currentRunes+1+tokenRunes > maxChars {
			flush()
		}
		if currentRunes > 0 {
			current.WriteByte(' ')
			currentRunes++
		}
		current.WriteString(token)
		currentRunes += tokenRunes
	}
	flush()

	if len(fragments) > 0 {
		fragments[0].Sep = ""
	}
	return fragments
}

func splitSentences(para string) []string {
	marked := sentenceBoundary.ReplaceAllString(para, "$1\x1f")
	parts := strings.Split(marked, "\x1f")
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sentences = append(sentences, part)
	}
	return sentences
}
