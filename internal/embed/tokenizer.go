package embed

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSeqLen bounds the token sequence handed to the model, including the
// [CLS] and [SEP] markers. Log lines are short; 128 covers the message length
// bound with room to spare.
const maxSeqLen = 128

const maxWordLen = 100

// tokenizer performs BERT-style WordPiece tokenization against a vocab.txt
// vocabulary. Immutable after construction.
type tokenizer struct {
	ids   map[string]int64
	unkID int64
	clsID int64
	sepID int64
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	f, err := os.Open(vocabPath) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer func() { _ = f.Close() }()

	ids := make(map[string]int64, 32768)
	sc := bufio.NewScanner(f)
	var next int64
	for sc.Scan() {
		ids[strings.TrimRight(sc.Text(), "\r\n")] = next
		next++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}

	t := &tokenizer{ids: ids}
	var ok bool
	if t.unkID, ok = ids["[UNK]"]; !ok {
		return nil, fmt.Errorf("vocab missing [UNK] token")
	}
	if t.clsID, ok = ids["[CLS]"]; !ok {
		return nil, fmt.Errorf("vocab missing [CLS] token")
	}
	if t.sepID, ok = ids["[SEP]"]; !ok {
		return nil, fmt.Errorf("vocab missing [SEP] token")
	}
	return t, nil
}

// tokenize converts text into padded-free ID sequences of the actual length:
// [CLS] subwords... [SEP], truncated to maxSeqLen. token_type_ids are all
// zero for single-sequence input.
func (t *tokenizer) tokenize(text string) (inputIDs, attentionMask, tokenTypeIDs []int64, seqLen int64) {
	subwords := t.wordpiece(basicTokenize(text))
	if len(subwords) > maxSeqLen-2 {
		subwords = subwords[:maxSeqLen-2]
	}

	n := len(subwords) + 2
	inputIDs = make([]int64, n)
	attentionMask = make([]int64, n)
	tokenTypeIDs = make([]int64, n)

	inputIDs[0] = t.clsID
	for i, sw := range subwords {
		inputIDs[i+1] = t.lookup(sw)
	}
	inputIDs[n-1] = t.sepID
	for i := range attentionMask {
		attentionMask[i] = 1
	}

	return inputIDs, attentionMask, tokenTypeIDs, int64(n)
}

func (t *tokenizer) lookup(token string) int64 {
	if id, ok := t.ids[token]; ok {
		return id
	}
	return t.unkID
}

// wordpiece greedily decomposes each basic token into the longest vocabulary
// subwords; a token with no valid decomposition becomes [UNK].
func (t *tokenizer) wordpiece(tokens []string) []string {
	var out []string
	for _, token := range tokens {
		runes := []rune(token)
		if len(runes) == 0 {
			continue
		}
		if len(runes) > maxWordLen {
			out = append(out, "[UNK]")
			continue
		}

		var parts []string
		start := 0
		for start < len(runes) {
			end := len(runes)
			matched := ""
			for end > start {
				sub := string(runes[start:end])
				if start > 0 {
					sub = "##" + sub
				}
				if _, ok := t.ids[sub]; ok {
					matched = sub
					break
				}
				end--
			}
			if matched == "" {
				parts = nil
				break
			}
			parts = append(parts, matched)
			start = end
		}

		if parts == nil {
			out = append(out, "[UNK]")
		} else {
			out = append(out, parts...)
		}
	}
	return out
}

// basicTokenize cleans, lowercases, strips accents, and splits on whitespace
// and punctuation.
func basicTokenize(text string) []string {
	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == 0xFFFD || unicode.IsControl(r):
			// drop
		case unicode.IsSpace(r):
			cleaned.WriteRune(' ')
		default:
			cleaned.WriteRune(r)
		}
	}

	lowered := stripAccents(strings.ToLower(cleaned.String()))

	var tokens []string
	for _, word := range strings.Fields(lowered) {
		tokens = append(tokens, splitOnPunct(word)...)
	}
	return tokens
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitOnPunct splits a word so each punctuation rune becomes its own token,
// matching the BERT basic tokenizer.
func splitOnPunct(word string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range word {
		if isPunct(r) {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// isPunct mirrors BERT's definition: unicode punctuation plus the ASCII
// symbol ranges it treats as punctuation.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
