// Package index implements an incremental TF-IDF inverted index over the
// messages of a single session.
//
// Inserts update postings and the corpus document-frequency table in
// amortized-constant work per token; there is no rebuild step. Queries
// score only documents that share at least one term with the query, so
// cost scales with matching postings rather than corpus size.
package index

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Posting records one document's frequency for a term.
type Posting struct {
	DocID uint64
	TF    int
}

// Result is one scored document returned by Query.
type Result struct {
	DocID uint64
	Score float64
}

// TermIndex maps normalized terms to postings, with a per-term document
// frequency counter for IDF. Documents are identified by message id and
// indexed exactly once.
type TermIndex struct {
	postings map[string][]Posting
	docFreq  map[string]int
	docs     map[uint64]map[string]int
	docCount int
}

// New creates an empty index.
func New() *TermIndex {
	return &TermIndex{
		postings: make(map[string][]Posting),
		docFreq:  make(map[string]int),
		docs:     make(map[uint64]map[string]int),
	}
}

// Add indexes a document. Re-adding an already-indexed id is a no-op, so
// replaying a session through Add is safe. Documents that tokenize to
// nothing are skipped.
func (ix *TermIndex) Add(id uint64, text string) {
	if _, ok := ix.docs[id]; ok {
		return
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return
	}

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	for term, count := range tf {
		ix.postings[term] = append(ix.postings[term], Posting{DocID: id, TF: count})
		ix.docFreq[term]++
	}
	ix.docs[id] = tf
	ix.docCount++
}

// Query scores every indexed document sharing at least one term with the
// query and returns the top k by cosine similarity over tf-idf vectors,
// score descending, ties broken by more-recent (higher) document id.
// At most one result is returned per document id.
func (ix *TermIndex) Query(text string, k int) []Result {
	if k <= 0 || ix.docCount == 0 {
		return nil
	}

	queryTF := make(map[string]int)
	for _, tok := range Tokenize(text) {
		queryTF[tok]++
	}
	if len(queryTF) == 0 {
		return nil
	}

	queryVec := make(map[string]float64, len(queryTF))
	var queryNorm float64
	for term, count := range queryTF {
		w := float64(count) * ix.idf(term)
		queryVec[term] = w
		queryNorm += w * w
	}
	queryNorm = math.Sqrt(queryNorm)
	if queryNorm == 0 {
		return nil
	}

	// Candidates: union of postings for the query's terms.
	candidates := make(map[uint64]struct{})
	for term := range queryVec {
		for _, p := range ix.postings[term] {
			candidates[p.DocID] = struct{}{}
		}
	}

	results := make([]Result, 0, len(candidates))
	for id := range candidates {
		score := ix.cosine(queryVec, queryNorm, ix.docs[id])
		if score > 0 {
			results = append(results, Result{DocID: id, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID > results[j].DocID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// DocumentCount returns the number of indexed documents.
func (ix *TermIndex) DocumentCount() int { return ix.docCount }

// Contains reports whether a document id has been indexed.
func (ix *TermIndex) Contains(id uint64) bool {
	_, ok := ix.docs[id]
	return ok
}

// idf is the smoothed inverse document frequency, always positive for
// terms present in the corpus.
func (ix *TermIndex) idf(term string) float64 {
	df := ix.docFreq[term]
	return math.Log(float64(ix.docCount+1)/float64(df+1)) + 1
}

// cosine computes similarity between the query vector and one document's
// term-frequency map, weighting document terms by current IDF.
func (ix *TermIndex) cosine(queryVec map[string]float64, queryNorm float64, docTF map[string]int) float64 {
	var dot, docNorm float64
	for term, count := range docTF {
		w := float64(count) * ix.idf(term)
		docNorm += w * w
		if qw, ok := queryVec[term]; ok {
			dot += qw * w
		}
	}
	if dot == 0 || docNorm == 0 {
		return 0
	}
	return dot / (queryNorm * math.Sqrt(docNorm))
}

// Tokenize splits text into normalized terms: case-folded runs of
// letters, digits, and underscores, with camelCase identifiers also
// emitting their lowercased humps so "ParseConfig" matches "parse".
func Tokenize(text string) []string {
	var tokens []string
	var current []rune

	flush := func() {
		if len(current) == 0 {
			return
		}
		word := string(current)
		lower := strings.ToLower(word)
		tokens = append(tokens, lower)
		for _, part := range splitSubtokens(word) {
			if part != lower {
				tokens = append(tokens, part)
			}
		}
		current = current[:0]
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current = append(current, r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// splitSubtokens breaks an identifier on underscores and lower-to-upper
// case boundaries, returning lowercased parts of length > 1.
func splitSubtokens(word string) []string {
	var parts []string
	var current []rune
	runes := []rune(word)

	emit := func() {
		if len(current) > 1 {
			parts = append(parts, strings.ToLower(string(current)))
		}
		current = current[:0]
	}

	for i, r := range runes {
		switch {
		case r == '_':
			emit()
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			emit()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	emit()

	if len(parts) == 1 && parts[0] == strings.ToLower(word) {
		return nil
	}
	return parts
}
