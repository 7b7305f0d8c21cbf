// Package searchidx builds an in-memory inverted index over normalized
// document text and answers ranked term queries. The index is append-only:
// built once per batch, read-only during query.
package searchidx

import "sort"

// Document is the normalized record kept for each indexed id.
type Document struct {
	ID    int
	Title string
	Text  string
}

// Result pairs a matched document with its query score.
type Result struct {
	Score    int
	Document Document
}

// Index maps tokens to the documents containing them. Postings carry per-
// document term counts so queries rank by how often terms appear, and a
// document id never occurs twice in one posting list.
type Index struct {
	postings  map[string]map[int]int
	documents map[int]Document
}

// New returns an empty index.
func New() *Index {
	return &Index{
		postings:  make(map[string]map[int]int),
		documents: make(map[int]Document),
	}
}

// AddDocument tokenizes the document's title and tag-stripped HTML and
// records its postings. Re-adding an id replaces its stored record; postings
// accumulate per token occurrence.
func (ix *Index) AddDocument(id int, title, html string) {
	text := StripTags(html)
	ix.documents[id] = Document{ID: id, Title: title, Text: text}

	for _, token := range Tokenize(title + " " + text) {
		posting, ok := ix.postings[token]
		if !ok {
			posting = make(map[int]int)
			ix.postings[token] = posting
		}
		posting[id]++
	}
}

// Len reports the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.documents)
}

// Search tokenizes the query the same way documents are tokenized, scores
// each candidate by the summed term counts of matched tokens, and returns
// results in descending score order. Ties are unordered. An empty or
// all-short-token query returns no results.
func (ix *Index) Search(query string) []Result {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[int]int)
	for _, token := range tokens {
		for id, count := range ix.postings[token] {
			scores[id] += count
		}
	}
	if len(scores) == 0 {
		return nil
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, Result{Score: score, Document: ix.documents[id]})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
