// Package pairing groups a flat material list into document/audio
// pairs for the learn view.
//
// Filenames in the course corpus follow a "NN - description"
// convention for both a document and its companion audio, so pairs are
// recovered by title similarity and ordered by the leading number. The
// heuristic is best-effort by design: ambiguous titles can mis-pair,
// and no correction mechanism exists.
package pairing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/englishstudent/client/internal/models"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// BuildPairs turns one level's (or one course's ungrouped) materials
// into an ordered pair sequence. Pure: never fails, empty in gives
// empty out. Non-document, non-audio materials are dropped here; they
// stay reachable through the single-material viewer.
func BuildPairs(materials []models.Material) []models.MaterialPair {
	var documents, audios []models.Material
	for _, m := range materials {
		switch {
		case m.IsDocument():
			documents = append(documents, m)
		case m.IsAudio():
			audios = append(audios, m)
		}
	}

	pairs := make([]models.MaterialPair, 0, len(documents)+len(audios))
	consumed := make([]bool, len(audios))

	for _, doc := range documents {
		doc := doc
		pair := models.MaterialPair{Document: &doc, Title: stripExtension(doc.Title)}

		docName := normalizeTitle(doc.Title)
		for i := range audios {
			if consumed[i] {
				continue
			}
			if titlesMatch(docName, normalizeTitle(audios[i].Title)) {
				consumed[i] = true
				pair.Audio = &audios[i]
				break
			}
		}

		pairs = append(pairs, pair)
	}

	// Audios nothing claimed become audio-only pairs after all
	// document-derived ones.
	for i := range audios {
		if !consumed[i] {
			pairs = append(pairs, models.MaterialPair{
				Audio: &audios[i],
				Title: stripExtension(audios[i].Title),
			})
		}
	}

	// Order by the first number in the title; no digits sorts as 0.
	// The sort is stable so equal numbers keep their relative order.
	sort.SliceStable(pairs, func(i, j int) bool {
		return leadingNumber(pairs[i].Title) < leadingNumber(pairs[j].Title)
	})

	return pairs
}

// titlesMatch applies the pairing heuristic to two normalized titles:
// either one contains the other, or their first whitespace-delimited
// tokens are equal.
func titlesMatch(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return firstToken(a) == firstToken(b)
}

// normalizeTitle lower-cases a title and strips the known extension
// for comparison.
func normalizeTitle(title string) string {
	return strings.TrimSpace(stripExtension(strings.ToLower(title)))
}

// stripExtension removes a trailing .pdf/.mp3/.wav, case-insensitively.
func stripExtension(title string) string {
	lower := strings.ToLower(title)
	for _, ext := range []string{".pdf", ".mp3", ".wav"} {
		if strings.HasSuffix(lower, ext) {
			return title[:len(title)-len(ext)]
		}
	}
	return title
}

// firstToken returns the first whitespace-delimited token.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// leadingNumber extracts the first integer substring of a title, or 0
// when it has none.
func leadingNumber(title string) int {
	match := digitsPattern.FindString(title)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		// Longer than an int; title ordering degrades to 0.
		return 0
	}
	return n
}

// MaterialsFor picks the material list the learn view pairs over: the
// selected level's materials when the course has levels, the course's
// ungrouped materials otherwise. levelID zero means the first level.
func MaterialsFor(course *models.Course, levelID int) []models.Material {
	if course == nil {
		return nil
	}
	if len(course.Levels) == 0 {
		return course.Materials
	}
	if levelID == 0 {
		return course.Levels[0].Materials
	}
	for _, l := range course.Levels {
		if l.ID == levelID {
			return l.Materials
		}
	}
	return nil
}
