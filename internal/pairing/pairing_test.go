package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishstudent/client/internal/models"
)

func pdf(id int, title string) models.Material {
	return models.Material{ID: id, Title: title, MaterialType: models.MaterialTypePDF}
}

func mp3(id int, title string) models.Material {
	return models.Material{ID: id, Title: title, MaterialType: models.MaterialTypeMP3}
}

func TestBuildPairs(t *testing.T) {
	tests := []struct {
		name      string
		materials []models.Material
		expected  []struct {
			title    string
			docID    int // 0 means nil
			audioID  int // 0 means nil
		}
	}{
		{
			name:      "empty input",
			materials: nil,
			expected:  nil,
		},
		{
			name: "matching document and audio",
			materials: []models.Material{
				pdf(1, "01 - Greetings.pdf"),
				mp3(2, "01 - Greetings.mp3"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "01 - Greetings", docID: 1, audioID: 2},
			},
		},
		{
			name: "document without audio",
			materials: []models.Material{
				pdf(1, "05 - Grammar.pdf"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "05 - Grammar", docID: 1, audioID: 0},
			},
		},
		{
			name: "audio without document comes after documents",
			materials: []models.Material{
				pdf(1, "02 - Reading.pdf"),
				mp3(2, "07 - Listening only.mp3"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "02 - Reading", docID: 1, audioID: 0},
				{title: "07 - Listening only", docID: 0, audioID: 2},
			},
		},
		{
			name: "numeric ordering regardless of input order",
			materials: []models.Material{
				pdf(3, "10 - Last.pdf"),
				pdf(1, "2 - Middle.pdf"),
				pdf(2, "1 - First.pdf"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "1 - First", docID: 2, audioID: 0},
				{title: "2 - Middle", docID: 1, audioID: 0},
				{title: "10 - Last", docID: 3, audioID: 0},
			},
		},
		{
			name: "first token match when neither title contains the other",
			materials: []models.Material{
				pdf(1, "03 reading practice.pdf"),
				mp3(2, "03 audio narration.mp3"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "03 reading practice", docID: 1, audioID: 2},
			},
		},
		{
			name: "audio consumed at most once",
			materials: []models.Material{
				pdf(1, "04 - Dialogue.pdf"),
				pdf(2, "04 - Dialogue extended.pdf"),
				mp3(3, "04 - Dialogue.mp3"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "04 - Dialogue", docID: 1, audioID: 3},
				{title: "04 - Dialogue extended", docID: 2, audioID: 0},
			},
		},
		{
			name: "non-document non-audio materials are dropped",
			materials: []models.Material{
				pdf(1, "01 - Intro.pdf"),
				{ID: 9, Title: "01 - Intro.mp4", MaterialType: models.MaterialTypeVideo},
				{ID: 10, Title: "setup.exe", MaterialType: models.MaterialTypeEXE},
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "01 - Intro", docID: 1, audioID: 0},
			},
		},
		{
			name: "titles without digits sort as zero and keep input order",
			materials: []models.Material{
				pdf(1, "Appendix.pdf"),
				pdf(2, "Glossary.pdf"),
				pdf(3, "1 - Start.pdf"),
			},
			expected: []struct {
				title   string
				docID   int
				audioID int
			}{
				{title: "Appendix", docID: 1, audioID: 0},
				{title: "Glossary", docID: 2, audioID: 0},
				{title: "1 - Start", docID: 3, audioID: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := BuildPairs(tt.materials)
			require.Len(t, pairs, len(tt.expected))

			for i, want := range tt.expected {
				assert.Equal(t, want.title, pairs[i].Title)
				if want.docID == 0 {
					assert.Nil(t, pairs[i].Document)
				} else {
					require.NotNil(t, pairs[i].Document)
					assert.Equal(t, want.docID, pairs[i].Document.ID)
				}
				if want.audioID == 0 {
					assert.Nil(t, pairs[i].Audio)
				} else {
					require.NotNil(t, pairs[i].Audio)
					assert.Equal(t, want.audioID, pairs[i].Audio.ID)
				}
			}
		})
	}
}

func TestBuildPairs_EverySideAppearsAtMostOnce(t *testing.T) {
	materials := []models.Material{
		pdf(1, "01 - A.pdf"),
		pdf(2, "02 - B.pdf"),
		pdf(3, "03 - C.pdf"),
		mp3(4, "01 - A.mp3"),
		mp3(5, "02 - B.mp3"),
		mp3(6, "09 - Extra.mp3"),
	}

	pairs := BuildPairs(materials)

	seen := make(map[int]bool)
	for _, p := range pairs {
		require.True(t, p.Document != nil || p.Audio != nil)
		if p.Document != nil {
			assert.False(t, seen[p.Document.ID], "material %d appeared twice", p.Document.ID)
			seen[p.Document.ID] = true
		}
		if p.Audio != nil {
			assert.False(t, seen[p.Audio.ID], "material %d appeared twice", p.Audio.ID)
			seen[p.Audio.ID] = true
		}
	}
	// Every document and audio ends up in exactly one pair.
	assert.Len(t, seen, len(materials))
}

func TestTitlesMatch(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"identical", "01 - greetings", "01 - greetings", true},
		{"one contains the other", "01 - greetings", "01 - greetings extended", true},
		{"first token equal", "03 reading", "03 audio", true},
		{"no relation", "reading practice", "audio narration", false},
		{"both empty", "", "", true},
		{"one empty", "01 - a", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, titlesMatch(tt.a, tt.b))
		})
	}
}

func TestStripExtension(t *testing.T) {
	assert.Equal(t, "01 - Intro", stripExtension("01 - Intro.pdf"))
	assert.Equal(t, "01 - Intro", stripExtension("01 - Intro.MP3"))
	assert.Equal(t, "01 - Intro", stripExtension("01 - Intro.wav"))
	assert.Equal(t, "notes.txt", stripExtension("notes.txt"))
}

func TestLeadingNumber(t *testing.T) {
	assert.Equal(t, 12, leadingNumber("12 - Unit.pdf"))
	assert.Equal(t, 3, leadingNumber("Lesson 3 revision"))
	assert.Equal(t, 0, leadingNumber("Appendix"))
	assert.Equal(t, 0, leadingNumber("99999999999999999999 overflow"))
}

func TestMaterialsFor(t *testing.T) {
	ungrouped := []models.Material{pdf(1, "a.pdf")}
	levelOne := []models.Material{pdf(2, "b.pdf")}
	levelTwo := []models.Material{pdf(3, "c.pdf")}

	course := &models.Course{
		ID:        1,
		Materials: ungrouped,
		Levels: []models.Level{
			{ID: 10, Materials: levelOne},
			{ID: 11, Materials: levelTwo},
		},
	}

	tests := []struct {
		name     string
		course   *models.Course
		levelID  int
		expected []models.Material
	}{
		{"nil course", nil, 0, nil},
		{"no levels uses ungrouped", &models.Course{Materials: ungrouped}, 0, ungrouped},
		{"zero level means first", course, 0, levelOne},
		{"explicit level", course, 11, levelTwo},
		{"unknown level", course, 99, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaterialsFor(tt.course, tt.levelID))
		})
	}
}
