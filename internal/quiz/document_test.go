package quiz

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateScenario(t *testing.T) {
	got := Aggregate([]string{"Question 2: B", "Question 1: A"})
	assert.Equal(t, "Question 1: A\n---\nQuestion 2: B", got)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, "", Aggregate(nil))
	assert.Equal(t, "", AggregateRecords([]Record{}, UnparsedLast))
}

func TestAggregateTrimsBodies(t *testing.T) {
	got := Aggregate([]string{"\n\n  Question 1: A  \n", "Question 2: B\n\n"})
	assert.Equal(t, "Question 1: A\n---\nQuestion 2: B", got)
}

func TestAggregateIsDeterministic(t *testing.T) {
	in := []string{"Question 3: C", "no label", "Question 1: A", "Question 2: B"}
	first := Aggregate(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Aggregate(in))
	}
}

// Unparsed responses take index 0 and therefore lead the document. This is
// the inherited default; UnparsedLast is the named alternative.
func TestAggregateUnparsedFirstByDefault(t *testing.T) {
	got := Aggregate([]string{"Question 1: A", "garbled OCR output", "Question 2: B"})
	assert.Equal(t, "garbled OCR output\n---\nQuestion 1: A\n---\nQuestion 2: B", got)
}

func TestAggregateUnparsedLast(t *testing.T) {
	records := []Record{
		NewRecord("a.png", "garbled one", 0),
		NewRecord("b.png", "Question 2: B", 1),
		NewRecord("c.png", "garbled two", 2),
		NewRecord("d.png", "Question 1: A", 3),
	}
	got := AggregateRecords(records, UnparsedLast)
	assert.Equal(t, "Question 1: A\n---\nQuestion 2: B\n---\ngarbled one\n---\ngarbled two", got)
}

func TestUnparsedLastKeepsLabelledZero(t *testing.T) {
	records := []Record{
		NewRecord("", "no label", 0),
		NewRecord("", "Question 0: warmup", 1),
		NewRecord("", "Question 1: A", 2),
	}
	sorted := SortRecords(records, UnparsedLast)
	assert.Equal(t, []string{"Question 0: warmup", "Question 1: A", "no label"},
		[]string{sorted[0].Text, sorted[1].Text, sorted[2].Text})
}

func TestSortRecordsIsStableForAllPermutations(t *testing.T) {
	base := []Record{
		{Text: "Question 2: first two", Index: 2, Parsed: true},
		{Text: "Question 1: only one", Index: 1, Parsed: true},
		{Text: "Question 2: second two", Index: 2, Parsed: true},
		{Text: "unlabelled", Index: 0},
	}

	permute(len(base), func(perm []int) {
		records := make([]Record, len(base))
		for i, p := range perm {
			records[i] = base[p]
			records[i].Position = i
		}
		for _, policy := range []OrderPolicy{UnparsedFirst, UnparsedLast} {
			sorted := SortRecords(records, policy)
			for i := 1; i < len(sorted); i++ {
				prev, cur := sorted[i-1], sorted[i]
				if policy == UnparsedLast && prev.Parsed != cur.Parsed {
					require.True(t, prev.Parsed, "unparsed record before parsed one: %v", perm)
					continue
				}
				require.LessOrEqual(t, prev.Index, cur.Index, "perm %v", perm)
				if prev.Index == cur.Index {
					require.Less(t, prev.Position, cur.Position, "ties must keep input order: %v", perm)
				}
			}
		}
	})
}

func TestSortRecordsDoesNotMutateInput(t *testing.T) {
	records := []Record{NewRecord("", "Question 2: B", 0), NewRecord("", "Question 1: A", 1)}
	_ = SortRecords(records, UnparsedFirst)
	assert.Equal(t, "Question 2: B", records[0].Text)
}

func TestSegmentRoundTrip(t *testing.T) {
	bodies := []string{
		"Question 1: A\n\nOptions:\n1. x\n2. y\n\nAnswer: 1",
		"Question 2: B",
		"unlabelled text",
		"Question 10: J",
		"Question 3: C\n\n```python\ndf.write\n```",
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), bodies...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.ElementsMatch(t, bodies, Segment(Aggregate(shuffled)))
	}
}

func TestSegmentRoundTripWithEmbeddedSeparators(t *testing.T) {
	bodies := []string{
		"Question 1: A\n---\nstray rule",
		"---\nQuestion 2: B",
		"Question 3: C\n---",
		"Question 4: D\n---\n---\nE",
		"Question 5: E\r\n---\r\nstray rule",
	}
	doc := Aggregate(bodies)
	sections := Segment(doc)
	require.Len(t, sections, len(bodies))
	for i, s := range sections {
		assert.Equal(t, NormalizeBody(bodies[i]), s)
		assert.NotContains(t, s, Separator)
	}
}

func TestSegmentRoundTripWithCRLFSeparator(t *testing.T) {
	doc := Aggregate([]string{"Question 1: A\r\n---\r\nstray", "Question 2: B"})
	assert.Equal(t, "Question 1: A\n***\nstray\n---\nQuestion 2: B", doc)
	assert.Equal(t, []string{"Question 1: A\n***\nstray", "Question 2: B"}, Segment(doc))
}

func TestAggregateDropsEmptyBodies(t *testing.T) {
	doc := Aggregate([]string{"Question 1: A", "   ", "Question 2: B", "\r\n"})
	assert.Equal(t, "Question 1: A\n---\nQuestion 2: B", doc)
	assert.Len(t, Segment(doc), 2)
	assert.Equal(t, "", Aggregate([]string{" ", ""}))
}

func TestSegmentSeparatorPlacement(t *testing.T) {
	want := []string{"Question 1: A", "Question 2: B"}
	tests := []struct {
		name string
		doc  string
	}{
		{"joined", "Question 1: A\n---\nQuestion 2: B"},
		{"trailing separators", "Question 1: A\n---\nQuestion 2: B\n---\n"},
		{"trailing without newline", "Question 1: A\n---\nQuestion 2: B\n---"},
		{"leading separator", "---\nQuestion 1: A\n---\nQuestion 2: B"},
		{"leading newline separator", "\n---\nQuestion 1: A\n---\nQuestion 2: B"},
		{"crlf", "Question 1: A\r\n---\r\nQuestion 2: B\r\n"},
		{"blank padding", "Question 1: A\n\n\n---\n\nQuestion 2: B\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, Segment(tt.doc))
		})
	}
}

func TestSegmentEmpty(t *testing.T) {
	assert.Empty(t, Segment(""))
	assert.Empty(t, Segment("\n---\n"))
	assert.Empty(t, Segment("   \n"))
}

func TestJoinPreservesOrder(t *testing.T) {
	got := Join([]string{"Question 2: B", "  ", "Question 1: A\n"})
	assert.Equal(t, "Question 2: B\n---\nQuestion 1: A", got)
	assert.Equal(t, []string{"Question 2: B", "Question 1: A"}, Segment(got))
}

func TestParseOrderPolicy(t *testing.T) {
	p, err := ParseOrderPolicy("last")
	require.NoError(t, err)
	assert.Equal(t, UnparsedLast, p)
	assert.Equal(t, "last", p.String())

	p, err = ParseOrderPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnparsedFirst, p)

	_, err = ParseOrderPolicy("middle")
	assert.Error(t, err)
}

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "***", NormalizeBody("  ---  "))
	assert.Equal(t, "a\n***\nb", NormalizeBody("a\n---\nb"))
	assert.Equal(t, "a\n***\nb\nc", NormalizeBody("a\r\n---\r\nb\r\nc\r\n"))
	assert.False(t, strings.Contains(NormalizeBody("a\n---\n---\n---\nb"), Separator))
}

// permute calls fn with every permutation of 0..n-1.
func permute(n int, fn func([]int)) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var rec func(k int)
	rec = func(k int) {
		if k == n {
			fn(append([]int(nil), perm...))
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			rec(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	rec(0)
}
