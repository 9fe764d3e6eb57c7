package store

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestCreateAndList(t *testing.T) {
	st := New()
	m, err := st.Create("hello", "bob")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID != "1" {
		t.Errorf("ID: got %q, want 1", m.ID)
	}

	got := st.List()
	if len(got) != 1 {
		t.Fatalf("List: got %d messages, want 1", len(got))
	}
	if got[0] != m {
		t.Errorf("List[0]: got %+v, want %+v", got[0], m)
	}
}

func TestCreate_StampsServerTime(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	st := New()
	st.now = fixedClock(base)

	m, err := st.Create("hi", "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !m.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt: got %v, want %v", m.CreatedAt, base)
	}
	if m.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location: got %v, want UTC", m.CreatedAt.Location())
	}
}

func TestCreate_DoesNotTrim(t *testing.T) {
	st := New()
	m, err := st.Create("  spaced  ", " x ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Content != "  spaced  " || m.Author != " x " {
		t.Errorf("content/author altered: %+v", m)
	}
}

func TestCreate_Validation(t *testing.T) {
	cases := []struct {
		name            string
		content, author string
	}{
		{"empty content", "", "alice"},
		{"empty author", "hi", ""},
		{"both empty", "", ""},
	}

	st := New()
	if _, err := st.Create("seed", "sys"); err != nil {
		t.Fatalf("seed Create: %v", err)
	}
	before := st.List()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := st.Create(tc.content, tc.author)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err: got %v, want ErrValidation", err)
			}
			if n := st.Len(); n != len(before) {
				t.Errorf("Len after rejected create: got %d, want %d", n, len(before))
			}
		})
	}

	// The id counter must not advance on rejected creates.
	m, err := st.Create("next", "bob")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID != "2" {
		t.Errorf("ID after rejected creates: got %q, want 2", m.ID)
	}
}

func TestList_AppendOnlyPrefix(t *testing.T) {
	st := New()
	var prev = st.List()
	for i := 0; i < 20; i++ {
		if _, err := st.Create("m"+strconv.Itoa(i), "bob"); err != nil {
			t.Fatalf("Create: %v", err)
		}
		cur := st.List()
		if len(cur) != len(prev)+1 {
			t.Fatalf("List len: got %d, want %d", len(cur), len(prev)+1)
		}
		for j := range prev {
			if cur[j] != prev[j] {
				t.Fatalf("List[%d] changed: got %+v, want %+v", j, cur[j], prev[j])
			}
		}
		prev = cur
	}
}

func TestList_ReturnsCopy(t *testing.T) {
	st := New()
	if _, err := st.Create("original", "bob"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got := st.List()
	got[0].Content = "mutated"

	if st.List()[0].Content != "original" {
		t.Error("List exposed internal storage")
	}
}

func TestConcurrentCreates_UniqueDenseIDs(t *testing.T) {
	const n = 200
	st := New()
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := st.Create("msg", "writer-"+strconv.Itoa(i)); err != nil {
				t.Errorf("Create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	msgs := st.List()
	if len(msgs) != n {
		t.Fatalf("List: got %d messages, want %d", len(msgs), n)
	}

	// Append order must match id order, and ids must be exactly 1..n.
	ids := make([]int, len(msgs))
	for i, m := range msgs {
		id, err := strconv.Atoi(m.ID)
		if err != nil {
			t.Fatalf("non-numeric id %q", m.ID)
		}
		if id != i+1 {
			t.Errorf("List[%d].ID: got %d, want %d", i, id, i+1)
		}
		ids[i] = id
	}
	if !sort.IntsAreSorted(ids) {
		t.Error("ids are not increasing in append order")
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Create("c", "a") //nolint:errcheck
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()

	if st.Len() != 50 {
		t.Errorf("Len: got %d, want 50", st.Len())
	}
}
