package gaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/proficiency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps encoded records so byte-level comparisons are possible.
type fakeStore struct {
	mu           sync.Mutex
	users        map[int64]*UserSkills
	requirements map[int]*JobRequirements
	records      map[string][]byte
	saves        int
	saveErr      map[int]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[int64]*UserSkills{},
		requirements: map[int]*JobRequirements{},
		records:      map[string][]byte{},
		saveErr:      map[int]error{},
	}
}

func recordKey(user int64, job int) string { return fmt.Sprintf("%d/%d", user, job) }

func (f *fakeStore) GetUserSkills(_ context.Context, id int64) (*UserSkills, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetJobRequirements(_ context.Context, idx int) (*JobRequirements, error) {
	return f.requirements[idx], nil
}

func (f *fakeStore) SaveGapRecord(_ context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErr[rec.JobIndex]; err != nil {
		return err
	}
	b, err := rec.Encode()
	if err != nil {
		return err
	}
	f.records[recordKey(rec.UserTestID, rec.JobIndex)] = b
	f.saves++
	return nil
}

func (f *fakeStore) GetGapRecord(_ context.Context, user int64, job int) (*Record, error) {
	b, ok := f.records[recordKey(user, job)]
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func testSnapshot() *corpus.Snapshot {
	return &corpus.Snapshot{Postings: []corpus.Posting{
		{Index: 0, Title: "Data Analyst", RequiredSkills: proficiency.FromStrings("Python", "Advanced", "SQL", "Basic")},
		{Index: 1, Title: "Backend Engineer"},
		{Index: 2, Title: "ML Engineer", RequiredKnowledge: proficiency.FromStrings("Statistics", "Intermediate")},
	}}
}

func seededStore() *fakeStore {
	s := newFakeStore()
	s.users[7] = &UserSkills{
		Skills:    proficiency.FromStrings("Python", "Intermediate"),
		Knowledge: proficiency.FromStrings("Statistics", "Advanced"),
	}
	return s
}

func TestClassifyOne_PersistsRecord(t *testing.T) {
	store := seededStore()
	svc := NewService(store, nil)

	rec, err := svc.ClassifyOne(context.Background(), testSnapshot(), 7, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.UserTestID)
	assert.Equal(t, "Data Analyst", rec.JobTitle)
	py, _ := rec.SkillStatus.Get("Python")
	assert.Equal(t, Weak, py.Status)
	sql, _ := rec.SkillStatus.Get("SQL")
	assert.Equal(t, Missing, sql.Status)

	stored, err := svc.Record(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestClassifyOne_Idempotent(t *testing.T) {
	store := seededStore()
	svc := NewService(store, nil)

	_, err := svc.ClassifyOne(context.Background(), testSnapshot(), 7, 0)
	require.NoError(t, err)
	first := string(store.records[recordKey(7, 0)])

	_, err = svc.ClassifyOne(context.Background(), testSnapshot(), 7, 0)
	require.NoError(t, err)

	assert.Equal(t, first, string(store.records[recordKey(7, 0)]))
	assert.Len(t, store.records, 1)
	assert.Equal(t, 2, store.saves)
}

func TestClassifyOne_OverwritesOnChange(t *testing.T) {
	store := seededStore()
	svc := NewService(store, nil)

	_, err := svc.ClassifyOne(context.Background(), testSnapshot(), 7, 0)
	require.NoError(t, err)

	store.users[7].Skills.Set("Python", proficiency.Advanced)
	rec, err := svc.ClassifyOne(context.Background(), testSnapshot(), 7, 0)
	require.NoError(t, err)

	py, _ := rec.SkillStatus.Get("Python")
	assert.Equal(t, Achieved, py.Status)
	stored, _ := svc.Record(context.Background(), 7, 0)
	py, _ = stored.SkillStatus.Get("Python")
	assert.Equal(t, Achieved, py.Status)
}

func TestClassifyOne_StoredRequirementsWin(t *testing.T) {
	store := seededStore()
	snap := testSnapshot()
	store.requirements[0] = &JobRequirements{
		JobIndex:       0,
		ContentHash:    snap.Postings[0].ContentHash(),
		RequiredSkills: proficiency.FromStrings("Tableau", "Basic"),
	}
	svc := NewService(store, nil)

	rec, err := svc.ClassifyOne(context.Background(), snap, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tableau"}, names(rec.SkillStatus))
}

func TestClassifyOne_StoredRequirementsForOtherPostingIgnored(t *testing.T) {
	snap := testSnapshot()
	moved := corpus.Posting{Index: 0, Title: "Account Executive", Description: "Sales"}

	tests := []struct {
		name string
		hash string
	}{
		{"other posting at same index", moved.ContentHash()},
		{"stored before hashes", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			store.requirements[0] = &JobRequirements{
				JobIndex:       0,
				JobTitle:       moved.Title,
				ContentHash:    tt.hash,
				RequiredSkills: proficiency.FromStrings("Negotiation", "Advanced"),
			}
			svc := NewService(store, nil)

			rec, err := svc.ClassifyOne(context.Background(), snap, 7, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"Python", "SQL"}, names(rec.SkillStatus))
		})
	}

	store := seededStore()
	store.requirements[1] = &JobRequirements{
		JobIndex:       1,
		ContentHash:    moved.ContentHash(),
		RequiredSkills: proficiency.FromStrings("Negotiation", "Advanced"),
	}
	_, err := NewService(store, nil).ClassifyOne(context.Background(), snap, 7, 1)
	assert.ErrorIs(t, err, apperr.ErrNoData)
}

func TestClassifyOne_Errors(t *testing.T) {
	svc := NewService(seededStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		snap *corpus.Snapshot
		user int64
		job  int
	}{
		{"unknown user", testSnapshot(), 99, 0},
		{"job out of range", testSnapshot(), 7, 42},
		{"negative job", testSnapshot(), 7, -1},
		{"job without requirements", testSnapshot(), 7, 1},
		{"empty corpus", &corpus.Snapshot{}, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ClassifyOne(ctx, tt.snap, tt.user, tt.job)
			assert.ErrorIs(t, err, apperr.ErrNoData)
		})
	}
}

func TestClassifyAll_OneEntryPerPosting(t *testing.T) {
	store := seededStore()
	svc := NewService(store, nil)
	snap := testSnapshot()

	out, err := svc.ClassifyAll(context.Background(), snap, 7)
	require.NoError(t, err)
	require.Len(t, out, snap.Len())

	for i, e := range out {
		assert.Equal(t, i, e.JobIndex)
	}
	assert.False(t, out[0].Failed)
	assert.False(t, out[2].Failed)
	stats, _ := out[2].GapAnalysis.Knowledge.Get("Statistics")
	assert.Equal(t, Achieved, stats.Status)

	// Backend Engineer has no requirements anywhere.
	assert.True(t, out[1].Failed)
	assert.NotEmpty(t, out[1].Error)
	assert.True(t, out[1].GapAnalysis.Empty())
	assert.Equal(t, "Backend Engineer", out[1].JobTitle)

	assert.Len(t, store.records, 2)
}

func TestClassifyAll_IsolatesStoreFailures(t *testing.T) {
	store := seededStore()
	store.saveErr[0] = errors.New("connection refused")
	svc := NewService(store, nil)

	out, err := svc.ClassifyAll(context.Background(), testSnapshot(), 7)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Failed)
	assert.Contains(t, out[0].Error, "connection refused")
	assert.False(t, out[2].Failed)
}

func TestClassifyAll_TopLevelErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty corpus", func(t *testing.T) {
		_, err := NewService(seededStore(), nil).ClassifyAll(ctx, &corpus.Snapshot{}, 7)
		assert.ErrorIs(t, err, apperr.ErrNoData)
	})

	t.Run("nil corpus", func(t *testing.T) {
		_, err := NewService(seededStore(), nil).ClassifyAll(ctx, nil, 7)
		assert.ErrorIs(t, err, apperr.ErrNoData)
	})

	t.Run("no user record", func(t *testing.T) {
		_, err := NewService(newFakeStore(), nil).ClassifyAll(ctx, testSnapshot(), 7)
		assert.ErrorIs(t, err, apperr.ErrNoData)
	})

	t.Run("user record with empty maps", func(t *testing.T) {
		store := newFakeStore()
		store.users[7] = &UserSkills{}
		_, err := NewService(store, nil).ClassifyAll(ctx, testSnapshot(), 7)
		assert.ErrorIs(t, err, apperr.ErrNoData)
	})
}

func TestRecord_Missing(t *testing.T) {
	_, err := NewService(newFakeStore(), nil).Record(context.Background(), 1, 2)
	assert.ErrorIs(t, err, apperr.ErrNoData)
}
