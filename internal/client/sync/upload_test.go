package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/syncstate"
)

func TestSelectForUpload(t *testing.T) {
	all := []models.Annotation{
		{ID: "five", Text: "t", UpdatedAt: 5},
		{ID: "one", Text: "t", UpdatedAt: 1},
		{ID: "three", Text: "t", UpdatedAt: 3},
		{ID: "noise", AICreated: true, UpdatedAt: 4},
		{ID: "ai-commented", AICreated: true, Text: "t", UpdatedAt: 2},
		{ID: "tombstone", Text: "t", UpdatedAt: 6, Deleted: true},
	}

	tests := []struct {
		name      string
		watermark int64
		wantIDs   []string
		wantNoise int
	}{
		{"from scratch", 0, []string{"one", "ai-commented", "three", "five"}, 1},
		{"strictly after watermark", 3, []string{"five"}, 1},
		{"nothing newer", 6, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending, noise := selectForUpload(all, tt.watermark)

			var ids []string
			for _, a := range pending {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantNoise, noise)
		})
	}
}

func TestSelectForUpload_StableForEqualTimes(t *testing.T) {
	all := []models.Annotation{
		{ID: "b", Text: "t", UpdatedAt: 7},
		{ID: "a", Text: "t", UpdatedAt: 7},
		{ID: "c", Text: "t", UpdatedAt: 1},
	}

	pending, _ := selectForUpload(all, 0)

	assert.Equal(t, "c", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)
	assert.Equal(t, "a", pending[2].ID)
}

func TestLaterWatermark(t *testing.T) {
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	stored := syncstate.FormatTimestamp(base)

	assert.Equal(t, syncstate.FormatTimestamp(base.Add(time.Second)), laterWatermark(stored, base.Add(time.Second)))
	assert.Equal(t, stored, laterWatermark(stored, base.Add(-time.Hour)))
	assert.Equal(t, stored, laterWatermark(stored, base))
	assert.Equal(t, syncstate.FormatTimestamp(base), laterWatermark("", base))
	assert.Equal(t, syncstate.FormatTimestamp(base), laterWatermark("garbage", base))
}

func TestUploadBoundary(t *testing.T) {
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"whole second", base, base.Add(-time.Second)},
		{"mid second", base.Add(300 * time.Millisecond), base.Add(-time.Second)},
		{"end of second", base.Add(999 * time.Millisecond), base.Add(-time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uploadBoundary(tt.now)
			assert.Equal(t, tt.want, got)
			assert.Greater(t, tt.now.Unix(), got.Unix())
		})
	}
}

func TestSuppressEcho(t *testing.T) {
	list := []models.Annotation{
		{ID: "old", UpdatedAt: 10},
		{ID: "new", UpdatedAt: 50},
	}

	suppressEcho(list, 0)
	assert.Equal(t, int64(50), list[1].UpdatedAt)

	suppressEcho(list, 20)
	assert.Equal(t, int64(10), list[0].UpdatedAt)
	assert.Equal(t, int64(20), list[1].UpdatedAt)
}
