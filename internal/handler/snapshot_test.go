package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/library"
)

func get(t *testing.T, h http.HandlerFunc, path string, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestSnapshotEndpoints(t *testing.T) {
	store := analytics.NewStore()
	store.Publish(model.Snapshot{
		PeopleCount:       4,
		TrackedCount:      3,
		DominantDirection: model.DirectionRight,
		DominantCount:     2,
		Band:              model.BandModerate,
		OccupancyRatio:    42.5,
		RatioCode:         "moderate",
		CountMessage:      "People: 4",
		RatioMessage:      "Moderate crowd",
		FrameSeq:          9,
	})

	t.Run("count", func(t *testing.T) {
		rec := get(t, CountDataHandler(store), "/get_count_data", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"People: 4"}`, rec.Body.String())
	})

	t.Run("ratio", func(t *testing.T) {
		rec := get(t, RatioDataHandler(store), "/get_ratio_data", nil)
		assert.JSONEq(t, `{"message":"Moderate crowd"}`, rec.Body.String())
	})

	t.Run("ratio code", func(t *testing.T) {
		rec := get(t, RatioCodeHandler(store), "/get_ratio_code", nil)
		assert.JSONEq(t, `{"message":"moderate"}`, rec.Body.String())
	})

	t.Run("detection data", func(t *testing.T) {
		rec := get(t, DetectionDataHandler(store), "/detection_data_feed", nil)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"ratio_code":"moderate","people_count":4,"most_movement_direction":"right","most_movement_count":2}`, rec.Body.String())
	})

	t.Run("full snapshot", func(t *testing.T) {
		rec := get(t, SnapshotHandler(store), "/api/snapshot", nil)
		var got model.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, store.Load(), got)
	})
}

func TestSnapshotEndpoints_BeforeFirstFrame(t *testing.T) {
	store := analytics.NewStore()

	rec := get(t, DetectionDataHandler(store), "/detection_data_feed", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var got dto.DetectionData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0, got.PeopleCount)
}

func TestVideoSnapshotHandler(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, dir, "walk.mp4")
	lib := library.New(dir)
	registry := newFileRegistry(t)
	h := VideoSnapshotHandler(registry, lib, logger.Discard())

	rec := get(t, h, "/api/videos/x/snapshot", map[string]string{"name": "../secret.mp4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/api/videos/x/snapshot", map[string]string{"name": "missing.mp4"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/videos/walk.mp4/snapshot", map[string]string{"name": "walk.mp4"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "not running yet")

	_, release, err := registry.Acquire("walk.mp4")
	require.NoError(t, err)
	defer release()

	require.Eventually(t, func() bool {
		rec := get(t, h, "/api/videos/walk.mp4/snapshot", map[string]string{"name": "walk.mp4"})
		if rec.Code != http.StatusOK {
			return false
		}
		var snap model.Snapshot
		return json.Unmarshal(rec.Body.Bytes(), &snap) == nil && snap.PeopleCount == 1
	}, 2*time.Second, 5*time.Millisecond)
}
