package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablecal/internal/fit"
)

func TestRecordPlaneFit(t *testing.T) {
	db, clock := newTestDB(t)

	_, err := db.LatestPlane()
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	j, err := db.StartSession("sim")
	require.NoError(t, err)

	older := fit.Plane{A: 0.1, B: 0.2, C: 0.3, RMS: 0.01, Count: 9}
	_, err = db.RecordPlaneFit(j.ID(), older)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	newer := fit.Plane{A: -0.001, B: 0.002, C: 1.5, RMS: 0.02, Count: 25}
	id, err := db.RecordPlaneFit("", newer)
	require.NoError(t, err)

	got, err := db.LatestPlane()
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	recs, err := db.Fits(FitKindPlane, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, id, recs[0].ID)
	assert.Empty(t, recs[0].SessionID)
	assert.Equal(t, j.ID(), recs[1].SessionID)
	assert.Equal(t, 25, recs[0].Count)
	assert.Equal(t, 0.02, recs[0].Residual)
	assert.Equal(t, testStart.Add(time.Minute), recs[0].CreatedAt)
}

func TestRecordCircleFit(t *testing.T) {
	db, _ := newTestDB(t)

	c := fit.Circle{CenterX: -12, CenterY: 4, MeanRadius: 3, ResidualsSum: 0.5, Count: 6, Method: fit.MethodAlgebraic}
	_, err := db.RecordCircleFit("", c)
	require.NoError(t, err)

	recs, err := db.Fits(FitKindCircle, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	var got fit.Circle
	require.NoError(t, json.Unmarshal(recs[0].Params, &got))
	assert.Equal(t, c, got)

	planes, err := db.Fits(FitKindPlane, 10)
	require.NoError(t, err)
	assert.Empty(t, planes)
}

func TestRecordFit_UnknownSession(t *testing.T) {
	db, _ := newTestDB(t)
	_, err := db.RecordPlaneFit("no-such-session", fit.Plane{Count: 3})
	assert.Error(t, err)
}
