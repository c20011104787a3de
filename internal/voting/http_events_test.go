package voting

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHandleCreateEvent(t *testing.T) {
	t.Run("individual event", func(t *testing.T) {
		mockStore := new(MockStore)
		mockStore.On("CreateEvent", mock.Anything, mock.Anything, mock.Anything).
			Return("ev-new", nil)

		payload := map[string]any{
			"title":           "Budget priorities",
			"options":         []map[string]string{{"title": "A"}, {"title": "B"}},
			"creditsPerVoter": 9,
			"votingMode":      "individual",
			"numVoters":       2,
			"startTime":       testStart.Format(time.RFC3339),
			"endTime":         testEnd.Format(time.RFC3339),
		}
		b, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/events", bytes.NewReader(b))
		rec := httptest.NewRecorder()

		testRouter(mockStore).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "ev-new", body["id"])
		assert.NotEmpty(t, body["secret"])
		assert.Len(t, body["voterIds"], 2)
	})

	t.Run("invalid input", func(t *testing.T) {
		mockStore := new(MockStore)
		b, _ := json.Marshal(map[string]any{"title": ""})
		req := httptest.NewRequest("POST", "/events", bytes.NewReader(b))
		rec := httptest.NewRecorder()

		testRouter(mockStore).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockStore.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleGetEvent(t *testing.T) {
	in := &createEventInput{
		Title:           "Budget priorities",
		Options:         []Option{{Title: "A"}, {Title: "B"}},
		CreditsPerVoter: 5,
		VotingMode:      ModeIndividual,
		NumVoters:       2,
		StartTime:       testStart,
		EndTime:         testEnd,
	}
	ev, _, result, err := buildEvent(in)
	assert.NoError(t, err)
	ev.ID = "ev1"

	mockStore := new(MockStore)
	mockStore.On("LoadEvent", mock.Anything, "ev1").Return(ev, nil)
	router := testRouter(mockStore)

	t.Run("public view hides voter links", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/events/ev1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Budget priorities", body["title"])
		assert.Nil(t, body["voterIds"])
	})

	t.Run("organizer secret reveals voter links", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/events/ev1?secret="+result.Secret, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody(t, rec)["voterIds"], 2)
	})

	t.Run("not found", func(t *testing.T) {
		missing := new(MockStore)
		missing.On("LoadEvent", mock.Anything, "ghost").Return((*Event)(nil), pgx.ErrNoRows)

		rec := httptest.NewRecorder()
		testRouter(missing).ServeHTTP(rec, httptest.NewRequest("GET", "/events/ghost", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandlePatchEvent(t *testing.T) {
	newEnd := testEnd.Add(48 * time.Hour)

	setup := func(t *testing.T) (*MockStore, *Event, string) {
		in := &createEventInput{
			Title:           "Budget priorities",
			Options:         []Option{{Title: "A"}, {Title: "B"}},
			CreditsPerVoter: 5,
			VotingMode:      ModeSocial,
			StartTime:       testStart,
			EndTime:         testEnd,
		}
		ev, _, result, err := buildEvent(in)
		assert.NoError(t, err)
		ev.ID = "ev1"

		mockStore := new(MockStore)
		mockStore.On("LoadEvent", mock.Anything, "ev1").Return(ev, nil)
		return mockStore, ev, result.Secret
	}

	t.Run("extends the window", func(t *testing.T) {
		mockStore, _, secret := setup(t)
		mockStore.On("UpdateEventPeriod", mock.Anything, "ev1", testStart, newEnd).Return(nil)

		b, _ := json.Marshal(map[string]any{"secret": secret, "endTime": newEnd.Format(time.RFC3339)})
		req := httptest.NewRequest("PATCH", "/events/ev1", bytes.NewReader(b))
		rec := httptest.NewRecorder()

		testRouter(mockStore).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("wrong secret", func(t *testing.T) {
		mockStore, _, _ := setup(t)

		b, _ := json.Marshal(map[string]any{"secret": "wrong", "endTime": newEnd.Format(time.RFC3339)})
		req := httptest.NewRequest("PATCH", "/events/ev1", bytes.NewReader(b))
		rec := httptest.NewRecorder()

		testRouter(mockStore).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockStore.AssertNotCalled(t, "UpdateEventPeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inverted window", func(t *testing.T) {
		mockStore, _, secret := setup(t)

		b, _ := json.Marshal(map[string]any{"secret": secret, "endTime": testStart.Add(-time.Hour).Format(time.RFC3339)})
		req := httptest.NewRequest("PATCH", "/events/ev1", bytes.NewReader(b))
		rec := httptest.NewRecorder()

		testRouter(mockStore).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStats(t *testing.T) {
	mockStore := new(MockStore)
	ev := makeEvent(t, ModeSocial, 5, 2)
	mockStore.On("LoadEvent", mock.Anything, "ev1").Return(ev, nil)
	mockStore.On("ListVoters", mock.Anything, "ev1", true).Return(socialRecords(), nil)

	rec := httptest.NewRecorder()
	testRouter(mockStore).ServeHTTP(rec, httptest.NewRequest("GET", "/events/ev1/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["isAdmin"])
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["totalVoters"])
}

func TestHandleExport(t *testing.T) {
	t.Run("requires the admin key", func(t *testing.T) {
		mockStore := new(MockStore)
		rec := httptest.NewRecorder()
		testRouter(mockStore).ServeHTTP(rec, httptest.NewRequest("GET", "/events/ev1/export", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("dumps every ballot", func(t *testing.T) {
		mockStore := new(MockStore)
		ev := makeEvent(t, ModeSocial, 5, 2)
		mockStore.On("LoadEvent", mock.Anything, "ev1").Return(ev, nil)
		mockStore.On("ListVoters", mock.Anything, "ev1", false).Return(socialRecords(), nil)

		req := httptest.NewRequest("GET", "/events/ev1/export", nil)
		req.Header.Set("X-Admin-Key", "admin-key")
		rec := httptest.NewRecorder()

		testRouter(mockStore).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody(t, rec)["rows"], 2)
	})
}
