package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/handup/matchd/internal/adapters/directory"
	"github.com/handup/matchd/internal/adapters/http/api"
	"github.com/handup/matchd/internal/domain/learning"
	"github.com/handup/matchd/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps implements api.Dependencies and api.StatsProvider for handler
// tests.
type mockDeps struct {
	matches      []model.MatchResult
	matchErr     error
	matchedKind  model.AnchorKind
	matchedID    string
	matchedLimit int

	feedbackResult learning.Result
	feedbackErr    error
	enqueueOK      bool
	enqueued       []model.FeedbackEvent
	seen           map[string]bool

	weights    map[string]float64
	weightsErr error

	profiles       []model.CandidateProfile
	applications   [][2]string
	applicationErr error
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		feedbackResult: learning.ResultApplied,
		enqueueOK:      true,
		seen:           make(map[string]bool),
		weights:        map[string]float64{"skill_match": 1.0},
	}
}

func (m *mockDeps) FindMatches(ctx context.Context, kind model.AnchorKind, anchorID string, limit int) ([]model.MatchResult, error) {
	m.matchedKind, m.matchedID, m.matchedLimit = kind, anchorID, limit
	return m.matches, m.matchErr
}

func (m *mockDeps) RecordFeedback(ctx context.Context, event model.FeedbackEvent) (learning.Result, error) {
	return m.feedbackResult, m.feedbackErr
}

func (m *mockDeps) EnqueueFeedback(ctx context.Context, event model.FeedbackEvent) bool {
	if m.enqueueOK {
		m.enqueued = append(m.enqueued, event)
	}
	return m.enqueueOK
}

func (m *mockDeps) SeenAndRecord(ctx context.Context, id string) bool {
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(ctx context.Context, id string) {
	delete(m.seen, id)
}

func (m *mockDeps) Weights(ctx context.Context) map[string]float64 {
	return m.weights
}

func (m *mockDeps) SetWeights(ctx context.Context, v map[string]float64) (map[string]float64, error) {
	if m.weightsErr != nil {
		return nil, m.weightsErr
	}
	m.weights = v
	return v, nil
}

func (m *mockDeps) AddProfile(ctx context.Context, p model.CandidateProfile) error {
	m.profiles = append(m.profiles, p)
	return nil
}

func (m *mockDeps) AddApplication(ctx context.Context, volunteerID, opportunityID string) error {
	if m.applicationErr != nil {
		return m.applicationErr
	}
	m.applications = append(m.applications, [2]string{volunteerID, opportunityID})
	return nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *mockDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, 50).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestGetMatches(t *testing.T) {
	Convey("Given the matches endpoint", t, func() {
		deps := newMockDeps()
		deps.matches = []model.MatchResult{
			{CandidateID: "opp-1", Title: "Opportunity", Score: 92.5, Reasons: []string{"Has every required skill"}},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When requesting matches for a volunteer", func() {
			resp, err := http.Get(srv.URL + "/matches?volunteer_id=vol-1&limit=5")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the ranked results come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var results []model.MatchResult
				So(json.NewDecoder(resp.Body).Decode(&results), ShouldBeNil)
				So(len(results), ShouldEqual, 1)
				So(results[0].CandidateID, ShouldEqual, "opp-1")
				So(deps.matchedKind, ShouldEqual, model.AnchorVolunteer)
				So(deps.matchedLimit, ShouldEqual, 5)
			})
		})

		Convey("When requesting matches for an opportunity", func() {
			resp, err := http.Get(srv.URL + "/matches?opportunity_id=opp-1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(deps.matchedKind, ShouldEqual, model.AnchorOpportunity)
		})

		Convey("When no anchor id is given", func() {
			resp, err := http.Get(srv.URL + "/matches")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When both anchor ids are given", func() {
			resp, err := http.Get(srv.URL + "/matches?volunteer_id=a&opportunity_id=b")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is not a positive integer", func() {
			resp, err := http.Get(srv.URL + "/matches?volunteer_id=vol-1&limit=zero")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the maximum", func() {
			resp, err := http.Get(srv.URL + "/matches?volunteer_id=vol-1&limit=500")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is capped instead of rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.matchedLimit, ShouldEqual, 50)
			})
		})

		Convey("When the anchor does not exist", func() {
			deps.matchErr = fmt.Errorf("load anchor profile vol-ghost: %w", directory.ErrProfileNotFound)
			resp, err := http.Get(srv.URL + "/matches?volunteer_id=vol-ghost")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostFeedback(t *testing.T) {
	Convey("Given the feedback endpoint", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		post := func(body string) *http.Response {
			resp, err := http.Post(srv.URL+"/feedback", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When a valid event is posted", func() {
			resp := post(`{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"}`)
			defer resp.Body.Close()

			Convey("Then it is applied synchronously", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var out map[string]string
				So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
				So(out["status"], ShouldEqual, "applied")
				So(out["event_id"], ShouldEqual, "evt-1")
			})
		})

		Convey("When the same event id is posted twice", func() {
			first := post(`{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"}`)
			first.Body.Close()
			second := post(`{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"}`)
			defer second.Body.Close()

			Convey("Then the duplicate is acknowledged without reprocessing", func() {
				So(second.StatusCode, ShouldEqual, http.StatusOK)
				var out map[string]any
				So(json.NewDecoder(second.Body).Decode(&out), ShouldBeNil)
				So(out["status"], ShouldEqual, "duplicate")
			})
		})

		Convey("When required fields are missing", func() {
			resp := post(`{"event_id":"evt-1","outcome":"accepted"}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			resp := post(`not json`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the override score is out of range", func() {
			resp := post(`{"volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted","score":1.5}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When processing fails", func() {
			deps.feedbackErr = errors.New("boom")
			resp := post(`{"event_id":"evt-err","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"}`)
			defer resp.Body.Close()

			Convey("Then the event id is released for retry", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(deps.seen["evt-err"], ShouldBeFalse)
			})
		})
	})
}

func TestPostFeedbackBatch(t *testing.T) {
	Convey("Given the batch feedback endpoint", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		post := func(body string) *http.Response {
			resp, err := http.Post(srv.URL+"/feedback/batch", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When a valid batch is posted", func() {
			resp := post(`[
				{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"},
				{"event_id":"evt-2","volunteer_id":"vol-2","opportunity_id":"opp-2","outcome":"rejected"}
			]`)
			defer resp.Body.Close()

			Convey("Then all events are queued", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				var out map[string]int
				So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
				So(out["queued"], ShouldEqual, 2)
				So(len(deps.enqueued), ShouldEqual, 2)
			})
		})

		Convey("When the batch repeats an event id", func() {
			resp := post(`[
				{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"},
				{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"}
			]`)
			defer resp.Body.Close()

			var out map[string]int
			So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
			So(out["queued"], ShouldEqual, 1)
			So(out["duplicates"], ShouldEqual, 1)
		})

		Convey("When the queue is saturated", func() {
			deps.enqueueOK = false
			resp := post(`[{"event_id":"evt-1","volunteer_id":"vol-1","opportunity_id":"opp-1","outcome":"accepted"}]`)
			defer resp.Body.Close()

			Convey("Then backpressure surfaces as 429 and the id is released", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
				So(deps.seen["evt-1"], ShouldBeFalse)
			})
		})

		Convey("When the batch is empty", func() {
			resp := post(`[]`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestWeightsEndpoint(t *testing.T) {
	Convey("Given the weights endpoint", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching the live vector", func() {
			resp, err := http.Get(srv.URL + "/weights")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out struct {
				Weights map[string]float64 `json:"weights"`
			}
			So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
			So(out.Weights["skill_match"], ShouldEqual, 1.0)
		})

		put := func(body string) *http.Response {
			req, err := http.NewRequest(http.MethodPut, srv.URL+"/weights", strings.NewReader(body))
			So(err, ShouldBeNil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When replacing with a valid vector", func() {
			resp := put(`{"weights":{"skill_match":0.5,"rating":0.5}}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(deps.weights["rating"], ShouldEqual, 0.5)
		})

		Convey("When a weight is negative", func() {
			resp := put(`{"weights":{"skill_match":-0.5}}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the vector is empty", func() {
			resp := put(`{"weights":{}}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestProfilesEndpoints(t *testing.T) {
	Convey("Given the registration endpoints", t, func() {
		deps := newMockDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a volunteer", func() {
			body := `{"id":"vol-1","skills":["teaching"],"experience":"intermediate"}`
			resp, err := http.Post(srv.URL+"/volunteers", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(len(deps.profiles), ShouldEqual, 1)
			So(deps.profiles[0].Kind, ShouldEqual, model.AnchorVolunteer)
			So(deps.profiles[0].Experience, ShouldEqual, model.ExperienceIntermediate)
		})

		Convey("When posting an opportunity", func() {
			body := `{"id":"opp-1","required_experience":"expert","urgency":"high"}`
			resp, err := http.Post(srv.URL+"/opportunities", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(deps.profiles[0].Kind, ShouldEqual, model.AnchorOpportunity)
			So(deps.profiles[0].RequiredExperience, ShouldEqual, model.ExperienceExpert)
		})

		Convey("When posting a profile without an id", func() {
			resp, err := http.Post(srv.URL+"/volunteers", "application/json", strings.NewReader(`{"skills":["x"]}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a profile with an unknown experience label", func() {
			resp, err := http.Post(srv.URL+"/volunteers", "application/json", strings.NewReader(`{"id":"vol-1","experience":"wizard"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting an application", func() {
			body := `{"volunteer_id":"vol-1","opportunity_id":"opp-1"}`
			resp, err := http.Post(srv.URL+"/applications", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(deps.applications, ShouldResemble, [][2]string{{"vol-1", "opp-1"}})
		})

		Convey("When posting an application for a missing profile", func() {
			deps.applicationErr = fmt.Errorf("link vol-1/opp-ghost: %w", directory.ErrProfileNotFound)
			body := `{"volunteer_id":"vol-1","opportunity_id":"opp-ghost"}`
			resp, err := http.Post(srv.URL+"/applications", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When posting an application with a missing id", func() {
			resp, err := http.Post(srv.URL+"/applications", "application/json", strings.NewReader(`{"volunteer_id":"vol-1"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		srv := newTestServer(newMockDeps())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/stats")
		So(err, ShouldBeNil)
		defer resp.Body.Close()

		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		var out map[string]any
		So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
		So(out["started"], ShouldEqual, true)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	Convey("Given the route table", t, func() {
		srv := newTestServer(newMockDeps())
		defer srv.Close()

		Convey("Then wrong methods fall through to 404", func() {
			resp, err := http.Post(srv.URL+"/matches", "application/json", strings.NewReader(`{}`))
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)

			resp, err = http.Get(srv.URL + "/feedback")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}
