package scoring_test

import (
	"testing"

	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/scoring"
	"github.com/handup/matchd/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregate(t *testing.T) {
	Convey("Given a score set and a weight vector", t, func() {
		scores := model.FeatureScores{"a": 1.0, "b": 0.5}
		w := weights.Vector{"a": 0.6, "b": 0.4}

		Convey("Then the aggregate is the weighted sum", func() {
			So(scoring.Aggregate(scores, w), ShouldAlmostEqual, 0.8, 1e-9)
		})

		Convey("When a weighted feature is missing from the scores", func() {
			So(scoring.Aggregate(model.FeatureScores{"a": 1.0}, w), ShouldAlmostEqual, 0.6, 1e-9)
		})

		Convey("When everything scores full marks under a normal vector", func() {
			full := model.FeatureScores{}
			for _, name := range model.FeatureNames() {
				full[name] = 1.0
			}
			So(scoring.Aggregate(full, weights.Default()), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestBoost(t *testing.T) {
	Convey("Given a candidate with known attributes", t, func() {
		candidate := model.CandidateProfile{
			Kind:    model.AnchorOpportunity,
			Causes:  []string{"education"},
			Country: "DE",
			Urgency: "high",
		}

		Convey("When history is empty", func() {
			So(scoring.Boost(candidate, nil), ShouldEqual, 0.0)
		})

		Convey("When a successful past match overlaps on every signal", func() {
			history := []model.HistoryEntry{{
				Causes:  []string{"education"},
				Country: "DE",
				Urgency: "high",
				Outcome: model.OutcomeAccepted,
			}}

			Convey("Then each overlap adds the success increment", func() {
				So(scoring.Boost(candidate, history), ShouldAlmostEqual, 0.15, 1e-9)
			})
		})

		Convey("When a rejected past match overlaps on one signal", func() {
			history := []model.HistoryEntry{{
				Causes:  []string{"education"},
				Country: "FR",
				Outcome: model.OutcomeRejected,
			}}

			Convey("Then the penalty applies", func() {
				So(scoring.Boost(candidate, history), ShouldAlmostEqual, -0.02, 1e-9)
			})
		})

		Convey("When many successes would exceed the ceiling", func() {
			history := make([]model.HistoryEntry, 10)
			for i := range history {
				history[i] = model.HistoryEntry{
					Causes:  []string{"education"},
					Country: "DE",
					Urgency: "high",
					Outcome: model.OutcomeCompleted,
				}
			}

			Convey("Then the boost clamps at the ceiling", func() {
				So(scoring.Boost(candidate, history), ShouldEqual, 0.2)
			})
		})

		Convey("When many rejections would fall below the floor", func() {
			history := make([]model.HistoryEntry, 20)
			for i := range history {
				history[i] = model.HistoryEntry{
					Causes:  []string{"education"},
					Country: "DE",
					Urgency: "high",
					Outcome: model.OutcomeRejected,
				}
			}

			Convey("Then the boost clamps at the floor", func() {
				So(scoring.Boost(candidate, history), ShouldEqual, -0.1)
			})
		})

		Convey("When history merely applied without success", func() {
			history := []model.HistoryEntry{{
				Causes:  []string{"education"},
				Country: "DE",
				Outcome: model.OutcomeApplied,
			}}

			Convey("Then it contributes nothing", func() {
				So(scoring.Boost(candidate, history), ShouldEqual, 0.0)
			})
		})
	})
}

func TestFinal(t *testing.T) {
	Convey("Given an aggregate and a boost", t, func() {
		scores := model.FeatureScores{"a": 1.0}
		w := weights.Vector{"a": 1.0}

		Convey("Then the combined score clamps to one", func() {
			So(scoring.Final(scores, w, 0.2), ShouldEqual, 1.0)
		})

		Convey("Then a negative combination clamps to zero", func() {
			So(scoring.Final(model.FeatureScores{"a": 0.0}, w, -0.1), ShouldEqual, 0.0)
		})

		Convey("Then an in-range combination passes through", func() {
			So(scoring.Final(model.FeatureScores{"a": 0.5}, w, 0.1), ShouldAlmostEqual, 0.6, 1e-9)
		})
	})
}
