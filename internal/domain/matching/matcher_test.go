package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/handup/matchd/internal/adapters/directory"
	"github.com/handup/matchd/internal/adapters/repository"
	"github.com/handup/matchd/internal/domain/matching"
	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/weights"
	"github.com/handup/matchd/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	m.Run()
}

func fixtureVolunteer(id string) model.CandidateProfile {
	return model.CandidateProfile{
		ID:           id,
		Kind:         model.AnchorVolunteer,
		Skills:       []string{"teaching", "cooking"},
		Causes:       []string{"education"},
		Country:      "DE",
		City:         "Berlin",
		Availability: "flexible",
		HoursPerWeek: 10,
		Experience:   model.ExperienceIntermediate,
	}
}

func fixtureOpportunity(id string) model.CandidateProfile {
	return model.CandidateProfile{
		ID:           id,
		Kind:         model.AnchorOpportunity,
		Title:        "Opportunity " + id,
		Skills:       []string{"teaching"},
		Causes:       []string{"education"},
		Country:      "DE",
		City:         "Berlin",
		Commitment:   "flexible",
		HoursPerWeek: 10,
		Rating:       4.6,
	}
}

func weakOpportunity(id string) model.CandidateProfile {
	return model.CandidateProfile{
		ID:                 id,
		Kind:               model.AnchorOpportunity,
		Title:              "Opportunity " + id,
		Skills:             []string{"plumbing"},
		Causes:             []string{"animal_welfare"},
		Country:            "JP",
		City:               "Tokyo",
		Commitment:         "full_time",
		HoursPerWeek:       40,
		RequiredExperience: model.ExperienceExpert,
		Experience:         model.ExperienceBeginner,
	}
}

func newFixture(profiles ...model.CandidateProfile) (*directory.Directory, *repository.MemStore, *matching.Matcher) {
	ctx := context.Background()
	dir := directory.New()
	for _, p := range profiles {
		if err := dir.AddProfile(ctx, p); err != nil {
			panic(err)
		}
	}
	sink := repository.NewMemStore()
	store := weights.NewStore(weights.Default())
	m := matching.New(dir, dir, dir, sink, store)
	return dir, sink, m
}

func TestFindMatchesValidation(t *testing.T) {
	Convey("Given a matcher", t, func() {
		_, _, m := newFixture(fixtureVolunteer("vol-1"))
		ctx := context.Background()

		Convey("When the anchor kind is invalid", func() {
			_, err := m.FindMatches(ctx, model.AnchorKind("robot"), "vol-1", 5)
			So(errors.Is(err, matching.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("When the anchor id is empty", func() {
			_, err := m.FindMatches(ctx, model.AnchorVolunteer, "", 5)
			So(errors.Is(err, matching.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("When the anchor profile does not exist", func() {
			_, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-unknown", 5)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFindMatchesRanking(t *testing.T) {
	Convey("Given a volunteer with strong and weak opportunities", t, func() {
		ctx := context.Background()
		_, sink, m := newFixture(
			fixtureVolunteer("vol-1"),
			fixtureOpportunity("opp-strong"),
			weakOpportunity("opp-weak"),
		)

		Convey("When matches are requested", func() {
			results, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 10)
			So(err, ShouldBeNil)

			Convey("Then the weak candidate falls below the threshold", func() {
				So(len(results), ShouldEqual, 1)
				So(results[0].CandidateID, ShouldEqual, "opp-strong")
			})

			Convey("Then the score is on the 0-100 scale", func() {
				So(results[0].Score, ShouldBeGreaterThan, 80)
				So(results[0].Score, ShouldBeLessThanOrEqualTo, 100)
			})

			Convey("Then at most four reasons are attached, skills first", func() {
				So(len(results[0].Reasons), ShouldBeLessThanOrEqualTo, 4)
				So(len(results[0].Reasons), ShouldBeGreaterThan, 0)
				So(results[0].Reasons[0], ShouldEqual, "Has every required skill")
			})

			Convey("Then an audit record exists for each returned match", func() {
				record, found, auditErr := sink.ReadAudit(ctx, "vol-1", "opp-strong")
				So(auditErr, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(record.AnchorID, ShouldEqual, "vol-1")
				So(record.FinalScore, ShouldBeGreaterThan, 0.8)
				So(record.Weights, ShouldNotBeEmpty)
				So(record.MatchID, ShouldNotBeEmpty)
			})
		})

		Convey("When the same request runs twice", func() {
			first, err1 := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 10)
			second, err2 := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 10)
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)

			Convey("Then the results are identical", func() {
				So(second, ShouldResemble, first)
			})
		})
	})
}

func TestFindMatchesTieBreak(t *testing.T) {
	Convey("Given two identical candidates", t, func() {
		ctx := context.Background()
		a := fixtureOpportunity("opp-b")
		b := fixtureOpportunity("opp-a")
		_, _, m := newFixture(fixtureVolunteer("vol-1"), a, b)

		Convey("When matches are requested", func() {
			results, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 10)
			So(err, ShouldBeNil)

			Convey("Then equal scores break ties by candidate id ascending", func() {
				So(len(results), ShouldEqual, 2)
				So(results[0].CandidateID, ShouldEqual, "opp-a")
				So(results[1].CandidateID, ShouldEqual, "opp-b")
			})
		})
	})
}

func TestFindMatchesExclusion(t *testing.T) {
	Convey("Given a volunteer already linked to an opportunity", t, func() {
		ctx := context.Background()
		dir, _, m := newFixture(
			fixtureVolunteer("vol-1"),
			fixtureOpportunity("opp-applied"),
			fixtureOpportunity("opp-open"),
		)
		So(dir.AddRelationship(ctx, "vol-1", "opp-applied"), ShouldBeNil)

		Convey("When matching from the volunteer side", func() {
			results, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 10)
			So(err, ShouldBeNil)

			Convey("Then the linked opportunity never appears", func() {
				So(len(results), ShouldEqual, 1)
				So(results[0].CandidateID, ShouldEqual, "opp-open")
			})
		})

		Convey("When matching from the opportunity side", func() {
			results, err := m.FindMatches(ctx, model.AnchorOpportunity, "opp-applied", 10)
			So(err, ShouldBeNil)

			Convey("Then the linked volunteer is excluded too", func() {
				So(results, ShouldBeEmpty)
			})
		})
	})
}

func TestFindMatchesLimit(t *testing.T) {
	Convey("Given more strong candidates than the limit", t, func() {
		ctx := context.Background()
		profiles := []model.CandidateProfile{fixtureVolunteer("vol-1")}
		for _, id := range []string{"opp-1", "opp-2", "opp-3", "opp-4", "opp-5"} {
			profiles = append(profiles, fixtureOpportunity(id))
		}
		_, _, m := newFixture(profiles...)

		Convey("When a limit of three is requested", func() {
			results, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 3)
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 3)
		})

		Convey("When no limit is given", func() {
			results, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 0)
			So(err, ShouldBeNil)

			Convey("Then the default limit applies", func() {
				So(len(results), ShouldEqual, 5)
			})
		})
	})
}

func TestFindMatchesPersonalization(t *testing.T) {
	Convey("Given two otherwise mid-scoring opportunities", t, func() {
		ctx := context.Background()
		boosted := fixtureOpportunity("opp-boosted")
		boosted.Causes = []string{"health"}
		boosted.Urgency = "high"
		plain := fixtureOpportunity("opp-plain")
		plain.Causes = []string{"housing"}

		vol := fixtureVolunteer("vol-1")
		vol.Causes = []string{"education"}

		dir, _, m := newFixture(vol, boosted, plain)

		Convey("When the volunteer has successful history overlapping one of them", func() {
			dir.RecordOutcome(ctx, "vol-1", model.HistoryEntry{
				Causes:  []string{"health"},
				Country: "DE",
				Urgency: "high",
				Outcome: model.OutcomeCompleted,
			})

			results, err := m.FindMatches(ctx, model.AnchorVolunteer, "vol-1", 10)
			So(err, ShouldBeNil)

			Convey("Then the overlapping opportunity ranks first", func() {
				So(len(results), ShouldEqual, 2)
				So(results[0].CandidateID, ShouldEqual, "opp-boosted")
			})
		})
	})
}
