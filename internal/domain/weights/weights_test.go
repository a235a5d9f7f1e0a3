package weights_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVector(t *testing.T) {
	Convey("Given the default vector", t, func() {
		v := weights.Default()

		Convey("Then it sums to one within epsilon", func() {
			So(v.Normal(), ShouldBeTrue)
			So(math.Abs(v.Sum()-1.0), ShouldBeLessThanOrEqualTo, weights.Epsilon)
		})

		Convey("Then it covers every scoring dimension", func() {
			for _, name := range model.FeatureNames() {
				So(v[name], ShouldBeGreaterThan, 0)
			}
		})

		Convey("Then cloning yields an independent copy", func() {
			clone := v.Clone()
			clone[model.FeatureSkillMatch] = 0.99
			So(v[model.FeatureSkillMatch], ShouldEqual, 0.25)
		})
	})

	Convey("Given normalization of arbitrary vectors", t, func() {
		Convey("When weights are equal", func() {
			norm, err := weights.Vector{"a": 2, "b": 2}.Normalized()
			So(err, ShouldBeNil)
			So(norm["a"], ShouldEqual, 0.5)
			So(norm["b"], ShouldEqual, 0.5)
		})

		Convey("When a weight is negative", func() {
			_, err := weights.Vector{"a": -1, "b": 2}.Normalized()
			So(errors.Is(err, weights.ErrNegativeWeight), ShouldBeTrue)
		})

		Convey("When a weight is NaN", func() {
			_, err := weights.Vector{"a": math.NaN()}.Normalized()
			So(errors.Is(err, weights.ErrUnstableWeights), ShouldBeTrue)
		})

		Convey("When the vector is empty", func() {
			_, err := weights.Vector{}.Normalized()
			So(errors.Is(err, weights.ErrEmptyVector), ShouldBeTrue)
		})

		Convey("When all weights are zero", func() {
			_, err := weights.Vector{"a": 0, "b": 0}.Normalized()
			So(errors.Is(err, weights.ErrZeroSum), ShouldBeTrue)
		})
	})
}

func TestStore(t *testing.T) {
	Convey("Given a store seeded with the default vector", t, func() {
		store := weights.NewStore(weights.Default())

		Convey("Then the snapshot is normalized", func() {
			So(store.Snapshot().Normal(), ShouldBeTrue)
		})

		Convey("When seeded with an invalid vector", func() {
			bad := weights.NewStore(weights.Vector{"a": -1})

			Convey("Then it falls back to the defaults", func() {
				snapshot := bad.Snapshot()
				So(snapshot[model.FeatureSkillMatch], ShouldEqual, 0.25)
			})
		})

		Convey("When replacing with a raw vector", func() {
			norm, err := store.Replace(weights.Vector{"a": 3, "b": 1})
			So(err, ShouldBeNil)

			Convey("Then the published vector is renormalized", func() {
				So(norm["a"], ShouldEqual, 0.75)
				So(norm["b"], ShouldEqual, 0.25)
				So(store.Snapshot().Normal(), ShouldBeTrue)
			})
		})

		Convey("When an update function fails", func() {
			before := store.Snapshot()
			_, err := store.Update(func(v weights.Vector) error {
				v["a"] = 99
				return errors.New("boom")
			})

			Convey("Then the original vector stays live", func() {
				So(err, ShouldNotBeNil)
				So(store.Snapshot(), ShouldResemble, before)
			})
		})

		Convey("When an update produces an unnormalizable vector", func() {
			before := store.Snapshot()
			_, err := store.Update(func(v weights.Vector) error {
				for k := range v {
					v[k] = math.NaN()
				}
				return nil
			})

			Convey("Then the update is discarded", func() {
				So(errors.Is(err, weights.ErrUnstableWeights), ShouldBeTrue)
				So(store.Snapshot(), ShouldResemble, before)
			})
		})

		Convey("When snapshots are taken during concurrent updates", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						_, _ = store.Update(func(v weights.Vector) error {
							for k := range v {
								v[k] *= 1.001
							}
							return nil
						})
					}
				}()
			}

			normal := true
			for i := 0; i < 500; i++ {
				if !store.Snapshot().Normal() {
					normal = false
					break
				}
			}
			wg.Wait()

			Convey("Then no reader ever observes a torn vector", func() {
				So(normal, ShouldBeTrue)
				So(store.Snapshot().Normal(), ShouldBeTrue)
			})
		})
	})
}
