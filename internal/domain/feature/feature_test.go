package feature_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/matchpred/internal/domain/feature"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValue_String(t *testing.T) {
	Convey("Given scalar values", t, func() {
		Convey("Then they render in canonical text form", func() {
			So(feature.Int(11).String(), ShouldEqual, "11")
			So(feature.Int(-3).String(), ShouldEqual, "-3")
			So(feature.Float(11).String(), ShouldEqual, "11.0")
			So(feature.Float(31.0/3).String(), ShouldEqual, "10.333333333333334")
			So(feature.Float(2024).String(), ShouldEqual, "2024.0")
			So(feature.Float(1e16).String(), ShouldEqual, "1e+16")
			So(feature.Float(0.00001).String(), ShouldEqual, "1e-05")
			So(feature.Float(0.0001).String(), ShouldEqual, "0.0001")
			So(feature.Bool(true).String(), ShouldEqual, "True")
			So(feature.Bool(false).String(), ShouldEqual, "False")
			So(feature.Text(" x ").String(), ShouldEqual, " x ")
			So(feature.Raw(json.RawMessage(`[ [11, 9] ]`)).String(), ShouldEqual, "[[11,9]]")
		})
	})
}

func TestValue_MarshalJSON(t *testing.T) {
	Convey("Given values of every kind", t, func() {
		in := feature.Instance{
			"n": feature.Null(),
			"i": feature.Int(7),
			"f": feature.Float(9),
			"b": feature.Bool(true),
			"s": feature.Text("USA"),
			"r": feature.Raw(json.RawMessage(`{"k":1}`)),
			"x": feature.Float(math.Inf(1)),
		}

		Convey("Then they encode as their natural JSON types", func() {
			out, err := json.Marshal(in)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `{"b":true,"f":9.0,"i":7,"n":null,"r":{"k":1},"s":"USA","x":null}`)
		})
	})
}

func TestFromAny(t *testing.T) {
	Convey("Given decoded JSON values", t, func() {
		Convey("Then integer literals stay integers and decimals become floats", func() {
			So(feature.FromAny(json.Number("2024")).Kind(), ShouldEqual, feature.KindInt)
			So(feature.FromAny(json.Number("11.0")).Kind(), ShouldEqual, feature.KindFloat)
			So(feature.FromAny(json.Number("1e3")).Kind(), ShouldEqual, feature.KindFloat)
			So(feature.FromAny(json.Number("99999999999999999999")).Kind(), ShouldEqual, feature.KindFloat)
		})

		Convey("Then nested values are kept as raw JSON", func() {
			v := feature.FromAny([]any{json.Number("11"), json.Number("9")})
			So(v.Kind(), ShouldEqual, feature.KindRaw)
			So(v.String(), ShouldEqual, "[11,9]")
		})

		Convey("Then nil, bool and string map directly", func() {
			So(feature.FromAny(nil).IsNull(), ShouldBeTrue)
			So(feature.FromAny(true).Equal(feature.Bool(true)), ShouldBeTrue)
			So(feature.FromAny("a").Equal(feature.Text("a")), ShouldBeTrue)
		})
	})
}

func TestInstance_SetDefault(t *testing.T) {
	Convey("Given an instance with a null value", t, func() {
		in := feature.Instance{"a": feature.Null()}

		Convey("When setting defaults", func() {
			setA := in.SetDefault("a", feature.Int(1))
			setB := in.SetDefault("b", feature.Int(2))

			Convey("Then only absent keys are written", func() {
				So(setA, ShouldBeFalse)
				So(setB, ShouldBeTrue)
				So(in["a"].IsNull(), ShouldBeTrue)
				So(in["b"].Equal(feature.Int(2)), ShouldBeTrue)
			})
		})
	})
}

func TestSchema(t *testing.T) {
	Convey("Given the default schema", t, func() {
		s := feature.DefaultSchema()

		Convey("Then it carries the full model contract", func() {
			So(s.Len(), ShouldEqual, 29)
			So(s.Required()[0], ShouldEqual, "avg_point_diff")
			So(s.Required()[28], ShouldEqual, "games_tuples")
		})

		Convey("Then classes partition the required features", func() {
			So(s.ClassOf("avg_point_diff"), ShouldEqual, feature.ClassNumeric)
			So(s.ClassOf("avg_points_scored_b"), ShouldEqual, feature.ClassNumeric)
			So(s.ClassOf("total_points"), ShouldEqual, feature.ClassString)
			So(s.ClassOf("yr"), ShouldEqual, feature.ClassString)
			So(s.ClassOf("match_id"), ShouldEqual, feature.ClassNone)
		})

		Convey("Then winner is blocked", func() {
			So(s.Blocked("winner"), ShouldBeTrue)
			So(s.Blocked("player_a"), ShouldBeFalse)
		})

		Convey("Then Required returns a copy", func() {
			r := s.Required()
			r[0] = "tampered"
			So(s.Required()[0], ShouldEqual, "avg_point_diff")
		})
	})
}

func TestNewVector(t *testing.T) {
	Convey("Given a small schema", t, func() {
		s := feature.NewSchema([]string{"b", "a", "c"}, nil, []string{"a"})

		Convey("When an instance misses required keys", func() {
			_, err := feature.NewVector(s, feature.Instance{"a": feature.Float(1)})

			Convey("Then the error names them in schema order", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, feature.ErrMissingFeatures), ShouldBeTrue)
				var mf *feature.MissingFeaturesError
				So(errors.As(err, &mf), ShouldBeTrue)
				So(mf.Names, ShouldResemble, []string{"b", "c"})
				So(err.Error(), ShouldEqual, "Missing features: b, c")
			})
		})

		Convey("When all required keys are present, some null, plus extras", func() {
			in := feature.Instance{
				"a":     feature.Float(1.5),
				"b":     feature.Null(),
				"c":     feature.Text("x"),
				"extra": feature.Text("dropped"),
			}
			v, err := feature.NewVector(s, in)

			Convey("Then the vector keeps only required keys in order", func() {
				So(err, ShouldBeNil)
				So(v.Len(), ShouldEqual, 3)
				out, err := json.Marshal(v)
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, `{"b":null,"a":1.5,"c":"x"}`)
				_, ok := v.Get("extra")
				So(ok, ShouldBeFalse)
				So(v.Instance().Has("extra"), ShouldBeFalse)
			})
		})
	})
}
