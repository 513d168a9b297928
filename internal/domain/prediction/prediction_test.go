package prediction_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/prediction"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractScore(t *testing.T) {
	Convey("Given the response shapes endpoints return", t, func() {
		Convey("Then a scores list yields its first element", func() {
			s, err := prediction.ExtractScore(map[string]any{"scores": []any{0.62, 0.38}, "score": 0.1})
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 0.62)
		})

		Convey("Then an empty scores list falls back to score", func() {
			s, err := prediction.ExtractScore(map[string]any{"scores": []any{}, "score": "0.7"})
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 0.7)
		})

		Convey("Then a list yields its first element", func() {
			s, err := prediction.ExtractScore([]any{json.Number("0.25")})
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 0.25)
		})

		Convey("Then a bare scalar is used as is", func() {
			s, err := prediction.ExtractScore(1.0)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 1.0)

			s, err = prediction.ExtractScore(" 0.5 ")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 0.5)
		})
	})

	Convey("Given responses with no usable score", t, func() {
		for _, p := range []any{
			map[string]any{"label": "win"},
			[]any{},
			[]any{"abc"},
			nil,
			true,
			"NaN",
		} {
			_, err := prediction.ExtractScore(p)
			So(errors.Is(err, prediction.ErrUnusableResponse), ShouldBeTrue)
		}
	})

	Convey("Given an empty prediction list", t, func() {
		_, err := prediction.FirstScore(nil)

		Convey("Then it is unusable", func() {
			So(errors.Is(err, prediction.ErrUnusableResponse), ShouldBeTrue)
		})
	})
}

func TestPredictorFunc(t *testing.T) {
	Convey("Given a function predictor", t, func() {
		var got int
		p := prediction.PredictorFunc(func(_ context.Context, v feature.Vector) (float64, error) {
			got = v.Len()
			return 0.9, nil
		})

		Convey("Then it is called with the vector", func() {
			s, err := p.Predict(context.Background(), feature.Vector{})
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 0.9)
			So(got, ShouldEqual, 0)
		})
	})
}
