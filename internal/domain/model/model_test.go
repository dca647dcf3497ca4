package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/fires/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDimensions(t *testing.T) {
	convey.Convey("Given the FIRES dimension set", t, func() {
		convey.Convey("Then the canonical order is fixed", func() {
			convey.So(model.Dimensions[0], convey.ShouldEqual, model.Feelings)
			convey.So(model.Dimensions[4], convey.ShouldEqual, model.Strengths)
			convey.So(model.Ethics.Index(), convey.ShouldEqual, 3)
		})

		convey.Convey("When parsing a dimension name", func() {
			d, err := model.ParseDimension("  Resilience ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(d, convey.ShouldEqual, model.Resilience)

			_, err = model.ParseDimension("charisma")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestZoneBreakdownJSON(t *testing.T) {
	convey.Convey("Given a zone breakdown", t, func() {
		b := model.ZoneBreakdown{model.Owning, model.Performing, model.Discovering, model.Owning, model.Exploring}

		convey.Convey("When encoding it", func() {
			raw, err := json.Marshal(b)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then dimensions appear in canonical order by name", func() {
				convey.So(string(raw), convey.ShouldEqual,
					`{"feelings":"owning","influence":"performing","resilience":"discovering","ethics":"owning","strengths":"exploring"}`)
			})

			convey.Convey("And decoding restores every dimension", func() {
				var back model.ZoneBreakdown
				convey.So(json.Unmarshal(raw, &back), convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, b)
			})
		})

		convey.Convey("When decoding an object with a missing dimension", func() {
			var back model.ZoneBreakdown
			err := json.Unmarshal([]byte(`{"feelings":"owning"}`), &back)

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestPhaseOf(t *testing.T) {
	convey.Convey("Given engagement weeks", t, func() {
		convey.So(model.PhaseOf(1), convey.ShouldEqual, model.PhaseName)
		convey.So(model.PhaseOf(4), convey.ShouldEqual, model.PhaseName)
		convey.So(model.PhaseOf(5), convey.ShouldEqual, model.PhaseValidate)
		convey.So(model.PhaseOf(8), convey.ShouldEqual, model.PhaseValidate)
		convey.So(model.PhaseOf(9), convey.ShouldEqual, model.PhaseCommunicate)
		convey.So(model.PhaseOf(12), convey.ShouldEqual, model.PhaseCommunicate)
		convey.So(model.PhaseOf(40), convey.ShouldEqual, model.PhaseCommunicate)
	})
}

func TestContentVisibility(t *testing.T) {
	convey.Convey("Given shareable content records", t, func() {
		convey.Convey("Then shares are always visible", func() {
			convey.So(model.ShareableContent{Kind: model.KindShare}.Visible(), convey.ShouldBeTrue)
		})

		convey.Convey("And other kinds need the opt-in flag", func() {
			convey.So(model.ShareableContent{Kind: model.KindProof}.Visible(), convey.ShouldBeFalse)
			convey.So(model.ShareableContent{Kind: model.KindProof, Shareable: true}.Visible(), convey.ShouldBeTrue)
		})
	})
}
