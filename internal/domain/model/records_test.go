package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/okian/seasonpoints/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordsSerialization(t *testing.T) {
	Convey("Given ranks 5, blank, 12", t, func() {
		r := model.Records{5, 0, 12}

		Convey("Then they serialize with a trailing separator per slot", func() {
			So(r.Serialize(), ShouldEqual, "5::12:")
		})

		Convey("And parsing the string recovers the same slots", func() {
			So(model.ParseRecords(r.Serialize(), 3), ShouldResemble, r)
		})
	})

	Convey("Given all blank slots", t, func() {
		r := model.NewRecords(4)

		Convey("Then the serialized form is one separator per slot", func() {
			So(r.Serialize(), ShouldEqual, "::::")
			So(r.Filled(), ShouldEqual, 0)
		})
	})
}

func TestParseRecords(t *testing.T) {
	Convey("Given serialized strings of various shapes", t, func() {
		Convey("When the string has fewer elements than slots", func() {
			r := model.ParseRecords("7:8", 4)
			So(r, ShouldResemble, model.Records{7, 8, 0, 0})
		})

		Convey("When the string has more elements than slots", func() {
			r := model.ParseRecords("1:2:3:4:", 2)
			So(r, ShouldResemble, model.Records{1, 2})
		})

		Convey("When some elements are garbage", func() {
			r := model.ParseRecords("abc:-4:0: 9 :", 4)
			So(r, ShouldResemble, model.Records{0, 0, 0, 9})
		})

		Convey("When the string is empty", func() {
			So(model.ParseRecords("", 3), ShouldResemble, model.Records{0, 0, 0})
		})
	})
}

func TestParseRankAndSet(t *testing.T) {
	Convey("Given raw slot input", t, func() {
		Convey("Positive integers are ranks", func() {
			n, ok := model.ParseRank("42")
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 42)
		})

		Convey("Everything else is blank", func() {
			for _, raw := range []string{"", "x", "0", "-1", "1.5", "12.5", "5abc", strings.Repeat("9", 40)} {
				_, ok := model.ParseRank(raw)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("Set blanks the slot on invalid input", func() {
			r := model.Records{3, 4}
			So(r.Set(0, "nope"), ShouldBeFalse)
			So(r.Set(1, "10"), ShouldBeTrue)
			So(r, ShouldResemble, model.Records{0, 10})
		})

		Convey("Clone is independent", func() {
			r := model.Records{1}
			c := r.Clone()
			c[0] = 2
			So(r[0], ShouldEqual, 1)
		})
	})
}

func TestTokenValidity(t *testing.T) {
	Convey("Given a cached token", t, func() {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		tok := model.Token{TokenType: "Bearer", AccessToken: "abc", ExpirationDate: now.Add(time.Hour)}

		Convey("It is valid before expiry", func() {
			So(tok.Valid(now), ShouldBeTrue)
		})

		Convey("It is invalid at or after expiry", func() {
			So(tok.Valid(now.Add(time.Hour)), ShouldBeFalse)
			So(tok.Valid(now.Add(2*time.Hour)), ShouldBeFalse)
		})

		Convey("It is invalid without an access token", func() {
			tok.AccessToken = ""
			So(tok.Valid(now), ShouldBeFalse)
		})
	})
}
