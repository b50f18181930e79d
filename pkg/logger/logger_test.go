package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()

			Convey("Then Get returns a usable logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with JSON output", func() {
			var buf bytes.Buffer
			err := Init(WithFormat("json"), WithOutput(&buf))
			So(err, ShouldBeNil)

			Get().Info(context.Background(), "hello", String("k", "v"))

			Convey("Then entries are JSON encoded with a source field", func() {
				So(buf.String(), ShouldStartWith, "{")
				So(buf.String(), ShouldContainSubstring, `"msg":"hello"`)
				So(buf.String(), ShouldContainSubstring, `"k":"v"`)
				So(buf.String(), ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("Debug is hidden at info level", func() {
			Get().Debug(ctx, "quiet")
			So(buf.String(), ShouldBeEmpty)
		})

		Convey("Debug shows after SetLevelString(debug)", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "loud", Error(errors.New("boom")))
			So(buf.String(), ShouldContainSubstring, "loud")
			So(buf.String(), ShouldContainSubstring, "boom")
		})

		Convey("Unknown levels are rejected", func() {
			So(SetLevelString("chatty"), ShouldNotBeNil)
		})

		Convey("Named loggers tag the component", func() {
			Named("auth").Warn(ctx, "careful", Bool("ok", false))
			So(buf.String(), ShouldContainSubstring, "component=auth")
			So(buf.String(), ShouldContainSubstring, "ok=false")
		})
	})
}

func TestStandaloneLoggers(t *testing.T) {
	Convey("Given standalone loggers", t, func() {
		var buf bytes.Buffer
		l := New(&buf, slog.LevelWarn)

		Convey("Then they honor their own level", func() {
			l.Info(context.Background(), "skipped")
			l.Error(context.Background(), "kept", Int("n", 3))
			So(buf.String(), ShouldNotContainSubstring, "skipped")
			So(buf.String(), ShouldContainSubstring, "n=3")
		})

		Convey("And Discard drops everything", func() {
			So(func() { Discard().Error(context.Background(), "nothing") }, ShouldNotPanic)
		})
	})
}
