package config_test

import (
	"testing"

	"github.com/okian/mirrorback/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8001")
			convey.So(cfg.AdminAddr, convey.ShouldEqual, ":9091")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 10<<20)
			convey.So(cfg.MaxDelaySeconds, convey.ShouldEqual, 0)
			convey.So(cfg.MaxPendingDelays, convey.ShouldEqual, 0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the body limit is zero", func() {
			cfg.MaxBodyBytes = 0
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the delay cap is negative", func() {
			cfg.MaxDelaySeconds = -1
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the pending limit is negative", func() {
			cfg.MaxPendingDelays = -5
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When a timeout is negative", func() {
			cfg.IdleTimeoutMS = -1
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			err := cfg.Validate()
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			convey.So(err.Error(), convey.ShouldContainSubstring, "log_format")
		})
	})
}
