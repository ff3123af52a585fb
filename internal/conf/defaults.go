// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "BoxLens")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "boxlens.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	viper.SetDefault("vision.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("vision.apikey", "")
	viper.SetDefault("vision.model", "gpt-4o-mini")
	viper.SetDefault("vision.timeout", 45)
	viper.SetDefault("vision.maximagesize", 20971520)
	viper.SetDefault("vision.maxdetections", 100)
	viper.SetDefault("vision.debug", false)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "boxlens.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "boxlens")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "boxlens")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.log.enabled", true)
	viper.SetDefault("webserver.log.path", "webserver.log")
	viper.SetDefault("webserver.log.rotation", RotationDaily)
	viper.SetDefault("webserver.log.maxsize", 1048576)

	viper.SetDefault("pipeline.maxconcurrent", 8)

	viper.SetDefault("broadcast.channelbuffer", 16)
	viper.SetDefault("broadcast.snapshotttl", 300)
	viper.SetDefault("broadcast.debug", false)

	viper.SetDefault("push.enabled", false)
	viper.SetDefault("push.url", "")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
}
