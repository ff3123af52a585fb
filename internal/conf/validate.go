package conf

import (
	"fmt"
	"strconv"
)

// ValidateSettings checks the loaded settings for basic consistency.
// It returns the first problem found with an actionable message.
func ValidateSettings(settings *Settings) error {
	if err := validateVisionSettings(&settings.Vision); err != nil {
		return err
	}
	if err := validateOutputSettings(&settings.Output); err != nil {
		return err
	}
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		return err
	}
	if settings.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("pipeline.maxconcurrent must be at least 1, got %d", settings.Pipeline.MaxConcurrent)
	}
	if settings.Broadcast.ChannelBuffer < 1 {
		return fmt.Errorf("broadcast.channelbuffer must be at least 1, got %d", settings.Broadcast.ChannelBuffer)
	}
	if settings.Push.Enabled && settings.Push.URL == "" {
		return fmt.Errorf("push.url must be set when push.enabled is true")
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn must be set when sentry.enabled is true")
	}
	return nil
}

func validateVisionSettings(vision *VisionSettings) error {
	if vision.Endpoint == "" {
		return fmt.Errorf("vision.endpoint must not be empty")
	}
	if vision.Model == "" {
		return fmt.Errorf("vision.model must not be empty")
	}
	if vision.Timeout < 1 {
		return fmt.Errorf("vision.timeout must be at least 1 second, got %d", vision.Timeout)
	}
	if vision.MaxImageSize < 1 {
		return fmt.Errorf("vision.maximagesize must be positive, got %d", vision.MaxImageSize)
	}
	return nil
}

func validateOutputSettings(output *OutputSettings) error {
	if !output.SQLite.Enabled && !output.MySQL.Enabled {
		return fmt.Errorf("either output.sqlite or output.mysql must be enabled")
	}
	if output.SQLite.Enabled && output.MySQL.Enabled {
		return fmt.Errorf("only one of output.sqlite and output.mysql may be enabled")
	}
	if output.SQLite.Enabled && output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must not be empty")
	}
	if output.MySQL.Enabled {
		if output.MySQL.Host == "" || output.MySQL.Database == "" {
			return fmt.Errorf("output.mysql.host and output.mysql.database must be set")
		}
		if _, err := strconv.Atoi(output.MySQL.Port); err != nil {
			return fmt.Errorf("output.mysql.port must be numeric, got %q", output.MySQL.Port)
		}
	}
	return nil
}

func validateWebServerSettings(web *WebServerSettings) error {
	if !web.Enabled {
		return nil
	}
	port, err := strconv.Atoi(web.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a valid port number, got %q", web.Port)
	}
	return nil
}
