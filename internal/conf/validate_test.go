package conf

import (
	"strings"
	"testing"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Vision.Endpoint = "https://vision.example.com/v1/chat/completions"
	s.Vision.Model = "gpt-4o-mini"
	s.Vision.Timeout = 45
	s.Vision.MaxImageSize = 20 << 20
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "boxlens.db"
	s.WebServer.Enabled = true
	s.WebServer.Port = "8080"
	s.Pipeline.MaxConcurrent = 8
	s.Broadcast.ChannelBuffer = 16
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	t.Parallel()

	if err := ValidateSettings(validSettings()); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
}

func TestValidateSettingsRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{
			name:    "no database enabled",
			mutate:  func(s *Settings) { s.Output.SQLite.Enabled = false },
			wantMsg: "must be enabled",
		},
		{
			name: "both databases enabled",
			mutate: func(s *Settings) {
				s.Output.MySQL.Enabled = true
				s.Output.MySQL.Host = "localhost"
				s.Output.MySQL.Database = "boxlens"
				s.Output.MySQL.Port = "3306"
			},
			wantMsg: "only one",
		},
		{
			name:    "empty vision endpoint",
			mutate:  func(s *Settings) { s.Vision.Endpoint = "" },
			wantMsg: "vision.endpoint",
		},
		{
			name:    "zero vision timeout",
			mutate:  func(s *Settings) { s.Vision.Timeout = 0 },
			wantMsg: "vision.timeout",
		},
		{
			name:    "bad web port",
			mutate:  func(s *Settings) { s.WebServer.Port = "http" },
			wantMsg: "webserver.port",
		},
		{
			name:    "push enabled without url",
			mutate:  func(s *Settings) { s.Push.Enabled = true },
			wantMsg: "push.url",
		},
		{
			name:    "zero pipeline concurrency",
			mutate:  func(s *Settings) { s.Pipeline.MaxConcurrent = 0 },
			wantMsg: "pipeline.maxconcurrent",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tc.mutate(s)
			err := ValidateSettings(s)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tc.wantMsg, err.Error())
			}
		})
	}
}
