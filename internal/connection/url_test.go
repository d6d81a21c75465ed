package connection

import (
	"strings"
	"testing"
)

func TestBuildListenURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		cfg      StreamConfig
		contains []string
		wantErr  bool
	}{
		{
			name: "https becomes wss",
			base: "https://api.deepgram.com/v1",
			cfg:  StreamConfig{Model: "nova-2", SampleRate: 16000, Channels: 1, Encoding: "linear16"},
			contains: []string{
				"wss://api.deepgram.com/v1/listen",
				"model=nova-2",
				"sample_rate=16000",
				"channels=1",
				"encoding=linear16",
			},
		},
		{
			name:     "http becomes ws",
			base:     "http://127.0.0.1:9000",
			cfg:      StreamConfig{Model: "nova-2", SampleRate: 16000, Channels: 1, Encoding: "linear16"},
			contains: []string{"ws://127.0.0.1:9000/listen"},
		},
		{
			name:     "language included when set",
			base:     "https://api.deepgram.com/v1",
			cfg:      StreamConfig{Model: "nova-2", Language: "en-US", SampleRate: 16000, Channels: 1, Encoding: "linear16"},
			contains: []string{"language=en-US"},
		},
		{
			name:     "interim results flag",
			base:     "https://api.deepgram.com/v1",
			cfg:      StreamConfig{Model: "nova-2", SampleRate: 16000, Channels: 1, Encoding: "linear16", InterimResults: true},
			contains: []string{"interim_results=true"},
		},
		{
			name:    "empty base is an error",
			base:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildListenURL(tt.base, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q in %q", want, got)
				}
			}
		})
	}
}

func TestNormalizeStreamConfig(t *testing.T) {
	cfg := normalizeStreamConfig(StreamConfig{})
	if cfg.Encoding != "linear16" {
		t.Errorf("expected linear16 default, got %s", cfg.Encoding)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("expected 16000 default, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		t.Errorf("expected mono default, got %d", cfg.Channels)
	}
	if cfg.Model == "" {
		t.Error("expected default model")
	}
}
