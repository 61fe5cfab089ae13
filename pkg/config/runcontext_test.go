package config

import "testing"

func TestDetectRunContext(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		wantPipeline  bool
		wantIndicator string
	}{
		{
			name:         "no indicators",
			env:          map[string]string{"HOME": "/home/dev"},
			wantPipeline: false,
		},
		{
			name:          "generic ci variable",
			env:           map[string]string{"CI": "true"},
			wantPipeline:  true,
			wantIndicator: "CI",
		},
		{
			name:          "github actions",
			env:           map[string]string{"GITHUB_ACTIONS": "true"},
			wantPipeline:  true,
			wantIndicator: "GITHUB_ACTIONS",
		},
		{
			name:          "jenkins url",
			env:           map[string]string{"JENKINS_URL": "https://ci.internal/"},
			wantPipeline:  true,
			wantIndicator: "JENKINS_URL",
		},
		{
			name:         "empty value is not set",
			env:          map[string]string{"CI": ""},
			wantPipeline: false,
		},
		{
			name:         "explicit false is not set",
			env:          map[string]string{"CI": "false"},
			wantPipeline: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(name string) (string, bool) {
				v, ok := tt.env[name]
				return v, ok
			}

			rc := detectRunContext(lookup)
			if rc.Pipeline != tt.wantPipeline {
				t.Errorf("Pipeline = %v, want %v", rc.Pipeline, tt.wantPipeline)
			}
			if rc.Indicator != tt.wantIndicator {
				t.Errorf("Indicator = %q, want %q", rc.Indicator, tt.wantIndicator)
			}
		})
	}
}
