package config

import (
	"reflect"
	"testing"
)

func TestMergePrecedence(t *testing.T) {
	common := map[string]any{"region": "us-east-1", "owner": "platform", "size": "small"}
	cloud := map[string]any{"region": "eu-west-1", "size": "medium"}
	module := ModuleSettings{"size": "large"}

	got := Merge(common, cloud, module, RunContext{})

	want := Variables{
		"region": "eu-west-1",
		"owner":  "platform",
		"size":   "large",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
}

func TestMergeStripsStructuralKeys(t *testing.T) {
	common := map[string]any{"enabled": true, "modules": []string{"x"}, "owner": "platform"}
	cloud := map[string]any{"enabled": false, "region": "eu-west-1"}
	module := ModuleSettings{"modules": "nested", "cidr": "10.0.0.0/16"}

	got := Merge(common, cloud, module, RunContext{})

	if _, ok := got["enabled"]; ok {
		t.Error("merged variables contain enabled key")
	}
	if _, ok := got["modules"]; ok {
		t.Error("merged variables contain modules key")
	}
	if got["owner"] != "platform" || got["region"] != "eu-west-1" || got["cidr"] != "10.0.0.0/16" {
		t.Errorf("unexpected merged variables: %v", got)
	}
}

func TestMergeProfileStripping(t *testing.T) {
	tests := []struct {
		name        string
		rc          RunContext
		wantProfile bool
	}{
		{name: "local run keeps profile", rc: RunContext{}, wantProfile: true},
		{name: "pipeline run strips profile", rc: RunContext{Pipeline: true, Indicator: "CI"}, wantProfile: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			common := map[string]any{"profile": "deploy", "owner": "platform"}
			got := Merge(common, nil, nil, tt.rc)

			_, ok := got["profile"]
			if ok != tt.wantProfile {
				t.Errorf("profile present = %v, want %v", ok, tt.wantProfile)
			}
		})
	}
}

func TestMergeProfileFromCloudLayerSurvivesPipeline(t *testing.T) {
	// Only the common layer is credential-bearing; a cloud-level profile key
	// is an ordinary variable and passes through untouched.
	cloud := map[string]any{"profile": "cloud-specific"}
	got := Merge(nil, cloud, nil, RunContext{Pipeline: true})

	if got["profile"] != "cloud-specific" {
		t.Errorf("cloud-layer profile = %v, want cloud-specific", got["profile"])
	}
}

func TestMergeIsPure(t *testing.T) {
	common := map[string]any{"owner": "platform", "enabled": true}
	cloud := map[string]any{"region": "eu-west-1"}
	module := ModuleSettings{"size": "large"}

	first := Merge(common, cloud, module, RunContext{})
	second := Merge(common, cloud, module, RunContext{})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated merges differ: %v vs %v", first, second)
	}
	if _, ok := common["enabled"]; !ok {
		t.Error("Merge mutated its common input")
	}
}

func TestMergeCell(t *testing.T) {
	env := &Environment{
		Name:   "dev",
		Common: map[string]any{"owner": "platform"},
		Clouds: map[string]*Cloud{
			"aws": {
				Settings: map[string]any{"region": "eu-west-1"},
				Modules: map[string]ModuleSettings{
					"network": {"cidr": "10.0.0.0/16"},
				},
			},
		},
	}

	got := env.MergeCell("aws", "network", RunContext{})
	want := Variables{"owner": "platform", "region": "eu-west-1", "cidr": "10.0.0.0/16"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeCell() = %v, want %v", got, want)
	}
}

func TestVariablesSortedKeys(t *testing.T) {
	v := Variables{"zeta": 1, "alpha": 2, "mid": 3}
	got := v.SortedKeys()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedKeys() = %v, want %v", got, want)
	}
}
