package config

import "testing"

func TestAcceptableDefaultsTo200(t *testing.T) {
	desc := ServiceDescriptor{Name: "api"}

	if !desc.Acceptable(200) {
		t.Fatal("200 must pass the default accept set")
	}
	if desc.Acceptable(404) || desc.Acceptable(500) {
		t.Fatal("only 200 passes the default accept set")
	}
}

func TestAcceptablePerServiceSet(t *testing.T) {
	desc := ServiceDescriptor{
		Name:  "inference",
		Probe: ProbeSpec{AcceptStatus: []int{200, 404}},
	}

	if !desc.Acceptable(404) {
		t.Fatal("404 is in this service's accept set")
	}
	if desc.Acceptable(500) {
		t.Fatal("500 is not in the accept set")
	}
}

func TestGovernedPathsDeduplicates(t *testing.T) {
	spec := SystemSpecification{
		Rules: []ConfigRule{
			{Name: "a", Path: "/etc/aistack/config.json"},
			{Name: "b", Path: "/etc/aistack/config.json"},
			{Name: "c", Path: "/etc/aistack/models.yaml"},
		},
	}

	paths := spec.GovernedPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 deduplicated paths, got %v", paths)
	}
	if paths[0] != "/etc/aistack/config.json" || paths[1] != "/etc/aistack/models.yaml" {
		t.Fatalf("order not preserved: %v", paths)
	}
}
