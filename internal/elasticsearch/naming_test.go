package elasticsearch

import "testing"

func TestNamespace_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		logical   string
		expected  string
	}{
		{"no namespace is identity", "", "metrics", "metrics"},
		{"namespace prefixes", "prod", "metrics", "prod_metrics"},
		{"namespace lower-cased", "PROD", "metrics", "prod_metrics"},
		{"mixed case namespace", "TeamA", "segment", "teama_segment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := NewNamespace(tt.namespace)
			if got := ns.Resolve(tt.logical); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.logical, got, tt.expected)
			}
		})
	}
}

// Resolution is not idempotent: applying it to an already-physical name
// accumulates the prefix. Names retrieved from the cluster must therefore
// go through the physical entry points, never back through Resolve.
func TestNamespace_ResolveIsNotReapplicable(t *testing.T) {
	ns := NewNamespace("prod")

	physical := ns.Resolve("metrics")
	if physical != "prod_metrics" {
		t.Fatalf("Resolve(metrics) = %q, want prod_metrics", physical)
	}

	doubled := ns.Resolve(physical)
	if doubled != "prod_prod_metrics" {
		t.Fatalf("Resolve(Resolve(metrics)) = %q, want the accumulated prefix", doubled)
	}
}

func TestNamespace_Configured(t *testing.T) {
	if NewNamespace("").Configured() {
		t.Error("empty namespace reports configured")
	}
	if !NewNamespace("prod").Configured() {
		t.Error("non-empty namespace reports unconfigured")
	}
}
