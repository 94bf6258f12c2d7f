package cmd

import (
	"context"
	"testing"
)

func TestExpandKey(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "all placeholders",
			template: "model-diff/{model}_{base}_{head}",
			want:     "model-diff/orders_main_feature_x",
		},
		{
			name:     "mode placeholder lowercased",
			template: "reports/{mode}/{model}",
			want:     "reports/full_diff/orders",
		},
		{
			name:     "no placeholders passes through",
			template: "fixed/key",
			want:     "fixed/key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandKey(tt.template, "orders", "main", "feature/x", "FULL_DIFF")
			if got != tt.want {
				t.Errorf("expandKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublishDryRunSkipsUpload(t *testing.T) {
	p, err := NewPublisher(PublishConfig{
		Endpoint:    "http://localhost:9000",
		Bucket:      "reports",
		Region:      "auto",
		Key:         "model-diff/{model}",
		Compression: "none",
	}, true, newTestLogger())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	// Dry run must return before touching the network.
	err = p.Publish(context.Background(), []byte("report body"), "orders", "main", "HEAD", "FULL_DIFF", ".json", "application/json")
	if err != nil {
		t.Fatalf("Publish dry run: %v", err)
	}
}
