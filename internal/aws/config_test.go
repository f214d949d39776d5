package aws

import (
	"context"
	"testing"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "us-east-1" {
		t.Fatalf("expected default region 'us-east-1', got %s", cfg.Region)
	}
	if cfg.BaseEndpoint != nil {
		t.Fatalf("expected no endpoint override, got %s", *cfg.BaseEndpoint)
	}
}

func TestLoadAWSConfig_WithEndpointOverride(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), "eu-west-1", "http://localhost:4566")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "eu-west-1" {
		t.Fatalf("region mismatch, got %s", cfg.Region)
	}
	if cfg.BaseEndpoint == nil || *cfg.BaseEndpoint != "http://localhost:4566" {
		t.Fatalf("endpoint override not applied: %v", cfg.BaseEndpoint)
	}
}
