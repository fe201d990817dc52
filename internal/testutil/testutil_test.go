package testutil

import (
	"strings"
	"testing"
)

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{" YES ", true},
		{"0", false},
		{"", false},
		{"nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TESTUTIL_FLAG", tt.value)
			if got := envBool("TESTUTIL_FLAG"); got != tt.want {
				t.Errorf("envBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRequireRedis(t *testing.T) {
	t.Setenv("TEST_REQUIRE_REDIS", "")
	t.Setenv("TEST_REQUIRE_INFRA", "true")
	if !requireRedis() {
		t.Error("TEST_REQUIRE_INFRA should imply redis is required")
	}
}

func TestSelectTestRedisDB(t *testing.T) {
	t.Setenv("TEST_REDIS_DB", "7")
	if got := selectTestRedisDB(t); got != 7 {
		t.Errorf("selectTestRedisDB() = %d, want 7", got)
	}

	t.Setenv("TEST_REDIS_DB", "bogus")
	if got := selectTestRedisDB(t); got != 1 {
		t.Errorf("selectTestRedisDB() = %d, want 1 for invalid override", got)
	}
}

func TestUniqueChannel(t *testing.T) {
	a := UniqueChannel("code-generated")
	b := UniqueChannel("code-generated")
	if !strings.HasPrefix(a, "code-generated:test:") {
		t.Errorf("UniqueChannel() = %q, missing prefix", a)
	}
	if a == b {
		t.Errorf("UniqueChannel() returned duplicate %q", a)
	}
}
