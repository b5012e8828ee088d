package config

import (
	"reflect"
	"testing"
)

func TestParseArgsAndEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		envs      map[string]string
		want      *Options
		expectErr bool
	}{
		{
			name: "missing --rpc without --dry",
			args: []string{"--datasets", "blocks"},
			envs: map[string]string{},
			expectErr: true,
		},
		{
			name:      "dry run does not require --rpc",
			args:      []string{"--datasets", "blocks", "--dry"},
			envs:      map[string]string{},
			expectErr: false,
		},
		{
			name: "default values are applied",
			args: []string{"--datasets", "blocks,transactions", "--rpc", "http://localhost:8545"},
			envs: map[string]string{},
			want: &Options{
				Datasets:              []string{"blocks", "transactions"},
				RPCURL:                "http://localhost:8545",
				MaxRetries:            5,
				InitialBackoffMs:      500,
				MaxConcurrentChunks:   4,
				MaxConcurrentBlocks:   4,
				MaxConcurrentRequests: 32,
				ChunkSize:             1000,
				OutputDir:             ".",
				Format:                "parquet",
				Compression:           "lz4",
			},
		},
		{
			name: "flags overridden by environment variables",
			args: []string{"--datasets", "logs"},
			envs: map[string]string{
				"CRYO_RPC_URL":              "http://env-rpc:8545",
				"CRYO_MAX_CONCURRENT_CHUNKS": "8",
				"CRYO_CHUNK_SIZE":            "2000",
				"CRYO_OUTPUT_FORMAT":         "csv",
				"CRYO_OVERWRITE":             "true",
			},
			want: &Options{
				Datasets:              []string{"logs"},
				RPCURL:                "http://env-rpc:8545",
				MaxRetries:            5,
				InitialBackoffMs:      500,
				MaxConcurrentChunks:   8,
				MaxConcurrentBlocks:   4,
				MaxConcurrentRequests: 32,
				ChunkSize:             2000,
				OutputDir:             ".",
				Format:                "csv",
				Compression:           "lz4",
				Overwrite:             true,
			},
		},
		{
			name: "ETH_RPC_URL is consulted as the rpc default",
			args: []string{"--datasets", "blocks"},
			envs: map[string]string{
				"ETH_RPC_URL": "http://fallback:8545",
			},
			want: &Options{
				Datasets:              []string{"blocks"},
				RPCURL:                "http://fallback:8545",
				MaxRetries:            5,
				InitialBackoffMs:      500,
				MaxConcurrentChunks:   4,
				MaxConcurrentBlocks:   4,
				MaxConcurrentRequests: 32,
				ChunkSize:             1000,
				OutputDir:             ".",
				Format:                "parquet",
				Compression:           "lz4",
			},
		},
		{
			name: "invalid integer in environment variable falls back to default",
			args: []string{"--datasets", "blocks", "--rpc", "http://localhost:8545"},
			envs: map[string]string{
				"CRYO_MAX_CONCURRENT_CHUNKS": "not-an-int",
			},
			want: &Options{
				Datasets:              []string{"blocks"},
				RPCURL:                "http://localhost:8545",
				MaxRetries:            5,
				InitialBackoffMs:      500,
				MaxConcurrentChunks:   4,
				MaxConcurrentBlocks:   4,
				MaxConcurrentRequests: 32,
				ChunkSize:             1000,
				OutputDir:             ".",
				Format:                "parquet",
				Compression:           "lz4",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseArgsAndEnvironment(test.args, test.envs)
			if (err != nil) != test.expectErr {
				t.Fatalf("ParseArgsAndEnvironment() error = %v, wantErr %v", err, test.expectErr)
			}
			if test.want == nil {
				return
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("ParseArgsAndEnvironment() = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestGetEnvAsMap(t *testing.T) {
	m := GetEnvAsMap()
	if m == nil {
		t.Fatalf("GetEnvAsMap() returned nil")
	}
}

func TestGetPrefixedEnvHelpers(t *testing.T) {
	envs := map[string]string{
		"CRYO_FOO":  "bar",
		"CRYO_NUM":  "42",
		"CRYO_FLAG": "true",
		"CRYO_RATE": "1.5",
	}
	if got := getPrefixedEnvVar(envs, "FOO", "default"); got != "bar" {
		t.Errorf("getPrefixedEnvVar = %q, want %q", got, "bar")
	}
	if got := getPrefixedEnvVar(envs, "MISSING", "default"); got != "default" {
		t.Errorf("getPrefixedEnvVar = %q, want %q", got, "default")
	}
	if got := getPrefixedEnvInt(envs, "NUM", 0); got != 42 {
		t.Errorf("getPrefixedEnvInt = %d, want 42", got)
	}
	if got := getPrefixedEnvBool(envs, "FLAG", false); !got {
		t.Errorf("getPrefixedEnvBool = false, want true")
	}
	if got := getPrefixedEnvFloat(envs, "RATE", 0); got != 1.5 {
		t.Errorf("getPrefixedEnvFloat = %v, want 1.5", got)
	}
}

func TestSplitOnce(t *testing.T) {
	pair := splitOnce("KEY=value=with=equals", '=')
	if pair[0] != "KEY" || pair[1] != "value=with=equals" {
		t.Errorf("splitOnce() = %v", pair)
	}
}
