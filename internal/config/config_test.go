package config

import (
	"testing"

	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/query"
)

func TestNewConfig_RequiresDatasets(t *testing.T) {
	_, err := NewConfig(&Options{RPCURL: "http://localhost:8545"})
	if err == nil {
		t.Fatalf("expected an error when --datasets is empty")
	}
}

func TestNewConfig_DefaultsAndConversions(t *testing.T) {
	opts := &Options{
		Datasets:         []string{"blocks"},
		RPCURL:           "http://localhost:8545",
		Format:           "csv",
		U256Types:        []string{"binary", "U64"},
		InitialBackoffMs: 250,
		ChunkSize:        1000,
	}

	cfg, err := NewConfig(opts)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Output.Format != query.FormatCSV {
		t.Errorf("Output.Format = %v, want csv", cfg.Output.Format)
	}
	want := []column.Encoding{column.EncodingBinary, column.EncodingU64}
	if len(cfg.U256Types) != len(want) {
		t.Fatalf("U256Types = %v, want %v", cfg.U256Types, want)
	}
	for i, enc := range want {
		if cfg.U256Types[i] != enc {
			t.Errorf("U256Types[%d] = %v, want %v", i, cfg.U256Types[i], enc)
		}
	}
	if cfg.InitialBackoff.Milliseconds() != 250 {
		t.Errorf("InitialBackoff = %v, want 250ms", cfg.InitialBackoff)
	}
	if !cfg.ChainIDCol {
		t.Errorf("ChainIDCol = false, want true when --no-chain-id is unset")
	}
}

func TestNewConfig_NoChainIDFlag(t *testing.T) {
	cfg, err := NewConfig(&Options{Datasets: []string{"logs"}, RPCURL: "x", NoChainID: true})
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.ChainIDCol {
		t.Errorf("ChainIDCol = true, want false when --no-chain-id is set")
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected query.OutputFormat
		hasError bool
	}{
		{"", query.FormatParquet, false},
		{"parquet", query.FormatParquet, false},
		{"csv", query.FormatCSV, false},
		{"JSON", query.FormatJSON, false},
		{"xml", "", true},
	}
	for _, test := range tests {
		result, err := parseOutputFormat(test.input)
		if (err != nil) != test.hasError {
			t.Errorf("parseOutputFormat(%q) error = %v, wantErr %v", test.input, err, test.hasError)
		}
		if result != test.expected {
			t.Errorf("parseOutputFormat(%q) = %v, want %v", test.input, result, test.expected)
		}
	}
}

func TestParseU256Types(t *testing.T) {
	if _, err := parseU256Types([]string{"not-a-real-encoding"}); err == nil {
		t.Errorf("expected an error for an unknown u256 encoding")
	}
	out, err := parseU256Types(nil)
	if err != nil || out != nil {
		t.Errorf("parseU256Types(nil) = (%v, %v), want (nil, nil)", out, err)
	}
}

func TestNewConfig_Filters(t *testing.T) {
	opts := &Options{
		Datasets:  []string{"logs"},
		RPCURL:    "http://localhost:8545",
		Addresses: []string{"0x0000000000000000000000000000000000000001"},
		Topic0:    []string{"0x00000000000000000000000000000000000000000000000000000000000001"},
		ToAddress: "0x0000000000000000000000000000000000000002",
		CallData:  "0xabcdef",
	}
	cfg, err := NewConfig(opts)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if len(cfg.Filters.Addresses) != 1 {
		t.Fatalf("Filters.Addresses = %v, want 1 entry", cfg.Filters.Addresses)
	}
	if len(cfg.Filters.Topics) != 4 || len(cfg.Filters.Topics[0]) != 1 {
		t.Fatalf("Filters.Topics = %v, want topic0 populated", cfg.Filters.Topics)
	}
	if cfg.Filters.ToAddress == nil {
		t.Fatalf("Filters.ToAddress = nil, want a resolved address")
	}
	if len(cfg.Filters.CallData) != 3 {
		t.Fatalf("Filters.CallData = %v, want 3 bytes", cfg.Filters.CallData)
	}
}

func TestNewConfig_InvalidAddressErrors(t *testing.T) {
	_, err := NewConfig(&Options{Datasets: []string{"logs"}, RPCURL: "x", Addresses: []string{"not-an-address"}})
	if err == nil {
		t.Errorf("expected an error for an invalid address")
	}
}
