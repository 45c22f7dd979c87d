package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights holds the PredictionEngine weight slots loaded from weights.yaml
// 가중치 파일이 SSOT: 코드에 가중치 상수를 두지 않는다
type Weights struct {
	Slots map[string]float64 `yaml:"slots"`
}

// Symbols holds per-fact-family symbol lists loaded from symbols.yaml
type Symbols struct {
	IndexCore    []string `yaml:"index_core"`
	GlobalLead   []string `yaml:"global_lead"`
	EtfFlow      []string `yaml:"etf_flow"`
	FuturesBasis []string `yaml:"futures_basis"`
	OptionsRisk  []string `yaml:"options_risk"`
	NorthProxy   []string `yaml:"north_proxy"`

	// Methods maps a symbol to its provider fetch-method token
	// (index/equity/future/crypto/default). Unknown tokens fail at startup.
	Methods map[string]string `yaml:"methods"`
}

// LoadWeights reads weights.yaml.
// KnownFields(true)로 오타/미사용 필드 즉시 실패 (SSOT 핵심)
func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights file: %w", err)
	}

	var w Weights
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("parse weights file: %w", err)
	}

	if len(w.Slots) == 0 {
		return nil, fmt.Errorf("weights file %s has no slots", path)
	}
	for name, v := range w.Slots {
		if v <= 0 {
			return nil, fmt.Errorf("weight slot %q must be > 0, got %v", name, v)
		}
	}

	return &w, nil
}

// LoadSymbols reads symbols.yaml. A missing required fact family is a
// deployment mistake and aborts startup.
func LoadSymbols(path string) (*Symbols, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}

	var s Symbols
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse symbols file: %w", err)
	}

	// index_core 없이는 파이프라인이 성립하지 않는다
	if len(s.IndexCore) == 0 {
		return nil, fmt.Errorf("symbols file %s: index_core is required", path)
	}

	return &s, nil
}
