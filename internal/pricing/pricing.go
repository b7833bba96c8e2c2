// Package pricing estimates spend for token counts across a catalog of models.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Default per-million-token rates for the scratch pad and the watchdog.
const (
	DefaultInputRate  = 0.03
	DefaultOutputRate = 0.06
)

// Model is one catalog entry. Costs are USD per 1M tokens.
type Model struct {
	Name       string  `yaml:"name" json:"name"`
	Context    string  `yaml:"context" json:"context"`
	InputCost  float64 `yaml:"input_cost" json:"input_cost"`
	OutputCost float64 `yaml:"output_cost" json:"output_cost"`
}

// DefaultModels is the built-in catalog.
func DefaultModels() []Model {
	return []Model{
		{Name: "GPT-4o", Context: "128K", InputCost: 5, OutputCost: 15},
		{Name: "Claude 3.5 Sonnet", Context: "200K", InputCost: 3, OutputCost: 15},
		{Name: "Gemini 1.5 Pro", Context: "1M", InputCost: 1.25, OutputCost: 5},
	}
}

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// LoadCatalog reads a YAML catalog of the form:
//
//	models:
//	  - name: GPT-4o
//	    context: 128K
//	    input_cost: 5
//	    output_cost: 15
func LoadCatalog(path string) ([]Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing.LoadCatalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("pricing.LoadCatalog: parse %s: %w", path, err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("pricing.LoadCatalog: %s: no models", path)
	}
	for i, m := range f.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("pricing.LoadCatalog: model %d: name is required", i)
		}
		if m.InputCost < 0 || m.OutputCost < 0 {
			return nil, fmt.Errorf("pricing.LoadCatalog: %s: negative cost", m.Name)
		}
	}
	return f.Models, nil
}

// Catalog returns the models from path, or the defaults when path is empty.
func Catalog(path string) ([]Model, error) {
	if path == "" {
		return DefaultModels(), nil
	}
	return LoadCatalog(path)
}

// Find returns the model with the given name.
func Find(models []Model, name string) (Model, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// EstimateCost returns tokens/1M * ratePerMillion.
func EstimateCost(tokens int, ratePerMillion float64) float64 {
	return float64(tokens) / 1_000_000 * ratePerMillion
}

// Round4 rounds to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10_000) / 10_000
}

// ModelCost is one row of the cost matrix.
type ModelCost struct {
	Model
	Estimated float64 `json:"estimated"`
	Cheapest  bool    `json:"cheapest"`
}

// Matrix estimates the input cost of totalTokens for every model and flags
// the cheapest. Ties keep the earliest model.
func Matrix(totalTokens int, models []Model) []ModelCost {
	out := make([]ModelCost, len(models))
	cheapest := -1
	for i, m := range models {
		out[i] = ModelCost{Model: m, Estimated: Round4(EstimateCost(totalTokens, m.InputCost))}
		if cheapest < 0 || out[i].Estimated < out[cheapest].Estimated {
			cheapest = i
		}
	}
	if cheapest >= 0 {
		out[cheapest].Cheapest = true
	}
	return out
}

// Estimate is the scratch-pad result for a token count at two rates.
type Estimate struct {
	Tokens     int     `json:"tokens"`
	InputRate  float64 `json:"input_rate"`
	OutputRate float64 `json:"output_rate"`
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
}

// ErrNegativeRate is returned for rates below zero.
var ErrNegativeRate = errors.New("rates cannot be negative")

// EstimateRates prices tokens as input and as output.
func EstimateRates(tokens int, inputRate, outputRate float64) (Estimate, error) {
	if inputRate < 0 || outputRate < 0 {
		return Estimate{}, ErrNegativeRate
	}
	return Estimate{
		Tokens:     tokens,
		InputRate:  inputRate,
		OutputRate: outputRate,
		InputCost:  Round4(EstimateCost(tokens, inputRate)),
		OutputCost: Round4(EstimateCost(tokens, outputRate)),
	}, nil
}

// Diff is the difference between two files' token counts.
type Diff struct {
	Left      string  `json:"left"`
	Right     string  `json:"right"`
	Tokens    int     `json:"tokens"`
	CostDelta float64 `json:"cost_delta"`
}

// DiffTokens returns left-right tokens and the cost delta at DefaultInputRate.
func DiffTokens(left string, leftTokens int, right string, rightTokens int) Diff {
	delta := leftTokens - rightTokens
	return Diff{
		Left:      left,
		Right:     right,
		Tokens:    delta,
		CostDelta: EstimateCost(delta, DefaultInputRate),
	}
}
