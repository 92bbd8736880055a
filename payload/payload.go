// Package payload builds the named numeric inputs handed to an inference
// engine for one fit.
package payload

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Field names shared by the programs.
const (
	FieldN          = "N"
	FieldJ          = "J"
	FieldK          = "K"
	FieldSpecies    = "species"
	FieldWater      = "d18_O_w"
	FieldCarbonate  = "d18_O_c"
	FieldY          = "y"
	FieldAM         = "a_m"
	FieldBM         = "b_m"
	FieldSigmaA     = "sigma_a"
	FieldSigmaB     = "sigma_b"
	FieldWaterNew   = "d18_O_w_new"
	FieldCarbNew    = "d18_O_c_new"
	FieldWaterNewSD = "d18_O_w_new_sd"
	FieldCarbNewSD  = "d18_O_c_new_sd"
)

// Payload maps declared data names to int, float64, []int or []float64 values.
type Payload map[string]any

// sizes lists which count field sizes each array field.
var sizes = map[string]string{
	FieldSpecies:    FieldN,
	FieldWater:      FieldN,
	FieldCarbonate:  FieldN,
	FieldY:          FieldN,
	FieldSigmaA:     FieldJ,
	FieldSigmaB:     FieldJ,
	FieldWaterNew:   FieldK,
	FieldCarbNew:    FieldK,
	FieldWaterNewSD: FieldK,
	FieldCarbNewSD:  FieldK,
}

// Keys returns the field names in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that the payload carries exactly the data fields declared by
// program, that arrays match their count fields, and that no value is NaN or
// infinite.
func (p Payload) Validate(program model.Program) error {
	declared := program.DataFields()
	for _, name := range declared {
		if _, ok := p[name]; !ok {
			return errors.NewValidationError(name, fmt.Sprintf("declared by %s but missing from payload", program.Stage), nil)
		}
	}
	for _, name := range p.Keys() {
		if !slices.Contains(declared, name) {
			return errors.NewValidationError(name, fmt.Sprintf("not declared by %s", program.Stage), p[name])
		}
	}

	for _, name := range p.Keys() {
		switch v := p[name].(type) {
		case int, []int:
		case float64:
			if err := errors.CheckScalar("payload "+name, v, 0); err != nil {
				return err
			}
		case []float64:
			if err := errors.CheckNumericalStability("payload "+name, v, 0); err != nil {
				return err
			}
		default:
			return errors.NewValidationError(name, "unsupported value type", fmt.Sprintf("%T", v))
		}

		sizeField, ok := sizes[name]
		if !ok {
			continue
		}
		n, hasSize := p[sizeField].(int)
		length := arrayLen(p[name])
		if !hasSize || length < 0 {
			continue
		}
		if length != n {
			return errors.NewDimensionError("payload.Validate", name, n, length)
		}
	}
	return nil
}

func arrayLen(v any) int {
	switch a := v.(type) {
	case []float64:
		return len(a)
	case []int:
		return len(a)
	default:
		return -1
	}
}

// Int returns the int field name.
func (p Payload) Int(name string) (int, error) {
	v, ok := p[name].(int)
	if !ok {
		return 0, p.typeError(name, "int")
	}
	return v, nil
}

// Float returns the float64 field name.
func (p Payload) Float(name string) (float64, error) {
	v, ok := p[name].(float64)
	if !ok {
		return 0, p.typeError(name, "float64")
	}
	return v, nil
}

// Floats returns the []float64 field name.
func (p Payload) Floats(name string) ([]float64, error) {
	v, ok := p[name].([]float64)
	if !ok {
		return nil, p.typeError(name, "[]float64")
	}
	return v, nil
}

// Ints returns the []int field name.
func (p Payload) Ints(name string) ([]int, error) {
	v, ok := p[name].([]int)
	if !ok {
		return nil, p.typeError(name, "[]int")
	}
	return v, nil
}

func (p Payload) typeError(name, want string) error {
	v, ok := p[name]
	if !ok {
		return errors.NewValidationError(name, "missing from payload", nil)
	}
	return errors.NewValidationError(name, "expected "+want, fmt.Sprintf("%T", v))
}

// MarshalJSON encodes the payload in the CmdStan JSON data format. Empty
// arrays are written as [] rather than null.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch a := v.(type) {
		case []float64:
			if a == nil {
				a = []float64{}
			}
			out[k] = a
		case []int:
			if a == nil {
				a = []int{}
			}
			out[k] = a
		default:
			out[k] = v
		}
	}
	return json.Marshal(out)
}
