/*
 * MIT License
 *
 * Copyright (c) 2026 The Hardware Analyzer Pro Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package metrics

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a single metric field value, either numeric or text.
// The zero Value is the number 0.
type Value struct {
	num  float64
	str  string
	text bool
}

// Num creates a numeric value.
func Num(v float64) Value {
	return Value{num: v}
}

// Str creates a text value.
func Str(s string) Value {
	return Value{str: s, text: true}
}

// IsText reports whether the value holds text rather than a number.
func (v Value) IsText() bool {
	return v.text
}

// Float returns the numeric value. Text values return 0.
func (v Value) Float() float64 {
	if v.text {
		return 0
	}
	return v.num
}

// Text returns the text value. Numeric values return "".
func (v Value) Text() string {
	if !v.text {
		return ""
	}
	return v.str
}

// String renders the value for tabular output.
func (v Value) String() string {
	if v.text {
		return v.str
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// MarshalJSON encodes the value as a bare JSON number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.text {
		return json.Marshal(v.str)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON decodes a JSON number or string back into a value.
func (v *Value) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode text value: %w", err)
		}
		*v = Str(s)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to decode numeric value: %w", err)
	}
	*v = Num(n)
	return nil
}
