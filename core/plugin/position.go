// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type Position struct {
	X float64
	Y float64
	Z float64
}

// ParsePosition reads three numbers separated by spaces or commas.
func ParsePosition(s string) (Position, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) != 3 {
		return Position{}, fmt.Errorf("坐标格式错误: %q", s)
	}
	var err error
	coords := lo.Map(fields, func(item string, index int) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(item, 64)
		return v
	})
	if err != nil {
		return Position{}, err
	}
	return Position{coords[0], coords[1], coords[2]}, nil
}

func (p Position) Distance(o Position) float64 {
	return math.Sqrt((p.X-o.X)*(p.X-o.X) + (p.Y-o.Y)*(p.Y-o.Y) + (p.Z-o.Z)*(p.Z-o.Z))
}

func (p Position) String() string {
	return fmt.Sprintf("%.0f %.0f %.0f", p.X, p.Y, p.Z)
}
