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

package core

import "regexp"

var AmpersandCode = regexp.MustCompile(`&([0-9a-fk-orA-FK-OR])`)
var ScoreLine = regexp.MustCompile(`^(-?\d+)\s+(.*)$`)
var BossBarLine = regexp.MustCompile(`^(\S+)\s+(.*)$`)
var LabelLine = regexp.MustCompile(`^(-?\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.*)$`)
