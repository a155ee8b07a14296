/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package attributes

import (
	"github.com/carverauto/devping/pkg/models"
)

// ActivityKeys are the attributes a reachability check reads.
var ActivityKeys = []string{models.AttributeLastActivityTime, models.AttributeActive}

// ActivitySnapshotFrom extracts the reachability signals from a Find result.
// Missing, failed and wrongly typed values all map to nil.
func ActivitySnapshotFrom(r *Result) models.ActivitySnapshot {
	var snap models.ActivitySnapshot

	if e, ok := r.Get(models.AttributeLastActivityTime); ok {
		if v, ok := e.LongValue(); ok {
			snap.LastActivityTime = &v
		}
	}

	if e, ok := r.Get(models.AttributeActive); ok {
		if v, ok := e.BooleanValue(); ok {
			snap.Active = &v
		}
	}

	return snap
}
