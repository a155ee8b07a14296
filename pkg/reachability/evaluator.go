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

// Package reachability decides whether a device is reachable from its
// persisted activity signals and shapes the ping response.
package reachability

import (
	"time"

	"github.com/carverauto/devping/pkg/models"
)

// Source identifies which signal made a device reachable.
type Source string

const (
	SourceActivity   Source = "activity"
	SourceActiveFlag Source = "active_flag"
	SourceNone       Source = "none"
)

const msPerSecond = 1000

// Clock returns the current time.
type Clock func() time.Time

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source, for tests.
func WithClock(clock Clock) Option {
	return func(e *Evaluator) {
		if clock != nil {
			e.Clock = clock
		}
	}
}

// Evaluator combines the last activity time and the active flag into a
// reachability verdict. It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	Timeout time.Duration
	Clock   Clock
}

// NewEvaluator returns an Evaluator with the given inactivity timeout.
func NewEvaluator(timeout time.Duration, opts ...Option) *Evaluator {
	e := &Evaluator{
		Timeout: timeout,
		Clock:   time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluation is the outcome of a reachability check.
// LastSeen and InactivitySeconds are either both set or both nil.
type Evaluation struct {
	Reachable         bool
	LastSeen          *time.Time
	InactivitySeconds *int64
	Via               Source
}

// Evaluate checks a fully fetched snapshot.
func (e *Evaluator) Evaluate(snapshot models.ActivitySnapshot) Evaluation {
	return e.EvaluateWith(snapshot.LastActivityTime, func() *bool { return snapshot.Active })
}

// EvaluateWith checks lastActivity first and only calls activeFn when the
// activity check alone does not make the device reachable. activeFn may be nil.
func (e *Evaluator) EvaluateWith(lastActivity *int64, activeFn func() *bool) Evaluation {
	ev := Evaluation{Via: SourceNone}

	if lastActivity != nil && *lastActivity > 0 {
		last := *lastActivity
		elapsed := e.Clock().UnixMilli() - last
		inactivity := elapsed / msPerSecond
		lastSeen := time.UnixMilli(last).UTC()

		ev.LastSeen = &lastSeen
		ev.InactivitySeconds = &inactivity

		if elapsed <= e.Timeout.Milliseconds() {
			ev.Reachable = true
			ev.Via = SourceActivity

			return ev
		}
	}

	if activeFn == nil {
		return ev
	}

	if active := activeFn(); active != nil && *active {
		ev.Reachable = true
		ev.Via = SourceActiveFlag
	}

	return ev
}

// IsReachable reports whether lastActivityMs lies within timeoutMs of now.
// The boundary is inclusive.
func IsReachable(lastActivityMs, timeoutMs int64) bool {
	return isReachableAt(time.Now().UnixMilli(), lastActivityMs, timeoutMs)
}

func isReachableAt(nowMs, lastActivityMs, timeoutMs int64) bool {
	return nowMs-lastActivityMs <= timeoutMs
}
